package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	blob, err := NewLocal(dir, "media/")
	require.NoError(t, err)

	url, err := blob.Put(context.Background(), "20240101-abc.png", strings.NewReader("png-bytes"), "image/png", 9)
	require.NoError(t, err)
	assert.Equal(t, "/media/20240101-abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "20240101-abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, blob.Delete(context.Background(), "20240101-abc.png"))
	_, err = os.Stat(filepath.Join(dir, "20240101-abc.png"))
	assert.True(t, os.IsNotExist(err))

	// 重复删除不报错
	assert.NoError(t, blob.Delete(context.Background(), "20240101-abc.png"))
}

func TestLocalRejectsPathKeys(t *testing.T) {
	blob, err := NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "/uploads", blob.URLPath())

	for _, key := range []string{"", "..", "../escape.png", "nested/file.png"} {
		_, err := blob.Put(context.Background(), key, strings.NewReader("x"), "image/png", 1)
		assert.Error(t, err, key)
	}
}

func TestNewLocalRequiresDir(t *testing.T) {
	_, err := NewLocal("  ", "/uploads")
	assert.Error(t, err)
}
