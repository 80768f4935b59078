package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local 将文件写入本地目录，并通过静态路由对外提供。
type Local struct {
	dir     string
	urlPath string
}

var _ Blob = (*Local)(nil)

// NewLocal creates a Local storage rooted at dir, served under urlPath.
func NewLocal(dir, urlPath string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if urlPath == "" {
		urlPath = "/uploads"
	}
	return &Local{dir: dir, urlPath: "/" + strings.Trim(urlPath, "/")}, nil
}

// Dir returns the directory files are written to.
func (l *Local) Dir() string {
	return l.dir
}

// URLPath returns the public path prefix.
func (l *Local) URLPath() string {
	return l.urlPath
}

// Put 写入文件，先写临时文件再重命名，避免读到半截文件。
func (l *Local) Put(ctx context.Context, key string, body io.Reader, _ string, _ int64) (string, error) {
	target, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	return path.Join(l.urlPath, key), nil
}

// Delete removes the file; a missing file is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	target, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

func (l *Local) resolve(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.dir, key), nil
}
