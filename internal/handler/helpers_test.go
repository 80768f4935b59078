package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/storage"
	"github.com/firmsite/internal/store"
)

// recordingCache 记录失效路径，同时充当内存渲染缓存。
type recordingCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	revalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string][]byte{}}
}

func (r *recordingCache) Get(_ context.Context, path string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.entries[path]
	return data, ok, nil
}

func (r *recordingCache) Set(_ context.Context, path string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[path] = data
	return nil
}

func (r *recordingCache) Revalidate(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, path)
	r.revalidated = append(r.revalidated, path)
	return nil
}

func (r *recordingCache) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.revalidated...)
}

func (r *recordingCache) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revalidated = nil
}

type handlerEnv struct {
	api   *API
	store store.Store
	cache *recordingCache
	dir   string
}

func setupHandlerTest(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: dsn, Silent: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	dir := t.TempDir()
	blob, err := storage.NewLocal(dir, "/uploads")
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	st := store.NewGormStore(gdb)
	rc := newRecordingCache()
	return &handlerEnv{
		api:   NewAPI(Options{Store: st, Blob: blob, Cache: rc}),
		store: st,
		cache: rc,
		dir:   dir,
	}
}

func (e *handlerEnv) seedCaller(t *testing.T, email, role string) *authz.Caller {
	t.Helper()
	user := &db.User{Email: email, Name: email, Role: role, Password: "unused"}
	if err := e.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	parsed, _ := authz.ParseRole(role)
	return &authz.Caller{ID: user.ID, Email: user.Email, Name: user.Name, Role: parsed}
}

// newJSONContext 构造一个带调用者的测试上下文，caller 为 nil 表示未登录。
func newJSONContext(method, target string, payload any, caller *authz.Caller) (*gin.Context, *httptest.ResponseRecorder) {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if caller != nil {
		c.Set(callerContextKey, caller)
	}
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func idParam(id uint) gin.Params {
	return gin.Params{{Key: "id", Value: fmt.Sprint(id)}}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
