package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/handler"
	"github.com/firmsite/internal/router"
	"github.com/firmsite/internal/storage"
	"github.com/firmsite/internal/store"
)

const (
	adminEmail    = "admin@firm.example"
	adminPassword = "e2e-secret-pass"
)

type e2eSuite struct {
	handler   http.Handler
	public    httpClient
	admin     httpClient
	baseURL   string
	uploadDir string
	revalid   *revalidationLog
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

// revalidationLog 是一个只记录失效路径的内存渲染缓存。
type revalidationLog struct {
	entries map[string][]byte
	paths   []string
}

func (r *revalidationLog) Get(_ context.Context, path string) ([]byte, bool, error) {
	data, ok := r.entries[path]
	return data, ok, nil
}

func (r *revalidationLog) Set(_ context.Context, path string, data []byte) error {
	r.entries[path] = data
	return nil
}

func (r *revalidationLog) Revalidate(_ context.Context, path string) error {
	delete(r.entries, path)
	r.paths = append(r.paths, path)
	return nil
}

func TestE2E_AllInterfaces(t *testing.T) {
	suite := newE2ESuite(t)

	t.Run("public endpoints", suite.testPublicEndpoints)
	t.Run("admin requires login", suite.testAdminRequiresLogin)
	suite.login(t)
	t.Run("content lifecycle", suite.testContentLifecycle)
	t.Run("taxonomy", suite.testTaxonomy)
	t.Run("media", suite.testMedia)
	t.Run("users", suite.testUsers)
	t.Run("seo", suite.testSEO)
	t.Run("logout", suite.testLogout)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: dsn, Silent: true})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.EnsureUser(gdb, adminEmail, adminPassword); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	uploadDir := t.TempDir()
	blob, err := storage.NewLocal(uploadDir, "/uploads")
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	revalid := &revalidationLog{entries: map[string][]byte{}}
	api := handler.NewAPI(handler.Options{
		Store: store.NewGormStore(gdb),
		Blob:  blob,
		Cache: revalid,
	})
	engine := router.SetupRouter(api, router.Options{
		SessionSecret: "e2e-session-secret",
		UploadDir:     uploadDir,
		UploadURLPath: "/uploads",
	})

	return &e2eSuite{
		handler:   engine,
		public:    newLocalClient(engine, false),
		admin:     newLocalClient(engine, true),
		baseURL:   "http://firm.test",
		uploadDir: uploadDir,
		revalid:   revalid,
	}
}

func (s *e2eSuite) login(t *testing.T) {
	t.Helper()
	form := url.Values{"email": {adminEmail}, "password": {adminPassword}}
	resp := s.doForm(t, s.admin, http.MethodPost, "/admin/login", form)
	expectStatus(t, resp, http.StatusOK)
}

func (s *e2eSuite) testPublicEndpoints(t *testing.T) {
	resp := s.doJSON(t, s.public, http.MethodGet, "/ping", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = s.doJSON(t, s.public, http.MethodGet, "/content", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode(t, resp)["total"]; got != float64(0) {
		t.Fatalf("expected no published content, got %v", got)
	}

	resp = s.doJSON(t, s.public, http.MethodPost, "/api/calculators/rd-credit/qualify", map[string]any{
		"permitted_purpose":          true,
		"technological_in_nature":    true,
		"eliminates_uncertainty":     true,
		"process_of_experimentation": true,
	})
	expectStatus(t, resp, http.StatusOK)
	if q := decode(t, resp)["qualification"].(map[string]any); q["qualifies"] != true {
		t.Fatalf("expected activity to qualify, got %v", q)
	}
}

func (s *e2eSuite) testAdminRequiresLogin(t *testing.T) {
	resp := s.doJSON(t, s.public, http.MethodGet, "/admin/api/contents", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	form := url.Values{"email": {adminEmail}, "password": {"wrong-password"}}
	resp = s.doForm(t, s.public, http.MethodPost, "/admin/login", form)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func (s *e2eSuite) testContentLifecycle(t *testing.T) {
	s.revalid.paths = nil

	resp := s.doJSON(t, s.admin, http.MethodPost, "/admin/api/contents", map[string]any{
		"title":       "Hello",
		"slug":        "hello",
		"description": "First entry",
		"body":        "v1",
		"status":      "draft",
	})
	expectStatus(t, resp, http.StatusCreated)
	content := decode(t, resp)["content"].(map[string]any)
	id := int(content["id"].(float64))
	if content["published_at"] != nil {
		t.Fatalf("draft must not carry published_at")
	}

	resp = s.doJSON(t, s.admin, http.MethodPut, fmt.Sprintf("/admin/api/contents/%d", id), map[string]any{
		"title":       "Hello",
		"slug":        "hello",
		"description": "First entry",
		"body":        "v2",
		"status":      "published",
	})
	expectStatus(t, resp, http.StatusOK)
	published := decode(t, resp)["content"].(map[string]any)
	firstPublishedAt := published["published_at"]
	if firstPublishedAt == nil {
		t.Fatalf("expected published_at after publishing")
	}

	// 正文不变时不追加版本，publishedAt 保持不变
	resp = s.doJSON(t, s.admin, http.MethodPut, fmt.Sprintf("/admin/api/contents/%d", id), map[string]any{
		"title":       "Hello again",
		"slug":        "hello",
		"description": "First entry",
		"body":        "v2",
		"status":      "published",
	})
	expectStatus(t, resp, http.StatusOK)
	body := decode(t, resp)
	if body["new_version"] != false {
		t.Fatalf("expected no new version for unchanged body")
	}
	if body["content"].(map[string]any)["published_at"] != firstPublishedAt {
		t.Fatalf("published_at must be stamped once")
	}

	resp = s.doJSON(t, s.admin, http.MethodGet, fmt.Sprintf("/admin/api/contents/%d/versions", id), nil)
	expectStatus(t, resp, http.StatusOK)
	versions := decode(t, resp)["versions"].([]any)
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}

	resp = s.doJSON(t, s.public, http.MethodGet, "/content/hello", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("expected first public render to miss the cache")
	}
	if html := decode(t, resp)["html"].(string); !strings.Contains(html, "v2") {
		t.Fatalf("unexpected rendered html %q", html)
	}

	resp = s.doJSON(t, s.admin, http.MethodDelete, fmt.Sprintf("/admin/api/contents/%d", id), nil)
	expectStatus(t, resp, http.StatusOK)

	resp = s.doJSON(t, s.public, http.MethodGet, "/content/hello", nil)
	expectStatus(t, resp, http.StatusNotFound)

	for _, want := range []string{"/content", "/content/hello"} {
		if !contains(s.revalid.paths, want) {
			t.Fatalf("expected %s to be revalidated, got %v", want, s.revalid.paths)
		}
	}
}

func (s *e2eSuite) testTaxonomy(t *testing.T) {
	resp := s.doJSON(t, s.admin, http.MethodPost, "/admin/api/categories", map[string]any{"name": "Tax Planning"})
	expectStatus(t, resp, http.StatusCreated)
	category := decode(t, resp)["category"].(map[string]any)
	if category["slug"] != "tax-planning" {
		t.Fatalf("expected derived slug, got %v", category["slug"])
	}

	resp = s.doForm(t, s.admin, http.MethodPost, "/admin/api/tags", url.Values{"name": {"Payroll"}})
	expectStatus(t, resp, http.StatusCreated)

	resp = s.doJSON(t, s.public, http.MethodGet, "/tags", nil)
	expectStatus(t, resp, http.StatusOK)
	if tags := decode(t, resp)["tags"].([]any); len(tags) != 1 {
		t.Fatalf("expected 1 public tag, got %d", len(tags))
	}
}

func (s *e2eSuite) testMedia(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "logo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(pngBytes(t)); err != nil {
		t.Fatalf("write png: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, s.baseURL+"/admin/api/media", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, _ := s.admin.Do(req)
	expectStatus(t, resp, http.StatusCreated)
	media := decode(t, resp)["media"].(map[string]any)

	resp = s.doJSON(t, s.public, http.MethodGet, media["url"].(string), nil)
	expectStatus(t, resp, http.StatusOK)

	resp = s.doJSON(t, s.admin, http.MethodDelete, fmt.Sprintf("/admin/api/media/%d", int(media["id"].(float64))), nil)
	expectStatus(t, resp, http.StatusOK)
}

func (s *e2eSuite) testUsers(t *testing.T) {
	resp := s.doJSON(t, s.admin, http.MethodPost, "/admin/api/users", map[string]any{
		"email":    "writer@firm.example",
		"name":     "Writer",
		"role":     "author",
		"password": "writer-pass",
	})
	expectStatus(t, resp, http.StatusCreated)

	writer := newLocalClient(s.handler, true)
	resp = s.doForm(t, writer, http.MethodPost, "/admin/login", url.Values{"email": {"writer@firm.example"}, "password": {"writer-pass"}})
	expectStatus(t, resp, http.StatusOK)

	resp = s.doJSON(t, writer, http.MethodGet, "/admin/api/users", nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = s.doJSON(t, writer, http.MethodPost, "/admin/api/tags", map[string]any{"name": "Audit"})
	expectStatus(t, resp, http.StatusForbidden)
}

func (s *e2eSuite) testSEO(t *testing.T) {
	resp := s.doJSON(t, s.admin, http.MethodPost, "/admin/api/seo/analyze", map[string]any{
		"title":    "Small business payroll tax guide for first-time owners",
		"body":     "Payroll tax basics.",
		"keywords": []string{"payroll tax"},
	})
	expectStatus(t, resp, http.StatusOK)
	score := decode(t, resp)["score"].(map[string]any)
	if score["grade"] == "" {
		t.Fatalf("expected a grade, got %v", score)
	}
}

func (s *e2eSuite) testLogout(t *testing.T) {
	resp := s.doJSON(t, s.admin, http.MethodPost, "/admin/logout", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = s.doJSON(t, s.admin, http.MethodGet, "/admin/api/me", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func (s *e2eSuite) doJSON(t *testing.T, client httpClient, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (s *e2eSuite) doForm(t *testing.T, client httpClient, method, path string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, raw)
	}
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
