package handler

import (
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/db"
)

func TestRenderMarkdownSanitizesOutput(t *testing.T) {
	html, err := renderMarkdown("# 标题\n\n<script>alert(1)</script>\n\n| a | b |\n|---|---|\n| 1 | 2 |")
	if err != nil {
		t.Fatalf("render markdown: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("expected script stripped, got %s", html)
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "<table>") {
		t.Fatalf("expected heading and table, got %s", html)
	}
}

func TestShowContentCachesUntilRevalidated(t *testing.T) {
	env := setupHandlerTest(t)
	author := env.seedCaller(t, "author@example.com", db.RoleAuthor)

	payload := validContentPayload("published-guide")
	payload["status"] = "published"
	payload["body"] = "**bold** guidance"
	c, w := newJSONContext(http.MethodPost, "/admin/api/contents", payload, author)
	env.api.CreateContent(c)
	expectStatus(t, w, http.StatusCreated)
	id := uint(decodeBody(t, w)["content"].(map[string]any)["id"].(float64))

	show := func() (string, map[string]any) {
		c, w := newJSONContext(http.MethodGet, "/content/published-guide", nil, nil)
		c.Params = gin.Params{{Key: "slug", Value: "published-guide"}}
		env.api.ShowContent(c)
		expectStatus(t, w, http.StatusOK)
		return w.Header().Get(cacheHeader), decodeBody(t, w)
	}

	state, body := show()
	if state != "MISS" {
		t.Fatalf("expected MISS on first render, got %q", state)
	}
	if !strings.Contains(body["html"].(string), "<strong>bold</strong>") {
		t.Fatalf("unexpected html %v", body["html"])
	}
	if state, _ = show(); state != "HIT" {
		t.Fatalf("expected HIT on second render, got %q", state)
	}

	payload["body"] = "updated guidance"
	c, w = newJSONContext(http.MethodPut, "/admin/api/contents/1", payload, author)
	c.Params = idParam(id)
	env.api.UpdateContent(c)
	expectStatus(t, w, http.StatusOK)

	state, body = show()
	if state != "MISS" {
		t.Fatalf("expected MISS after update, got %q", state)
	}
	if !strings.Contains(body["html"].(string), "updated guidance") {
		t.Fatalf("expected refreshed html, got %v", body["html"])
	}
}

func TestShowContentRefreshedAfterTagChanges(t *testing.T) {
	env := setupHandlerTest(t)
	editor := env.seedCaller(t, "editor@example.com", db.RoleEditor)

	c, w := newJSONContext(http.MethodPost, "/admin/api/tags", map[string]any{"name": "Payroll"}, editor)
	env.api.CreateTag(c)
	expectStatus(t, w, http.StatusCreated)
	tagID := uint(decodeBody(t, w)["tag"].(map[string]any)["id"].(float64))

	payload := validContentPayload("guide")
	payload["status"] = "published"
	payload["tag_ids"] = []uint{tagID}
	c, w = newJSONContext(http.MethodPost, "/admin/api/contents", payload, editor)
	env.api.CreateContent(c)
	expectStatus(t, w, http.StatusCreated)

	show := func() (string, []any) {
		c, w := newJSONContext(http.MethodGet, "/content/guide", nil, nil)
		c.Params = gin.Params{{Key: "slug", Value: "guide"}}
		env.api.ShowContent(c)
		expectStatus(t, w, http.StatusOK)
		tags, _ := decodeBody(t, w)["content"].(map[string]any)["tags"].([]any)
		return w.Header().Get(cacheHeader), tags
	}

	show()
	if state, _ := show(); state != "HIT" {
		t.Fatalf("expected warmed cache, got %q", state)
	}
	env.cache.reset()

	c, w = newJSONContext(http.MethodPut, "/admin/api/tags/1", map[string]any{"name": "Salaries"}, editor)
	c.Params = idParam(tagID)
	env.api.UpdateTag(c)
	expectStatus(t, w, http.StatusOK)

	want := []string{"/tags", "/content", "/content/guide"}
	if got := env.cache.paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected revalidated %v after rename, got %v", want, got)
	}
	state, tags := show()
	if state != "MISS" {
		t.Fatalf("expected MISS after tag rename, got %q", state)
	}
	if len(tags) != 1 || tags[0].(map[string]any)["name"] != "Salaries" {
		t.Fatalf("expected renamed tag, got %v", tags)
	}

	c, w = newJSONContext(http.MethodDelete, "/admin/api/tags/1", nil, editor)
	c.Params = idParam(tagID)
	env.api.DeleteTag(c)
	expectStatus(t, w, http.StatusOK)

	state, tags = show()
	if state != "MISS" {
		t.Fatalf("expected MISS after tag delete, got %q", state)
	}
	if len(tags) != 0 {
		t.Fatalf("expected tag removed from content, got %v", tags)
	}
}

func TestDeleteCategoryRefreshesLinkedContent(t *testing.T) {
	env := setupHandlerTest(t)
	editor := env.seedCaller(t, "editor@example.com", db.RoleEditor)

	c, w := newJSONContext(http.MethodPost, "/admin/api/categories", map[string]any{"name": "Audit"}, editor)
	env.api.CreateCategory(c)
	expectStatus(t, w, http.StatusCreated)
	categoryID := uint(decodeBody(t, w)["category"].(map[string]any)["id"].(float64))

	payload := validContentPayload("audit-checklist")
	payload["status"] = "published"
	payload["category_ids"] = []uint{categoryID}
	c, w = newJSONContext(http.MethodPost, "/admin/api/contents", payload, editor)
	env.api.CreateContent(c)
	expectStatus(t, w, http.StatusCreated)
	env.cache.reset()

	c, w = newJSONContext(http.MethodDelete, "/admin/api/categories/1", nil, editor)
	c.Params = idParam(categoryID)
	env.api.DeleteCategory(c)
	expectStatus(t, w, http.StatusOK)

	want := []string{"/categories", "/content", "/content/audit-checklist"}
	if got := env.cache.paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected revalidated %v, got %v", want, got)
	}
}

func TestShowContentHidesDrafts(t *testing.T) {
	env := setupHandlerTest(t)
	author := env.seedCaller(t, "author@example.com", db.RoleAuthor)
	createContent(t, env, author.ID, "secret-draft")

	c, w := newJSONContext(http.MethodGet, "/content/secret-draft", nil, nil)
	c.Params = gin.Params{{Key: "slug", Value: "secret-draft"}}
	env.api.ShowContent(c)
	expectStatus(t, w, http.StatusNotFound)
}

func TestListPublishedContentOnlyPublished(t *testing.T) {
	env := setupHandlerTest(t)
	author := env.seedCaller(t, "author@example.com", db.RoleAuthor)
	createContent(t, env, author.ID, "draft-entry")

	payload := validContentPayload("live-entry")
	payload["status"] = "published"
	c, w := newJSONContext(http.MethodPost, "/admin/api/contents", payload, author)
	env.api.CreateContent(c)
	expectStatus(t, w, http.StatusCreated)

	c, w = newJSONContext(http.MethodGet, "/content", nil, nil)
	env.api.ListPublishedContent(c)
	expectStatus(t, w, http.StatusOK)

	contents := decodeBody(t, w)["contents"].([]any)
	if len(contents) != 1 || contents[0].(map[string]any)["slug"] != "live-entry" {
		t.Fatalf("expected only the published entry, got %v", contents)
	}
	if w.Header().Get(cacheHeader) != "MISS" {
		t.Fatalf("expected default list to go through the cache")
	}

	c, w = newJSONContext(http.MethodGet, "/content?page=2", nil, nil)
	env.api.ListPublishedContent(c)
	expectStatus(t, w, http.StatusOK)
	if w.Header().Get(cacheHeader) != "" {
		t.Fatalf("expected paged list to bypass the cache")
	}
}

func TestPublicTaxonomyLists(t *testing.T) {
	env := setupHandlerTest(t)

	c, w := newJSONContext(http.MethodGet, "/tags", nil, nil)
	env.api.PublicTags(c)
	expectStatus(t, w, http.StatusOK)
	if tags := decodeBody(t, w)["tags"].([]any); len(tags) != 0 {
		t.Fatalf("expected empty tag list, got %v", tags)
	}

	c, w = newJSONContext(http.MethodGet, "/categories", nil, nil)
	env.api.PublicCategories(c)
	expectStatus(t, w, http.StatusOK)
	if _, ok := decodeBody(t, w)["categories"].([]any); !ok {
		t.Fatalf("expected categories array, got %s", w.Body.String())
	}
}
