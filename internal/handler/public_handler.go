package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/firmsite/internal/cache"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/service"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

const cacheHeader = "X-Cache"

func renderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return string(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

// ListPublishedContent 返回已发布内容；无查询参数的首页结果走渲染缓存。
func (a *API) ListPublishedContent(c *gin.Context) {
	cacheable := c.Request.URL.RawQuery == ""
	if cacheable && a.serveCached(c, contentListPath) {
		return
	}

	result, err := a.contents.ListPublished(c.Request.Context(), service.ContentFilter{
		CategoryID: parseUintQuery(c, "category_id"),
		TagID:      parseUintQuery(c, "tag_id"),
		Search:     c.Query("search"),
		Page:       parseIntQuery(c, "page"),
		PerPage:    parseIntQuery(c, "per_page"),
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	payload := contentListResponse(result)
	if !cacheable {
		c.JSON(http.StatusOK, payload)
		return
	}
	a.respondCached(c, contentListPath, payload)
}

// ShowContent 渲染单篇已发布内容。
func (a *API) ShowContent(c *gin.Context) {
	slug := c.Param("slug")
	path := contentPath(slug)
	if a.serveCached(c, path) {
		return
	}

	content, err := a.contents.GetPublished(c.Request.Context(), slug)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	rendered, err := renderMarkdown(content.Body)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	a.respondCached(c, contentPath(content.Slug), gin.H{"content": content, "html": rendered})
}

// PublicCategories 返回分类列表。
func (a *API) PublicCategories(c *gin.Context) {
	if a.serveCached(c, categoryListPath) {
		return
	}
	categories, err := a.categories.ListPublic(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	if categories == nil {
		categories = []db.Category{}
	}
	a.respondCached(c, categoryListPath, gin.H{"categories": categories})
}

// PublicTags 返回标签列表。
func (a *API) PublicTags(c *gin.Context) {
	if a.serveCached(c, tagListPath) {
		return
	}
	tags, err := a.tags.ListPublic(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	if tags == nil {
		tags = []db.Tag{}
	}
	a.respondCached(c, tagListPath, gin.H{"tags": tags})
}

// serveCached 命中时直接写出缓存内容；缓存读取失败按未命中处理。
func (a *API) serveCached(c *gin.Context, path string) bool {
	data, ok, err := a.cache.Get(c.Request.Context(), cache.NormalizePath(path))
	if err != nil {
		a.log.Warn("render cache read failed", zap.String("path", path), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	c.Header(cacheHeader, "HIT")
	c.Data(http.StatusOK, gin.MIMEJSON+"; charset=utf-8", data)
	return true
}

func (a *API) respondCached(c *gin.Context, path string, payload gin.H) {
	data, err := json.Marshal(payload)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	if err := a.cache.Set(c.Request.Context(), cache.NormalizePath(path), data); err != nil {
		a.log.Warn("render cache write failed", zap.String("path", path), zap.Error(err))
	}
	c.Header(cacheHeader, "MISS")
	c.Data(http.StatusOK, gin.MIMEJSON+"; charset=utf-8", data)
}
