package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/metrics"
	"github.com/firmsite/internal/service"
)

const contentListPath = "/content"

func contentPath(slug string) string {
	if slug == "" {
		return ""
	}
	return contentListPath + "/" + slug
}

// linkedContentPaths 返回引用了某个分类或标签的内容需要刷新的路径；列表页也会内嵌分类与标签。
func linkedContentPaths(slugs []string) []string {
	if len(slugs) == 0 {
		return nil
	}
	paths := make([]string, 0, len(slugs)+1)
	paths = append(paths, contentListPath)
	for _, slug := range slugs {
		paths = append(paths, contentPath(slug))
	}
	return paths
}

type contentPayload struct {
	Title           string   `json:"title" form:"title"`
	Slug            string   `json:"slug" form:"slug"`
	Description     string   `json:"description" form:"description"`
	Body            string   `json:"body" form:"body"`
	Status          string   `json:"status" form:"status"`
	CategoryIDs     []uint   `json:"category_ids" form:"-"`
	TagIDs          []uint   `json:"tag_ids" form:"-"`
	MetaTitle       string   `json:"meta_title" form:"meta_title"`
	MetaDescription string   `json:"meta_description" form:"meta_description"`
	Keywords        []string `json:"keywords" form:"-"`
	ScheduledAt     string   `json:"scheduled_at" form:"scheduled_at"`
}

// bindContentInput 解析扁平表单或 JSON；列表字段在表单中可重复出现或用逗号分隔。
func bindContentInput(c *gin.Context) (service.ContentInput, bool) {
	var payload contentPayload
	if err := c.ShouldBind(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "invalid content payload")
		return service.ContentInput{}, false
	}
	if !isJSONRequest(c) {
		payload.CategoryIDs = parseUintQuerySlice(c.PostFormArray("category_ids"))
		payload.TagIDs = parseUintQuerySlice(c.PostFormArray("tag_ids"))
		payload.Keywords = splitList(c.PostFormArray("keywords"))
	}

	input := service.ContentInput{
		Title:           payload.Title,
		Slug:            payload.Slug,
		Description:     payload.Description,
		Body:            payload.Body,
		Status:          payload.Status,
		CategoryIDs:     payload.CategoryIDs,
		TagIDs:          payload.TagIDs,
		MetaTitle:       payload.MetaTitle,
		MetaDescription: payload.MetaDescription,
		Keywords:        payload.Keywords,
	}
	if raw := strings.TrimSpace(payload.ScheduledAt); raw != "" {
		scheduledAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "scheduled_at must be an RFC3339 timestamp")
			return service.ContentInput{}, false
		}
		input.ScheduledAt = &scheduledAt
	}
	return input, true
}

// ListContents 返回后台内容列表，author 只能看到自己的内容。
func (a *API) ListContents(c *gin.Context) {
	result, err := a.contents.List(c.Request.Context(), CurrentCaller(c), service.ContentFilter{
		Status:     c.Query("status"),
		AuthorID:   parseUintQuery(c, "author_id"),
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
	c.JSON(http.StatusOK, contentListResponse(result))
}

// GetContent 返回单条内容。
func (a *API) GetContent(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的内容ID")
		return
	}
	content, err := a.contents.Get(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

// CreateContent 创建内容并写入第 1 版。
func (a *API) CreateContent(c *gin.Context) {
	input, ok := bindContentInput(c)
	if !ok {
		return
	}
	content, err := a.contents.Create(c.Request.Context(), CurrentCaller(c), input)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("content", "create")
	a.revalidate(c, contentListPath, contentPath(content.Slug))
	c.JSON(http.StatusCreated, gin.H{"content": content})
}

// UpdateContent 更新内容，正文变化时追加新版本。
func (a *API) UpdateContent(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的内容ID")
		return
	}
	input, ok := bindContentInput(c)
	if !ok {
		return
	}
	result, err := a.contents.Update(c.Request.Context(), CurrentCaller(c), id, input)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	a.afterContentUpdate(c, result, "update")
}

// DeleteContent 删除内容及其全部版本，需要 editor 以上。
func (a *API) DeleteContent(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的内容ID")
		return
	}
	content, err := a.contents.Delete(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("content", "delete")
	a.revalidate(c, contentListPath, contentPath(content.Slug))
	c.JSON(http.StatusOK, gin.H{"content": content})
}

// ListContentVersions 返回编辑历史。
func (a *API) ListContentVersions(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的内容ID")
		return
	}
	versions, err := a.contents.ListVersions(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// GetContentVersion 返回指定版本。
func (a *API) GetContentVersion(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的内容ID")
		return
	}
	number, err := parseIntParam(c, "version")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的版本号")
		return
	}
	version, err := a.contents.GetVersion(c.Request.Context(), CurrentCaller(c), id, number)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": version})
}

// RestoreContentVersion 以历史正文追加一个新版本。
func (a *API) RestoreContentVersion(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的内容ID")
		return
	}
	number, err := parseIntParam(c, "version")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的版本号")
		return
	}
	result, err := a.contents.RestoreVersion(c.Request.Context(), CurrentCaller(c), id, number)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	a.afterContentUpdate(c, result, "restore")
}

func (a *API) afterContentUpdate(c *gin.Context, result *service.UpdateResult, action string) {
	metrics.RecordMutation("content", action)

	paths := []string{contentListPath, contentPath(result.Content.Slug)}
	if result.PreviousSlug != result.Content.Slug {
		paths = append(paths, contentPath(result.PreviousSlug))
	}
	a.revalidate(c, paths...)

	c.JSON(http.StatusOK, gin.H{"content": result.Content, "new_version": result.NewVersion})
}

func contentListResponse(result *service.ContentListResult) gin.H {
	contents := result.Contents
	if contents == nil {
		contents = []db.Content{}
	}
	return gin.H{
		"contents":    contents,
		"total":       result.Total,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	}
}
