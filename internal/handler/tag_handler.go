package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/metrics"
	"github.com/firmsite/internal/service"
)

const tagListPath = "/tags"

type tagRequest struct {
	Name        string `json:"name" form:"name"`
	Slug        string `json:"slug" form:"slug"`
	Description string `json:"description" form:"description"`
}

func bindTagInput(c *gin.Context) (service.TagInput, bool) {
	var req tagRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid tag payload")
		return service.TagInput{}, false
	}
	return service.TagInput{Name: req.Name, Slug: req.Slug, Description: req.Description}, true
}

// GetTags 获取标签列表
func (a *API) GetTags(c *gin.Context) {
	tags, err := a.tags.List(c.Request.Context(), CurrentCaller(c))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// GetTag 获取单个标签
func (a *API) GetTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的标签ID")
		return
	}
	tag, err := a.tags.Get(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag})
}

// CreateTag 创建新标签
func (a *API) CreateTag(c *gin.Context) {
	input, ok := bindTagInput(c)
	if !ok {
		return
	}
	tag, err := a.tags.Create(c.Request.Context(), CurrentCaller(c), input)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("tag", "create")
	a.revalidate(c, tagListPath)
	c.JSON(http.StatusCreated, gin.H{"tag": tag})
}

// UpdateTag 更新标签
func (a *API) UpdateTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的标签ID")
		return
	}
	input, ok := bindTagInput(c)
	if !ok {
		return
	}
	tag, slugs, err := a.tags.Update(c.Request.Context(), CurrentCaller(c), id, input)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("tag", "update")
	a.revalidate(c, append([]string{tagListPath}, linkedContentPaths(slugs)...)...)
	c.JSON(http.StatusOK, gin.H{"tag": tag})
}

// DeleteTag 删除标签，内容上的关联一并解除
func (a *API) DeleteTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的标签ID")
		return
	}
	tag, slugs, err := a.tags.Delete(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("tag", "delete")
	a.revalidate(c, append([]string{tagListPath, contentListPath}, linkedContentPaths(slugs)...)...)
	c.JSON(http.StatusOK, gin.H{"tag": tag})
}
