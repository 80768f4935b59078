package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/metrics"
	"github.com/firmsite/internal/service"
)

const categoryListPath = "/categories"

type categoryRequest struct {
	Name        string `json:"name" form:"name"`
	Slug        string `json:"slug" form:"slug"`
	Description string `json:"description" form:"description"`
	ParentID    *uint  `json:"parent_id" form:"parent_id"`
}

func bindCategoryInput(c *gin.Context) (service.CategoryInput, bool) {
	var req categoryRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid category payload")
		return service.CategoryInput{}, false
	}
	return service.CategoryInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ParentID:    req.ParentID,
	}, true
}

// GetCategories 获取分类列表
func (a *API) GetCategories(c *gin.Context) {
	categories, err := a.categories.List(c.Request.Context(), CurrentCaller(c))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetCategory 获取单个分类
func (a *API) GetCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}
	category, err := a.categories.Get(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// CreateCategory 创建分类
func (a *API) CreateCategory(c *gin.Context) {
	input, ok := bindCategoryInput(c)
	if !ok {
		return
	}
	category, err := a.categories.Create(c.Request.Context(), CurrentCaller(c), input)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("category", "create")
	a.revalidate(c, categoryListPath)
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// UpdateCategory 更新分类
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}
	input, ok := bindCategoryInput(c)
	if !ok {
		return
	}
	category, slugs, err := a.categories.Update(c.Request.Context(), CurrentCaller(c), id, input)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("category", "update")
	a.revalidate(c, append([]string{categoryListPath}, linkedContentPaths(slugs)...)...)
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory 删除分类，子分类上移一级
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}
	category, slugs, err := a.categories.Delete(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("category", "delete")
	a.revalidate(c, append([]string{categoryListPath, contentListPath}, linkedContentPaths(slugs)...)...)
	c.JSON(http.StatusOK, gin.H{"category": category})
}
