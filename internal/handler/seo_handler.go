package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/seo"
)

type seoRequest struct {
	Body            string   `json:"body" form:"body"`
	Title           string   `json:"title" form:"title"`
	MetaDescription string   `json:"meta_description" form:"meta_description"`
	Keywords        []string `json:"keywords" form:"-"`
}

// AnalyzeSEO 对草稿做 SEO 评分，不读写存储。
func (a *API) AnalyzeSEO(c *gin.Context) {
	if !authz.Authorize(CurrentCaller(c), authz.RoleAuthor) {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req seoRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid seo payload")
		return
	}
	if !isJSONRequest(c) {
		req.Keywords = splitList(c.PostFormArray("keywords"))
	}

	score := seo.Analyze(seo.Input{
		Body:            req.Body,
		Title:           req.Title,
		MetaDescription: req.MetaDescription,
		Keywords:        req.Keywords,
	})
	c.JSON(http.StatusOK, gin.H{"score": score})
}
