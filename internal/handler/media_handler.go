package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/metrics"
	"github.com/firmsite/internal/service"
)

const mediaListPath = "/media"

type mediaUpdateRequest struct {
	Alt     string `json:"alt" form:"alt"`
	Caption string `json:"caption" form:"caption"`
}

// ListMedia 返回媒体库，author 只能看到自己上传的文件。
func (a *API) ListMedia(c *gin.Context) {
	result, err := a.media.List(c.Request.Context(), CurrentCaller(c), service.MediaFilter{
		AuthorID: parseUintQuery(c, "author_id"),
		MimeType: c.Query("mime_type"),
		Page:     parseIntQuery(c, "page"),
		PerPage:  parseIntQuery(c, "per_page"),
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []db.Media{}
	}
	c.JSON(http.StatusOK, gin.H{
		"media":       items,
		"total":       result.Total,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	})
}

// GetMedia 返回单个媒体记录。
func (a *API) GetMedia(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的媒体ID")
		return
	}
	media, err := a.media.Get(c.Request.Context(), CurrentCaller(c), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"media": media})
}

// UploadMedia 处理图片上传请求，文件字段为 file（兼容 image）。
func (a *API) UploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		file, err = c.FormFile("image")
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的文件")
		return
	}
	if file.Size > service.MaxUploadSize {
		respondError(c, http.StatusBadRequest, "文件过大")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取上传文件失败")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxUploadSize+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取上传文件失败")
		return
	}

	media, err := a.media.Upload(c.Request.Context(), CurrentCaller(c), service.UploadInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
		Alt:         c.PostForm("alt"),
		Caption:     c.PostForm("caption"),
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("media", "create")
	a.revalidate(c, mediaListPath)
	c.JSON(http.StatusCreated, gin.H{"media": media})
}

// UpdateMedia 修改 alt 与 caption。
func (a *API) UpdateMedia(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的媒体ID")
		return
	}
	var req mediaUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid media payload")
		return
	}
	media, err := a.media.Update(c.Request.Context(), CurrentCaller(c), id, service.MediaUpdateInput{
		Alt:     req.Alt,
		Caption: req.Caption,
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("media", "update")
	a.revalidate(c, mediaListPath)
	c.JSON(http.StatusOK, gin.H{"media": media})
}

// DeleteMedia 删除记录和文件，文件清理失败只记录日志。
func (a *API) DeleteMedia(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的媒体ID")
		return
	}
	media, err := a.media.Delete(c.Request.Context(), CurrentCaller(c), id)
	var blobErr *service.BlobDeleteError
	if errors.As(err, &blobErr) && media != nil {
		a.log.Warn("media blob not removed", zap.Uint("media_id", media.ID), zap.String("key", blobErr.Key), zap.Error(blobErr.Err))
		err = nil
	}
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	metrics.RecordMutation("media", "delete")
	a.revalidate(c, mediaListPath)
	c.JSON(http.StatusOK, gin.H{"media": media})
}
