package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/firmsite/internal/metrics"
	"github.com/firmsite/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondServiceError 将服务层错误映射为 HTTP 状态码，基础设施错误只记录日志并返回通用提示。
func (a *API) respondServiceError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		status := http.StatusForbidden
		if CurrentCaller(c) == nil {
			status = http.StatusUnauthorized
		}
		respondError(c, status, "Unauthorized")
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrSlugTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrCategoryCycle),
		errors.Is(err, service.ErrSelfModification),
		errors.Is(err, service.ErrUserOwnsContent):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	default:
		_ = c.Error(err)
		a.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// revalidate 逐个刷新受影响的路径；失败只记录，不影响已完成的写入。
func (a *API) revalidate(c *gin.Context, paths ...string) {
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}

		err := a.cache.Revalidate(c.Request.Context(), path)
		metrics.RecordRevalidation(err)
		if err != nil {
			a.log.Warn("revalidate failed", zap.String("path", path), zap.Error(err))
		}
	}
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseIntParam(c *gin.Context, key string) (int, error) {
	raw := c.Param(key)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseUintQuery(c *gin.Context, key string) uint {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Query(key)), 10, 32)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func parseIntQuery(c *gin.Context, key string) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return parsed
}

func parseUintQuerySlice(values []string) []uint {
	ids := make([]uint, 0, len(values))
	for _, raw := range splitList(values) {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint(parsed))
	}
	return ids
}

// splitList 同时支持重复字段与逗号分隔两种写法。
func splitList(values []string) []string {
	items := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}

func isJSONRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), gin.MIMEJSON)
}
