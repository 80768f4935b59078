package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/firmsite/internal/cache"
	"github.com/firmsite/internal/service"
	"github.com/firmsite/internal/storage"
	"github.com/firmsite/internal/store"
)

// HealthCheck 返回依赖是否可用，/health 逐个调用。
type HealthCheck func(ctx context.Context) error

// Options 汇总构建 API 所需的依赖。
type Options struct {
	Store        store.Store
	Blob         storage.Blob
	Cache        cache.RenderCache
	Logger       *zap.Logger
	HealthChecks map[string]HealthCheck
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	auth       *service.AuthService
	contents   *service.ContentService
	categories *service.CategoryService
	tags       *service.TagService
	media      *service.MediaService
	users      *service.UserService
	cache      cache.RenderCache
	log        *zap.Logger
	checks     map[string]HealthCheck
}

// NewAPI constructs a handler set with shared services.
func NewAPI(opts Options) *API {
	renderCache := opts.Cache
	if renderCache == nil {
		renderCache = cache.Nop{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &API{
		auth:       service.NewAuthService(opts.Store),
		contents:   service.NewContentService(opts.Store),
		categories: service.NewCategoryService(opts.Store),
		tags:       service.NewTagService(opts.Store),
		media:      service.NewMediaService(opts.Store, opts.Blob),
		users:      service.NewUserService(opts.Store),
		cache:      renderCache,
		log:        log,
		checks:     opts.HealthChecks,
	}
}

// Logger exposes the request logger for router middleware.
func (a *API) Logger() *zap.Logger {
	return a.log
}
