package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/handler"
	"github.com/firmsite/internal/logging"
	"github.com/firmsite/internal/metrics"
)

const sessionName = "firmsite_session"

// Options 描述路由层需要的运行参数。
type Options struct {
	SessionSecret    string
	SecureCookies    bool
	UploadDir        string
	UploadURLPath    string
	CORSAllowOrigins []string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	log := api.Logger()

	r := gin.New()
	r.Use(logging.Middleware(log), logging.Recovery(log), metrics.Middleware())

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/ping", handler.Ping)
	r.GET("/health", api.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		urlPath := strings.TrimSpace(opts.UploadURLPath)
		if urlPath == "" {
			urlPath = "/uploads"
		}
		r.Static(urlPath, dir)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	admin.Use(api.LoadCaller())
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		// 需要认证的后台 API
		adminAPI := admin.Group("/api")
		adminAPI.Use(handler.AuthRequired())
		{
			adminAPI.GET("/me", api.Me)

			adminAPI.GET("/contents", api.ListContents)
			adminAPI.GET("/contents/:id", api.GetContent)
			adminAPI.POST("/contents", api.CreateContent)
			adminAPI.PUT("/contents/:id", api.UpdateContent)
			adminAPI.DELETE("/contents/:id", api.DeleteContent)
			adminAPI.GET("/contents/:id/versions", api.ListContentVersions)
			adminAPI.GET("/contents/:id/versions/:version", api.GetContentVersion)
			adminAPI.POST("/contents/:id/versions/:version/restore", api.RestoreContentVersion)

			adminAPI.GET("/categories", api.GetCategories)
			adminAPI.GET("/categories/:id", api.GetCategory)
			adminAPI.POST("/categories", api.CreateCategory)
			adminAPI.PUT("/categories/:id", api.UpdateCategory)
			adminAPI.DELETE("/categories/:id", api.DeleteCategory)

			adminAPI.GET("/tags", api.GetTags)
			adminAPI.GET("/tags/:id", api.GetTag)
			adminAPI.POST("/tags", api.CreateTag)
			adminAPI.PUT("/tags/:id", api.UpdateTag)
			adminAPI.DELETE("/tags/:id", api.DeleteTag)

			adminAPI.GET("/media", api.ListMedia)
			adminAPI.GET("/media/:id", api.GetMedia)
			adminAPI.POST("/media", api.UploadMedia)
			adminAPI.PUT("/media/:id", api.UpdateMedia)
			adminAPI.DELETE("/media/:id", api.DeleteMedia)

			adminAPI.GET("/users", api.ListUsers)
			adminAPI.GET("/users/:id", api.GetUser)
			adminAPI.POST("/users", api.CreateUser)
			adminAPI.PUT("/users/:id", api.UpdateUser)
			adminAPI.DELETE("/users/:id", api.DeleteUser)

			adminAPI.POST("/seo/analyze", api.AnalyzeSEO)
		}
	}

	// 公开路由
	public := r.Group("")
	if corsHandler := newCORS(opts.CORSAllowOrigins); corsHandler != nil {
		public.Use(corsHandler)
	}
	{
		public.GET("/content", api.ListPublishedContent)
		public.GET("/content/:slug", api.ShowContent)
		public.GET("/categories", api.PublicCategories)
		public.GET("/tags", api.PublicTags)

		calculators := public.Group("/api/calculators")
		calculators.POST("/cash-flow", api.CashFlowProjection)
		calculators.POST("/rd-credit", api.RDCreditEstimate)
		calculators.POST("/rd-credit/qualify", api.RDCreditQualify)
		calculators.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	return r
}

// newCORS 未配置来源时返回 nil；"*" 表示放开全部来源且不携带凭证。
func newCORS(origins []string) gin.HandlerFunc {
	cleaned := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"X-Cache"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range cleaned {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = cleaned
	cfg.AllowCredentials = true
	return cors.New(cfg)
}
