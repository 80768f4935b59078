// Command server starts the firmsite HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/firmsite/internal/cache"
	"github.com/firmsite/internal/config"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/handler"
	"github.com/firmsite/internal/logging"
	"github.com/firmsite/internal/router"
	"github.com/firmsite/internal/storage"
	"github.com/firmsite/internal/store"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		// 日志器尚未初始化
		_, _ = os.Stderr.WriteString("load .env: " + err.Error() + "\n")
		os.Exit(1)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	gdb, err := db.Open(db.Options{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseSource()})
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.EnsureUser(gdb, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("failed to ensure admin user", zap.Error(err))
	}

	blob, uploadDir, err := openBlob(cfg)
	if err != nil {
		logger.Fatal("failed to initialize media storage", zap.Error(err))
	}

	checks := map[string]handler.HealthCheck{"database": pingDatabase(gdb)}

	var renderCache cache.RenderCache = cache.Nop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = client.Close() }()

		redisCache := cache.NewRedis(client, cache.TTLRender)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()

		renderCache = redisCache
		checks["redis"] = redisCache.Ping
	}

	api := handler.NewAPI(handler.Options{
		Store:        store.NewGormStore(gdb),
		Blob:         blob,
		Cache:        renderCache,
		Logger:       logger,
		HealthChecks: checks,
	})

	r := router.SetupRouter(api, router.Options{
		SessionSecret:    cfg.SessionSecret,
		SecureCookies:    strings.HasPrefix(cfg.SiteBaseURL, "https://"),
		UploadDir:        uploadDir,
		UploadURLPath:    cfg.UploadURLPath,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("database", cfg.DatabaseDriver),
			zap.String("storage", cfg.StorageDriver),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// openBlob 返回媒体存储；本地存储时同时返回需要静态托管的目录。
func openBlob(cfg config.AppConfig) (storage.Blob, string, error) {
	if cfg.StorageDriver == "s3" {
		blob, err := storage.NewS3(storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			PublicURL:       cfg.S3.PublicURL,
			BasePath:        cfg.S3.BasePath,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
		})
		return blob, "", err
	}

	local, err := storage.NewLocal(cfg.UploadDir, cfg.UploadURLPath)
	if err != nil {
		return nil, "", err
	}
	return local, local.Dir(), nil
}

func pingDatabase(gdb *gorm.DB) handler.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
