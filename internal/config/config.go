package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// S3Config 描述 S3 兼容存储的连接参数。
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	BasePath        string
	ForcePathStyle  bool
}

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr       string
	Port             string
	DatabaseDriver   string
	DatabasePath     string
	DatabaseDSN      string
	SessionSecret    string
	GinMode          string
	LogMode          string
	UploadDir        string
	UploadURLPath    string
	StorageDriver    string
	S3               S3Config
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CORSAllowOrigins []string
	AdminEmail       string
	AdminPassword    string
	SiteBaseURL      string
}

// LoadDotEnv 依次加载存在的 .env 文件，已设置的环境变量不会被覆盖。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := env("PORT", "8080")

	cfg := AppConfig{
		ListenAddr:     env("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:           port,
		DatabaseDriver: strings.ToLower(env("DATABASE_DRIVER", "sqlite")),
		DatabasePath:   env("DATABASE_PATH", "firmsite.db"),
		DatabaseDSN:    env("DATABASE_DSN", ""),
		SessionSecret:  env("SESSION_SECRET", "firmsite-dev-secret"),
		GinMode:        env("GIN_MODE", "release"),
		LogMode:        env("LOG_MODE", "production"),
		UploadDir:      env("UPLOAD_DIR", "data/uploads"),
		UploadURLPath:  env("UPLOAD_URL_PATH", "/uploads"),
		StorageDriver:  strings.ToLower(env("STORAGE_DRIVER", "local")),
		S3: S3Config{
			Endpoint:        env("S3_ENDPOINT", ""),
			Region:          env("S3_REGION", "us-east-1"),
			Bucket:          env("S3_BUCKET", ""),
			AccessKeyID:     env("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: env("S3_SECRET_ACCESS_KEY", ""),
			PublicURL:       env("S3_PUBLIC_URL", ""),
			BasePath:        env("S3_BASE_PATH", "media"),
			ForcePathStyle:  envBool("S3_FORCE_PATH_STYLE", false),
		},
		RedisAddr:        env("REDIS_ADDR", ""),
		RedisPassword:    env("REDIS_PASSWORD", ""),
		RedisDB:          envInt("REDIS_DB", 0),
		CORSAllowOrigins: splitList(env("CORS_ALLOW_ORIGINS", "")),
		AdminEmail:       env("ADMIN_EMAIL", ""),
		AdminPassword:    env("ADMIN_PASSWORD", ""),
		SiteBaseURL:      env("SITE_BASE_URL", "http://localhost:"+port),
	}
	return cfg
}

// DatabaseSource 返回当前驱动使用的连接串。
func (c AppConfig) DatabaseSource() string {
	if c.DatabaseDriver == "sqlite" && c.DatabaseDSN == "" {
		return c.DatabasePath
	}
	return c.DatabaseDSN
}

// Validate 检查相互依赖的配置项。
func (c AppConfig) Validate() error {
	var problems []string
	switch c.DatabaseDriver {
	case "sqlite":
	case "mysql":
		if c.DatabaseDSN == "" {
			problems = append(problems, "DATABASE_DSN is required for mysql")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.StorageDriver {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			problems = append(problems, "S3_BUCKET is required for s3 storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported STORAGE_DRIVER %q", c.StorageDriver))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

func env(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value, err := strconv.Atoi(env(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(env(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
