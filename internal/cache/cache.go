// Package cache 缓存公开页面的渲染结果，并在内容变更后使其失效。
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// PrefixRender 是渲染结果的键前缀。
	PrefixRender = "render:"
	// ChannelRevalidate 用于通知其他实例某个路径已失效。
	ChannelRevalidate = "firmsite:revalidate"
	// TTLRender 是渲染结果的默认有效期。
	TTLRender = 10 * time.Minute
)

// Revalidator 在内容变更后使指定路径的缓存失效。
type Revalidator interface {
	Revalidate(ctx context.Context, path string) error
}

// RenderCache 保存按路径索引的渲染结果。
type RenderCache interface {
	Revalidator
	Get(ctx context.Context, path string) ([]byte, bool, error)
	Set(ctx context.Context, path string, data []byte) error
}

// Key 返回路径对应的缓存键。
func Key(path string) string {
	return PrefixRender + NormalizePath(path)
}

// NormalizePath 去掉末尾斜杠并补齐开头斜杠。
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return "/"
	}
	return "/" + strings.Trim(path, "/")
}

// Redis 是基于 go-redis 的 RenderCache。
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ RenderCache = (*Redis)(nil)

// NewRedis creates a Redis render cache; ttl <= 0 uses TTLRender.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = TTLRender
	}
	return &Redis{client: client, ttl: ttl}
}

// Ping Redis 连接测试
func (c *Redis) Ping(ctx context.Context) error {
	if c.client == nil {
		return errors.New("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Get(ctx context.Context, path string) ([]byte, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, Key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *Redis) Set(ctx context.Context, path string, data []byte) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, Key(path), data, c.ttl).Err()
}

// Revalidate 删除缓存并广播失效的路径。
func (c *Redis) Revalidate(ctx context.Context, path string) error {
	if c.client == nil {
		return nil
	}
	path = NormalizePath(path)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, Key(path))
	pipe.Publish(ctx, ChannelRevalidate, path)
	_, err := pipe.Exec(ctx)
	return err
}

// Nop 不缓存任何内容，未配置 Redis 时使用。
type Nop struct{}

var _ RenderCache = Nop{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte) error { return nil }

func (Nop) Revalidate(context.Context, string) error { return nil }
