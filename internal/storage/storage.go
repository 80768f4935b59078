// Package storage 保存上传的媒体文件，支持本地磁盘与 S3 兼容存储。
package storage

import (
	"context"
	"io"
)

// Blob 抽象媒体文件的写入与删除；Put 返回可公开访问的 URL。
type Blob interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}
