package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// GormStore 是基于 gorm 的 Store 实现。
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a GormStore instance.
func NewGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb}
}

// DB exposes the underlying gorm instance.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误时整体回滚。
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// isDuplicateKey 兼容未开启 TranslateError 的连接，额外匹配驱动原始报错。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate entry")
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func slugTaken(conn *gorm.DB, model interface{}, slug string, excludeID uint) (bool, error) {
	var count int64
	query := conn.Model(model).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
