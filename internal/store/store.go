// Package store 定义内容持久化边界，并提供基于 gorm 的实现。
package store

import (
	"context"
	"errors"

	"github.com/firmsite/internal/db"
)

var (
	// ErrNotFound 表示目标记录不存在。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 表示违反唯一约束（slug、email、文件名）。
	ErrDuplicate = errors.New("duplicate key")
	// ErrVersionConflict 表示同一内容的版本号已被并发写入占用。
	ErrVersionConflict = errors.New("content version number already allocated")
)

// ContentQuery 描述内容列表的过滤条件，零值字段不参与过滤。
type ContentQuery struct {
	Status     string
	AuthorID   uint
	CategoryID uint
	TagID      uint
	Search     string
	Limit      int
	Offset     int
}

// MediaQuery 描述媒体列表的过滤条件。
type MediaQuery struct {
	AuthorID uint
	MimeType string
	Limit    int
	Offset   int
}

// UserStore 管理后台用户。
type UserStore interface {
	GetUser(ctx context.Context, id uint) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	ListUsers(ctx context.Context) ([]db.User, error)
	CreateUser(ctx context.Context, user *db.User) error
	SaveUser(ctx context.Context, user *db.User) error
	DeleteUser(ctx context.Context, id uint) error
	CountOwnedBy(ctx context.Context, userID uint) (int64, error)
}

// ContentStore 管理内容条目及其分类、标签关联。
type ContentStore interface {
	GetContent(ctx context.Context, id uint) (*db.Content, error)
	GetContentBySlug(ctx context.Context, slug string) (*db.Content, error)
	ListContent(ctx context.Context, query ContentQuery) ([]db.Content, int64, error)
	ContentSlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error)
	CreateContent(ctx context.Context, content *db.Content) error
	SaveContent(ctx context.Context, content *db.Content) error
	DeleteContent(ctx context.Context, id uint) error
}

// VersionStore 管理只追加的内容版本。
type VersionStore interface {
	LatestVersionNumber(ctx context.Context, contentID uint) (int, error)
	AppendVersion(ctx context.Context, version *db.ContentVersion) error
	ListVersions(ctx context.Context, contentID uint) ([]db.ContentVersion, error)
	GetVersion(ctx context.Context, contentID uint, number int) (*db.ContentVersion, error)
	DeleteVersions(ctx context.Context, contentID uint) error
}

// TaxonomyStore 管理分类与标签。
type TaxonomyStore interface {
	GetCategory(ctx context.Context, id uint) (*db.Category, error)
	ListCategories(ctx context.Context) ([]db.Category, error)
	FindCategories(ctx context.Context, ids []uint) ([]db.Category, error)
	CategorySlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error)
	CreateCategory(ctx context.Context, category *db.Category) error
	SaveCategory(ctx context.Context, category *db.Category) error
	ReparentCategories(ctx context.Context, fromParentID uint, toParentID *uint) error
	DeleteCategory(ctx context.Context, id uint) error
	CategoryContentSlugs(ctx context.Context, categoryID uint) ([]string, error)

	GetTag(ctx context.Context, id uint) (*db.Tag, error)
	ListTags(ctx context.Context) ([]db.Tag, error)
	FindTags(ctx context.Context, ids []uint) ([]db.Tag, error)
	TagSlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error)
	CreateTag(ctx context.Context, tag *db.Tag) error
	SaveTag(ctx context.Context, tag *db.Tag) error
	DeleteTag(ctx context.Context, id uint) error
	TagContentSlugs(ctx context.Context, tagID uint) ([]string, error)
}

// MediaStore 管理媒体记录（不含文件本身）。
type MediaStore interface {
	GetMedia(ctx context.Context, id uint) (*db.Media, error)
	ListMedia(ctx context.Context, query MediaQuery) ([]db.Media, int64, error)
	CreateMedia(ctx context.Context, media *db.Media) error
	SaveMedia(ctx context.Context, media *db.Media) error
	DeleteMedia(ctx context.Context, id uint) error
}

// Store 汇总所有实体的持久化原语。
// Transaction 内的回调必须只使用传入的 tx，否则单连接的 sqlite 会阻塞。
type Store interface {
	UserStore
	ContentStore
	VersionStore
	TaxonomyStore
	MediaStore

	Transaction(ctx context.Context, fn func(tx Store) error) error
}
