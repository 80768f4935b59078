package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/store"
)

// TagInput 表示创建或更新标签时接受的字段。
type TagInput struct {
	Name        string
	Slug        string
	Description string
}

// TagService wraps tag related operations.
type TagService struct {
	store store.Store
}

// NewTagService creates a TagService instance.
func NewTagService(st store.Store) *TagService {
	return &TagService{store: st}
}

// List returns tags ordered by name.
func (s *TagService) List(ctx context.Context, caller *authz.Caller) ([]db.Tag, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// ListPublic 供公开页面读取，无需登录。
func (s *TagService) ListPublic(ctx context.Context) ([]db.Tag, error) {
	items, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return items, nil
}

// Get returns a single tag.
func (s *TagService) Get(ctx context.Context, caller *authz.Caller, id uint) (*db.Tag, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	return loadTag(ctx, s.store, id)
}

// Create 创建标签，slug 为空时根据名称生成。
func (s *TagService) Create(ctx context.Context, caller *authz.Caller, input TagInput) (*db.Tag, error) {
	if !authz.Authorize(caller, authz.RoleEditor) {
		return nil, ErrUnauthorized
	}
	input, err := input.normalized()
	if err != nil {
		return nil, err
	}

	tag := &db.Tag{Name: input.Name, Slug: input.Slug, Description: input.Description}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := ensureTagSlugFree(ctx, tx, tag.Slug, 0); err != nil {
			return err
		}
		if err := tx.CreateTag(ctx, tag); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrSlugTaken
			}
			return fmt.Errorf("create tag: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Update 修改标签名称、slug 与描述，同时返回带有该标签的内容 slug。
func (s *TagService) Update(ctx context.Context, caller *authz.Caller, id uint, input TagInput) (*db.Tag, []string, error) {
	if !authz.Authorize(caller, authz.RoleEditor) {
		return nil, nil, ErrUnauthorized
	}
	input, err := input.normalized()
	if err != nil {
		return nil, nil, err
	}

	var (
		tag   *db.Tag
		slugs []string
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := loadTag(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ensureTagSlugFree(ctx, tx, input.Slug, existing.ID); err != nil {
			return err
		}
		if slugs, err = tx.TagContentSlugs(ctx, existing.ID); err != nil {
			return fmt.Errorf("list tagged content: %w", err)
		}

		existing.Name = input.Name
		existing.Slug = input.Slug
		existing.Description = input.Description
		if err := tx.SaveTag(ctx, existing); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrSlugTaken
			}
			return fmt.Errorf("save tag: %w", err)
		}
		tag = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return tag, slugs, nil
}

// Delete 删除标签，内容上的关联一并移除；返回原先带有该标签的内容 slug。
func (s *TagService) Delete(ctx context.Context, caller *authz.Caller, id uint) (*db.Tag, []string, error) {
	if !authz.Authorize(caller, authz.RoleEditor) {
		return nil, nil, ErrUnauthorized
	}

	var (
		deleted *db.Tag
		slugs   []string
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := loadTag(ctx, tx, id)
		if err != nil {
			return err
		}
		if slugs, err = tx.TagContentSlugs(ctx, existing.ID); err != nil {
			return fmt.Errorf("list tagged content: %w", err)
		}
		if err := tx.DeleteTag(ctx, existing.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTagNotFound
			}
			return fmt.Errorf("delete tag: %w", err)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return deleted, slugs, nil
}

func loadTag(ctx context.Context, st store.Store, id uint) (*db.Tag, error) {
	tag, err := st.GetTag(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return tag, nil
}

func ensureTagSlugFree(ctx context.Context, tx store.Store, slug string, excludeID uint) error {
	taken, err := tx.TagSlugTaken(ctx, slug, excludeID)
	if err != nil {
		return fmt.Errorf("check tag slug: %w", err)
	}
	if taken {
		return ErrSlugTaken
	}
	return nil
}

func (in TagInput) normalized() (TagInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))

	if in.Name == "" {
		return in, &ValidationError{Missing: []string{"name"}}
	}
	if in.Slug == "" {
		in.Slug = slugify(in.Name)
	}
	if !validSlug(in.Slug) {
		return in, invalid("slug may only contain lowercase letters, digits and hyphens")
	}
	return in, nil
}
