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

// CategoryInput 表示创建或更新分类时接受的字段。
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	ParentID    *uint
}

// CategoryService wraps category related operations.
type CategoryService struct {
	store store.Store
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(st store.Store) *CategoryService {
	return &CategoryService{store: st}
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context, caller *authz.Caller) ([]db.Category, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListPublic 供公开页面读取，无需登录。
func (s *CategoryService) ListPublic(ctx context.Context) ([]db.Category, error) {
	items, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

// Get returns a single category.
func (s *CategoryService) Get(ctx context.Context, caller *authz.Caller, id uint) (*db.Category, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	return loadCategory(ctx, s.store, id)
}

// Create 新建分类，slug 为空时根据名称生成。
func (s *CategoryService) Create(ctx context.Context, caller *authz.Caller, input CategoryInput) (*db.Category, error) {
	if !authz.Authorize(caller, authz.RoleEditor) {
		return nil, ErrUnauthorized
	}
	input, err := input.normalized()
	if err != nil {
		return nil, err
	}

	category := &db.Category{
		Name:        input.Name,
		Slug:        input.Slug,
		Description: input.Description,
		ParentID:    input.ParentID,
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := ensureCategorySlugFree(ctx, tx, category.Slug, 0); err != nil {
			return err
		}
		if category.ParentID != nil {
			if _, err := loadParentCategory(ctx, tx, *category.ParentID); err != nil {
				return err
			}
		}
		if err := tx.CreateCategory(ctx, category); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrSlugTaken
			}
			return fmt.Errorf("create category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// Update 修改分类，父分类不能是自身或其子孙；同时返回该分类下的内容 slug。
func (s *CategoryService) Update(ctx context.Context, caller *authz.Caller, id uint, input CategoryInput) (*db.Category, []string, error) {
	if !authz.Authorize(caller, authz.RoleEditor) {
		return nil, nil, ErrUnauthorized
	}
	input, err := input.normalized()
	if err != nil {
		return nil, nil, err
	}

	var (
		category *db.Category
		slugs    []string
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := loadCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if slugs, err = tx.CategoryContentSlugs(ctx, existing.ID); err != nil {
			return fmt.Errorf("list categorized content: %w", err)
		}
		if err := ensureCategorySlugFree(ctx, tx, input.Slug, existing.ID); err != nil {
			return err
		}
		if input.ParentID != nil {
			if err := checkCategoryParent(ctx, tx, existing.ID, *input.ParentID); err != nil {
				return err
			}
		}

		existing.Name = input.Name
		existing.Slug = input.Slug
		existing.Description = input.Description
		existing.ParentID = input.ParentID
		if err := tx.SaveCategory(ctx, existing); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrSlugTaken
			}
			return fmt.Errorf("save category: %w", err)
		}
		category = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return category, slugs, nil
}

// Delete 删除分类，子分类挂到被删分类的父级下；返回原先在该分类下的内容 slug。
func (s *CategoryService) Delete(ctx context.Context, caller *authz.Caller, id uint) (*db.Category, []string, error) {
	if !authz.Authorize(caller, authz.RoleEditor) {
		return nil, nil, ErrUnauthorized
	}

	var (
		deleted *db.Category
		slugs   []string
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := loadCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if slugs, err = tx.CategoryContentSlugs(ctx, existing.ID); err != nil {
			return fmt.Errorf("list categorized content: %w", err)
		}
		if err := tx.ReparentCategories(ctx, existing.ID, existing.ParentID); err != nil {
			return fmt.Errorf("reparent categories: %w", err)
		}
		if err := tx.DeleteCategory(ctx, existing.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("delete category: %w", err)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return deleted, slugs, nil
}

// checkCategoryParent 沿父链向上查找，遇到自身即构成环。
func checkCategoryParent(ctx context.Context, tx store.Store, id, parentID uint) error {
	if parentID == id {
		return ErrCategoryCycle
	}

	visited := map[uint]struct{}{id: {}}
	current := parentID
	for {
		parent, err := loadParentCategory(ctx, tx, current)
		if err != nil {
			return err
		}
		visited[parent.ID] = struct{}{}
		if parent.ParentID == nil {
			return nil
		}
		if *parent.ParentID == id {
			return ErrCategoryCycle
		}
		if _, seen := visited[*parent.ParentID]; seen {
			// 已有数据中存在环，同样拒绝写入
			return ErrCategoryCycle
		}
		current = *parent.ParentID
	}
}

func loadCategory(ctx context.Context, st store.Store, id uint) (*db.Category, error) {
	category, err := st.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// loadParentCategory 将不存在的父分类视为输入错误，而非目标不存在。
func loadParentCategory(ctx context.Context, st store.Store, id uint) (*db.Category, error) {
	parent, err := loadCategory(ctx, st, id)
	if errors.Is(err, ErrCategoryNotFound) {
		return nil, invalid(fmt.Sprintf("unknown parent category %d", id))
	}
	return parent, err
}

func ensureCategorySlugFree(ctx context.Context, tx store.Store, slug string, excludeID uint) error {
	taken, err := tx.CategorySlugTaken(ctx, slug, excludeID)
	if err != nil {
		return fmt.Errorf("check category slug: %w", err)
	}
	if taken {
		return ErrSlugTaken
	}
	return nil
}

func (in CategoryInput) normalized() (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if in.ParentID != nil && *in.ParentID == 0 {
		in.ParentID = nil
	}

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
