package store

import (
	"context"

	"github.com/firmsite/internal/db"
)

// GetCategory fetches a category by id.
func (s *GormStore) GetCategory(ctx context.Context, id uint) (*db.Category, error) {
	var category db.Category
	if err := s.conn(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// ListCategories returns categories ordered by name.
func (s *GormStore) ListCategories(ctx context.Context) ([]db.Category, error) {
	var categories []db.Category
	if err := s.conn(ctx).Order("name asc").Order("id asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindCategories loads the categories with the given ids.
func (s *GormStore) FindCategories(ctx context.Context, ids []uint) ([]db.Category, error) {
	var categories []db.Category
	if len(ids) == 0 {
		return categories, nil
	}
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CategorySlugTaken reports whether another category already uses slug.
func (s *GormStore) CategorySlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return slugTaken(s.conn(ctx), &db.Category{}, slug, excludeID)
}

// CreateCategory inserts a category.
func (s *GormStore) CreateCategory(ctx context.Context, category *db.Category) error {
	return translate(s.conn(ctx).Create(category).Error)
}

// SaveCategory persists every field of the category.
func (s *GormStore) SaveCategory(ctx context.Context, category *db.Category) error {
	return translate(s.conn(ctx).Save(category).Error)
}

// ReparentCategories moves the children of fromParentID under toParentID (nil makes them roots).
func (s *GormStore) ReparentCategories(ctx context.Context, fromParentID uint, toParentID *uint) error {
	return s.conn(ctx).Model(&db.Category{}).
		Where("parent_id = ?", fromParentID).
		Update("parent_id", toParentID).Error
}

// DeleteCategory removes a category and its content links.
func (s *GormStore) DeleteCategory(ctx context.Context, id uint) error {
	conn := s.conn(ctx)
	if err := conn.Exec("DELETE FROM content_categories WHERE category_id = ?", id).Error; err != nil {
		return err
	}
	result := conn.Delete(&db.Category{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryContentSlugs 返回挂在该分类下的内容 slug。
func (s *GormStore) CategoryContentSlugs(ctx context.Context, categoryID uint) ([]string, error) {
	return s.linkedContentSlugs(ctx, "content_categories", "category_id", categoryID)
}

// GetTag fetches a tag by id.
func (s *GormStore) GetTag(ctx context.Context, id uint) (*db.Tag, error) {
	var tag db.Tag
	if err := s.conn(ctx).First(&tag, id).Error; err != nil {
		return nil, translate(err)
	}
	return &tag, nil
}

// ListTags returns tags ordered by name.
func (s *GormStore) ListTags(ctx context.Context) ([]db.Tag, error) {
	var tags []db.Tag
	if err := s.conn(ctx).Order("name asc").Order("id asc").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// FindTags loads the tags with the given ids.
func (s *GormStore) FindTags(ctx context.Context, ids []uint) ([]db.Tag, error) {
	var tags []db.Tag
	if len(ids) == 0 {
		return tags, nil
	}
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// TagSlugTaken reports whether another tag already uses slug.
func (s *GormStore) TagSlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return slugTaken(s.conn(ctx), &db.Tag{}, slug, excludeID)
}

// CreateTag inserts a tag.
func (s *GormStore) CreateTag(ctx context.Context, tag *db.Tag) error {
	return translate(s.conn(ctx).Create(tag).Error)
}

// SaveTag persists every field of the tag.
func (s *GormStore) SaveTag(ctx context.Context, tag *db.Tag) error {
	return translate(s.conn(ctx).Save(tag).Error)
}

// DeleteTag removes a tag and its content links.
func (s *GormStore) DeleteTag(ctx context.Context, id uint) error {
	conn := s.conn(ctx)
	if err := conn.Exec("DELETE FROM content_tags WHERE tag_id = ?", id).Error; err != nil {
		return err
	}
	result := conn.Delete(&db.Tag{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TagContentSlugs 返回带有该标签的内容 slug。
func (s *GormStore) TagContentSlugs(ctx context.Context, tagID uint) ([]string, error) {
	return s.linkedContentSlugs(ctx, "content_tags", "tag_id", tagID)
}

func (s *GormStore) linkedContentSlugs(ctx context.Context, joinTable, column string, id uint) ([]string, error) {
	var slugs []string
	err := s.conn(ctx).Model(&db.Content{}).
		Where("contents.id IN (?)", s.db.Table(joinTable).Select("content_id").Where(column+" = ?", id)).
		Order("contents.slug asc").
		Pluck("contents.slug", &slugs).Error
	if err != nil {
		return nil, err
	}
	return slugs, nil
}
