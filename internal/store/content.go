package store

import (
	"context"
	"errors"
	"strings"

	"github.com/firmsite/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetContent fetches a content entry with categories and tags preloaded.
func (s *GormStore) GetContent(ctx context.Context, id uint) (*db.Content, error) {
	var content db.Content
	if err := s.conn(ctx).Preload("Categories").Preload("Tags").First(&content, id).Error; err != nil {
		return nil, translate(err)
	}
	content.PopulateDerivedFields()
	return &content, nil
}

// GetContentBySlug fetches a content entry by its unique slug.
func (s *GormStore) GetContentBySlug(ctx context.Context, slug string) (*db.Content, error) {
	var content db.Content
	if err := s.conn(ctx).Preload("Categories").Preload("Tags").
		Where("slug = ?", slug).
		First(&content).Error; err != nil {
		return nil, translate(err)
	}
	content.PopulateDerivedFields()
	return &content, nil
}

// ListContent returns content matching the query plus the unpaginated total.
func (s *GormStore) ListContent(ctx context.Context, query ContentQuery) ([]db.Content, int64, error) {
	var total int64
	if err := s.applyContentFilters(s.conn(ctx).Model(&db.Content{}), query).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	dataQuery := s.applyContentFilters(s.conn(ctx).Model(&db.Content{}), query).
		Preload("Categories").
		Preload("Tags").
		Order("contents.updated_at desc").
		Order("contents.id desc").
		Limit(clampLimit(query.Limit))
	if query.Offset > 0 {
		dataQuery = dataQuery.Offset(query.Offset)
	}

	var contents []db.Content
	if err := dataQuery.Find(&contents).Error; err != nil {
		return nil, 0, err
	}
	for i := range contents {
		contents[i].PopulateDerivedFields()
	}
	return contents, total, nil
}

// ContentSlugTaken reports whether another content entry already uses slug.
func (s *GormStore) ContentSlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return slugTaken(s.conn(ctx), &db.Content{}, slug, excludeID)
}

// CreateContent inserts the entry and links its categories and tags.
func (s *GormStore) CreateContent(ctx context.Context, content *db.Content) error {
	conn := s.conn(ctx)
	if err := conn.Omit(clause.Associations).Create(content).Error; err != nil {
		return translate(err)
	}
	return s.replaceContentAssociations(conn, content)
}

// SaveContent persists every field of the entry and replaces its category and tag sets.
func (s *GormStore) SaveContent(ctx context.Context, content *db.Content) error {
	conn := s.conn(ctx)
	if err := conn.Omit(clause.Associations).Save(content).Error; err != nil {
		return translate(err)
	}
	return s.replaceContentAssociations(conn, content)
}

// DeleteContent removes the entry and its join rows.
func (s *GormStore) DeleteContent(ctx context.Context, id uint) error {
	conn := s.conn(ctx)
	if err := conn.Exec("DELETE FROM content_categories WHERE content_id = ?", id).Error; err != nil {
		return err
	}
	if err := conn.Exec("DELETE FROM content_tags WHERE content_id = ?", id).Error; err != nil {
		return err
	}
	result := conn.Delete(&db.Content{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) replaceContentAssociations(conn *gorm.DB, content *db.Content) error {
	categories := content.Categories
	if categories == nil {
		categories = []db.Category{}
	}
	if err := conn.Model(content).Association("Categories").Replace(categories); err != nil {
		return translate(err)
	}

	tags := content.Tags
	if tags == nil {
		tags = []db.Tag{}
	}
	if err := conn.Model(content).Association("Tags").Replace(tags); err != nil {
		return translate(err)
	}

	content.PopulateDerivedFields()
	return nil
}

func (s *GormStore) applyContentFilters(query *gorm.DB, filter ContentQuery) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("contents.status = ?", filter.Status)
	}

	if filter.AuthorID != 0 {
		query = query.Where("contents.author_id = ?", filter.AuthorID)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("(contents.title LIKE ? OR contents.description LIKE ? OR contents.body LIKE ?)", like, like, like)
	}

	if filter.CategoryID != 0 {
		query = query.Where("contents.id IN (?)",
			s.db.Table("content_categories").Select("content_id").Where("category_id = ?", filter.CategoryID))
	}

	if filter.TagID != 0 {
		query = query.Where("contents.id IN (?)",
			s.db.Table("content_tags").Select("content_id").Where("tag_id = ?", filter.TagID))
	}

	return query
}

// LatestVersionNumber returns the highest version number for the content, 0 when none exist.
func (s *GormStore) LatestVersionNumber(ctx context.Context, contentID uint) (int, error) {
	var maxVersion *int
	if err := s.conn(ctx).Model(&db.ContentVersion{}).
		Where("content_id = ?", contentID).
		Select("MAX(version_number)").
		Scan(&maxVersion).Error; err != nil {
		return 0, err
	}
	if maxVersion == nil {
		return 0, nil
	}
	return *maxVersion, nil
}

// AppendVersion inserts a version row; a taken version number yields ErrVersionConflict.
func (s *GormStore) AppendVersion(ctx context.Context, version *db.ContentVersion) error {
	if err := s.conn(ctx).Create(version).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrVersionConflict
		}
		return err
	}
	return nil
}

// ListVersions returns the history of a content entry, oldest first.
func (s *GormStore) ListVersions(ctx context.Context, contentID uint) ([]db.ContentVersion, error) {
	var versions []db.ContentVersion
	if err := s.conn(ctx).
		Where("content_id = ?", contentID).
		Order("version_number asc").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// GetVersion fetches a single version by number.
func (s *GormStore) GetVersion(ctx context.Context, contentID uint, number int) (*db.ContentVersion, error) {
	var version db.ContentVersion
	err := s.conn(ctx).
		Where("content_id = ? AND version_number = ?", contentID, number).
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &version, nil
}

// DeleteVersions removes every version of the content; only used when the content itself is deleted.
func (s *GormStore) DeleteVersions(ctx context.Context, contentID uint) error {
	return s.conn(ctx).Where("content_id = ?", contentID).Delete(&db.ContentVersion{}).Error
}
