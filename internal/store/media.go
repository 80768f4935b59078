package store

import (
	"context"

	"github.com/firmsite/internal/db"
	"gorm.io/gorm"
)

// GetMedia fetches a media record by id.
func (s *GormStore) GetMedia(ctx context.Context, id uint) (*db.Media, error) {
	var media db.Media
	if err := s.conn(ctx).First(&media, id).Error; err != nil {
		return nil, translate(err)
	}
	return &media, nil
}

// ListMedia returns media matching the query plus the unpaginated total.
func (s *GormStore) ListMedia(ctx context.Context, query MediaQuery) ([]db.Media, int64, error) {
	base := s.conn(ctx).Model(&db.Media{})
	if query.AuthorID != 0 {
		base = base.Where("author_id = ?", query.AuthorID)
	}
	if query.MimeType != "" {
		base = base.Where("mime_type = ?", query.MimeType)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	dataQuery := base.Session(&gorm.Session{}).
		Order("created_at desc").
		Order("id desc").
		Limit(clampLimit(query.Limit))
	if query.Offset > 0 {
		dataQuery = dataQuery.Offset(query.Offset)
	}

	var items []db.Media
	if err := dataQuery.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CreateMedia inserts a media record.
func (s *GormStore) CreateMedia(ctx context.Context, media *db.Media) error {
	return translate(s.conn(ctx).Create(media).Error)
}

// SaveMedia persists every field of the media record.
func (s *GormStore) SaveMedia(ctx context.Context, media *db.Media) error {
	return translate(s.conn(ctx).Save(media).Error)
}

// DeleteMedia removes a media record by id.
func (s *GormStore) DeleteMedia(ctx context.Context, id uint) error {
	result := s.conn(ctx).Delete(&db.Media{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
