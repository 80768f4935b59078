package store

import (
	"context"

	"github.com/firmsite/internal/db"
)

// GetUser fetches a user by id.
func (s *GormStore) GetUser(ctx context.Context, id uint) (*db.User, error) {
	var user db.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByEmail fetches a user by normalized email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	if err := s.conn(ctx).Where("email = ?", db.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by creation.
func (s *GormStore) ListUsers(ctx context.Context) ([]db.User, error) {
	var users []db.User
	if err := s.conn(ctx).Order("created_at asc").Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser inserts a user; a taken email yields ErrDuplicate.
func (s *GormStore) CreateUser(ctx context.Context, user *db.User) error {
	return translate(s.conn(ctx).Create(user).Error)
}

// SaveUser persists every field of the user.
func (s *GormStore) SaveUser(ctx context.Context, user *db.User) error {
	return translate(s.conn(ctx).Save(user).Error)
}

// CountOwnedBy 统计该用户名下的内容与媒体数量。
func (s *GormStore) CountOwnedBy(ctx context.Context, userID uint) (int64, error) {
	var contents, media int64
	if err := s.conn(ctx).Model(&db.Content{}).Where("author_id = ?", userID).Count(&contents).Error; err != nil {
		return 0, err
	}
	if err := s.conn(ctx).Model(&db.Media{}).Where("author_id = ?", userID).Count(&media).Error; err != nil {
		return 0, err
	}
	return contents + media, nil
}

// DeleteUser removes a user by id.
func (s *GormStore) DeleteUser(ctx context.Context, id uint) error {
	result := s.conn(ctx).Delete(&db.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
