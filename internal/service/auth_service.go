package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/store"
)

// AuthService 校验后台账号凭据，并为每个请求解析当前调用者。
type AuthService struct {
	store store.Store
}

// NewAuthService creates an AuthService instance.
func NewAuthService(st store.Store) *AuthService {
	return &AuthService{store: st}
}

// SignIn 校验邮箱与密码；账号不存在与密码错误返回同一个错误。
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*db.User, error) {
	email = db.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CurrentUser 根据会话中的用户 ID 重新加载账号，已删除的账号返回 nil。
func (s *AuthService) CurrentUser(ctx context.Context, id uint) (*db.User, error) {
	if id == 0 {
		return nil, nil
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// CallerFor 将用户记录转换为授权层使用的调用者。
func CallerFor(user *db.User) *authz.Caller {
	if user == nil {
		return nil
	}
	role, _ := authz.ParseRole(user.Role)
	return &authz.Caller{
		ID:    user.ID,
		Email: user.Email,
		Name:  strings.TrimSpace(user.Name),
		Role:  role,
	}
}
