package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/store"
)

// MinPasswordLength 是后台账号密码的最小长度。
const MinPasswordLength = 8

// UserInput 表示创建或更新后台账号时接受的字段，更新时 Password 为空表示不修改。
type UserInput struct {
	Email    string
	Name     string
	Role     string
	Password string
}

// UserService 管理后台账号，所有操作仅限 admin。
type UserService struct {
	store store.Store
}

// NewUserService creates a UserService instance.
func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

// List returns every user ordered by creation.
func (s *UserService) List(ctx context.Context, caller *authz.Caller) ([]db.User, error) {
	if !authz.Authorize(caller, authz.RoleAdmin) {
		return nil, ErrUnauthorized
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, caller *authz.Caller, id uint) (*db.User, error) {
	if !authz.Authorize(caller, authz.RoleAdmin) {
		return nil, ErrUnauthorized
	}
	return loadUser(ctx, s.store, id)
}

// Create 新建账号，密码以 bcrypt 哈希保存。
func (s *UserService) Create(ctx context.Context, caller *authz.Caller, input UserInput) (*db.User, error) {
	if !authz.Authorize(caller, authz.RoleAdmin) {
		return nil, ErrUnauthorized
	}

	email := db.NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	role := strings.ToLower(strings.TrimSpace(input.Role))

	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if name == "" {
		missing = append(missing, "name")
	}
	if role == "" {
		missing = append(missing, "role")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}
	if err := validateUserFields(email, role, input.Password); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &db.User{Email: email, Name: name, Role: role, Password: string(hashed)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Update 修改账号；admin 不能把自己降级。
func (s *UserService) Update(ctx context.Context, caller *authz.Caller, id uint, input UserInput) (*db.User, error) {
	if !authz.Authorize(caller, authz.RoleAdmin) {
		return nil, ErrUnauthorized
	}

	var updated *db.User
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := loadUser(ctx, tx, id)
		if err != nil {
			return err
		}

		email := existing.Email
		if trimmed := db.NormalizeEmail(input.Email); trimmed != "" {
			email = trimmed
		}
		role := existing.Role
		if trimmed := strings.ToLower(strings.TrimSpace(input.Role)); trimmed != "" {
			role = trimmed
		}
		if err := validateUserFields(email, role, input.Password); err != nil {
			return err
		}
		if existing.ID == caller.ID && role != db.RoleAdmin {
			return ErrSelfModification
		}

		existing.Email = email
		existing.Role = role
		if name := strings.TrimSpace(input.Name); name != "" {
			existing.Name = name
		}
		if input.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			existing.Password = string(hashed)
		}

		if err := tx.SaveUser(ctx, existing); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("save user: %w", err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete 删除账号；admin 不能删除自己，名下仍有内容或媒体的账号也不能删除。
func (s *UserService) Delete(ctx context.Context, caller *authz.Caller, id uint) (*db.User, error) {
	if !authz.Authorize(caller, authz.RoleAdmin) {
		return nil, ErrUnauthorized
	}
	if id == caller.ID {
		return nil, ErrSelfModification
	}

	var deleted *db.User
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := loadUser(ctx, tx, id)
		if err != nil {
			return err
		}
		owned, err := tx.CountOwnedBy(ctx, existing.ID)
		if err != nil {
			return fmt.Errorf("count owned records: %w", err)
		}
		if owned > 0 {
			return ErrUserOwnsContent
		}
		if err := tx.DeleteUser(ctx, existing.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("delete user: %w", err)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func loadUser(ctx context.Context, st store.Store, id uint) (*db.User, error) {
	user, err := st.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func validateUserFields(email, role, password string) error {
	var reasons []string
	if _, err := mail.ParseAddress(email); err != nil {
		reasons = append(reasons, "invalid email")
	}
	if _, ok := authz.ParseRole(role); !ok {
		reasons = append(reasons, fmt.Sprintf("invalid role %q", role))
	}
	if password != "" && len(password) < MinPasswordLength {
		reasons = append(reasons, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(reasons) == 0 {
		return nil
	}
	return invalid(strings.Join(reasons, "; "))
}
