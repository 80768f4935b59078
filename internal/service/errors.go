package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized 表示调用者缺少所需等级或所有权，对外统一提示，不暴露原因。
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound 是各实体“不存在”错误的公共根。
	ErrNotFound = errors.New("not found")

	ErrContentNotFound  = fmt.Errorf("content %w", ErrNotFound)
	ErrVersionNotFound  = fmt.Errorf("content version %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrTagNotFound      = fmt.Errorf("tag %w", ErrNotFound)
	ErrMediaNotFound    = fmt.Errorf("media %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrSlugTaken          = errors.New("slug already in use")
	ErrEmailTaken         = errors.New("email already in use")
	ErrCategoryCycle      = errors.New("category parent would create a cycle")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSelfModification   = errors.New("admins cannot delete or demote themselves")
	ErrUserOwnsContent    = errors.New("user still owns content or media")
)

// ValidationError 描述缺失或格式错误的字段，不会产生任何写入。
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		msg := "missing required fields: " + strings.Join(e.Missing, ", ")
		if e.Reason != "" {
			msg += "; " + e.Reason
		}
		return msg
	}
	return e.Reason
}

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsValidation 判断 err 是否为校验错误。
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
