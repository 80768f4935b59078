package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/storage"
	"github.com/firmsite/internal/store"
)

// MaxUploadSize 限制单个媒体文件的大小。
const MaxUploadSize = 10 << 20

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadInput 表示一次媒体上传。
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	Alt         string
	Caption     string
}

// MediaUpdateInput 仅允许修改描述性字段。
type MediaUpdateInput struct {
	Alt     string
	Caption string
}

// MediaFilter describes filters for listing media.
type MediaFilter struct {
	AuthorID uint
	MimeType string
	Page     int
	PerPage  int
}

// MediaListResult aggregates paginated media data.
type MediaListResult struct {
	Items      []db.Media
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// BlobDeleteError 表示记录已删除但文件清理失败，调用方只需记录日志。
type BlobDeleteError struct {
	Key string
	Err error
}

func (e *BlobDeleteError) Error() string {
	return fmt.Sprintf("delete blob %s: %v", e.Key, e.Err)
}

func (e *BlobDeleteError) Unwrap() error {
	return e.Err
}

// MediaService 管理媒体记录与其文件。
type MediaService struct {
	store store.Store
	blob  storage.Blob
	now   func() time.Time
}

// NewMediaService creates a MediaService instance.
func NewMediaService(st store.Store, blob storage.Blob) *MediaService {
	return &MediaService{store: st, blob: blob, now: time.Now}
}

// List 返回媒体列表；author 只能看到自己上传的文件。
func (s *MediaService) List(ctx context.Context, caller *authz.Caller, filter MediaFilter) (*MediaListResult, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	if authz.Narrowed(caller) {
		filter.AuthorID = caller.ID
	}

	result := &MediaListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 24),
	}
	items, total, err := s.store.ListMedia(ctx, store.MediaQuery{
		AuthorID: filter.AuthorID,
		MimeType: strings.TrimSpace(filter.MimeType),
		Limit:    result.PerPage,
		Offset:   (result.Page - 1) * result.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	result.Items = items
	result.Total = total
	result.TotalPages = calculateTotalPages(total, result.PerPage)
	return result, nil
}

// Get returns a single media record.
func (s *MediaService) Get(ctx context.Context, caller *authz.Caller, id uint) (*db.Media, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	return s.loadOwned(ctx, s.store, caller, id)
}

// Upload 校验图片、写入存储，再落库；落库失败时清理已写入的文件。
func (s *MediaService) Upload(ctx context.Context, caller *authz.Caller, input UploadInput) (*db.Media, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	if len(input.Data) == 0 {
		return nil, &ValidationError{Missing: []string{"file"}}
	}
	if len(input.Data) > MaxUploadSize {
		return nil, invalid(fmt.Sprintf("file exceeds %d bytes", MaxUploadSize))
	}

	mimeType := detectImageType(input.ContentType, input.Data)
	ext, ok := imageExtensions[mimeType]
	if !ok {
		return nil, invalid("only png, jpeg, gif and webp images are allowed")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(input.Data))
	if err != nil {
		return nil, invalid("file is not a readable image")
	}

	filename := fmt.Sprintf("%s-%s%s", s.now().Format("20060102"), uuid.New().String(), ext)
	url, err := s.blob.Put(ctx, filename, bytes.NewReader(input.Data), mimeType, int64(len(input.Data)))
	if err != nil {
		return nil, fmt.Errorf("store media: %w", err)
	}

	media := &db.Media{
		Filename:         filename,
		OriginalFilename: filepath.Base(strings.TrimSpace(input.Filename)),
		MimeType:         mimeType,
		Size:             int64(len(input.Data)),
		URL:              url,
		Width:            cfg.Width,
		Height:           cfg.Height,
		Alt:              strings.TrimSpace(input.Alt),
		Caption:          strings.TrimSpace(input.Caption),
		AuthorID:         caller.ID,
	}
	if err := s.store.CreateMedia(ctx, media); err != nil {
		if delErr := s.blob.Delete(ctx, filename); delErr != nil {
			return nil, errors.Join(fmt.Errorf("create media: %w", err), &BlobDeleteError{Key: filename, Err: delErr})
		}
		return nil, fmt.Errorf("create media: %w", err)
	}
	return media, nil
}

// Update 修改 alt 与 caption。
func (s *MediaService) Update(ctx context.Context, caller *authz.Caller, id uint, input MediaUpdateInput) (*db.Media, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}

	var media *db.Media
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := s.loadOwned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		existing.Alt = strings.TrimSpace(input.Alt)
		existing.Caption = strings.TrimSpace(input.Caption)
		if err := tx.SaveMedia(ctx, existing); err != nil {
			return fmt.Errorf("save media: %w", err)
		}
		media = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return media, nil
}

// Delete 删除记录后再删除文件；文件删除失败时返回 *BlobDeleteError 和已删除的记录。
func (s *MediaService) Delete(ctx context.Context, caller *authz.Caller, id uint) (*db.Media, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}

	var deleted *db.Media
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := s.loadOwned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteMedia(ctx, existing.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMediaNotFound
			}
			return fmt.Errorf("delete media: %w", err)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.blob.Delete(ctx, deleted.Filename); err != nil {
		return deleted, &BlobDeleteError{Key: deleted.Filename, Err: err}
	}
	return deleted, nil
}

func (s *MediaService) loadOwned(ctx context.Context, st store.Store, caller *authz.Caller, id uint) (*db.Media, error) {
	media, err := st.GetMedia(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("get media: %w", err)
	}
	if !authz.CanModify(caller, media.AuthorID) {
		return nil, ErrUnauthorized
	}
	return media, nil
}

// detectImageType 优先采用内容嗅探结果，嗅探不出图片类型时才使用声明的类型。
func detectImageType(declared string, data []byte) string {
	sniffed := strings.ToLower(http.DetectContentType(data))
	if _, ok := imageExtensions[sniffed]; ok {
		return sniffed
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	return declared
}
