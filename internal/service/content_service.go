package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/store"
)

// maxVersionAttempts 限制版本号冲突时整笔更新的重试次数。
const maxVersionAttempts = 5

// ContentService 负责内容的增删改查、所有权校验与版本追加。
type ContentService struct {
	store store.Store
	now   func() time.Time
}

// ContentFilter describes filters for listing content.
type ContentFilter struct {
	Status     string
	AuthorID   uint
	CategoryID uint
	TagID      uint
	Search     string
	Page       int
	PerPage    int
}

// ContentListResult aggregates paginated list data.
type ContentListResult struct {
	Contents   []db.Content
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// ContentInput represents fields accepted when creating or updating content.
type ContentInput struct {
	Title           string
	Slug            string
	Description     string
	Body            string
	Status          string
	CategoryIDs     []uint
	TagIDs          []uint
	MetaTitle       string
	MetaDescription string
	Keywords        []string
	ScheduledAt     *time.Time
}

// UpdateResult 返回更新后的内容以及调用方刷新缓存所需的信息。
type UpdateResult struct {
	Content      *db.Content
	PreviousSlug string
	NewVersion   bool
}

// NewContentService creates a ContentService instance.
func NewContentService(st store.Store) *ContentService {
	return &ContentService{store: st, now: time.Now}
}

// List 返回内容列表；author 只能看到自己的内容，忽略传入的作者过滤。
func (s *ContentService) List(ctx context.Context, caller *authz.Caller, filter ContentFilter) (*ContentListResult, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	if authz.Narrowed(caller) {
		filter.AuthorID = caller.ID
	}

	result := &ContentListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 20),
	}

	contents, total, err := s.store.ListContent(ctx, store.ContentQuery{
		Status:     strings.TrimSpace(filter.Status),
		AuthorID:   filter.AuthorID,
		CategoryID: filter.CategoryID,
		TagID:      filter.TagID,
		Search:     filter.Search,
		Limit:      result.PerPage,
		Offset:     (result.Page - 1) * result.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	result.Contents = contents
	result.Total = total
	result.TotalPages = calculateTotalPages(total, result.PerPage)
	return result, nil
}

// Get 获取单条内容；author 访问他人内容时拒绝。
func (s *ContentService) Get(ctx context.Context, caller *authz.Caller, id uint) (*db.Content, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	return s.loadOwned(ctx, s.store, caller, id)
}

// Create 创建内容并在同一事务内写入版本 1。
func (s *ContentService) Create(ctx context.Context, caller *authz.Caller, input ContentInput) (*db.Content, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	input = input.normalized()
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	content := &db.Content{AuthorID: caller.ID}
	input.applyTo(content)
	if content.IsPublished() {
		content.PublishedAt = &now
	}

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if err := ensureSlugFree(ctx, tx, input.Slug, 0); err != nil {
			return err
		}
		if err := attachTaxonomy(ctx, tx, content, input); err != nil {
			return err
		}

		if err := tx.CreateContent(ctx, content); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrSlugTaken
			}
			return fmt.Errorf("create content: %w", err)
		}

		if err := tx.AppendVersion(ctx, &db.ContentVersion{
			ContentID:     content.ID,
			VersionNumber: 1,
			Body:          content.Body,
			AuthorID:      caller.ID,
		}); err != nil {
			return fmt.Errorf("create initial version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, content.ID)
}

// Update 合并更新内容；正文变化时追加新版本，publishedAt 只在首次发布时写入。
func (s *ContentService) Update(ctx context.Context, caller *authz.Caller, id uint, input ContentInput) (*UpdateResult, error) {
	if !authz.Authorize(caller, authz.RoleAuthor) {
		return nil, ErrUnauthorized
	}
	input = input.normalized()
	if err := input.validate(); err != nil {
		return nil, err
	}

	var (
		result *UpdateResult
		err    error
	)
	for attempt := 0; attempt < maxVersionAttempts; attempt++ {
		result, err = s.update(ctx, caller, id, input)
		if !errors.Is(err, store.ErrVersionConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	content, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Content = content
	return result, nil
}

func (s *ContentService) update(ctx context.Context, caller *authz.Caller, id uint, input ContentInput) (*UpdateResult, error) {
	result := &UpdateResult{}

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := s.loadOwned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		result.PreviousSlug = existing.Slug

		if err := ensureSlugFree(ctx, tx, input.Slug, existing.ID); err != nil {
			return err
		}

		if input.Body != existing.Body {
			latest, err := tx.LatestVersionNumber(ctx, existing.ID)
			if err != nil {
				return fmt.Errorf("load latest version: %w", err)
			}
			if err := tx.AppendVersion(ctx, &db.ContentVersion{
				ContentID:     existing.ID,
				VersionNumber: latest + 1,
				Body:          input.Body,
				AuthorID:      caller.ID,
			}); err != nil {
				if errors.Is(err, store.ErrVersionConflict) {
					return err
				}
				return fmt.Errorf("append version: %w", err)
			}
			result.NewVersion = true
		}

		publishedAt := existing.PublishedAt
		input.applyTo(existing)
		existing.PublishedAt = publishedAt
		if existing.IsPublished() && existing.PublishedAt == nil {
			now := s.now()
			existing.PublishedAt = &now
		}

		if err := attachTaxonomy(ctx, tx, existing, input); err != nil {
			return err
		}

		if err := tx.SaveContent(ctx, existing); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrSlugTaken
			}
			return fmt.Errorf("save content: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete 删除内容（需要 editor 以上），并级联删除全部版本。
func (s *ContentService) Delete(ctx context.Context, caller *authz.Caller, id uint) (*db.Content, error) {
	if !authz.Authorize(caller, authz.RoleEditor) {
		return nil, ErrUnauthorized
	}

	var deleted *db.Content
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := s.loadOwned(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteVersions(ctx, existing.ID); err != nil {
			return fmt.Errorf("delete versions: %w", err)
		}
		if err := tx.DeleteContent(ctx, existing.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrContentNotFound
			}
			return fmt.Errorf("delete content: %w", err)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ListVersions 返回内容的完整编辑历史，访问规则与 Get 相同。
func (s *ContentService) ListVersions(ctx context.Context, caller *authz.Caller, id uint) ([]db.ContentVersion, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// GetVersion 返回指定版本号的快照。
func (s *ContentService) GetVersion(ctx context.Context, caller *authz.Caller, id uint, number int) (*db.ContentVersion, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	version, err := s.store.GetVersion(ctx, id, number)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

// RestoreVersion 以历史版本的正文发起一次普通更新，历史本身不会被改写。
func (s *ContentService) RestoreVersion(ctx context.Context, caller *authz.Caller, id uint, number int) (*UpdateResult, error) {
	version, err := s.GetVersion(ctx, caller, id, number)
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	input := InputFromContent(current)
	input.Body = version.Body
	return s.Update(ctx, caller, id, input)
}

// ListPublished 返回公开页面使用的已发布内容，无需登录。
func (s *ContentService) ListPublished(ctx context.Context, filter ContentFilter) (*ContentListResult, error) {
	result := &ContentListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 10),
	}
	contents, total, err := s.store.ListContent(ctx, store.ContentQuery{
		Status:     db.StatusPublished,
		CategoryID: filter.CategoryID,
		TagID:      filter.TagID,
		Search:     filter.Search,
		Limit:      result.PerPage,
		Offset:     (result.Page - 1) * result.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list published content: %w", err)
	}
	result.Contents = contents
	result.Total = total
	result.TotalPages = calculateTotalPages(total, result.PerPage)
	return result, nil
}

// GetPublished 按 slug 读取已发布内容；未发布的内容对外视为不存在。
func (s *ContentService) GetPublished(ctx context.Context, slug string) (*db.Content, error) {
	content, err := s.store.GetContentBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("get content by slug: %w", err)
	}
	if !content.IsPublished() {
		return nil, ErrContentNotFound
	}
	return content, nil
}

// InputFromContent 将已有内容转换为输入，便于只修改部分字段。
func InputFromContent(content *db.Content) ContentInput {
	return ContentInput{
		Title:           content.Title,
		Slug:            content.Slug,
		Description:     content.Description,
		Body:            content.Body,
		Status:          content.Status,
		CategoryIDs:     append([]uint(nil), content.CategoryIDs...),
		TagIDs:          append([]uint(nil), content.TagIDs...),
		MetaTitle:       content.MetaTitle,
		MetaDescription: content.MetaDescription,
		Keywords:        append([]string(nil), content.Keywords...),
		ScheduledAt:     content.ScheduledAt,
	}
}

func (s *ContentService) loadOwned(ctx context.Context, st store.Store, caller *authz.Caller, id uint) (*db.Content, error) {
	content, err := st.GetContent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	if !authz.CanModify(caller, content.AuthorID) {
		return nil, ErrUnauthorized
	}
	return content, nil
}

func (s *ContentService) reload(ctx context.Context, id uint) (*db.Content, error) {
	content, err := s.store.GetContent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("reload content: %w", err)
	}
	return content, nil
}

func ensureSlugFree(ctx context.Context, tx store.Store, slug string, excludeID uint) error {
	taken, err := tx.ContentSlugTaken(ctx, slug, excludeID)
	if err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if taken {
		return ErrSlugTaken
	}
	return nil
}

func attachTaxonomy(ctx context.Context, tx store.Store, content *db.Content, input ContentInput) error {
	categories, err := tx.FindCategories(ctx, input.CategoryIDs)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	if len(categories) != len(input.CategoryIDs) {
		return invalid("unknown category id")
	}

	tags, err := tx.FindTags(ctx, input.TagIDs)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	if len(tags) != len(input.TagIDs) {
		return invalid("unknown tag id")
	}

	content.Categories = categories
	content.Tags = tags
	return nil
}

func (in ContentInput) normalized() ContentInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	in.MetaTitle = strings.TrimSpace(in.MetaTitle)
	in.MetaDescription = strings.TrimSpace(in.MetaDescription)
	in.CategoryIDs = uniqueIDs(in.CategoryIDs)
	in.TagIDs = uniqueIDs(in.TagIDs)

	keywords := make([]string, 0, len(in.Keywords))
	seen := make(map[string]struct{}, len(in.Keywords))
	for _, keyword := range in.Keywords {
		trimmed := strings.TrimSpace(keyword)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keywords = append(keywords, trimmed)
	}
	in.Keywords = keywords
	return in
}

func (in ContentInput) validate() error {
	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Slug == "" {
		missing = append(missing, "slug")
	}
	if in.Description == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(in.Body) == "" {
		missing = append(missing, "body")
	}
	if in.Status == "" {
		missing = append(missing, "status")
	}

	var reasons []string
	if in.Slug != "" && !validSlug(in.Slug) {
		reasons = append(reasons, "slug may only contain lowercase letters, digits and hyphens")
	}
	if in.Status != "" && !db.ValidStatus(in.Status) {
		reasons = append(reasons, fmt.Sprintf("invalid status %q", in.Status))
	}

	if len(missing) == 0 && len(reasons) == 0 {
		return nil
	}
	return &ValidationError{Missing: missing, Reason: strings.Join(reasons, "; ")}
}

func (in ContentInput) applyTo(content *db.Content) {
	content.Title = in.Title
	content.Slug = in.Slug
	content.Description = in.Description
	content.Body = in.Body
	content.Status = in.Status
	content.MetaTitle = in.MetaTitle
	content.MetaDescription = in.MetaDescription
	content.Keywords = in.Keywords
	content.ScheduledAt = in.ScheduledAt
}

func uniqueIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
