package db

import "time"

const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPublished = "published"
)

// Content 定义了站点内容条目，分类与标签为多对多关系。
// PublishedAt 只在首次进入 published 时写入，之后不再改动。
type Content struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Slug            string     `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	Description     string     `gorm:"type:text" json:"description"`
	Body            string     `gorm:"type:text" json:"body"`
	Status          string     `gorm:"size:20;index;not null;default:draft" json:"status"`
	AuthorID        uint       `gorm:"index;not null" json:"author_id"`
	Categories      []Category `gorm:"many2many:content_categories;" json:"categories"`
	Tags            []Tag      `gorm:"many2many:content_tags;" json:"tags"`
	MetaTitle       string     `gorm:"size:255" json:"meta_title"`
	MetaDescription string     `gorm:"type:text" json:"meta_description"`
	Keywords        []string   `gorm:"serializer:json;type:text" json:"keywords"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	PublishedAt     *time.Time `json:"published_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	CategoryIDs []uint `gorm:"-" json:"category_ids"`
	TagIDs      []uint `gorm:"-" json:"tag_ids"`
}

// PopulateDerivedFields 根据关联数据补齐 ID 列表等派生字段。
func (c *Content) PopulateDerivedFields() {
	c.CategoryIDs = make([]uint, 0, len(c.Categories))
	for _, category := range c.Categories {
		c.CategoryIDs = append(c.CategoryIDs, category.ID)
	}
	c.TagIDs = make([]uint, 0, len(c.Tags))
	for _, tag := range c.Tags {
		c.TagIDs = append(c.TagIDs, tag.ID)
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	if c.Categories == nil {
		c.Categories = []Category{}
	}
	if c.Tags == nil {
		c.Tags = []Tag{}
	}
}

// IsPublished 判断内容当前是否处于发布状态。
func (c *Content) IsPublished() bool {
	return c.Status == StatusPublished
}

// ValidStatus 判断状态值是否合法。
func ValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusScheduled, StatusPublished:
		return true
	default:
		return false
	}
}
