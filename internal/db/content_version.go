package db

import "time"

// ContentVersion 记录内容正文的历史版本快照，只追加不修改。
// (ContentID, VersionNumber) 采用唯一索引，保证同一内容的版本号不重复。
type ContentVersion struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ContentID     uint      `gorm:"not null;uniqueIndex:idx_content_version_number" json:"content_id"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_content_version_number" json:"version_number"`
	Body          string    `gorm:"type:text" json:"body"`
	AuthorID      uint      `gorm:"index" json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定自定义表名。
func (ContentVersion) TableName() string {
	return "content_versions"
}
