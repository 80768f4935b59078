package db

import "time"

// Media 定义上传的图片资源
type Media struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Filename         string    `gorm:"size:255;uniqueIndex;not null" json:"filename"`
	OriginalFilename string    `gorm:"size:255" json:"original_filename"`
	MimeType         string    `gorm:"size:100" json:"mime_type"`
	Size             int64     `json:"size"`
	URL              string    `gorm:"size:512" json:"url"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	Alt              string    `gorm:"size:255" json:"alt,omitempty"`
	Caption          string    `gorm:"type:text" json:"caption,omitempty"`
	AuthorID         uint      `gorm:"index;not null" json:"author_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName 指定自定义表名，避免 media 被复数化。
func (Media) TableName() string {
	return "media"
}
