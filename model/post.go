package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 帖子作者类型
const (
	AuthorTypePersona = "persona"
	AuthorTypeUser    = "user"
)

// Post 帖子表
// 由内容编排器或真实用户创建，创建后只读（审核删除不在本引擎范围内）
type Post struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AuthorID   uuid.UUID `json:"author_id" gorm:"type:uuid;not null;index:idx_author_time"`
	AuthorType string    `json:"author_type" gorm:"type:varchar(16);not null;default:persona"` // 'persona' | 'user'
	Caption    string    `json:"caption" gorm:"type:text;not null"`
	MediaURL   *string   `json:"media_url,omitempty" gorm:"type:varchar(500)"`
	Category   string    `json:"category" gorm:"type:varchar(32);index"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_author_time"`
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
