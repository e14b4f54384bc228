package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostLike 点赞表
// (actor_id, post_id) 唯一，只插入不更新；重复插入视为幂等无操作
type PostLike struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ActorID   uuid.UUID `json:"actor_id" gorm:"type:uuid;not null;uniqueIndex:uk_actor_post"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;not null;uniqueIndex:uk_actor_post;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Comment 评论表
// 追加写入；同一 actor 对同一帖子每个会话周期最多评论一次，由业务侧前置检查保证
// （不加数据库约束：真人对同一帖子多次评论是合法行为）
type Comment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ActorID   uuid.UUID `json:"actor_id" gorm:"type:uuid;not null;index"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;not null;index"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
