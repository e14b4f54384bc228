package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 好友关系状态
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipBlocked  = "blocked"
)

// Friendship 好友关系表
// 概念上无向，存储上有向（requester -> recipient）；
// 任一方向已存在任意状态的边时，引擎不得再创建第二条边。
// pending -> accepted/blocked 的状态流转由消费方完成，不在本引擎内
type Friendship struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RequesterID uuid.UUID `json:"requester_id" gorm:"type:uuid;not null;uniqueIndex:uk_requester_recipient;index"`
	RecipientID uuid.UUID `json:"recipient_id" gorm:"type:uuid;not null;uniqueIndex:uk_requester_recipient;index"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null;default:pending"` // 'pending' | 'accepted' | 'blocked'
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Friendship) TableName() string {
	return "friendships"
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
