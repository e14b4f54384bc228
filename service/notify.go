package service

import (
	"time"

	"github.com/google/uuid"
)

// 活动事件类型
const (
	EventPost          = "post"
	EventLike          = "like"
	EventComment       = "comment"
	EventFriendRequest = "friend_request"
)

// ActionEvent 一次社交动作的事件，推给活动流（WebSocket）观察端
type ActionEvent struct {
	Type      string    `json:"type"` // 'post' | 'like' | 'comment' | 'friend_request'
	PersonaID uuid.UUID `json:"persona_id"`
	TargetID  uuid.UUID `json:"target_id,omitempty"` // 帖子或对方用户
	Detail    string    `json:"detail,omitempty"`
	DryRun    bool      `json:"dry_run"`
	At        time.Time `json:"at"`
}

// ActionNotifier 活动流通知器（用于依赖注入，nil 表示不推送）
type ActionNotifier interface {
	NotifyAction(event ActionEvent)
}
