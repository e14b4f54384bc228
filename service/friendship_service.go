package service

import (
	"context"
	"fmt"
	"time"

	"snapconnect_agents/archetype"
	"snapconnect_agents/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// 好友请求在点赞/评论基础上的额外稀释系数（加好友要比点赞克制得多）
	friendRequestDamping = 0.3
	// 单个 persona 单次会话最多发出的好友请求数，防止一次顺风会话把图刷爆
	MaxRequestsPerSession = 2
)

// FriendshipService 好友关系构建器
type FriendshipService struct {
	db     *gorm.DB
	compat *CompatibilityService
	rnd    Rand
	now    func() time.Time
}

func NewFriendshipService(db *gorm.DB, compat *CompatibilityService) *FriendshipService {
	return &FriendshipService{
		db:     db,
		compat: compat,
		rnd:    NewRand(),
		now:    time.Now,
	}
}

func (s *FriendshipService) SetRand(r Rand)                { s.rnd = r }
func (s *FriendshipService) SetClock(now func() time.Time) { s.now = now }

// Exists 判断两人之间是否已有任意状态的好友边——必须查两个方向
func (s *FriendshipService) Exists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Friendship{}).
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return count > 0, nil
}

// MaybeRequest 评估并（按概率）发出好友请求，返回是否发出。
// 前提：双方任一方向都没有已存在的边；触发概率 =
// 原型基础好友率 × 兼容度 × 稀释系数；会话内有硬性上限
func (s *FriendshipService) MaybeRequest(ctx context.Context, actor, target *model.Persona, sentThisSession int, dryRun bool) (bool, error) {
	if target == nil || actor.ID == target.ID {
		return false, nil
	}
	if sentThisSession >= MaxRequestsPerSession {
		return false, nil
	}

	exists, err := s.Exists(ctx, actor.ID, target.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	def, err := archetype.Lookup(actor.Archetype)
	if err != nil {
		return false, err
	}

	probability := def.BaseFriendRate * s.compat.Score(ctx, actor, target) * friendRequestDamping
	if s.rnd.Float64() >= probability {
		return false, nil
	}

	if dryRun {
		return true, nil
	}

	friendship := &model.Friendship{
		RequesterID: actor.ID,
		RecipientID: target.ID,
		Status:      model.FriendshipPending,
	}
	if err := s.db.WithContext(ctx).Create(friendship).Error; err != nil {
		if isDuplicate(err) {
			// 并发竞争下别处已建边，幂等无操作
			return false, nil
		}
		return false, fmt.Errorf("failed to create friendship: %w", err)
	}
	return true, nil
}
