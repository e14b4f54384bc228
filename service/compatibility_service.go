package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"snapconnect_agents/archetype"
	"snapconnect_agents/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 兼容度加成常数
const (
	historyWindow       = 30 * 24 * time.Hour // 互动历史统计窗口
	frequentBonus       = 0.2                 // 窗口内 ≥3 次互动
	frequentThreshold   = 3
	mutualBonus         = 0.3  // 双向都有互动
	sharedJourneyBonus  = 0.15 // 双方都是健身新手（同路人加成）
	sharedTagBonus      = 0.1  // 每个共同偏好标签
	nonPersonaBaseScore = 0.5  // 对方不是 persona（真实用户）时的基础分
)

// PairHistory 一对用户在窗口内的互动计数（点赞 + 评论），按方向分开
type PairHistory struct {
	ActorToTarget int64
	TargetToActor int64
}

// Total 双向互动总数
func (h PairHistory) Total() int64 {
	return h.ActorToTarget + h.TargetToActor
}

// Mutual 是否双向都有互动
func (h PairHistory) Mutual() bool {
	return h.ActorToTarget > 0 && h.TargetToActor > 0
}

// CompatibilityService 兼容度引擎：原型矩阵 + 互动历史 + 共同标签 -> [0,1] 标量
type CompatibilityService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCompatibilityService(db *gorm.DB) *CompatibilityService {
	return &CompatibilityService{db: db, now: time.Now}
}

// SetClock 注入时钟（测试用）
func (s *CompatibilityService) SetClock(now func() time.Time) {
	s.now = now
}

// History 统计 a 与 b 在窗口内交换的点赞和评论（双向）
func (s *CompatibilityService) History(ctx context.Context, a, b uuid.UUID) (PairHistory, error) {
	var h PairHistory
	since := s.now().Add(-historyWindow)

	count := func(actor, author uuid.UUID) (int64, error) {
		var likes, comments int64
		err := s.db.WithContext(ctx).Model(&model.PostLike{}).
			Joins("JOIN posts ON posts.id = post_likes.post_id").
			Where("post_likes.actor_id = ? AND posts.author_id = ? AND post_likes.created_at > ?", actor, author, since).
			Count(&likes).Error
		if err != nil {
			return 0, err
		}
		err = s.db.WithContext(ctx).Model(&model.Comment{}).
			Joins("JOIN posts ON posts.id = comments.post_id").
			Where("comments.actor_id = ? AND posts.author_id = ? AND comments.created_at > ?", actor, author, since).
			Count(&comments).Error
		if err != nil {
			return 0, err
		}
		return likes + comments, nil
	}

	var err error
	if h.ActorToTarget, err = count(a, b); err != nil {
		return h, fmt.Errorf("failed to count interactions: %w", err)
	}
	if h.TargetToActor, err = count(b, a); err != nil {
		return h, fmt.Errorf("failed to count interactions: %w", err)
	}
	return h, nil
}

// Score 有向兼容度 (actor -> target)，恒在 [0,1] 内。
// 全函数：任何一对输入都有定义——没有历史时退化为矩阵基础分，
// 历史查询失败也只降级为基础分（记日志），绝不失败
func (s *CompatibilityService) Score(ctx context.Context, actor *model.Persona, target *model.Persona) float64 {
	if target == nil {
		// 对方是真实用户，没有原型行可查
		return nonPersonaBaseScore
	}

	score := archetype.Affinity(actor.Archetype, target.Archetype)

	history, err := s.History(ctx, actor.ID, target.ID)
	if err != nil {
		log.Printf("[WARN] compatibility history %s->%s unavailable: %v", actor.ID, target.ID, err)
	} else {
		if history.Total() >= frequentThreshold {
			score += frequentBonus
		}
		if history.Mutual() {
			score += mutualBonus
		}
	}

	if actor.Archetype == archetype.FitnessNewbie && target.Archetype == archetype.FitnessNewbie {
		score += sharedJourneyBonus
	}

	score += sharedTagBonus * float64(sharedTags(actor.TagList(), target.TagList()))

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func sharedTags(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	n := 0
	for _, t := range b {
		if set[t] {
			n++
		}
	}
	return n
}
