package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"snapconnect_agents/archetype"
	"snapconnect_agents/model"
	"snapconnect_agents/provider"
	"snapconnect_agents/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SessionStats 单个 persona 一次会话的动作统计
type SessionStats struct {
	Seen           int `json:"seen"`
	Likes          int `json:"likes"`
	Comments       int `json:"comments"`
	FriendRequests int `json:"friend_requests"`
}

// InteractionService 互动模拟器：一次会话浏览有限的候选帖子池，
// 依兼容度驱动的概率决定点赞/评论/好友请求
type InteractionService struct {
	db      *gorm.DB
	rdb     *redis.Client
	gen     provider.Generator
	compat  *CompatibilityService
	friends *FriendshipService

	rnd        Rand
	now        func() time.Time
	sleep      func(d time.Duration)
	phraseProb float64       // 评论直接走短语库的概率
	window     time.Duration // 候选帖子时间窗口
	notifier   ActionNotifier
}

func NewInteractionService(db *gorm.DB, rdb *redis.Client, gen provider.Generator, compat *CompatibilityService, friends *FriendshipService) *InteractionService {
	return &InteractionService{
		db:         db,
		rdb:        rdb,
		gen:        gen,
		compat:     compat,
		friends:    friends,
		rnd:        NewRand(),
		now:        time.Now,
		sleep:      time.Sleep,
		phraseProb: 0.4,
		window:     48 * time.Hour,
	}
}

func (s *InteractionService) SetRand(r Rand)                     { s.rnd = r }
func (s *InteractionService) SetClock(now func() time.Time)      { s.now = now }
func (s *InteractionService) SetSleep(fn func(time.Duration))    { s.sleep = fn }
func (s *InteractionService) SetPhraseProbability(p float64)     { s.phraseProb = p }
func (s *InteractionService) SetCandidateWindow(w time.Duration) { s.window = w }
func (s *InteractionService) SetNotifier(n ActionNotifier)       { s.notifier = n }

// RunSession 跑一个 persona 的会话：最多处理 archetype.PostsPerSession 条候选帖，
// 按最新优先的固定顺序串行处理（同一 persona 的动作之间不存在并发，
// 幂等检查因此总能看到一致的视图）
func (s *InteractionService) RunSession(ctx context.Context, p *model.Persona, dryRun bool) (*SessionStats, error) {
	def, err := archetype.Lookup(p.Archetype)
	if err != nil {
		return nil, err
	}

	stats := &SessionStats{}
	candidates, err := s.candidates(ctx, p, def.PostsPerSession)
	if err != nil {
		return stats, err
	}

	for _, post := range candidates {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Seen++
		if err := s.processCandidate(ctx, p, def, &post, stats, dryRun); err != nil {
			// 单条候选失败只记日志，会话继续
			log.Printf("[WARN] persona %s: candidate %s failed: %v", p.ID, post.ID, err)
		}
		// 候选之间的小随机延迟，限制对平台和生成服务的有效动作频率
		s.sleep(time.Duration(500+s.rnd.Intn(1500)) * time.Millisecond)
	}

	if !dryRun {
		now := s.now()
		if err := s.db.WithContext(ctx).Model(&model.Persona{}).
			Where("id = ?", p.ID).
			Update("last_session_at", now).Error; err != nil {
			log.Printf("[WARN] persona %s: failed to update last_session_at: %v", p.ID, err)
		}
	}
	return stats, nil
}

// candidates 取候选帖子池：窗口内最新的帖子，排除自己的。
// 池子走 Redis 短缓存（批内所有 persona 共享一次查询），再按 persona 过滤截断
func (s *InteractionService) candidates(ctx context.Context, p *model.Persona, limit int) ([]model.Post, error) {
	pool := utils.GetCachedCandidatePosts(ctx, s.rdb)
	if pool == nil {
		since := s.now().Add(-s.window)
		if err := s.db.WithContext(ctx).
			Where("created_at > ?", since).
			Order("created_at DESC").
			Limit(50).
			Find(&pool).Error; err != nil {
			return nil, fmt.Errorf("failed to load candidate posts: %w", err)
		}
		utils.CacheCandidatePosts(ctx, s.rdb, pool)
	}

	out := make([]model.Post, 0, limit)
	for _, post := range pool {
		if post.AuthorID == p.ID {
			continue
		}
		out = append(out, post)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// processCandidate 按顺序处理单条候选帖：幂等检查 -> 点赞抽签 -> 评论抽签 -> 好友请求
func (s *InteractionService) processCandidate(ctx context.Context, p *model.Persona, def *archetype.Definition, post *model.Post, stats *SessionStats, dryRun bool) error {
	// 幂等检查放在"决策前"而不只是"写入前"
	alreadyLiked, err := s.alreadyLiked(ctx, p.ID, post.ID)
	if err != nil {
		return err
	}
	alreadyCommented, err := s.alreadyCommented(ctx, p.ID, post.ID)
	if err != nil {
		return err
	}

	author := s.loadAuthor(ctx, post)
	score := s.compat.Score(ctx, p, author)

	likedNow := false
	if !alreadyLiked && s.rnd.Float64() < def.BaseLikeRate*score {
		ok, err := s.like(ctx, p.ID, post.ID, dryRun)
		if err != nil {
			return err
		}
		if ok {
			likedNow = true
			stats.Likes++
			s.notify(ActionEvent{Type: EventLike, PersonaID: p.ID, TargetID: post.ID, DryRun: dryRun, At: s.now()})
		}
	}

	commentedNow := false
	// 评论率按构造恒 ≤ 点赞率（评论比点赞更稀少）
	if !alreadyCommented && s.rnd.Float64() < def.BaseCommentRate*score {
		body := s.commentText(ctx, p, def, post, author, dryRun)
		if !dryRun {
			comment := &model.Comment{ActorID: p.ID, PostID: post.ID, Body: body}
			if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
				return fmt.Errorf("failed to create comment: %w", err)
			}
		}
		commentedNow = true
		stats.Comments++
		s.notify(ActionEvent{Type: EventComment, PersonaID: p.ID, TargetID: post.ID, Detail: body, DryRun: dryRun, At: s.now()})
	}

	// 好友请求只在"有过互动"的对象上评估：本轮点了赞/评了论，
	// 或历史上已经互动过（跨会话的互动同样算数）
	engaged := likedNow || commentedNow || alreadyLiked || alreadyCommented
	if engaged && author != nil {
		sent, err := s.friends.MaybeRequest(ctx, p, author, stats.FriendRequests, dryRun)
		if err != nil {
			return err
		}
		if sent {
			stats.FriendRequests++
			s.notify(ActionEvent{Type: EventFriendRequest, PersonaID: p.ID, TargetID: author.ID, DryRun: dryRun, At: s.now()})
		}
	}
	return nil
}

// like 插入点赞；唯一约束冲突视为"已做过"，不算新动作
func (s *InteractionService) like(ctx context.Context, actorID, postID uuid.UUID, dryRun bool) (bool, error) {
	if dryRun {
		return true, nil
	}
	likeRow := &model.PostLike{ActorID: actorID, PostID: postID}
	if err := s.db.WithContext(ctx).Create(likeRow).Error; err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create like: %w", err)
	}
	return true, nil
}

// commentText 评论文本：固定概率直接走短语库（零成本、永远可用）；
// 否则构造富上下文调生成服务，失败仍回落短语库——评论路径永不依赖外部服务可用
func (s *InteractionService) commentText(ctx context.Context, p *model.Persona, def *archetype.Definition, post *model.Post, author *model.Persona, dryRun bool) string {
	targetTag := ""
	if author != nil {
		targetTag = author.Archetype
	}

	// dry-run 不花生成费用，统一走短语库
	if s.gen == nil || dryRun || s.rnd.Float64() < s.phraseProb {
		return archetype.Phrase(def.EngagementStyle, targetTag, s.rnd.Intn(1<<30))
	}

	req := provider.CommentRequest{
		Style:       def.EngagementStyle,
		Tone:        p.Tone,
		PostCaption: post.Caption,
		ActorFocus:  p.Goal,
	}
	if author != nil {
		req.AuthorFocus = author.Goal
		if history, err := s.compat.History(ctx, p.ID, author.ID); err == nil {
			if history.Total() > 0 {
				req.Relationship = fmt.Sprintf("you two exchanged %d interactions in the last month", history.Total())
			} else {
				req.Relationship = "you have not interacted before"
			}
		}
	}
	if post.MediaURL != nil && *post.MediaURL != "" {
		if desc, err := s.gen.DescribeImage(ctx, *post.MediaURL); err == nil {
			req.ImageDescription = desc
		}
	}
	if existing, err := s.existingComments(ctx, post.ID, 3); err == nil {
		req.ExistingComments = existing
	}

	body, err := s.gen.GenerateComment(ctx, req)
	if err != nil || body == "" {
		log.Printf("[WARN] persona %s: comment generation failed, using phrase bank: %v", p.ID, err)
		return archetype.Phrase(def.EngagementStyle, targetTag, s.rnd.Intn(1<<30))
	}
	return body
}

func (s *InteractionService) alreadyLiked(ctx context.Context, actorID, postID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.PostLike{}).
		Where("actor_id = ? AND post_id = ?", actorID, postID).
		Count(&count).Error
	return count > 0, err
}

func (s *InteractionService) alreadyCommented(ctx context.Context, actorID, postID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Comment{}).
		Where("actor_id = ? AND post_id = ?", actorID, postID).
		Count(&count).Error
	return count > 0, err
}

// loadAuthor 加载作者 persona；作者是真实用户时返回 nil（兼容度用默认基础分）
func (s *InteractionService) loadAuthor(ctx context.Context, post *model.Post) *model.Persona {
	if post.AuthorType != model.AuthorTypePersona {
		return nil
	}
	var author model.Persona
	if err := s.db.WithContext(ctx).First(&author, "id = ?", post.AuthorID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WARN] failed to load author %s: %v", post.AuthorID, err)
		}
		return nil
	}
	return &author
}

func (s *InteractionService) existingComments(ctx context.Context, postID uuid.UUID, limit int) ([]string, error) {
	var bodies []string
	err := s.db.WithContext(ctx).Model(&model.Comment{}).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Limit(limit).
		Pluck("body", &bodies).Error
	return bodies, err
}

func (s *InteractionService) notify(event ActionEvent) {
	if s.notifier != nil {
		s.notifier.NotifyAction(event)
	}
}
