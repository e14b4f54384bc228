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

// Uploader 生成图片的落盘/上传抽象（对象存储在引擎范围之外，这里只消费接口）
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// ContentService 内容编排器：把一次 post_now 判定变成一条落库的帖子。
// 生成服务任何一步失败都走原型的静态保底文案/配图，不会让整轮运行失败
type ContentService struct {
	db       *gorm.DB
	rdb      *redis.Client
	gen      provider.Generator
	uploader Uploader
	rnd      Rand
	now      func() time.Time
	notifier ActionNotifier
}

func NewContentService(db *gorm.DB, rdb *redis.Client, gen provider.Generator) *ContentService {
	return &ContentService{
		db:  db,
		rdb: rdb,
		gen: gen,
		rnd: NewRand(),
		now: time.Now,
	}
}

func (s *ContentService) SetRand(r Rand)                { s.rnd = r }
func (s *ContentService) SetClock(now func() time.Time) { s.now = now }
func (s *ContentService) SetUploader(u Uploader)        { s.uploader = u }
func (s *ContentService) SetNotifier(n ActionNotifier)  { s.notifier = n }

// GenerateAndPublish 生成并发布一条帖子，返回帖子 ID。
// 每日一帖硬性限制：Redis 快路径 + DB 游标权威判定。
// LastPostedAt 游标严格在帖子落库成功之后才更新——中途崩溃不会把 persona
// 错标成"已发"，重试时调度器仍会放行
func (s *ContentService) GenerateAndPublish(ctx context.Context, p *model.Persona, typeHint string, dryRun bool) (uuid.UUID, error) {
	now := s.now()

	if utils.WasPostedToday(ctx, s.rdb, p.ID, now) {
		return uuid.Nil, ErrDailyCapReached
	}
	// DB 游标是权威数据：重读一次，防止同日并发/重复调用
	var fresh model.Persona
	if err := s.db.WithContext(ctx).Select("last_posted_at").First(&fresh, "id = ?", p.ID).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to reload persona cursor: %w", err)
	}
	if fresh.LastPostedAt != nil {
		p.LastPostedAt = fresh.LastPostedAt
	}
	if p.PostedOn(now) {
		return uuid.Nil, ErrDailyCapReached
	}

	def, err := archetype.Lookup(p.Archetype)
	if err != nil {
		return uuid.Nil, err
	}

	category := typeHint
	if category == "" {
		category = s.pickCategory(def, now)
	}

	// dry-run 不产生写也不产生生成费用：决策照常，内容直接用保底
	if dryRun {
		s.notify(ActionEvent{Type: EventPost, PersonaID: p.ID, Detail: category, DryRun: true, At: now})
		return uuid.Nil, nil
	}

	caption := s.caption(ctx, p, def, category)
	mediaURL := s.media(ctx, def, category, caption)

	post := &model.Post{
		AuthorID:   p.ID,
		AuthorType: model.AuthorTypePersona,
		Caption:    caption,
		MediaURL:   &mediaURL,
		Category:   category,
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist post: %w", err)
	}

	// 游标更新必须在落库成功之后
	if err := s.db.WithContext(ctx).Model(&model.Persona{}).
		Where("id = ?", p.ID).
		Update("last_posted_at", now).Error; err != nil {
		return post.ID, fmt.Errorf("failed to update last_posted_at: %w", err)
	}
	p.LastPostedAt = &now
	utils.MarkPostedToday(ctx, s.rdb, p.ID, now)

	s.notify(ActionEvent{Type: EventPost, PersonaID: p.ID, TargetID: post.ID, Detail: category, At: now})
	return post.ID, nil
}

// pickCategory 按原型权重抽内容类目，叠加星期主题偏置
// （周末偏户外/晨景，周一偏打气和进度贴）
func (s *ContentService) pickCategory(def *archetype.Definition, now time.Time) string {
	weekday := now.UTC().Weekday()
	total := 0.0
	weights := make([]float64, len(def.Categories))
	for i, cw := range def.Categories {
		w := cw.Weight
		switch {
		case (weekday == time.Saturday || weekday == time.Sunday) &&
			(cw.Category == "trail_run" || cw.Category == "sunrise" || cw.Category == "flow_session"):
			w *= 1.5
		case weekday == time.Monday &&
			(cw.Category == "motivation" || cw.Category == "progress"):
			w *= 1.5
		}
		weights[i] = w
		total += w
	}

	draw := s.rnd.Float64() * total
	for i, w := range weights {
		draw -= w
		if draw < 0 {
			return def.Categories[i].Category
		}
	}
	return def.Categories[len(def.Categories)-1].Category
}

// caption 生成文案；带最近 2 条旧文案做去重提示，失败走静态保底
func (s *ContentService) caption(ctx context.Context, p *model.Persona, def *archetype.Definition, category string) string {
	recent, err := s.recentCaptions(ctx, p.ID, 2)
	if err != nil {
		log.Printf("[WARN] persona %s: failed to load recent captions: %v", p.ID, err)
	}

	if s.gen != nil {
		text, err := s.gen.GenerateCaption(ctx, provider.CaptionRequest{
			DisplayName:    p.DisplayName,
			Archetype:      p.Archetype,
			Tone:           p.Tone,
			Goal:           p.Goal,
			Category:       category,
			RecentCaptions: recent,
		})
		if err == nil && text != "" {
			return text
		}
		log.Printf("[WARN] persona %s: caption generation failed, using fallback: %v", p.ID, err)
	}
	return def.FallbackCaptions[s.rnd.Intn(len(def.FallbackCaptions))]
}

// media 生成并上传配图；任一步失败用原型保底图
func (s *ContentService) media(ctx context.Context, def *archetype.Definition, category, caption string) string {
	if s.gen == nil || s.uploader == nil {
		return def.FallbackImageURL
	}

	prompt := fmt.Sprintf("Realistic smartphone photo for a fitness social app, %s theme: %s", category, caption)
	data, err := s.gen.GenerateImage(ctx, prompt)
	if err != nil {
		log.Printf("[WARN] image generation failed, using fallback: %v", err)
		return def.FallbackImageURL
	}
	url, err := s.uploader.Upload(ctx, data, "image/png")
	if err != nil {
		log.Printf("[WARN] image upload failed, using fallback: %v", err)
		return def.FallbackImageURL
	}
	return url
}

func (s *ContentService) recentCaptions(ctx context.Context, authorID uuid.UUID, limit int) ([]string, error) {
	var captions []string
	err := s.db.WithContext(ctx).Model(&model.Post{}).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Limit(limit).
		Pluck("caption", &captions).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return captions, nil
}

func (s *ContentService) notify(event ActionEvent) {
	if s.notifier != nil {
		s.notifier.NotifyAction(event)
	}
}
