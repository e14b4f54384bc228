package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"snapconnect_agents/model"

	"github.com/google/uuid"
)

// RunOptions 一次运行的参数（零值字段用构造时的默认值）
type RunOptions struct {
	PersonaIDs   []uuid.UUID   // 为空表示全量种群
	DryRun       bool          // 只决策和计数，不落任何写、不花生成费用
	BatchSize    int
	BatchDelay   time.Duration
	PersonaDelay time.Duration // 批内 persona 的错峰启动间隔
	RunBudget    int           // 单次运行最多处理的 persona 数（控制生成服务开销）
	ContentType  string        // 内容类目覆盖
}

// PersonaError 单个 persona 的失败记录
type PersonaError struct {
	PersonaID uuid.UUID `json:"persona_id"`
	Username  string    `json:"username"`
	Error     string    `json:"error"`
}

// RunSummary 运行汇总报告
type RunSummary struct {
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`
	DryRun            bool           `json:"dry_run"`
	PersonasProcessed int            `json:"personas_processed"`
	PostsCreated      int            `json:"posts_created"`
	Likes             int            `json:"likes"`
	Comments          int            `json:"comments"`
	FriendRequests    int            `json:"friend_requests"`
	Errors            []PersonaError `json:"errors"`
}

// RunnerService 批次驱动器 / 速率调节器。
// 整轮运行的唯一错误边界：单个 persona 的异常（包括 panic）被捕获、
// 记入汇总，绝不中断批次
type RunnerService struct {
	personas     *PersonaService
	scheduler    *SchedulerService
	content      *ContentService
	interactions *InteractionService

	batchSize    int
	batchDelay   time.Duration
	personaDelay time.Duration
	runBudget    int
	sleep        func(d time.Duration)

	mu          sync.Mutex
	lastSummary *RunSummary
	running     bool
}

func NewRunnerService(personas *PersonaService, scheduler *SchedulerService, content *ContentService, interactions *InteractionService) *RunnerService {
	return &RunnerService{
		personas:     personas,
		scheduler:    scheduler,
		content:      content,
		interactions: interactions,
		batchSize:    5,
		batchDelay:   5 * time.Second,
		personaDelay: 800 * time.Millisecond,
		runBudget:    50,
		sleep:        time.Sleep,
	}
}

func (s *RunnerService) SetDefaults(batchSize int, batchDelay, personaDelay time.Duration, runBudget int) {
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	if batchDelay > 0 {
		s.batchDelay = batchDelay
	}
	if personaDelay > 0 {
		s.personaDelay = personaDelay
	}
	if runBudget > 0 {
		s.runBudget = runBudget
	}
}

func (s *RunnerService) SetSleep(fn func(time.Duration)) { s.sleep = fn }

// LastSummary 最近一次运行的汇总（管理接口用）
func (s *RunnerService) LastSummary() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummary
}

// Running 是否有运行在进行中
func (s *RunnerService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run 按固定大小批次遍历种群。批内 persona 并发（互相无共享可变状态），
// 批与批之间串行并留延迟；批间隙是优雅停止检查点（ctx 取消在这里生效）
func (s *RunnerService) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("a run is already in progress")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	batchDelay := opts.BatchDelay
	if batchDelay <= 0 {
		batchDelay = s.batchDelay
	}
	personaDelay := opts.PersonaDelay
	if personaDelay < 0 {
		personaDelay = s.personaDelay
	}
	budget := opts.RunBudget
	if budget <= 0 {
		budget = s.runBudget
	}

	var personas []model.Persona
	var err error
	if len(opts.PersonaIDs) > 0 {
		personas, err = s.personas.GetByIDs(ctx, opts.PersonaIDs)
	} else {
		personas, err = s.personas.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(personas) > budget {
		personas = personas[:budget]
	}

	summary := &RunSummary{StartedAt: time.Now(), DryRun: opts.DryRun}
	var sumMu sync.Mutex

	log.Printf("🤖 run started: %d personas, batch=%d, dry_run=%v", len(personas), batchSize, opts.DryRun)

	for start := 0; start < len(personas); start += batchSize {
		// 批间隙：优雅停止检查点
		if ctx.Err() != nil {
			log.Printf("run cancelled after %d personas", summary.PersonasProcessed)
			break
		}

		end := start + batchSize
		if end > len(personas) {
			end = len(personas)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			persona := personas[i]
			wg.Add(1)
			// 批内错峰启动，避免同时打生成服务
			stagger := time.Duration(i-start) * personaDelay
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						sumMu.Lock()
						summary.Errors = append(summary.Errors, PersonaError{
							PersonaID: persona.ID,
							Username:  persona.Username,
							Error:     fmt.Sprintf("panic: %v", r),
						})
						sumMu.Unlock()
						log.Printf("[ERROR] persona %s (%s): panic recovered: %v", persona.Username, persona.ID, r)
					}
				}()
				if stagger > 0 {
					s.sleep(stagger)
				}
				s.processPersona(ctx, &persona, opts, summary, &sumMu)
			}()
		}
		wg.Wait()

		if end < len(personas) {
			select {
			case <-ctx.Done():
			case <-time.After(batchDelay):
			}
		}
	}

	summary.FinishedAt = time.Now()
	log.Printf("🏁 run finished: %d personas, %d posts, %d likes, %d comments, %d friend requests, %d errors",
		summary.PersonasProcessed, summary.PostsCreated, summary.Likes,
		summary.Comments, summary.FriendRequests, len(summary.Errors))

	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()
	return summary, nil
}

// processPersona 单个 persona 的完整流水线：调度判定 -> 发帖 -> 互动会话。
// 任何一步出错只记入汇总，不向外传播
func (s *RunnerService) processPersona(ctx context.Context, p *model.Persona, opts RunOptions, summary *RunSummary, sumMu *sync.Mutex) {
	record := func(err error) {
		sumMu.Lock()
		summary.Errors = append(summary.Errors, PersonaError{PersonaID: p.ID, Username: p.Username, Error: err.Error()})
		sumMu.Unlock()
	}

	decision, reason, err := s.scheduler.Decide(p, time.Now())
	if err != nil {
		record(err)
		log.Printf("❌ %s: %v", p.Username, err)
		return
	}

	posted := false
	if decision == DecisionPostNow {
		_, err := s.content.GenerateAndPublish(ctx, p, opts.ContentType, opts.DryRun)
		switch {
		case err == nil:
			posted = true
			sumMu.Lock()
			summary.PostsCreated++
			sumMu.Unlock()
		case errors.Is(err, ErrDailyCapReached):
			// 当天已发过，正常跳过
		default:
			record(err)
			log.Printf("❌ %s: publish failed: %v", p.Username, err)
		}
	}

	stats, err := s.interactions.RunSession(ctx, p, opts.DryRun)
	if err != nil && !errors.Is(err, context.Canceled) {
		record(err)
		log.Printf("❌ %s: session failed: %v", p.Username, err)
	}

	sumMu.Lock()
	summary.PersonasProcessed++
	if stats != nil {
		summary.Likes += stats.Likes
		summary.Comments += stats.Comments
		summary.FriendRequests += stats.FriendRequests
	}
	sumMu.Unlock()

	if stats != nil {
		log.Printf("✅ %s: decision=%s (%s) posted=%v likes=%d comments=%d requests=%d",
			p.Username, decision, reason, posted, stats.Likes, stats.Comments, stats.FriendRequests)
	}
}
