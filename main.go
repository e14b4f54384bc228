package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"snapconnect_agents/archetype"
	"snapconnect_agents/config"
	"snapconnect_agents/handler"
	"snapconnect_agents/middleware"
	"snapconnect_agents/provider"
	"snapconnect_agents/service"
	"snapconnect_agents/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	// 设置时区为 UTC（调度按 UTC 自然日判定）
	time.Local = time.UTC
}

func main() {
	personaFlag := flag.String("personas", "all", "逗号分隔的 persona ID 列表，或 'all'")
	dryRun := flag.Bool("dry-run", false, "只决策和计数，不落任何写")
	batchSize := flag.Int("batch-size", 0, "每批 persona 数（覆盖配置）")
	runBudget := flag.Int("daily-limit", 0, "单次运行最多处理的 persona 数（覆盖配置）")
	contentType := flag.String("content-type", "", "内容类目覆盖")
	seedCount := flag.Int("seed-count", 0, "每个原型种子化的 persona 数；>0 时只做种子化")
	serveMode := flag.Bool("serve", false, "启动管理服务（监听 PORT），不跑批")
	flag.Parse()

	cfg := config.Load()

	if err := utils.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer utils.CloseDB()

	if err := utils.Migrate(utils.GetDB()); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	// Redis 可选：连不上时守卫和候选池缓存退化为 DB 查询
	if err := utils.InitRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Printf("[WARN] Redis unavailable, falling back to DB-only guards: %v", err)
	} else {
		defer utils.CloseRedis()
	}

	if err := archetype.LoadOverrides(cfg.ArchetypeFile); err != nil {
		log.Fatalf("Failed to load archetype overrides: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 生成服务可选：没有 API key 时全部内容走静态保底
	var gen provider.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := provider.NewGeminiGenerator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Printf("[WARN] generation provider unavailable, using fallback content only: %v", err)
		} else {
			gen = g
			log.Println("✨ Generation provider ready")
		}
	} else {
		log.Println("No GEMINI_API_KEY set, using fallback content only")
	}

	db := utils.GetDB()
	rdb := utils.GetRedis()

	personaSvc := service.NewPersonaService(db)
	compatSvc := service.NewCompatibilityService(db)
	contentSvc := service.NewContentService(db, rdb, gen)
	friendSvc := service.NewFriendshipService(db, compatSvc)
	interactSvc := service.NewInteractionService(db, rdb, gen, compatSvc, friendSvc)
	interactSvc.SetPhraseProbability(cfg.PhraseProbability)
	interactSvc.SetCandidateWindow(cfg.CandidateWindow)

	runner := service.NewRunnerService(personaSvc, service.NewSchedulerService(), contentSvc, interactSvc)
	runner.SetDefaults(cfg.BatchSize, cfg.BatchDelay, cfg.PersonaDelay, cfg.RunBudget)

	if *seedCount > 0 {
		created, err := personaSvc.SeedPopulation(ctx, *seedCount)
		if err != nil {
			log.Fatalf("Seeding failed after %d personas: %v", created, err)
		}
		log.Printf("🌱 Seeded %d new personas", created)
		return
	}

	if *serveMode {
		serve(":"+cfg.Port, cfg, runner, personaSvc, contentSvc, interactSvc)
		return
	}

	opts := service.RunOptions{
		DryRun:      *dryRun,
		BatchSize:   *batchSize,
		RunBudget:   *runBudget,
		ContentType: *contentType,
	}
	if *personaFlag != "" && *personaFlag != "all" {
		for _, raw := range strings.Split(*personaFlag, ",") {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				log.Fatalf("Invalid persona id %q: %v", raw, err)
			}
			opts.PersonaIDs = append(opts.PersonaIDs, id)
		}
	}

	summary, err := runner.Run(ctx, opts)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	if len(summary.Errors) > 0 {
		os.Exit(1)
	}
}

// serve 管理服务模式：批还是只能手动/定时触发，这里只提供触发和观察面
func serve(addr string, cfg *config.Config, runner *service.RunnerService, personaSvc *service.PersonaService, contentSvc *service.ContentService, interactSvc *service.InteractionService) {
	middleware.InitAuth(cfg.JWTSecret)

	// 活动流 Hub 注入到两个动作源
	hub := handler.NewFeedHub()
	contentSvc.SetNotifier(hub)
	interactSvc.SetNotifier(hub)

	runHandler := handler.NewRunHandler(runner, personaSvc)

	r := gin.Default()
	r.Use(middleware.ErrorHandlerMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{"status": "ok"})
	})

	// WebSocket 活动流（观察端）
	r.GET("/ws", handler.HandleFeed(hub))

	// 管理 API（需要认证）
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("/runs", runHandler.TriggerRun)
		api.GET("/runs/latest", runHandler.LatestSummary)
		api.GET("/personas", runHandler.ListPersonas)
	}

	log.Printf("🚀 Admin server listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
