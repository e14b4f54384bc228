package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	RedisURL      string
	RedisPassword string
	RedisDB       int

	GeminiAPIKey string
	JWTSecret    string // 管理接口的 token 密钥
	Port         string // -serve 模式监听端口

	ArchetypeFile string // 可选的原型参数覆盖文件（YAML）

	BatchSize         int           // 每批 persona 数
	BatchDelay        time.Duration // 批间延迟
	PersonaDelay      time.Duration // 同批内 persona 启动间隔（错峰调生成服务）
	RunBudget         int           // 单次运行最多处理的 persona 数
	CandidateWindow   time.Duration // 候选帖子的时间窗口
	PhraseProbability float64       // 评论直接走短语库（不调生成服务）的概率
}

func Load() *Config {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	batchSize, _ := strconv.Atoi(getEnv("BATCH_SIZE", "5"))
	batchDelaySec, _ := strconv.Atoi(getEnv("BATCH_DELAY_SECONDS", "5"))
	personaDelayMS, _ := strconv.Atoi(getEnv("PERSONA_DELAY_MS", "800"))
	runBudget, _ := strconv.Atoi(getEnv("RUN_BUDGET", "50"))
	windowHours, _ := strconv.Atoi(getEnv("CANDIDATE_WINDOW_HOURS", "48"))
	phraseProb, _ := strconv.ParseFloat(getEnv("PHRASE_PROBABILITY", "0.4"), 64)

	return &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		Port:         getEnv("PORT", "8080"),

		ArchetypeFile: os.Getenv("ARCHETYPE_FILE"),

		BatchSize:         batchSize,
		BatchDelay:        time.Duration(batchDelaySec) * time.Second,
		PersonaDelay:      time.Duration(personaDelayMS) * time.Millisecond,
		RunBudget:         runBudget,
		CandidateWindow:   time.Duration(windowHours) * time.Hour,
		PhraseProbability: phraseProb,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
