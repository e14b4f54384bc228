package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"snapconnect_agents/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var rdb *redis.Client

// InitRedis 初始化 Redis 连接
func InitRedis(url, password string, db int) error {
	rdb = redis.NewClient(&redis.Options{
		Addr:     url,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	log.Println("Redis connected")
	return nil
}

// GetRedis 获取 Redis 客户端
func GetRedis() *redis.Client {
	return rdb
}

// CloseRedis 关闭 Redis 连接
func CloseRedis() error {
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}

// ---- 引擎专用的缓存键 ----
// 以下函数都对 client==nil 安全：没有 Redis 时退化为 DB 查询路径

// dailyPostKey 每日一帖守卫键，午夜（UTC）过期
func dailyPostKey(personaID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("posted:%s:%s", personaID, day.UTC().Format("2006-01-02"))
}

// MarkPostedToday 发帖成功后写守卫键（快路径，DB 游标仍是权威数据）
func MarkPostedToday(ctx context.Context, client *redis.Client, personaID uuid.UUID, now time.Time) {
	if client == nil {
		return
	}
	midnight := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	client.Set(ctx, dailyPostKey(personaID, now), 1, time.Until(midnight))
}

// WasPostedToday 查守卫键；Redis 不可用按"未发"处理，由 DB 游标兜底
func WasPostedToday(ctx context.Context, client *redis.Client, personaID uuid.UUID, now time.Time) bool {
	if client == nil {
		return false
	}
	n, err := client.Exists(ctx, dailyPostKey(personaID, now)).Result()
	return err == nil && n > 0
}

// CacheCandidatePosts 缓存一轮会话的候选帖子池（短 TTL，批内共享）
func CacheCandidatePosts(ctx context.Context, client *redis.Client, posts []model.Post) {
	if client == nil || len(posts) == 0 {
		return
	}
	data, err := json.Marshal(posts)
	if err != nil {
		return
	}
	client.Set(ctx, "candidate_posts", data, 5*time.Minute)
}

// GetCachedCandidatePosts 读候选帖子池缓存；未命中返回 nil
func GetCachedCandidatePosts(ctx context.Context, client *redis.Client) []model.Post {
	if client == nil {
		return nil
	}
	data, err := client.Get(ctx, "candidate_posts").Bytes()
	if err != nil {
		return nil
	}
	var posts []model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil
	}
	return posts
}
