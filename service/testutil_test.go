package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"snapconnect_agents/archetype"
	"snapconnect_agents/model"
	"snapconnect_agents/provider"
	"snapconnect_agents/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个测试一个独立的内存 sqlite 库。
// TranslateError 必须和生产配置一致，唯一约束冲突才会映射成 gorm.ErrDuplicatedKey，
// 点赞/好友写入的幂等判定依赖这一行为
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接串行化，避免内存库在并发批次下的表锁问题
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, utils.Migrate(db))
	return db
}

// seedPersona 用确定性画像落一条 persona
func seedPersona(t *testing.T, db *gorm.DB, tag string, seed int64) *model.Persona {
	t.Helper()

	traits, err := archetype.GeneratePersonality(tag, seed)
	require.NoError(t, err)

	p := &model.Persona{
		Archetype:      tag,
		Seed:           seed,
		Username:       traits.Username,
		DisplayName:    traits.DisplayName,
		Bio:            traits.Bio,
		Goal:           traits.Goal,
		Tone:           traits.Tone,
		ContentTags:    strings.Join(traits.ContentTags, ","),
		PreferredHours: joinHours(traits.PreferredHours),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// seedPost 落一条帖子；at 非零时回写 created_at（用于窗口测试）
func seedPost(t *testing.T, db *gorm.DB, author *model.Persona, category string, at time.Time) *model.Post {
	t.Helper()

	url := "https://cdn.snapconnect.app/test/" + category + ".jpg"
	post := &model.Post{
		AuthorID:   author.ID,
		AuthorType: model.AuthorTypePersona,
		Caption:    "test caption for " + category,
		MediaURL:   &url,
		Category:   category,
	}
	require.NoError(t, db.Create(post).Error)
	if !at.IsZero() {
		require.NoError(t, db.Model(post).Update("created_at", at).Error)
	}
	return post
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

// fixedRand 固定值随机源：0 让所有概率分支都触发，0.999 让它们都不触发
type fixedRand struct{ v float64 }

func (r fixedRand) Float64() float64 { return r.v }
func (r fixedRand) Intn(n int) int   { return 0 }

// seqRand 依序弹出预置序列（循环使用）
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func (r *seqRand) Intn(n int) int { return 0 }

// stubGenerator 生成服务替身，fail 打开时所有方法返回 ErrUnavailable
type stubGenerator struct {
	fail    bool
	caption string
	comment string
}

func (g *stubGenerator) GenerateCaption(ctx context.Context, req provider.CaptionRequest) (string, error) {
	if g.fail {
		return "", provider.ErrUnavailable
	}
	return g.caption, nil
}

func (g *stubGenerator) GenerateComment(ctx context.Context, req provider.CommentRequest) (string, error) {
	if g.fail {
		return "", provider.ErrUnavailable
	}
	return g.comment, nil
}

func (g *stubGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if g.fail {
		return nil, provider.ErrUnavailable
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (g *stubGenerator) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	if g.fail {
		return "", provider.ErrUnavailable
	}
	return "a person mid workout in soft morning light", nil
}

// stubUploader 上传替身
type stubUploader struct {
	url  string
	fail bool
}

func (u *stubUploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if u.fail {
		return "", fmt.Errorf("upload rejected")
	}
	return u.url, nil
}

func noSleep(time.Duration) {}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
