package service

import (
	"context"
	"testing"
	"time"

	"snapconnect_agents/archetype"
	"snapconnect_agents/model"
	"snapconnect_agents/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newInteractionFixture 组装互动服务及其依赖，所有概率分支用固定随机源
func newInteractionFixture(t *testing.T, db *gorm.DB, gen provider.Generator) *InteractionService {
	t.Helper()

	compat := NewCompatibilityService(db)
	friends := NewFriendshipService(db, compat)
	friends.SetRand(fixedRand{0})

	svc := NewInteractionService(db, nil, gen, compat, friends)
	svc.SetRand(fixedRand{0})
	svc.SetSleep(noSleep)
	return svc
}

// TestRunSession_ActsOnceAndStaysIdempotent 测试会话动作与跨会话幂等
//
// 测试目标：
// - 固定随机源下每条候选帖恰好点赞一次、评论一次
// - 第二个会话不产生任何新动作（决策前幂等检查生效）
//
// 验证闭环：
// 1. 会话一：2 条候选 -> 2 赞 2 评 1 好友请求（第二条候选因已有边被拒）
// 2. 会话二：统计全零，行数不变
// 3. LastSessionAt 游标已更新
func TestRunSession_ActsOnceAndStaysIdempotent(t *testing.T) {
	db := newTestDB(t)
	actor := seedPersona(t, db, archetype.FitnessNewbie, 1)
	author := seedPersona(t, db, archetype.YogaFlow, 2)
	seedPost(t, db, author, "flow_session", time.Time{})
	seedPost(t, db, author, "mindfulness", time.Time{})

	svc := newInteractionFixture(t, db, nil)

	stats, err := svc.RunSession(context.Background(), actor, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Seen)
	assert.Equal(t, 2, stats.Likes)
	assert.Equal(t, 2, stats.Comments)
	assert.Equal(t, 1, stats.FriendRequests)

	assert.Equal(t, int64(2), countRows(t, db, &model.PostLike{}))
	assert.Equal(t, int64(2), countRows(t, db, &model.Comment{}))
	assert.Equal(t, int64(1), countRows(t, db, &model.Friendship{}))

	stats, err = svc.RunSession(context.Background(), actor, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Seen)
	assert.Zero(t, stats.Likes)
	assert.Zero(t, stats.Comments)
	assert.Zero(t, stats.FriendRequests)

	assert.Equal(t, int64(2), countRows(t, db, &model.PostLike{}))
	assert.Equal(t, int64(2), countRows(t, db, &model.Comment{}))
	assert.Equal(t, int64(1), countRows(t, db, &model.Friendship{}))

	var fresh model.Persona
	require.NoError(t, db.First(&fresh, "id = ?", actor.ID).Error)
	assert.NotNil(t, fresh.LastSessionAt)
}

// TestRunSession_SkipsOwnPosts 测试候选池排除自己的帖子
func TestRunSession_SkipsOwnPosts(t *testing.T) {
	db := newTestDB(t)
	author := seedPersona(t, db, archetype.GymRat, 1)
	seedPost(t, db, author, "pr_attempt", time.Time{})

	svc := newInteractionFixture(t, db, nil)

	stats, err := svc.RunSession(context.Background(), author, false)
	require.NoError(t, err)
	assert.Zero(t, stats.Seen)
	assert.Equal(t, int64(0), countRows(t, db, &model.PostLike{}))
}

// TestRunSession_WindowExcludesStalePosts 测试候选窗口外的旧帖不进池
func TestRunSession_WindowExcludesStalePosts(t *testing.T) {
	db := newTestDB(t)
	actor := seedPersona(t, db, archetype.HomeWorkout, 1)
	author := seedPersona(t, db, archetype.YogaFlow, 2)
	seedPost(t, db, author, "sunrise", time.Now().Add(-72*time.Hour))

	svc := newInteractionFixture(t, db, nil)

	stats, err := svc.RunSession(context.Background(), actor, false)
	require.NoError(t, err)
	assert.Zero(t, stats.Seen)
}

// TestRunSession_FriendRequestSessionCap 测试单会话好友请求上限
//
// 验证闭环：3 个作者都触发互动，但好友请求只发出 MaxRequestsPerSession 个
func TestRunSession_FriendRequestSessionCap(t *testing.T) {
	db := newTestDB(t)
	actor := seedPersona(t, db, archetype.FitnessNewbie, 1)
	for i, tag := range []string{archetype.YogaFlow, archetype.OutdoorRunner, archetype.HomeWorkout} {
		author := seedPersona(t, db, tag, int64(i+2))
		seedPost(t, db, author, "progress", time.Time{})
	}

	svc := newInteractionFixture(t, db, nil)

	stats, err := svc.RunSession(context.Background(), actor, false)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Seen)
	assert.Equal(t, 3, stats.Likes)
	assert.Equal(t, MaxRequestsPerSession, stats.FriendRequests)
	assert.Equal(t, int64(MaxRequestsPerSession), countRows(t, db, &model.Friendship{}))
}

// TestRunSession_DryRunWritesNothing 测试 dry-run 决策照常但零写入
func TestRunSession_DryRunWritesNothing(t *testing.T) {
	db := newTestDB(t)
	actor := seedPersona(t, db, archetype.FitnessNewbie, 1)
	author := seedPersona(t, db, archetype.YogaFlow, 2)
	seedPost(t, db, author, "flow_session", time.Time{})
	seedPost(t, db, author, "mindfulness", time.Time{})

	svc := newInteractionFixture(t, db, nil)

	stats, err := svc.RunSession(context.Background(), actor, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Likes)
	assert.Equal(t, 2, stats.Comments)
	assert.Equal(t, 1, stats.FriendRequests)

	assert.Equal(t, int64(0), countRows(t, db, &model.PostLike{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.Comment{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.Friendship{}))

	var fresh model.Persona
	require.NoError(t, db.First(&fresh, "id = ?", actor.ID).Error)
	assert.Nil(t, fresh.LastSessionAt)
}

// TestRunSession_CommentFallsBackToPhraseBank 测试评论生成失败回落短语库
//
// 验证闭环：短语概率置零逼出生成路径，生成器恒失败，评论正文仍非空
func TestRunSession_CommentFallsBackToPhraseBank(t *testing.T) {
	db := newTestDB(t)
	actor := seedPersona(t, db, archetype.GymRat, 1)
	author := seedPersona(t, db, archetype.OutdoorRunner, 2)
	seedPost(t, db, author, "trail_run", time.Time{})

	svc := newInteractionFixture(t, db, &stubGenerator{fail: true})
	svc.SetPhraseProbability(0)

	stats, err := svc.RunSession(context.Background(), actor, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Comments)

	var comments []model.Comment
	require.NoError(t, db.Find(&comments).Error)
	require.Len(t, comments, 1)
	assert.NotEmpty(t, comments[0].Body)
}

// TestRunSession_ProviderComment 测试生成服务可用时评论用生成正文
func TestRunSession_ProviderComment(t *testing.T) {
	db := newTestDB(t)
	actor := seedPersona(t, db, archetype.YogaFlow, 1)
	author := seedPersona(t, db, archetype.FitnessNewbie, 2)
	seedPost(t, db, author, "progress", time.Time{})

	svc := newInteractionFixture(t, db, &stubGenerator{comment: "Love seeing this consistency, keep going"})
	svc.SetPhraseProbability(0)

	stats, err := svc.RunSession(context.Background(), actor, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Comments)

	var comment model.Comment
	require.NoError(t, db.First(&comment).Error)
	assert.Equal(t, "Love seeing this consistency, keep going", comment.Body)
}

// TestRunSession_UnknownArchetype 测试未知原型会话直接报错
func TestRunSession_UnknownArchetype(t *testing.T) {
	db := newTestDB(t)
	p := &model.Persona{Archetype: "crossfitter", Seed: 9, Username: "ghost_runner"}
	require.NoError(t, db.Create(p).Error)

	svc := newInteractionFixture(t, db, nil)
	_, err := svc.RunSession(context.Background(), p, false)
	assert.ErrorIs(t, err, archetype.ErrInvalidArchetype)
}
