package service

import (
	"context"
	"testing"
	"time"

	"snapconnect_agents/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newRunnerFixture 组装完整批处理流水线（生成服务缺席，内容走保底）
func newRunnerFixture(t *testing.T, db *gorm.DB) (*RunnerService, *PersonaService) {
	t.Helper()

	personas := NewPersonaService(db)
	compat := NewCompatibilityService(db)
	friends := NewFriendshipService(db, compat)
	friends.SetRand(fixedRand{0})

	content := NewContentService(db, nil, nil)
	content.SetRand(fixedRand{0})

	interact := NewInteractionService(db, nil, nil, compat, friends)
	interact.SetRand(fixedRand{0})
	interact.SetSleep(noSleep)

	runner := NewRunnerService(personas, NewSchedulerService(), content, interact)
	runner.SetSleep(noSleep)
	runner.SetDefaults(3, time.Millisecond, time.Millisecond, 50)
	return runner, personas
}

// TestRun_DryRunWritesNothing 测试 dry-run 全流程零写入
//
// 测试目标：
// - 种群照常遍历、决策照常抽签，但任何表都没有新行
//
// 验证闭环：
// 1. 10 个 persona + 2 条既有帖子
// 2. dry-run 后处理数等于种群数，点赞计数非零（候选帖确实被看到了）
// 3. 帖子/点赞/评论/好友表行数与运行前一致
func TestRun_DryRunWritesNothing(t *testing.T) {
	db := newTestDB(t)
	runner, personaSvc := newRunnerFixture(t, db)
	ctx := context.Background()

	created, err := personaSvc.SeedPopulation(ctx, 2)
	require.NoError(t, err)
	require.Greater(t, created, 5)

	all, err := personaSvc.List(ctx)
	require.NoError(t, err)
	seedPost(t, db, &all[0], "progress", time.Time{})
	seedPost(t, db, &all[1], "flow_session", time.Time{})

	summary, err := runner.Run(ctx, RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, len(all), summary.PersonasProcessed)
	assert.Empty(t, summary.Errors)
	assert.Greater(t, summary.Likes, 0, "既有帖子应该被 dry-run 会话看到并计数")

	assert.Equal(t, int64(2), countRows(t, db, &model.Post{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.PostLike{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.Comment{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.Friendship{}))
}

// TestRun_IsolatesFailingPersona 测试单 persona 失败不拖垮批次
//
// 验证闭环：
// 1. 5 个正常 persona + 1 个未知原型的坏 persona
// 2. 运行整体无错误返回
// 3. 坏 persona 进错误清单，其余全部处理完
func TestRun_IsolatesFailingPersona(t *testing.T) {
	db := newTestDB(t)
	runner, personaSvc := newRunnerFixture(t, db)
	ctx := context.Background()

	_, err := personaSvc.SeedPopulation(ctx, 1)
	require.NoError(t, err)
	bad := &model.Persona{Archetype: "crossfitter", Seed: 99, Username: "bad_actor"}
	require.NoError(t, db.Create(bad).Error)

	summary, err := runner.Run(ctx, RunOptions{})
	require.NoError(t, err)

	require.Len(t, summary.Errors, 1)
	assert.Equal(t, bad.ID, summary.Errors[0].PersonaID)
	assert.Equal(t, "bad_actor", summary.Errors[0].Username)
	assert.Equal(t, 5, summary.PersonasProcessed)
}

// TestRun_RespectsBudget 测试单次运行预算截断
func TestRun_RespectsBudget(t *testing.T) {
	db := newTestDB(t)
	runner, personaSvc := newRunnerFixture(t, db)
	ctx := context.Background()

	_, err := personaSvc.SeedPopulation(ctx, 2)
	require.NoError(t, err)

	summary, err := runner.Run(ctx, RunOptions{DryRun: true, RunBudget: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.PersonasProcessed)
}

// TestRun_SubsetSelection 测试按 ID 子集运行
func TestRun_SubsetSelection(t *testing.T) {
	db := newTestDB(t)
	runner, personaSvc := newRunnerFixture(t, db)
	ctx := context.Background()

	_, err := personaSvc.SeedPopulation(ctx, 1)
	require.NoError(t, err)
	all, err := personaSvc.List(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 2)

	summary, err := runner.Run(ctx, RunOptions{
		DryRun:     true,
		PersonaIDs: []uuid.UUID{all[0].ID, all[1].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PersonasProcessed)
}

// TestRun_CancelledContextStopsBeforeFirstBatch 测试取消后的优雅停止
func TestRun_CancelledContextStopsBeforeFirstBatch(t *testing.T) {
	db := newTestDB(t)
	runner, personaSvc := newRunnerFixture(t, db)

	_, err := personaSvc.SeedPopulation(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runner.Run(ctx, RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, summary.PersonasProcessed)
	assert.False(t, summary.FinishedAt.IsZero())
}

// TestRun_SummaryBookkeeping 测试最近汇总与运行状态
func TestRun_SummaryBookkeeping(t *testing.T) {
	db := newTestDB(t)
	runner, personaSvc := newRunnerFixture(t, db)
	ctx := context.Background()

	assert.Nil(t, runner.LastSummary())
	assert.False(t, runner.Running())

	_, err := personaSvc.SeedPopulation(ctx, 1)
	require.NoError(t, err)

	summary, err := runner.Run(ctx, RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.Same(t, summary, runner.LastSummary())
	assert.False(t, runner.Running())
	assert.False(t, summary.StartedAt.IsZero())
	assert.False(t, summary.FinishedAt.IsZero())
}
