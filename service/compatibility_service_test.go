package service

import (
	"context"
	"testing"
	"time"

	"snapconnect_agents/archetype"
	"snapconnect_agents/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScore_TotalAndBounded 测试兼容度的全函数性
//
// 测试目标：
// - 任意一对 persona（包括无任何互动历史的）都能算出 [0,1] 内的分数
//
// 验证闭环：
// 1. 每个原型落一个 persona
// 2. 全部有序对（含自反）打分，断言值域
func TestScore_TotalAndBounded(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompatibilityService(db)
	ctx := context.Background()

	var personas []*model.Persona
	for i, tag := range archetype.Tags() {
		personas = append(personas, seedPersona(t, db, tag, int64(i+1)))
	}

	for _, actor := range personas {
		for _, target := range personas {
			score := svc.Score(ctx, actor, target)
			assert.GreaterOrEqual(t, score, 0.0, "%s -> %s", actor.Archetype, target.Archetype)
			assert.LessOrEqual(t, score, 1.0, "%s -> %s", actor.Archetype, target.Archetype)
		}
	}
}

// TestScore_NilTargetUsesBaseScore 测试目标是真实用户（非 persona）时的基础分
func TestScore_NilTargetUsesBaseScore(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompatibilityService(db)
	actor := seedPersona(t, db, archetype.GymRat, 1)

	assert.Equal(t, nonPersonaBaseScore, svc.Score(context.Background(), actor, nil))
}

// TestScore_NoHistoryEqualsMatrix 测试零历史时退化为原型矩阵基础分
//
// gym_rat 和 yoga_flow 的内容类目不相交，不存在共同标签加成，
// 分数应精确等于矩阵行值
func TestScore_NoHistoryEqualsMatrix(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompatibilityService(db)
	ctx := context.Background()

	actor := seedPersona(t, db, archetype.GymRat, 1)
	target := seedPersona(t, db, archetype.YogaFlow, 2)
	require.Zero(t, sharedTags(actor.TagList(), target.TagList()))

	expected := archetype.Affinity(archetype.GymRat, archetype.YogaFlow)
	assert.InDelta(t, expected, svc.Score(ctx, actor, target), 1e-9)
}

// TestHistory_CountsDirectionsAndWindow 测试互动历史的方向区分和时间窗口
//
// 验证闭环：
// 1. actor 对 target 的帖子点赞 1 次 + 评论 1 次 -> ActorToTarget == 2
// 2. target 对 actor 的帖子点赞 1 次 -> TargetToActor == 1，Mutual 为真
// 3. 窗口外（40 天前）的点赞不计入
func TestHistory_CountsDirectionsAndWindow(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompatibilityService(db)
	ctx := context.Background()

	actor := seedPersona(t, db, archetype.GymRat, 1)
	target := seedPersona(t, db, archetype.YogaFlow, 2)

	targetPost := seedPost(t, db, target, "flow_session", time.Time{})
	actorPost := seedPost(t, db, actor, "pr_attempt", time.Time{})

	require.NoError(t, db.Create(&model.PostLike{ActorID: actor.ID, PostID: targetPost.ID}).Error)
	require.NoError(t, db.Create(&model.Comment{ActorID: actor.ID, PostID: targetPost.ID, Body: "nice flow"}).Error)
	require.NoError(t, db.Create(&model.PostLike{ActorID: target.ID, PostID: actorPost.ID}).Error)

	// 窗口外的旧点赞：target 的第二条帖子，40 天前被赞过
	oldPost := seedPost(t, db, target, "sunrise", time.Time{})
	oldLike := &model.PostLike{ActorID: actor.ID, PostID: oldPost.ID}
	require.NoError(t, db.Create(oldLike).Error)
	require.NoError(t, db.Model(oldLike).Update("created_at", time.Now().Add(-40*24*time.Hour)).Error)

	h, err := svc.History(ctx, actor.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.ActorToTarget)
	assert.Equal(t, int64(1), h.TargetToActor)
	assert.Equal(t, int64(3), h.Total())
	assert.True(t, h.Mutual())
}

// TestScore_HistoryBonusesApplied 测试高频和双向加成叠加
//
// gym_rat -> yoga_flow 基础分 + 0.2（窗口内 ≥3 次）+ 0.3（双向）
func TestScore_HistoryBonusesApplied(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompatibilityService(db)
	ctx := context.Background()

	actor := seedPersona(t, db, archetype.GymRat, 1)
	target := seedPersona(t, db, archetype.YogaFlow, 2)
	require.Zero(t, sharedTags(actor.TagList(), target.TagList()))

	p1 := seedPost(t, db, target, "flow_session", time.Time{})
	p2 := seedPost(t, db, target, "mindfulness", time.Time{})
	p3 := seedPost(t, db, actor, "pr_attempt", time.Time{})
	require.NoError(t, db.Create(&model.PostLike{ActorID: actor.ID, PostID: p1.ID}).Error)
	require.NoError(t, db.Create(&model.PostLike{ActorID: actor.ID, PostID: p2.ID}).Error)
	require.NoError(t, db.Create(&model.PostLike{ActorID: target.ID, PostID: p3.ID}).Error)

	expected := archetype.Affinity(archetype.GymRat, archetype.YogaFlow) + frequentBonus + mutualBonus
	assert.InDelta(t, expected, svc.Score(ctx, actor, target), 1e-9)
}

// TestScore_SharedJourneyAndTags 测试同路人加成和共同标签加成（带钳位）
func TestScore_SharedJourneyAndTags(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompatibilityService(db)
	ctx := context.Background()

	actor := seedPersona(t, db, archetype.FitnessNewbie, 1)
	target := seedPersona(t, db, archetype.FitnessNewbie, 2)

	expected := archetype.Affinity(archetype.FitnessNewbie, archetype.FitnessNewbie) +
		sharedJourneyBonus +
		sharedTagBonus*float64(sharedTags(actor.TagList(), target.TagList()))
	if expected > 1 {
		expected = 1
	}
	assert.InDelta(t, expected, svc.Score(ctx, actor, target), 1e-9)
}

// TestSharedTags 测试共同标签计数
func TestSharedTags(t *testing.T) {
	assert.Equal(t, 2, sharedTags([]string{"progress", "meal_prep", "sunrise"}, []string{"meal_prep", "progress"}))
	assert.Equal(t, 0, sharedTags(nil, []string{"progress"}))
	assert.Equal(t, 0, sharedTags([]string{"progress"}, nil))
}
