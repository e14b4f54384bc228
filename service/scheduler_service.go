package service

import (
	"fmt"
	"hash/fnv"
	"time"

	"snapconnect_agents/archetype"
	"snapconnect_agents/model"
)

// Decision 发帖时机判定结果
type Decision int

const (
	DecisionPostNow Decision = iota
	DecisionDefer
	DecisionSkipToday
)

func (d Decision) String() string {
	switch d {
	case DecisionPostNow:
		return "post_now"
	case DecisionDefer:
		return "defer"
	default:
		return "skip_today"
	}
}

const (
	// 当日排班被反转的概率（模拟随性，按 persona+日期 稳定）
	flipProbability = 0.15
	// 偏好时段 ±2 小时内仍然发帖的概率
	shoulderProbability = 0.25
	shoulderHours       = 2
)

// SchedulerService 发帖资格判定：纯决策，无副作用，同一天内重复调用结果一致
type SchedulerService struct{}

func NewSchedulerService() *SchedulerService {
	return &SchedulerService{}
}

// Decide 判定 persona 此刻是否应该发帖。
// 返回三态 + 可读原因；"今天已发过"是硬性短路，排在所有概率判断之前
func (s *SchedulerService) Decide(p *model.Persona, now time.Time) (Decision, string, error) {
	def, err := archetype.Lookup(p.Archetype)
	if err != nil {
		return DecisionSkipToday, "unknown archetype", err
	}

	now = now.UTC()
	if p.PostedOn(now) {
		return DecisionSkipToday, "already posted today", nil
	}

	// 周一=0 .. 周日=6
	weekday := (int(now.Weekday()) + 6) % 7
	scheduled := def.Cadence[weekday]

	// persona 稳定的伪随机反转：同一 persona 同一天重复调用不会抖动
	day := now.Format("2006-01-02")
	if stableDraw(p.ID.String(), day, "flip") < flipProbability {
		scheduled = !scheduled
		if !scheduled {
			return DecisionSkipToday, "scheduled day flipped off (spontaneity)", nil
		}
	} else if !scheduled {
		return DecisionSkipToday, "not a posting day for this archetype", nil
	}

	hours := p.HourList()
	if len(hours) == 0 {
		hours = def.PreferredHours
	}

	hour := now.Hour()
	nearest := 24
	for _, h := range hours {
		if d := hourDistance(hour, h); d < nearest {
			nearest = d
		}
	}

	switch {
	case nearest == 0:
		return DecisionPostNow, "within preferred hours", nil
	case nearest <= shoulderHours:
		if stableDraw(p.ID.String(), day, fmt.Sprintf("shoulder:%d", hour)) < shoulderProbability {
			return DecisionPostNow, "near preferred hours (shoulder window)", nil
		}
		return DecisionDefer, "near preferred hours, deferring to a better slot", nil
	default:
		return DecisionDefer, "outside preferred hours", nil
	}
}

// hourDistance 环形小时距离
func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

// stableDraw 由若干字符串哈希出 [0,1) 的确定性"抽签"值
func stableDraw(parts ...string) float64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return float64(h.Sum64()%100000) / 100000.0
}
