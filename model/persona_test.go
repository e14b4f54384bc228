package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestPersona_PostedOn 测试 UTC 自然日判定
//
// 验证闭环：
// 1. 当天 23:59 发过 -> 同日为真，次日 00:01 为假
// 2. 没发过帖恒为假
func TestPersona_PostedOn(t *testing.T) {
	p := &Persona{}
	assert.False(t, p.PostedOn(time.Now()))

	posted := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	p.LastPostedAt = &posted

	assert.True(t, p.PostedOn(time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)))
	assert.False(t, p.PostedOn(time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)))

	// 非 UTC 时区的入参按 UTC 归一：UTC+8 的 3/11 06:00 是 UTC 的 3/10 22:00
	loc := time.FixedZone("UTC+8", 8*3600)
	assert.True(t, p.PostedOn(time.Date(2026, 3, 11, 6, 0, 0, 0, loc)))
}

// TestPersona_HourList 测试偏好时段解析的容错
func TestPersona_HourList(t *testing.T) {
	p := &Persona{PreferredHours: "6, 12,19,25,abc,23"}
	assert.Equal(t, []int{6, 12, 19, 23}, p.HourList())

	assert.Nil(t, (&Persona{}).HourList())
}

// TestPersona_TagList 测试内容标签解析
func TestPersona_TagList(t *testing.T) {
	p := &Persona{ContentTags: "progress, meal_prep ,,sunrise"}
	assert.Equal(t, []string{"progress", "meal_prep", "sunrise"}, p.TagList())

	assert.Nil(t, (&Persona{}).TagList())
}
