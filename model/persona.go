package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Persona 虚拟用户表
// 画像字段（用户名、简介、目标等）在种子化时一次性生成，之后不再修改；
// 只有 LastPostedAt / LastSessionAt 两个游标会被引擎更新
type Persona struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Archetype      string     `json:"archetype" gorm:"type:varchar(32);not null;index"` // 'fitness_newbie' | 'gym_rat' | 'yoga_flow' | 'outdoor_runner' | 'home_workout'
	Seed           int64      `json:"seed" gorm:"not null"`
	Username       string     `json:"username" gorm:"type:varchar(64);uniqueIndex;not null"`
	DisplayName    string     `json:"display_name" gorm:"type:varchar(100);not null"`
	Bio            string     `json:"bio" gorm:"type:text"`
	Goal           string     `json:"goal" gorm:"type:varchar(200)"`
	Tone           string     `json:"tone" gorm:"type:varchar(32)"`
	ContentTags    string     `json:"content_tags" gorm:"type:varchar(255)"`   // 偏好内容标签，逗号分隔
	PreferredHours string     `json:"preferred_hours" gorm:"type:varchar(64)"` // 偏好时段（小时），逗号分隔
	LastPostedAt   *time.Time `json:"last_posted_at,omitempty"`
	LastSessionAt  *time.Time `json:"last_session_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (Persona) TableName() string {
	return "personas"
}

// BeforeCreate 兜底生成主键（sqlite 测试库没有 gen_random_uuid）
func (p *Persona) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TagList 解析偏好内容标签
func (p *Persona) TagList() []string {
	if p.ContentTags == "" {
		return nil
	}
	parts := strings.Split(p.ContentTags, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// HourList 解析偏好时段
func (p *Persona) HourList() []int {
	if p.PreferredHours == "" {
		return nil
	}
	parts := strings.Split(p.PreferredHours, ",")
	hours := make([]int, 0, len(parts))
	for _, h := range parts {
		h = strings.TrimSpace(h)
		var v int
		for _, c := range h {
			if c < '0' || c > '9' {
				v = -1
				break
			}
			v = v*10 + int(c-'0')
		}
		if v >= 0 && v <= 23 {
			hours = append(hours, v)
		}
	}
	return hours
}

// PostedOn 判断该日（UTC 自然日）是否已发过帖，用于每日一帖硬性限制
func (p *Persona) PostedOn(day time.Time) bool {
	if p.LastPostedAt == nil {
		return false
	}
	y1, m1, d1 := p.LastPostedAt.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
