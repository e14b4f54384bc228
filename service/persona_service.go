package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"snapconnect_agents/archetype"
	"snapconnect_agents/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PersonaService 种群管理：种子化与查询
type PersonaService struct {
	db *gorm.DB
}

func NewPersonaService(db *gorm.DB) *PersonaService {
	return &PersonaService{db: db}
}

// SeedPopulation 每个原型创建 perArchetype 个 persona，返回新建数量。
// 画像由 (原型, 种子) 确定性生成，用户名唯一索引保证重复执行幂等：
// 已存在的 persona 会被跳过而不是报错
func (s *PersonaService) SeedPopulation(ctx context.Context, perArchetype int) (int, error) {
	created := 0
	for _, tag := range archetype.Tags() {
		for seed := int64(1); seed <= int64(perArchetype); seed++ {
			traits, err := archetype.GeneratePersonality(tag, seed)
			if err != nil {
				return created, err
			}

			persona := &model.Persona{
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
			if err := s.db.WithContext(ctx).Create(persona).Error; err != nil {
				if isDuplicate(err) {
					log.Printf("persona %s/%d already seeded, skipping", tag, seed)
					continue
				}
				return created, fmt.Errorf("failed to seed persona %s/%d: %w", tag, seed, err)
			}
			created++
		}
	}
	return created, nil
}

// List 返回全部 persona
func (s *PersonaService) List(ctx context.Context) ([]model.Persona, error) {
	var personas []model.Persona
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&personas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	return personas, nil
}

// GetByIDs 按 ID 子集查询
func (s *PersonaService) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Persona, error) {
	var personas []model.Persona
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&personas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load personas: %w", err)
	}
	return personas, nil
}

func joinHours(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = fmt.Sprintf("%d", h)
	}
	return strings.Join(parts, ",")
}
