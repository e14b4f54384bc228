package archetype

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Override 单个原型的可调参数；零值字段表示不覆盖
type Override struct {
	BaseLikeRate    float64            `yaml:"base_like_rate"`
	BaseCommentRate float64            `yaml:"base_comment_rate"`
	BaseFriendRate  float64            `yaml:"base_friend_rate"`
	PostsPerSession int                `yaml:"posts_per_session"`
	PreferredHours  []int              `yaml:"preferred_hours"`
	Compatibility   map[string]float64 `yaml:"compatibility"`
}

type overrideFile struct {
	Archetypes map[string]Override `yaml:"archetypes"`
}

// LoadOverrides 从 YAML 文件加载运营侧的参数覆盖（概率、兼容度矩阵行等）。
// 文件不存在不算错误：内置表即默认配置
func LoadOverrides(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read archetype file: %w", err)
	}

	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse archetype file: %w", err)
	}

	for tag, ov := range f.Archetypes {
		def, ok := registry[tag]
		if !ok {
			return fmt.Errorf("%w: %q in %s", ErrInvalidArchetype, tag, path)
		}
		if ov.BaseLikeRate > 0 {
			def.BaseLikeRate = ov.BaseLikeRate
		}
		if ov.BaseCommentRate > 0 {
			def.BaseCommentRate = ov.BaseCommentRate
		}
		if ov.BaseFriendRate > 0 {
			def.BaseFriendRate = ov.BaseFriendRate
		}
		if ov.PostsPerSession > 0 {
			def.PostsPerSession = ov.PostsPerSession
		}
		if len(ov.PreferredHours) > 0 {
			def.PreferredHours = ov.PreferredHours
		}
		for target, v := range ov.Compatibility {
			if _, ok := registry[target]; !ok {
				return fmt.Errorf("%w: compatibility target %q in %s", ErrInvalidArchetype, target, path)
			}
			def.Compatibility[target] = v
		}
	}
	return nil
}
