package archetype

import (
	"errors"
	"fmt"
)

// ErrInvalidArchetype 未知原型标签，属配置错误，仅对该 persona 致命
var ErrInvalidArchetype = errors.New("invalid archetype")

// 固定的五种行为原型
const (
	FitnessNewbie = "fitness_newbie"
	GymRat        = "gym_rat"
	YogaFlow      = "yoga_flow"
	OutdoorRunner = "outdoor_runner"
	HomeWorkout   = "home_workout"
)

// 互动风格标签，决定评论语气和短语库分组
const (
	StyleEncouraging = "encouraging" // 鼓励型
	StyleIntense     = "intense"     // 硬核型
	StyleMindful     = "mindful"     // 觉察型
	StyleAdventurous = "adventurous" // 户外冒险型
	StylePractical   = "practical"   // 务实型
)

// CategoryWeight 内容类目及其抽样权重
type CategoryWeight struct {
	Category string  `yaml:"category"`
	Weight   float64 `yaml:"weight"`
}

// Definition 单个原型的完整行为画像
// Cadence 按周一..周日排列；Compatibility 为有向行（对每个原型一个值），
// 两个方向的值允许不同
type Definition struct {
	Tag              string
	DisplayName      string
	EngagementStyle  string
	Cadence          [7]bool
	PreferredHours   []int
	BaseLikeRate     float64
	BaseCommentRate  float64
	BaseFriendRate   float64
	PostsPerSession  int
	Categories       []CategoryWeight
	Compatibility    map[string]float64
	FallbackCaptions []string
	FallbackImageURL string
}

// registry 编译期内置的原型表；LoadOverrides 可用 YAML 调整数值
var registry = map[string]*Definition{
	FitnessNewbie: {
		Tag:             FitnessNewbie,
		DisplayName:     "Fitness Newbie",
		EngagementStyle: StyleEncouraging,
		// 新手三天打鱼：周一、周三、周六
		Cadence:         [7]bool{true, false, true, false, false, true, false},
		PreferredHours:  []int{7, 12, 19, 20},
		BaseLikeRate:    0.55,
		BaseCommentRate: 0.18,
		BaseFriendRate:  0.30,
		PostsPerSession: 8,
		Categories: []CategoryWeight{
			{Category: "progress", Weight: 4},
			{Category: "gym_selfie", Weight: 3},
			{Category: "meal_prep", Weight: 2},
			{Category: "motivation", Weight: 3},
		},
		Compatibility: map[string]float64{
			FitnessNewbie: 0.80,
			GymRat:        0.55,
			YogaFlow:      0.60,
			OutdoorRunner: 0.50,
			HomeWorkout:   0.70,
		},
		FallbackCaptions: []string{
			"Week by week it gets a little easier. Showed up again today 💪",
			"Not the fastest, not the strongest, but I'm here and that counts.",
			"Day one energy, every day. Small wins add up!",
		},
		FallbackImageURL: "https://cdn.snapconnect.app/fallback/newbie_gym.jpg",
	},
	GymRat: {
		Tag:             GymRat,
		DisplayName:     "Gym Rat",
		EngagementStyle: StyleIntense,
		// 除周日外天天打卡
		Cadence:         [7]bool{true, true, true, true, true, true, false},
		PreferredHours:  []int{5, 6, 17, 18, 21},
		BaseLikeRate:    0.45,
		BaseCommentRate: 0.12,
		BaseFriendRate:  0.20,
		PostsPerSession: 12,
		Categories: []CategoryWeight{
			{Category: "pr_attempt", Weight: 4},
			{Category: "gym_selfie", Weight: 3},
			{Category: "meal_prep", Weight: 3},
			{Category: "progress", Weight: 2},
		},
		Compatibility: map[string]float64{
			FitnessNewbie: 0.45,
			GymRat:        0.75,
			YogaFlow:      0.35,
			OutdoorRunner: 0.55,
			HomeWorkout:   0.40,
		},
		FallbackCaptions: []string{
			"Leg day. No further comment necessary.",
			"PR or ER. Today was a PR kind of day 🏋️",
			"The bar doesn't care how you feel. Lift it anyway.",
		},
		FallbackImageURL: "https://cdn.snapconnect.app/fallback/rack_pull.jpg",
	},
	YogaFlow: {
		Tag:             YogaFlow,
		DisplayName:     "Yoga Flow",
		EngagementStyle: StyleMindful,
		// 周二、周四、周六、周日
		Cadence:         [7]bool{false, true, false, true, false, true, true},
		PreferredHours:  []int{6, 7, 8, 20, 21},
		BaseLikeRate:    0.50,
		BaseCommentRate: 0.16,
		BaseFriendRate:  0.25,
		PostsPerSession: 10,
		Categories: []CategoryWeight{
			{Category: "flow_session", Weight: 4},
			{Category: "mindfulness", Weight: 3},
			{Category: "sunrise", Weight: 2},
			{Category: "motivation", Weight: 2},
		},
		Compatibility: map[string]float64{
			FitnessNewbie: 0.65,
			GymRat:        0.30,
			YogaFlow:      0.85,
			OutdoorRunner: 0.60,
			HomeWorkout:   0.65,
		},
		FallbackCaptions: []string{
			"Breath in, breath out. The mat always waits for you 🧘",
			"Sixty minutes of flow. Everything else can wait.",
			"Stillness is also progress.",
		},
		FallbackImageURL: "https://cdn.snapconnect.app/fallback/sunrise_mat.jpg",
	},
	OutdoorRunner: {
		Tag:             OutdoorRunner,
		DisplayName:     "Outdoor Runner",
		EngagementStyle: StyleAdventurous,
		// 周二、周四、周六、周日（长距离留给周末）
		Cadence:         [7]bool{false, true, false, true, false, true, true},
		PreferredHours:  []int{5, 6, 7, 18, 19},
		BaseLikeRate:    0.48,
		BaseCommentRate: 0.14,
		BaseFriendRate:  0.22,
		PostsPerSession: 10,
		Categories: []CategoryWeight{
			{Category: "trail_run", Weight: 4},
			{Category: "race_prep", Weight: 2},
			{Category: "sunrise", Weight: 3},
			{Category: "progress", Weight: 2},
		},
		Compatibility: map[string]float64{
			FitnessNewbie: 0.50,
			GymRat:        0.50,
			YogaFlow:      0.55,
			OutdoorRunner: 0.80,
			HomeWorkout:   0.45,
		},
		FallbackCaptions: []string{
			"10k before the city woke up. Best part of the day 🏃",
			"Trail dust and negative splits.",
			"Weather said no. Legs said go.",
		},
		FallbackImageURL: "https://cdn.snapconnect.app/fallback/trail_dawn.jpg",
	},
	HomeWorkout: {
		Tag:             HomeWorkout,
		DisplayName:     "Home Workout",
		EngagementStyle: StylePractical,
		// 周一、周三、周五
		Cadence:         [7]bool{true, false, true, false, true, false, false},
		PreferredHours:  []int{6, 12, 13, 19},
		BaseLikeRate:    0.52,
		BaseCommentRate: 0.15,
		BaseFriendRate:  0.24,
		PostsPerSession: 9,
		Categories: []CategoryWeight{
			{Category: "living_room_hiit", Weight: 4},
			{Category: "equipment_hack", Weight: 3},
			{Category: "meal_prep", Weight: 2},
			{Category: "progress", Weight: 2},
		},
		Compatibility: map[string]float64{
			FitnessNewbie: 0.70,
			GymRat:        0.35,
			YogaFlow:      0.60,
			OutdoorRunner: 0.45,
			HomeWorkout:   0.75,
		},
		FallbackCaptions: []string{
			"No gym, no problem. 30 minutes between the couch and the coffee table.",
			"Resistance bands and stubbornness. That's the whole program.",
			"Lunch-break HIIT done. Back to the desk ✅",
		},
		FallbackImageURL: "https://cdn.snapconnect.app/fallback/living_room.jpg",
	},
}

// Tags 返回全部原型标签（固定顺序，便于确定性遍历）
func Tags() []string {
	return []string{FitnessNewbie, GymRat, YogaFlow, OutdoorRunner, HomeWorkout}
}

// Lookup 按标签取原型定义
func Lookup(tag string) (*Definition, error) {
	def, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidArchetype, tag)
	}
	return def, nil
}

// Affinity 取有向兼容度 actor -> target；target 不是已知原型（真实用户）时返回 0.5
func Affinity(actorTag, targetTag string) float64 {
	def, ok := registry[actorTag]
	if !ok {
		return 0.5
	}
	v, ok := def.Compatibility[targetTag]
	if !ok {
		return 0.5
	}
	return v
}
