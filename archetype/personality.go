package archetype

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// Traits 一个具体 persona 的画像，由 (原型, 种子) 唯一决定
type Traits struct {
	Username       string
	DisplayName    string
	Bio            string
	Goal           string
	Tone           string
	ContentTags    []string
	PreferredHours []int
}

// 名字池按原型分组，保证同原型下人设风格一致
var firstNames = map[string][]string{
	FitnessNewbie: {"Jamie", "Sam", "Casey", "Riley", "Jordan", "Alex", "Morgan", "Taylor"},
	GymRat:        {"Marcus", "Diana", "Viktor", "Elena", "Dom", "Nikki", "Bruno", "Sasha"},
	YogaFlow:      {"Luna", "Aria", "Sage", "Willow", "Kai", "Nova", "Iris", "River"},
	OutdoorRunner: {"Finn", "Maya", "Cole", "Sierra", "Reed", "Skye", "Wes", "Dana"},
	HomeWorkout:   {"Emma", "Ben", "Olivia", "Noah", "Grace", "Leo", "Chloe", "Max"},
}

var lastNames = []string{
	"Carter", "Brooks", "Hayes", "Reyes", "Nguyen", "Kim", "Silva", "Novak",
	"Walsh", "Iverson", "Okafor", "Lindqvist", "Moreau", "Tanaka", "Petrov", "Alvarez",
}

var usernameSuffixes = map[string][]string{
	FitnessNewbie: {"getsfit", "startsnow", "dayone", "journey", "tries"},
	GymRat:        {"lifts", "ironlife", "pr_hunter", "plates", "hypertrophy"},
	YogaFlow:      {"flows", "breathes", "onthemat", "asana", "zen"},
	OutdoorRunner: {"runs", "trails", "milelogs", "pacer", "strides"},
	HomeWorkout:   {"athome", "nogym", "bodyweight", "bands", "hiit"},
}

var goals = map[string][]string{
	FitnessNewbie: {
		"Lose 10kg by summer and actually enjoy the process",
		"Finish my first month without skipping a workout",
		"Learn proper form before chasing numbers",
	},
	GymRat: {
		"Hit a 180kg deadlift this season",
		"Add 5kg of lean mass before the next meet",
		"Finally balance push and pull days properly",
	},
	YogaFlow: {
		"Hold a 3-minute handstand by year end",
		"Teach my first community class",
		"Make morning practice non-negotiable",
	},
	OutdoorRunner: {
		"Break 45 minutes on the 10k",
		"Run my first trail marathon this autumn",
		"Log 1,500 km this year, injury free",
	},
	HomeWorkout: {
		"Build a complete routine with just bands and a mat",
		"Stay consistent through the busy season at work",
		"Do 20 strict push-ups without stopping",
	},
}

var tones = map[string][]string{
	FitnessNewbie: {"earnest", "self-deprecating", "excited"},
	GymRat:        {"blunt", "competitive", "technical"},
	YogaFlow:      {"calm", "reflective", "warm"},
	OutdoorRunner: {"upbeat", "wry", "restless"},
	HomeWorkout:   {"pragmatic", "cheerful", "dry"},
}

var bioTemplates = map[string][]string{
	FitnessNewbie: {
		"New to this whole fitness thing. %s. Be nice!",
		"Started from the couch, now we're here. %s",
	},
	GymRat: {
		"Eat. Sleep. Lift. %s",
		"Chalk on my hands, numbers on my mind. %s",
	},
	YogaFlow: {
		"Finding balance one breath at a time. %s",
		"Mat, sunrise, repeat. %s",
	},
	OutdoorRunner: {
		"If it has a trailhead, I'll run it. %s",
		"Chasing sunrises and PBs. %s",
	},
	HomeWorkout: {
		"Living room athlete. %s",
		"Proof you don't need a gym membership. %s",
	},
}

// prng 是一个 splitmix64 小步进器：画像生成只依赖它，不触碰全局随机源，
// 同一 (原型, 种子) 的输出因此完全可复现
type prng struct{ state uint64 }

func (r *prng) next() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (r *prng) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

// GeneratePersonality 纯函数：由 (原型, 种子) 确定性派生一套画像。
// 相同输入永远得到相同输出，支撑幂等重复种子化与可复现测试
func GeneratePersonality(tag string, seed int64) (*Traits, error) {
	def, err := Lookup(tag)
	if err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(tag))
	r := &prng{state: h.Sum64() ^ uint64(seed)}

	first := firstNames[tag][r.intn(len(firstNames[tag]))]
	last := lastNames[r.intn(len(lastNames))]
	suffix := usernameSuffixes[tag][r.intn(len(usernameSuffixes[tag]))]
	goal := goals[tag][r.intn(len(goals[tag]))]
	tone := tones[tag][r.intn(len(tones[tag]))]
	bio := fmt.Sprintf(bioTemplates[tag][r.intn(len(bioTemplates[tag]))], goal)

	// 用户名带数字尾缀，降低种群内撞名概率；种子不同则尾缀不同
	username := fmt.Sprintf("%s_%s%02d", strings.ToLower(first), suffix, r.intn(100))

	// 内容标签取原型类目的子集（至少 2 个）
	cats := def.Categories
	tagCount := 2 + r.intn(len(cats)-1)
	picked := make(map[string]bool, tagCount)
	for len(picked) < tagCount {
		picked[cats[r.intn(len(cats))].Category] = true
	}
	contentTags := make([]string, 0, len(picked))
	for c := range picked {
		contentTags = append(contentTags, c)
	}
	sort.Strings(contentTags)

	// 偏好时段在原型基础上做 ±1 小时的个体抖动
	hours := make([]int, 0, len(def.PreferredHours))
	seen := make(map[int]bool)
	for _, base := range def.PreferredHours {
		hh := base + r.intn(3) - 1
		if hh < 0 {
			hh += 24
		}
		hh %= 24
		if !seen[hh] {
			seen[hh] = true
			hours = append(hours, hh)
		}
	}
	sort.Ints(hours)

	return &Traits{
		Username:       username,
		DisplayName:    first + " " + last,
		Bio:            bio,
		Goal:           goal,
		Tone:           tone,
		ContentTags:    contentTags,
		PreferredHours: hours,
	}, nil
}
