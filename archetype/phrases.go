package archetype

// 短语库：(互动风格, 目标原型) -> 候选评论
// 生成服务不可用时的保底评论来源，也按固定概率直接使用（省调用成本）
var phraseBank = map[string]map[string][]string{
	StyleEncouraging: {
		FitnessNewbie: {
			"We're all figuring it out together, keep going! 🙌",
			"This is exactly the energy, proud of you!",
			"Every rep counts. You've got this!",
		},
		GymRat: {
			"Okay that's seriously impressive 😳",
			"Goals right here. One day!",
			"Teach me your ways 🙏",
		},
		YogaFlow: {
			"This looks so peaceful, I need to try yoga",
			"Love the calm vibes here ✨",
		},
		OutdoorRunner: {
			"That view alone is worth the run!",
			"You make running look fun, almost 😄",
		},
		HomeWorkout: {
			"Love that no excuses setup!",
			"Proof you don't need a fancy gym 👏",
		},
	},
	StyleIntense: {
		FitnessNewbie: {
			"Good start. Now do it again tomorrow.",
			"Respect for showing up. Consistency is everything.",
		},
		GymRat: {
			"Clean reps. What's the programming?",
			"Numbers don't lie. Solid work 🔥",
			"That bar speed though.",
		},
		YogaFlow: {
			"Mobility work is underrated. Respect.",
		},
		OutdoorRunner: {
			"Solid pace. Zone 2 or pushing it?",
		},
		HomeWorkout: {
			"Minimal setup, maximal effort. Respect.",
		},
	},
	StyleMindful: {
		FitnessNewbie: {
			"Beautiful reminder that progress isn't linear 🌱",
			"Be kind to yourself on this journey",
		},
		GymRat: {
			"Strength and stillness aren't opposites 🙏",
		},
		YogaFlow: {
			"That transition looked effortless ✨",
			"Saving this flow for tomorrow morning",
		},
		OutdoorRunner: {
			"Moving meditation at its finest",
			"Nature is the best studio 🌄",
		},
		HomeWorkout: {
			"Your space, your practice. Love it",
		},
	},
	StyleAdventurous: {
		FitnessNewbie: {
			"Wait till you try taking this outside! 🏞️",
			"Strong start — trails are calling next",
		},
		GymRat: {
			"All that power would fly on a hill climb",
		},
		YogaFlow: {
			"Yoga after a long run is unbeatable, trust me",
		},
		OutdoorRunner: {
			"Which trail is this?? Adding it to the list",
			"Nothing beats that early morning air 🌅",
			"Negative splits or it didn't happen 😄",
		},
		HomeWorkout: {
			"Sneak one session outdoors, you won't regret it",
		},
	},
	StylePractical: {
		FitnessNewbie: {
			"Pro tip: lay your clothes out the night before. Game changer.",
			"Consistency beats intensity when you're starting out",
		},
		GymRat: {
			"What's the split? Always looking to steal ideas",
		},
		YogaFlow: {
			"Adding some of this for recovery days",
		},
		OutdoorRunner: {
			"Treadmill folks like me salute you",
		},
		HomeWorkout: {
			"That equipment hack is genius, stealing it",
			"Same setup here — doorframe pull-up bar crew 💪",
		},
	},
}

// genericPhrases 找不到 (风格, 原型) 组合时的兜底短语，保证取短语永不为空
var genericPhrases = []string{
	"This is great, keep it up! 💪",
	"Love to see it!",
	"Awesome work 🔥",
}

// Phrase 从短语库取一条评论；idx 由调用方的随机源给出，这里只做取模，
// 保证函数本身无随机状态
func Phrase(style, targetTag string, idx int) string {
	if idx < 0 {
		idx = -idx
	}
	if byTarget, ok := phraseBank[style]; ok {
		if list, ok := byTarget[targetTag]; ok && len(list) > 0 {
			return list[idx%len(list)]
		}
		// 同风格下任一目标的短语也可接受
		for _, tag := range Tags() {
			if list, ok := byTarget[tag]; ok && len(list) > 0 {
				return list[idx%len(list)]
			}
		}
	}
	return genericPhrases[idx%len(genericPhrases)]
}
