package ai

import (
	"strings"
	"time"
	"unicode"
)

// 降级路径：模型不可用或输出不合形状时，用本地规则保证功能不中断。
// ClassifyMood / DailyPrompt 都是纯函数，无副作用，不会失败。

// 关键词词表。neutralWords 里混入了高频填充词，
// 用来压低"负面词很少但确实存在"的句子的负面判定，
// 让这类句子落到 anxious/content 分支而不是直接判 negative。
var (
	positiveWords = []string{
		"happy", "joy", "joyful", "glad", "grateful", "gratitude", "thankful",
		"excited", "love", "loved", "wonderful", "amazing", "great", "good",
		"proud", "calm", "peaceful", "hopeful", "relaxed", "content", "accomplished",
	}
	negativeWords = []string{
		"sad", "angry", "anxious", "anxiety", "stressed", "stress", "worried",
		"worry", "tired", "exhausted", "frustrated", "upset", "terrible", "awful",
		"bad", "lonely", "overwhelmed", "afraid", "scared", "depressed", "hurt",
	}
	neutralWords = []string{
		"am", "is", "was", "were", "and", "the", "okay", "ok", "fine",
		"normal", "regular", "usual", "average", "alright", "day", "just",
	}
)

// ClassifyMood 基于关键词的本地情绪分类
// 判定顺序固定：
//  1. 正面词数严格多于负面和填充 → positive
//  2. 负面词数严格多于正面和填充 → negative
//  3. 有负面词且无正面词 → anxious
//  4. 有正面词且无负面词 → content
//  5. 其余 → neutral
func ClassifyMood(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	var pos, neg, neu int
	for _, tok := range tokens {
		switch {
		case contains(positiveWords, tok):
			pos++
		case contains(negativeWords, tok):
			neg++
		case contains(neutralWords, tok):
			neu++
		}
	}

	switch {
	case pos > neg && pos > neu:
		return "positive"
	case neg > pos && neg > neu:
		return "negative"
	case neg > 0 && pos == 0:
		return "anxious"
	case pos > 0 && neg == 0:
		return "content"
	default:
		return "neutral"
	}
}

// FallbackSentiment 构造降级的情感结果
// score 归零、label 取本地分类的情绪，和 AI 路径同形状。
func FallbackSentiment(text string) *SentimentResult {
	mood := ClassifyMood(text)
	return &SentimentResult{
		Score:      0,
		Confidence: 0,
		Label:      mood,
		Mood:       mood,
		Degraded:   true,
	}
}

// curatedPrompts 固定引导问题轮换表
var curatedPrompts = []string{
	"今天发生的哪件小事让你印象最深？",
	"此刻你的身体感觉如何？紧绷还是放松？",
	"今天你最想感谢谁？为什么？",
	"如果明天只做一件事，你会选什么？",
	"最近有什么事让你比自己预期的更平静？",
	"今天你对自己说过哪些苛刻的话？换一种说法试试。",
	"这一周里，什么时候你觉得最像自己？",
	"有什么一直拖着没做的事？是什么拦住了你？",
	"今天的情绪如果是一种天气，会是什么？",
	"最近谁的一句话一直留在你脑子里？",
	"你现在最需要的是休息、陪伴，还是一点成就感？",
	"写下一件今天做对了的事，哪怕很小。",
}

// DailyPrompt 返回当天的固定引导问题
// 用一年中的第几天对轮换表取模：同一天所有调用结果一致，
// 不依赖任何存储状态，轮换表走完一圈后循环。
func DailyPrompt(day time.Time) string {
	return curatedPrompts[day.YearDay()%len(curatedPrompts)]
}
