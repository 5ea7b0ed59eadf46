package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/MoodMirror/internal/ai"
	"github.com/yuqie6/MoodMirror/internal/eventbus"
	"github.com/yuqie6/MoodMirror/internal/schema"
)

// InsightService 周洞察聚合
// 懒生成 + 按条目数判过期：已存洞察的 EntryCount 低于本周当前已完成条目数
// 才重新生成，否则直接复用。重建走 (user_id, week_start) 键的原子 upsert，
// ID 保持稳定，摘要文本整体重写，不做局部修补。
type InsightService struct {
	entryRepo   EntryRepository
	insightRepo InsightRepository
	analyzer    Analyzer
	hub         *eventbus.Hub
	weekStart   time.Weekday
	now         func() time.Time
}

// NewInsightService 创建周洞察服务
func NewInsightService(entryRepo EntryRepository, insightRepo InsightRepository, analyzer Analyzer, hub *eventbus.Hub, weekStart time.Weekday) *InsightService {
	return &InsightService{
		entryRepo:   entryRepo,
		insightRepo: insightRepo,
		analyzer:    analyzer,
		hub:         hub,
		weekStart:   weekStart,
		now:         time.Now,
	}
}

// WeekWindow 计算包含 now 的周窗口
// 起点是最近一个 firstDay 的 00:00，终点是六天后的 23:59:59.999。
func WeekWindow(now time.Time, firstDay time.Weekday) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) - int(firstDay) + 7) % 7
	start := day.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return start, end
}

// GetWeekly 获取本周洞察，必要时（重新）生成
// 过期判断只查计数，复用路径不拉取条目内容。条目数不超过已存洞察的
// EntryCount 就直接复用（包括条目被删到 0 的情况：洞察没有过期）。
// 没有已存洞察且本周没有任何已完成条目时返回 nil——
// "还没有数据"和"已计算出的洞察"是两回事。
func (s *InsightService) GetWeekly(ctx context.Context, userID string) (*schema.WeeklyInsight, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: 缺少用户", ErrValidation)
	}

	start, end := WeekWindow(s.now(), s.weekStart)
	weekStartStr := start.Format("2006-01-02")

	stored, err := s.insightRepo.GetByWeek(ctx, userID, weekStartStr)
	if err != nil {
		return nil, err
	}

	count, err := s.entryRepo.CountCompletedInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	if stored != nil && int(count) <= stored.EntryCount {
		return stored, nil
	}
	if count == 0 {
		return nil, nil
	}

	entries, err := s.entryRepo.GetCompletedInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	insight := s.regenerate(ctx, userID, entries, start, end)
	if stored != nil {
		insight.ID = stored.ID
	}

	if err := s.insightRepo.Upsert(ctx, insight); err != nil {
		return nil, err
	}

	s.hub.Publish(eventbus.Event{
		Type: eventbus.EventInsightGenerated,
		Data: map[string]any{
			"user_id":     userID,
			"week_start":  insight.WeekStart,
			"entry_count": insight.EntryCount,
		},
	})

	return insight, nil
}

// ListHistory 获取历史周洞察
func (s *InsightService) ListHistory(ctx context.Context, userID string, limit int) ([]schema.WeeklyInsight, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: 缺少用户", ErrValidation)
	}
	if limit <= 0 {
		limit = 12
	}
	return s.insightRepo.ListByUser(ctx, userID, limit)
}

// regenerate 从本周条目全量重建洞察
// 数值部分（均值/主导情绪）是本地计算；叙述部分走模型，
// 模型失败时降级为模板摘要。entries 按创建时间升序。
func (s *InsightService) regenerate(ctx context.Context, userID string, entries []schema.Entry, start, end time.Time) *schema.WeeklyInsight {
	insight := &schema.WeeklyInsight{
		ID:               uuid.NewString(),
		UserID:           userID,
		WeekStart:        start.Format("2006-01-02"),
		WeekEnd:          end.Format("2006-01-02"),
		AverageSentiment: averageSentiment(entries),
		EntryCount:       len(entries),
	}

	themes, themesErr := s.analyzer.ExtractThemes(ctx, recentContents(entries, 10))

	req := &ai.WeeklyInsightRequest{
		WeekStart: insight.WeekStart,
		WeekEnd:   insight.WeekEnd,
		Themes:    themes,
	}
	for _, e := range entries {
		req.Entries = append(req.Entries, ai.WeekEntry{
			Date:      e.CreatedAt.Local().Format("2006-01-02"),
			Mood:      e.Mood,
			WordCount: e.WordCount,
			Excerpt:   truncateRunes(e.Content, 100),
		})
	}

	var narrative *ai.WeeklyInsightResult
	var narrativeErr error
	if themesErr == nil {
		narrative, narrativeErr = s.analyzer.GenerateWeeklyInsight(ctx, req)
	}

	if themesErr != nil || narrativeErr != nil {
		slog.Warn("周洞察降级为模板摘要", "user", userID,
			"themes_error", themesErr, "narrative_error", narrativeErr)

		totalWords := 0
		for _, e := range entries {
			totalWords += e.WordCount
		}
		avgWords := totalWords / len(entries)

		insight.Summary = fmt.Sprintf("本周你写了 %d 篇日记，平均每篇 %d 字。坚持记录本身就是一种自我照顾。", len(entries), avgWords)
		insight.KeyThemes = schema.JSONArray{"personal reflection", "self-awareness"}
		insight.MoodTrend = "Reflective"
		return insight
	}

	var parts []string
	if sum := strings.TrimSpace(narrative.Summary); sum != "" {
		parts = append(parts, sum)
	}
	if p := strings.TrimSpace(narrative.Patterns); p != "" {
		parts = append(parts, p)
	}
	if r := strings.TrimSpace(narrative.Recommendations); r != "" {
		parts = append(parts, r)
	}
	insight.Summary = strings.Join(parts, "\n\n")
	insight.KeyThemes = schema.JSONArray(themes)
	insight.MoodTrend = dominantMood(entries)
	return insight
}

// averageSentiment 本周情感均值；缺失分数的条目按 0 计入
func averageSentiment(entries []schema.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		if e.SentimentScore != nil {
			sum += *e.SentimentScore
		}
	}
	return sum / float64(len(entries))
}

// dominantMood 本周主导情绪（众数）
// 平局时取窗口内最早出现的那个情绪，保证结果与底层 map 遍历顺序无关。
// entries 按创建时间升序。
func dominantMood(entries []schema.Entry) string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	for i, e := range entries {
		if e.Mood == "" {
			continue
		}
		if _, ok := firstSeen[e.Mood]; !ok {
			firstSeen[e.Mood] = i
		}
		counts[e.Mood]++
	}
	if len(counts) == 0 {
		return "neutral"
	}

	best := ""
	for mood, n := range counts {
		if best == "" {
			best = mood
			continue
		}
		if n > counts[best] || (n == counts[best] && firstSeen[mood] < firstSeen[best]) {
			best = mood
		}
	}
	return best
}

// recentContents 取最近 limit 条的内容（倒序：最新在前）
// entries 按创建时间升序。
func recentContents(entries []schema.Entry, limit int) []string {
	contents := make([]string, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(contents) < limit; i-- {
		contents = append(contents, entries[i].Content)
	}
	return contents
}
