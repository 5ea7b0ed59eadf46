package service

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/MoodMirror/internal/ai"
	"github.com/yuqie6/MoodMirror/internal/eventbus"
	"github.com/yuqie6/MoodMirror/internal/schema"
)

func TestWeekWindow(t *testing.T) {
	// 2026-08-19 是周三
	wed := time.Date(2026, 8, 19, 15, 30, 0, 0, time.Local)

	start, end := WeekWindow(wed, time.Monday)
	if got := start.Format("2006-01-02"); got != "2026-08-17" {
		t.Errorf("start = %s, want 2026-08-17", got)
	}
	if start.Hour() != 0 || start.Minute() != 0 {
		t.Errorf("start 应在 00:00: %v", start)
	}
	if got := end.Format("2006-01-02"); got != "2026-08-23" {
		t.Errorf("end = %s, want 2026-08-23", got)
	}

	// 周一当天：窗口从当天开始
	mon := time.Date(2026, 8, 17, 0, 5, 0, 0, time.Local)
	start, _ = WeekWindow(mon, time.Monday)
	if got := start.Format("2006-01-02"); got != "2026-08-17" {
		t.Errorf("周一的 start = %s, want 2026-08-17", got)
	}

	// 周日 + 周日起始
	sun := time.Date(2026, 8, 23, 12, 0, 0, 0, time.Local)
	start, _ = WeekWindow(sun, time.Sunday)
	if got := start.Format("2006-01-02"); got != "2026-08-23" {
		t.Errorf("周日起始的 start = %s, want 2026-08-23", got)
	}
}

func newTestInsightService(entryRepo *fakeEntryRepo, insightRepo *fakeInsightRepo, analyzer *fakeAnalyzer, now time.Time) *InsightService {
	svc := NewInsightService(entryRepo, insightRepo, analyzer, eventbus.NewHub(), time.Monday)
	svc.now = func() time.Time { return now }
	return svc
}

func weekEntry(id string, createdAt time.Time, mood string, words int) *schema.Entry {
	return &schema.Entry{
		ID: id, UserID: "u1", Content: "内容 " + id, WordCount: words,
		Mood: mood, IsCompleted: true, CreatedAt: createdAt,
	}
}

func TestGetWeeklyEmptyWeek(t *testing.T) {
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.Local)
	insightRepo := newFakeInsightRepo()
	svc := newTestInsightService(newFakeEntryRepo(), insightRepo, &fakeAnalyzer{}, now)

	insight, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWeekly: %v", err)
	}
	if insight != nil {
		t.Errorf("空周应返回 nil, got %+v", insight)
	}
	if insightRepo.upsertCalls != 0 {
		t.Errorf("空周不应写库, upserts=%d", insightRepo.upsertCalls)
	}
}

func TestGetWeeklyGeneratesAndStores(t *testing.T) {
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.Local)
	entryRepo := newFakeEntryRepo(
		weekEntry("e1", now.AddDate(0, 0, -2), "calm", 100),
		weekEntry("e2", now.AddDate(0, 0, -1), "happy", 200),
	)
	insightRepo := newFakeInsightRepo()
	analyzer := &fakeAnalyzer{}
	svc := newTestInsightService(entryRepo, insightRepo, analyzer, now)

	insight, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWeekly: %v", err)
	}
	if insight == nil {
		t.Fatal("应生成洞察")
	}
	if insight.WeekStart != "2026-08-17" || insight.WeekEnd != "2026-08-23" {
		t.Errorf("周窗口错误: %s ~ %s", insight.WeekStart, insight.WeekEnd)
	}
	if insight.EntryCount != 2 {
		t.Errorf("EntryCount = %d, want 2", insight.EntryCount)
	}
	if insight.ID == "" {
		t.Error("应分配 ID")
	}
	if insightRepo.upsertCalls != 1 {
		t.Errorf("upserts = %d, want 1", insightRepo.upsertCalls)
	}
}

func TestGetWeeklyReusesFreshInsight(t *testing.T) {
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.Local)
	entryRepo := newFakeEntryRepo(
		weekEntry("e1", now.AddDate(0, 0, -2), "calm", 100),
	)
	insightRepo := newFakeInsightRepo()
	analyzer := &fakeAnalyzer{}
	svc := newTestInsightService(entryRepo, insightRepo, analyzer, now)

	first, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("第一次 GetWeekly: %v", err)
	}

	second, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("第二次 GetWeekly: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("重复获取 ID 应一致: %s vs %s", first.ID, second.ID)
	}
	if insightRepo.upsertCalls != 1 {
		t.Errorf("条目数未变不应重新生成, upserts=%d", insightRepo.upsertCalls)
	}
	if analyzer.insightCalls != 1 {
		t.Errorf("模型应只调用 1 次, calls=%d", analyzer.insightCalls)
	}
	// 复用路径只查计数，不拉取条目内容
	if entryRepo.rangeCalls != 1 {
		t.Errorf("复用时不应再次拉取条目, rangeCalls=%d", entryRepo.rangeCalls)
	}
	if entryRepo.countCalls != 2 {
		t.Errorf("每次都应查计数, countCalls=%d", entryRepo.countCalls)
	}
}

func TestGetWeeklyReturnsStoredAfterEntriesDeleted(t *testing.T) {
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.Local)
	entryRepo := newFakeEntryRepo(
		weekEntry("e1", now.AddDate(0, 0, -2), "calm", 100),
	)
	insightRepo := newFakeInsightRepo()
	svc := newTestInsightService(entryRepo, insightRepo, &fakeAnalyzer{}, now)

	first, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWeekly: %v", err)
	}

	// 条目被删到 0：已存洞察没有过期，继续返回
	if err := entryRepo.Delete(context.Background(), "e1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	second, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWeekly: %v", err)
	}
	if second == nil {
		t.Fatal("条目删除后已存洞察仍应返回")
	}
	if second.ID != first.ID || second.EntryCount != 1 {
		t.Errorf("应原样返回已存洞察: %+v", second)
	}
	if insightRepo.upsertCalls != 1 {
		t.Errorf("不应重新生成, upserts=%d", insightRepo.upsertCalls)
	}
}

func TestGetWeeklyRegeneratesWhenStale(t *testing.T) {
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.Local)
	entryRepo := newFakeEntryRepo(
		weekEntry("e1", now.AddDate(0, 0, -2), "calm", 100),
	)
	insightRepo := newFakeInsightRepo()
	analyzer := &fakeAnalyzer{}
	svc := newTestInsightService(entryRepo, insightRepo, analyzer, now)

	first, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWeekly: %v", err)
	}

	// 本周又写了一篇
	_ = entryRepo.Create(context.Background(), weekEntry("e2", now.AddDate(0, 0, -1), "stressed", 80))

	second, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWeekly: %v", err)
	}

	if second.EntryCount != 2 {
		t.Errorf("EntryCount = %d, want 2", second.EntryCount)
	}
	if second.ID != first.ID {
		t.Errorf("重建后 ID 应保持稳定: %s vs %s", first.ID, second.ID)
	}
	if insightRepo.upsertCalls != 2 {
		t.Errorf("过期应重新写库, upserts=%d", insightRepo.upsertCalls)
	}
}

func TestGetWeeklyFallbackSummary(t *testing.T) {
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.Local)
	entryRepo := newFakeEntryRepo(
		weekEntry("e1", now.AddDate(0, 0, -2), "calm", 100),
		weekEntry("e2", now.AddDate(0, 0, -1), "happy", 200),
	)
	analyzer := &fakeAnalyzer{
		themesErr: &ai.ProviderError{Op: "themes"},
	}
	svc := newTestInsightService(entryRepo, newFakeInsightRepo(), analyzer, now)

	insight, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("模型失败不应让整个操作失败: %v", err)
	}

	if insight.Summary == "" {
		t.Error("降级也应有摘要")
	}
	if insight.MoodTrend != "Reflective" {
		t.Errorf("MoodTrend = %q, want Reflective", insight.MoodTrend)
	}
	if len(insight.KeyThemes) != 2 || insight.KeyThemes[0] != "personal reflection" {
		t.Errorf("降级主题错误: %v", insight.KeyThemes)
	}
	// 主题失败后不应再调叙述生成
	if analyzer.insightCalls != 0 {
		t.Errorf("主题失败后不应调用叙述生成, calls=%d", analyzer.insightCalls)
	}
}

func TestGetWeeklyAverageSentiment(t *testing.T) {
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.Local)
	s1, s2 := 0.8, -0.2
	e1 := weekEntry("e1", now.AddDate(0, 0, -2), "happy", 100)
	e1.SentimentScore = &s1
	e2 := weekEntry("e2", now.AddDate(0, 0, -1), "sad", 100)
	e2.SentimentScore = &s2
	e3 := weekEntry("e3", now, "", 5) // 未分析，按 0 计入

	entryRepo := newFakeEntryRepo(e1, e2, e3)
	svc := newTestInsightService(entryRepo, newFakeInsightRepo(), &fakeAnalyzer{}, now)

	insight, err := svc.GetWeekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWeekly: %v", err)
	}

	want := (0.8 - 0.2 + 0) / 3
	if diff := insight.AverageSentiment - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AverageSentiment = %v, want %v", insight.AverageSentiment, want)
	}
}

func TestDominantMood(t *testing.T) {
	now := time.Now()
	mk := func(mood string, off int) schema.Entry {
		return schema.Entry{Mood: mood, CreatedAt: now.Add(time.Duration(off) * time.Hour)}
	}

	cases := []struct {
		name    string
		entries []schema.Entry
		want    string
	}{
		{"众数", []schema.Entry{mk("calm", 0), mk("happy", 1), mk("calm", 2)}, "calm"},
		{"平局取最早", []schema.Entry{mk("happy", 0), mk("calm", 1), mk("calm", 2), mk("happy", 3)}, "happy"},
		{"全部未标注", []schema.Entry{mk("", 0), mk("", 1)}, "neutral"},
		{"跳过未标注", []schema.Entry{mk("", 0), mk("sad", 1)}, "sad"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dominantMood(tc.entries); got != tc.want {
				t.Errorf("dominantMood = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestListHistoryValidation(t *testing.T) {
	svc := newTestInsightService(newFakeEntryRepo(), newFakeInsightRepo(), &fakeAnalyzer{}, time.Now())
	if _, err := svc.ListHistory(context.Background(), "", 10); !IsValidation(err) {
		t.Errorf("缺少用户应返回校验错误, got %v", err)
	}
}
