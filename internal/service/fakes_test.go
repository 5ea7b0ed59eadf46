package service

import (
	"context"
	"sort"
	"time"

	"github.com/yuqie6/MoodMirror/internal/ai"
	"github.com/yuqie6/MoodMirror/internal/schema"
)

// ========== 共享的测试替身 ==========

type fakeEntryRepo struct {
	items map[string]*schema.Entry

	createCalls int
	saveCalls   int
	deleteCalls int
	rangeCalls  int
	countCalls  int
}

func newFakeEntryRepo(entries ...*schema.Entry) *fakeEntryRepo {
	m := make(map[string]*schema.Entry)
	for _, e := range entries {
		cp := *e
		m[e.ID] = &cp
	}
	return &fakeEntryRepo{items: m}
}

func (r *fakeEntryRepo) Create(ctx context.Context, entry *schema.Entry) error {
	cp := *entry
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.items[entry.ID] = &cp
	r.createCalls++
	return nil
}

func (r *fakeEntryRepo) Save(ctx context.Context, entry *schema.Entry) error {
	cp := *entry
	r.items[entry.ID] = &cp
	r.saveCalls++
	return nil
}

func (r *fakeEntryRepo) Delete(ctx context.Context, id string) error {
	delete(r.items, id)
	r.deleteCalls++
	return nil
}

func (r *fakeEntryRepo) GetByID(ctx context.Context, id string) (*schema.Entry, error) {
	if e, ok := r.items[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeEntryRepo) byUser(userID string, completedOnly bool) []schema.Entry {
	var out []schema.Entry
	for _, e := range r.items {
		if e.UserID != userID {
			continue
		}
		if completedOnly && !e.IsCompleted {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeEntryRepo) GetByUser(ctx context.Context, userID string) ([]schema.Entry, error) {
	return r.byUser(userID, false), nil
}

func (r *fakeEntryRepo) GetCompletedByUser(ctx context.Context, userID string) ([]schema.Entry, error) {
	return r.byUser(userID, true), nil
}

func (r *fakeEntryRepo) GetRecentCompleted(ctx context.Context, userID string, limit int) ([]schema.Entry, error) {
	out := r.byUser(userID, true)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEntryRepo) completedInRange(userID string, start, end time.Time) []schema.Entry {
	var out []schema.Entry
	for _, e := range r.byUser(userID, true) {
		if !e.CreatedAt.Before(start) && !e.CreatedAt.After(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeEntryRepo) GetCompletedInRange(ctx context.Context, userID string, start, end time.Time) ([]schema.Entry, error) {
	r.rangeCalls++
	return r.completedInRange(userID, start, end), nil
}

func (r *fakeEntryRepo) CountCompletedInRange(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	r.countCalls++
	return int64(len(r.completedInRange(userID, start, end))), nil
}

type fakeUserRepo struct {
	users       map[string]*schema.User
	updateCalls int
	lastAgg     schema.UserAggregates
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*schema.User)}
}

func (r *fakeUserRepo) GetOrCreate(ctx context.Context, userID string) (*schema.User, error) {
	if u, ok := r.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	u := &schema.User{ID: userID}
	r.users[userID] = u
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdateAggregates(ctx context.Context, userID string, agg schema.UserAggregates) error {
	u, ok := r.users[userID]
	if !ok {
		u = &schema.User{ID: userID}
		r.users[userID] = u
	}
	u.CurrentStreak = agg.CurrentStreak
	u.LongestStreak = agg.LongestStreak
	u.TotalEntries = agg.TotalEntries
	u.WordsWritten = agg.WordsWritten
	u.LastEntryDate = agg.LastEntryDate
	r.updateCalls++
	r.lastAgg = agg
	return nil
}

type fakePromptRepo struct {
	items       map[string]*schema.Prompt
	createCalls int
}

func newFakePromptRepo(prompts ...*schema.Prompt) *fakePromptRepo {
	m := make(map[string]*schema.Prompt)
	for _, p := range prompts {
		cp := *p
		m[p.ID] = &cp
	}
	return &fakePromptRepo{items: m}
}

func (r *fakePromptRepo) Create(ctx context.Context, prompt *schema.Prompt) error {
	cp := *prompt
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.items[prompt.ID] = &cp
	r.createCalls++
	return nil
}

func (r *fakePromptRepo) GetUnused(ctx context.Context, userID string) (*schema.Prompt, error) {
	var latest *schema.Prompt
	for _, p := range r.items {
		if p.UserID != userID || p.IsUsed {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakePromptRepo) GetByID(ctx context.Context, id string) (*schema.Prompt, error) {
	if p, ok := r.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakePromptRepo) MarkUsed(ctx context.Context, id string) error {
	if p, ok := r.items[id]; ok {
		p.IsUsed = true
	}
	return nil
}

type fakeInsightRepo struct {
	items       map[string]*schema.WeeklyInsight // key: userID + "|" + weekStart
	upsertCalls int
}

func newFakeInsightRepo() *fakeInsightRepo {
	return &fakeInsightRepo{items: make(map[string]*schema.WeeklyInsight)}
}

func (r *fakeInsightRepo) Upsert(ctx context.Context, insight *schema.WeeklyInsight) error {
	key := insight.UserID + "|" + insight.WeekStart
	cp := *insight
	if existing, ok := r.items[key]; ok {
		// 冲突时 ID 保持稳定
		cp.ID = existing.ID
		insight.ID = existing.ID
	}
	r.items[key] = &cp
	r.upsertCalls++
	return nil
}

func (r *fakeInsightRepo) GetByWeek(ctx context.Context, userID, weekStart string) (*schema.WeeklyInsight, error) {
	if in, ok := r.items[userID+"|"+weekStart]; ok {
		cp := *in
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeInsightRepo) ListByUser(ctx context.Context, userID string, limit int) ([]schema.WeeklyInsight, error) {
	var out []schema.WeeklyInsight
	for _, in := range r.items {
		if in.UserID == userID {
			out = append(out, *in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart > out[j].WeekStart })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeAnalyzer 可注入各操作的返回值/错误，并记录调用次数
type fakeAnalyzer struct {
	sentiment    *ai.SentimentResult
	sentimentErr error
	themes       []string
	themesErr    error
	prompt       *ai.PromptResult
	promptErr    error
	insight      *ai.WeeklyInsightResult
	insightErr   error

	sentimentCalls int
	themesCalls    int
	promptCalls    int
	insightCalls   int

	lastThemeContents []string
	lastPromptReq     *ai.PromptRequest
	lastInsightReq    *ai.WeeklyInsightRequest
}

func (a *fakeAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (*ai.SentimentResult, error) {
	a.sentimentCalls++
	if a.sentimentErr != nil {
		return nil, a.sentimentErr
	}
	if a.sentiment != nil {
		cp := *a.sentiment
		return &cp, nil
	}
	return &ai.SentimentResult{Score: 0.5, Confidence: 0.9, Label: "positive", Mood: "content"}, nil
}

func (a *fakeAnalyzer) ExtractThemes(ctx context.Context, contents []string) ([]string, error) {
	a.themesCalls++
	a.lastThemeContents = contents
	if a.themesErr != nil {
		return nil, a.themesErr
	}
	if a.themes != nil {
		return append([]string(nil), a.themes...), nil
	}
	return []string{"工作", "睡眠"}, nil
}

func (a *fakeAnalyzer) GeneratePrompt(ctx context.Context, req *ai.PromptRequest) (*ai.PromptResult, error) {
	a.promptCalls++
	a.lastPromptReq = req
	if a.promptErr != nil {
		return nil, a.promptErr
	}
	if a.prompt != nil {
		cp := *a.prompt
		return &cp, nil
	}
	return &ai.PromptResult{Prompt: "今天有什么想记下来的？", Context: "基于近期主题", Type: "reflection"}, nil
}

func (a *fakeAnalyzer) GenerateWeeklyInsight(ctx context.Context, req *ai.WeeklyInsightRequest) (*ai.WeeklyInsightResult, error) {
	a.insightCalls++
	a.lastInsightReq = req
	if a.insightErr != nil {
		return nil, a.insightErr
	}
	if a.insight != nil {
		cp := *a.insight
		return &cp, nil
	}
	return &ai.WeeklyInsightResult{
		Summary:         "本周整体平稳。",
		KeyThemes:       []string{"工作"},
		Patterns:        "周中略有压力。",
		Recommendations: "多休息。",
	}, nil
}

// fakeMemory 记录索引与召回调用
type fakeMemory struct {
	indexed     []string
	recallCalls int
	results     []MemoryResult
	recallErr   error
}

func (m *fakeMemory) IndexEntry(ctx context.Context, entry *schema.Entry) error {
	m.indexed = append(m.indexed, entry.ID)
	return nil
}

func (m *fakeMemory) Recall(ctx context.Context, userID, query string, topK int) ([]MemoryResult, error) {
	m.recallCalls++
	if m.recallErr != nil {
		return nil, m.recallErr
	}
	return m.results, nil
}
