package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/yuqie6/MoodMirror/internal/ai"
	"github.com/yuqie6/MoodMirror/internal/eventbus"
	"github.com/yuqie6/MoodMirror/internal/schema"
)

// analysisMinWords 分析阈值：不超过该字数的条目跳过所有派生分析
const analysisMinWords = 10

// recentThemeEntries 主题提取时额外带上的近期条目数
const recentThemeEntries = 4

// EntryService 条目流水线
// 每条提交/编辑走固定状态机：计字数 → (分析 | 跳过) → 落库 → 同步重算统计。
// 模型失败永远降级为本地规则，提交本身不会因为模型不可用而失败。
type EntryService struct {
	entryRepo EntryRepository
	analyzer  Analyzer
	stats     *StatsService
	memory    MemoryIndexer // 可选，长期记忆索引
	hub       *eventbus.Hub
}

// NewEntryService 创建条目服务
func NewEntryService(entryRepo EntryRepository, analyzer Analyzer, stats *StatsService, hub *eventbus.Hub) *EntryService {
	return &EntryService{
		entryRepo: entryRepo,
		analyzer:  analyzer,
		stats:     stats,
		hub:       hub,
	}
}

// SetMemoryIndexer 设置长期记忆索引（可选）
func (s *EntryService) SetMemoryIndexer(m MemoryIndexer) {
	s.memory = m
}

// CreateEntryInput 创建条目输入
type CreateEntryInput struct {
	Content   string
	Completed bool
}

// UpdateEntryInput 编辑条目输入（nil 字段表示不修改）
type UpdateEntryInput struct {
	Content   *string
	Completed *bool
}

// Create 创建条目
func (s *EntryService) Create(ctx context.Context, userID string, in CreateEntryInput) (*schema.Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: 缺少用户", ErrValidation)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content 不能为空", ErrValidation)
	}

	entry := &schema.Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Content:     content,
		WordCount:   countWords(content),
		IsCompleted: in.Completed,
	}

	degraded := s.analyze(ctx, entry)

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	// 先等落库完成再重算，保证同一请求内读到的统计已包含本次写入
	if err := s.stats.Recompute(ctx, userID); err != nil {
		return nil, err
	}

	s.indexMemory(ctx, entry)
	s.publishAnalyzed(entry, degraded)

	return entry, nil
}

// Update 编辑条目
// 只有内容文本真正变化时才重新分析；完成状态变化同样触发统计重算。
func (s *EntryService) Update(ctx context.Context, userID, id string, in UpdateEntryInput) (*schema.Entry, error) {
	entry, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	changed := false
	reanalyzed := false
	degraded := false

	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, fmt.Errorf("%w: content 不能为空", ErrValidation)
		}
		if content != entry.Content {
			entry.Content = content
			entry.WordCount = countWords(content)
			degraded = s.analyze(ctx, entry)
			changed = true
			reanalyzed = true
		}
	}
	if in.Completed != nil && *in.Completed != entry.IsCompleted {
		entry.IsCompleted = *in.Completed
		changed = true
	}

	if !changed {
		return entry, nil
	}

	if err := s.entryRepo.Save(ctx, entry); err != nil {
		return nil, err
	}
	if err := s.stats.Recompute(ctx, userID); err != nil {
		return nil, err
	}

	if reanalyzed {
		s.indexMemory(ctx, entry)
		s.publishAnalyzed(entry, degraded)
	}

	return entry, nil
}

// Delete 删除条目并重算属主统计
func (s *EntryService) Delete(ctx context.Context, userID, id string) error {
	entry, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.entryRepo.Delete(ctx, entry.ID); err != nil {
		return err
	}
	return s.stats.Recompute(ctx, userID)
}

// Get 获取单条
func (s *EntryService) Get(ctx context.Context, userID, id string) (*schema.Entry, error) {
	return s.getOwned(ctx, userID, id)
}

// List 获取用户全部条目（按创建时间倒序）
func (s *EntryService) List(ctx context.Context, userID string) ([]schema.Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: 缺少用户", ErrValidation)
	}
	return s.entryRepo.GetByUser(ctx, userID)
}

// getOwned 按 ID 获取并校验归属；他人条目一律按不存在处理
func (s *EntryService) getOwned(ctx context.Context, userID, id string) (*schema.Entry, error) {
	if userID == "" || id == "" {
		return nil, fmt.Errorf("%w: 缺少参数", ErrValidation)
	}
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.UserID != userID {
		return nil, fmt.Errorf("%w: 条目 %s", ErrNotFound, id)
	}
	return entry, nil
}

// analyze 填充派生字段，返回是否走了降级路径
// 字数不超过阈值：清空派生字段，完全跳过分析。
// 情感分析和主题提取任一失败：整体降级为本地规则
// （mood 用关键词分类，score 归零，label 取 mood，主题为空）。
func (s *EntryService) analyze(ctx context.Context, entry *schema.Entry) bool {
	if entry.WordCount <= analysisMinWords {
		entry.SentimentScore = nil
		entry.SentimentLabel = ""
		entry.Mood = ""
		entry.Themes = nil
		return false
	}

	sent, err := s.analyzer.AnalyzeSentiment(ctx, entry.Content)
	if err == nil {
		var themes []string
		themes, err = s.analyzer.ExtractThemes(ctx, s.themeContents(ctx, entry))
		if err == nil {
			score := sent.Score
			entry.SentimentScore = &score
			entry.SentimentLabel = sent.Label
			entry.Mood = sent.Mood
			entry.Themes = schema.JSONArray(themes)
			return false
		}
	}

	slog.Warn("条目分析降级为本地规则", "entry", entry.ID, "error", err)

	fb := ai.FallbackSentiment(entry.Content)
	score := fb.Score
	entry.SentimentScore = &score
	entry.SentimentLabel = fb.Label
	entry.Mood = fb.Mood
	entry.Themes = schema.JSONArray{}
	return true
}

// themeContents 主题提取的输入：本条 + 最多 4 条更早的已完成条目
func (s *EntryService) themeContents(ctx context.Context, entry *schema.Entry) []string {
	contents := []string{entry.Content}

	recent, err := s.entryRepo.GetRecentCompleted(ctx, entry.UserID, recentThemeEntries+1)
	if err != nil {
		// 辅助上下文拿不到不致命，退化成只用当前内容
		slog.Warn("读取近期条目失败", "user", entry.UserID, "error", err)
		return contents
	}
	for _, e := range recent {
		if e.ID == entry.ID {
			continue
		}
		contents = append(contents, e.Content)
		if len(contents) == recentThemeEntries+1 {
			break
		}
	}
	return contents
}

func (s *EntryService) indexMemory(ctx context.Context, entry *schema.Entry) {
	if s.memory == nil {
		return
	}
	if err := s.memory.IndexEntry(ctx, entry); err != nil {
		slog.Warn("索引条目到长期记忆失败", "entry", entry.ID, "error", err)
	}
}

func (s *EntryService) publishAnalyzed(entry *schema.Entry, degraded bool) {
	s.hub.Publish(eventbus.Event{
		Type: eventbus.EventEntryAnalyzed,
		Data: map[string]any{
			"entry_id": entry.ID,
			"user_id":  entry.UserID,
			"mood":     entry.Mood,
			"degraded": degraded,
		},
	})
}
