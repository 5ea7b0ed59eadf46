package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/MoodMirror/internal/ai"
	"github.com/yuqie6/MoodMirror/internal/schema"
)

// PromptService 写作引导
// 两条路径：GetDaily 是无状态的固定轮换；Generate 走模型个性化生成，
// 失败时退回当天的固定引导。同一用户最多持有一条未使用的个性化引导，
// 未显式刷新时优先复用，避免重复计费。
type PromptService struct {
	promptRepo PromptRepository
	entryRepo  EntryRepository
	analyzer   Analyzer
	memory     MemoryRecaller // 可选
	now        func() time.Time
}

// NewPromptService 创建引导服务
func NewPromptService(promptRepo PromptRepository, entryRepo EntryRepository, analyzer Analyzer) *PromptService {
	return &PromptService{
		promptRepo: promptRepo,
		entryRepo:  entryRepo,
		analyzer:   analyzer,
		now:        time.Now,
	}
}

// SetMemoryRecaller 设置长期记忆检索（可选）
func (s *PromptService) SetMemoryRecaller(m MemoryRecaller) {
	s.memory = m
}

// DailyPrompt 当日固定引导
type DailyPrompt struct {
	Date   string `json:"date"`
	Prompt string `json:"prompt"`
}

// GetDaily 返回当天的固定引导问题
// 同一天内所有调用返回同一个问题，不依赖存储。
func (s *PromptService) GetDaily() DailyPrompt {
	day := s.now().Local()
	return DailyPrompt{
		Date:   day.Format("2006-01-02"),
		Prompt: ai.DailyPrompt(day),
	}
}

// Generate 生成（或复用）个性化引导问题
// refresh=false 时若已有未使用的引导直接返回；模型失败退回每日固定引导。
func (s *PromptService) Generate(ctx context.Context, userID string, refresh bool) (*schema.Prompt, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: 缺少用户", ErrValidation)
	}

	if !refresh {
		existing, err := s.promptRepo.GetUnused(ctx, userID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	result := s.generateResult(ctx, userID)

	prompt := &schema.Prompt{
		ID:      uuid.NewString(),
		UserID:  userID,
		Text:    result.Prompt,
		Context: fmt.Sprintf("%s: %s", result.Type, result.Context),
	}
	if err := s.promptRepo.Create(ctx, prompt); err != nil {
		return nil, err
	}
	return prompt, nil
}

// MarkUsed 用户开始基于该引导写作时标记已使用
func (s *PromptService) MarkUsed(ctx context.Context, userID, promptID string) error {
	if userID == "" || promptID == "" {
		return fmt.Errorf("%w: 缺少参数", ErrValidation)
	}
	prompt, err := s.promptRepo.GetByID(ctx, promptID)
	if err != nil {
		return err
	}
	if prompt == nil || prompt.UserID != userID {
		return fmt.Errorf("%w: 引导 %s", ErrNotFound, promptID)
	}
	return s.promptRepo.MarkUsed(ctx, promptID)
}

// generateResult 模型生成，失败降级为当天固定引导
func (s *PromptService) generateResult(ctx context.Context, userID string) *ai.PromptResult {
	req := s.buildRequest(ctx, userID)

	result, err := s.analyzer.GeneratePrompt(ctx, req)
	if err == nil {
		return result
	}

	slog.Warn("引导生成降级为固定轮换", "user", userID, "error", err)
	return &ai.PromptResult{
		Prompt:   ai.DailyPrompt(s.now().Local()),
		Context:  "每日精选引导",
		Type:     "reflection",
		Degraded: true,
	}
}

// buildRequest 汇集个性化上下文：近期摘录、主题、当前情绪、历史记忆
func (s *PromptService) buildRequest(ctx context.Context, userID string) *ai.PromptRequest {
	req := &ai.PromptRequest{}

	recent, err := s.entryRepo.GetRecentCompleted(ctx, userID, 5)
	if err != nil {
		slog.Warn("读取近期条目失败", "user", userID, "error", err)
		return req
	}

	seen := make(map[string]bool)
	for i, e := range recent {
		if i < 3 {
			req.RecentSnippets = append(req.RecentSnippets, truncateRunes(e.Content, 80))
		}
		for _, t := range e.Themes {
			if !seen[t] && len(req.Themes) < 5 {
				seen[t] = true
				req.Themes = append(req.Themes, t)
			}
		}
	}
	if len(recent) > 0 {
		req.CurrentMood = recent[0].Mood
	}

	if s.memory != nil && len(req.Themes) > 0 {
		query := strings.Join(req.Themes, " ")
		if memories, err := s.memory.Recall(ctx, userID, query, 3); err == nil {
			for _, m := range memories {
				req.Memories = append(req.Memories, m.Content)
			}
		} else {
			slog.Debug("检索历史记忆失败", "user", userID, "error", err)
		}
	}

	return req
}
