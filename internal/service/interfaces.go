package service

import (
	"context"
	"time"

	"github.com/yuqie6/MoodMirror/internal/ai"
	"github.com/yuqie6/MoodMirror/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

type EntryRepository interface {
	Create(ctx context.Context, entry *schema.Entry) error
	Save(ctx context.Context, entry *schema.Entry) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*schema.Entry, error)
	GetByUser(ctx context.Context, userID string) ([]schema.Entry, error)
	GetCompletedByUser(ctx context.Context, userID string) ([]schema.Entry, error)
	GetRecentCompleted(ctx context.Context, userID string, limit int) ([]schema.Entry, error)
	GetCompletedInRange(ctx context.Context, userID string, start, end time.Time) ([]schema.Entry, error)
	CountCompletedInRange(ctx context.Context, userID string, start, end time.Time) (int64, error)
}

type UserRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*schema.User, error)
	UpdateAggregates(ctx context.Context, userID string, agg schema.UserAggregates) error
}

type PromptRepository interface {
	Create(ctx context.Context, prompt *schema.Prompt) error
	GetUnused(ctx context.Context, userID string) (*schema.Prompt, error)
	GetByID(ctx context.Context, id string) (*schema.Prompt, error)
	MarkUsed(ctx context.Context, id string) error
}

type InsightRepository interface {
	Upsert(ctx context.Context, insight *schema.WeeklyInsight) error
	GetByWeek(ctx context.Context, userID, weekStart string) (*schema.WeeklyInsight, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]schema.WeeklyInsight, error)
}

type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (*ai.SentimentResult, error)
	ExtractThemes(ctx context.Context, contents []string) ([]string, error)
	GeneratePrompt(ctx context.Context, req *ai.PromptRequest) (*ai.PromptResult, error)
	GenerateWeeklyInsight(ctx context.Context, req *ai.WeeklyInsightRequest) (*ai.WeeklyInsightResult, error)
}

type MemoryIndexer interface {
	IndexEntry(ctx context.Context, entry *schema.Entry) error
}

type MemoryRecaller interface {
	Recall(ctx context.Context, userID, query string, topK int) ([]MemoryResult, error)
}
