package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/MoodMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsightRepository 周洞察仓储
type InsightRepository struct {
	db *gorm.DB
}

// NewInsightRepository 创建仓储
func NewInsightRepository(db *gorm.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// Upsert 以 (user_id, week_start) 为键插入或整体覆盖
// 冲突时不更新 id：同一周的洞察 ID 保持稳定，内容全量重写。
func (r *InsightRepository) Upsert(ctx context.Context, insight *schema.WeeklyInsight) error {
	if insight == nil {
		return fmt.Errorf("insight 不能为空")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "week_start"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"week_end", "summary", "key_themes", "mood_trend",
			"average_sentiment", "entry_count", "updated_at",
		}),
	}).Create(insight).Error
	if err != nil {
		return fmt.Errorf("写入周洞察失败: %w", err)
	}
	return nil
}

// GetByWeek 按 (user_id, week_start) 获取，不存在返回 nil
func (r *InsightRepository) GetByWeek(ctx context.Context, userID, weekStart string) (*schema.WeeklyInsight, error) {
	var insight schema.WeeklyInsight
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_start = ?", userID, weekStart).
		First(&insight).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询周洞察失败: %w", err)
	}
	return &insight, nil
}

// ListByUser 获取用户历史周洞察（按周起始倒序）
func (r *InsightRepository) ListByUser(ctx context.Context, userID string, limit int) ([]schema.WeeklyInsight, error) {
	var insights []schema.WeeklyInsight
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("week_start DESC").
		Limit(limit).
		Find(&insights).Error
	if err != nil {
		return nil, fmt.Errorf("查询历史周洞察失败: %w", err)
	}
	return insights, nil
}
