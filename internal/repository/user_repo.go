package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/MoodMirror/internal/schema"
	"gorm.io/gorm"
)

// UserRepository 用户仓储
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建仓储
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate 按 ID 获取用户，不存在则创建（首次认证即建档）
func (r *UserRepository) GetOrCreate(ctx context.Context, userID string) (*schema.User, error) {
	var user schema.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	user = schema.User{ID: userID}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return &user, nil
}

// UpdateAggregates 整体写回统计缓存
// 只允许 StatsService 调用；字段全量覆盖，不做增量。
func (r *UserRepository) UpdateAggregates(ctx context.Context, userID string, agg schema.UserAggregates) error {
	updates := map[string]interface{}{
		"current_streak":  agg.CurrentStreak,
		"longest_streak":  agg.LongestStreak,
		"total_entries":   agg.TotalEntries,
		"words_written":   agg.WordsWritten,
		"last_entry_date": agg.LastEntryDate,
	}
	if err := r.db.WithContext(ctx).Model(&schema.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return fmt.Errorf("写回用户统计失败: %w", err)
	}
	return nil
}
