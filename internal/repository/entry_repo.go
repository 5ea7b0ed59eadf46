package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yuqie6/MoodMirror/internal/schema"
	"gorm.io/gorm"
)

// EntryRepository 日记条目仓储
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository 创建仓储
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create 创建条目
func (r *EntryRepository) Create(ctx context.Context, entry *schema.Entry) error {
	if entry == nil {
		return fmt.Errorf("entry 不能为空")
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("创建条目失败: %w", err)
	}
	return nil
}

// Save 整体保存（编辑后的条目，含派生字段）
func (r *EntryRepository) Save(ctx context.Context, entry *schema.Entry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("entry 不能为空")
	}
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("保存条目失败: %w", err)
	}
	return nil
}

// Delete 删除条目
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&schema.Entry{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("删除条目失败: %w", err)
	}
	return nil
}

// GetByID 按 ID 获取，不存在返回 nil
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*schema.Entry, error) {
	var entry schema.Entry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询条目失败: %w", err)
	}
	return &entry, nil
}

// GetByUser 获取用户全部条目（按创建时间倒序）
func (r *EntryRepository) GetByUser(ctx context.Context, userID string) ([]schema.Entry, error) {
	var entries []schema.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询条目失败: %w", err)
	}
	return entries, nil
}

// GetCompletedByUser 获取用户全部已完成条目（按创建时间倒序）
// 统计重算以此为唯一事实来源。
func (r *EntryRepository) GetCompletedByUser(ctx context.Context, userID string) ([]schema.Entry, error) {
	var entries []schema.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询已完成条目失败: %w", err)
	}
	return entries, nil
}

// GetRecentCompleted 获取最近 N 条已完成条目
func (r *EntryRepository) GetRecentCompleted(ctx context.Context, userID string, limit int) ([]schema.Entry, error) {
	var entries []schema.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询最近条目失败: %w", err)
	}
	return entries, nil
}

// GetCompletedInRange 获取时间范围内的已完成条目（按创建时间升序，便于按周汇总）
func (r *EntryRepository) GetCompletedInRange(ctx context.Context, userID string, start, end time.Time) ([]schema.Entry, error) {
	var entries []schema.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ? AND created_at >= ? AND created_at <= ?", userID, true, start, end).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询时间范围条目失败: %w", err)
	}
	return entries, nil
}

// CountCompletedInRange 统计时间范围内的已完成条目数
func (r *EntryRepository) CountCompletedInRange(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&schema.Entry{}).
		Where("user_id = ? AND is_completed = ? AND created_at >= ? AND created_at <= ?", userID, true, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计条目失败: %w", err)
	}
	return count, nil
}
