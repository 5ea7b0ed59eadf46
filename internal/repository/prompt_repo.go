package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/MoodMirror/internal/schema"
	"gorm.io/gorm"
)

// PromptRepository 写作引导仓储
type PromptRepository struct {
	db *gorm.DB
}

// NewPromptRepository 创建仓储
func NewPromptRepository(db *gorm.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// Create 创建引导问题
func (r *PromptRepository) Create(ctx context.Context, prompt *schema.Prompt) error {
	if prompt == nil {
		return fmt.Errorf("prompt 不能为空")
	}
	if err := r.db.WithContext(ctx).Create(prompt).Error; err != nil {
		return fmt.Errorf("创建引导问题失败: %w", err)
	}
	return nil
}

// GetUnused 获取用户最近一条未使用的引导问题，不存在返回 nil
func (r *PromptRepository) GetUnused(ctx context.Context, userID string) (*schema.Prompt, error) {
	var prompt schema.Prompt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_used = ?", userID, false).
		Order("created_at DESC").
		First(&prompt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询未使用引导问题失败: %w", err)
	}
	return &prompt, nil
}

// GetByID 按 ID 获取，不存在返回 nil
func (r *PromptRepository) GetByID(ctx context.Context, id string) (*schema.Prompt, error) {
	var prompt schema.Prompt
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&prompt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询引导问题失败: %w", err)
	}
	return &prompt, nil
}

// MarkUsed 标记为已使用
func (r *PromptRepository) MarkUsed(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Model(&schema.Prompt{}).
		Where("id = ?", id).
		Update("is_used", true).Error
	if err != nil {
		return fmt.Errorf("标记引导问题失败: %w", err)
	}
	return nil
}
