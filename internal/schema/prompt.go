package schema

import "time"

// Prompt 写作引导
// 约束：每个用户同一时刻最多持有一条未使用的 Prompt，
// 生成接口优先复用未使用的那条，除非显式要求刷新。
type Prompt struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index" json:"user_id"`
	Text      string    `gorm:"type:text" json:"text"`
	Context   string    `gorm:"size:255" json:"context"` // 一句话来源说明/分类
	IsUsed    bool      `gorm:"default:false;index" json:"is_used"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Prompt) TableName() string {
	return "prompts"
}
