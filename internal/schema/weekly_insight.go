package schema

import "time"

// WeeklyInsight 周洞察
// (UserID, WeekStart) 唯一；当该周已完成条目数超过 EntryCount 即视为过期，
// 由 InsightService 以 upsert 方式整体重建（ID 保持稳定，内容全量重写）。
type WeeklyInsight struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	UserID           string    `gorm:"size:36;uniqueIndex:uniq_user_week" json:"user_id"`
	WeekStart        string    `gorm:"size:10;uniqueIndex:uniq_user_week" json:"week_start"` // YYYY-MM-DD
	WeekEnd          string    `gorm:"size:10" json:"week_end"`                              // YYYY-MM-DD
	Summary          string    `gorm:"type:text" json:"summary"`
	KeyThemes        JSONArray `gorm:"type:text" json:"key_themes"`
	MoodTrend        string    `gorm:"size:30" json:"mood_trend"`       // 本周主导情绪
	AverageSentiment float64   `gorm:"default:0" json:"average_sentiment"`
	EntryCount       int       `gorm:"default:0" json:"entry_count"` // 参与汇总的已完成条目数
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (WeeklyInsight) TableName() string {
	return "weekly_insights"
}
