package schema

import "time"

// Entry 日记条目
// 数据量级：千级/年
// SentimentScore/SentimentLabel/Mood/Themes 是派生字段，
// 仅当 WordCount 超过分析阈值时才会写入，低于阈值保持零值。
type Entry struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"size:36;index" json:"user_id"`
	Content        string    `gorm:"type:text" json:"content"`
	WordCount      int       `gorm:"default:0" json:"word_count"`
	SentimentScore *float64  `json:"sentiment_score"`                   // [-1, 1]
	SentimentLabel string    `gorm:"size:20" json:"sentiment_label"`    // positive | negative | neutral（降级路径下等于 Mood）
	Mood           string    `gorm:"size:20;index" json:"mood"`         // 情绪标签，见 ai.MoodTags
	Themes         JSONArray `gorm:"type:text" json:"themes"`           // 主题，0-5 个
	IsCompleted    bool      `gorm:"default:true;index" json:"is_completed"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Entry) TableName() string {
	return "entries"
}

// HasAnalysis 是否已有派生分析结果
func (e *Entry) HasAnalysis() bool {
	return e.Mood != ""
}
