package schema

import "time"

// User 用户及其运行统计
// 统计字段（连续天数/总篇数/总字数/最后记录时间）全部是派生缓存：
// 只能由 StatsService 从完整条目历史整体重算，禁止增量修补。
type User struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	CurrentStreak int        `gorm:"default:0" json:"current_streak"` // 当前连续记录天数
	LongestStreak int        `gorm:"default:0" json:"longest_streak"` // 历史最长连续天数
	TotalEntries  int        `gorm:"default:0" json:"total_entries"`  // 已完成条目总数
	WordsWritten  int        `gorm:"default:0" json:"words_written"`  // 累计字数
	LastEntryDate *time.Time `json:"last_entry_date"`                 // 最近一次完成条目的时间
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// UserAggregates 统计重算的写回载体
type UserAggregates struct {
	CurrentStreak int
	LongestStreak int
	TotalEntries  int
	WordsWritten  int
	LastEntryDate *time.Time
}
