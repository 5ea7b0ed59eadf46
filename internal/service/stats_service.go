package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/MoodMirror/internal/eventbus"
	"github.com/yuqie6/MoodMirror/internal/schema"
)

// StatsService 用户统计重算
// 统计字段是缓存不是状态：每次条目增删改之后从完整历史整体重算，
// 绝不拿上一次的缓存值做增量修补（增量路径会和真实历史脱钩）。
type StatsService struct {
	entryRepo EntryRepository
	userRepo  UserRepository
	hub       *eventbus.Hub
	now       func() time.Time
}

// NewStatsService 创建统计服务
func NewStatsService(entryRepo EntryRepository, userRepo UserRepository, hub *eventbus.Hub) *StatsService {
	return &StatsService{
		entryRepo: entryRepo,
		userRepo:  userRepo,
		hub:       hub,
		now:       time.Now,
	}
}

// Recompute 从完整条目历史重算并写回用户统计
// 调用方必须先等条目写入完成再调用（同一请求内读己之写）。
// 重算本身幂等：并发触发时最终状态由最后一次完成的重算决定。
func (s *StatsService) Recompute(ctx context.Context, userID string) error {
	entries, err := s.entryRepo.GetCompletedByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("读取条目历史失败: %w", err)
	}

	agg := ComputeAggregates(entries, s.now())

	// 首篇日记可能早于任何统计读取，先保证用户行存在
	if _, err := s.userRepo.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	if err := s.userRepo.UpdateAggregates(ctx, userID, agg); err != nil {
		return err
	}

	s.hub.Publish(eventbus.Event{
		Type: eventbus.EventStatsRecomputed,
		Data: map[string]any{
			"user_id":        userID,
			"current_streak": agg.CurrentStreak,
			"total_entries":  agg.TotalEntries,
		},
	})
	return nil
}

// Get 获取用户统计（首次访问时建档）
func (s *StatsService) Get(ctx context.Context, userID string) (*schema.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: 缺少用户", ErrValidation)
	}
	return s.userRepo.GetOrCreate(ctx, userID)
}

// ComputeAggregates 从已完成条目集合计算统计
// entries 必须按创建时间倒序。纯函数，便于用固定时间做测试。
//
// 连续天数：单趟扫描，相邻条目的日历日相差恰好一天则延长当前 run，
// 同一天多条不影响，断档则结算 longest 并重开。只有锚定在
// 今天/昨天的第一段 run 才计入 CurrentStreak。
func ComputeAggregates(entries []schema.Entry, now time.Time) schema.UserAggregates {
	var agg schema.UserAggregates
	if len(entries) == 0 {
		return agg
	}

	agg.TotalEntries = len(entries)
	for _, e := range entries {
		agg.WordsWritten += e.WordCount
	}
	last := entries[0].CreatedAt
	agg.LastEntryDate = &last

	today := dayOf(now)
	yesterday := today.AddDate(0, 0, -1)

	firstDay := dayOf(entries[0].CreatedAt)
	anchored := firstDay.Equal(today) || firstDay.Equal(yesterday)

	streak := 1
	longest := 0
	firstRun := true
	if anchored {
		agg.CurrentStreak = 1
	}

	prev := firstDay
	for _, e := range entries[1:] {
		day := dayOf(e.CreatedAt)
		if day.Equal(prev) {
			// 同一天的多条记录属于同一个 run
			continue
		}
		if day.Equal(prev.AddDate(0, 0, -1)) {
			streak++
			if firstRun && anchored {
				agg.CurrentStreak = streak
			}
		} else {
			if streak > longest {
				longest = streak
			}
			streak = 1
			firstRun = false
		}
		prev = day
	}
	if streak > longest {
		longest = streak
	}
	agg.LongestStreak = longest

	if !anchored {
		agg.CurrentStreak = 0
	}

	return agg
}

// dayOf 按本地时区截断到日历日
func dayOf(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
