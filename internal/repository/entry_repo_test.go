package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/MoodMirror/internal/schema"
	"github.com/yuqie6/MoodMirror/internal/testutil"
)

func seedEntry(t *testing.T, repo *EntryRepository, id, userID string, completed bool, createdAt time.Time) *schema.Entry {
	t.Helper()
	entry := &schema.Entry{
		ID: id, UserID: userID, Content: "内容 " + id, WordCount: 10,
		Themes: schema.JSONArray{"工作"}, IsCompleted: completed, CreatedAt: createdAt,
	}
	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("seed entry %s: %v", id, err)
	}
	return entry
}

func TestEntryRepoCRUD(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewEntryRepository(db)
	ctx := context.Background()

	score := 0.4
	entry := &schema.Entry{
		ID: "e1", UserID: "u1", Content: "今天很平静", WordCount: 5,
		SentimentScore: &score, SentimentLabel: "positive", Mood: "calm",
		Themes: schema.JSONArray{"生活", "情绪"}, IsCompleted: true,
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Mood != "calm" || len(got.Themes) != 2 {
		t.Errorf("读回结果错误: %+v", got)
	}
	if got.SentimentScore == nil || *got.SentimentScore != 0.4 {
		t.Errorf("SentimentScore = %v", got.SentimentScore)
	}

	got.Content = "改过的内容"
	got.Mood = "content"
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved, _ := repo.GetByID(ctx, "e1")
	if saved.Content != "改过的内容" || saved.Mood != "content" {
		t.Errorf("保存未生效: %+v", saved)
	}

	if err := repo.Delete(ctx, "e1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gone, _ := repo.GetByID(ctx, "e1"); gone != nil {
		t.Error("删除后应返回 nil")
	}
}

func TestEntryRepoGetByIDMissing(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewEntryRepository(db)

	got, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("不存在应返回 nil, got %+v", got)
	}
}

func TestEntryRepoUserScopedQueries(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewEntryRepository(db)
	ctx := context.Background()
	now := time.Now()

	seedEntry(t, repo, "a", "u1", true, now.Add(-3*time.Hour))
	seedEntry(t, repo, "b", "u1", false, now.Add(-2*time.Hour))
	seedEntry(t, repo, "c", "u1", true, now.Add(-1*time.Hour))
	seedEntry(t, repo, "x", "u2", true, now)

	all, err := repo.GetByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetByUser len = %d, want 3", len(all))
	}
	if all[0].ID != "c" {
		t.Errorf("应按创建时间倒序, got %s", all[0].ID)
	}

	completed, err := repo.GetCompletedByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetCompletedByUser: %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("已完成条数 = %d, want 2", len(completed))
	}

	recent, err := repo.GetRecentCompleted(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("GetRecentCompleted: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "c" {
		t.Errorf("最近一条应为 c: %+v", recent)
	}
}

func TestEntryRepoCompletedInRange(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewEntryRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 17, 12, 0, 0, 0, time.Local)
	seedEntry(t, repo, "in1", "u1", true, base)
	seedEntry(t, repo, "in2", "u1", true, base.AddDate(0, 0, 2))
	seedEntry(t, repo, "out", "u1", true, base.AddDate(0, 0, 10))
	seedEntry(t, repo, "draft", "u1", false, base.AddDate(0, 0, 1))

	start := time.Date(2026, 8, 17, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)

	entries, err := repo.GetCompletedInRange(ctx, "u1", start, end)
	if err != nil {
		t.Fatalf("GetCompletedInRange: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("范围内条数 = %d, want 2", len(entries))
	}
	if entries[0].ID != "in1" || entries[1].ID != "in2" {
		t.Errorf("应按创建时间升序: %s, %s", entries[0].ID, entries[1].ID)
	}

	count, err := repo.CountCompletedInRange(ctx, "u1", start, end)
	if err != nil {
		t.Fatalf("CountCompletedInRange: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
