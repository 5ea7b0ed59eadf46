package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuqie6/MoodMirror/internal/schema"
	"github.com/yuqie6/MoodMirror/internal/service"
)

// defaultUserID 未携带 X-User-ID 时的单机本地用户
const defaultUserID = "local"

// ========== DTOs（与前端契约保持稳定） ==========

type EntryDTO struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	WordCount      int      `json:"word_count"`
	SentimentScore *float64 `json:"sentiment_score"`
	SentimentLabel string   `json:"sentiment_label"`
	Mood           string   `json:"mood"`
	Themes         []string `json:"themes"`
	IsCompleted    bool     `json:"is_completed"`
	CreatedAt      int64    `json:"created_at"`
	UpdatedAt      int64    `json:"updated_at"`
}

type StatsDTO struct {
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	TotalEntries  int    `json:"total_entries"`
	WordsWritten  int    `json:"words_written"`
	LastEntryDate string `json:"last_entry_date"` // YYYY-MM-DD，无记录为空
}

type DailyPromptDTO struct {
	Date   string `json:"date"`
	Prompt string `json:"prompt"`
}

type PromptDTO struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Context   string `json:"context"`
	IsUsed    bool   `json:"is_used"`
	CreatedAt int64  `json:"created_at"`
}

type WeeklyInsightDTO struct {
	ID               string   `json:"id"`
	WeekStart        string   `json:"week_start"`
	WeekEnd          string   `json:"week_end"`
	Summary          string   `json:"summary"`
	KeyThemes        []string `json:"key_themes"`
	MoodTrend        string   `json:"mood_trend"`
	AverageSentiment float64  `json:"average_sentiment"`
	EntryCount       int      `json:"entry_count"`
}

// ========== routes ==========

func (a *apiServer) registerJSONRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/entries", a.entries)
	mux.HandleFunc("/api/entries/detail", a.wrapGET(a.getEntry))
	mux.HandleFunc("/api/entries/update", a.wrapPOST(a.updateEntry))
	mux.HandleFunc("/api/entries/delete", a.wrapPOST(a.deleteEntry))

	mux.HandleFunc("/api/stats", a.wrapGET(a.getStats))

	mux.HandleFunc("/api/prompts/daily", a.wrapGET(a.getDailyPrompt))
	mux.HandleFunc("/api/prompts/generate", a.wrapPOST(a.generatePrompt))
	mux.HandleFunc("/api/prompts/mark-used", a.wrapPOST(a.markPromptUsed))

	mux.HandleFunc("/api/insights/weekly", a.wrapGET(a.getWeeklyInsight))
	mux.HandleFunc("/api/insights/history", a.wrapGET(a.listInsightHistory))
}

func (a *apiServer) wrapGET(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func (a *apiServer) wrapPOST(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return defaultUserID
}

// writeServiceError 把服务层错误映射成 HTTP 状态码
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case service.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case service.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ========== handlers ==========

func (a *apiServer) entries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEntries(w, r)
	case http.MethodPost:
		a.createEntry(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *apiServer) listEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := a.core.Services.Entries.List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	result := make([]EntryDTO, len(entries))
	for i := range entries {
		result[i] = entryToDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) createEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content   string `json:"content"`
		Completed *bool  `json:"completed"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := service.CreateEntryInput{Content: req.Content, Completed: true}
	if req.Completed != nil {
		in.Completed = *req.Completed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	entry, err := a.core.Services.Entries.Create(ctx, userID(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entryToDTO(entry))
}

func (a *apiServer) getEntry(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	entry, err := a.core.Services.Entries.Get(r.Context(), userID(r), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToDTO(entry))
}

func (a *apiServer) updateEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID        string  `json:"id"`
		Content   *string `json:"content"`
		Completed *bool   `json:"completed"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	entry, err := a.core.Services.Entries.Update(ctx, userID(r), req.ID, service.UpdateEntryInput{
		Content:   req.Content,
		Completed: req.Completed,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToDTO(entry))
}

func (a *apiServer) deleteEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.core.Services.Entries.Delete(r.Context(), userID(r), req.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *apiServer) getStats(w http.ResponseWriter, r *http.Request) {
	user, err := a.core.Services.Stats.Get(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := StatsDTO{
		CurrentStreak: user.CurrentStreak,
		LongestStreak: user.LongestStreak,
		TotalEntries:  user.TotalEntries,
		WordsWritten:  user.WordsWritten,
	}
	if user.LastEntryDate != nil {
		dto.LastEntryDate = user.LastEntryDate.Local().Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, dto)
}

func (a *apiServer) getDailyPrompt(w http.ResponseWriter, r *http.Request) {
	daily := a.core.Services.Prompts.GetDaily()
	writeJSON(w, http.StatusOK, DailyPromptDTO{Date: daily.Date, Prompt: daily.Prompt})
}

func (a *apiServer) generatePrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh bool `json:"refresh"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	prompt, err := a.core.Services.Prompts.Generate(ctx, userID(r), req.Refresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptToDTO(prompt))
}

func (a *apiServer) markPromptUsed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.core.Services.Prompts.MarkUsed(r.Context(), userID(r), req.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"marked": true})
}

func (a *apiServer) getWeeklyInsight(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()

	insight, err := a.core.Services.Insights.GetWeekly(ctx, userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if insight == nil {
		// 本周还没有已完成条目
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, insightToDTO(insight))
}

func (a *apiServer) listInsightHistory(w http.ResponseWriter, r *http.Request) {
	limit := 12
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	insights, err := a.core.Services.Insights.ListHistory(r.Context(), userID(r), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	result := make([]WeeklyInsightDTO, len(insights))
	for i := range insights {
		result[i] = *insightToDTO(&insights[i])
	}
	writeJSON(w, http.StatusOK, result)
}

// ========== converters ==========

func entryToDTO(e *schema.Entry) EntryDTO {
	themes := []string(e.Themes)
	if themes == nil {
		themes = []string{}
	}
	return EntryDTO{
		ID:             e.ID,
		Content:        e.Content,
		WordCount:      e.WordCount,
		SentimentScore: e.SentimentScore,
		SentimentLabel: e.SentimentLabel,
		Mood:           e.Mood,
		Themes:         themes,
		IsCompleted:    e.IsCompleted,
		CreatedAt:      e.CreatedAt.UnixMilli(),
		UpdatedAt:      e.UpdatedAt.UnixMilli(),
	}
}

func promptToDTO(p *schema.Prompt) PromptDTO {
	return PromptDTO{
		ID:        p.ID,
		Text:      p.Text,
		Context:   p.Context,
		IsUsed:    p.IsUsed,
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
}

func insightToDTO(in *schema.WeeklyInsight) *WeeklyInsightDTO {
	themes := []string(in.KeyThemes)
	if themes == nil {
		themes = []string{}
	}
	return &WeeklyInsightDTO{
		ID:               in.ID,
		WeekStart:        in.WeekStart,
		WeekEnd:          in.WeekEnd,
		Summary:          in.Summary,
		KeyThemes:        themes,
		MoodTrend:        in.MoodTrend,
		AverageSentiment: in.AverageSentiment,
		EntryCount:       in.EntryCount,
	}
}
