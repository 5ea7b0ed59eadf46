package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"github.com/yuqie6/MoodMirror/internal/ai"
	"github.com/yuqie6/MoodMirror/internal/schema"
)

// MemoryService 长期记忆
// 已完成且有分析结果的条目写入本地向量库，
// 引导生成时按主题召回相关的历史片段作为上下文。
// 嵌入客户端未配置时所有操作静默跳过，不影响主流程。
type MemoryService struct {
	db          *chromem.DB
	collection  *chromem.Collection
	sfClient    *ai.SiliconFlowClient
	storagePath string
}

// MemoryConfig 配置
type MemoryConfig struct {
	StoragePath string // 向量数据库存储路径
}

// NewMemoryService 创建长期记忆服务
func NewMemoryService(sfClient *ai.SiliconFlowClient, cfg *MemoryConfig) (*MemoryService, error) {
	if cfg == nil {
		cfg = &MemoryConfig{}
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = "./data/memory"
	}

	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("创建记忆存储目录失败: %w", err)
	}

	db, err := chromem.NewPersistentDB(cfg.StoragePath, false)
	if err != nil {
		return nil, fmt.Errorf("创建向量数据库失败: %w", err)
	}

	collection, err := db.GetOrCreateCollection("entries", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 collection 失败: %w", err)
	}

	return &MemoryService{
		db:          db,
		collection:  collection,
		sfClient:    sfClient,
		storagePath: cfg.StoragePath,
	}, nil
}

// IndexEntry 索引条目
// 只索引已完成且有分析结果的条目；重复索引同一 ID 会覆盖旧文档。
func (s *MemoryService) IndexEntry(ctx context.Context, entry *schema.Entry) error {
	if !s.sfClient.IsConfigured() {
		slog.Debug("嵌入客户端未配置，跳过索引")
		return nil
	}
	if !entry.IsCompleted || !entry.HasAnalysis() {
		return nil
	}

	content := fmt.Sprintf("日期: %s\n情绪: %s\n主题: %s\n内容: %s",
		entry.CreatedAt.Local().Format("2006-01-02"),
		entry.Mood,
		joinThemes(entry.Themes),
		truncateRunes(entry.Content, 500))

	embeddings, err := s.sfClient.Embed(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("生成嵌入失败: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("嵌入结果为空")
	}

	doc := chromem.Document{
		ID:        fmt.Sprintf("entry_%s", entry.ID),
		Content:   content,
		Embedding: embeddings[0],
		Metadata: map[string]string{
			"user": entry.UserID,
			"date": entry.CreatedAt.Local().Format("2006-01-02"),
			"mood": entry.Mood,
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("添加文档失败: %w", err)
	}

	slog.Debug("索引条目", "entry", entry.ID)
	return nil
}

// MemoryResult 记忆召回结果
type MemoryResult struct {
	Content    string
	Similarity float32
	Date       string
	Mood       string
}

// Recall 按相关性召回当前用户的历史片段
func (s *MemoryService) Recall(ctx context.Context, userID, query string, topK int) ([]MemoryResult, error) {
	if !s.sfClient.IsConfigured() {
		return nil, fmt.Errorf("嵌入客户端未配置")
	}
	if topK <= 0 {
		topK = 5
	}
	if count := s.collection.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	queryEmb, err := s.sfClient.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("生成查询嵌入失败: %w", err)
	}
	if len(queryEmb) == 0 {
		return nil, fmt.Errorf("查询嵌入为空")
	}

	results, err := s.collection.QueryEmbedding(ctx, queryEmb[0], topK, map[string]string{"user": userID}, nil)
	if err != nil {
		return nil, fmt.Errorf("向量搜索失败: %w", err)
	}

	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Content
	}

	// Reranker 可用时重排，失败就用向量相似度原始顺序
	reranked, err := s.sfClient.Rerank(ctx, query, docs, topK)
	if err != nil {
		slog.Warn("重排失败，使用原始结果", "error", err)
		memories := make([]MemoryResult, len(results))
		for i, r := range results {
			memories[i] = MemoryResult{
				Content:    r.Content,
				Similarity: r.Similarity,
				Date:       r.Metadata["date"],
				Mood:       r.Metadata["mood"],
			}
		}
		return memories, nil
	}

	memories := make([]MemoryResult, 0, len(reranked))
	for _, rr := range reranked {
		if rr.Index < len(results) {
			memories = append(memories, MemoryResult{
				Content:    results[rr.Index].Content,
				Similarity: float32(rr.RelevanceScore),
				Date:       results[rr.Index].Metadata["date"],
				Mood:       results[rr.Index].Metadata["mood"],
			})
		}
	}
	return memories, nil
}

func joinThemes(themes schema.JSONArray) string {
	if len(themes) == 0 {
		return "无"
	}
	out := ""
	for i, t := range themes {
		if i > 0 {
			out += "、"
		}
		out += t
	}
	return out
}
