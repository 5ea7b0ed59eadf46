package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/yuqie6/MoodMirror/internal/ai"
	"github.com/yuqie6/MoodMirror/internal/eventbus"
	"github.com/yuqie6/MoodMirror/internal/pkg/config"
	"github.com/yuqie6/MoodMirror/internal/repository"
	"github.com/yuqie6/MoodMirror/internal/service"
)

// Core 持有应用的核心依赖
type Core struct {
	Cfg *config.Config
	DB  *repository.Database
	Hub *eventbus.Hub

	Repos struct {
		User    *repository.UserRepository
		Entry   *repository.EntryRepository
		Prompt  *repository.PromptRepository
		Insight *repository.InsightRepository
	}

	Services struct {
		Entries  *service.EntryService
		Stats    *service.StatsService
		Prompts  *service.PromptService
		Insights *service.InsightService
		Memory   *service.MemoryService
	}

	Clients struct {
		DeepSeek    *ai.DeepSeekClient
		SiliconFlow *ai.SiliconFlowClient
	}
}

// NewCore 构建核心依赖
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg.App.LogLevel)

	db, err := repository.NewDatabase(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	if db.SafeMode {
		slog.Warn("数据库处于安全模式", "schema_version", db.SchemaVersion, "error", db.MigrationError)
	}

	c := &Core{Cfg: cfg, DB: db, Hub: eventbus.NewHub()}

	// Repos
	c.Repos.User = repository.NewUserRepository(db.DB)
	c.Repos.Entry = repository.NewEntryRepository(db.DB)
	c.Repos.Prompt = repository.NewPromptRepository(db.DB)
	c.Repos.Insight = repository.NewInsightRepository(db.DB)

	// Clients / Analyzer
	// 未配置 API key 时 analyzer 照常构建，调用失败会走各服务的本地降级。
	c.Clients.DeepSeek = ai.NewDeepSeekClient(&ai.DeepSeekConfig{
		APIKey:  cfg.AI.DeepSeek.APIKey,
		BaseURL: cfg.AI.DeepSeek.BaseURL,
		Model:   cfg.AI.DeepSeek.Model,
	})
	analyzer := ai.NewEntryAnalyzer(c.Clients.DeepSeek)
	if !c.Clients.DeepSeek.IsConfigured() {
		slog.Warn("DeepSeek API 未配置，分析全部走本地降级")
	}

	weekStart, err := config.ParseWeekday(cfg.Journal.WeekStart)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// Services
	c.Services.Stats = service.NewStatsService(c.Repos.Entry, c.Repos.User, c.Hub)
	c.Services.Entries = service.NewEntryService(c.Repos.Entry, analyzer, c.Services.Stats, c.Hub)
	c.Services.Prompts = service.NewPromptService(c.Repos.Prompt, c.Repos.Entry, analyzer)
	c.Services.Insights = service.NewInsightService(c.Repos.Entry, c.Repos.Insight, analyzer, c.Hub, weekStart)

	// Optional 长期记忆：嵌入客户端配置了才启用
	if cfg.AI.SiliconFlow.APIKey != "" {
		c.Clients.SiliconFlow = ai.NewSiliconFlowClient(&ai.SiliconFlowConfig{
			APIKey:         cfg.AI.SiliconFlow.APIKey,
			BaseURL:        cfg.AI.SiliconFlow.BaseURL,
			EmbeddingModel: cfg.AI.SiliconFlow.EmbeddingModel,
			RerankerModel:  cfg.AI.SiliconFlow.RerankerModel,
		})
		memory, err := service.NewMemoryService(c.Clients.SiliconFlow, &service.MemoryConfig{
			StoragePath: cfg.Storage.MemoryPath,
		})
		if err != nil {
			slog.Warn("长期记忆初始化失败，已禁用", "error", err)
		} else {
			c.Services.Memory = memory
			c.Services.Entries.SetMemoryIndexer(memory)
			c.Services.Prompts.SetMemoryRecaller(memory)
		}
	}

	return c, nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// RequireAIConfigured 检查 AI 是否已配置
func (c *Core) RequireAIConfigured() error {
	if c.Clients.DeepSeek == nil || !c.Clients.DeepSeek.IsConfigured() {
		return fmt.Errorf("DeepSeek API 未配置")
	}
	return nil
}
