package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	AI      AIConfig      `mapstructure:"ai"`
	Journal JournalConfig `mapstructure:"journal"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DBPath     string `mapstructure:"db_path"`
	MemoryPath string `mapstructure:"memory_path"`
}

// AIConfig AI 配置
type AIConfig struct {
	DeepSeek    DeepSeekConfig    `mapstructure:"deepseek"`
	SiliconFlow SiliconFlowConfig `mapstructure:"siliconflow"`
}

// DeepSeekConfig DeepSeek 配置
type DeepSeekConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// SiliconFlowConfig SiliconFlow 配置（嵌入 / 重排）
type SiliconFlowConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	RerankerModel  string `mapstructure:"reranker_model"`
}

// JournalConfig 日记行为配置
type JournalConfig struct {
	WeekStart string `mapstructure:"week_start"` // 周窗口起始日，monday/sunday/...
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量
	v.SetEnvPrefix("MOODMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 处理环境变量占位符
	cfg.AI.DeepSeek.APIKey = expandEnv(cfg.AI.DeepSeek.APIKey)
	cfg.AI.SiliconFlow.APIKey = expandEnv(cfg.AI.SiliconFlow.APIKey)

	// 处理相对路径
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	cfg.Storage.MemoryPath = resolvePath(cfg.Storage.MemoryPath)

	if _, err := ParseWeekday(cfg.Journal.WeekStart); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default 返回默认配置（用于首次运行时落盘模板）
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "moodmirror",
			Version:  "0.1.0",
			LogLevel: "info",
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8799",
		},
		Storage: StorageConfig{
			DBPath:     "./data/moodmirror.db",
			MemoryPath: "./data/memory",
		},
		AI: AIConfig{
			DeepSeek: DeepSeekConfig{
				APIKey:  "${DEEPSEEK_API_KEY}",
				BaseURL: "https://api.deepseek.com",
				Model:   "deepseek-chat",
			},
			SiliconFlow: SiliconFlowConfig{
				APIKey:         "${SILICONFLOW_API_KEY}",
				BaseURL:        "https://api.siliconflow.cn",
				EmbeddingModel: "BAAI/bge-m3",
				RerankerModel:  "BAAI/bge-reranker-v2-m3",
			},
		},
		Journal: JournalConfig{
			WeekStart: "monday",
		},
	}
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "moodmirror")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")

	// Server
	v.SetDefault("server.listen_addr", "127.0.0.1:8799")

	// Storage
	v.SetDefault("storage.db_path", "./data/moodmirror.db")
	v.SetDefault("storage.memory_path", "./data/memory")

	// AI
	v.SetDefault("ai.deepseek.base_url", "https://api.deepseek.com")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.siliconflow.base_url", "https://api.siliconflow.cn")
	v.SetDefault("ai.siliconflow.embedding_model", "BAAI/bge-m3")
	v.SetDefault("ai.siliconflow.reranker_model", "BAAI/bge-reranker-v2-m3")

	// Journal
	v.SetDefault("journal.week_start", "monday")
}

// ParseWeekday 解析周起始日配置
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "monday":
		return time.Monday, nil
	case "sunday":
		return time.Sunday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Monday, fmt.Errorf("无效的 journal.week_start: %q", name)
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	// 获取可执行文件目录
	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}

// SetupLogger 根据配置设置日志级别
func SetupLogger(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
