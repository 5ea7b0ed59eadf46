package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuqie6/MoodMirror/internal/bootstrap"
	"github.com/yuqie6/MoodMirror/internal/httpapi"
	"github.com/yuqie6/MoodMirror/internal/pkg/buildinfo"
	"github.com/yuqie6/MoodMirror/internal/pkg/config"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "配置文件路径（默认 config/config.yaml）")
		showVersion = flag.Bool("version", false, "打印版本并退出")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("moodmirror %s (%s)\n", buildinfo.Version, buildinfo.Commit)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := *cfgPath
	if path == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			path = p
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				_ = config.WriteFile(path, config.Default())
			}
		}
	}

	core, err := bootstrap.NewCore(path)
	if err != nil {
		slog.Error("启动失败", "error", err)
		os.Exit(1)
	}
	defer core.Close()

	slog.Info("MoodMirror 启动中...", "name", core.Cfg.App.Name, "version", buildinfo.Version)

	server, err := httpapi.Start(ctx, core, httpapi.Options{ListenAddr: core.Cfg.Server.ListenAddr})
	if err != nil {
		slog.Error("启动 HTTP 服务失败", "error", err)
		os.Exit(1)
	}
	slog.Info("MoodMirror 已启动", "base_url", server.BaseURL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("正在关闭...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = server.Shutdown(shutdownCtx)
	shutdownCancel()

	slog.Info("MoodMirror 已退出")
}
