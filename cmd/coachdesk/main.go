package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"coachdesk/internal/app"
	"coachdesk/internal/config"
	"coachdesk/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code; deferred closes always run before exit.
func run(args []string) int {
	defaultPath := os.Getenv("COACHDESK_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	fs := flag.NewFlagSet("coachdesk", flag.ContinueOnError)
	cfgPath := fs.String("config", defaultPath, "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取配置失败: %v\n", err)
		return 1
	}
	closer := logger.Configure(cfg.App.LogLevel, logger.FileOptions{
		Path:       cfg.App.LogPath,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
		MaxAgeDays: cfg.App.LogMaxAgeDays,
	})
	defer closer.Close()
	logger.Infof("✓ 配置加载成功（环境=%s，ml confidence=%t tier=%t rollout=%d%%）",
		cfg.App.Env, cfg.ML.ConfidenceEnabled, cfg.ML.TierEnabled, cfg.ML.RolloutPct)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		logger.Errorf("初始化应用失败: %v", err)
		return 1
	}
	if err := a.Run(ctx); err != nil {
		logger.Errorf("运行失败: %v", err)
		return 1
	}
	return 0
}

// loadConfig falls back to defaults plus environment when the file is absent.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("config %s not found, using defaults", path)
		return config.Default()
	}
	return config.Load(path)
}
