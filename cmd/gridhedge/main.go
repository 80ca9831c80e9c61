package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gridhedge/internal/editor"
	"github.com/betbot/gridhedge/internal/store"
	"github.com/betbot/gridhedge/internal/tui"
	"github.com/betbot/gridhedge/pkg/config"
	"github.com/betbot/gridhedge/pkg/logger"
	"github.com/betbot/gridhedge/pkg/sdk/api"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("GRIDHEDGE_CONFIG"), "config file (.yaml/.yml/.json)")
		apiURL     = flag.String("api", "", "backend base URL, e.g. http://127.0.0.1:8000/api (overrides config)")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	// 全屏 TUI 下日志只写文件，避免破坏界面
	if cfg.Log.File == "" {
		cfg.Log.File = config.Default().Log.File
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	log := logrus.WithField("module", "main")
	log.Infof("gridhedge starting, backend=%s", cfg.API.BaseURL)

	client := api.NewClient(cfg.API.BaseURL, cfg.HTTPOptions())
	st := store.New(client)
	session := editor.NewSession(st, st)

	p := tea.NewProgram(tui.New(st, session), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Errorf("tui exited with error: %v", err)
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
	log.Info("gridhedge stopped")
}
