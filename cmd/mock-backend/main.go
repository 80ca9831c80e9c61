package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gridhedge/internal/mockserver"
	"github.com/betbot/gridhedge/pkg/config"
	"github.com/betbot/gridhedge/pkg/logger"
	"github.com/betbot/gridhedge/pkg/sdk/api"
	"github.com/betbot/gridhedge/pkg/shutdown"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("GRIDHEDGE_CONFIG"), "config file (.yaml/.yml/.json)")
		listenAddr = flag.String("listen", "", "HTTP listen address (overrides config)")
		specsPath  = flag.String("specs", "", "YAML file with symbol specs (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Mock.Listen = *listenAddr
	}
	if *specsPath != "" {
		cfg.Mock.SpecsFile = *specsPath
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		Console:    true,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	log := logrus.WithField("module", "main")

	var specs []api.SymbolSpec
	if cfg.Mock.SpecsFile != "" {
		if specs, err = mockserver.LoadSpecs(cfg.Mock.SpecsFile); err != nil {
			log.Fatalf("load specs failed: %v", err)
		}
	}

	srv, err := mockserver.New(mockserver.Config{
		Specs:         specs,
		AdminPassword: cfg.Mock.AdminPassword,
		RateLimit:     cfg.Mock.RateLimit,
		RateBurst:     cfg.Mock.RateBurst,
	})
	if err != nil {
		log.Fatalf("init server failed: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Mock.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("mock backend listening on %s", cfg.Mock.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server error: %v", err)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	mgr := shutdown.NewManager()
	mgr.OnShutdown("http", httpSrv.Shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}

	log.Info("mock backend stopped")
}
