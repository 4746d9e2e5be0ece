package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soval/screen-trigger-go/config"
	"github.com/soval/screen-trigger-go/debug"
	"github.com/soval/screen-trigger-go/domain/action"
	"github.com/soval/screen-trigger-go/domain/capture"
	"github.com/soval/screen-trigger-go/domain/detect"
	"github.com/soval/screen-trigger-go/domain/match"
	"github.com/soval/screen-trigger-go/domain/meter"
	"github.com/soval/screen-trigger-go/domain/target"
	"github.com/soval/screen-trigger-go/domain/trigger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	debugFlag := flag.Bool("debug", false, "enable debug logging and runtime stats")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		NewLogger(slog.LevelError).Error("config load failed", "error", err)
		os.Exit(1)
	}
	if *debugFlag {
		cfg.Debug = true
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)

	store := target.NewMemoryStore()
	router := trigger.NewRouter(logger)
	engine, err := detect.NewEngine(
		cfg,
		capture.NewScreenProvider(logger),
		store,
		match.NewRegistry(),
		trigger.NewCooldownManager(logger),
		meter.NewChangeAnalyzer(logger),
		router,
		action.NewDispatcher(&action.LogActuator{Logger: logger}, cfg.Devices, logger),
		detect.NewMemoryHistory(cfg.HistorySize),
		logger,
	)
	if err != nil {
		logger.Error("engine init failed", "error", err)
		os.Exit(1)
	}

	if cfg.Debug {
		debug.StartGoroutineLogger(5*time.Second, logger, engine.Stats)
		debug.StartMemLogger(5*time.Second, logger, engine.Stats)
	}

	if err := engine.Start(); err != nil {
		logger.Error("engine start failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	engine.Stop()
}
