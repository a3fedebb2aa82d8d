package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/app"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/config"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "radar:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoObj("starting", "app", map[string]any{
		"name": cfg.AppName,
		"env":  cfg.Env,
	})

	radar, err := app.NewRadar(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer radar.Close()

	return radar.Run(ctx)
}
