package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/sounding-telemetry/cmd/liveview/app"
	"github.com/roman-kulish/sounding-telemetry/internal/config"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath, envPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&envPath, "env", ".env", "Path to an optional .env file")
	flag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	if err := config.LoadDotEnv(envPath); err != nil {
		logger.Error(fmt.Sprintf("failed to load environment: %s", err.Error()), slog.String("path", envPath))
		os.Exit(1)
	}

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	level, _ := cfg.Settings.Level() // validated by LoadConfig
	logLevel.Set(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, cfg, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
