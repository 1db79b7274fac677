package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/roman-kulish/sounding-telemetry/cmd/flightdb/app"
	"github.com/roman-kulish/sounding-telemetry/internal/config"
	"github.com/roman-kulish/sounding-telemetry/internal/storage"
)

type args struct {
	Archive    string `arg:"-a,--archive,env:SONDE_ARCHIVE_PATH" default:"archive.sqlite" help:"flight archive database"`
	LogLevel   string `arg:"--log-level,env:SONDE_LOG_LEVEL" default:"info" help:"debug, info, warn or error"`
	NoProgress bool   `arg:"--no-progress" help:"do not draw progress bars"`

	Import *app.ImportCmd `arg:"subcommand:import" help:"archive finished Raw and XData logs"`
	List   *app.ListCmd   `arg:"subcommand:list" help:"list archived flights"`
	Export *app.ExportCmd `arg:"subcommand:export" help:"export a flight as CSV"`
	Report *app.ReportCmd `arg:"subcommand:report" help:"rebuild the logs of an archived flight"`
	Push   *app.PushCmd   `arg:"subcommand:push" help:"copy archived flights into PostgreSQL"`
}

func (args) Description() string {
	return "flightdb manages the archive of recorded sounding flights.\n" +
		"Variables from a .env file in the working directory are loaded first."
}

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	// environment defaults must be in place before the arguments are parsed
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Error(fmt.Sprintf("failed to load environment: %s", err.Error()))
		os.Exit(1)
	}

	var a args
	p := arg.MustParse(&a)

	cmd, ok := p.Subcommand().(app.Command)
	if !ok {
		p.Fail("missing subcommand")
	}

	level, err := config.Settings{LogLevel: a.LogLevel}.Level()
	if err != nil {
		p.Fail(err.Error())
	}
	logLevel.Set(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := storage.NewSqliteStore(a.Archive)

	env := app.Env{
		Store:    store,
		Logger:   logger,
		Out:      os.Stdout,
		Progress: os.Stderr,
	}
	if a.NoProgress {
		env.Progress = nil
	}

	err = cmd.Execute(ctx, &env)
	if closeErr := store.Close(); closeErr != nil {
		logger.Error(fmt.Sprintf("closing archive: %s", closeErr.Error()))
	}

	if err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
