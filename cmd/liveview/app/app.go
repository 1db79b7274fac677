package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/sounding-telemetry/internal/display"
	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/metrics"
)

// Run refreshes the panels from the configured directory and serves them
// until ctx is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	stat, err := os.Stat(config.Live.Directory)
	if err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("invalid data directory '%s'", config.Live.Directory)
	}

	server, hub, driver, err := create(config, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 3)
	go func() {
		hub.Run(ctx)
		errc <- nil
	}()
	go func() {
		errc <- server.ListenAndServe(ctx, config.HTTP.Addr)
	}()
	go func() {
		logger.Info("refreshing live view", slog.String("dir", config.Live.Directory),
			slog.Duration("interval", config.Live.Interval.Duration()))
		errc <- driver.Run(ctx)
	}()

	// the first goroutine to return stops the others
	var errs []error
	for range 3 {
		err := <-errc
		cancel()

		if err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func create(config *Config, logger *slog.Logger) (*display.Server, *display.Hub, *live.Driver, error) {
	format, err := display.ParseImageFormat(config.HTTP.ImageFormat)
	if err != nil {
		return nil, nil, nil, err
	}

	dashboard, err := display.NewDashboard(config.Location(),
		display.WithPanelSize(config.HTTP.PanelWidth, config.HTTP.PanelHeight),
		display.WithColumns(config.HTTP.Columns),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating dashboard: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	hub := display.NewHub(display.WithHubLogger(logger))

	server := display.NewServer(dashboard, hub,
		display.WithServerLogger(logger),
		display.WithGatherer(reg),
		display.WithImageFormat(format),
		display.WithStaleAfter(config.HTTP.StaleAfter.Duration()),
	)

	driver := live.NewDriver(config.Live.Directory, dashboard.Panels(),
		live.WithLogger(logger),
		live.WithPatterns(config.Live.RawPattern, config.Live.XDataPattern),
		live.WithHeaderLines(*config.Live.RawHeaderLines, *config.Live.XDataHeaderLines),
		live.WithInterval(config.Live.Interval.Duration()),
		live.WithMaxAttempts(config.Live.MaxAttempts),
		live.WithLocation(config.Location()),
		live.WithMetrics(metrics.NewLive(reg)),
		live.WithObserver(hub),
	)

	return server, hub, driver, nil
}
