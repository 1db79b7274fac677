package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/sounding-telemetry/internal/flight"
	"github.com/roman-kulish/sounding-telemetry/internal/hostfeed"
	"github.com/roman-kulish/sounding-telemetry/internal/metrics"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/storage"
)

const eventsBufferSize = 64

// Run reads host notifications from the configured feed and records flights
// until the feed ends or ctx is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if err := os.MkdirAll(config.Recorder.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	recorder, closeArchive, err := createRecorder(config, metrics.NewRecorder(reg), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeArchive(); err != nil {
			logger.Error(fmt.Sprintf("closing archive: %s", err.Error()))
		}
	}()

	src, err := hostfeed.Open(ctx, config.Feed.Source)
	if err != nil {
		return fmt.Errorf("opening feed: %w", err)
	}
	defer src.Close()

	reader := hostfeed.NewReader(config.Feed.Source, src,
		hostfeed.WithLogger(logger),
		hostfeed.WithDecodeErrorsThreshold(config.Feed.DecodeErrorsThreshold),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	events := make(chan sounding.Event, eventsBufferSize)

	go func() {
		errc <- reader.Run(ctx, events)
	}()

	if config.Metrics.Addr != "" {
		go func() {
			logger.Info("serving metrics", slog.String("addr", config.Metrics.Addr))
			if err := metrics.ListenAndServe(ctx, config.Metrics.Addr, reg); err != nil {
				logger.Error(err.Error())
			}
		}()
	}

	logger.Info("recording flights", slog.String("dir", config.Recorder.OutputDir))

	// the recorder returns once the reader closes the channel
	recErr := recorder.Run(ctx, events)
	cancel()

	feedErr := <-errc
	if errors.Is(feedErr, context.Canceled) {
		feedErr = nil
	}

	return errors.Join(recErr, feedErr)
}

func createRecorder(config *Config, m *metrics.Recorder, logger *slog.Logger) (*flight.Recorder, func() error, error) {
	source, err := config.XDataSource()
	if err != nil {
		return nil, nil, err
	}

	options := []func(*flight.Recorder){
		flight.WithLogger(logger),
		flight.WithMetrics(m),
		flight.WithXDataSource(source),
		flight.WithDestinations(config.Recorder.Destinations...),
		flight.WithStopOnFailure(*config.Recorder.StopOnFailure),
		flight.WithMaxBatchSize(config.Archive.MaxBatchSize),
	}

	closeArchive := func() error { return nil }
	if config.Archive.Enabled {
		store := storage.NewSqliteStore(config.Archive.Path)
		options = append(options, flight.WithArchive(store))
		closeArchive = store.Close

		logger.Info("archiving flights", slog.String("path", config.Archive.Path))
	}

	return flight.NewRecorder(config.Recorder.OutputDir, options...), closeArchive, nil
}
