package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roman-kulish/sounding-telemetry/internal/growfile"
	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

func newWatchCmd(v *viper.Viper) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report every change of the newest logs",
		Long: `Watch the log directory and print a line each time the newest Raw or XData
log grows. Changes are batched over --interval; a log that cannot be parsed
yet is reported and retried on the next change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}
			return watch(cmd.Context(), s, interval, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", live.DefaultInterval, "minimum time between two reports")
	return cmd
}

// watch reports the newest logs on start and after every batch of file
// system events, until ctx is cancelled.
func watch(ctx context.Context, s *settings, interval time.Duration, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err = watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}

	w := watchReporter{settings: s, out: out, reported: make(map[live.Source]string)}
	w.report()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending bool
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = pending || w.matches(ev.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(fmt.Sprintf("watching %s: %s", s.dir, err.Error()))

		case <-ticker.C:
			if pending {
				pending = false
				w.report()
			}
		}
	}
}

type watchReporter struct {
	*settings
	out io.Writer

	// last line printed per log, repeated lines are not printed again
	reported map[live.Source]string
}

func (w *watchReporter) matches(path string) bool {
	for _, source := range []live.Source{live.SourceRaw, live.SourceXData} {
		if ok, _ := filepath.Match(w.pattern(source), filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

func (w *watchReporter) report() {
	for _, source := range []live.Source{live.SourceRaw, live.SourceXData} {
		line, err := w.status(source)
		if err != nil {
			if errors.Is(err, sounding.ErrNoMatchingFile) {
				w.logger.Debug("no log yet", slog.String("log", string(source)))
				continue
			}
			line = fmt.Sprintf("%-5s %s", source, err.Error())
		}

		if w.reported[source] == line {
			continue
		}
		w.reported[source] = line
		fmt.Fprintf(w.out, "%s %s\n", time.Now().Format(time.TimeOnly), line)
	}
}

func (w *watchReporter) status(source live.Source) (string, error) {
	f, err := growfile.Latest(w.dir, w.pattern(source))
	if err != nil {
		return "", err
	}

	log, err := w.parseLog(f.Path, source)
	if err != nil {
		return "", err
	}

	sum := log.summary(w.location)
	line := fmt.Sprintf("%-5s %s %s, %s rows", source, filepath.Base(f.Path), humanize.Bytes(uint64(f.Size)), humanize.Comma(int64(sum.Rows)))
	if sum.Rows > 0 {
		line += ", last " + sum.Last.Format(time.TimeOnly)
	}
	if sum.Malformed > 0 {
		line += fmt.Sprintf(", %d malformed", sum.Malformed)
	}
	if sum.Comments != "" {
		line += ", finalized"
	}
	return line, nil
}
