package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roman-kulish/sounding-telemetry/internal/growfile"
	"github.com/roman-kulish/sounding-telemetry/internal/live"
)

func newParseCmd(v *viper.Viper) *cobra.Command {
	var (
		kind   string
		tail   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "parse [log]",
		Short: "Parse a log and report what the live view would plot",
		Long: `Parse a log with the same header-skip retry as the live view. Without an
argument the newest log of --kind in --dir is parsed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			source := live.Source(kind)
			if source != live.SourceRaw && source != live.SourceXData && source != "" {
				return fmt.Errorf("invalid kind %q, want raw or xdata", kind)
			}

			var path string
			if len(args) == 1 {
				path = args[0]
				if source == "" {
					source = sourceOf(path)
				}
			} else {
				if source == "" {
					source = live.SourceRaw
				}
				if path, err = growfile.SelectLatest(s.dir, s.pattern(source)); err != nil {
					return err
				}
			}

			log, err := s.parseLog(path, source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(log.series())
			}

			if err = writeSummary(out, log.summary(s.location)); err != nil {
				return err
			}
			if tail > 0 {
				fmt.Fprintln(out)
				for _, line := range log.tail(tail, s.location) {
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "raw or xdata (default: guessed from the file name)")
	cmd.Flags().IntVarP(&tail, "tail", "n", 0, "print the last n rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the panel series as JSON")
	return cmd
}

func writeSummary(out io.Writer, s summary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "file\t%s\n", filepath.Base(s.Path))
	fmt.Fprintf(w, "rows\t%s\n", humanize.Comma(int64(s.Rows)))
	if s.Rows > 0 {
		fmt.Fprintf(w, "span\t%s to %s (%s)\n",
			s.First.Format(time.DateTime), s.Last.Format(time.DateTime), s.Last.Sub(s.First))
	}
	fmt.Fprintf(w, "attempts\t%d, %d header lines skipped\n", s.Attempts, s.Skipped)
	if s.Restarts > 0 {
		fmt.Fprintf(w, "restarts\t%d\n", s.Restarts)
	}
	if s.Partial {
		fmt.Fprintf(w, "partial\tlast line still being written\n")
	}
	if s.Malformed > 0 {
		fmt.Fprintf(w, "malformed\t%d frames\n", s.Malformed)
	}
	if s.Comments != "" {
		fmt.Fprintf(w, "comments\t%s\n", s.Comments)
	}

	return w.Flush()
}
