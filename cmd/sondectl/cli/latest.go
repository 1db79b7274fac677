package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roman-kulish/sounding-telemetry/internal/growfile"
	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

func newLatestCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the logs the live view would follow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			var found bool
			for _, source := range []live.Source{live.SourceRaw, live.SourceXData} {
				f, err := growfile.Latest(s.dir, s.pattern(source))
				if errors.Is(err, sounding.ErrNoMatchingFile) {
					fmt.Fprintf(w, "%s\t-\t\t\n", source)
					continue
				}
				if err != nil {
					return err
				}

				found = true
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", source, f.Path, humanize.Bytes(uint64(f.Size)), humanize.Time(f.ModTime))
			}

			if err = w.Flush(); err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w in %s", sounding.ErrNoMatchingFile, s.dir)
			}
			return nil
		},
	}
}
