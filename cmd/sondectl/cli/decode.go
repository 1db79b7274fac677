package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode payload...",
		Short: "Decode the TWC and SLWC frequencies of XData payloads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PAYLOAD\tTWC kHz\tSLWC kHz")

			var errs []error
			for _, payload := range args {
				twc, slwc, err := sounding.DecodeFrequencies(payload)
				if err != nil {
					errs = append(errs, err)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", payload, sounding.FormatShortest(twc), sounding.FormatShortest(slwc))
			}

			return errors.Join(append(errs, w.Flush())...)
		},
	}
}
