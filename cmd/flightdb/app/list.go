package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// ListCmd prints the archived flights.
type ListCmd struct{}

func (c *ListCmd) Execute(ctx context.Context, env *Env) error {
	flights, err := env.Store.Flights(ctx)
	if err != nil {
		return fmt.Errorf("listing flights: %w", err)
	}

	w := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSONDE\tSTART\tRECORDS\tXDATA\tDURATION\tCOMPLETED")

	for _, f := range flights {
		records, xdata, err := env.Store.Spans(ctx, f.ID)
		if err != nil {
			return fmt.Errorf("flight %d: %w", f.ID, err)
		}

		completed := "no"
		if f.CompletedAt != nil {
			completed = humanize.Time(*f.CompletedAt)
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID,
			f.RadiosondeID,
			f.StartTime.UTC().Format(time.DateTime),
			humanize.Comma(records.Count),
			humanize.Comma(xdata.Count),
			records.Last.Sub(records.First).Round(time.Second),
			completed,
		)
	}

	return w.Flush()
}
