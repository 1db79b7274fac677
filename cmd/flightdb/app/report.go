package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roman-kulish/sounding-telemetry/internal/flight"
	"github.com/roman-kulish/sounding-telemetry/internal/merge"
)

// ReportCmd rebuilds the Raw and XData logs of an archived flight.
type ReportCmd struct {
	Flight int64  `arg:"positional,required" help:"archived flight ID"`
	Dir    string `arg:"-d,--dir" default:"." help:"directory the logs are written to"`
	Force  bool   `arg:"-f,--force" help:"overwrite existing logs"`
}

func (c *ReportCmd) Execute(ctx context.Context, env *Env) error {
	rec, records, xdata, err := readFlight(ctx, env.Store, c.Flight, zeroTime, zeroTime)
	if err != nil {
		return err
	}
	f := rec.Flight()

	if !c.Force {
		for _, name := range []string{flight.RawFileName(f), flight.XDataFileName(f)} {
			if _, err = os.Stat(filepath.Join(c.Dir, name)); err == nil {
				return fmt.Errorf("%s already exists in %s", name, c.Dir)
			}
		}
	}

	if err = os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Dir, err)
	}

	s, err := flight.NewSession(c.Dir, f)
	if err != nil {
		return err
	}

	for _, r := range records {
		if err = s.WriteRaw(merge.FormatRecord(r.Time(), r.Sample)); err != nil {
			return errors.Join(err, s.Close())
		}
	}
	for _, x := range xdata {
		if err = s.WriteXData(merge.FormatXData(x.Sample)); err != nil {
			return errors.Join(err, s.Close())
		}
	}

	if err = s.Finish(f.Comments); err != nil {
		return err
	}

	fmt.Fprintln(env.Out, s.RawPath)
	fmt.Fprintln(env.Out, s.XDataPath)
	return nil
}
