package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/roman-kulish/sounding-telemetry/internal/merge"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/storage"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

// ExportCmd writes the records of a flight joined with the nearest XData
// frame as CSV.
type ExportCmd struct {
	Flight    int64  `arg:"positional,required" help:"archived flight ID"`
	Output    string `arg:"-o,--output" default:"-" help:"CSV file, - for the standard output"`
	Tolerance int64  `arg:"--tolerance" default:"1" help:"maximum distance in seconds to the joined XData frame"`
	Start     string `arg:"--start" help:"first timestamp to export (RFC 3339)"`
	End       string `arg:"--end" help:"last timestamp to export (RFC 3339)"`
}

// exportRow is one CSV line. Missing values are empty.
type exportRow struct {
	Time          string `csv:"time"`
	Pressure      string `csv:"pressure"`
	Temperature   string `csv:"temperature"`
	Humidity      string `csv:"humidity"`
	WindDirection string `csv:"wind_direction"`
	WindSpeed     string `csv:"wind_speed"`
	AscentRate    string `csv:"ascent_rate"`
	Height        string `csv:"height"`
	Longitude     string `csv:"longitude"`
	Latitude      string `csv:"latitude"`
	XDataTime     string `csv:"xdata_rx_time"`
	Payload       string `csv:"xdata"`
	TWCFrequency  string `csv:"twc_frequency"`
	SLWCFrequency string `csv:"slwc_frequency"`
}

func (c *ExportCmd) Execute(ctx context.Context, env *Env) error {
	start, err := parseTime(c.Start)
	if err != nil {
		return err
	}
	end, err := parseTime(c.End)
	if err != nil {
		return err
	}

	_, records, xdata, err := readFlight(ctx, env.Store, c.Flight, start, end)
	if err != nil {
		return err
	}

	rows := exportRows(records, xdata, c.Tolerance)

	var w io.Writer = env.Out
	if c.Output != "-" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	if err = gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}

	env.Logger.Info(fmt.Sprintf("exported %d records of flight %d", len(rows), c.Flight))
	return nil
}

func exportRows(records []storage.Record, xdata []storage.XDataRecord, tolerance int64) []exportRow {
	ptu := &table.Table[sounding.PtuSample]{Rows: make([]table.Row[sounding.PtuSample], 0, len(records))}
	for _, r := range records {
		ptu.Rows = append(ptu.Rows, table.Row[sounding.PtuSample]{Time: r.Timestamp, Sample: r.Sample})
	}

	x := &table.Table[sounding.XDataSample]{Rows: make([]table.Row[sounding.XDataSample], 0, len(xdata))}
	for _, r := range xdata {
		x.Rows = append(x.Rows, table.Row[sounding.XDataSample]{Time: r.Timestamp, Sample: r.Sample})
	}

	joined := merge.NearestJoin(ptu, x, tolerance)

	rows := make([]exportRow, 0, len(joined))
	for _, j := range joined {
		row := exportRow{
			Time:          time.Unix(j.Time, 0).UTC().Format(time.RFC3339),
			Pressure:      csvValue(j.PTU.Pressure),
			Temperature:   csvValue(j.PTU.Temperature),
			Humidity:      csvValue(j.PTU.Humidity),
			WindDirection: csvValue(j.PTU.WindDirection),
			WindSpeed:     csvValue(j.PTU.WindSpeed),
			AscentRate:    csvValue(j.PTU.AscentRate),
			Height:        csvValue(j.PTU.Height),
			Longitude:     csvValue(j.PTU.Longitude),
			Latitude:      csvValue(j.PTU.Latitude),
		}
		if j.XData != nil {
			row.XDataTime = csvValue(j.XData.Time)
			row.Payload = j.XData.Payload
			row.TWCFrequency = csvValue(j.XData.TWCFrequency)
			row.SLWCFrequency = csvValue(j.XData.SLWCFrequency)
		}
		rows = append(rows, row)
	}
	return rows
}

func csvValue(v float64) string {
	if sounding.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
