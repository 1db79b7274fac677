package cli

import (
	"fmt"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/live"
	"github.com/roman-kulish/sounding-telemetry/internal/merge"
	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

// parsedLog is a Raw or an XData table.
type parsedLog struct {
	source live.Source
	raw    *table.Table[sounding.PtuSample]
	xdata  *table.Table[sounding.XDataSample]
}

// summary is what every table reports about the parse.
type summary struct {
	Path      string
	Rows      int
	Attempts  int
	Skipped   int
	Restarts  int
	Partial   bool
	Malformed int
	Comments  string
	First     time.Time
	Last      time.Time
}

func summarize[T any](t *table.Table[T], loc *time.Location) summary {
	s := summary{
		Path:      t.Path,
		Rows:      t.Len(),
		Attempts:  t.Attempts,
		Skipped:   t.SkippedLines,
		Restarts:  t.Restarts,
		Partial:   t.DroppedPartial,
		Malformed: t.MalformedFrames,
		Comments:  t.Comments,
	}
	if first, last, ok := t.Span(); ok {
		s.First = time.Unix(first, 0).In(loc)
		s.Last = time.Unix(last, 0).In(loc)
	}
	return s
}

// parseLog parses the log at path as the given kind. Relative XData times
// are resolved against the start time in the file name.
func (s *settings) parseLog(path string, source live.Source) (*parsedLog, error) {
	opt := table.WithMaxAttempts(s.maxAttempts)

	if source == live.SourceXData {
		epoch, err := table.EpochFromFileName(path, s.location)
		if err != nil {
			s.logger.Warn(fmt.Sprintf("relative XData times are unix times: %s", err.Error()))
			epoch = time.Unix(0, 0).In(s.location)
		}

		t, err := table.Parse(path, table.XDataSchema{Epoch: epoch, Location: s.location}, live.DefaultXDataHeaderLines, opt)
		if err != nil {
			return nil, err
		}
		return &parsedLog{source: source, xdata: t}, nil
	}

	t, err := table.Parse(path, table.RawSchema{Location: s.location}, live.DefaultRawHeaderLines, opt)
	if err != nil {
		return nil, err
	}
	return &parsedLog{source: source, raw: t}, nil
}

func (p *parsedLog) summary(loc *time.Location) summary {
	if p.source == live.SourceXData {
		return summarize(p.xdata, loc)
	}
	return summarize(p.raw, loc)
}

// series returns the panel series of the log.
func (p *parsedLog) series() []live.Series {
	if p.source == live.SourceXData {
		return live.XDataSeries(p.xdata)
	}
	return live.RawSeries(p.raw)
}

// tail formats the last n rows the way they are written to the log.
func (p *parsedLog) tail(n int, loc *time.Location) []string {
	var lines []string
	if p.source == live.SourceXData {
		rows := p.xdata.Rows[max(len(p.xdata.Rows)-n, 0):]
		for _, row := range rows {
			lines = append(lines, merge.FormatXData(row.Sample))
		}
		return lines
	}

	rows := p.raw.Rows[max(len(p.raw.Rows)-n, 0):]
	for _, row := range rows {
		lines = append(lines, merge.FormatRecord(time.Unix(row.Time, 0).In(loc), row.Sample))
	}
	return lines
}
