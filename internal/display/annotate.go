package display

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/sounding-telemetry/internal/live"
)

const (
	dpi     float64 = 72
	size    float64 = 14
	spacing float64 = 1.3

	statusLines  = 2
	statusMargin = 6
)

var statusColor = image.NewUniform(color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff})

// annotator draws the status bar under the panels.
type annotator struct {
	mu      sync.Mutex // the freetype context holds per-draw state
	context *freetype.Context
	now     func() time.Time
}

func newAnnotator() (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(size)
	context.SetSrc(statusColor)
	context.SetHinting(font.HintingFull)

	return &annotator{context: context, now: time.Now}, nil
}

// statusHeight is the height in pixels of the status bar.
func statusHeight() int {
	lineHeight := size * spacing
	return int(lineHeight)*statusLines + 2*statusMargin
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, s live.Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.context.SetClip(area)
	a.context.SetDst(img)

	lines := []string{
		fmt.Sprintf("%s    %s", a.logStatus("Raw", s.RawPath, s.RawRows), a.logStatus("XData", s.XDataPath, s.XDataRows)),
		a.refreshStatus(s),
	}

	pt := freetype.Pt(area.Min.X+statusMargin, area.Min.Y+statusMargin+int(size))
	for _, line := range lines {
		if _, err := a.context.DrawString(line, pt); err != nil {
			return fmt.Errorf("drawing status %q: %w", line, err)
		}
		pt.Y += a.context.PointToFixed(size * spacing)
	}

	return nil
}

func (a *annotator) logStatus(name, path string, rows int) string {
	if path == "" {
		return name + ": waiting for a log"
	}
	return fmt.Sprintf("%s: %s (%s rows)", name, filepath.Base(path), humanize.Comma(int64(rows)))
}

func (a *annotator) refreshStatus(s live.Snapshot) string {
	if s.Time.IsZero() {
		return "Not refreshed yet"
	}
	return fmt.Sprintf("Refreshed %s at %s, ranges %s",
		humanize.RelTime(s.Time, a.now(), "ago", "from now"), s.Time.Format(time.TimeOnly), s.State)
}
