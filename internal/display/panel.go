// Package display renders the live view panels with gonum/plot and serves
// them over HTTP.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/roman-kulish/sounding-telemetry/internal/live"
)

const (
	timeTickFormat = "15:04:05"
	renderDPI      = 72 // one point per pixel
	rangePadding   = 0.05
)

// ErrInvalidRange is returned for an empty or inverted axis range.
var ErrInvalidRange = errors.New("invalid axis range")

// Range is the visible interval of an axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) valid() bool {
	return r.Min < r.Max && !math.IsNaN(r.Min) && !math.IsInf(r.Min, 0) && !math.IsNaN(r.Max) && !math.IsInf(r.Max, 0)
}

// padded widens r by rangePadding on both sides, or by one unit when it is
// a single value, the way an auto-ranged axis leaves room around the data.
func (r Range) padded() Range {
	if r.Min == r.Max {
		return Range{Min: r.Min - 1, Max: r.Max + 1}
	}
	pad := (r.Max - r.Min) * rangePadding
	return Range{Min: r.Min - pad, Max: r.Max + pad}
}

// Panel is one plot of the live view. The driver feeds it while HTTP
// handlers render it, so every access goes through the mutex.
type Panel struct {
	spec     live.PanelSpec
	color    color.Color
	location *time.Location

	mu     sync.RWMutex
	series live.Series
	fixed  live.Axis // axes that no longer follow the data
	x, y   Range
}

// NewPanel creates an empty panel drawn in c. Time axes are labelled in loc.
func NewPanel(spec live.PanelSpec, c color.Color, loc *time.Location) *Panel {
	if loc == nil {
		loc = time.UTC
	}
	return &Panel{
		spec:     spec,
		color:    c,
		location: loc,
		series:   live.Series{Panel: spec.ID, Title: spec.Title, YLabel: spec.YLabel},
	}
}

// ID returns the panel identifier.
func (p *Panel) ID() live.PanelID {
	return p.spec.ID
}

// SetSeries replaces the plotted data. Axes with auto-range disabled keep
// their range.
func (p *Panel) SetSeries(s live.Series) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.series = s
}

// Series returns the plotted data.
func (p *Panel) Series() live.Series {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.series
}

// DisableAutoRange freezes the given axes at the current data extent. Axes
// already frozen, or without data, are left alone.
func (p *Panel) DisableAutoRange(axes live.Axis) {
	p.mu.Lock()
	defer p.mu.Unlock()

	x, y, ok := extent(p.series.Points)
	if !ok {
		return
	}

	if axes&live.AxisX != 0 && p.fixed&live.AxisX == 0 {
		p.x = x.padded()
		p.fixed |= live.AxisX
	}
	if axes&live.AxisY != 0 && p.fixed&live.AxisY == 0 {
		p.y = y.padded()
		p.fixed |= live.AxisY
	}
}

// SetRange applies a manual zoom or pan to one axis. The axis stops
// following the data.
func (p *Panel) SetRange(axis live.Axis, r Range) error {
	if !r.valid() {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, r.Min, r.Max)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch axis {
	case live.AxisX:
		p.x = r
	case live.AxisY:
		p.y = r
	default:
		return fmt.Errorf("%w: unknown axis %d", ErrInvalidRange, axis)
	}
	p.fixed |= axis
	return nil
}

// Ranges returns the frozen ranges and which axes are frozen.
func (p *Panel) Ranges() (x, y Range, fixed live.Axis) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.x, p.y, p.fixed
}

// Plot builds the gonum plot of the current data.
func (p *Panel) Plot() (*plot.Plot, error) {
	p.mu.RLock()
	s, fixed, xr, yr := p.series, p.fixed, p.x, p.y
	p.mu.RUnlock()

	pl := plot.New()
	pl.Title.Text = p.spec.Title
	pl.X.Label.Text = s.XLabel
	pl.Y.Label.Text = p.spec.YLabel
	pl.Add(plotter.NewGrid())

	if s.Time {
		pl.X.Tick.Marker = plot.TimeTicks{Format: timeTickFormat, Time: plot.UnixTimeIn(p.location)}

		// gaps split the line
		for _, segment := range segments(s.Points) {
			line, err := plotter.NewLine(segment)
			if err != nil {
				return nil, fmt.Errorf("plotting %s: %w", p.spec.ID, err)
			}
			line.LineStyle.Color = p.color
			line.LineStyle.Width = vg.Points(1.2)
			pl.Add(line)
		}
	} else if xys := points(s.Points); len(xys) > 0 {
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("plotting %s: %w", p.spec.ID, err)
		}
		scatter.GlyphStyle.Color = p.color
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		pl.Add(scatter)
	}

	// set after Add, which widens the axes to the data
	if fixed&live.AxisX != 0 {
		pl.X.Min, pl.X.Max = xr.Min, xr.Max
	}
	if fixed&live.AxisY != 0 {
		pl.Y.Min, pl.Y.Max = yr.Min, yr.Max
	}

	return pl, nil
}

// Render draws the panel into an image of w by h pixels.
func (p *Panel) Render(w, h int) (image.Image, error) {
	pl, err := p.Plot()
	if err != nil {
		return nil, err
	}

	c := vgimg.NewWith(vgimg.UseWH(vg.Length(w), vg.Length(h)), vgimg.UseDPI(renderDPI))
	pl.Draw(draw.New(c))
	return c.Image(), nil
}

func segments(pts []live.Point) []plotter.XYs {
	var (
		out     []plotter.XYs
		current plotter.XYs
	)
	for _, pt := range pts {
		if pt.IsGap() {
			if len(current) > 0 {
				out = append(out, current)
				current = nil
			}
			continue
		}
		current = append(current, plotter.XY{X: pt.X, Y: pt.Y})
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func points(pts []live.Point) plotter.XYs {
	xys := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		if !pt.IsGap() {
			xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
		}
	}
	return xys
}

func extent(pts []live.Point) (x, y Range, ok bool) {
	for _, pt := range pts {
		if pt.IsGap() {
			continue
		}
		if !ok {
			x, y, ok = Range{pt.X, pt.X}, Range{pt.Y, pt.Y}, true
			continue
		}
		x.Min, x.Max = math.Min(x.Min, pt.X), math.Max(x.Max, pt.X)
		y.Min, y.Max = math.Min(y.Min, pt.Y), math.Max(y.Max, pt.Y)
	}
	return x, y, ok
}
