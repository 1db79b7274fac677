package display

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/live"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	DefaultPanelWidth  = 480
	DefaultPanelHeight = 320
	DefaultColumns     = 4

	jpegQuality = 90
)

// ImageFormat is the encoding of rendered images.
type ImageFormat string

// ContentType returns the MIME type of the format.
func (f ImageFormat) ContentType() string {
	if f == ImageJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseImageFormat accepts png, jpeg and jpg.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return ImagePNG, nil
	case "jpeg", "jpg":
		return ImageJPEG, nil
	default:
		return "", fmt.Errorf("invalid image format: %s", s)
	}
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	default:
		return png.Encode(w, img)
	}
}

// WithPanelSize sets the size in pixels of every panel.
func WithPanelSize(w, h int) func(*Dashboard) {
	return func(d *Dashboard) {
		if w > 0 && h > 0 {
			d.width, d.height = w, h
		}
	}
}

// WithColumns sets the number of panels per row.
func WithColumns(n int) func(*Dashboard) {
	return func(d *Dashboard) {
		if n > 0 {
			d.columns = n
		}
	}
}

// Dashboard lays the panels out in a grid above a status bar.
type Dashboard struct {
	panels  []*Panel
	byID    map[live.PanelID]*Panel
	columns int
	width   int
	height  int

	annotator *annotator
}

// NewDashboard creates a panel for every entry of live.Panels, in display
// order, each with its own palette colour.
func NewDashboard(loc *time.Location, options ...func(*Dashboard)) (*Dashboard, error) {
	ann, err := newAnnotator()
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}

	d := Dashboard{
		byID:      make(map[live.PanelID]*Panel, len(live.Panels)),
		columns:   DefaultColumns,
		width:     DefaultPanelWidth,
		height:    DefaultPanelHeight,
		annotator: ann,
	}

	colors := Palette(len(live.Panels))
	for i, spec := range live.Panels {
		p := NewPanel(spec, colors[i], loc)
		d.panels = append(d.panels, p)
		d.byID[spec.ID] = p
	}

	for _, option := range options {
		option(&d)
	}

	return &d, nil
}

// Panel returns a panel by identifier.
func (d *Dashboard) Panel(id live.PanelID) (*Panel, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// Panels returns the panels keyed by identifier, as the live driver feeds
// them.
func (d *Dashboard) Panels() map[live.PanelID]live.Panel {
	panels := make(map[live.PanelID]live.Panel, len(d.byID))
	for id, p := range d.byID {
		panels[id] = p
	}
	return panels
}

// PanelSize returns the size in pixels of one panel.
func (d *Dashboard) PanelSize() (w, h int) {
	return d.width, d.height
}

// Render draws every panel and the status of the last refresh.
func (d *Dashboard) Render(status live.Snapshot) (*image.RGBA, error) {
	rows := (len(d.panels) + d.columns - 1) / d.columns
	gridHeight := rows * d.height

	img := image.NewRGBA(image.Rect(0, 0, d.columns*d.width, gridHeight+statusHeight()))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for i, p := range d.panels {
		panelImg, err := p.Render(d.width, d.height)
		if err != nil {
			return nil, fmt.Errorf("rendering panel %s: %w", p.ID(), err)
		}

		at := image.Pt((i%d.columns)*d.width, (i/d.columns)*d.height)
		draw.Draw(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(d.width, d.height))}, panelImg, panelImg.Bounds().Min, draw.Over)
	}

	statusArea := image.Rect(0, gridHeight, img.Bounds().Dx(), img.Bounds().Dy())
	if err := d.annotator.annotate(img, statusArea, status); err != nil {
		return nil, fmt.Errorf("drawing status: %w", err)
	}

	return img, nil
}
