package display

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	hueStart = 236.0
	hueEnd   = 0.0
)

// Palette returns n distinct series colours, from blue to red.
func Palette(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := range colors {
		colors[i] = paletteColor(i, n)
	}
	return colors
}

func paletteColor(i, n int) color.Color {
	if n == 1 {
		return colorful.Hsv(hueStart, 1, 0.75)
	}

	hue := hueStart - float64(i)*(hueStart-hueEnd)/float64(n-1)
	hue = math.Min(math.Max(hue, hueEnd), hueStart)

	return colorful.Hsv(hue, 1, 0.75)
}
