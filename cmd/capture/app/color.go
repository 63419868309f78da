package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	ClassicTheme   Theme = "classic"   // Instrument screen: dark grid, channel coloured trace
	PaperTheme     Theme = "paper"     // White background, blue trace
	GrayscaleTheme Theme = "grayscale" // Black on white
	HeatTheme      Theme = "heat"      // Trace coloured by voltage, blue to red

	hueStart = 236.0
	hueEnd   = 0.0
)

// Theme names a colour palette for the plot
type Theme string

// Palette holds the colours used by the renderer
type Palette struct {
	Margin     color.Color // Area around the plot, under the annotations
	Text       color.Color
	Background color.Color // Plot area
	Grid       color.Color
	Frame      color.Color

	// Trace returns the colour of a trace point of channel at normalized
	// voltage level [0-1] within the plotted range.
	Trace func(channel int, level float64) color.Color
}

var channelHues = map[int]float64{
	1: 56,  // yellow
	2: 190, // cyan
}

var themes = map[Theme]Palette{
	ClassicTheme: {
		Margin:     color.White,
		Text:       color.Black,
		Background: colorful.Hsv(0, 0, 0.08),
		Grid:       colorful.Hsv(0, 0, 0.35),
		Frame:      colorful.Hsv(0, 0, 0.6),
		Trace: func(channel int, _ float64) color.Color {
			return colorful.Hsv(channelHues[channel], 0.9, 0.95)
		},
	},
	PaperTheme: {
		Margin:     color.White,
		Text:       color.Black,
		Background: color.White,
		Grid:       colorful.Hsv(0, 0, 0.85),
		Frame:      colorful.Hsv(0, 0, 0.4),
		Trace: func(int, float64) color.Color {
			return colorful.Hsv(220, 0.9, 0.7)
		},
	},
	GrayscaleTheme: {
		Margin:     color.White,
		Text:       color.Black,
		Background: color.White,
		Grid:       colorful.Hsv(0, 0, 0.8),
		Frame:      color.Black,
		Trace: func(int, float64) color.Color {
			return color.Black
		},
	},
	HeatTheme: {
		Margin:     color.White,
		Text:       color.Black,
		Background: colorful.Hsv(0, 0, 0.08),
		Grid:       colorful.Hsv(0, 0, 0.3),
		Frame:      colorful.Hsv(0, 0, 0.6),
		Trace: func(_ int, level float64) color.Color {
			level = math.Max(0, math.Min(1, level))
			hue := hueStart - level*(hueStart-hueEnd)
			return colorful.Hsv(hue, 1, 0.9)
		},
	},
}

// GetPalette returns the palette of theme, falling back to ClassicTheme
func GetPalette(theme Theme) Palette {
	if p, ok := themes[theme]; ok {
		return p
	}
	return themes[ClassicTheme]
}
