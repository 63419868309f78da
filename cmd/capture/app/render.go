package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

const (
	fontSize       = 11.0
	pixelsPerLabel = 100.0

	// The instrument screen is 12 divisions wide and 8 high
	gridColumns = 12
	gridRows    = 8

	// Default border sizes in pixels
	defaultTopBorder    = 50
	defaultLeftBorder   = 80
	defaultBottomBorder = 90
	defaultRightBorder  = 40
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Space for title and voltage label
	Left   int // Space for voltage scale
	Bottom int // Space for time scale, time label and information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for waveform plots
type RenderConfig struct {
	Width    int // Image width in pixels, borders included
	Height   int // Image height in pixels, borders included
	FontSize float64
	Theme    Theme

	BorderConfig BorderConfig
}

// PlotRenderer draws a single channel waveform with its axes
type PlotRenderer struct {
	config  RenderConfig
	palette Palette
}

// NewPlotRenderer creates a new plot renderer with the given configuration
func NewPlotRenderer(config RenderConfig) (*PlotRenderer, error) {
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.Width == 0 {
		config.Width = defaultWidth
	}
	if config.Height == 0 {
		config.Height = defaultHeight
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	b := config.BorderConfig
	if config.Width-b.Left-b.Right < gridColumns || config.Height-b.Top-b.Bottom < gridRows {
		return nil, fmt.Errorf("image %dx%d leaves no room for the plot", config.Width, config.Height)
	}

	return &PlotRenderer{
		config:  config,
		palette: GetPalette(config.Theme),
	}, nil
}

// Render creates an image of the waveform with annotations
func (r *PlotRenderer) Render(data *PlotData) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width, r.config.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.palette.Margin), image.Point{}, draw.Src)

	area := r.plotArea()
	draw.Draw(img, area, image.NewUniform(r.palette.Background), image.Point{}, draw.Src)

	ann, err := newAnnotator(annotatorConfig{
		FontSize: r.config.FontSize,
		Borders:  r.config.BorderConfig,
		Palette:  r.palette,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	r.drawGrid(img, area)

	if err = ann.annotate(img, area, data); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	r.drawTrace(img, area, data)
	drawRect(img, area, r.palette.Frame)

	return img, nil
}

func (r *PlotRenderer) plotArea() image.Rectangle {
	b := r.config.BorderConfig
	return image.Rect(b.Left, b.Top, r.config.Width-b.Right, r.config.Height-b.Bottom)
}

// drawGrid draws the division lines of the instrument screen as dotted lines
func (r *PlotRenderer) drawGrid(img *image.RGBA, area image.Rectangle) {
	w, h := area.Dx(), area.Dy()
	for i := 1; i < gridColumns; i++ {
		x := area.Min.X + i*w/gridColumns
		for y := area.Min.Y; y < area.Max.Y; y += 3 {
			img.Set(x, y, r.palette.Grid)
		}
	}
	for i := 1; i < gridRows; i++ {
		y := area.Min.Y + i*h/gridRows
		for x := area.Min.X; x < area.Max.X; x += 3 {
			img.Set(x, y, r.palette.Grid)
		}
	}
}

// drawTrace connects consecutive samples with straight lines
func (r *PlotRenderer) drawTrace(img *image.RGBA, area image.Rectangle, data *PlotData) {
	clip := img.SubImage(area).(*image.RGBA)
	voltSpan := data.VoltMax - data.VoltMin

	// each segment takes the colour of the sample it starts from
	var prevX, prevY int
	var prevColor color.Color
	for i, v := range data.Volts {
		x, y := plotPoint(area, data, data.Times[i], v)
		if i > 0 {
			drawLine(clip, prevX, prevY, x, y, prevColor)
		}
		prevX, prevY = x, y
		prevColor = r.palette.Trace(data.Channel, (v-data.VoltMin)/voltSpan)
	}
	clip.Set(prevX, prevY, prevColor)
}

// plotPoint converts a time and voltage into image coordinates inside area
func plotPoint(area image.Rectangle, data *PlotData, t, v float64) (int, int) {
	xRatio := (t - data.TimeMin) / (data.TimeMax - data.TimeMin)
	yRatio := (v - data.VoltMin) / (data.VoltMax - data.VoltMin)

	x := area.Min.X + int(math.Round(xRatio*float64(area.Dx()-1)))
	y := area.Max.Y - 1 - int(math.Round(yRatio*float64(area.Dy()-1)))
	return x, y
}

// drawLine is Bresenham's line algorithm; points outside img bounds are dropped by Set
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	e := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		if e2 := 2 * e; e2 >= dy {
			e += dy
			x0 += sx
		} else {
			e += dx
			y0 += sy
		}
	}
}

func drawRect(img *image.RGBA, rect image.Rectangle, c color.Color) {
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.Set(x, rect.Min.Y, c)
		img.Set(x, rect.Max.Y-1, c)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.Set(rect.Min.X, y, c)
		img.Set(rect.Max.X-1, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// niceStep picks a 1, 2 or 5 times power of ten step that puts roughly one
// label every pixelsPerLabel pixels over span.
func niceStep(span float64, pixels int) float64 {
	if span <= 0 || pixels <= 0 {
		return 0
	}

	labels := math.Max(1, float64(pixels)/pixelsPerLabel)
	target := span / labels
	magnitude := math.Pow(10, math.Floor(math.Log10(target)))

	for _, m := range []float64{1, 2, 5} {
		if step := m * magnitude; step >= target*(1-1e-9) {
			return step
		}
	}
	return 10 * magnitude
}

// ticks returns the multiples of step within [lo, hi]
func ticks(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}

	var values []float64
	start := math.Ceil(lo/step-1e-9) * step
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v > hi+step*1e-9 {
			break
		}
		if math.Abs(v) < step*1e-9 {
			v = 0
		}
		values = append(values, v)
	}
	return values
}
