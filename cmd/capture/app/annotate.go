package app

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	dpi            = 120.0
	tickMarkLength = 5
	textPadding    = 6
)

type annotatorConfig struct {
	FontSize float64
	Borders  BorderConfig
	Palette  Palette
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.NewUniform(config.Palette.Text))

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, data *PlotData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, image.Rectangle, *PlotData) error
	}{
		{"drawing title", a.drawTitle},
		{"drawing time scale", a.drawTimeScale},
		{"drawing voltage scale", a.drawVoltageScale},
		{"drawing info bar", a.drawInfoBar},
	}
	for _, op := range ops {
		if err := op.fn(img, area, data); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *annotator) lineHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) textWidth(s string) int {
	return font.MeasureString(a.fontFace, s).Round()
}

func (a *annotator) drawString(s string, x, y int) error {
	_, err := a.context.DrawString(s, freetype.Pt(x, y))
	return err
}

func (a *annotator) drawTitle(img *image.RGBA, area image.Rectangle, data *PlotData) error {
	title := fmt.Sprintf("Oscilloscope Channel %d", data.Channel)
	x := area.Min.X + (area.Dx()-a.textWidth(title))/2
	if err := a.drawString(title, x, a.lineHeight()+textPadding); err != nil {
		return err
	}

	// The voltage label sits above the voltage scale
	return a.drawString("Voltage (V)", textPadding, area.Min.Y-textPadding)
}

func (a *annotator) drawTimeScale(img *image.RGBA, area image.Rectangle, data *PlotData) error {
	step := niceStep(data.TimeMax-data.TimeMin, area.Dx())
	textY := area.Max.Y + tickMarkLength + a.lineHeight()

	for _, t := range ticks(data.TimeMin, data.TimeMax, step) {
		x, _ := plotPoint(area, data, t, data.VoltMin)

		for y := area.Max.Y; y < area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, a.config.Palette.Text)
		}

		label := formatTick(t, step)
		if err := a.drawString(label, x-a.textWidth(label)/2, textY); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}

	label := fmt.Sprintf("Time (%s)", data.Unit)
	x := area.Min.X + (area.Dx()-a.textWidth(label))/2
	return a.drawString(label, x, textY+a.lineHeight()+textPadding)
}

func (a *annotator) drawVoltageScale(img *image.RGBA, area image.Rectangle, data *PlotData) error {
	step := niceStep(data.VoltMax-data.VoltMin, area.Dy())
	metrics := a.fontFace.Metrics()

	for _, v := range ticks(data.VoltMin, data.VoltMax, step) {
		_, y := plotPoint(area, data, data.TimeMin, v)

		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, a.config.Palette.Text)
		}

		// Center text vertically relative to the tick mark position
		label := formatTick(v, step)
		textY := y + a.lineHeight()/2 - metrics.Descent.Round()
		textX := area.Min.X - tickMarkLength - textPadding - a.textWidth(label)
		if err := a.drawString(label, textX, textY); err != nil {
			return fmt.Errorf("drawing voltage label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, area image.Rectangle, data *PlotData) error {
	cal := data.Calibration

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CH%d %s, offset %s", data.Channel,
		humanize.SIWithDigits(cal.VoltsPerDiv, 2, "V/div"),
		humanize.SIWithDigits(cal.VoltOffset, 2, "V")))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("%s, offset %s",
		humanize.SIWithDigits(cal.SecondsPerDiv, 2, "s/div"),
		humanize.SIWithDigits(cal.TimeOffset, 2, "s")))
	sb.WriteString("; ")
	sb.WriteString(humanize.SIWithDigits(cal.SampleRate, 2, "Sa/s"))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("%s samples", humanize.Comma(int64(data.Samples()))))

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - textPadding - metrics.Descent.Round()

	if err := a.drawString(sb.String(), textPadding, textY); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// formatTick prints v with as many decimals as step needs
func formatTick(v, step float64) string {
	decimals := 0
	if step > 0 {
		decimals = max(0, int(-math.Floor(math.Log10(step)+1e-9)))
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
