package app

import (
	"errors"

	"github.com/roman-kulish/rigol-scope/internal/scope"
	"github.com/roman-kulish/rigol-scope/internal/waveform"
)

// verticalPadding is the share of the voltage span left free above and below the trace
const verticalPadding = 0.1

var ErrEmptyCapture = errors.New("capture has no samples")

// PlotData is a capture prepared for rendering, with the time axis in its
// display unit and the axis ranges resolved.
type PlotData struct {
	Channel     int
	Calibration waveform.Calibration
	Volts       []float64
	Times       []float64
	Unit        waveform.TimeUnit

	TimeMin, TimeMax float64
	VoltMin, VoltMax float64
}

func NewPlotData(c *scope.Capture) (*PlotData, error) {
	if c == nil || c.Scaled == nil || c.Scaled.Len() == 0 {
		return nil, ErrEmptyCapture
	}

	times, unit := c.Scaled.Display()
	p := PlotData{
		Channel:     c.Channel,
		Calibration: c.Calibration,
		Volts:       c.Scaled.Volts,
		Times:       times,
		Unit:        unit,
		TimeMin:     times[0],
		TimeMax:     times[len(times)-1],
	}

	if p.TimeMax == p.TimeMin {
		p.TimeMin--
		p.TimeMax++
	}

	lo, hi := c.Scaled.VoltageRange()
	pad := (hi - lo) * verticalPadding
	if pad == 0 {
		pad = c.Calibration.VoltsPerDiv
		if pad <= 0 {
			pad = 1
		}
	}
	p.VoltMin, p.VoltMax = lo-pad, hi+pad

	return &p, nil
}

// Samples returns the number of plotted points
func (p *PlotData) Samples() int {
	return len(p.Volts)
}
