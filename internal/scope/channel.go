package scope

import (
	"fmt"

	"github.com/roman-kulish/rigol-scope/internal/waveform"
)

// Channel gives access to the settings, measurements and waveform of one
// analog channel. It refers to the session it was created from and does not
// own it.
type Channel struct {
	number int
	inst   Instrument
}

// NewChannel creates an accessor for channel number over inst
func NewChannel(number int, inst Instrument) *Channel {
	return &Channel{number: number, inst: inst}
}

// Number returns the channel number, counted from 1
func (c *Channel) Number() int {
	return c.number
}

func (c *Channel) String() string {
	return fmt.Sprintf("CHAN%d", c.number)
}

// VerticalScale queries the vertical gain in volts per division
func (c *Channel) VerticalScale() (float64, error) {
	return queryFloat(c.inst, fmt.Sprintf(":CHAN%d:SCAL?", c.number))
}

// SetVerticalScale sets the vertical gain in volts per division.
// The new value is not read back.
func (c *Channel) SetVerticalScale(voltsPerDiv float64) error {
	if voltsPerDiv <= 0 {
		return &SettingError{Setting: "vertical scale", Value: voltsPerDiv}
	}
	return c.inst.Command(fmt.Sprintf(":CHAN%d:SCAL %11.9f", c.number, voltsPerDiv))
}

// VerticalOffset queries the vertical offset in volts
func (c *Channel) VerticalOffset() (float64, error) {
	return queryFloat(c.inst, fmt.Sprintf(":CHAN%d:OFFS?", c.number))
}

// SetVerticalOffset sets the vertical offset in volts. The new value is not read back.
func (c *Channel) SetVerticalOffset(volts float64) error {
	return c.inst.Command(fmt.Sprintf(":CHAN%d:OFFS %11.9f", c.number, volts))
}

// MemoryDepth queries the number of samples the channel keeps in memory
func (c *Channel) MemoryDepth() (int, error) {
	return queryInt(c.inst, fmt.Sprintf(":CHAN%d:MEMD?", c.number))
}

// SetMemoryDepth sets the channel memory depth in samples. The new value is not read back.
func (c *Channel) SetMemoryDepth(depth int) error {
	if depth <= 0 {
		return &SettingError{Setting: "channel memory depth", Value: depth}
	}
	return c.inst.Command(fmt.Sprintf(":CHAN%d:MEMD %d", c.number, depth))
}

// Raw requests the waveform of the channel and returns its samples without
// the reply header.
func (c *Channel) Raw() (waveform.Raw, error) {
	cmd := fmt.Sprintf(":WAV:DATA? CHAN%d", c.number)
	if err := c.inst.Command(cmd); err != nil {
		return nil, err
	}

	reply, err := c.inst.ReadRaw(-1)
	if err != nil {
		return nil, err
	}

	raw, err := waveform.StripHeader(reply)
	if err != nil {
		return nil, &ParseError{Command: cmd, Reply: fmt.Sprintf("% x", reply), Err: err}
	}
	return raw, nil
}

// Calibration reads the live settings needed to scale a waveform of the
// channel. Call it right after Raw; settings changed in between are not
// detected.
func (c *Channel) Calibration() (waveform.Calibration, error) {
	var cal waveform.Calibration
	var err error

	if cal.VoltsPerDiv, err = c.VerticalScale(); err != nil {
		return cal, err
	}
	if cal.VoltOffset, err = c.VerticalOffset(); err != nil {
		return cal, err
	}
	if cal.SecondsPerDiv, err = queryFloat(c.inst, ":TIM:SCAL?"); err != nil {
		return cal, err
	}
	if cal.TimeOffset, err = queryFloat(c.inst, ":TIM:OFFS?"); err != nil {
		return cal, err
	}
	if cal.SampleRate, err = queryFloat(c.inst, ":ACQ:SAMP?"); err != nil {
		return cal, err
	}

	return cal, nil
}

// Capture is a waveform read from a channel together with the settings used
// to scale it.
type Capture struct {
	Channel     int
	Raw         waveform.Raw
	Calibration waveform.Calibration
	Scaled      *waveform.Scaled
}

// Capture reads the waveform and its calibration and scales it
func (c *Channel) Capture() (*Capture, error) {
	raw, err := c.Raw()
	if err != nil {
		return nil, fmt.Errorf("reading %s waveform: %w", c, err)
	}

	cal, err := c.Calibration()
	if err != nil {
		return nil, fmt.Errorf("reading %s calibration: %w", c, err)
	}

	return &Capture{
		Channel:     c.number,
		Raw:         raw,
		Calibration: cal,
		Scaled:      waveform.Scale(raw, cal),
	}, nil
}

// Data returns the channel waveform in volts with its time axis in seconds
func (c *Channel) Data() (*waveform.Scaled, error) {
	capture, err := c.Capture()
	if err != nil {
		return nil, err
	}
	return capture.Scaled, nil
}
