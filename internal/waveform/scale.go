package waveform

import (
	"fmt"
	"math"
)

// StripHeader drops the framing bytes of a waveform data reply.
// The returned Raw shares memory with reply.
func StripHeader(reply []byte) (Raw, error) {
	if len(reply) < HeaderSize {
		return nil, fmt.Errorf("waveform reply too short: %d bytes, header is %d", len(reply), HeaderSize)
	}
	return Raw(reply[HeaderSize:]), nil
}

// Voltage converts a single digitization code into volts.
//
// The scope stores amplitude inverted, so the code is flipped first, then
// shifted by the center code and the vertical offset expressed in codes, and
// finally scaled by the gain. gain must not be zero.
func Voltage(code byte, gain, offset float64) float64 {
	inverted := 255 - float64(code)
	centered := inverted - CenterCode - (offset/gain)*CountsPerDivision
	return (centered / CountsPerDivision) * gain
}

// ScaleVoltages converts every sample of raw into volts.
func ScaleVoltages(raw Raw, gain, offset float64) []float64 {
	volts := make([]float64, len(raw))
	for i, code := range raw {
		volts[i] = Voltage(code, gain, offset)
	}
	return volts
}

// TimeAxis returns n evenly spaced timestamps covering the visible window
// [offset - 6*scale, offset + 6*scale], both ends included.
func TimeAxis(offset, scale float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}

	start := offset - HalfScreenDivisions*scale
	stop := offset + HalfScreenDivisions*scale

	axis := make([]float64, n)
	if n == 1 {
		axis[0] = start
		return axis
	}

	step := (stop - start) / float64(n-1)
	for i := range axis {
		axis[i] = start + float64(i)*step
	}
	axis[n-1] = stop // avoid accumulated rounding on the last point

	return axis
}

// SelectTimeUnit picks the display unit for a time axis from the magnitude of
// its last timestamp. Thresholds are strict, so exactly 1e-3 s is shown in mS
// and exactly 1 s in S.
func SelectTimeUnit(last float64) TimeUnit {
	switch magnitude := math.Abs(last); {
	case magnitude < 1e-3:
		return Microseconds
	case magnitude < 1:
		return Milliseconds
	default:
		return Seconds
	}
}

// Scale converts raw into volts using cal and attaches the time axis.
func Scale(raw Raw, cal Calibration) *Scaled {
	return &Scaled{
		Volts: ScaleVoltages(raw, cal.VoltsPerDiv, cal.VoltOffset),
		Time:  TimeAxis(cal.TimeOffset, cal.SecondsPerDiv, len(raw)),
	}
}

// Display returns a copy of the time axis converted into the unit selected
// for it. The stored axis stays in seconds.
func (s *Scaled) Display() ([]float64, TimeUnit) {
	if len(s.Time) == 0 {
		return []float64{}, Seconds
	}

	unit := SelectTimeUnit(s.Time[len(s.Time)-1])
	times := make([]float64, len(s.Time))
	for i, t := range s.Time {
		times[i] = t * unit.Factor
	}
	return times, unit
}

// VoltageRange returns the smallest and largest voltage in s.
// Both are zero when s is empty.
func (s *Scaled) VoltageRange() (lo, hi float64) {
	if len(s.Volts) == 0 {
		return 0, 0
	}

	lo, hi = s.Volts[0], s.Volts[0]
	for _, v := range s.Volts[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
