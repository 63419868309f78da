package scope

import (
	"fmt"
	"strings"
)

// Measurement is an automatic measurement item, named by its SCPI mnemonic
type Measurement string

const (
	Vpp           Measurement = "VPP"
	Vmax          Measurement = "VMAX"
	Vmin          Measurement = "VMIN"
	Vamp          Measurement = "VAMP"
	Vtop          Measurement = "VTOP"
	Vbase         Measurement = "VBAS"
	Vavg          Measurement = "VAV"
	Vrms          Measurement = "VRMS"
	Overshoot     Measurement = "OVER"
	Preshoot      Measurement = "PRE"
	Frequency     Measurement = "FREQ"
	RiseTime      Measurement = "RIS"
	FallTime      Measurement = "FALL"
	Period        Measurement = "PER"
	PositiveWidth Measurement = "PWID"
	NegativeWidth Measurement = "NWID"
	PositiveDuty  Measurement = "PDUT"
	NegativeDuty  Measurement = "NDUT"
	PositiveDelay Measurement = "PDE"
	NegativeDelay Measurement = "NDE"
)

type measurementInfo struct {
	name string
	unit string
}

// AllMeasurements lists every supported measurement in display order
var AllMeasurements = []Measurement{
	Vpp, Vmax, Vmin, Vamp, Vtop, Vbase, Vavg, Vrms, Overshoot, Preshoot,
	Frequency, RiseTime, FallTime, Period, PositiveWidth, NegativeWidth,
	PositiveDuty, NegativeDuty, PositiveDelay, NegativeDelay,
}

var measurements = map[Measurement]measurementInfo{
	Vpp:           {"vpp", "V"},
	Vmax:          {"vmax", "V"},
	Vmin:          {"vmin", "V"},
	Vamp:          {"vamp", "V"},
	Vtop:          {"vtop", "V"},
	Vbase:         {"vbase", "V"},
	Vavg:          {"vavg", "V"},
	Vrms:          {"vrms", "V"},
	Overshoot:     {"overshoot", "%"},
	Preshoot:      {"preshoot", "%"},
	Frequency:     {"freq", "Hz"},
	RiseTime:      {"rise", "s"},
	FallTime:      {"fall", "s"},
	Period:        {"period", "s"},
	PositiveWidth: {"pwidth", "s"},
	NegativeWidth: {"nwidth", "s"},
	PositiveDuty:  {"pduty", "%"},
	NegativeDuty:  {"nduty", "%"},
	PositiveDelay: {"pdelay", "s"},
	NegativeDelay: {"ndelay", "s"},
}

// ParseMeasurement resolves a measurement by its name ("vpp", "freq",
// "rise", ...) or its mnemonic, ignoring case.
func ParseMeasurement(s string) (Measurement, error) {
	s = strings.TrimSpace(s)
	for _, m := range AllMeasurements {
		if strings.EqualFold(s, measurements[m].name) || strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", &SettingError{Setting: "measurement", Value: s}
}

// Name returns the short lower case name of the measurement
func (m Measurement) Name() string {
	return measurements[m].name
}

// Unit returns the physical unit of the measured value
func (m Measurement) Unit() string {
	return measurements[m].unit
}

func (m Measurement) String() string {
	return string(m)
}

// Measure queries measurement m on the channel
func (c *Channel) Measure(m Measurement) (float64, error) {
	if _, ok := measurements[m]; !ok {
		return 0, &SettingError{Setting: "measurement", Value: m}
	}
	return queryFloat(c.inst, fmt.Sprintf(":MEAS:%s? CHAN%d", m, c.number))
}

// Result is a single measurement value
type Result struct {
	Measurement Measurement
	Value       float64
}

// Measurements queries every supported measurement in AllMeasurements order.
// It stops at the first failure.
func (c *Channel) Measurements() ([]Result, error) {
	results := make([]Result, 0, len(AllMeasurements))
	for _, m := range AllMeasurements {
		v, err := c.Measure(m)
		if err != nil {
			return results, fmt.Errorf("measuring %s on %s: %w", m.Name(), c, err)
		}
		results = append(results, Result{Measurement: m, Value: v})
	}
	return results, nil
}

func (c *Channel) Vpp() (float64, error)           { return c.Measure(Vpp) }
func (c *Channel) Vmax() (float64, error)          { return c.Measure(Vmax) }
func (c *Channel) Vmin() (float64, error)          { return c.Measure(Vmin) }
func (c *Channel) Vamp() (float64, error)          { return c.Measure(Vamp) }
func (c *Channel) Vtop() (float64, error)          { return c.Measure(Vtop) }
func (c *Channel) Vbase() (float64, error)         { return c.Measure(Vbase) }
func (c *Channel) Vavg() (float64, error)          { return c.Measure(Vavg) }
func (c *Channel) Vrms() (float64, error)          { return c.Measure(Vrms) }
func (c *Channel) Overshoot() (float64, error)     { return c.Measure(Overshoot) }
func (c *Channel) Preshoot() (float64, error)      { return c.Measure(Preshoot) }
func (c *Channel) Frequency() (float64, error)     { return c.Measure(Frequency) }
func (c *Channel) RiseTime() (float64, error)      { return c.Measure(RiseTime) }
func (c *Channel) FallTime() (float64, error)      { return c.Measure(FallTime) }
func (c *Channel) Period() (float64, error)        { return c.Measure(Period) }
func (c *Channel) PositiveWidth() (float64, error) { return c.Measure(PositiveWidth) }
func (c *Channel) NegativeWidth() (float64, error) { return c.Measure(NegativeWidth) }
func (c *Channel) PositiveDuty() (float64, error)  { return c.Measure(PositiveDuty) }
func (c *Channel) NegativeDuty() (float64, error)  { return c.Measure(NegativeDuty) }
func (c *Channel) PositiveDelay() (float64, error) { return c.Measure(PositiveDelay) }
func (c *Channel) NegativeDelay() (float64, error) { return c.Measure(NegativeDelay) }
