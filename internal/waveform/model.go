package waveform

const (
	// HeaderSize is the number of framing bytes the scope puts in front of
	// the samples of a `:WAV:DATA?` reply.
	HeaderSize = 10

	// CenterCode is the digitization code of the screen center line.
	CenterCode = 130.0

	// CountsPerDivision is the number of digitization codes per vertical division.
	CountsPerDivision = 25.0

	// HalfScreenDivisions is half of the 12 horizontal divisions on screen.
	HalfScreenDivisions = 6
)

// Raw is a header-stripped sequence of digitization codes, one byte per sample.
type Raw []byte

// Calibration holds the instrument settings needed to convert a Raw capture
// into physical units. It must be read from the live instrument right after
// the capture it belongs to.
type Calibration struct {
	VoltsPerDiv   float64 `json:"voltsPerDiv"`   // Vertical gain
	VoltOffset    float64 `json:"voltOffset"`    // Vertical offset in volts
	SecondsPerDiv float64 `json:"secondsPerDiv"` // Horizontal time scale
	TimeOffset    float64 `json:"timeOffset"`    // Horizontal offset in seconds
	SampleRate    float64 `json:"sampleRate"`    // Samples per second, informational
}

// Scaled is a capture converted into volts with a matching time axis in seconds.
type Scaled struct {
	Volts []float64
	Time  []float64
}

// Len returns the number of samples.
func (s *Scaled) Len() int {
	return len(s.Volts)
}

// TimeUnit describes how a time axis in seconds is presented.
type TimeUnit struct {
	Label  string
	Factor float64
}

func (u TimeUnit) String() string {
	return u.Label
}

var (
	Microseconds = TimeUnit{Label: "µS", Factor: 1e6}
	Milliseconds = TimeUnit{Label: "mS", Factor: 1e3}
	Seconds      = TimeUnit{Label: "S", Factor: 1}
)
