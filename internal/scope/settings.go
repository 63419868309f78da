package scope

import (
	"fmt"
	"strings"
)

const (
	TimeModeMain    TimeMode = "MAIN"
	TimeModeDelayed TimeMode = "DELAYED"

	AcquireNormal  AcquireMode = "NORM"
	AcquireAverage AcquireMode = "AVER"
	AcquirePeak    AcquireMode = "PEAK"

	MemoryNormal MemoryDepth = "NORM"
	MemoryLong   MemoryDepth = "LONG"

	minAverages = 2
	maxAverages = 128
)

// TimeMode selects the main or the delayed (zoomed) time base
type TimeMode string

// AcquireMode is the acquisition mode
type AcquireMode string

// MemoryDepth is the acquisition memory depth
type MemoryDepth string

func (m TimeMode) String() string    { return string(m) }
func (m AcquireMode) String() string { return string(m) }
func (m MemoryDepth) String() string { return string(m) }

var acquireModes = map[string]AcquireMode{
	"NORM":        AcquireNormal,
	"NORMAL":      AcquireNormal,
	"AVER":        AcquireAverage,
	"AVERAGE":     AcquireAverage,
	"PEAK":        AcquirePeak,
	"PEAKDETECT":  AcquirePeak,
	"PEAK DETECT": AcquirePeak,
}

var memoryDepths = map[string]MemoryDepth{
	"NORM":   MemoryNormal,
	"NORMAL": MemoryNormal,
	"LONG":   MemoryLong,
}

var timeModes = map[string]TimeMode{
	"MAIN":    TimeModeMain,
	"DEL":     TimeModeDelayed,
	"DELAYED": TimeModeDelayed,
}

// ParseAcquireMode accepts both the short form used in commands and the long
// form the instrument replies with, in any case.
func ParseAcquireMode(s string) (AcquireMode, bool) {
	m, ok := acquireModes[strings.ToUpper(strings.TrimSpace(s))]
	return m, ok
}

// ParseMemoryDepth accepts "NORM", "NORMAL" and "LONG" in any case
func ParseMemoryDepth(s string) (MemoryDepth, bool) {
	d, ok := memoryDepths[strings.ToUpper(strings.TrimSpace(s))]
	return d, ok
}

// ParseTimeMode accepts "MAIN", "DEL" and "DELAYED" in any case
func ParseTimeMode(s string) (TimeMode, bool) {
	m, ok := timeModes[strings.ToUpper(strings.TrimSpace(s))]
	return m, ok
}

// ValidAverages reports whether n is an averaging count the instrument
// supports: a power of two from 2 to 128.
func ValidAverages(n int) bool {
	return n >= minAverages && n <= maxAverages && n&(n-1) == 0
}

// Identify returns the *IDN? identification string
func (s *Session) Identify() (string, error) {
	return s.Query("*IDN?")
}

// Run resumes acquisition
func (s *Session) Run() error {
	return s.Command(":RUN")
}

// Stop halts acquisition
func (s *Session) Stop() error {
	return s.Command(":STOP")
}

// Auto lets the instrument pick vertical, horizontal and trigger settings
func (s *Session) Auto() error {
	return s.Command(":AUTO")
}

// TimeMode queries the active time base
func (s *Session) TimeMode() (TimeMode, error) {
	const cmd = ":TIM:MODE?"

	reply, err := s.Query(cmd)
	if err != nil {
		return "", err
	}
	mode, ok := ParseTimeMode(reply)
	if !ok {
		return "", &ParseError{Command: cmd, Reply: reply, Err: ErrInvalidSetting}
	}
	return mode, nil
}

// SetTimeMode switches the time base. The new value is not read back.
func (s *Session) SetTimeMode(mode TimeMode) error {
	m, ok := ParseTimeMode(string(mode))
	if !ok {
		return &SettingError{Setting: "time mode", Value: mode}
	}
	return s.Command(fmt.Sprintf(":TIM:MODE %s", m))
}

// TimeScale queries the horizontal scale in seconds per division
func (s *Session) TimeScale() (float64, error) {
	return queryFloat(s, ":TIM:SCAL?")
}

// SetTimeScale sets the horizontal scale in seconds per division.
// The new value is not read back.
func (s *Session) SetTimeScale(secondsPerDiv float64) error {
	if secondsPerDiv <= 0 {
		return &SettingError{Setting: "time scale", Value: secondsPerDiv}
	}
	return s.Command(fmt.Sprintf(":TIM:SCAL %11.9f", secondsPerDiv))
}

// TimeOffset queries the horizontal offset in seconds
func (s *Session) TimeOffset() (float64, error) {
	return queryFloat(s, ":TIM:OFFS?")
}

// SetTimeOffset sets the horizontal offset in seconds. The new value is not read back.
func (s *Session) SetTimeOffset(seconds float64) error {
	return s.Command(fmt.Sprintf(":TIM:OFFS %11.9f", seconds))
}

// SampleRate queries the current sample rate in samples per second
func (s *Session) SampleRate() (float64, error) {
	return queryFloat(s, ":ACQ:SAMP?")
}

// KeysLocked reports whether the front panel keys are locked for remote
// operation, shown as "Rmt" on the display.
func (s *Session) KeysLocked() (bool, error) {
	reply, err := s.Query(":KEY:LOCK?")
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToUpper(reply), "ENAB"), nil
}

// SetKeysLocked locks (USB control only) or unlocks the front panel keys.
// The new value is not read back.
func (s *Session) SetKeysLocked(locked bool) error {
	val := "DIS"
	if locked {
		val = "ENAB"
	}
	return s.Command(fmt.Sprintf(":KEY:LOCK %s", val))
}

// AcquireMode queries the acquisition mode
func (s *Session) AcquireMode() (AcquireMode, error) {
	const cmd = ":ACQ:MODE?"

	reply, err := s.Query(cmd)
	if err != nil {
		return "", err
	}
	mode, ok := ParseAcquireMode(reply)
	if !ok {
		return "", &ParseError{Command: cmd, Reply: reply, Err: ErrInvalidSetting}
	}
	return mode, nil
}

// SetAcquireMode sets the acquisition mode. The new value is not read back.
func (s *Session) SetAcquireMode(mode AcquireMode) error {
	m, ok := ParseAcquireMode(string(mode))
	if !ok {
		return &SettingError{Setting: "acquire mode", Value: mode}
	}
	return s.Command(fmt.Sprintf(":ACQ:MODE %s", m))
}

// Averages queries the number of acquisitions averaged in AVER mode
func (s *Session) Averages() (int, error) {
	return queryInt(s, ":ACQ:AVER?")
}

// SetAverages sets the number of averaged acquisitions, a power of two from
// 2 to 128. The new value is not read back.
func (s *Session) SetAverages(n int) error {
	if !ValidAverages(n) {
		return &SettingError{Setting: "averages", Value: n}
	}
	return s.Command(fmt.Sprintf(":ACQ:AVER %d", n))
}

// MemoryDepth queries the acquisition memory depth
func (s *Session) MemoryDepth() (MemoryDepth, error) {
	const cmd = ":ACQ:MEMD?"

	reply, err := s.Query(cmd)
	if err != nil {
		return "", err
	}
	depth, ok := ParseMemoryDepth(reply)
	if !ok {
		return "", &ParseError{Command: cmd, Reply: reply, Err: ErrInvalidSetting}
	}
	return depth, nil
}

// SetMemoryDepth sets the acquisition memory depth. The new value is not read back.
func (s *Session) SetMemoryDepth(depth MemoryDepth) error {
	d, ok := ParseMemoryDepth(string(depth))
	if !ok {
		return &SettingError{Setting: "memory depth", Value: depth}
	}
	return s.Command(fmt.Sprintf(":ACQ:MEMD %s", d))
}
