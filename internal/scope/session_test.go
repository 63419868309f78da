package scope

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeTransport answers queries from a reply table. Any read following a
// write that is not in the table returns raw.
type fakeTransport struct {
	replies map[string]string
	raw     []byte

	written []string
	last    string

	writeErr error
	readErr  error
	resets   int
	closed   bool
}

func newFakeTransport(replies map[string]string) *fakeTransport {
	if replies == nil {
		replies = map[string]string{}
	}
	return &fakeTransport{replies: replies}
}

func (f *fakeTransport) Write(p []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.last = string(p)
	f.written = append(f.written, f.last)
	return nil
}

func (f *fakeTransport) ReadRaw(maxLen int) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if reply, ok := f.replies[f.last]; ok {
		return []byte(reply + "\n"), nil
	}
	return f.raw, nil
}

func (f *fakeTransport) Reset() error {
	f.resets++
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func newTestSession(f *fakeTransport) *Session {
	return NewSession(f, WithSettleDelay(0))
}

func TestSession_Query(t *testing.T) {
	f := newFakeTransport(map[string]string{
		"*IDN?": "  RIGOL TECHNOLOGIES,DS1102E,DS1EB0000000,00.02.06  ",
	})
	s := newTestSession(f)

	id, err := s.Identify()
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if id != "RIGOL TECHNOLOGIES,DS1102E,DS1EB0000000,00.02.06" {
		t.Errorf("Reply was not trimmed: %q", id)
	}
}

func TestSession_CommandSettleDelay(t *testing.T) {
	f := newFakeTransport(nil)
	s := NewSession(f, WithSettleDelay(20*time.Millisecond))

	start := time.Now()
	if err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected command to wait for the settle delay, returned after %s", elapsed)
	}
	if f.last != ":RUN" {
		t.Errorf("Expected :RUN, got %q", f.last)
	}

	if NewSession(f).settleDelay != DefaultSettleDelay {
		t.Errorf("Expected default settle delay %s", DefaultSettleDelay)
	}
}

func TestSession_Actions(t *testing.T) {
	f := newFakeTransport(nil)
	s := newTestSession(f)

	for _, action := range []func() error{s.Auto, s.Run, s.Stop} {
		if err := action(); err != nil {
			t.Fatalf("Action failed: %v", err)
		}
	}

	expected := []string{":AUTO", ":RUN", ":STOP"}
	if strings.Join(f.written, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected %v, got %v", expected, f.written)
	}
}

func TestSession_Setters(t *testing.T) {
	testCases := []struct {
		name     string
		set      func(s *Session) error
		expected string
	}{
		{"time scale", func(s *Session) error { return s.SetTimeScale(0.001) }, ":TIM:SCAL 0.001000000"},
		{"time scale nanoseconds", func(s *Session) error { return s.SetTimeScale(5e-9) }, ":TIM:SCAL 0.000000005"},
		{"time offset", func(s *Session) error { return s.SetTimeOffset(-0.0005) }, ":TIM:OFFS -0.000500000"},
		{"time mode", func(s *Session) error { return s.SetTimeMode("delayed") }, ":TIM:MODE DELAYED"},
		{"keys locked", func(s *Session) error { return s.SetKeysLocked(true) }, ":KEY:LOCK ENAB"},
		{"keys unlocked", func(s *Session) error { return s.SetKeysLocked(false) }, ":KEY:LOCK DIS"},
		{"acquire mode", func(s *Session) error { return s.SetAcquireMode("aver") }, ":ACQ:MODE AVER"},
		{"acquire peak", func(s *Session) error { return s.SetAcquireMode(AcquirePeak) }, ":ACQ:MODE PEAK"},
		{"averages", func(s *Session) error { return s.SetAverages(16) }, ":ACQ:AVER 16"},
		{"memory depth", func(s *Session) error { return s.SetMemoryDepth(MemoryLong) }, ":ACQ:MEMD LONG"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeTransport(nil)
			if err := tc.set(newTestSession(f)); err != nil {
				t.Fatalf("Setter failed: %v", err)
			}
			if f.last != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, f.last)
			}
		})
	}
}

func TestSession_InvalidSettings(t *testing.T) {
	testCases := []struct {
		name string
		set  func(s *Session) error
	}{
		{"acquire mode", func(s *Session) error { return s.SetAcquireMode("FAST") }},
		{"time mode", func(s *Session) error { return s.SetTimeMode("ROLL") }},
		{"memory depth", func(s *Session) error { return s.SetMemoryDepth("HUGE") }},
		{"averages not power of two", func(s *Session) error { return s.SetAverages(3) }},
		{"averages too small", func(s *Session) error { return s.SetAverages(1) }},
		{"averages too large", func(s *Session) error { return s.SetAverages(256) }},
		{"time scale", func(s *Session) error { return s.SetTimeScale(0) }},
		{"time mode prefix", func(s *Session) error { return s.SetTimeMode("DELETE") }},
		{"acquire mode prefix", func(s *Session) error { return s.SetAcquireMode("PEAKX") }},
		{"memory depth prefix", func(s *Session) error { return s.SetMemoryDepth("NORMANDY") }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeTransport(nil)
			err := tc.set(newTestSession(f))

			if !errors.Is(err, ErrInvalidSetting) {
				t.Errorf("Expected ErrInvalidSetting, got %v", err)
			}
			if len(f.written) != 0 {
				t.Errorf("Nothing must be sent for an invalid setting, got %v", f.written)
			}
		})
	}
}

func TestSession_Getters(t *testing.T) {
	f := newFakeTransport(map[string]string{
		":TIM:SCAL?": "1.000e-03",
		":TIM:OFFS?": "-2.500e-04",
		":TIM:MODE?": "MAIN",
		":ACQ:MODE?": "AVERAGE",
		":ACQ:AVER?": "16",
		":ACQ:MEMD?": "NORMAL",
		":ACQ:SAMP?": "1.000e+08",
		":KEY:LOCK?": "ENABLE",
	})
	s := newTestSession(f)

	if v, err := s.TimeScale(); err != nil || v != 1e-3 {
		t.Errorf("TimeScale: got %g, %v", v, err)
	}
	if v, err := s.TimeOffset(); err != nil || v != -2.5e-4 {
		t.Errorf("TimeOffset: got %g, %v", v, err)
	}
	if v, err := s.TimeMode(); err != nil || v != TimeModeMain {
		t.Errorf("TimeMode: got %s, %v", v, err)
	}
	if v, err := s.AcquireMode(); err != nil || v != AcquireAverage {
		t.Errorf("AcquireMode: got %s, %v", v, err)
	}
	if v, err := s.Averages(); err != nil || v != 16 {
		t.Errorf("Averages: got %d, %v", v, err)
	}
	if v, err := s.MemoryDepth(); err != nil || v != MemoryNormal {
		t.Errorf("MemoryDepth: got %s, %v", v, err)
	}
	if v, err := s.SampleRate(); err != nil || v != 1e8 {
		t.Errorf("SampleRate: got %g, %v", v, err)
	}
	if v, err := s.KeysLocked(); err != nil || !v {
		t.Errorf("KeysLocked: got %v, %v", v, err)
	}

	f.replies[":KEY:LOCK?"] = "DISABLE"
	if v, err := s.KeysLocked(); err != nil || v {
		t.Errorf("KeysLocked: got %v, %v", v, err)
	}
}

func TestSession_ParseErrors(t *testing.T) {
	f := newFakeTransport(map[string]string{
		":TIM:SCAL?": "garbage",
		":ACQ:MODE?": "BOGUS",
		":ACQ:AVER?": "16.5",
	})
	s := newTestSession(f)

	_, err := s.TimeScale()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if parseErr.Command != ":TIM:SCAL?" || parseErr.Reply != "garbage" {
		t.Errorf("Unexpected ParseError fields: %+v", parseErr)
	}

	if _, err = s.AcquireMode(); !errors.As(err, &parseErr) {
		t.Errorf("Expected ParseError for unknown acquire mode, got %v", err)
	}
	if _, err = s.Averages(); !errors.As(err, &parseErr) {
		t.Errorf("Expected ParseError for fractional averages, got %v", err)
	}
}

func TestSession_TransportErrors(t *testing.T) {
	cause := errors.New("pipe error")

	f := newFakeTransport(nil)
	f.writeErr = cause
	s := newTestSession(f)

	err := s.Run()
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if transportErr.Op != "command" || transportErr.Command != ":RUN" {
		t.Errorf("Unexpected TransportError fields: %+v", transportErr)
	}
	if !errors.Is(err, cause) {
		t.Error("TransportError must unwrap to its cause")
	}

	f.writeErr = nil
	f.readErr = cause
	if _, err = s.TimeScale(); !errors.As(err, &transportErr) || transportErr.Op != "query" {
		t.Errorf("Expected query TransportError, got %v", err)
	}
	if _, err = s.ReadRaw(10); !errors.As(err, &transportErr) || transportErr.Op != "read" {
		t.Errorf("Expected read TransportError, got %v", err)
	}
}

func TestSession_ResetAndClose(t *testing.T) {
	f := newFakeTransport(nil)
	s := newTestSession(f)

	if err := s.Reset(); err != nil || f.resets != 1 {
		t.Errorf("Reset: resets=%d err=%v", f.resets, err)
	}
	if err := s.Close(); err != nil || !f.closed {
		t.Errorf("Close: closed=%v err=%v", f.closed, err)
	}
}

func TestSession_Channel(t *testing.T) {
	s := newTestSession(newFakeTransport(nil))

	for _, n := range []int{0, 3, -1} {
		if _, err := s.Channel(n); !errors.Is(err, ErrInvalidSetting) {
			t.Errorf("Channel(%d): expected ErrInvalidSetting, got %v", n, err)
		}
	}

	ch, err := s.Channel(2)
	if err != nil {
		t.Fatalf("Channel(2) failed: %v", err)
	}
	if ch.Number() != 2 || ch.String() != "CHAN2" {
		t.Errorf("Unexpected channel: %d %s", ch.Number(), ch)
	}
}

func TestValidAverages(t *testing.T) {
	for n := 0; n <= 300; n++ {
		expected := n == 2 || n == 4 || n == 8 || n == 16 || n == 32 || n == 64 || n == 128
		if ValidAverages(n) != expected {
			t.Errorf("ValidAverages(%d) = %v, expected %v", n, !expected, expected)
		}
	}
}

func TestParseSettings(t *testing.T) {
	testCases := []struct {
		in       string
		parse    func(string) (string, bool)
		expected string
		ok       bool
	}{
		{"norm", parseAcquireMode, "NORM", true},
		{"NORMAL", parseAcquireMode, "NORM", true},
		{"Average", parseAcquireMode, "AVER", true},
		{"PEAK DETECT", parseAcquireMode, "PEAK", true},
		{"peakdetect", parseAcquireMode, "PEAK", true},
		{"NORMANDY", parseAcquireMode, "", false},
		{"PEAKX", parseAcquireMode, "", false},
		{"AV", parseAcquireMode, "", false},
		{" long ", parseMemoryDepth, "LONG", true},
		{"normal", parseMemoryDepth, "NORM", true},
		{"LONGER", parseMemoryDepth, "", false},
		{"main", parseTimeMode, "MAIN", true},
		{"DEL", parseTimeMode, "DELAYED", true},
		{"delayed", parseTimeMode, "DELAYED", true},
		{"DELETE", parseTimeMode, "", false},
		{"MAINS", parseTimeMode, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := tc.parse(tc.in)
			if ok != tc.ok || got != tc.expected {
				t.Errorf("Parsing %q: got %q, %v, expected %q, %v", tc.in, got, ok, tc.expected, tc.ok)
			}
		})
	}
}

func parseAcquireMode(s string) (string, bool) {
	m, ok := ParseAcquireMode(s)
	return string(m), ok
}

func parseMemoryDepth(s string) (string, bool) {
	d, ok := ParseMemoryDepth(s)
	return string(d), ok
}

func parseTimeMode(s string) (string, bool) {
	m, ok := ParseTimeMode(s)
	return string(m), ok
}
