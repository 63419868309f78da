package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/roman-kulish/rigol-scope/internal/scope"
)

type replyTransport struct {
	replies map[string]string
	last    string
}

func (r *replyTransport) Write(p []byte) error {
	r.last = string(p)
	return nil
}

func (r *replyTransport) ReadRaw(int) ([]byte, error) {
	return []byte(r.replies[r.last] + "\n"), nil
}

func (r *replyTransport) Reset() error { return nil }
func (r *replyTransport) Close() error { return nil }

func testChannel(t *testing.T, replies map[string]string) *scope.Channel {
	t.Helper()

	session := scope.NewSession(&replyTransport{replies: replies}, scope.WithSettleDelay(0))
	ch, err := session.Channel(1)
	if err != nil {
		t.Fatal(err)
	}
	return ch
}

func TestReport(t *testing.T) {
	ch := testChannel(t, map[string]string{
		":MEAS:VPP? CHAN1":  "2.080e+00",
		":MEAS:FREQ? CHAN1": "1.000e+03",
		":MEAS:RIS? CHAN1":  "2.500e-06",
		":MEAS:PDUT? CHAN1": "5.000e+01",
		":MEAS:OVER? CHAN1": "9.900e+37",
	})

	var out bytes.Buffer
	list := []scope.Measurement{scope.Vpp, scope.Frequency, scope.RiseTime, scope.PositiveDuty, scope.Overshoot}
	if err := report(context.Background(), ch, list, &out); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	expected := "CHAN1 vpp       2.08 V\n" +
		"CHAN1 freq      1 kHz\n" +
		"CHAN1 rise      2.5 µs\n" +
		"CHAN1 pduty     50.00 %\n" +
		"CHAN1 overshoot n/a\n"
	if out.String() != expected {
		t.Errorf("Unexpected report:\n%s\nexpected:\n%s", out.String(), expected)
	}
}

func TestReport_Errors(t *testing.T) {
	ch := testChannel(t, map[string]string{":MEAS:VPP? CHAN1": "****"})

	var out bytes.Buffer
	err := report(context.Background(), ch, []scope.Measurement{scope.Vpp}, &out)

	var parseErr *scope.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("Expected ParseError, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err = report(ctx, ch, []scope.Measurement{scope.Vpp}, &out); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		v        float64
		unit     string
		expected string
	}{
		{0, "V", "0 V"},
		{-1.5, "V", "-1.5 V"},
		{0.00125, "s", "1.25 ms"},
		{1e8, "Hz", "100 MHz"},
		{12.345, "%", "12.35 %"},
		{9.9e37, "Hz", "n/a"},
	}

	for _, tc := range testCases {
		if got := formatValue(tc.v, tc.unit); got != tc.expected {
			t.Errorf("formatValue(%g, %q) = %q, expected %q", tc.v, tc.unit, got, tc.expected)
		}
	}
}
