package waveform

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestVoltage_KnownCodes(t *testing.T) {
	testCases := []struct {
		name     string
		code     byte
		gain     float64
		offset   float64
		expected float64
	}{
		{"lowest code is top of screen", 0, 1.0, 0.0, 5.0},
		{"highest code is bottom of screen", 255, 1.0, 0.0, -5.2},
		{"center code", 130, 1.0, 0.0, -0.2},
		// The screen center code 130 reads -0.2 V under this formula, so zero is 125.
		{"zero volts code", 125, 1.0, 0.0, 0.0},
		{"gain scales linearly", 0, 2.0, 0.0, 10.0},
		{"offset shifts down", 125, 1.0, 1.0, -1.0},
		{"offset in gain units", 125, 0.5, 0.5, -0.5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Voltage(tc.code, tc.gain, tc.offset)
			if !almostEqual(got, tc.expected, tolerance) {
				t.Errorf("Voltage(%d, %g, %g) = %g, expected %g", tc.code, tc.gain, tc.offset, got, tc.expected)
			}
		})
	}
}

func TestVoltage_ZeroVoltsCode(t *testing.T) {
	// Zero volts sits at code 125 - offset/gain*25, up to half a code of truncation.
	testCases := []struct {
		gain   float64
		offset float64
	}{
		{1.0, 0.0},
		{0.5, 1.0},
		{2.0, -3.0},
		{0.1, 0.33},
		{5.0, 20.0},
	}

	for _, tc := range testCases {
		shift := math.Round(tc.offset / tc.gain * CountsPerDivision)
		code := byte(125 - shift)

		got := Voltage(code, tc.gain, tc.offset)
		limit := 0.5/CountsPerDivision*tc.gain + tolerance
		if math.Abs(got) > limit {
			t.Errorf("gain=%g offset=%g: code %d maps to %g V, expected |v| <= %g", tc.gain, tc.offset, code, got, limit)
		}
	}
}

func TestVoltage_MonotonicDecreasing(t *testing.T) {
	for _, params := range [][2]float64{{1, 0}, {0.05, 0.2}, {10, -4}} {
		gain, offset := params[0], params[1]
		for code := 0; code < 255; code++ {
			a := Voltage(byte(code), gain, offset)
			b := Voltage(byte(code+1), gain, offset)
			if !(b < a) {
				t.Fatalf("gain=%g offset=%g: Voltage(%d)=%g is not greater than Voltage(%d)=%g", gain, offset, code, a, code+1, b)
			}
		}
	}
}

func TestScaleVoltages(t *testing.T) {
	raw := Raw{0, 255, 130}
	expected := []float64{5.0, -5.2, -0.2}

	got := ScaleVoltages(raw, 1.0, 0.0)
	if len(got) != len(raw) {
		t.Fatalf("Expected %d values, got %d", len(raw), len(got))
	}
	for i := range expected {
		if !almostEqual(got[i], expected[i], tolerance) {
			t.Errorf("Sample %d: expected %g, got %g", i, expected[i], got[i])
		}
	}

	if got := ScaleVoltages(Raw{}, 1, 0); len(got) != 0 {
		t.Errorf("Expected empty result for empty input, got %v", got)
	}
}

func TestStripHeader(t *testing.T) {
	reply := []byte{'#', '8', '0', '0', '0', '0', '0', '0', '0', '3', 10, 20, 30}

	raw, err := StripHeader(reply)
	if err != nil {
		t.Fatalf("StripHeader failed: %v", err)
	}
	if len(raw) != 3 || raw[0] != 10 || raw[2] != 30 {
		t.Errorf("Unexpected samples: %v", raw)
	}

	raw, err = StripHeader(reply[:HeaderSize])
	if err != nil {
		t.Fatalf("StripHeader failed on header-only reply: %v", err)
	}
	if len(raw) != 0 {
		t.Errorf("Expected no samples, got %d", len(raw))
	}

	if _, err = StripHeader(reply[:4]); err == nil {
		t.Error("Expected error for a reply shorter than the header")
	}
}

func TestTimeAxis(t *testing.T) {
	got := TimeAxis(0, 1e-3, 5)
	expected := []float64{-6e-3, -3e-3, 0, 3e-3, 6e-3}

	if len(got) != len(expected) {
		t.Fatalf("Expected %d timestamps, got %d", len(expected), len(got))
	}
	for i := range expected {
		if !almostEqual(got[i], expected[i], 1e-15) {
			t.Errorf("Timestamp %d: expected %g, got %g", i, expected[i], got[i])
		}
	}

	t.Run("offset shifts window", func(t *testing.T) {
		axis := TimeAxis(2, 0.5, 3)
		if axis[0] != -1 || axis[1] != 2 || axis[2] != 5 {
			t.Errorf("Unexpected axis: %v", axis)
		}
	})

	t.Run("evenly spaced", func(t *testing.T) {
		axis := TimeAxis(1e-6, 5e-6, 600)
		step := axis[1] - axis[0]
		for i := 2; i < len(axis); i++ {
			if !almostEqual(axis[i]-axis[i-1], step, 1e-15) {
				t.Fatalf("Uneven step at %d: %g vs %g", i, axis[i]-axis[i-1], step)
			}
		}
	})

	t.Run("degenerate sizes", func(t *testing.T) {
		if axis := TimeAxis(0, 1, 0); len(axis) != 0 {
			t.Errorf("Expected empty axis, got %v", axis)
		}
		if axis := TimeAxis(0, 1, -3); len(axis) != 0 {
			t.Errorf("Expected empty axis, got %v", axis)
		}
		if axis := TimeAxis(0, 1, 1); len(axis) != 1 || axis[0] != -6 {
			t.Errorf("Expected [-6], got %v", axis)
		}
	})
}

func TestSelectTimeUnit(t *testing.T) {
	testCases := []struct {
		name     string
		last     float64
		expected TimeUnit
	}{
		{"microseconds", 5e-4, Microseconds},
		{"milliseconds", 5e-1, Milliseconds},
		{"seconds", 5, Seconds},
		{"exactly one millisecond", 1e-3, Milliseconds},
		{"exactly one second", 1, Seconds},
		{"zero", 0, Microseconds},
		{"negative small", -5e-4, Microseconds},
		{"negative large", -2, Seconds},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectTimeUnit(tc.last); got != tc.expected {
				t.Errorf("SelectTimeUnit(%g) = %s, expected %s", tc.last, got, tc.expected)
			}
		})
	}
}

func TestScale_EndToEnd(t *testing.T) {
	cal := Calibration{
		VoltsPerDiv:   1.0,
		VoltOffset:    0.0,
		SecondsPerDiv: 1e-3,
		TimeOffset:    0.0,
	}

	scaled := Scale(Raw{0, 255, 130}, cal)
	if scaled.Len() != 3 || len(scaled.Time) != 3 {
		t.Fatalf("Expected 3 volts and 3 timestamps, got %d and %d", scaled.Len(), len(scaled.Time))
	}

	expectedVolts := []float64{5.0, -5.2, -0.2}
	expectedTime := []float64{-6e-3, 0, 6e-3}
	for i := range expectedVolts {
		if !almostEqual(scaled.Volts[i], expectedVolts[i], tolerance) {
			t.Errorf("Volts[%d]: expected %g, got %g", i, expectedVolts[i], scaled.Volts[i])
		}
		if !almostEqual(scaled.Time[i], expectedTime[i], 1e-15) {
			t.Errorf("Time[%d]: expected %g, got %g", i, expectedTime[i], scaled.Time[i])
		}
	}

	times, unit := scaled.Display()
	if unit != Milliseconds {
		t.Errorf("Expected mS, got %s", unit)
	}
	if !almostEqual(times[0], -6, 1e-12) || !almostEqual(times[2], 6, 1e-12) {
		t.Errorf("Unexpected display axis: %v", times)
	}
	if scaled.Time[2] != 6e-3 {
		t.Errorf("Display must not modify the stored axis, got %g", scaled.Time[2])
	}

	lo, hi := scaled.VoltageRange()
	if !almostEqual(lo, -5.2, tolerance) || !almostEqual(hi, 5.0, tolerance) {
		t.Errorf("Unexpected voltage range: [%g, %g]", lo, hi)
	}
}

func TestScaled_Empty(t *testing.T) {
	scaled := Scale(Raw{}, Calibration{VoltsPerDiv: 1, SecondsPerDiv: 1})

	times, unit := scaled.Display()
	if len(times) != 0 || unit != Seconds {
		t.Errorf("Expected empty axis in seconds, got %v %s", times, unit)
	}

	if lo, hi := scaled.VoltageRange(); lo != 0 || hi != 0 {
		t.Errorf("Expected zero range, got [%g, %g]", lo, hi)
	}
}
