// ABOUTME: Tests for hardware parameter negotiation
// ABOUTME: Verifies interval narrowing, period alignment and buffer tiling
package sink

import (
	"errors"
	"strings"
	"testing"
)

func TestIntervalClamp(t *testing.T) {
	iv := Interval{Min: 10, Max: 20}
	tests := []struct {
		input    uint32
		expected uint32
	}{
		{5, 10},
		{10, 10},
		{15, 15},
		{20, 20},
		{25, 20},
	}

	for _, tt := range tests {
		if got := iv.Clamp(tt.input); got != tt.expected {
			t.Errorf("Clamp(%d): expected %d, got %d", tt.input, tt.expected, got)
		}
	}
}

func TestIntervalIntersect(t *testing.T) {
	got := Interval{Min: 10, Max: 20}.Intersect(Interval{Min: 15, Max: 30})
	if got != (Interval{Min: 15, Max: 20}) {
		t.Errorf("expected [15 20], got %s", got)
	}

	if !(Interval{Min: 10, Max: 20}).Intersect(Interval{Min: 30, Max: 40}).Empty() {
		t.Error("expected disjoint intervals to intersect to an empty interval")
	}
}

func TestPickAligned(t *testing.T) {
	tests := []struct {
		name     string
		iv       Interval
		align    uint32
		v        uint32
		dir      ValueOr
		expected uint32
	}{
		{"exact", Interval{Min: 32, Max: 8192}, 32, 1024, Nearest, 1024},
		{"greater rounds up", Interval{Min: 32, Max: 8192}, 32, 5513, Greater, 5536},
		{"less rounds down", Interval{Min: 32, Max: 8192}, 32, 5513, Less, 5504},
		{"nearest rounds down", Interval{Min: 32, Max: 8192}, 32, 5513, Nearest, 5504},
		{"nearest rounds up", Interval{Min: 32, Max: 8192}, 32, 5530, Nearest, 5536},
		{"unaligned any", Interval{Min: 1, Max: 8192}, 0, 5513, Greater, 5513},
		{"above max", Interval{Min: 32, Max: 4096}, 32, 5513, Greater, 4096},
		{"below min", Interval{Min: 64, Max: 4096}, 32, 10, Less, 64},
		{"unaligned bounds", Interval{Min: 33, Max: 100}, 32, 10, Nearest, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickAligned(tt.iv, tt.align, tt.v, tt.dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestPickAlignedEmpty(t *testing.T) {
	_, err := pickAligned(Interval{Min: 33, Max: 63}, 32, 40, Nearest)
	if !errors.Is(err, ErrParamNotSupported) {
		t.Fatalf("expected ErrParamNotSupported, got %v", err)
	}
}

func TestSetRateNear(t *testing.T) {
	hw := testHwParams()
	hw.Rate = Interval{Min: 48000, Max: 96000}

	rate, err := hw.SetRateNear(44100)
	if err != nil {
		t.Fatalf("SetRateNear failed: %v", err)
	}
	if rate != 48000 {
		t.Errorf("expected nearest rate 48000, got %d", rate)
	}
	if !hw.Rate.IsSingle() {
		t.Error("expected rate to be fixed")
	}
}

func TestBufferThenPeriod(t *testing.T) {
	hw := testHwParams()
	hw.PeriodAlign = 0

	buffer, err := hw.SetBufferSizeNear(TargetBufferSize)
	if err != nil {
		t.Fatalf("SetBufferSizeNear failed: %v", err)
	}
	if buffer != TargetBufferSize {
		t.Errorf("expected buffer %d, got %d", TargetBufferSize, buffer)
	}

	period, err := hw.SetPeriodSizeNear(TargetPeriodSize, Greater)
	if err != nil {
		t.Fatalf("SetPeriodSizeNear failed: %v", err)
	}
	if period != TargetPeriodSize {
		t.Errorf("expected period %d, got %d", TargetPeriodSize, period)
	}

	periods, _ := hw.FixedPeriods()
	final, _ := hw.FixedBufferSize()
	if periods != 4 || final != 22052 {
		t.Errorf("expected 4 periods of 5513 (22052), got %d periods, buffer %d", periods, final)
	}
}

func TestBufferTiledByPeriod(t *testing.T) {
	hw := testHwParams()

	if _, err := hw.SetBufferSizeNear(TargetBufferSize); err != nil {
		t.Fatalf("SetBufferSizeNear failed: %v", err)
	}
	period, err := hw.SetPeriodSizeNear(TargetResamplePeriodSize, Nearest)
	if err != nil {
		t.Fatalf("SetPeriodSizeNear failed: %v", err)
	}

	buffer, _ := hw.FixedBufferSize()
	periods, _ := hw.FixedPeriods()
	if buffer != period*periods {
		t.Errorf("expected buffer %d = %d * %d", buffer, period, periods)
	}
	if buffer < TargetBufferSize {
		t.Errorf("expected buffer >= %d, got %d", TargetBufferSize, buffer)
	}
}

func TestPeriodCountLimit(t *testing.T) {
	hw := testHwParams()
	hw.Periods = Interval{Min: 2, Max: 8}

	if _, err := hw.SetBufferSizeNear(TargetBufferSize); err != nil {
		t.Fatalf("SetBufferSizeNear failed: %v", err)
	}
	// 1024 frame periods would need 22 periods; only 8 are allowed
	period, err := hw.SetPeriodSizeNear(TargetResamplePeriodSize, Nearest)
	if err != nil {
		t.Fatalf("SetPeriodSizeNear failed: %v", err)
	}
	if period < 22052/8 {
		t.Errorf("expected period raised to tile the buffer with 8 periods, got %d", period)
	}
}

func TestPeriodKeepsFixedBuffer(t *testing.T) {
	tests := []struct {
		name        string
		frames      uint32
		dir         ValueOr
		wantPeriod  uint32
		wantPeriods uint32
	}{
		{"greater picks smallest tiling period", 5513, Greater, 8192, 2},
		{"less picks largest tiling period", 5000, Less, 4096, 4},
		{"nearest keeps the period", 5513, Nearest, 5513, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := testHwParams()
			hw.PeriodAlign = 1
			hw.BufferSize = Interval{Min: 64, Max: 16384}

			if _, err := hw.SetBufferSizeNear(TargetBufferSize); err != nil {
				t.Fatalf("SetBufferSizeNear failed: %v", err)
			}
			period, err := hw.SetPeriodSizeNear(tt.frames, tt.dir)
			if err != nil {
				t.Fatalf("SetPeriodSizeNear failed: %v", err)
			}
			periods, _ := hw.FixedPeriods()
			buffer, _ := hw.FixedBufferSize()
			if period != tt.wantPeriod || periods != tt.wantPeriods {
				t.Errorf("expected %d periods of %d, got %d periods of %d", tt.wantPeriods, tt.wantPeriod, periods, period)
			}
			if buffer != period*periods {
				t.Errorf("expected buffer %d = %d * %d", buffer, period, periods)
			}
		})
	}
}

func TestSetBufferSizeUnsupported(t *testing.T) {
	hw := testHwParams()
	hw.BufferSize = Interval{Min: 100, Max: 50}

	if _, err := hw.SetBufferSizeNear(TargetBufferSize); !errors.Is(err, ErrParamNotSupported) {
		t.Fatalf("expected ErrParamNotSupported, got %v", err)
	}
}

func TestFinalized(t *testing.T) {
	hw := testHwParams()
	err := hw.Finalized()
	if !errors.Is(err, ErrParamNotFixed) {
		t.Fatalf("expected ErrParamNotFixed, got %v", err)
	}
	if !strings.Contains(err.Error(), "access") || !strings.Contains(err.Error(), "periods") {
		t.Errorf("expected open parameters to be named, got %v", err)
	}

	if _, err := hw.FixedPeriods(); !errors.Is(err, ErrParamNotFixed) {
		t.Errorf("expected FixedPeriods to fail before negotiation, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	hw := testHwParams()
	c := hw.Clone()
	if err := c.SetFormat(FormatS16LE); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}
	if len(hw.Formats) != 2 {
		t.Errorf("expected original formats untouched, got %v", hw.Formats)
	}
}

func TestHwParamsString(t *testing.T) {
	hw := testHwParams()
	s := hw.String()
	for _, want := range []string{"ACCESS: MMAP_INTERLEAVED RW_INTERLEAVED", "FORMAT: S16_LE S32_LE", "RATE: [8000 192000]"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in:\n%s", want, s)
		}
	}
}

func TestNegotiatedLatency(t *testing.T) {
	n := Negotiated{Rate: 44100, BufferSize: 22050}
	if got := n.LatencyMs(); got != 500 {
		t.Errorf("expected 500ms, got %f", got)
	}
	if got := (Negotiated{}).LatencyMs(); got != 0 {
		t.Errorf("expected 0 for unset rate, got %f", got)
	}
}
