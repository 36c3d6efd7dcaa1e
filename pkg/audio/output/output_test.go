package output

import (
	"bytes"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

func testCaps() *sink.HwParams {
	return &sink.HwParams{
		Accesses:   []sink.Access{sink.AccessRWInterleaved},
		Formats:    []sink.Format{sink.FormatS16LE, sink.FormatS32LE},
		Rate:       sink.Interval{Min: 44100, Max: 48000},
		Channels:   sink.Interval{Min: 1, Max: 2},
		BufferSize: sink.Interval{Min: 512, Max: 1 << 16},
		PeriodSize: sink.Interval{Min: 64, Max: 1 << 14},
		Periods:    sink.Interval{Min: 2, Max: 32},
	}
}

// narrow walks a parameter space down to the default 44.1kHz stereo layout
func narrow(t *testing.T, hw *sink.HwParams, format sink.Format) {
	t.Helper()
	if err := hw.SetAccess(sink.AccessRWInterleaved); err != nil {
		t.Fatalf("SetAccess failed: %v", err)
	}
	if err := hw.SetFormat(format); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}
	if _, err := hw.SetRateNear(sink.TargetRate); err != nil {
		t.Fatalf("SetRateNear failed: %v", err)
	}
	if err := hw.SetChannels(sink.TargetChannels); err != nil {
		t.Fatalf("SetChannels failed: %v", err)
	}
	if _, err := hw.SetBufferSizeNear(sink.TargetBufferSize); err != nil {
		t.Fatalf("SetBufferSizeNear failed: %v", err)
	}
	if _, err := hw.SetPeriodSizeNear(sink.TargetPeriodSize, sink.Greater); err != nil {
		t.Fatalf("SetPeriodSizeNear failed: %v", err)
	}
}

func TestNewBackends(t *testing.T) {
	for _, name := range append([]string{""}, Backends...) {
		t.Run(name, func(t *testing.T) {
			sys, err := New(name)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", name, err)
			}
			if sys == nil {
				t.Errorf("New(%q) returned nil system", name)
			}
		})
	}

	if _, err := New("jack"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestFixedDeviceInstall(t *testing.T) {
	d := &fixedDevice{caps: testCaps()}

	if _, err := d.HwParamsCurrent(); err == nil {
		t.Error("expected HwParamsCurrent to fail before install")
	}
	if _, err := d.SwParamsCurrent(); err == nil {
		t.Error("expected SwParamsCurrent to fail before install")
	}

	hw, err := d.HwParamsAny()
	if err != nil {
		t.Fatalf("HwParamsAny failed: %v", err)
	}
	narrow(t, hw, sink.FormatS16LE)
	if err := d.ApplyHwParams(hw); err != nil {
		t.Fatalf("ApplyHwParams failed: %v", err)
	}

	// The caps stay untouched by narrowing a clone
	if len(d.caps.Formats) != 2 {
		t.Errorf("caps formats = %v, want 2 entries", d.caps.Formats)
	}

	sw, err := d.SwParamsCurrent()
	if err != nil {
		t.Fatalf("SwParamsCurrent failed: %v", err)
	}
	if sw.StartThreshold != 1 {
		t.Errorf("default start threshold = %d, want 1", sw.StartThreshold)
	}
	if sw.StopThreshold != hw.BufferSize.Min {
		t.Errorf("default stop threshold = %d, want %d", sw.StopThreshold, hw.BufferSize.Min)
	}

	sw.StartThreshold = hw.BufferSize.Min - hw.PeriodSize.Min
	params, err := d.installed(sw)
	if err != nil {
		t.Fatalf("installed failed: %v", err)
	}
	if params.Rate != 44100 || params.Channels != 2 {
		t.Errorf("got %d Hz x %d, want 44100 Hz x 2", params.Rate, params.Channels)
	}
	if params.BufferSize != hw.BufferSize.Min {
		t.Errorf("buffer = %d, want %d", params.BufferSize, hw.BufferSize.Min)
	}
	if params.BufferSize != hw.PeriodSize.Min*hw.Periods.Min {
		t.Errorf("buffer %d is not period %d x %d", params.BufferSize, hw.PeriodSize.Min, hw.Periods.Min)
	}
	if params.PeriodSize < sink.TargetPeriodSize {
		t.Errorf("period = %d, want at least %d", params.PeriodSize, sink.TargetPeriodSize)
	}

	got, err := d.SwParamsCurrent()
	if err != nil {
		t.Fatalf("SwParamsCurrent failed: %v", err)
	}
	if got != sw {
		t.Errorf("SwParamsCurrent = %+v, want %+v", got, sw)
	}
}

func TestFixedDeviceRejects(t *testing.T) {
	d := &fixedDevice{caps: testCaps()}

	hw, err := d.HwParamsAny()
	if err != nil {
		t.Fatalf("HwParamsAny failed: %v", err)
	}
	if err := d.ApplyHwParams(hw); err == nil {
		t.Error("expected unfinalized space to be rejected")
	}

	narrow(t, hw, sink.FormatS32LE)
	if err := d.ApplyHwParams(hw); !errors.Is(err, sink.ErrParamNotSupported) {
		t.Errorf("expected ErrParamNotSupported for S32, got %v", err)
	}

	if _, err := d.installed(sink.SwParams{}); err == nil {
		t.Error("expected error without hardware parameters")
	}
}

func TestFixedDeviceThresholdAboveBuffer(t *testing.T) {
	d := &fixedDevice{caps: testCaps()}
	hw, err := d.HwParamsAny()
	if err != nil {
		t.Fatalf("HwParamsAny failed: %v", err)
	}
	narrow(t, hw, sink.FormatS16LE)
	if err := d.ApplyHwParams(hw); err != nil {
		t.Fatalf("ApplyHwParams failed: %v", err)
	}

	_, err = d.installed(sink.SwParams{StartThreshold: hw.BufferSize.Min + 1})
	if !errors.Is(err, sink.ErrParamNotSupported) {
		t.Errorf("expected ErrParamNotSupported, got %v", err)
	}
}

func TestLibraryHints(t *testing.T) {
	hints, err := libraryHints(sink.IfacePCM, "oto", "Oto\nPlatform default output")
	if err != nil {
		t.Fatalf("libraryHints failed: %v", err)
	}
	if len(hints) != 1 {
		t.Fatalf("got %d hints, want 1", len(hints))
	}
	if hints[0].Direction != sink.DirectionPlayback || hints[0].Name != "oto" {
		t.Errorf("unexpected hint %+v", hints[0])
	}

	for _, iface := range []string{sink.IfaceCtl, sink.IfaceHwdep} {
		hints, err := libraryHints(iface, "oto", "")
		if err != nil {
			t.Errorf("libraryHints(%s) failed: %v", iface, err)
		}
		if len(hints) != 0 {
			t.Errorf("libraryHints(%s) = %v, want none", iface, hints)
		}
	}

	if _, err := libraryHints("rawmidi", "oto", ""); err == nil {
		t.Error("expected error for unknown interface")
	}
}

func TestOtoOpenRejectsUnknownDevice(t *testing.T) {
	if _, err := NewOto().Open("hw:0,0"); err == nil {
		t.Error("expected oto to reject hw:0,0")
	}
}

func TestOtoHintsListOneOutput(t *testing.T) {
	outputs, err := sink.ListOutputs(NewOto())
	if err != nil {
		t.Fatalf("ListOutputs failed: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Name != OtoDevice {
		t.Errorf("ListOutputs = %+v, want only %s", outputs, OtoDevice)
	}
}

func TestOtoCapsNegotiate(t *testing.T) {
	hw := otoCaps()
	narrow(t, hw, sink.FormatS16LE)
	if err := hw.Finalized(); err != nil {
		t.Fatalf("Finalized failed: %v", err)
	}
	if hw.BufferSize.Min < sink.TargetBufferSize {
		t.Errorf("buffer = %d, want at least %d", hw.BufferSize.Min, sink.TargetBufferSize)
	}
}

func TestMalgoCapsNegotiate(t *testing.T) {
	hw := malgoCaps()
	narrow(t, hw, sink.FormatS16LE)
	if err := hw.Finalized(); err != nil {
		t.Fatalf("Finalized failed: %v", err)
	}
	if hw.BufferSize.Min != hw.PeriodSize.Min*hw.Periods.Min {
		t.Errorf("buffer %d is not period %d x %d", hw.BufferSize.Min, hw.PeriodSize.Min, hw.Periods.Min)
	}
}

func TestRingBufferReadWrite(t *testing.T) {
	rb := NewRingBuffer(8)

	if n := rb.TryWrite([]int16{1, 2, 3, 4, 5}); n != 5 {
		t.Errorf("TryWrite = %d, want 5", n)
	}
	if n := rb.Available(); n != 5 {
		t.Errorf("Available = %d, want 5", n)
	}

	// Only three slots left
	if n := rb.TryWrite([]int16{6, 7, 8, 9}); n != 3 {
		t.Errorf("TryWrite into full ring = %d, want 3", n)
	}

	out := make([]int16, 4)
	if n := rb.Read(out); n != 4 {
		t.Errorf("Read = %d, want 4", n)
	}
	if !slices.Equal(out, []int16{1, 2, 3, 4}) {
		t.Errorf("Read got %v", out)
	}
	if rb.Underruns() != 0 {
		t.Errorf("Underruns = %d, want 0", rb.Underruns())
	}
}

func TestRingBufferUnderrunZeroFills(t *testing.T) {
	rb := NewRingBuffer(8)
	rb.TryWrite([]int16{7, -7})

	out := []int16{9, 9, 9, 9}
	if n := rb.Read(out); n != 2 {
		t.Errorf("Read = %d, want 2", n)
	}
	if !slices.Equal(out, []int16{7, -7, 0, 0}) {
		t.Errorf("Read got %v, want zero fill", out)
	}
	if rb.Underruns() != 1 {
		t.Errorf("Underruns = %d, want 1", rb.Underruns())
	}
}

func TestRingBufferReadBytes(t *testing.T) {
	rb := NewRingBuffer(8)
	scratch := make([]int16, 8)

	rb.TryWrite([]int16{1, -2})
	out := make([]byte, 6)
	if n := rb.ReadBytes(out, scratch); n != 2 {
		t.Errorf("ReadBytes = %d, want 2", n)
	}
	if !bytes.Equal(out, []byte{0x01, 0x00, 0xFE, 0xFF, 0x00, 0x00}) {
		t.Errorf("ReadBytes got % x", out)
	}

	// The same scratch serves the next callback
	rb.TryWrite([]int16{256})
	out = make([]byte, 2)
	if n := rb.ReadBytes(out, scratch); n != 1 {
		t.Errorf("ReadBytes = %d, want 1", n)
	}
	if !bytes.Equal(out, []byte{0x00, 0x01}) {
		t.Errorf("ReadBytes got % x", out)
	}
}

func TestRingBufferWriteBlocksUntilRead(t *testing.T) {
	rb := NewRingBuffer(4)

	var wg sync.WaitGroup
	var written int
	wg.Add(1)
	go func() {
		defer wg.Done()
		written = rb.Write([]int16{1, 2, 3, 4, 5, 6})
	}()

	out := make([]int16, 2)
	deadline := time.Now().Add(2 * time.Second)
	got := 0
	for got < 6 && time.Now().Before(deadline) {
		if rb.Available() == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		got += rb.Read(out[:min(2, rb.Available())])
	}
	wg.Wait()

	if written != 6 || got != 6 {
		t.Errorf("written %d, read %d, want 6 each", written, got)
	}
}

func TestRingBufferCloseReleasesWriter(t *testing.T) {
	rb := NewRingBuffer(2)

	done := make(chan int)
	go func() {
		done <- rb.Write([]int16{1, 2, 3, 4})
	}()

	time.Sleep(10 * time.Millisecond)
	rb.Close()

	select {
	case n := <-done:
		if n != 2 {
			t.Errorf("Write = %d, want 2", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("writer still blocked after Close")
	}
	if n := rb.TryWrite([]int16{1}); n != 0 {
		t.Errorf("TryWrite after Close = %d, want 0", n)
	}
}

func TestRingBufferWaitEmpty(t *testing.T) {
	rb := NewRingBuffer(4)
	if !rb.WaitEmpty(time.Millisecond) {
		t.Error("expected empty ring to drain at once")
	}

	rb.TryWrite([]int16{1})
	if rb.WaitEmpty(10 * time.Millisecond) {
		t.Error("expected WaitEmpty to time out with data queued")
	}
}

func TestNullBackendCountsFrames(t *testing.T) {
	n := NewNull()
	s, err := sink.New(n, "", sink.WithPauser(sink.NopPauser{}))
	if err != nil {
		t.Fatalf("sink.New failed: %v", err)
	}

	if err := s.Start(sink.Config{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	params, ok := s.Negotiated()
	if !ok {
		t.Fatal("expected negotiated parameters after Start")
	}
	if params.Rate != sink.TargetRate {
		t.Errorf("rate = %d, want %d", params.Rate, sink.TargetRate)
	}

	if err := s.Write(make([]int16, 2*100)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if n.Frames() != 100 {
		t.Errorf("Frames = %d, want 100", n.Frames())
	}

	if _, err := n.Open("hw:0,0"); err == nil {
		t.Error("expected null backend to reject hw:0,0")
	}
}
