// ABOUTME: Tests for the tone generator
// ABOUTME: Checks stereo duplication, amplitude and duration
package decode

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestToneReadsStereoPairs(t *testing.T) {
	dec := NewTone(440, 0)
	buf := make([]int16, 512)

	n, err := dec.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("expected %d samples, got %d", len(buf), n)
	}

	if buf[0] != 0 {
		t.Errorf("expected tone to start at zero, got %d", buf[0])
	}
	nonZero := false
	for i := 0; i < n; i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("frame %d: left %d != right %d", i/2, buf[i], buf[i+1])
		}
		if buf[i] > 16384 || buf[i] < -16384 {
			t.Fatalf("sample %d exceeds half scale", buf[i])
		}
		if buf[i] != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Error("expected a non-silent tone")
	}
}

func TestToneEndsAfterDuration(t *testing.T) {
	// 10ms at 44.1kHz is 441 frames
	dec := NewTone(440, 10*time.Millisecond)
	buf := make([]int16, 2*300)

	total := 0
	for {
		n, err := dec.Read(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		total += n
	}
	if total != 441*2 {
		t.Errorf("expected %d samples, got %d", 441*2, total)
	}
}

func TestToneShortBuffer(t *testing.T) {
	dec := NewTone(440, 0)
	if _, err := dec.Read(make([]int16, 1)); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
}
