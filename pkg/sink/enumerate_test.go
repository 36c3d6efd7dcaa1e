// ABOUTME: Tests for playback device enumeration
// ABOUTME: Checks direction filtering and aplay -L style output
package sink

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestListOutputsFiltersPlayback(t *testing.T) {
	sys := newFakeSystem()
	sys.hints = map[string][]Descriptor{
		IfacePCM: {
			{Name: "hw:0,0", Description: "HDA Intel PCH\nALC892 Analog", Direction: DirectionPlayback},
			{Name: "hw:0,1", Description: "HDA Intel PCH\nALC892 Capture", Direction: DirectionCapture},
		},
		IfaceCtl: {
			{Name: "hw:0", Description: "HDA Intel PCH", Direction: DirectionNone},
		},
	}

	outputs, err := ListOutputs(sys)
	if err != nil {
		t.Fatalf("ListOutputs failed: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %d: %+v", len(outputs), outputs)
	}
	if outputs[0].Name != "hw:0,0" || outputs[0].Interface != IfacePCM {
		t.Errorf("unexpected output: %+v", outputs[0])
	}

	var buf bytes.Buffer
	if err := PrintOutputs(&buf, outputs); err != nil {
		t.Fatalf("PrintOutputs failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "hw:0,0\n\tHDA Intel PCH\n\tALC892 Analog\n") {
		t.Errorf("expected indented playback entry, got:\n%s", out)
	}
	if strings.Contains(out, "hw:0,1") || strings.Contains(out, "Capture") {
		t.Errorf("capture entry must not be printed, got:\n%s", out)
	}
}

func TestPrintOutputsHeaders(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintOutputs(&buf, nil); err != nil {
		t.Fatalf("PrintOutputs failed: %v", err)
	}
	expected := "pcm devices:\nctl devices:\nhwdep devices:\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestListOutputsQueryFailure(t *testing.T) {
	sys := newFakeSystem()
	sys.hintErr = errors.New("no such file or directory")

	if _, err := ListOutputs(sys); !errors.Is(err, sys.hintErr) {
		t.Fatalf("expected hint error, got %v", err)
	}
}

func TestDirectionString(t *testing.T) {
	tests := map[Direction]string{
		DirectionNone:     "none",
		DirectionPlayback: "playback",
		DirectionCapture:  "capture",
	}
	for d, expected := range tests {
		if d.String() != expected {
			t.Errorf("expected %q, got %q", expected, d.String())
		}
	}
}
