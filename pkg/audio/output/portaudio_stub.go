//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

var errPortAudioDisabled = fmt.Errorf("PortAudio support not enabled (build with -tags portaudio): %w", ErrUnsupported)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() sink.System {
	return &PortAudio{}
}

func (p *PortAudio) Open(name string) (sink.Device, error) {
	return nil, errPortAudioDisabled
}

func (p *PortAudio) Hints(iface string) ([]sink.Descriptor, error) {
	return nil, errPortAudioDisabled
}
