//go:build !linux

// ABOUTME: ALSA placeholder for platforms without /dev/snd
// ABOUTME: Every call fails with ErrUnsupported outside Linux
package output

import (
	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

// ALSA is only available on Linux
type ALSA struct{}

// NewALSA returns a subsystem whose every call fails with ErrUnsupported
func NewALSA() sink.System {
	return &ALSA{}
}

func (a *ALSA) Open(name string) (sink.Device, error) {
	return nil, ErrUnsupported
}

func (a *ALSA) Hints(iface string) ([]sink.Descriptor, error) {
	return nil, ErrUnsupported
}
