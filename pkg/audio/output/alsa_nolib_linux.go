//go:build linux && !cgo

// ABOUTME: ALSA placeholder for builds without cgo
// ABOUTME: Only hw:CARD,DEV devices can be opened through the pure Go path
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

const haveLibasound = false

func openLibPCM(name string) (sink.Device, error) {
	return nil, fmt.Errorf("device %q needs libasound (build with cgo): %w", name, ErrUnsupported)
}

func libHints(iface string) ([]sink.Descriptor, error) {
	return nil, fmt.Errorf("device hints need libasound (build with cgo): %w", ErrUnsupported)
}
