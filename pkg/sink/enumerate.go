// ABOUTME: Playback device enumeration for diagnostic listing
// ABOUTME: Filters subsystem hints to playback endpoints and prints them like aplay -L
package sink

import (
	"fmt"
	"io"
	"strings"
)

// Descriptor describes one endpoint reported by the audio subsystem
type Descriptor struct {
	Interface   string
	Name        string
	Description string
	Direction   Direction
}

// ListOutputs returns the playback endpoints of every hint interface.
// Hints without a direction annotation are skipped.
func ListOutputs(sys System) ([]Descriptor, error) {
	var outputs []Descriptor
	for _, iface := range HintInterfaces {
		hints, err := sys.Hints(iface)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s hints: %w", iface, err)
		}
		for _, h := range hints {
			if h.Direction != DirectionPlayback {
				continue
			}
			h.Interface = iface
			outputs = append(outputs, h)
		}
	}
	return outputs, nil
}

// PrintOutputs writes outputs grouped by interface, one header per interface
func PrintOutputs(w io.Writer, outputs []Descriptor) error {
	for _, iface := range HintInterfaces {
		if _, err := fmt.Fprintf(w, "%s devices:\n", iface); err != nil {
			return err
		}
		for _, d := range outputs {
			if d.Interface != iface {
				continue
			}
			desc := strings.ReplaceAll(d.Description, "\n", "\n\t")
			if _, err := fmt.Fprintf(w, "%s\n\t%s\n\n", d.Name, desc); err != nil {
				return err
			}
		}
	}
	return nil
}
