// ABOUTME: Null audio output that discards samples
// ABOUTME: Lets playback run on machines without a sound card
package output

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

// NullDevice is the only device name the null backend accepts besides "default"
const NullDevice = "null"

// Null discards everything written to it
type Null struct {
	frames atomic.Uint64
}

// NewNull creates a new null output
func NewNull() *Null {
	return &Null{}
}

func nullCaps() *sink.HwParams {
	return &sink.HwParams{
		Accesses:   []sink.Access{sink.AccessRWInterleaved},
		Formats:    []sink.Format{sink.FormatS16LE},
		Rate:       sink.Interval{Min: 4000, Max: 384000},
		Channels:   sink.Interval{Min: 1, Max: 8},
		BufferSize: sink.Interval{Min: 64, Max: 1 << 20},
		PeriodSize: sink.Interval{Min: 32, Max: 1 << 16},
		Periods:    sink.Interval{Min: 2, Max: 64},
	}
}

func (n *Null) Open(name string) (sink.Device, error) {
	if name != sink.DefaultDevice && name != NullDevice {
		return nil, fmt.Errorf("null backend has no device %q", name)
	}
	return &nullDevice{fixedDevice: fixedDevice{caps: nullCaps()}, owner: n}, nil
}

func (n *Null) Hints(iface string) ([]sink.Descriptor, error) {
	return libraryHints(iface, NullDevice, "Null\nDiscards all samples")
}

// Frames returns how many frames every device of this backend has accepted
func (n *Null) Frames() uint64 {
	return n.frames.Load()
}

type nullDevice struct {
	fixedDevice
	owner *Null
	open  bool
}

func (d *nullDevice) ApplySwParams(sw sink.SwParams) error {
	if _, err := d.installed(sw); err != nil {
		return err
	}
	d.open = true
	return nil
}

func (d *nullDevice) WriteInterleaved(samples []int16) (int, error) {
	if !d.open {
		return 0, errors.New("null device not configured")
	}
	frames := len(samples) / int(d.hw.Channels.Min)
	d.owner.frames.Add(uint64(frames))
	return frames, nil
}

func (d *nullDevice) Recover(err error, silent bool) error { return err }
func (d *nullDevice) Drain() error                         { return nil }

func (d *nullDevice) Close() error {
	d.open = false
	return nil
}
