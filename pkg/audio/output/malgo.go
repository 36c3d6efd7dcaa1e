// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Feeds miniaudio's playback callback from a blocking ring buffer
package output

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
}

// NewMalgo creates a new Malgo output
func NewMalgo() sink.System {
	return &Malgo{}
}

func (m *Malgo) context() (*malgo.AllocatedContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}
	return m.malgoCtx, nil
}

func malgoCaps() *sink.HwParams {
	return &sink.HwParams{
		Accesses:   []sink.Access{sink.AccessRWInterleaved},
		Formats:    []sink.Format{sink.FormatS16LE},
		Rate:       sink.Interval{Min: 8000, Max: 384000},
		Channels:   sink.Interval{Min: 1, Max: 8},
		BufferSize: sink.Interval{Min: 128, Max: 1 << 18},
		PeriodSize: sink.Interval{Min: 64, Max: 1 << 15},
		Periods:    sink.Interval{Min: 2, Max: 16},
	}
}

// Open looks the device up by name. "default" leaves the choice to miniaudio.
func (m *Malgo) Open(name string) (sink.Device, error) {
	ctx, err := m.context()
	if err != nil {
		return nil, err
	}

	d := &malgoDevice{
		fixedDevice: fixedDevice{caps: malgoCaps()},
		ctx:         ctx,
		name:        name,
	}
	if name == sink.DefaultDevice {
		return d, nil
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to list playback devices: %w", err)
	}
	for _, info := range infos {
		if info.Name() == name {
			d.id = info.ID
			d.hasID = true
			return d, nil
		}
	}
	return nil, fmt.Errorf("no playback device named %q", name)
}

func (m *Malgo) Hints(iface string) ([]sink.Descriptor, error) {
	if iface != sink.IfacePCM {
		return libraryHints(iface, "", "")
	}

	ctx, err := m.context()
	if err != nil {
		return nil, err
	}
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to list playback devices: %w", err)
	}

	hints, _ := libraryHints(iface, sink.DefaultDevice, "Default playback device\nChosen by miniaudio")
	for _, info := range infos {
		desc := "miniaudio playback device"
		if info.IsDefault != 0 {
			desc += " (default)"
		}
		hints = append(hints, sink.Descriptor{
			Interface:   iface,
			Name:        info.Name(),
			Description: desc,
			Direction:   sink.DirectionPlayback,
		})
	}
	return hints, nil
}

// Close releases the miniaudio context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		return nil
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
	return nil
}

type malgoDevice struct {
	fixedDevice

	ctx   *malgo.AllocatedContext
	name  string
	id    malgo.DeviceID
	hasID bool

	device    *malgo.Device
	ring      *RingBuffer
	channels  int
	threshold int
	period    time.Duration
	latency   time.Duration
	started   bool
}

func (d *malgoDevice) ApplySwParams(sw sink.SwParams) error {
	if d.device != nil {
		return errors.New("malgo device already initialized")
	}
	params, err := d.installed(sw)
	if err != nil {
		return err
	}

	d.channels = int(params.Channels)
	d.threshold = int(params.StartThreshold) * d.channels
	d.period = time.Duration(params.PeriodSize) * time.Second / time.Duration(params.Rate)
	d.latency = time.Duration(params.BufferSize) * time.Second / time.Duration(params.Rate)
	d.ring = NewRingBuffer(int(params.BufferSize) * d.channels)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = params.Channels
	deviceConfig.SampleRate = params.Rate
	deviceConfig.PeriodSizeInFrames = params.PeriodSize
	deviceConfig.Periods = params.Periods
	deviceConfig.Alsa.NoMMap = 1
	if d.hasID {
		deviceConfig.Playback.DeviceID = d.id.Pointer()
	}

	// scratch only grows when miniaudio asks for more than two periods
	ring := d.ring
	scratch := make([]int16, int(params.PeriodSize)*d.channels*2)
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			out := pOutput[:int(frameCount)*d.channels*2]
			if cap(scratch) < len(out)/2 {
				scratch = make([]int16, len(out)/2)
			}
			ring.ReadBytes(out, scratch)
		},
	}

	device, err := malgo.InitDevice(d.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	d.device = device
	return nil
}

// WriteInterleaved queues samples, starting the device once the start
// threshold is buffered. It blocks while the ring is full.
func (d *malgoDevice) WriteInterleaved(samples []int16) (int, error) {
	if d.device == nil {
		return 0, errors.New("malgo device not initialized")
	}

	written := 0
	if !d.started {
		written = d.ring.TryWrite(samples)
		if d.ring.Available() >= d.threshold || written < len(samples) {
			if err := d.start(); err != nil {
				return written / d.channels, err
			}
		}
	}
	if written < len(samples) {
		written += d.ring.Write(samples[written:])
	}
	if written < len(samples) {
		return written / d.channels, errors.New("ring buffer closed")
	}
	return written / d.channels, nil
}

func (d *malgoDevice) start() error {
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	d.started = true
	return nil
}

// Recover restarts a device that miniaudio stopped
func (d *malgoDevice) Recover(err error, silent bool) error {
	if d.device == nil {
		return err
	}
	if d.started && !d.device.IsStarted() {
		if !silent {
			log.Printf("%s: device stopped, restarting", d.name)
		}
		return d.start()
	}
	return err
}

// Drain waits for the ring to empty plus one period for the device to play it
func (d *malgoDevice) Drain() error {
	if d.device == nil {
		return nil
	}
	if !d.started && d.ring.Available() > 0 {
		if err := d.start(); err != nil {
			return err
		}
	}
	if !d.ring.WaitEmpty(d.latency + time.Second) {
		return fmt.Errorf("%d samples still queued", d.ring.Available())
	}
	time.Sleep(d.period)
	return nil
}

func (d *malgoDevice) Close() error {
	if d.ring != nil {
		d.ring.Close()
	}
	if d.device != nil {
		if d.started {
			if err := d.device.Stop(); err != nil {
				log.Printf("Warning: device stop error: %v", err)
			}
		}
		d.device.Uninit()
		d.device = nil
	}
	if d.ring != nil && d.ring.Underruns() > 0 {
		log.Printf("%s: %d callback underruns", d.name, d.ring.Underruns())
	}
	d.started = false
	return nil
}
