//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform blocking stream output using PortAudio
package output

import (
	"errors"
	"fmt"
	"log"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() sink.System {
	return &PortAudio{}
}

func portAudioCaps(dev *portaudio.DeviceInfo) *sink.HwParams {
	maxCh := uint32(dev.MaxOutputChannels)
	if maxCh == 0 {
		maxCh = 2
	}
	return &sink.HwParams{
		Accesses:   []sink.Access{sink.AccessRWInterleaved},
		Formats:    []sink.Format{sink.FormatS16LE},
		Rate:       sink.Interval{Min: 8000, Max: 192000},
		Channels:   sink.Interval{Min: 1, Max: maxCh},
		BufferSize: sink.Interval{Min: 256, Max: 1 << 17},
		PeriodSize: sink.Interval{Min: 64, Max: 1 << 14},
		Periods:    sink.Interval{Min: 2, Max: 32},
	}
}

// Open initializes PortAudio and finds the output device by name
func (p *PortAudio) Open(name string) (sink.Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	dev, err := findPortAudioDevice(name)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return &portAudioDevice{
		fixedDevice: fixedDevice{caps: portAudioCaps(dev)},
		info:        dev,
	}, nil
}

func findPortAudioDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == sink.DefaultDevice {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default output device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == name && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no output device named %q", name)
}

func (p *PortAudio) Hints(iface string) ([]sink.Descriptor, error) {
	if iface != sink.IfacePCM {
		return libraryHints(iface, "", "")
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var hints []sink.Descriptor
	for _, d := range devices {
		if d.MaxOutputChannels == 0 {
			continue
		}
		hints = append(hints, sink.Descriptor{
			Interface:   iface,
			Name:        d.Name,
			Description: fmt.Sprintf("%s\n%d channels, %.0fHz default", d.HostApi.Name, d.MaxOutputChannels, d.DefaultSampleRate),
			Direction:   sink.DirectionPlayback,
		})
	}
	return hints, nil
}

type portAudioDevice struct {
	fixedDevice

	info    *portaudio.DeviceInfo
	stream  *portaudio.Stream
	buffer  []int16
	pending int
}

func (d *portAudioDevice) ApplySwParams(sw sink.SwParams) error {
	if d.stream != nil {
		return errors.New("portaudio stream already open")
	}
	params, err := d.installed(sw)
	if err != nil {
		return err
	}

	sp := portaudio.HighLatencyParameters(nil, d.info)
	sp.Output.Channels = int(params.Channels)
	sp.SampleRate = float64(params.Rate)
	sp.FramesPerBuffer = int(params.PeriodSize)

	d.buffer = make([]int16, int(params.PeriodSize)*int(params.Channels))
	stream, err := portaudio.OpenStream(sp, d.buffer)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}
	d.stream = stream
	return nil
}

// WriteInterleaved fills period-sized blocks and writes each one as it
// completes. A partial block waits for the next call.
func (d *portAudioDevice) WriteInterleaved(samples []int16) (int, error) {
	if d.stream == nil {
		return 0, errors.New("portaudio stream not open")
	}
	channels := d.hw.Channels.Min

	done := 0
	for done < len(samples) {
		n := copy(d.buffer[d.pending:], samples[done:])
		d.pending += n
		done += n
		if d.pending < len(d.buffer) {
			break
		}
		d.pending = 0
		if err := d.stream.Write(); err != nil {
			return done / int(channels), err
		}
	}
	return done / int(channels), nil
}

// Recover treats an output underflow as already handled by PortAudio
func (d *portAudioDevice) Recover(err error, silent bool) error {
	if errors.Is(err, portaudio.OutputUnderflowed) {
		if !silent {
			log.Printf("%s: output underflowed", d.info.Name)
		}
		return nil
	}
	return err
}

// Drain flushes the partial block padded with silence and stops the stream,
// which returns once queued buffers have played.
func (d *portAudioDevice) Drain() error {
	if d.stream == nil {
		return nil
	}
	if d.pending > 0 {
		clear(d.buffer[d.pending:])
		d.pending = 0
		if err := d.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return err
		}
	}
	return d.stream.Stop()
}

func (d *portAudioDevice) Close() error {
	var err error
	if d.stream != nil {
		err = d.stream.Close()
		d.stream = nil
	}
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
