// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams S16 frames through a pipe into a persistent oto player
package output

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/alsasink/pkg/audio"
	"github.com/Resonate-Protocol/alsasink/pkg/sink"
	"github.com/ebitengine/oto/v3"
)

// OtoDevice is the only device name the oto backend accepts besides "default"
const OtoDevice = "oto"

// Oto output implementation using oto library.
// oto only allows one context per process, so every Oto shares it.
type Oto struct{}

var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

// NewOto creates a new Oto output
func NewOto() sink.System {
	return &Oto{}
}

func otoCaps() *sink.HwParams {
	return &sink.HwParams{
		Accesses:   []sink.Access{sink.AccessRWInterleaved},
		Formats:    []sink.Format{sink.FormatS16LE},
		Rate:       sink.Single(audio.SampleRate),
		Channels:   sink.Interval{Min: 1, Max: 2},
		BufferSize: sink.Interval{Min: 512, Max: 1 << 16},
		PeriodSize: sink.Interval{Min: 256, Max: 1 << 14},
		Periods:    sink.Interval{Min: 2, Max: 64},
	}
}

func (o *Oto) Open(name string) (sink.Device, error) {
	if name != sink.DefaultDevice && name != OtoDevice {
		return nil, fmt.Errorf("oto has no device %q", name)
	}
	return &otoDevice{fixedDevice: fixedDevice{caps: otoCaps()}}, nil
}

func (o *Oto) Hints(iface string) ([]sink.Descriptor, error) {
	return libraryHints(iface, OtoDevice, "Oto\nPlatform default output")
}

// otoContext returns the process-wide context, creating it on first use
func otoContext(rate, channels int, buffer time.Duration) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if rate != otoRate || channels != otoChannels {
			return nil, fmt.Errorf("oto context is %dHz %dch, cannot reopen at %dHz %dch",
				otoRate, otoChannels, rate, channels)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   buffer,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoRate = rate
	otoChannels = channels
	return ctx, nil
}

type otoDevice struct {
	fixedDevice

	channels   int
	latency    time.Duration
	ctx        *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
}

func (d *otoDevice) ApplySwParams(sw sink.SwParams) error {
	if d.player != nil {
		return errors.New("oto player already running")
	}
	params, err := d.installed(sw)
	if err != nil {
		return err
	}

	d.latency = time.Duration(params.LatencyMs() * float64(time.Millisecond))
	ctx, err := otoContext(int(params.Rate), int(params.Channels), d.latency)
	if err != nil {
		return err
	}

	d.ctx = ctx
	d.channels = int(params.Channels)
	d.pipeReader, d.pipeWriter = io.Pipe()
	d.player = ctx.NewPlayer(d.pipeReader)
	d.player.SetBufferSize(int(params.BufferSize) * d.channels * audio.BytesPerSample)
	d.player.Play()
	return nil
}

// WriteInterleaved blocks until the player has taken the samples
func (d *otoDevice) WriteInterleaved(samples []int16) (int, error) {
	if d.pipeWriter == nil {
		return 0, errors.New("oto player not started")
	}
	if _, err := d.pipeWriter.Write(audio.Int16ToBytes(samples)); err != nil {
		return 0, fmt.Errorf("pipe write failed: %w", err)
	}
	return len(samples) / d.channels, nil
}

// Recover cannot do anything: the player never underruns, it plays silence
func (d *otoDevice) Recover(err error, silent bool) error {
	if d.player != nil {
		if perr := d.player.Err(); perr != nil {
			return perr
		}
	}
	return err
}

// Drain ends the stream and waits for the player to run dry
func (d *otoDevice) Drain() error {
	if d.player == nil {
		return nil
	}
	if d.pipeWriter != nil {
		d.pipeWriter.Close()
		d.pipeWriter = nil
	}

	deadline := time.Now().Add(d.latency + time.Second)
	for d.player.IsPlaying() && d.player.BufferedSize() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("oto player still has %d bytes buffered", d.player.BufferedSize())
		}
		time.Sleep(10 * time.Millisecond)
	}
	return d.player.Err()
}

func (d *otoDevice) Close() error {
	if d.pipeWriter != nil {
		d.pipeWriter.Close()
		d.pipeWriter = nil
	}
	var err error
	if d.player != nil {
		err = d.player.Close()
		d.player = nil
	}
	if d.pipeReader != nil {
		d.pipeReader.Close()
		d.pipeReader = nil
	}
	if d.ctx != nil {
		if serr := d.ctx.Suspend(); serr != nil {
			log.Printf("Warning: failed to suspend oto context: %v", serr)
		}
		d.ctx = nil
	}
	return err
}
