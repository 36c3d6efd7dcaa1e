// ABOUTME: Playback orchestration
// ABOUTME: Pumps a decoder through the sink and reports progress to the UI
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/Resonate-Protocol/alsasink/internal/ui"
	"github.com/Resonate-Protocol/alsasink/pkg/audio"
	"github.com/Resonate-Protocol/alsasink/pkg/audio/decode"
	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

// Input selectors understood by OpenSource
const (
	SourceStdin = "-"
	SourceTone  = ""
)

const statusInterval = 500 * time.Millisecond

// Config holds player configuration
type Config struct {
	Sink    sink.Config
	Backend string
	Source  string

	// ToneFrequency and ToneDuration apply when Source is SourceTone
	ToneFrequency float64
	ToneDuration  time.Duration
}

// Player plays one source through a sink
type Player struct {
	config  Config
	sink    *sink.Sink
	decoder decode.Decoder
	status  func(ui.StatusMsg)
	state   string
}

// New creates a new player. The player owns dec and closes it when Run returns.
func New(config Config, s *sink.Sink, dec decode.Decoder) *Player {
	return &Player{
		config:  config,
		sink:    s,
		decoder: dec,
		status:  func(ui.StatusMsg) {},
		state:   ui.StateIdle,
	}
}

// OnStatus registers a callback for progress updates
func (p *Player) OnStatus(fn func(ui.StatusMsg)) {
	if fn != nil {
		p.status = fn
	}
}

// State returns the last reported playback state
func (p *Player) State() string {
	return p.state
}

// OpenSource opens a decoder for a source selector: "-" reads raw PCM from
// stdin, an empty selector generates a test tone, anything else is a path or URL.
func OpenSource(config Config) (decode.Decoder, error) {
	switch config.Source {
	case SourceStdin:
		return decode.NewPCM(os.Stdin, audio.Default())
	case SourceTone:
		freq := config.ToneFrequency
		if freq <= 0 {
			freq = 440
		}
		return decode.NewTone(freq, config.ToneDuration), nil
	default:
		return decode.Open(config.Source)
	}
}

// Run plays until the source ends, a fatal sink error occurs or ctx is
// cancelled. The sink is stopped before Run returns.
func (p *Player) Run(ctx context.Context) error {
	defer func() {
		if err := p.decoder.Close(); err != nil {
			log.Printf("Warning: closing source: %v", err)
		}
	}()

	src := p.decoder.Format()
	p.status(ui.StatusMsg{
		Device:     p.sink.Device(),
		Backend:    p.config.Backend,
		File:       p.sourceName(),
		SourceRate: src.SampleRate,
	})
	if src.Channels != sink.TargetChannels {
		return p.fail(fmt.Errorf("source has %d channels, sink plays %d", src.Channels, sink.TargetChannels))
	}

	if err := p.sink.Start(p.config.Sink); err != nil {
		return p.fail(err)
	}
	params, _ := p.sink.Negotiated()
	p.setState(ui.StatePlaying)
	p.status(ui.StatusMsg{
		Session: p.sink.Session().String(),
		Params:  &params,
	})

	dec := p.decoder
	if src.SampleRate != int(params.Rate) {
		log.Printf("Warning: source is %dHz, resampling to %dHz", src.SampleRate, params.Rate)
		dec = decode.NewResampled(dec, int(params.Rate))
	}

	playErr := p.pump(ctx, dec, int(params.PeriodSize)*int(params.Channels))

	stopErr := p.sink.Stop()
	stats := p.sink.Stats()
	p.status(ui.StatusMsg{Stats: &stats})
	log.Printf("Playback ended: %d frames in %d writes, %d underruns", stats.Frames, stats.Writes, stats.Underruns)

	switch {
	case playErr != nil:
		return p.fail(playErr)
	case stopErr != nil:
		return p.fail(stopErr)
	}
	return nil
}

func (p *Player) pump(ctx context.Context, dec decode.Decoder, chunk int) error {
	buf := make([]int16, chunk)
	lastStatus := time.Now()

	for {
		select {
		case <-ctx.Done():
			p.setState(ui.StateStopped)
			return nil
		default:
		}

		n, err := dec.Read(buf)
		if n > 0 {
			if werr := p.sink.Write(buf[:n]); werr != nil {
				if sink.IsFatal(werr) || errors.Is(werr, sink.ErrNotOpen) {
					return werr
				}
				log.Printf("Warning: dropped %d samples: %v", n, werr)
			}
		}
		if errors.Is(err, io.EOF) {
			p.setState(ui.StateFinished)
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode error: %w", err)
		}

		if time.Since(lastStatus) >= statusInterval {
			stats := p.sink.Stats()
			p.status(ui.StatusMsg{Stats: &stats})
			lastStatus = time.Now()
		}
	}
}

func (p *Player) fail(err error) error {
	p.state = ui.StateError
	p.status(ui.StatusMsg{State: ui.StateError, Err: err})
	return err
}

func (p *Player) setState(state string) {
	p.state = state
	p.status(ui.StatusMsg{State: state})
}

func (p *Player) sourceName() string {
	switch p.config.Source {
	case SourceStdin:
		return "stdin"
	case SourceTone:
		return "test tone"
	default:
		return p.config.Source
	}
}
