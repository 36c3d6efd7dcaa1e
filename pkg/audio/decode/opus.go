// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Ogg Opus files to 48kHz stereo via libopusfile
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/alsasink/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// Opus always decodes at 48kHz
const opusSampleRate = 48000

// OpusDecoder decodes Ogg Opus audio
type OpusDecoder struct {
	stream *opus.Stream
	format audio.Format
}

// NewOpus creates a new Opus decoder. Only stereo streams are supported.
func NewOpus(r io.Reader) (Decoder, error) {
	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		stream: stream,
		format: audio.Format{
			SampleRate: opusSampleRate,
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}

// Read returns at most one Opus packet worth of samples per call
func (d *OpusDecoder) Read(samples []int16) (int, error) {
	if len(samples) < d.format.Channels {
		return 0, ErrShortBuffer
	}
	limit := len(samples) - len(samples)%d.format.Channels

	// Stream.Read reports samples per channel
	n, err := d.stream.Read(samples[:limit])
	if err == io.EOF {
		return 0, io.EOF
	}
	if err != nil {
		return 0, fmt.Errorf("opus decode failed: %w", err)
	}
	return n * d.format.Channels, nil
}

func (d *OpusDecoder) Format() audio.Format {
	return d.format
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return d.stream.Close()
}
