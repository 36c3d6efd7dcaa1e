// ABOUTME: PCM audio decoder
// ABOUTME: Reads raw 16-bit little-endian interleaved PCM
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/alsasink/pkg/audio"
)

// PCMDecoder reads raw s16le PCM
type PCMDecoder struct {
	r       io.Reader
	format  audio.Format
	scratch []byte
}

// NewPCM creates a new PCM decoder
func NewPCM(r io.Reader, format audio.Format) (Decoder, error) {
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}
	if format.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", format.Channels)
	}
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", format.SampleRate)
	}

	return &PCMDecoder{
		r:      r,
		format: format,
	}, nil
}

func (d *PCMDecoder) Read(samples []int16) (int, error) {
	return readFrames(d.r, &d.scratch, samples, d.format.FrameBytes())
}

func (d *PCMDecoder) Format() audio.Format {
	return d.format
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
