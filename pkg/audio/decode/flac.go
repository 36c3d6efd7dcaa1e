// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames to 16-bit interleaved samples via mewkiz/flac
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/alsasink/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct {
	stream  *flac.Stream
	format  audio.Format
	shift   uint
	pending []int16
	eof     bool
}

// NewFLAC creates a new FLAC decoder. Samples deeper than 16 bits are truncated.
func NewFLAC(r io.Reader) (Decoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}

	bits := int(stream.Info.BitsPerSample)
	if bits < 8 || bits > 32 {
		stream.Close()
		return nil, fmt.Errorf("unsupported bit depth: %d", bits)
	}

	var shift uint
	if bits > 16 {
		shift = uint(bits - 16)
	}
	return &FLACDecoder{
		stream: stream,
		format: audio.Format{
			SampleRate: int(stream.Info.SampleRate),
			Channels:   int(stream.Info.NChannels),
			BitDepth:   16,
		},
		shift: shift,
	}, nil
}

func (d *FLACDecoder) Read(samples []int16) (int, error) {
	frameSamples := d.format.Channels
	limit := len(samples) - len(samples)%frameSamples
	if limit == 0 {
		return 0, ErrShortBuffer
	}

	n := 0
	for n < limit {
		if len(d.pending) == 0 {
			if d.eof {
				break
			}
			if err := d.next(); err != nil {
				return n, err
			}
			continue
		}
		c := copy(samples[n:limit], d.pending)
		d.pending = d.pending[c:]
		n += c
	}

	if n == 0 && d.eof {
		return 0, io.EOF
	}
	return n, nil
}

// next decodes one FLAC frame into pending
func (d *FLACDecoder) next() error {
	frame, err := d.stream.ParseNext()
	if errors.Is(err, io.EOF) {
		d.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("flac decode error: %w", err)
	}

	channels := len(frame.Subframes)
	if channels != d.format.Channels {
		return fmt.Errorf("flac frame has %d channels, stream has %d", channels, d.format.Channels)
	}
	bits := int(d.stream.Info.BitsPerSample)

	blockSize := len(frame.Subframes[0].Samples)
	out := make([]int16, 0, blockSize*channels)
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			s := frame.Subframes[ch].Samples[i]
			if bits < 16 {
				s <<= uint(16 - bits)
			} else {
				s >>= d.shift
			}
			out = append(out, int16(s))
		}
	}
	d.pending = out
	return nil
}

func (d *FLACDecoder) Format() audio.Format {
	return d.format
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
