// ABOUTME: Sample rate conversion wrapper for decoders
// ABOUTME: Presents any decoder at a fixed output rate using the linear resampler
package decode

import (
	"io"

	"github.com/Resonate-Protocol/alsasink/pkg/audio"
	"github.com/Resonate-Protocol/alsasink/pkg/audio/resample"
)

type resampledDecoder struct {
	src       Decoder
	resampler *resample.Resampler
	format    audio.Format
	input     []int16
}

// NewResampled converts dec's output to rate. A decoder already at rate is
// returned unchanged.
func NewResampled(dec Decoder, rate int) Decoder {
	in := dec.Format()
	if in.SampleRate == rate {
		return dec
	}

	out := in
	out.SampleRate = rate
	return &resampledDecoder{
		src:       dec,
		resampler: resample.New(in.SampleRate, rate, in.Channels),
		format:    out,
	}
}

func (d *resampledDecoder) Read(samples []int16) (int, error) {
	channels := d.format.Channels
	outFrames := len(samples) / channels
	if outFrames < 2 {
		return 0, ErrShortBuffer
	}

	inFrames := max(d.resampler.InputFramesFor(outFrames), 1)
	if cap(d.input) < inFrames*channels {
		d.input = make([]int16, inFrames*channels)
	}

	// Heavy downsampling of a small read can produce nothing; keep reading
	for {
		n, err := d.src.Read(d.input[:inFrames*channels])
		out := d.resampler.Resample(d.input[:n], samples[:outFrames*channels])
		if out > 0 {
			return out, nil
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.ErrNoProgress
		}
	}
}

func (d *resampledDecoder) Format() audio.Format {
	return d.format
}

func (d *resampledDecoder) Close() error {
	return d.src.Close()
}
