// ABOUTME: Test tone generator
// ABOUTME: Produces a stereo sine wave for checking an output without a file
package decode

import (
	"io"
	"math"
	"time"

	"github.com/Resonate-Protocol/alsasink/pkg/audio"
)

// ToneDecoder generates a sine tone at the default format
type ToneDecoder struct {
	frequency   float64
	sampleIndex uint64
	total       uint64 // frames; zero plays forever
}

// NewTone creates a tone at frequency Hz lasting duration (zero: endless)
func NewTone(frequency float64, duration time.Duration) Decoder {
	duration = max(duration, 0)
	return &ToneDecoder{
		frequency: frequency,
		total:     uint64(duration * audio.SampleRate / time.Second),
	}
}

func (s *ToneDecoder) Read(samples []int16) (int, error) {
	frames := len(samples) / audio.Channels
	if frames == 0 {
		return 0, ErrShortBuffer
	}
	if s.total > 0 {
		left := s.total - s.sampleIndex
		if left == 0 {
			return 0, io.EOF
		}
		if uint64(frames) > left {
			frames = int(left)
		}
	}

	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(audio.SampleRate)
		sample := math.Sin(2 * math.Pi * s.frequency * t)

		pcmValue := int16(sample * 32767.0 * 0.5) // 50% volume

		samples[i*2] = pcmValue
		samples[i*2+1] = pcmValue
	}
	s.sampleIndex += uint64(frames)

	return frames * audio.Channels, nil
}

func (s *ToneDecoder) Format() audio.Format { return audio.Default() }
func (s *ToneDecoder) Close() error         { return nil }
