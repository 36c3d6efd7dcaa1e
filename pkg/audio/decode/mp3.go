// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 to 16-bit stereo via go-mp3
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/alsasink/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio. go-mp3 always produces 16-bit stereo.
type MP3Decoder struct {
	decoder *mp3.Decoder
	format  audio.Format
	scratch []byte
}

// NewMP3 creates a new MP3 decoder
func NewMP3(r io.Reader) (Decoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Decoder{
		decoder: decoder,
		format: audio.Format{
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}

func (d *MP3Decoder) Read(samples []int16) (int, error) {
	n, err := readFrames(d.decoder, &d.scratch, samples, d.format.FrameBytes())
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("mp3 decode error: %w", err)
	}
	return n, err
}

func (d *MP3Decoder) Format() audio.Format {
	return d.format
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
