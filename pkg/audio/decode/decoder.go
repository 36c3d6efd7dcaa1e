// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders and file-extension dispatch
package decode

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/alsasink/pkg/audio"
)

// ErrShortBuffer is returned when the buffer cannot hold one frame
var ErrShortBuffer = errors.New("buffer smaller than one frame")

// Decoder decodes audio to interleaved int16 samples
type Decoder interface {
	// Read fills samples with whole frames and returns the number of
	// samples written. It returns io.EOF once the stream is exhausted.
	Read(samples []int16) (int, error)

	// Format describes the decoded stream
	Format() audio.Format

	// Close releases decoder resources
	Close() error
}

// Open picks a decoder by file extension. Unknown extensions are read as
// raw 44.1kHz stereo s16le. http(s) URLs are streamed the same way.
func Open(path string) (Decoder, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		f, err = fetch(path)
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var dec Decoder
	switch strings.ToLower(filepath.Ext(stripQuery(path))) {
	case ".mp3":
		dec, err = NewMP3(f)
	case ".flac":
		dec, err = NewFLAC(f)
	case ".opus", ".ogg":
		dec, err = NewOpus(f)
	default:
		dec, err = NewPCM(f, audio.Default())
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &fileDecoder{Decoder: dec, file: f}, nil
}

func fetch(url string) (io.ReadCloser, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}
	return resp.Body, nil
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

// fileDecoder closes the underlying file along with the decoder
type fileDecoder struct {
	Decoder
	file io.Closer
}

func (d *fileDecoder) Close() error {
	err := d.Decoder.Close()
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// readFrames reads whole s16le frames from r into dst
func readFrames(r io.Reader, scratch *[]byte, dst []int16, frameBytes int) (int, error) {
	want := len(dst) * audio.BytesPerSample
	want -= want % frameBytes
	if want == 0 {
		return 0, ErrShortBuffer
	}
	if cap(*scratch) < want {
		*scratch = make([]byte, want)
	}
	buf := (*scratch)[:want]

	n, err := io.ReadFull(r, buf)
	n -= n % frameBytes
	samples := audio.BytesToInt16(dst, buf[:n])

	switch {
	case err == nil:
		return samples, nil
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		if samples == 0 {
			return 0, io.EOF
		}
		return samples, nil
	default:
		return samples, err
	}
}
