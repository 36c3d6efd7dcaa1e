// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM stream format and int16 sample conversions
package audio

import "encoding/binary"

const (
	// CD-quality playback format accepted by the sink
	SampleRate = 44100
	Channels   = 2
	BitDepth   = 16

	// BytesPerSample is the size of one S16_LE sample
	BytesPerSample = 2
)

// Format describes a PCM stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Default returns the interleaved S16_LE stereo 44100 Hz format
func Default() Format {
	return Format{
		SampleRate: SampleRate,
		Channels:   Channels,
		BitDepth:   BitDepth,
	}
}

// FrameBytes returns the size of one frame (one sample per channel) in bytes
func (f Format) FrameBytes() int {
	return f.Channels * f.BitDepth / 8
}

// Frames returns the number of whole frames in an interleaved sample slice
func (f Format) Frames(samples int) int {
	if f.Channels == 0 {
		return 0
	}
	return samples / f.Channels
}

// BytesToInt16 decodes little-endian bytes into samples.
// It returns the number of samples written, limited by both slice lengths.
func BytesToInt16(dst []int16, src []byte) int {
	n := len(src) / BytesPerSample
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2:]))
	}
	return n
}

// Int16ToBytes encodes samples as little-endian bytes
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
