// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and S16_LE sample conversion functions
// Package audio provides the PCM format types shared by the sink, its
// output backends and the decoders that feed it.
//
// The sink only accepts interleaved signed 16-bit stereo at 44100 Hz:
//
//	format := audio.Default()
//	frameSize := format.FrameBytes() // 4
//
//	samples := make([]int16, 1024)
//	n := audio.BytesToInt16(samples, data)
package audio
