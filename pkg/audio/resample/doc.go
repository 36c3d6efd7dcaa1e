// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts interleaved S16 audio between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling, and carries the last frame
// of each chunk into the next so chunk boundaries do not click.
//
// Example:
//
//	r := resample.New(48000, 44100, 2)
//	out := make([]int16, r.OutputCapacity(len(in)))
//	n := r.Resample(in, out)
package resample
