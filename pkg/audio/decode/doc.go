// ABOUTME: Audio decoder package feeding the playback sink
// ABOUTME: Provides Decoder interface and file, stream and tone sources
// Package decode turns audio files into interleaved S16 samples.
//
// Supports: raw s16le PCM, MP3, FLAC, Ogg Opus, http(s) streams and a
// generated test tone. NewResampled adapts any of them to the device rate.
//
// Every decoder returns whole frames only, so its output can be handed
// straight to sink.Sink.Write.
//
// Example:
//
//	dec, err := decode.Open("track.mp3")
//	n, err := dec.Read(buf)
package decode
