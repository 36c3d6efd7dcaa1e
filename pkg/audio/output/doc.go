// ABOUTME: Audio output backends for the playback sink
// ABOUTME: Provides ALSA, oto, malgo, PortAudio and null implementations of sink.System
// Package output provides the audio subsystems a sink.Sink can drive.
//
// The ALSA backend talks to /dev/snd hardware devices directly (linux only).
// The oto and malgo backends go through a portable audio library and expose a
// fixed configuration space. PortAudio support requires the portaudio build tag.
// The null backend discards samples.
//
// Example:
//
//	sys, err := output.New("alsa")
//	s, err := sink.New(sys, "hw:0,0")
//	err = s.Start(sink.Config{})
package output
