// ABOUTME: Playback sink package for interleaved S16 stereo PCM
// ABOUTME: Negotiates device parameters and drives the start/write/stop lifecycle
// Package sink delivers a stream of interleaved signed 16-bit stereo samples
// to an audio subsystem.
//
// A Sink is bound to one device identifier. Start opens the device and
// negotiates hardware parameters (44100 Hz, 2 channels, ~0.5s buffer, ~1/4
// buffer period) and software parameters (start threshold one period below a
// full buffer). Write blocks until the device accepts the frames and recovers
// in place from underruns. Stop drains the buffer and releases the device.
//
// The audio subsystem itself is reached through the System and Device
// interfaces; see package output for the ALSA and oto backends.
//
// Example:
//
//	s, err := sink.New(output.NewALSA(), "hw:0,0")
//	if err != nil {
//		return err
//	}
//	if err := s.Start(sink.Config{}); err != nil {
//		return err
//	}
//	defer s.Stop()
//	err = s.Write(frames)
//
// A Sink is not safe for concurrent use; a single goroutine must own it.
package sink
