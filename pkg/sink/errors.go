// ABOUTME: Sink error types
// ABOUTME: Separates recoverable conditions from failures that end a call
package sink

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned by Write when the sink has not been started
	ErrNotOpen = errors.New("sink not open")

	// ErrListRequested is returned by New and Resolve for the "?" selector.
	// The caller is expected to list outputs and exit.
	ErrListRequested = errors.New("output listing requested")

	// ErrPartialFrame is returned by Write when the sample count is not a whole number of frames
	ErrPartialFrame = errors.New("sample count is not a whole number of frames")
)

// Stages of Start that can fail
const (
	StageOpen      = "open"
	StageHwParams  = "hw_params"
	StageSwParams  = "sw_params"
	StageDebugDump = "debug_dump"
)

// OpenError reports a failed Start. The sink stays closed.
type OpenError struct {
	Device string
	Stage  string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("PCM open failed for %s (%s): %v", e.Device, e.Stage, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// WriteError reports a write failure that could not be recovered
type WriteError struct {
	Device     string
	Err        error
	RecoverErr error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to %s failed: %v (recovery: %v)", e.Device, e.Err, e.RecoverErr)
}

func (e *WriteError) Unwrap() []error { return []error{e.Err, e.RecoverErr} }

// DrainError reports a failed drain during Stop. The sink is closed regardless.
type DrainError struct {
	Device string
	Err    error
}

func (e *DrainError) Error() string {
	return fmt.Sprintf("drain of %s failed: %v", e.Device, e.Err)
}

func (e *DrainError) Unwrap() error { return e.Err }

// IsFatal reports whether err ends playback on the sink.
// Misuse errors (ErrNotOpen, ErrPartialFrame) are not fatal to the device.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		openErr  *OpenError
		writeErr *WriteError
		drainErr *DrainError
	)
	return errors.As(err, &openErr) || errors.As(err, &writeErr) || errors.As(err, &drainErr)
}
