// ABOUTME: Sink negotiation options
// ABOUTME: Explicit replacement for the resample and debug environment toggles
package sink

const (
	// Negotiation targets for CD-quality stereo with roughly 0.5s of buffering
	TargetRate               = 44100
	TargetChannels           = 2
	TargetBufferSize         = 22052
	TargetPeriodSize         = 5513
	TargetResamplePeriodSize = 1024
)

// Config controls how Start negotiates with the device.
// It is built once at the process boundary and passed to every Start.
type Config struct {
	// Resample enables rate conversion in the device and shrinks the
	// period size to TargetResamplePeriodSize frames.
	Resample bool

	// DebugDump logs the negotiated hardware and software parameters
	DebugDump bool
}
