// ABOUTME: Audio subsystem boundary used by the sink
// ABOUTME: Defines System and Device interfaces implemented by output backends
package sink

// Direction is the stream direction annotated on a device hint
type Direction int

const (
	// DirectionNone marks hints the direction does not apply to
	DirectionNone Direction = iota
	DirectionPlayback
	DirectionCapture
)

func (d Direction) String() string {
	switch d {
	case DirectionPlayback:
		return "playback"
	case DirectionCapture:
		return "capture"
	default:
		return "none"
	}
}

// Hint interfaces queried during enumeration, in listing order
const (
	IfacePCM   = "pcm"
	IfaceCtl   = "ctl"
	IfaceHwdep = "hwdep"
)

// HintInterfaces lists every interface ListOutputs queries
var HintInterfaces = []string{IfacePCM, IfaceCtl, IfaceHwdep}

// System is an audio subsystem able to open playback devices by name
type System interface {
	// Open opens the named device for blocking playback
	Open(name string) (Device, error)

	// Hints returns the endpoints known for one hint interface
	Hints(iface string) ([]Descriptor, error)
}

// Device is an opened playback device.
//
// Parameter negotiation happens in two steps: the hardware set is narrowed
// from HwParamsAny and applied with ApplyHwParams, then the current software
// set is adjusted and applied with ApplySwParams.
type Device interface {
	// HwParamsAny returns the full hardware configuration space
	HwParamsAny() (*HwParams, error)

	// ApplyHwParams installs a finalized hardware parameter set
	ApplyHwParams(hw *HwParams) error

	// HwParamsCurrent returns the installed hardware parameters
	HwParamsCurrent() (*HwParams, error)

	// SwParamsCurrent returns the software parameters for the installed hardware set
	SwParamsCurrent() (SwParams, error)

	// ApplySwParams installs software parameters
	ApplySwParams(sw SwParams) error

	// WriteInterleaved blocks until the device buffer accepts the samples.
	// It returns the number of frames written.
	WriteInterleaved(samples []int16) (int, error)

	// Recover attempts to bring the stream back after a write error.
	// When silent is false the backend reports the underrun.
	Recover(err error, silent bool) error

	// Drain blocks until all buffered frames have been played
	Drain() error

	// Close releases the device
	Close() error
}
