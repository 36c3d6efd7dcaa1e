// ABOUTME: Audio output backend selection
// ABOUTME: Maps backend names to sink.System implementations
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

// Backend names accepted by New
const (
	BackendALSA      = "alsa"
	BackendOto       = "oto"
	BackendMalgo     = "malgo"
	BackendPortAudio = "portaudio"
	BackendNull      = "null"
)

// ErrUnsupported is returned by backends that are not available on this platform or build
var ErrUnsupported = errors.New("audio backend not supported on this platform")

// Backends lists every backend name in order of preference
var Backends = []string{BackendALSA, BackendOto, BackendMalgo, BackendPortAudio, BackendNull}

// New returns the audio subsystem for a backend name
func New(backend string) (sink.System, error) {
	switch backend {
	case BackendALSA, "":
		return NewALSA(), nil
	case BackendOto:
		return NewOto(), nil
	case BackendMalgo:
		return NewMalgo(), nil
	case BackendPortAudio:
		return NewPortAudio(), nil
	case BackendNull:
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (available: %s)", backend, strings.Join(Backends, ", "))
	}
}

// fixedDevice is shared by the library backends: the library picks its own
// hardware configuration, so the space offered to the sink is fixed and the
// installed parameters are only bookkeeping.
type fixedDevice struct {
	caps *sink.HwParams
	hw   *sink.HwParams
	sw   *sink.SwParams
}

func (d *fixedDevice) HwParamsAny() (*sink.HwParams, error) {
	return d.caps.Clone(), nil
}

func (d *fixedDevice) ApplyHwParams(hw *sink.HwParams) error {
	if err := hw.Finalized(); err != nil {
		return err
	}
	if hw.Formats[0] != sink.FormatS16LE {
		return fmt.Errorf("format %s: %w", hw.Formats[0], sink.ErrParamNotSupported)
	}
	d.hw = hw.Clone()
	return nil
}

func (d *fixedDevice) HwParamsCurrent() (*sink.HwParams, error) {
	if d.hw == nil {
		return nil, errors.New("hardware parameters not installed")
	}
	return d.hw.Clone(), nil
}

func (d *fixedDevice) SwParamsCurrent() (sink.SwParams, error) {
	if d.hw == nil {
		return sink.SwParams{}, errors.New("hardware parameters not installed")
	}
	if d.sw != nil {
		return *d.sw, nil
	}
	return sink.DefaultSwParams(d.hw), nil
}

// installed returns the negotiated values once both parameter sets are known
func (d *fixedDevice) installed(sw sink.SwParams) (sink.Negotiated, error) {
	if d.hw == nil {
		return sink.Negotiated{}, errors.New("hardware parameters not installed")
	}
	if sw.StartThreshold > d.hw.BufferSize.Min {
		return sink.Negotiated{}, fmt.Errorf("start threshold %d exceeds buffer %d: %w",
			sw.StartThreshold, d.hw.BufferSize.Min, sink.ErrParamNotSupported)
	}
	d.sw = &sw
	return sink.Negotiated{
		Access:         d.hw.Accesses[0],
		Format:         d.hw.Formats[0],
		Rate:           d.hw.Rate.Min,
		Channels:       d.hw.Channels.Min,
		BufferSize:     d.hw.BufferSize.Min,
		PeriodSize:     d.hw.PeriodSize.Min,
		Periods:        d.hw.Periods.Min,
		StartThreshold: sw.StartThreshold,
		Resample:       d.hw.Resample,
	}, nil
}

// libraryHints reports a single playback endpoint on the pcm interface
func libraryHints(iface, name, description string) ([]sink.Descriptor, error) {
	switch iface {
	case sink.IfacePCM:
		return []sink.Descriptor{{
			Interface:   iface,
			Name:        name,
			Description: description,
			Direction:   sink.DirectionPlayback,
		}}, nil
	case sink.IfaceCtl, sink.IfaceHwdep:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown hint interface: %s", iface)
	}
}
