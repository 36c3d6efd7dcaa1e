//go:build linux

// ABOUTME: ALSA hardware output using the pure Go gen2brain/alsa bindings
// ABOUTME: Reads hw:CARD,DEV capabilities and streams S16_LE frames with xrun recovery
package output

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
	"github.com/gen2brain/alsa"
	"golang.org/x/sys/unix"
)

// ALSA opens hw:CARD,DEV devices through gen2brain/alsa and every other
// name (default, plughw, dmix, asound.conf devices) through libasound
type ALSA struct {
	devRoot  string
	procRoot string
	lib      bool
}

// NewALSA creates the ALSA audio subsystem
func NewALSA() sink.System {
	a := newALSA("/dev/snd", "/proc/asound")
	a.lib = haveLibasound
	return a
}

func newALSA(devRoot, procRoot string) *ALSA {
	return &ALSA{devRoot: devRoot, procRoot: procRoot}
}

// Open opens the named playback PCM
func (a *ALSA) Open(name string) (sink.Device, error) {
	card, device, err := parseHwName(name)
	switch {
	case err == nil:
		return openHw(name, card, device)
	case a.lib:
		return openLibPCM(name)
	case name == sink.DefaultDevice:
		card, device, err := a.resolve(name)
		if err != nil {
			return nil, err
		}
		log.Printf("Warning: built without libasound, %s is hw:%d,%d", name, card, device)
		return openHw(name, card, device)
	default:
		return nil, err
	}
}

// Hints lists the endpoints for one interface, from libasound when
// available and from the device nodes otherwise
func (a *ALSA) Hints(iface string) ([]sink.Descriptor, error) {
	if a.lib {
		return libHints(iface)
	}
	return a.nodeHints(iface)
}

// openHw reads the capabilities and opens the PCM with a provisional
// configuration inside them, so a busy device fails here. The final
// configuration is installed with the software parameters.
func openHw(name string, card, device uint) (sink.Device, error) {
	params, err := alsa.PcmParamsGet(card, device, alsa.PCM_OUT)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	caps, err := capabilities(params)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s capabilities: %w", name, err)
	}

	cfg := provisionalConfig(caps)
	pcm, err := alsa.PcmOpen(card, device, alsa.PCM_OUT|alsa.PCM_NORESTART, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	return &alsaDevice{
		name: name,
		caps: caps,
		pcm:  pcm,
	}, nil
}

// provisionalConfig picks values the device accepts, near the targets
func provisionalConfig(caps *sink.HwParams) alsa.Config {
	format := alsa.PCM_FORMAT_S16_LE
	if len(caps.Formats) > 0 && !slices.Contains(caps.Formats, sink.FormatS16LE) {
		format = alsaFormat(caps.Formats[0])
	}
	return alsa.Config{
		Channels:    caps.Channels.Clamp(sink.TargetChannels),
		Rate:        caps.Rate.Clamp(sink.TargetRate),
		PeriodSize:  caps.PeriodSize.Clamp(sink.TargetResamplePeriodSize),
		PeriodCount: caps.Periods.Clamp(4),
		Format:      format,
	}
}

// resolve maps a device name to card and device numbers.
// "default" is the first playback PCM node found.
func (a *ALSA) resolve(name string) (card, device uint, err error) {
	if name == sink.DefaultDevice {
		hints, err := a.nodeHints(sink.IfacePCM)
		if err != nil {
			return 0, 0, err
		}
		for _, h := range hints {
			if h.Direction == sink.DirectionPlayback {
				return parseHwName(h.Name)
			}
		}
		return 0, 0, errors.New("no playback device found")
	}
	return parseHwName(name)
}

// parseHwName accepts hw:CARD,DEV and hw:CARD
func parseHwName(name string) (card, device uint, err error) {
	rest, ok := strings.CutPrefix(name, "hw:")
	if !ok {
		return 0, 0, fmt.Errorf("device %q is not a hw:CARD,DEV device and needs libasound: %w", name, ErrUnsupported)
	}

	cardStr, devStr, hasDev := strings.Cut(rest, ",")
	c, err := strconv.ParseUint(cardStr, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid card number %q: %w", cardStr, err)
	}
	var d uint64
	if hasDev {
		d, err = strconv.ParseUint(devStr, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid device number %q: %w", devStr, err)
		}
	}
	return uint(c), uint(d), nil
}

var alsaFormats = []struct {
	format sink.Format
	pcm    alsa.PcmFormat
}{
	{sink.FormatS16LE, alsa.PCM_FORMAT_S16_LE},
	{sink.FormatS24LE, alsa.PCM_FORMAT_S24_LE},
	{sink.FormatS32LE, alsa.PCM_FORMAT_S32_LE},
	{sink.FormatFloatLE, alsa.PCM_FORMAT_FLOAT_LE},
}

func alsaFormat(f sink.Format) alsa.PcmFormat {
	for _, af := range alsaFormats {
		if af.format == f {
			return af.pcm
		}
	}
	return alsa.PCM_FORMAT_S16_LE
}

// Bit positions in the access mask
var alsaAccesses = []struct {
	access sink.Access
	bit    uint
}{
	{sink.AccessMMapInterleaved, 0},
	{sink.AccessMMapNonInterleaved, 1},
	{sink.AccessRWInterleaved, 3},
	{sink.AccessRWNonInterleaved, 4},
}

func capabilities(params *alsa.PcmParams) (*sink.HwParams, error) {
	hw := &sink.HwParams{}

	mask, err := params.Mask(alsa.PCM_PARAM_ACCESS)
	if err != nil {
		return nil, err
	}
	for _, a := range alsaAccesses {
		if mask.Test(a.bit) {
			hw.Accesses = append(hw.Accesses, a.access)
		}
	}
	for _, f := range alsaFormats {
		if params.FormatIsSupported(f.pcm) {
			hw.Formats = append(hw.Formats, f.format)
		}
	}

	for _, r := range []struct {
		param alsa.PcmParam
		dst   *sink.Interval
	}{
		{alsa.PCM_PARAM_RATE, &hw.Rate},
		{alsa.PCM_PARAM_CHANNELS, &hw.Channels},
		{alsa.PCM_PARAM_BUFFER_SIZE, &hw.BufferSize},
		{alsa.PCM_PARAM_PERIOD_SIZE, &hw.PeriodSize},
		{alsa.PCM_PARAM_PERIODS, &hw.Periods},
	} {
		lo, err := params.RangeMin(r.param)
		if err != nil {
			return nil, err
		}
		hi, err := params.RangeMax(r.param)
		if err != nil {
			return nil, err
		}
		*r.dst = sink.Interval{Min: uint32(lo), Max: uint32(hi)}
	}
	return hw, nil
}

type alsaDevice struct {
	name       string
	caps       *sink.HwParams
	hw         *sink.HwParams
	pcm        *alsa.PCM
	configured bool
}

func (d *alsaDevice) HwParamsAny() (*sink.HwParams, error) {
	return d.caps.Clone(), nil
}

func (d *alsaDevice) ApplyHwParams(hw *sink.HwParams) error {
	if d.configured {
		return errors.New("device already configured")
	}
	if err := hw.Finalized(); err != nil {
		return err
	}
	if hw.Formats[0] != sink.FormatS16LE {
		return fmt.Errorf("format %s: %w", hw.Formats[0], sink.ErrParamNotSupported)
	}
	if hw.Resample {
		log.Printf("Warning: %s is a hardware device without a rate converter, use plughw for resampling", d.name)
	}
	d.hw = hw.Clone()
	return nil
}

func (d *alsaDevice) HwParamsCurrent() (*sink.HwParams, error) {
	if d.hw == nil {
		return nil, errors.New("hardware parameters not installed")
	}
	return d.hw.Clone(), nil
}

func (d *alsaDevice) SwParamsCurrent() (sink.SwParams, error) {
	if d.hw == nil {
		return sink.SwParams{}, errors.New("hardware parameters not installed")
	}
	if !d.configured {
		return sink.DefaultSwParams(d.hw), nil
	}
	cfg := d.pcm.Config()
	return sink.SwParams{
		StartThreshold: cfg.StartThreshold,
		StopThreshold:  cfg.StopThreshold,
		AvailMin:       cfg.AvailMin,
	}, nil
}

// ApplySwParams installs the full configuration on the open PCM
func (d *alsaDevice) ApplySwParams(sw sink.SwParams) error {
	if d.hw == nil || d.pcm == nil {
		return errors.New("hardware parameters not installed")
	}

	cfg := alsa.Config{
		Channels:       d.hw.Channels.Min,
		Rate:           d.hw.Rate.Min,
		PeriodSize:     d.hw.PeriodSize.Min,
		PeriodCount:    d.hw.Periods.Min,
		Format:         alsa.PCM_FORMAT_S16_LE,
		StartThreshold: sw.StartThreshold,
		StopThreshold:  sw.StopThreshold,
		AvailMin:       sw.AvailMin,
	}
	if err := d.pcm.SetConfig(&cfg); err != nil {
		return err
	}
	d.configured = true

	// The driver may round the period layout
	d.hw.PeriodSize = sink.Single(d.pcm.PeriodSize())
	d.hw.Periods = sink.Single(d.pcm.PeriodCount())
	d.hw.BufferSize = sink.Single(d.pcm.BufferSize())
	return nil
}

// WriteInterleaved hands xruns back to the caller: the PCM is opened with
// PCM_NORESTART so the library does not prepare the stream on its own.
func (d *alsaDevice) WriteInterleaved(samples []int16) (int, error) {
	if !d.configured {
		return 0, errors.New("device not configured")
	}
	return d.pcm.Write(samples)
}

type recoverAction int

const (
	recoverFail recoverAction = iota
	recoverPrepare
	recoverResume
	recoverRetry
)

func classifyWriteError(err error) recoverAction {
	switch {
	case errors.Is(err, unix.EINTR):
		return recoverRetry
	case errors.Is(err, unix.EPIPE), errors.Is(err, unix.EBADFD):
		return recoverPrepare
	case errors.Is(err, unix.ESTRPIPE):
		return recoverResume
	default:
		return recoverFail
	}
}

func (d *alsaDevice) Recover(err error, silent bool) error {
	if !d.configured {
		return errors.New("device not configured")
	}

	switch classifyWriteError(err) {
	case recoverRetry:
		return nil
	case recoverPrepare:
		if !silent {
			log.Printf("%s: underrun occurred (xruns: %d)", d.name, d.pcm.Xruns())
		}
		return d.pcm.Prepare()
	case recoverResume:
		if !silent {
			log.Printf("%s: stream suspended, trying resume", d.name)
		}
		for {
			rerr := d.pcm.Resume()
			if !errors.Is(rerr, unix.EAGAIN) {
				if rerr != nil {
					return d.pcm.Prepare()
				}
				return nil
			}
			time.Sleep(time.Second)
		}
	default:
		return err
	}
}

func (d *alsaDevice) Drain() error {
	if !d.configured {
		return nil
	}
	return d.pcm.Drain()
}

func (d *alsaDevice) Close() error {
	if d.pcm == nil {
		return nil
	}
	err := d.pcm.Close()
	d.pcm = nil
	d.configured = false
	return err
}
