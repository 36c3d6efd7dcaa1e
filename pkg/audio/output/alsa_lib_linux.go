//go:build linux && cgo

// ABOUTME: ALSA output through libasound for named and plugin PCMs
// ABOUTME: Opens default, plughw, dmix and asound.conf devices with device resampling
package output

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/Resonate-Protocol/alsasink/pkg/sink"
	"golang.org/x/sys/unix"
)

const haveLibasound = true

func alsaLibError(op string, rc C.int) error {
	return fmt.Errorf("%s: %s: %w", op, C.GoString(C.snd_strerror(rc)), unix.Errno(-rc))
}

var libAccesses = []struct {
	access sink.Access
	pcm    C.snd_pcm_access_t
}{
	{sink.AccessMMapInterleaved, C.SND_PCM_ACCESS_MMAP_INTERLEAVED},
	{sink.AccessMMapNonInterleaved, C.SND_PCM_ACCESS_MMAP_NONINTERLEAVED},
	{sink.AccessRWInterleaved, C.SND_PCM_ACCESS_RW_INTERLEAVED},
	{sink.AccessRWNonInterleaved, C.SND_PCM_ACCESS_RW_NONINTERLEAVED},
}

var libFormats = []struct {
	format sink.Format
	pcm    C.snd_pcm_format_t
}{
	{sink.FormatS16LE, C.SND_PCM_FORMAT_S16_LE},
	{sink.FormatS24LE, C.SND_PCM_FORMAT_S24_LE},
	{sink.FormatS32LE, C.SND_PCM_FORMAT_S32_LE},
	{sink.FormatFloatLE, C.SND_PCM_FORMAT_FLOAT_LE},
}

func clampFrames(v C.snd_pcm_uframes_t) uint32 {
	if uint64(v) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// openLibPCM opens any ALSA PCM name for blocking playback
func openLibPCM(name string) (sink.Device, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var pcm *C.snd_pcm_t
	if rc := C.snd_pcm_open(&pcm, cname, C.SND_PCM_STREAM_PLAYBACK, 0); rc < 0 {
		return nil, alsaLibError("snd_pcm_open "+name, rc)
	}
	return &alsaLibDevice{name: name, pcm: pcm}, nil
}

type alsaLibDevice struct {
	name string
	pcm  *C.snd_pcm_t
	hw   *sink.HwParams
}

// withHwParams runs fn on a fresh copy of the full configuration space
func (d *alsaLibDevice) withHwParams(fn func(*C.snd_pcm_hw_params_t) error) error {
	if d.pcm == nil {
		return errors.New("device closed")
	}
	var params *C.snd_pcm_hw_params_t
	if rc := C.snd_pcm_hw_params_malloc(&params); rc < 0 {
		return alsaLibError("snd_pcm_hw_params_malloc", rc)
	}
	defer C.snd_pcm_hw_params_free(params)

	if rc := C.snd_pcm_hw_params_any(d.pcm, params); rc < 0 {
		return alsaLibError("snd_pcm_hw_params_any", rc)
	}
	return fn(params)
}

func (d *alsaLibDevice) HwParamsAny() (*sink.HwParams, error) {
	hw := &sink.HwParams{}
	err := d.withHwParams(func(params *C.snd_pcm_hw_params_t) error {
		for _, a := range libAccesses {
			if C.snd_pcm_hw_params_test_access(d.pcm, params, a.pcm) == 0 {
				hw.Accesses = append(hw.Accesses, a.access)
			}
		}
		for _, f := range libFormats {
			if C.snd_pcm_hw_params_test_format(d.pcm, params, f.pcm) == 0 {
				hw.Formats = append(hw.Formats, f.format)
			}
		}

		var lo, hi C.uint
		var dir C.int
		C.snd_pcm_hw_params_get_rate_min(params, &lo, &dir)
		C.snd_pcm_hw_params_get_rate_max(params, &hi, &dir)
		hw.Rate = sink.Interval{Min: uint32(lo), Max: uint32(hi)}

		C.snd_pcm_hw_params_get_channels_min(params, &lo)
		C.snd_pcm_hw_params_get_channels_max(params, &hi)
		hw.Channels = sink.Interval{Min: uint32(lo), Max: uint32(hi)}

		C.snd_pcm_hw_params_get_periods_min(params, &lo, &dir)
		C.snd_pcm_hw_params_get_periods_max(params, &hi, &dir)
		hw.Periods = sink.Interval{Min: uint32(lo), Max: uint32(hi)}

		var flo, fhi C.snd_pcm_uframes_t
		C.snd_pcm_hw_params_get_buffer_size_min(params, &flo)
		C.snd_pcm_hw_params_get_buffer_size_max(params, &fhi)
		hw.BufferSize = sink.Interval{Min: clampFrames(flo), Max: clampFrames(fhi)}

		C.snd_pcm_hw_params_get_period_size_min(params, &flo, &dir)
		C.snd_pcm_hw_params_get_period_size_max(params, &fhi, &dir)
		hw.PeriodSize = sink.Interval{Min: clampFrames(flo), Max: clampFrames(fhi)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hw, nil
}

// ApplyHwParams replays the negotiated choices through libasound, which may
// round them, and installs the result
func (d *alsaLibDevice) ApplyHwParams(hw *sink.HwParams) error {
	if err := hw.Finalized(); err != nil {
		return err
	}
	if hw.Formats[0] != sink.FormatS16LE {
		return fmt.Errorf("format %s: %w", hw.Formats[0], sink.ErrParamNotSupported)
	}

	installed := hw.Clone()
	err := d.withHwParams(func(params *C.snd_pcm_hw_params_t) error {
		if rc := C.snd_pcm_hw_params_set_access(d.pcm, params, C.SND_PCM_ACCESS_RW_INTERLEAVED); rc < 0 {
			return alsaLibError("set access", rc)
		}
		if rc := C.snd_pcm_hw_params_set_format(d.pcm, params, C.SND_PCM_FORMAT_S16_LE); rc < 0 {
			return alsaLibError("set format", rc)
		}

		// Must precede the rate so the plug layer knows whether it may convert
		resample := C.uint(0)
		if hw.Resample {
			resample = 1
		}
		if rc := C.snd_pcm_hw_params_set_rate_resample(d.pcm, params, resample); rc < 0 {
			return alsaLibError("set rate resample", rc)
		}

		rate := C.uint(hw.Rate.Min)
		if rc := C.snd_pcm_hw_params_set_rate_near(d.pcm, params, &rate, nil); rc < 0 {
			return alsaLibError("set rate", rc)
		}
		if rc := C.snd_pcm_hw_params_set_channels(d.pcm, params, C.uint(hw.Channels.Min)); rc < 0 {
			return alsaLibError("set channels", rc)
		}
		buffer := C.snd_pcm_uframes_t(hw.BufferSize.Min)
		if rc := C.snd_pcm_hw_params_set_buffer_size_near(d.pcm, params, &buffer); rc < 0 {
			return alsaLibError("set buffer size", rc)
		}
		period := C.snd_pcm_uframes_t(hw.PeriodSize.Min)
		var dir C.int
		if rc := C.snd_pcm_hw_params_set_period_size_near(d.pcm, params, &period, &dir); rc < 0 {
			return alsaLibError("set period size", rc)
		}
		if rc := C.snd_pcm_hw_params(d.pcm, params); rc < 0 {
			return alsaLibError("snd_pcm_hw_params", rc)
		}

		var periods C.uint
		C.snd_pcm_hw_params_get_rate(params, &rate, &dir)
		C.snd_pcm_hw_params_get_buffer_size(params, &buffer)
		C.snd_pcm_hw_params_get_period_size(params, &period, &dir)
		C.snd_pcm_hw_params_get_periods(params, &periods, &dir)
		installed.Rate = sink.Single(uint32(rate))
		installed.BufferSize = sink.Single(clampFrames(buffer))
		installed.PeriodSize = sink.Single(clampFrames(period))
		installed.Periods = sink.Single(uint32(periods))
		return nil
	})
	if err != nil {
		return err
	}
	d.hw = installed
	return nil
}

func (d *alsaLibDevice) HwParamsCurrent() (*sink.HwParams, error) {
	if d.hw == nil {
		return nil, errors.New("hardware parameters not installed")
	}
	return d.hw.Clone(), nil
}

// withSwParams runs fn on the current software parameters
func (d *alsaLibDevice) withSwParams(fn func(*C.snd_pcm_sw_params_t) error) error {
	if d.pcm == nil || d.hw == nil {
		return errors.New("hardware parameters not installed")
	}
	var sw *C.snd_pcm_sw_params_t
	if rc := C.snd_pcm_sw_params_malloc(&sw); rc < 0 {
		return alsaLibError("snd_pcm_sw_params_malloc", rc)
	}
	defer C.snd_pcm_sw_params_free(sw)

	if rc := C.snd_pcm_sw_params_current(d.pcm, sw); rc < 0 {
		return alsaLibError("snd_pcm_sw_params_current", rc)
	}
	return fn(sw)
}

func (d *alsaLibDevice) SwParamsCurrent() (sink.SwParams, error) {
	var out sink.SwParams
	err := d.withSwParams(func(sw *C.snd_pcm_sw_params_t) error {
		var v C.snd_pcm_uframes_t
		C.snd_pcm_sw_params_get_start_threshold(sw, &v)
		out.StartThreshold = clampFrames(v)
		C.snd_pcm_sw_params_get_stop_threshold(sw, &v)
		out.StopThreshold = clampFrames(v)
		C.snd_pcm_sw_params_get_avail_min(sw, &v)
		out.AvailMin = clampFrames(v)
		return nil
	})
	return out, err
}

func (d *alsaLibDevice) ApplySwParams(params sink.SwParams) error {
	return d.withSwParams(func(sw *C.snd_pcm_sw_params_t) error {
		if rc := C.snd_pcm_sw_params_set_start_threshold(d.pcm, sw, C.snd_pcm_uframes_t(params.StartThreshold)); rc < 0 {
			return alsaLibError("set start threshold", rc)
		}
		if params.StopThreshold > 0 {
			if rc := C.snd_pcm_sw_params_set_stop_threshold(d.pcm, sw, C.snd_pcm_uframes_t(params.StopThreshold)); rc < 0 {
				return alsaLibError("set stop threshold", rc)
			}
		}
		if params.AvailMin > 0 {
			if rc := C.snd_pcm_sw_params_set_avail_min(d.pcm, sw, C.snd_pcm_uframes_t(params.AvailMin)); rc < 0 {
				return alsaLibError("set avail min", rc)
			}
		}
		if rc := C.snd_pcm_sw_params(d.pcm, sw); rc < 0 {
			return alsaLibError("snd_pcm_sw_params", rc)
		}
		return nil
	})
}

func (d *alsaLibDevice) WriteInterleaved(samples []int16) (int, error) {
	if d.pcm == nil || d.hw == nil {
		return 0, errors.New("device not configured")
	}
	frames := len(samples) / int(d.hw.Channels.Min)
	if frames == 0 {
		return 0, nil
	}
	n := C.snd_pcm_writei(d.pcm, unsafe.Pointer(&samples[0]), C.snd_pcm_uframes_t(frames))
	if n < 0 {
		return 0, alsaLibError("snd_pcm_writei", C.int(n))
	}
	return int(n), nil
}

// Recover hands the errno to snd_pcm_recover, which prepares after an
// underrun and resumes after a suspend
func (d *alsaLibDevice) Recover(err error, silent bool) error {
	if d.pcm == nil {
		return errors.New("device not configured")
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}
	quiet := C.int(0)
	if silent {
		quiet = 1
	}
	if rc := C.snd_pcm_recover(d.pcm, -C.int(errno), quiet); rc < 0 {
		return alsaLibError("snd_pcm_recover", rc)
	}
	return nil
}

func (d *alsaLibDevice) Drain() error {
	if d.pcm == nil || d.hw == nil {
		return nil
	}
	if rc := C.snd_pcm_drain(d.pcm); rc < 0 {
		return alsaLibError("snd_pcm_drain", rc)
	}
	return nil
}

func (d *alsaLibDevice) Close() error {
	if d.pcm == nil {
		return nil
	}
	rc := C.snd_pcm_close(d.pcm)
	d.pcm = nil
	if rc < 0 {
		return alsaLibError("snd_pcm_close", rc)
	}
	return nil
}

// libHints lists the names libasound knows for one interface, as aplay -L does
func libHints(iface string) ([]sink.Descriptor, error) {
	switch iface {
	case sink.IfacePCM, sink.IfaceCtl, sink.IfaceHwdep:
	default:
		return nil, fmt.Errorf("unknown hint interface: %s", iface)
	}

	ciface := C.CString(iface)
	defer C.free(unsafe.Pointer(ciface))

	var hints *unsafe.Pointer
	if rc := C.snd_device_name_hint(-1, ciface, &hints); rc < 0 {
		return nil, alsaLibError("snd_device_name_hint "+iface, rc)
	}
	defer C.snd_device_name_free_hint(hints)

	var out []sink.Descriptor
	for _, h := range unsafe.Slice(hints, hintCount(hints)) {
		name, ok := hintValue(h, "NAME")
		if !ok {
			continue
		}
		desc, _ := hintValue(h, "DESC")
		out = append(out, sink.Descriptor{
			Interface:   iface,
			Name:        name,
			Description: desc,
			Direction:   hintDirection(h),
		})
	}
	return out, nil
}

func hintCount(hints *unsafe.Pointer) int {
	n := 0
	for p := hints; *p != nil; p = (*unsafe.Pointer)(unsafe.Add(unsafe.Pointer(p), unsafe.Sizeof(*p))) {
		n++
	}
	return n
}

func hintValue(hint unsafe.Pointer, id string) (string, bool) {
	cid := C.CString(id)
	defer C.free(unsafe.Pointer(cid))

	v := C.snd_device_name_get_hint(hint, cid)
	if v == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(v))
	return C.GoString(v), true
}

// hintDirection maps IOID; a missing IOID carries no direction
func hintDirection(hint unsafe.Pointer) sink.Direction {
	ioid, ok := hintValue(hint, "IOID")
	switch {
	case !ok:
		return sink.DirectionNone
	case ioid == "Output":
		return sink.DirectionPlayback
	case ioid == "Input":
		return sink.DirectionCapture
	default:
		return sink.DirectionNone
	}
}
