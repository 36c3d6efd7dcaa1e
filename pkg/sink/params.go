// ABOUTME: Hardware and software parameter sets for playback devices
// ABOUTME: Models the device configuration space and narrows it value by value
package sink

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrParamNotSupported is returned when a value lies outside the configuration space
	ErrParamNotSupported = errors.New("parameter value not supported by device")

	// ErrParamNotFixed is returned when reading a parameter that has not been narrowed to one value
	ErrParamNotFixed = errors.New("parameter not fixed")
)

// Interval is an inclusive range of frame counts, rates or channel counts
type Interval struct {
	Min uint32
	Max uint32
}

// Single returns an interval holding exactly v
func Single(v uint32) Interval {
	return Interval{Min: v, Max: v}
}

// Empty reports whether no value satisfies the interval
func (i Interval) Empty() bool {
	return i.Min > i.Max
}

// IsSingle reports whether the interval holds exactly one value
func (i Interval) IsSingle() bool {
	return i.Min == i.Max
}

// Contains reports whether v lies in the interval
func (i Interval) Contains(v uint32) bool {
	return v >= i.Min && v <= i.Max
}

// Clamp returns the value of the interval closest to v
func (i Interval) Clamp(v uint32) uint32 {
	if v < i.Min {
		return i.Min
	}
	if v > i.Max {
		return i.Max
	}
	return v
}

// Intersect returns the values present in both intervals
func (i Interval) Intersect(o Interval) Interval {
	return Interval{Min: max(i.Min, o.Min), Max: min(i.Max, o.Max)}
}

func (i Interval) String() string {
	if i.IsSingle() {
		return fmt.Sprintf("%d", i.Min)
	}
	return fmt.Sprintf("[%d %d]", i.Min, i.Max)
}

// Access is the transfer method used to move frames into the device
type Access int

const (
	AccessMMapInterleaved Access = iota
	AccessMMapNonInterleaved
	AccessRWInterleaved
	AccessRWNonInterleaved
)

func (a Access) String() string {
	switch a {
	case AccessMMapInterleaved:
		return "MMAP_INTERLEAVED"
	case AccessMMapNonInterleaved:
		return "MMAP_NONINTERLEAVED"
	case AccessRWInterleaved:
		return "RW_INTERLEAVED"
	case AccessRWNonInterleaved:
		return "RW_NONINTERLEAVED"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// Format is a sample encoding
type Format int

const (
	FormatS16LE Format = iota
	FormatS24LE
	FormatS32LE
	FormatFloatLE
)

func (f Format) String() string {
	switch f {
	case FormatS16LE:
		return "S16_LE"
	case FormatS24LE:
		return "S24_LE"
	case FormatS32LE:
		return "S32_LE"
	case FormatFloatLE:
		return "FLOAT_LE"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ValueOr selects which neighbour wins when a requested value is not available
type ValueOr int

const (
	Nearest ValueOr = iota
	Greater
	Less
)

func (v ValueOr) String() string {
	switch v {
	case Greater:
		return "greater"
	case Less:
		return "less"
	default:
		return "nearest"
	}
}

// HwParams is a hardware configuration space.
//
// A backend fills it with everything the device supports; the Set methods
// narrow it down until each parameter holds a single value. BufferSize is
// always PeriodSize * Periods once the period size has been chosen.
type HwParams struct {
	Accesses   []Access
	Formats    []Format
	Rate       Interval
	Channels   Interval
	BufferSize Interval
	PeriodSize Interval
	Periods    Interval

	// PeriodAlign restricts period sizes to multiples of this many frames.
	// Zero or one means any size.
	PeriodAlign uint32

	// Resample enables rate conversion inside the device, if it has one
	Resample bool

	bufferCap Interval
	bufferSet bool
}

// Clone returns an independent copy of the parameter space
func (h *HwParams) Clone() *HwParams {
	c := *h
	c.Accesses = append([]Access(nil), h.Accesses...)
	c.Formats = append([]Format(nil), h.Formats...)
	return &c
}

// SetAccess restricts the space to one access type
func (h *HwParams) SetAccess(a Access) error {
	for _, have := range h.Accesses {
		if have == a {
			h.Accesses = []Access{a}
			return nil
		}
	}
	return fmt.Errorf("access %s: %w", a, ErrParamNotSupported)
}

// SetFormat restricts the space to one sample format
func (h *HwParams) SetFormat(f Format) error {
	for _, have := range h.Formats {
		if have == f {
			h.Formats = []Format{f}
			return nil
		}
	}
	return fmt.Errorf("format %s: %w", f, ErrParamNotSupported)
}

// SetChannels restricts the space to exactly n channels
func (h *HwParams) SetChannels(n uint32) error {
	if !h.Channels.Contains(n) {
		return fmt.Errorf("channels %d (device %s): %w", n, h.Channels, ErrParamNotSupported)
	}
	h.Channels = Single(n)
	return nil
}

// SetRateNear picks the supported rate closest to rate
func (h *HwParams) SetRateNear(rate uint32) (uint32, error) {
	if h.Rate.Empty() {
		return 0, fmt.Errorf("rate %d: %w", rate, ErrParamNotSupported)
	}
	r := h.Rate.Clamp(rate)
	h.Rate = Single(r)
	return r, nil
}

// SetRateResample enables or disables rate conversion in the device
func (h *HwParams) SetRateResample(on bool) {
	h.Resample = on
}

// SetBufferSizeNear picks the supported buffer size closest to frames and
// restricts the period sizes to those that can tile it.
func (h *HwParams) SetBufferSizeNear(frames uint32) (uint32, error) {
	periods := h.periodsSpan()
	span := h.BufferSize.Intersect(Interval{
		Min: mulSat(h.PeriodSize.Min, periods.Min),
		Max: mulSat(h.PeriodSize.Max, periods.Max),
	})
	if span.Empty() {
		return 0, fmt.Errorf("buffer size %d: %w", frames, ErrParamNotSupported)
	}

	b := span.Clamp(frames)
	period := h.PeriodSize.Intersect(Interval{
		Min: ceilDiv(b, periods.Max),
		Max: b / periods.Min,
	})
	if period.Empty() {
		return 0, fmt.Errorf("buffer size %d leaves no period size: %w", b, ErrParamNotSupported)
	}

	h.bufferCap = span
	h.bufferSet = true
	h.BufferSize = Single(b)
	h.PeriodSize = period
	return b, nil
}

// SetPeriodSizeNear picks a supported period size for frames, rounding in
// the direction given by dir, and derives the period count and final buffer
// size from the buffer size chosen earlier.
//
// With Greater or Less a buffer fixed by SetBufferSizeNear is kept whenever
// a period in that direction tiles it exactly. Otherwise, and always with
// Nearest, the period closest to frames wins and the buffer is re-tiled
// within the supported buffer range.
func (h *HwParams) SetPeriodSizeNear(frames uint32, dir ValueOr) (uint32, error) {
	if h.bufferSet && dir != Nearest {
		if p, n, ok := h.tilingPeriod(h.BufferSize.Min, frames, dir); ok {
			h.PeriodSize = Single(p)
			h.Periods = Single(n)
			return p, nil
		}
	}

	p, err := pickAligned(h.PeriodSize, h.PeriodAlign, frames, dir)
	if err != nil {
		return 0, fmt.Errorf("period size %d: %w", frames, err)
	}

	target, limit := h.BufferSize.Min, h.BufferSize
	if h.bufferSet {
		limit = h.bufferCap
	}

	periods := h.periodsSpan()
	n := periods.Clamp(ceilDiv(target, p))
	for uint64(n)*uint64(p) > uint64(limit.Max) && n > periods.Min {
		n--
	}
	for uint64(n)*uint64(p) < uint64(limit.Min) && n < periods.Max {
		n++
	}
	buffer := uint64(n) * uint64(p)
	if buffer > uint64(limit.Max) || buffer < uint64(limit.Min) {
		return 0, fmt.Errorf("period size %d cannot tile buffer %s: %w", p, limit, ErrParamNotSupported)
	}

	h.PeriodSize = Single(p)
	h.Periods = Single(n)
	h.BufferSize = Single(uint32(buffer))
	return p, nil
}

// tilingPeriod finds the period in dir from frames that divides buffer into
// a supported whole number of periods, closest to frames
func (h *HwParams) tilingPeriod(buffer, frames uint32, dir ValueOr) (period, periods uint32, ok bool) {
	align := max(h.PeriodAlign, 1)
	span := h.periodsSpan()
	for n := span.Min; n <= span.Max && n <= buffer; n++ {
		if buffer%n != 0 {
			continue
		}
		p := buffer / n
		if !h.PeriodSize.Contains(p) || p%align != 0 {
			continue
		}
		switch {
		case dir == Greater && p >= frames && (!ok || p < period),
			dir == Less && p <= frames && (!ok || p > period):
			period, periods, ok = p, n, true
		}
	}
	return period, periods, ok
}

// Finalized reports an error unless every parameter holds a single value
func (h *HwParams) Finalized() error {
	var open []string
	if len(h.Accesses) != 1 {
		open = append(open, "access")
	}
	if len(h.Formats) != 1 {
		open = append(open, "format")
	}
	for _, p := range []struct {
		name string
		iv   Interval
	}{
		{"rate", h.Rate},
		{"channels", h.Channels},
		{"buffer_size", h.BufferSize},
		{"period_size", h.PeriodSize},
		{"periods", h.Periods},
	} {
		if !p.iv.IsSingle() {
			open = append(open, p.name)
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(open, ", "), ErrParamNotFixed)
	}
	return nil
}

// FixedBufferSize returns the negotiated buffer size in frames
func (h *HwParams) FixedBufferSize() (uint32, error) {
	return fixed("buffer_size", h.BufferSize)
}

// FixedPeriodSize returns the negotiated period size in frames
func (h *HwParams) FixedPeriodSize() (uint32, error) {
	return fixed("period_size", h.PeriodSize)
}

// FixedPeriods returns the negotiated number of periods per buffer
func (h *HwParams) FixedPeriods() (uint32, error) {
	return fixed("periods", h.Periods)
}

func (h *HwParams) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ACCESS: %s\n", joinAccess(h.Accesses))
	fmt.Fprintf(&b, "FORMAT: %s\n", joinFormats(h.Formats))
	fmt.Fprintf(&b, "CHANNELS: %s\n", h.Channels)
	fmt.Fprintf(&b, "RATE: %s\n", h.Rate)
	fmt.Fprintf(&b, "PERIOD_SIZE: %s\n", h.PeriodSize)
	fmt.Fprintf(&b, "PERIODS: %s\n", h.Periods)
	fmt.Fprintf(&b, "BUFFER_SIZE: %s\n", h.BufferSize)
	fmt.Fprintf(&b, "RESAMPLE: %t", h.Resample)
	return b.String()
}

func (h *HwParams) periodsSpan() Interval {
	p := h.Periods
	if p.Min == 0 {
		p.Min = 1
	}
	return p
}

// SwParams are the software parameters of a configured device, in frames
type SwParams struct {
	StartThreshold uint32
	StopThreshold  uint32
	AvailMin       uint32
}

// DefaultSwParams returns the software parameters a device starts with
// after its hardware parameters are installed.
func DefaultSwParams(hw *HwParams) SwParams {
	return SwParams{
		StartThreshold: 1,
		StopThreshold:  hw.BufferSize.Min,
		AvailMin:       hw.PeriodSize.Min,
	}
}

func (s SwParams) String() string {
	return fmt.Sprintf("start_threshold: %d stop_threshold: %d avail_min: %d",
		s.StartThreshold, s.StopThreshold, s.AvailMin)
}

// Negotiated holds the values a device was configured with
type Negotiated struct {
	Access         Access
	Format         Format
	Rate           uint32
	Channels       uint32
	BufferSize     uint32
	PeriodSize     uint32
	Periods        uint32
	StartThreshold uint32
	Resample       bool
}

// LatencyMs returns the time a full buffer takes to play
func (n Negotiated) LatencyMs() float64 {
	if n.Rate == 0 {
		return 0
	}
	return float64(n.BufferSize) * 1000 / float64(n.Rate)
}

func newNegotiated(hw *HwParams, sw SwParams) (Negotiated, error) {
	if err := hw.Finalized(); err != nil {
		return Negotiated{}, err
	}
	return Negotiated{
		Access:         hw.Accesses[0],
		Format:         hw.Formats[0],
		Rate:           hw.Rate.Min,
		Channels:       hw.Channels.Min,
		BufferSize:     hw.BufferSize.Min,
		PeriodSize:     hw.PeriodSize.Min,
		Periods:        hw.Periods.Min,
		StartThreshold: sw.StartThreshold,
		Resample:       hw.Resample,
	}, nil
}

// pickAligned returns a multiple of align inside iv chosen relative to v
func pickAligned(iv Interval, align, v uint32, dir ValueOr) (uint32, error) {
	if align <= 1 {
		align = 1
	}
	lo := ceilDiv(iv.Min, align) * align
	hi := iv.Max / align * align
	if iv.Empty() || lo > hi {
		return 0, ErrParamNotSupported
	}

	v = Interval{Min: lo, Max: hi}.Clamp(v)
	down := v / align * align
	up := down
	if down != v {
		up = down + align
	}
	if up > hi {
		up = hi
	}
	if down < lo {
		down = lo
	}

	switch dir {
	case Greater:
		return up, nil
	case Less:
		return down, nil
	default:
		if up-v < v-down {
			return up, nil
		}
		return down, nil
	}
}

func fixed(name string, iv Interval) (uint32, error) {
	if !iv.IsSingle() {
		return 0, fmt.Errorf("%s %s: %w", name, iv, ErrParamNotFixed)
	}
	return iv.Min, nil
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return uint32((uint64(a) + uint64(b) - 1) / uint64(b))
}

func mulSat(a, b uint32) uint32 {
	p := uint64(a) * uint64(b)
	if p > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(p)
}

func joinAccess(as []Access) string {
	names := make([]string, len(as))
	for i, a := range as {
		names[i] = a.String()
	}
	return strings.Join(names, " ")
}

func joinFormats(fs []Format) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return strings.Join(names, " ")
}
