// ABOUTME: Fake audio subsystem for sink tests
// ABOUTME: Records negotiation and lets tests inject write, recover and drain failures
package sink

import (
	"errors"
	"time"
)

var errUnderrun = errors.New("broken pipe")

func testHwParams() *HwParams {
	return &HwParams{
		Accesses:    []Access{AccessMMapInterleaved, AccessRWInterleaved},
		Formats:     []Format{FormatS16LE, FormatS32LE},
		Rate:        Interval{Min: 8000, Max: 192000},
		Channels:    Interval{Min: 1, Max: 8},
		BufferSize:  Interval{Min: 64, Max: 1 << 20},
		PeriodSize:  Interval{Min: 32, Max: 1 << 16},
		Periods:     Interval{Min: 2, Max: 32},
		PeriodAlign: 32,
	}
}

type fakeSystem struct {
	caps    func() *HwParams
	openErr error
	hints   map[string][]Descriptor
	hintErr error

	opens  int
	opened []string
	dev    *fakeDevice
	// newDevice customizes each opened device
	newDevice func(*fakeDevice)
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{caps: testHwParams}
}

func (f *fakeSystem) Open(name string) (Device, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	f.opened = append(f.opened, name)
	f.dev = &fakeDevice{caps: f.caps()}
	if f.newDevice != nil {
		f.newDevice(f.dev)
	}
	return f.dev, nil
}

func (f *fakeSystem) Hints(iface string) ([]Descriptor, error) {
	if f.hintErr != nil {
		return nil, f.hintErr
	}
	return f.hints[iface], nil
}

type fakeDevice struct {
	caps *HwParams

	hw        *HwParams
	sw        *SwParams
	hwApplies int
	hwErr     error
	swErr     error

	writeErrs  []error
	written    [][]int16
	recoverErr error
	recovered  []bool

	drainDelay time.Duration
	drainErr   error
	drained    bool
	closed     bool
}

func (d *fakeDevice) HwParamsAny() (*HwParams, error) {
	return d.caps.Clone(), nil
}

func (d *fakeDevice) ApplyHwParams(hw *HwParams) error {
	if d.hwErr != nil {
		return d.hwErr
	}
	d.hwApplies++
	d.hw = hw.Clone()
	return nil
}

func (d *fakeDevice) HwParamsCurrent() (*HwParams, error) {
	if d.hw == nil {
		return nil, errors.New("no hardware parameters installed")
	}
	return d.hw.Clone(), nil
}

func (d *fakeDevice) SwParamsCurrent() (SwParams, error) {
	if d.sw != nil {
		return *d.sw, nil
	}
	if d.hw == nil {
		return SwParams{}, errors.New("no hardware parameters installed")
	}
	return DefaultSwParams(d.hw), nil
}

func (d *fakeDevice) ApplySwParams(sw SwParams) error {
	if d.swErr != nil {
		return d.swErr
	}
	d.sw = &sw
	return nil
}

func (d *fakeDevice) WriteInterleaved(samples []int16) (int, error) {
	if len(d.writeErrs) > 0 {
		err := d.writeErrs[0]
		d.writeErrs = d.writeErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	d.written = append(d.written, append([]int16(nil), samples...))
	return len(samples) / 2, nil
}

func (d *fakeDevice) Recover(err error, silent bool) error {
	d.recovered = append(d.recovered, silent)
	return d.recoverErr
}

func (d *fakeDevice) Drain() error {
	time.Sleep(d.drainDelay)
	d.drained = true
	return d.drainErr
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

type fakePauser struct {
	calls []string
	err   error
}

func (p *fakePauser) PauseOthers(player string) error {
	p.calls = append(p.calls, player)
	return p.err
}
