// ABOUTME: Playback sink state machine
// ABOUTME: Opens, configures, feeds and drains a single playback device
package sink

import (
	"log"

	"github.com/google/uuid"
)

const (
	// ListSelector requests output enumeration instead of a sink
	ListSelector = "?"

	// DefaultDevice names the system default playback device
	DefaultDevice = "default"

	// DefaultPlayerName is passed to the pause helper
	DefaultPlayerName = "vollibrespot"
)

// Stats counts activity on a sink across sessions
type Stats struct {
	Writes    uint64
	Frames    uint64
	Underruns uint64
}

// Sink streams interleaved S16 stereo frames to one playback device.
// It is Closed until Start succeeds and Closed again after Stop.
type Sink struct {
	sys    System
	device string
	handle Device

	pauser Pauser
	player string
	logger *log.Logger

	session    uuid.UUID
	params     Negotiated
	negotiated bool
	stats      Stats
}

// Option configures a Sink
type Option func(*Sink)

// WithPauser sets the collaborator run before each open
func WithPauser(p Pauser) Option {
	return func(s *Sink) { s.pauser = p }
}

// WithPlayerName sets the name handed to the pauser
func WithPlayerName(name string) Option {
	return func(s *Sink) { s.player = name }
}

// WithLogger sets the logger used for warnings and debug dumps
func WithLogger(l *log.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// Resolve maps a device selector to a device name.
// An empty selector means the default device; "?" returns ErrListRequested.
func Resolve(selector string) (string, error) {
	switch selector {
	case ListSelector:
		return "", ErrListRequested
	case "":
		return DefaultDevice, nil
	default:
		return selector, nil
	}
}

// New creates a closed sink for the selected device
func New(sys System, selector string, opts ...Option) (*Sink, error) {
	name, err := Resolve(selector)
	if err != nil {
		return nil, err
	}

	s := &Sink{
		sys:    sys,
		device: name,
		pauser: NewCommandPauser(DefaultPauseCommand),
		player: DefaultPlayerName,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Device returns the device name the sink is bound to
func (s *Sink) Device() string {
	return s.device
}

// IsOpen reports whether the sink holds an open device
func (s *Sink) IsOpen() bool {
	return s.handle != nil
}

// Session returns the id of the current or last playback session
func (s *Sink) Session() uuid.UUID {
	return s.session
}

// Negotiated returns the parameters of the current or last session.
// ok is false if the sink has never been started.
func (s *Sink) Negotiated() (params Negotiated, ok bool) {
	return s.params, s.negotiated
}

// Stats returns write counters
func (s *Sink) Stats() Stats {
	return s.stats
}

// Start opens and configures the device. Calling Start on an open sink does nothing.
func (s *Sink) Start(cfg Config) error {
	if s.handle != nil {
		return nil
	}

	if err := s.pauser.PauseOthers(s.player); err != nil {
		s.logger.Printf("Warning: couldn't stop other players using pause-all: %v", err)
	}

	dev, err := s.sys.Open(s.device)
	if err != nil {
		return s.openFailed(nil, StageOpen, err)
	}

	hw, err := negotiateHw(dev, cfg, s.logger)
	if err != nil {
		return s.openFailed(dev, StageHwParams, err)
	}
	sw, err := negotiateSw(dev, hw)
	if err != nil {
		return s.openFailed(dev, StageSwParams, err)
	}
	// The driver may have rounded the period layout while installing
	if cur, err := dev.HwParamsCurrent(); err == nil {
		hw = cur
	}
	params, err := newNegotiated(hw, sw)
	if err != nil {
		return s.openFailed(dev, StageHwParams, err)
	}
	if cfg.DebugDump {
		if err := dumpParams(dev, s.device, s.logger); err != nil {
			return s.openFailed(dev, StageDebugDump, err)
		}
	}

	s.handle = dev
	s.params = params
	s.negotiated = true
	s.session = uuid.New()

	s.logger.Printf("Audio output %s opened: %dHz, %d channels, buffer %d frames (%.0fms), period %d frames [session %s]",
		s.device, params.Rate, params.Channels, params.BufferSize, params.LatencyMs(), params.PeriodSize, s.session)
	return nil
}

func (s *Sink) openFailed(dev Device, stage string, err error) error {
	if dev != nil {
		if cerr := dev.Close(); cerr != nil {
			s.logger.Printf("Warning: close after failed %s on %s: %v", stage, s.device, cerr)
		}
	}
	openErr := &OpenError{Device: s.device, Stage: stage, Err: err}
	s.logger.Printf("Error: %v", openErr)
	return openErr
}

// Write blocks until the device accepts samples. An underrun is recovered
// in place and the samples of that call are dropped.
func (s *Sink) Write(samples []int16) error {
	if s.handle == nil {
		return ErrNotOpen
	}
	if len(samples)%int(s.params.Channels) != 0 {
		return ErrPartialFrame
	}

	s.stats.Writes++
	n, err := s.handle.WriteInterleaved(samples)
	if err == nil {
		s.stats.Frames += uint64(n)
		return nil
	}

	if rerr := s.handle.Recover(err, false); rerr != nil {
		writeErr := &WriteError{Device: s.device, Err: err, RecoverErr: rerr}
		s.logger.Printf("Error: %v", writeErr)
		return writeErr
	}
	s.stats.Underruns++
	s.logger.Printf("Warning: recovered %s after write error: %v", s.device, err)
	return nil
}

// Stop drains and releases the device. The sink is closed afterwards even
// if draining fails. Calling Stop on a closed sink does nothing.
func (s *Sink) Stop() error {
	if s.handle == nil {
		return nil
	}
	dev := s.handle
	s.handle = nil

	drainErr := dev.Drain()
	if err := dev.Close(); err != nil {
		s.logger.Printf("Warning: close %s: %v", s.device, err)
	}
	if drainErr != nil {
		err := &DrainError{Device: s.device, Err: drainErr}
		s.logger.Printf("Error: %v", err)
		return err
	}
	return nil
}
