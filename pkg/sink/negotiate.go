// ABOUTME: Hardware and software parameter negotiation
// ABOUTME: Trades playback latency against underrun risk for an opened device
package sink

import (
	"fmt"
	"log"
)

// latency = period_size * periods / rate
// 22052 frames at 44100 Hz is about 0.5s of buffered audio.
func negotiateHw(dev Device, cfg Config, logger *log.Logger) (*HwParams, error) {
	hw, err := dev.HwParamsAny()
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration space: %w", err)
	}

	if err := hw.SetAccess(AccessRWInterleaved); err != nil {
		return nil, err
	}
	if err := hw.SetFormat(FormatS16LE); err != nil {
		return nil, err
	}
	if _, err := hw.SetRateNear(TargetRate); err != nil {
		return nil, err
	}
	if err := hw.SetChannels(TargetChannels); err != nil {
		return nil, err
	}
	if _, err := hw.SetBufferSizeNear(TargetBufferSize); err != nil {
		return nil, err
	}

	if cfg.Resample {
		logger.Printf("Allowing resampling, and setting period size: %d", TargetResamplePeriodSize)
		hw.SetRateResample(true)
		if _, err := hw.SetPeriodSizeNear(TargetResamplePeriodSize, Nearest); err != nil {
			return nil, err
		}
	} else if _, err := hw.SetPeriodSizeNear(TargetPeriodSize, Greater); err != nil {
		return nil, err
	}

	if err := hw.Finalized(); err != nil {
		return nil, err
	}
	if err := dev.ApplyHwParams(hw); err != nil {
		return nil, fmt.Errorf("failed to install hardware parameters: %w", err)
	}
	return hw, nil
}

// negotiateSw holds playback back until the buffer is within one period of
// full, so the first period is not an immediate underrun.
func negotiateSw(dev Device, hw *HwParams) (SwParams, error) {
	buffer, err := hw.FixedBufferSize()
	if err != nil {
		return SwParams{}, err
	}
	period, err := hw.FixedPeriodSize()
	if err != nil {
		return SwParams{}, err
	}

	sw, err := dev.SwParamsCurrent()
	if err != nil {
		return SwParams{}, fmt.Errorf("failed to read software parameters: %w", err)
	}
	sw.StartThreshold = buffer - period
	if err := dev.ApplySwParams(sw); err != nil {
		return SwParams{}, fmt.Errorf("failed to install software parameters: %w", err)
	}
	return sw, nil
}

// dumpParams logs what the device actually ended up with
func dumpParams(dev Device, name string, logger *log.Logger) error {
	hw, err := dev.HwParamsCurrent()
	if err != nil {
		return err
	}
	sw, err := dev.SwParamsCurrent()
	if err != nil {
		return err
	}

	buffer, err := hw.FixedBufferSize()
	if err != nil {
		return err
	}
	period, err := hw.FixedPeriodSize()
	if err != nil {
		return err
	}
	periods, err := hw.FixedPeriods()
	if err != nil {
		return err
	}

	logger.Printf("periods: %d buffer_size: %d period_size %d", periods, buffer, period)
	logger.Printf("Opened audio output %q with parameters:\n%s\n%s", name, hw, sw)
	return nil
}
