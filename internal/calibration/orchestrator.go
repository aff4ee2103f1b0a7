package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zigbee-go-setup/internal/transport"
)

const (
	windowCoveringCluster = "Window Covering"

	// Calibration-mode bit of the Mode attribute.
	modeCalibrationBit = 0x02

	// Firmware needs time to apply a mode write before the next read can be
	// trusted; every mode-changing write is followed by this delay.
	settleDelay  = 1500 * time.Millisecond
	pollInterval = 2 * time.Second
	travelSample = 5 * time.Second

	// WaitStopped gives the actuator four minutes before giving up.
	maxStopPolls = 120
)

// ErrNotStopped reports that OperationalStatus never returned to idle within
// the polling budget.
var ErrNotStopped = errors.New("calibration: actuator did not stop")

// Sleeper abstracts the fixed settle and travel delays so tests run instantly.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on the wall clock, honoring context cancellation.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Orchestrator runs the calibration sequence against one window-covering
// endpoint. A single orchestrator must not run two sessions concurrently;
// callers serialize per device.
type Orchestrator struct {
	ep      *transport.Endpoint
	sleeper Sleeper
	logger  *slog.Logger

	// OnStep, if set, is called as each state of the sequence begins.
	OnStep func(step string)
}

// New creates an orchestrator. A nil sleeper gets the wall clock.
func New(ep *transport.Endpoint, sleeper Sleeper, logger *slog.Logger) *Orchestrator {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	return &Orchestrator{ep: ep, sleeper: sleeper, logger: logger}
}

func (o *Orchestrator) step(name string) {
	o.logger.Info("calibration step", "step", name, "endpoint", o.ep.ID())
	if o.OnStep != nil {
		o.OnStep(name)
	}
}

// Run executes the calibration sequence and returns the read-back report.
// Any transport failure aborts immediately; the device may be left with the
// calibration-mode bit set and needs a fresh run to recover.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Settle: leave any previous calibration mode before touching anything.
	o.step("settle")
	mode, err := o.readMode(ctx)
	if err != nil {
		return nil, err
	}
	if mode&modeCalibrationBit != 0 {
		mode &^= modeCalibrationBit
		if err := o.writeMode(ctx, mode); err != nil {
			return nil, err
		}
		if err := o.sleeper.Sleep(ctx, settleDelay); err != nil {
			return nil, err
		}
	}

	// BaseConfig: covering type, config status and mode from the request.
	o.step("base_config")
	if req.WindowCoveringType != nil {
		if err := o.writeSettled(ctx, "WindowCoveringType", *req.WindowCoveringType); err != nil {
			return nil, err
		}
	}
	if req.ConfigStatus != nil {
		if err := o.writeSettled(ctx, "ConfigStatus", *req.ConfigStatus); err != nil {
			return nil, err
		}
	}
	if req.WindowCoveringMode != nil {
		if err := o.writeSettled(ctx, "Mode", *req.WindowCoveringMode); err != nil {
			return nil, err
		}
		mode = *req.WindowCoveringMode
	}

	if req.Calibrate {
		// Prime: drive fully open so the learning runs start from a limit.
		o.step("prime")
		if err := o.command(ctx, "UpOpen"); err != nil {
			return nil, err
		}
		if err := o.waitStopped(ctx); err != nil {
			return nil, err
		}

		o.step("reset_limits")
		if err := o.resetLimits(ctx); err != nil {
			return nil, err
		}

		o.step("enable_calibration")
		mode |= modeCalibrationBit
		if err := o.writeMode(ctx, mode); err != nil {
			return nil, err
		}
		if err := o.sleeper.Sleep(ctx, settleDelay); err != nil {
			return nil, err
		}

		// LearnLowerBound: a short sample run towards closed, then back to
		// the upper limit so the actuator detects it.
		o.step("learn_lower_bound")
		if err := o.command(ctx, "DownClose"); err != nil {
			return nil, err
		}
		if err := o.sleeper.Sleep(ctx, travelSample); err != nil {
			return nil, err
		}
		if err := o.command(ctx, "Stop"); err != nil {
			return nil, err
		}
		if err := o.sleeper.Sleep(ctx, settleDelay); err != nil {
			return nil, err
		}
		if err := o.command(ctx, "UpOpen"); err != nil {
			return nil, err
		}
		if err := o.waitStopped(ctx); err != nil {
			return nil, err
		}

		// LearnFullRange: one full travel each way counts the steps.
		o.step("learn_full_range")
		if err := o.command(ctx, "DownClose"); err != nil {
			return nil, err
		}
		if err := o.waitStopped(ctx); err != nil {
			return nil, err
		}
		if err := o.command(ctx, "UpOpen"); err != nil {
			return nil, err
		}
		if err := o.waitStopped(ctx); err != nil {
			return nil, err
		}
	}

	o.step("apply_overrides")
	if err := o.applyOverrides(ctx, req); err != nil {
		return nil, err
	}

	if req.Calibrate {
		o.step("finalize")
		mode &^= modeCalibrationBit
		if err := o.writeMode(ctx, mode); err != nil {
			return nil, err
		}
		if err := o.sleeper.Sleep(ctx, settleDelay); err != nil {
			return nil, err
		}
	}

	return o.Report(ctx)
}

// resetLimits returns the limit and step attributes to their pre-calibration
// defaults; the step counters go to the "unknown" sentinel so the firmware
// re-learns them.
func (o *Orchestrator) resetLimits(ctx context.Context) error {
	if err := o.ep.Write(ctx, windowCoveringCluster, map[string]interface{}{
		"InstalledOpenLimitLiftCm":        uint16(0),
		"InstalledClosedLimitLiftCm":      uint16(240),
		"InstalledOpenLimitTiltDdegree":   uint16(0),
		"InstalledClosedLimitTiltDdegree": uint16(900),
	}); err != nil {
		return err
	}
	return o.ep.Write(ctx, windowCoveringCluster, map[string]interface{}{
		"LiftToTiltTransitionSteps":  uint16(0xFFFF),
		"TotalSteps":                 uint16(0xFFFF),
		"LiftToTiltTransitionSteps2": uint16(0xFFFF),
		"TotalSteps2":                uint16(0xFFFF),
	})
}

// applyOverrides writes the caller-supplied attribute values. Raw attribute
// values go first, the duration-derived ones after, so the converted values
// win when both target the same attribute.
func (o *Orchestrator) applyOverrides(ctx context.Context, req *Request) error {
	type override struct {
		name  string
		value interface{}
	}
	var overrides []override
	add := func(name string, value interface{}) {
		overrides = append(overrides, override{name, value})
	}

	if req.InstalledOpenLimitLiftCm != nil {
		add("InstalledOpenLimitLiftCm", *req.InstalledOpenLimitLiftCm)
	}
	if req.InstalledClosedLimitLiftCm != nil {
		add("InstalledClosedLimitLiftCm", *req.InstalledClosedLimitLiftCm)
	}
	if req.InstalledOpenLimitTiltDdegree != nil {
		add("InstalledOpenLimitTiltDdegree", *req.InstalledOpenLimitTiltDdegree)
	}
	if req.InstalledClosedLimitTiltDdegree != nil {
		add("InstalledClosedLimitTiltDdegree", *req.InstalledClosedLimitTiltDdegree)
	}
	if req.TurnaroundGuardTime != nil {
		add("TurnaroundGuardTime", *req.TurnaroundGuardTime)
	}
	if req.LiftToTiltTransitionSteps != nil {
		add("LiftToTiltTransitionSteps", *req.LiftToTiltTransitionSteps)
	}
	if req.TotalSteps != nil {
		add("TotalSteps", *req.TotalSteps)
	}
	if req.LiftToTiltTransitionSteps2 != nil {
		add("LiftToTiltTransitionSteps2", *req.LiftToTiltTransitionSteps2)
	}
	if req.TotalSteps2 != nil {
		add("TotalSteps2", *req.TotalSteps2)
	}

	sps := req.stepsPerSecond()
	if req.OpenToClosedS != nil {
		add("TotalSteps", toSteps(*req.OpenToClosedS, sps))
	}
	if req.ClosedToOpenS != nil {
		add("TotalSteps2", toSteps(*req.ClosedToOpenS, sps))
	}
	if req.LiftToTiltTransitionMs != nil {
		steps := toSteps(*req.LiftToTiltTransitionMs, sps/1000)
		add("LiftToTiltTransitionSteps", steps)
		add("LiftToTiltTransitionSteps2", steps)
	}

	for _, ov := range overrides {
		o.logger.Debug("calibration override", "attribute", ov.name, "value", ov.value)
		if err := o.ep.Write(ctx, windowCoveringCluster, map[string]interface{}{ov.name: ov.value}); err != nil {
			return err
		}
	}
	return nil
}

// waitStopped polls OperationalStatus until the actuator reports idle, then
// applies one extra settle delay.
func (o *Orchestrator) waitStopped(ctx context.Context) error {
	for i := 0; i < maxStopPolls; i++ {
		if err := o.sleeper.Sleep(ctx, pollInterval); err != nil {
			return err
		}
		vals, err := o.ep.Read(ctx, windowCoveringCluster, []string{"OperationalStatus"})
		if err != nil {
			return err
		}
		status, ok := vals["OperationalStatus"].(uint8)
		if !ok {
			return fmt.Errorf("calibration: OperationalStatus missing from poll response")
		}
		if status == 0 {
			return o.sleeper.Sleep(ctx, settleDelay)
		}
	}
	return ErrNotStopped
}

func (o *Orchestrator) readMode(ctx context.Context) (uint8, error) {
	vals, err := o.ep.Read(ctx, windowCoveringCluster, []string{"Mode"})
	if err != nil {
		return 0, err
	}
	mode, ok := vals["Mode"].(uint8)
	if !ok {
		return 0, fmt.Errorf("calibration: Mode missing from read response")
	}
	return mode, nil
}

func (o *Orchestrator) writeMode(ctx context.Context, mode uint8) error {
	return o.ep.Write(ctx, windowCoveringCluster, map[string]interface{}{"Mode": mode})
}

// writeSettled writes one attribute and waits the settle delay.
func (o *Orchestrator) writeSettled(ctx context.Context, name string, value interface{}) error {
	if err := o.ep.Write(ctx, windowCoveringCluster, map[string]interface{}{name: value}); err != nil {
		return err
	}
	return o.sleeper.Sleep(ctx, settleDelay)
}

func (o *Orchestrator) command(ctx context.Context, name string) error {
	return o.ep.Command(ctx, windowCoveringCluster, name, nil)
}
