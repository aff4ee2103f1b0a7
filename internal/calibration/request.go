// Package calibration drives a motorized window-covering actuator through its
// limit-learning sequence and reads back the resulting configuration.
package calibration

import "fmt"

// Request is the calibration command payload. Attribute fields are direct
// overrides written in ApplyOverrides; the _s/_ms fields are convenience
// values converted to steps via StepsPerSecond before writing. Nil means
// "not supplied".
type Request struct {
	Calibrate      bool     `json:"calibrate"`
	StepsPerSecond *float64 `json:"steps_per_second,omitempty"`

	WindowCoveringType              *uint8  `json:"windowCoveringType,omitempty"`
	ConfigStatus                    *uint8  `json:"configStatus,omitempty"`
	WindowCoveringMode              *uint8  `json:"windowCoveringMode,omitempty"`
	InstalledOpenLimitLiftCm        *uint16 `json:"installedOpenLimitLiftCm,omitempty"`
	InstalledClosedLimitLiftCm      *uint16 `json:"installedClosedLimitLiftCm,omitempty"`
	InstalledOpenLimitTiltDdegree   *uint16 `json:"installedOpenLimitTiltDdegree,omitempty"`
	InstalledClosedLimitTiltDdegree *uint16 `json:"installedClosedLimitTiltDdegree,omitempty"`
	TurnaroundGuardTime             *uint8  `json:"turnaroundGuardTime,omitempty"`
	LiftToTiltTransitionSteps       *uint16 `json:"liftToTiltTransitionSteps,omitempty"`
	TotalSteps                      *uint16 `json:"totalSteps,omitempty"`
	LiftToTiltTransitionSteps2      *uint16 `json:"liftToTiltTransitionSteps2,omitempty"`
	TotalSteps2                     *uint16 `json:"totalSteps2,omitempty"`

	OpenToClosedS          *float64 `json:"open_to_closed_s,omitempty"`
	ClosedToOpenS          *float64 `json:"closed_to_open_s,omitempty"`
	LiftToTiltTransitionMs *float64 `json:"lift_to_tilt_transition_ms,omitempty"`
}

// stepsPerSecond returns the conversion rate, defaulting to 50 steps/s.
func (r *Request) stepsPerSecond() float64 {
	if r.StepsPerSecond == nil {
		return 50
	}
	return *r.StepsPerSecond
}

// Validate rejects a request before any attribute is touched.
func (r *Request) Validate() error {
	if r.StepsPerSecond != nil && *r.StepsPerSecond <= 0 {
		return fmt.Errorf("calibration: steps_per_second must be positive, got %v", *r.StepsPerSecond)
	}
	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"open_to_closed_s", r.OpenToClosedS},
		{"closed_to_open_s", r.ClosedToOpenS},
		{"lift_to_tilt_transition_ms", r.LiftToTiltTransitionMs},
	} {
		if f.value != nil && *f.value < 0 {
			return fmt.Errorf("calibration: %s must not be negative, got %v", f.name, *f.value)
		}
	}
	return nil
}

// toSteps converts a duration-based convenience value to a step count,
// rounding half away from zero.
func toSteps(value, stepsPerSecond float64) uint16 {
	steps := value * stepsPerSecond
	return uint16(steps + 0.5)
}
