package calibration

import "context"

// Report is the union of the three grouped configuration reads, keyed by
// attribute name.
type Report map[string]interface{}

// The three read groups: geometry, live position/status, vendor step counts.
// Vendor attributes carry a manufacturer code, so they travel in their own
// request.
var (
	geometryAttrs = []string{
		"WindowCoveringType",
		"PhysicalClosedLimitLiftCm",
		"PhysicalClosedLimitTiltDdegree",
		"InstalledOpenLimitLiftCm",
		"InstalledClosedLimitLiftCm",
		"InstalledOpenLimitTiltDdegree",
		"InstalledClosedLimitTiltDdegree",
		"ConfigStatus",
		"Mode",
	}
	statusAttrs = []string{
		"CurrentPositionLiftCm",
		"CurrentPositionTiltDdegree",
		"CurrentPositionLiftPercentage",
		"CurrentPositionTiltPercentage",
		"OperationalStatus",
	}
	vendorAttrs = []string{
		"TurnaroundGuardTime",
		"LiftToTiltTransitionSteps",
		"TotalSteps",
		"LiftToTiltTransitionSteps2",
		"TotalSteps2",
	}
)

// Report reads back the full covering configuration. Attributes the device
// declines to report are absent from the result rather than an error.
func (o *Orchestrator) Report(ctx context.Context) (Report, error) {
	report := Report{}
	for _, group := range [][]string{geometryAttrs, statusAttrs, vendorAttrs} {
		vals, err := o.ep.Read(ctx, windowCoveringCluster, group)
		if err != nil {
			return nil, err
		}
		for name, val := range vals {
			report[name] = val
		}
	}
	return report, nil
}
