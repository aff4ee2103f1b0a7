package clusters

import "zigbee-go-setup/internal/zcl"

// VendorCode is the manufacturer code carried by the vendor-specific
// calibration attributes (0x1000 range) of the Window Covering cluster.
const VendorCode uint16 = 0x10F2

var WindowCovering = zcl.ClusterDef{
	ID:   0x0102,
	Name: "Window Covering",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "WindowCoveringType", Type: zcl.TypeEnum8, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0001, Name: "PhysicalClosedLimitLiftCm", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0002, Name: "PhysicalClosedLimitTiltDdegree", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0003, Name: "CurrentPositionLiftCm", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0004, Name: "CurrentPositionTiltDdegree", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0007, Name: "ConfigStatus", Type: zcl.TypeBitmap8, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0008, Name: "CurrentPositionLiftPercentage", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0009, Name: "CurrentPositionTiltPercentage", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x000A, Name: "OperationalStatus", Type: zcl.TypeBitmap8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0010, Name: "InstalledOpenLimitLiftCm", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0011, Name: "InstalledClosedLimitLiftCm", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0012, Name: "InstalledOpenLimitTiltDdegree", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0013, Name: "InstalledClosedLimitTiltDdegree", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0017, Name: "Mode", Type: zcl.TypeBitmap8, Access: zcl.AccessRead | zcl.AccessWrite},

		// Vendor extensions: turnaround guard and the step counters the
		// actuator learns during calibration.
		{ID: 0x1000, Name: "TurnaroundGuardTime", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessWrite, ManufacturerCode: VendorCode},
		{ID: 0x1001, Name: "LiftToTiltTransitionSteps", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite, ManufacturerCode: VendorCode},
		{ID: 0x1002, Name: "TotalSteps", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite, ManufacturerCode: VendorCode},
		{ID: 0x1003, Name: "LiftToTiltTransitionSteps2", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite, ManufacturerCode: VendorCode},
		{ID: 0x1004, Name: "TotalSteps2", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite, ManufacturerCode: VendorCode},
		{ID: 0x1005, Name: "AdditionalOperationalStatusBits", Type: zcl.TypeBitmap8, Access: zcl.AccessRead, ManufacturerCode: VendorCode},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "UpOpen", Direction: zcl.DirectionToServer},
		{ID: 0x01, Name: "DownClose", Direction: zcl.DirectionToServer},
		{ID: 0x02, Name: "Stop", Direction: zcl.DirectionToServer},
		{ID: 0x04, Name: "GoToLiftValue", Direction: zcl.DirectionToServer},
		{ID: 0x05, Name: "GoToLiftPercentage", Direction: zcl.DirectionToServer},
		{ID: 0x07, Name: "GoToTiltValue", Direction: zcl.DirectionToServer},
		{ID: 0x08, Name: "GoToTiltPercentage", Direction: zcl.DirectionToServer},
	},
}
