package clusters

import "zigbee-go-setup/internal/zcl"

// DeviceSetup is the vendor cluster holding the physical input configuration.
// InputConfigurations is an array of data8 flags (one per physical input);
// InputActions is an array of octet strings, one binding-table row each.
// It lives on the device-management endpoint, not the application endpoints.
var DeviceSetup = zcl.ClusterDef{
	ID:   0xFC00,
	Name: "Device Setup",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "InputConfigurations", Type: zcl.TypeArray, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0001, Name: "InputActions", Type: zcl.TypeArray, Access: zcl.AccessRead | zcl.AccessWrite},
	},
}
