package clusters

import "zigbee-go-setup/internal/zcl"

// MultistateInput models the physical inputs of multi-channel wall
// controllers; PresentValue reports the input event edge.
var MultistateInput = zcl.ClusterDef{
	ID:   0x0012,
	Name: "Multistate Input (Basic)",
	Attributes: []zcl.AttributeDef{
		{ID: 0x001C, Name: "Description", Type: zcl.TypeCharStr, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x004A, Name: "NumberOfStates", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0051, Name: "OutOfService", Type: zcl.TypeBool, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0055, Name: "PresentValue", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite | zcl.AccessReport},
		{ID: 0x006F, Name: "StatusFlags", Type: zcl.TypeBitmap8, Access: zcl.AccessRead | zcl.AccessReport},
	},
}
