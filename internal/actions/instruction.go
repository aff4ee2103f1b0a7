// Package actions compiles declarative input-action templates into the raw
// binding-table rows a multi-input device stores in its Device Setup cluster,
// and writes them using the attribute-write form the firmware supports.
package actions

// Input event transition masks used in binding-table rows.
const (
	maskReleased     = 0x03 // released after press
	maskPressHold    = 0x06 // pressed and held
	maskPressed      = 0x07 // pressed (momentary trigger)
	maskShortRelease = 0x0B // released before the hold threshold
	maskToggleEdge   = 0x0D // both edges of a toggle/rocker
	maskLongPress    = 0x86 // long press, primary direction
	maskLongPressAlt = 0xC6 // long press, alternating direction
)

// Target cluster and command IDs.
const (
	clusterOnOff          uint16 = 0x0006
	clusterLevelControl   uint16 = 0x0008
	clusterScenes         uint16 = 0x0005
	clusterWindowCovering uint16 = 0x0102

	cmdOff    = 0x00
	cmdOn     = 0x01
	cmdToggle = 0x02

	cmdMove          = 0x01
	cmdLevelStop     = 0x03
	cmdMoveWithOnOff = 0x05
	dirUp            = 0x00
	dirDown          = 0x01

	cmdRecallScene = 0x05

	cmdCoverOpen  = 0x00
	cmdCoverClose = 0x01
	cmdCoverStop  = 0x02
)

// Instruction is one binding-table row: a physical input event mapped to a
// command sent to a cluster on one of the device's own endpoints.
type Instruction struct {
	Input    uint8  // physical input index
	Event    uint8  // transition mask
	Endpoint uint8  // target endpoint on the device
	Cluster  uint16 // target cluster
	Client   bool   // bound against the client side of the cluster
	Command  uint8
	Payload  []byte // command parameters, if any
}

// Bytes serializes the row. Layout: input, event mask, endpoint, cluster low
// byte, client flag, command, payload. Client-bound targets all sit in the
// 0x01xx closures range, so the flag byte doubles as the cluster high byte.
func (in Instruction) Bytes() []byte {
	row := make([]byte, 0, 6+len(in.Payload))
	client := byte(0)
	if in.Client {
		client = 1
	}
	row = append(row, in.Input, in.Event, in.Endpoint, byte(in.Cluster), client, in.Command)
	row = append(row, in.Payload...)
	return row
}
