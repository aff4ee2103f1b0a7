package actions

import (
	"context"
	"fmt"

	"zigbee-go-setup/internal/transport"
	"zigbee-go-setup/internal/zcl"
)

// Device Setup cluster identity on the management endpoint.
const (
	deviceSetupCluster = "Device Setup"

	attrInputConfigurations uint16 = 0x0000
	attrInputActions        uint16 = 0x0001
)

// Writer stores compiled (or raw) binding-table rows and input configurations
// on a device's management endpoint. Older firmware only accepts the array
// value through a conventional attribute write; newer firmware takes a
// structured write addressing the attribute by ID, which the device handles
// without resetting inputs it is not told about.
type Writer struct {
	Endpoint   *transport.Endpoint
	Structured bool
}

// WriteInputActions compiles nothing; it stores already-expanded instructions.
func (w *Writer) WriteInputActions(ctx context.Context, instructions []Instruction) error {
	rows := make([][]byte, len(instructions))
	for i, in := range instructions {
		rows[i] = in.Bytes()
	}
	return w.WriteRawInputActions(ctx, rows)
}

// WriteRawInputActions stores raw binding-table rows, bypassing the compiler.
func (w *Writer) WriteRawInputActions(ctx context.Context, rows [][]byte) error {
	elements := make([][]byte, len(rows))
	for i, row := range rows {
		if len(row) > 0xFF {
			return fmt.Errorf("input action row %d too long: %d bytes", i, len(row))
		}
		// Octet string elements carry their own length prefix.
		el := make([]byte, 0, len(row)+1)
		el = append(el, byte(len(row)))
		el = append(el, row...)
		elements[i] = el
	}
	arr := zcl.Array{ElementType: zcl.TypeOctetStr, Elements: elements}
	return w.writeArray(ctx, "InputActions", attrInputActions, arr)
}

// WriteInputConfigurations stores the per-input configuration flags.
func (w *Writer) WriteInputConfigurations(ctx context.Context, configs []uint8) error {
	elements := make([][]byte, len(configs))
	for i, c := range configs {
		elements[i] = []byte{c}
	}
	arr := zcl.Array{ElementType: zcl.TypeData8, Elements: elements}
	return w.writeArray(ctx, "InputConfigurations", attrInputConfigurations, arr)
}

// writeArray picks the transport form for the firmware generation. Both forms
// carry the same array payload.
func (w *Writer) writeArray(ctx context.Context, attrName string, attrID uint16, arr zcl.Array) error {
	if w.Structured {
		elementData, err := zcl.EncodeArray(arr)
		if err != nil {
			return fmt.Errorf("encode %s: %w", attrName, err)
		}
		return w.Endpoint.WriteStructured(ctx, deviceSetupCluster, []transport.StructuredRecord{
			{AttrID: attrID, DataType: zcl.TypeArray, ElementData: elementData},
		})
	}
	return w.Endpoint.Write(ctx, deviceSetupCluster, map[string]interface{}{attrName: arr})
}
