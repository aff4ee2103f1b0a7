package zcl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ZCL data type IDs
const (
	TypeNoData   uint8 = 0x00
	TypeData8    uint8 = 0x08
	TypeBool     uint8 = 0x10
	TypeBitmap8  uint8 = 0x18
	TypeBitmap16 uint8 = 0x19
	TypeBitmap32 uint8 = 0x1B
	TypeUint8    uint8 = 0x20
	TypeUint16   uint8 = 0x21
	TypeUint32   uint8 = 0x23
	TypeInt8     uint8 = 0x28
	TypeInt16    uint8 = 0x29
	TypeInt32    uint8 = 0x2B
	TypeEnum8    uint8 = 0x30
	TypeEnum16   uint8 = 0x31
	TypeOctetStr uint8 = 0x41
	TypeCharStr  uint8 = 0x42
	TypeArray    uint8 = 0x48
)

// Array is a ZCL array value: a homogeneous list of pre-encoded elements.
// Wire format: element_type(1) + count(2 LE) + concatenated elements.
type Array struct {
	ElementType uint8
	Elements    [][]byte
}

// TypeSize returns the fixed size in bytes of a ZCL type, or -1 for
// variable-length types.
func TypeSize(typeID uint8) int {
	switch typeID {
	case TypeNoData:
		return 0
	case TypeData8, TypeBool, TypeUint8, TypeInt8, TypeEnum8, TypeBitmap8:
		return 1
	case TypeUint16, TypeInt16, TypeEnum16, TypeBitmap16:
		return 2
	case TypeUint32, TypeInt32, TypeBitmap32:
		return 4
	default:
		return -1
	}
}

// TypeName returns a human-readable name for a ZCL type.
func TypeName(typeID uint8) string {
	switch typeID {
	case TypeNoData:
		return "nodata"
	case TypeData8:
		return "data8"
	case TypeBool:
		return "bool"
	case TypeBitmap8:
		return "map8"
	case TypeBitmap16:
		return "map16"
	case TypeBitmap32:
		return "map32"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeEnum8:
		return "enum8"
	case TypeEnum16:
		return "enum16"
	case TypeOctetStr:
		return "octstr"
	case TypeCharStr:
		return "string"
	case TypeArray:
		return "array"
	default:
		return fmt.Sprintf("0x%02X", typeID)
	}
}

// DecodeValue decodes a ZCL typed value from raw bytes, returning the Go value
// and bytes consumed.
func DecodeValue(typeID uint8, data []byte) (interface{}, int, error) {
	size := TypeSize(typeID)
	if size == 0 {
		return nil, 0, nil
	}
	if size < 0 {
		return decodeVariableValue(typeID, data)
	}
	if len(data) < size {
		return nil, 0, fmt.Errorf("zcl: not enough data for type 0x%02X: need %d, have %d", typeID, size, len(data))
	}

	switch typeID {
	case TypeBool:
		return data[0] != 0, 1, nil
	case TypeData8, TypeUint8, TypeEnum8, TypeBitmap8:
		return data[0], 1, nil
	case TypeUint16, TypeEnum16, TypeBitmap16:
		return binary.LittleEndian.Uint16(data[:2]), 2, nil
	case TypeUint32, TypeBitmap32:
		return binary.LittleEndian.Uint32(data[:4]), 4, nil
	case TypeInt8:
		return int8(data[0]), 1, nil
	case TypeInt16:
		return int16(binary.LittleEndian.Uint16(data[:2])), 2, nil
	case TypeInt32:
		return int32(binary.LittleEndian.Uint32(data[:4])), 4, nil
	}

	return data[:size], size, nil
}

func decodeVariableValue(typeID uint8, data []byte) (interface{}, int, error) {
	switch typeID {
	case TypeOctetStr, TypeCharStr:
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("zcl: no length byte for string type")
		}
		length := int(data[0])
		if length == 0xFF {
			return nil, 1, nil // invalid marker
		}
		if len(data) < 1+length {
			return nil, 0, fmt.Errorf("zcl: string truncated: need %d, have %d", length, len(data)-1)
		}
		if typeID == TypeCharStr {
			return string(data[1 : 1+length]), 1 + length, nil
		}
		b := make([]byte, length)
		copy(b, data[1:1+length])
		return b, 1 + length, nil

	case TypeArray:
		if len(data) < 3 {
			return nil, 0, fmt.Errorf("zcl: array header truncated")
		}
		elemType := data[0]
		count := int(binary.LittleEndian.Uint16(data[1:3]))
		pos := 3
		arr := Array{ElementType: elemType}
		for i := 0; i < count; i++ {
			_, consumed, err := DecodeValue(elemType, data[pos:])
			if err != nil {
				return nil, 0, fmt.Errorf("zcl: array element %d: %w", i, err)
			}
			el := make([]byte, consumed)
			copy(el, data[pos:pos+consumed])
			arr.Elements = append(arr.Elements, el)
			pos += consumed
		}
		return arr, pos, nil
	}

	return nil, 0, fmt.Errorf("zcl: unsupported variable type 0x%02X", typeID)
}

// EncodeValue encodes a Go value into ZCL wire format.
func EncodeValue(typeID uint8, val interface{}) ([]byte, error) {
	switch typeID {
	case TypeBool:
		v, ok := toBool(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to bool", val)
		}
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case TypeData8, TypeUint8, TypeEnum8, TypeBitmap8:
		v, ok := toUint64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to uint8", val)
		}
		if v > math.MaxUint8 {
			return nil, fmt.Errorf("zcl: value %d overflows uint8 (max %d)", v, math.MaxUint8)
		}
		return []byte{uint8(v)}, nil

	case TypeUint16, TypeEnum16, TypeBitmap16:
		v, ok := toUint64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to uint16", val)
		}
		if v > math.MaxUint16 {
			return nil, fmt.Errorf("zcl: value %d overflows uint16 (max %d)", v, math.MaxUint16)
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(v))
		return buf, nil

	case TypeUint32, TypeBitmap32:
		v, ok := toUint64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to uint32", val)
		}
		if v > uint64(math.MaxUint32) {
			return nil, fmt.Errorf("zcl: value %d overflows uint32 (max %d)", v, uint64(math.MaxUint32))
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return buf, nil

	case TypeInt8:
		v, ok := toInt64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to int8", val)
		}
		if v < math.MinInt8 || v > math.MaxInt8 {
			return nil, fmt.Errorf("zcl: value %d overflows int8 (range %d..%d)", v, math.MinInt8, math.MaxInt8)
		}
		return []byte{byte(int8(v))}, nil

	case TypeInt16:
		v, ok := toInt64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to int16", val)
		}
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, fmt.Errorf("zcl: value %d overflows int16 (range %d..%d)", v, math.MinInt16, math.MaxInt16)
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
		return buf, nil

	case TypeInt32:
		v, ok := toInt64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to int32", val)
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("zcl: value %d overflows int32 (range %d..%d)", v, math.MinInt32, math.MaxInt32)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
		return buf, nil

	case TypeCharStr:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to string", val)
		}
		if len(s) > 254 {
			return nil, fmt.Errorf("zcl: string too long for CharStr: %d (max 254)", len(s))
		}
		buf := make([]byte, 1+len(s))
		buf[0] = uint8(len(s))
		copy(buf[1:], s)
		return buf, nil

	case TypeOctetStr:
		b, ok := val.([]byte)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to []byte", val)
		}
		if len(b) > 254 {
			return nil, fmt.Errorf("zcl: data too long for OctetStr: %d (max 254)", len(b))
		}
		buf := make([]byte, 1+len(b))
		buf[0] = uint8(len(b))
		copy(buf[1:], b)
		return buf, nil

	case TypeArray:
		arr, ok := val.(Array)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to Array", val)
		}
		return EncodeArray(arr)
	}

	return nil, fmt.Errorf("zcl: encode not implemented for type 0x%02X", typeID)
}

// EncodeArray serializes a ZCL array value. Elements are expected to already
// carry their per-element framing (e.g. the length byte of an octet string).
func EncodeArray(arr Array) ([]byte, error) {
	if len(arr.Elements) > math.MaxUint16 {
		return nil, fmt.Errorf("zcl: array too long: %d elements", len(arr.Elements))
	}
	buf := make([]byte, 3, 3+len(arr.Elements)*4)
	buf[0] = arr.ElementType
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(arr.Elements)))
	for _, el := range arr.Elements {
		buf = append(buf, el...)
	}
	return buf, nil
}

func toBool(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case float64:
		return val != 0, true
	case int:
		return val != 0, true
	}
	return false, false
}

func toUint64(v interface{}) (uint64, bool) {
	switch val := v.(type) {
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	case int:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case int64:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case float64:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	}
	return 0, false
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case int:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case float64:
		if val > math.MaxInt64 || val < math.MinInt64 {
			return 0, false
		}
		return int64(val), true
	}
	return 0, false
}
