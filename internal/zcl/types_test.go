package zcl

import (
	"bytes"
	"testing"
)

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name     string
		typeID   uint8
		data     []byte
		want     interface{}
		consumed int
	}{
		{"bitmap8", TypeBitmap8, []byte{0x04}, uint8(0x04), 1},
		{"uint16", TypeUint16, []byte{0xF4, 0x01}, uint16(500), 2},
		{"int16 negative", TypeInt16, []byte{0xFF, 0xFF}, int16(-1), 2},
		{"bool", TypeBool, []byte{0x01}, true, 1},
		{"charstr", TypeCharStr, []byte{5, '1', '.', '9', '.', '2'}, "1.9.2", 6},
		{"charstr invalid marker", TypeCharStr, []byte{0xFF}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, consumed, err := DecodeValue(tt.typeID, tt.data)
			if err != nil {
				t.Fatalf("DecodeValue() error = %v", err)
			}
			if got != tt.want || consumed != tt.consumed {
				t.Errorf("DecodeValue() = %v (%d bytes), want %v (%d bytes)", got, consumed, tt.want, tt.consumed)
			}
		})
	}
}

func TestDecodeValueTruncated(t *testing.T) {
	tests := []struct {
		name   string
		typeID uint8
		data   []byte
	}{
		{"uint16 short", TypeUint16, []byte{0x01}},
		{"charstr short", TypeCharStr, []byte{5, 'a'}},
		{"charstr no length", TypeCharStr, nil},
		{"array no header", TypeArray, []byte{0x08}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeValue(tt.typeID, tt.data); err == nil {
				t.Errorf("DecodeValue(0x%02X, % X) succeeded", tt.typeID, tt.data)
			}
		})
	}
}

func TestDecodeArrayRoundTrip(t *testing.T) {
	arr := Array{
		ElementType: TypeData8,
		Elements:    [][]byte{{0x00}, {0x00}, {0x80}},
	}
	encoded, err := EncodeArray(arr)
	if err != nil {
		t.Fatalf("EncodeArray() error = %v", err)
	}
	want := []byte{TypeData8, 0x03, 0x00, 0x00, 0x00, 0x80}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("EncodeArray() = % X, want % X", encoded, want)
	}

	decoded, consumed, err := DecodeValue(TypeArray, encoded)
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if consumed != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", consumed, len(encoded))
	}
	got := decoded.(Array)
	if got.ElementType != TypeData8 || len(got.Elements) != 3 {
		t.Errorf("decoded array = %+v", got)
	}
}

func TestDecodeArrayOfOctetStrings(t *testing.T) {
	// Two rows, each framed with its own length byte.
	data := []byte{
		TypeOctetStr, 0x02, 0x00,
		0x03, 0xAA, 0xBB, 0xCC,
		0x02, 0x11, 0x22,
	}
	decoded, consumed, err := DecodeValue(TypeArray, data)
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if consumed != len(data) {
		t.Errorf("consumed %d bytes, want %d", consumed, len(data))
	}
	arr := decoded.(Array)
	if len(arr.Elements) != 2 {
		t.Fatalf("got %d elements, want 2", len(arr.Elements))
	}
	if !bytes.Equal(arr.Elements[0], []byte{0x03, 0xAA, 0xBB, 0xCC}) {
		t.Errorf("element 0 = % X, want length-framed bytes", arr.Elements[0])
	}
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name   string
		typeID uint8
		val    interface{}
		want   []byte
	}{
		{"uint16", TypeUint16, uint16(0xFFFF), []byte{0xFF, 0xFF}},
		{"uint16 from int", TypeUint16, 240, []byte{0xF0, 0x00}},
		{"bitmap8", TypeBitmap8, uint8(0x02), []byte{0x02}},
		{"enum8", TypeEnum8, uint8(0x08), []byte{0x08}},
		{"octetstr adds length", TypeOctetStr, []byte{0xAA, 0xBB}, []byte{0x02, 0xAA, 0xBB}},
		{"charstr adds length", TypeCharStr, "J1", []byte{0x02, 'J', '1'}},
		{"int16 negative", TypeInt16, int16(-1), []byte{0xFF, 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(tt.typeID, tt.val)
			if err != nil {
				t.Fatalf("EncodeValue() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeValue() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestEncodeValueRejects(t *testing.T) {
	tests := []struct {
		name   string
		typeID uint8
		val    interface{}
	}{
		{"uint8 overflow", TypeUint8, 256},
		{"uint16 overflow", TypeUint16, 0x10000},
		{"negative to unsigned", TypeUint16, -1},
		{"wrong type for octetstr", TypeOctetStr, "not bytes"},
		{"wrong type for array", TypeArray, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeValue(tt.typeID, tt.val); err == nil {
				t.Errorf("EncodeValue(0x%02X, %v) succeeded", tt.typeID, tt.val)
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	if got := TypeName(TypeArray); got != "array" {
		t.Errorf("TypeName(TypeArray) = %q", got)
	}
	if got := TypeName(0xEE); got != "0xEE" {
		t.Errorf("TypeName(0xEE) = %q", got)
	}
}
