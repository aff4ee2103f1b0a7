package transport

import (
	"encoding/binary"
	"fmt"
)

// Serial gateway wire protocol. Each message travels in one flag-delimited
// frame:
//
//	0x7E | escaped(seq type payload... crc16) | 0x7E
//
// crc16 (CCITT, init 0xFFFF) covers seq through payload, little-endian on the
// wire. 0x7E and 0x7D inside the body are escaped as 0x7D, byte^0x20.
// A response echoes the request seq with the response bit set on the type.
const (
	frameFlag   = 0x7E
	frameEscape = 0x7D
	escapeXOR   = 0x20

	msgReadAttrs       = 0x01
	msgWriteAttrs      = 0x02
	msgWriteStructured = 0x03
	msgClusterCommand  = 0x04
	msgResponseBit     = 0x80
)

// crc16 computes CRC16-CCITT (init 0xFFFF) over data.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// encodeFrame wraps seq/type/payload into a flag-delimited, escaped frame.
func encodeFrame(seq, msgType uint8, payload []byte) []byte {
	body := make([]byte, 0, len(payload)+4)
	body = append(body, seq, msgType)
	body = append(body, payload...)
	crc := crc16(body)
	body = append(body, byte(crc), byte(crc>>8))

	out := make([]byte, 0, len(body)+6)
	out = append(out, frameFlag)
	for _, b := range body {
		if b == frameFlag || b == frameEscape {
			out = append(out, frameEscape, b^escapeXOR)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, frameFlag)
	return out
}

// decodeFrame unescapes and validates one frame body (the bytes between
// flags), returning seq, type and payload.
func decodeFrame(raw []byte) (seq, msgType uint8, payload []byte, err error) {
	body := make([]byte, 0, len(raw))
	esc := false
	for _, b := range raw {
		if esc {
			body = append(body, b^escapeXOR)
			esc = false
			continue
		}
		if b == frameEscape {
			esc = true
			continue
		}
		body = append(body, b)
	}
	if esc {
		return 0, 0, nil, fmt.Errorf("frame ends mid-escape")
	}
	if len(body) < 4 {
		return 0, 0, nil, fmt.Errorf("frame too short: %d bytes", len(body))
	}
	data, tail := body[:len(body)-2], body[len(body)-2:]
	if got, want := binary.LittleEndian.Uint16(tail), crc16(data); got != want {
		return 0, 0, nil, fmt.Errorf("frame crc mismatch: got 0x%04X, want 0x%04X", got, want)
	}
	return data[0], data[1], data[2:], nil
}

// Request payloads share a common header: addr(2) endpoint(1) cluster(2)
// manufacturer_code(2, zero = standard).

func encodeHeader(addr uint16, ep uint8, cluster uint16, opts Options) []byte {
	buf := make([]byte, 7)
	binary.LittleEndian.PutUint16(buf[0:2], addr)
	buf[2] = ep
	binary.LittleEndian.PutUint16(buf[3:5], cluster)
	binary.LittleEndian.PutUint16(buf[5:7], opts.ManufacturerCode)
	return buf
}

func encodeReadPayload(req ReadRequest) []byte {
	buf := encodeHeader(req.Addr, req.Endpoint, req.ClusterID, req.Options)
	buf = append(buf, byte(len(req.AttrIDs)))
	for _, id := range req.AttrIDs {
		buf = binary.LittleEndian.AppendUint16(buf, id)
	}
	return buf
}

func encodeWritePayload(req WriteRequest) []byte {
	buf := encodeHeader(req.Addr, req.Endpoint, req.ClusterID, req.Options)
	buf = append(buf, byte(len(req.Records)))
	for _, r := range req.Records {
		buf = binary.LittleEndian.AppendUint16(buf, r.AttrID)
		buf = append(buf, r.DataType)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(r.Value)))
		buf = append(buf, r.Value...)
	}
	return buf
}

func encodeWriteStructuredPayload(req WriteStructuredRequest) []byte {
	buf := encodeHeader(req.Addr, req.Endpoint, req.ClusterID, req.Options)
	buf = append(buf, byte(len(req.Records)))
	for _, r := range req.Records {
		buf = binary.LittleEndian.AppendUint16(buf, r.AttrID)
		buf = append(buf, r.DataType)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(r.ElementData)))
		buf = append(buf, r.ElementData...)
	}
	return buf
}

func encodeCommandPayload(req CommandRequest) []byte {
	buf := encodeHeader(req.Addr, req.Endpoint, req.ClusterID, req.Options)
	buf = append(buf, req.CommandID)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(req.Payload)))
	buf = append(buf, req.Payload...)
	return buf
}

// Response payloads: status(1), then for reads a record list
// [attr_id(2) status(1) data_type(1) value_len(2) value].

func decodeStatusResponse(payload []byte) error {
	if len(payload) < 1 {
		return fmt.Errorf("empty response payload")
	}
	if payload[0] != 0 {
		return fmt.Errorf("gateway status 0x%02X", payload[0])
	}
	return nil
}

func decodeReadResponse(payload []byte) ([]AttributeResponse, error) {
	if err := decodeStatusResponse(payload); err != nil {
		return nil, err
	}
	pos := 1
	var results []AttributeResponse
	for pos < len(payload) {
		if pos+6 > len(payload) {
			return nil, fmt.Errorf("read record truncated at offset %d", pos)
		}
		r := AttributeResponse{
			AttrID:   binary.LittleEndian.Uint16(payload[pos : pos+2]),
			Status:   payload[pos+2],
			DataType: payload[pos+3],
		}
		vlen := int(binary.LittleEndian.Uint16(payload[pos+4 : pos+6]))
		pos += 6
		if pos+vlen > len(payload) {
			return nil, fmt.Errorf("read value truncated: need %d bytes at offset %d", vlen, pos)
		}
		r.Value = make([]byte, vlen)
		copy(r.Value, payload[pos:pos+vlen])
		pos += vlen
		results = append(results, r)
	}
	return results, nil
}
