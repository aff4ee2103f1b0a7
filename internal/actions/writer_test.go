package actions

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"zigbee-go-setup/internal/transport"
	"zigbee-go-setup/internal/zcl"
	"zigbee-go-setup/internal/zcl/clusters"
)

// recordingTransport captures requests without talking to any device.
type recordingTransport struct {
	writes     []transport.WriteRequest
	structured []transport.WriteStructuredRequest
}

func (r *recordingTransport) ReadAttributes(context.Context, transport.ReadRequest) ([]transport.AttributeResponse, error) {
	return nil, nil
}

func (r *recordingTransport) WriteAttributes(_ context.Context, req transport.WriteRequest) error {
	r.writes = append(r.writes, req)
	return nil
}

func (r *recordingTransport) WriteStructured(_ context.Context, req transport.WriteStructuredRequest) error {
	r.structured = append(r.structured, req)
	return nil
}

func (r *recordingTransport) SendCommand(context.Context, transport.CommandRequest) error {
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func setupEndpoint(rt *recordingTransport) *transport.Endpoint {
	registry := zcl.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	clusters.RegisterAll(registry)
	return transport.NewEndpoint(rt, registry, 0x1234, 232)
}

func TestWriteInputActionsLegacy(t *testing.T) {
	rt := &recordingTransport{}
	w := &Writer{Endpoint: setupEndpoint(rt)}

	instructions, err := Compile([]Template{{Type: "toggle"}}, "S1")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := w.WriteInputActions(context.Background(), instructions); err != nil {
		t.Fatalf("WriteInputActions() error = %v", err)
	}

	if len(rt.writes) != 1 || len(rt.structured) != 0 {
		t.Fatalf("got %d plain and %d structured writes, want 1 and 0", len(rt.writes), len(rt.structured))
	}
	req := rt.writes[0]
	if req.ClusterID != 0xFC00 {
		t.Errorf("cluster = 0x%04X, want 0xFC00", req.ClusterID)
	}
	if len(req.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(req.Records))
	}
	rec := req.Records[0]
	if rec.AttrID != attrInputActions {
		t.Errorf("attr = 0x%04X, want 0x%04X", rec.AttrID, attrInputActions)
	}
	if rec.DataType != zcl.TypeArray {
		t.Errorf("data type = 0x%02X, want 0x%02X", rec.DataType, zcl.TypeArray)
	}
	want := []byte{
		zcl.TypeOctetStr, 0x01, 0x00, // element type, count
		0x06, 0x00, 0x0D, 0x02, 0x06, 0x00, 0x02, // length-prefixed row
	}
	if !bytes.Equal(rec.Value, want) {
		t.Errorf("value = %v, want %v", rec.Value, want)
	}
}

func TestWriteInputActionsStructured(t *testing.T) {
	rt := &recordingTransport{}
	w := &Writer{Endpoint: setupEndpoint(rt), Structured: true}

	instructions, err := Compile([]Template{{Type: "toggle"}}, "S1")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := w.WriteInputActions(context.Background(), instructions); err != nil {
		t.Fatalf("WriteInputActions() error = %v", err)
	}

	if len(rt.structured) != 1 || len(rt.writes) != 0 {
		t.Fatalf("got %d structured and %d plain writes, want 1 and 0", len(rt.structured), len(rt.writes))
	}
	req := rt.structured[0]
	if req.ClusterID != 0xFC00 {
		t.Errorf("cluster = 0x%04X, want 0xFC00", req.ClusterID)
	}
	if len(req.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(req.Records))
	}
	rec := req.Records[0]
	if rec.AttrID != attrInputActions {
		t.Errorf("attr = 0x%04X, want 0x%04X", rec.AttrID, attrInputActions)
	}
	if rec.DataType != zcl.TypeArray {
		t.Errorf("data type = 0x%02X, want 0x%02X", rec.DataType, zcl.TypeArray)
	}
}

// The two write forms carry the same array payload; only the transport shape
// differs.
func TestWriteFormsEncodeSamePayload(t *testing.T) {
	instructions, err := Compile([]Template{{Type: "toggle_switch"}, {Type: "dimmer_single"}}, "S2")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	legacyRT := &recordingTransport{}
	legacy := &Writer{Endpoint: setupEndpoint(legacyRT)}
	if err := legacy.WriteInputActions(context.Background(), instructions); err != nil {
		t.Fatalf("legacy WriteInputActions() error = %v", err)
	}

	structRT := &recordingTransport{}
	structured := &Writer{Endpoint: setupEndpoint(structRT), Structured: true}
	if err := structured.WriteInputActions(context.Background(), instructions); err != nil {
		t.Fatalf("structured WriteInputActions() error = %v", err)
	}

	legacyPayload := legacyRT.writes[0].Records[0].Value
	structPayload := structRT.structured[0].Records[0].ElementData
	if !bytes.Equal(legacyPayload, structPayload) {
		t.Errorf("payloads differ:\nlegacy     = %v\nstructured = %v", legacyPayload, structPayload)
	}
}

func TestWriteRawInputActions(t *testing.T) {
	rt := &recordingTransport{}
	w := &Writer{Endpoint: setupEndpoint(rt)}

	rows := [][]byte{
		{0x00, 0x0D, 0x02, 0x06, 0x00, 0x02},
		{0x01, 0x0D, 0x03, 0x06, 0x00, 0x02},
	}
	if err := w.WriteRawInputActions(context.Background(), rows); err != nil {
		t.Fatalf("WriteRawInputActions() error = %v", err)
	}
	rec := rt.writes[0].Records[0]
	want := []byte{
		zcl.TypeOctetStr, 0x02, 0x00,
		0x06, 0x00, 0x0D, 0x02, 0x06, 0x00, 0x02,
		0x06, 0x01, 0x0D, 0x03, 0x06, 0x00, 0x02,
	}
	if !bytes.Equal(rec.Value, want) {
		t.Errorf("value = %v, want %v", rec.Value, want)
	}
}

func TestWriteInputConfigurations(t *testing.T) {
	rt := &recordingTransport{}
	w := &Writer{Endpoint: setupEndpoint(rt)}

	if err := w.WriteInputConfigurations(context.Background(), []uint8{0x00, 0x80}); err != nil {
		t.Fatalf("WriteInputConfigurations() error = %v", err)
	}
	rec := rt.writes[0].Records[0]
	if rec.AttrID != attrInputConfigurations {
		t.Errorf("attr = 0x%04X, want 0x%04X", rec.AttrID, attrInputConfigurations)
	}
	want := []byte{zcl.TypeData8, 0x02, 0x00, 0x00, 0x80}
	if !bytes.Equal(rec.Value, want) {
		t.Errorf("value = %v, want %v", rec.Value, want)
	}
}
