package transport

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"zigbee-go-setup/internal/zcl"
	"zigbee-go-setup/internal/zcl/clusters"
)

type recordingTransport struct {
	reads    []ReadRequest
	writes   []WriteRequest
	commands []CommandRequest

	readResp []AttributeResponse
}

func (r *recordingTransport) ReadAttributes(_ context.Context, req ReadRequest) ([]AttributeResponse, error) {
	r.reads = append(r.reads, req)
	return r.readResp, nil
}

func (r *recordingTransport) WriteAttributes(_ context.Context, req WriteRequest) error {
	r.writes = append(r.writes, req)
	return nil
}

func (r *recordingTransport) WriteStructured(context.Context, WriteStructuredRequest) error {
	return nil
}

func (r *recordingTransport) SendCommand(_ context.Context, req CommandRequest) error {
	r.commands = append(r.commands, req)
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func newTestEndpoint(rt *recordingTransport) *Endpoint {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := zcl.NewRegistry(logger)
	clusters.RegisterAll(registry)
	return NewEndpoint(rt, registry, 0x4F21, 1)
}

func TestEndpointReadVendorAttribute(t *testing.T) {
	rt := &recordingTransport{
		readResp: []AttributeResponse{
			{AttrID: 0x1002, Status: 0, DataType: zcl.TypeUint16, Value: []byte{0xF4, 0x01}},
		},
	}
	ep := newTestEndpoint(rt)

	vals, err := ep.Read(context.Background(), "Window Covering", []string{"TotalSteps"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := vals["TotalSteps"]; got != uint16(500) {
		t.Errorf("TotalSteps = %v, want 500", got)
	}

	req := rt.reads[0]
	if req.Options.ManufacturerCode != clusters.VendorCode {
		t.Errorf("manufacturer code = 0x%04X, want 0x%04X", req.Options.ManufacturerCode, clusters.VendorCode)
	}
	if req.ClusterID != 0x0102 || req.Addr != 0x4F21 || req.Endpoint != 1 {
		t.Errorf("request header = %+v", req)
	}
}

func TestEndpointReadSkipsFailedAttributes(t *testing.T) {
	rt := &recordingTransport{
		readResp: []AttributeResponse{
			{AttrID: 0x0017, Status: 0, DataType: zcl.TypeBitmap8, Value: []byte{0x04}},
			{AttrID: 0x000A, Status: 0x86},
		},
	}
	ep := newTestEndpoint(rt)

	vals, err := ep.Read(context.Background(), "Window Covering", []string{"Mode", "OperationalStatus"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, ok := vals["OperationalStatus"]; ok {
		t.Error("unsupported attribute present in result")
	}
	if got := vals["Mode"]; got != uint8(0x04) {
		t.Errorf("Mode = %v, want 4", got)
	}
}

func TestEndpointWriteSortedRecords(t *testing.T) {
	rt := &recordingTransport{}
	ep := newTestEndpoint(rt)

	err := ep.Write(context.Background(), "Window Covering", map[string]interface{}{
		"InstalledClosedLimitLiftCm": uint16(240),
		"InstalledOpenLimitLiftCm":   uint16(0),
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	recs := rt.writes[0].Records
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].AttrID != 0x0010 || recs[1].AttrID != 0x0011 {
		t.Errorf("record order = 0x%04X, 0x%04X, want ascending attr IDs", recs[0].AttrID, recs[1].AttrID)
	}
}

func TestEndpointWriteRejectsReadOnly(t *testing.T) {
	ep := newTestEndpoint(&recordingTransport{})

	err := ep.Write(context.Background(), "Window Covering", map[string]interface{}{
		"OperationalStatus": uint8(0),
	})
	if err == nil {
		t.Error("Write() accepted read-only attribute")
	}
}

func TestEndpointCommandByName(t *testing.T) {
	rt := &recordingTransport{}
	ep := newTestEndpoint(rt)

	if err := ep.Command(context.Background(), "Window Covering", "Stop", nil); err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if rt.commands[0].CommandID != 0x02 {
		t.Errorf("command id = 0x%02X, want 0x02", rt.commands[0].CommandID)
	}
}

func TestEndpointAt(t *testing.T) {
	ep := newTestEndpoint(&recordingTransport{})
	if got := ep.At(232).ID(); got != 232 {
		t.Errorf("At(232).ID() = %d", got)
	}
	if ep.ID() != 1 {
		t.Errorf("original endpoint changed: %d", ep.ID())
	}
}

func TestEndpointUnknownNames(t *testing.T) {
	ep := newTestEndpoint(&recordingTransport{})
	ctx := context.Background()

	if _, err := ep.Read(ctx, "No Such Cluster", []string{"Mode"}); err == nil {
		t.Error("Read() accepted unknown cluster")
	}
	if _, err := ep.Read(ctx, "Window Covering", []string{"Bogus"}); err == nil {
		t.Error("Read() accepted unknown attribute")
	}
	if err := ep.Command(ctx, "Window Covering", "Bogus", nil); err == nil {
		t.Error("Command() accepted unknown command")
	}
}
