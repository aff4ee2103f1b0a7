package setup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"zigbee-go-setup/internal/actions"
	"zigbee-go-setup/internal/calibration"
	"zigbee-go-setup/internal/catalog"
	"zigbee-go-setup/internal/store"
	"zigbee-go-setup/internal/transport"
	"zigbee-go-setup/internal/zcl"
	"zigbee-go-setup/internal/zcl/clusters"
)

type instantSleeper struct{}

func (instantSleeper) Sleep(context.Context, time.Duration) error { return nil }

// fakeTransport answers the few attributes the flow needs and records writes.
type fakeTransport struct {
	mu         sync.Mutex
	writes     []transport.WriteRequest
	structured []transport.WriteStructuredRequest
	commands   []transport.CommandRequest
}

func (f *fakeTransport) ReadAttributes(_ context.Context, req transport.ReadRequest) ([]transport.AttributeResponse, error) {
	var out []transport.AttributeResponse
	for _, id := range req.AttrIDs {
		switch {
		case req.ClusterID == 0x0102 && id == 0x0017: // Mode
			out = append(out, transport.AttributeResponse{AttrID: id, DataType: zcl.TypeBitmap8, Value: []byte{0x00}})
		case req.ClusterID == 0x0102 && id == 0x000A: // OperationalStatus
			out = append(out, transport.AttributeResponse{AttrID: id, DataType: zcl.TypeBitmap8, Value: []byte{0x00}})
		case req.ClusterID == 0x0000 && id == 0x4000: // SWBuildID
			out = append(out, transport.AttributeResponse{AttrID: id, DataType: zcl.TypeCharStr, Value: []byte{5, '1', '.', '9', '.', '7'}})
		default:
			out = append(out, transport.AttributeResponse{AttrID: id, Status: 0x86})
		}
	}
	return out, nil
}

func (f *fakeTransport) WriteAttributes(_ context.Context, req transport.WriteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, req)
	return nil
}

func (f *fakeTransport) WriteStructured(_ context.Context, req transport.WriteStructuredRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.structured = append(f.structured, req)
	return nil
}

func (f *fakeTransport) SendCommand(_ context.Context, req transport.CommandRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, req)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func newTestService(t *testing.T) (*Service, *fakeTransport) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := zcl.NewRegistry(logger)
	clusters.RegisterAll(registry)

	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "setup.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ft := &fakeTransport{}
	svc := NewService(ft, registry, catalog.New(logger), st, NewEventBus(logger), logger)
	svc.Sleeper = instantSleeper{}
	return svc, ft
}

func registerTestDevice(t *testing.T, svc *Service, firmware string) {
	t.Helper()
	err := svc.RegisterDevice(&store.Device{
		Name:            "blind",
		Addr:            0x4F21,
		Model:           "J1",
		FirmwareVersion: firmware,
	})
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
}

func TestRegisterDeviceUnknownModel(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.RegisterDevice(&store.Device{Name: "x", Model: "QX-9"})
	if err == nil {
		t.Fatal("RegisterDevice() accepted unknown model")
	}
}

func TestCalibrateStoresReport(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestDevice(t, svc, "1.9.7")

	var events []string
	svc.Events().OnAll(func(e Event) { events = append(events, e.Type) })

	report, err := svc.Calibrate(context.Background(), "blind", &calibration.Request{})
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if report == nil {
		t.Fatal("Calibrate() returned nil report")
	}

	rec, err := svc.Store().GetCalibration("blind")
	if err != nil {
		t.Fatalf("GetCalibration() error = %v", err)
	}
	if rec.CompletedAt.IsZero() {
		t.Error("stored record has no completion time")
	}

	sawStart, sawDone := false, false
	for _, e := range events {
		switch e {
		case EventCalibrationStarted:
			sawStart = true
		case EventCalibrationDone:
			sawDone = true
		}
	}
	if !sawStart || !sawDone {
		t.Errorf("events = %v, want started and finished", events)
	}
}

func TestCalibrateSingleFlight(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestDevice(t, svc, "1.9.7")

	if err := svc.acquire("blind"); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer svc.release("blind")

	_, err := svc.Calibrate(context.Background(), "blind", &calibration.Request{})
	if !errors.Is(err, ErrCalibrationBusy) {
		t.Errorf("Calibrate() error = %v, want ErrCalibrationBusy", err)
	}
}

func TestCalibrateUnknownDevice(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Calibrate(context.Background(), "absent", &calibration.Request{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Calibrate() error = %v, want ErrNotFound", err)
	}
}

func TestApplyActionsStructuredByFirmware(t *testing.T) {
	svc, ft := newTestService(t)
	registerTestDevice(t, svc, "1.9.7")

	cmd := &ActionsCommand{
		InputActionTemplates: []actions.Template{{Type: "toggle"}},
	}
	if err := svc.ApplyActions(context.Background(), "blind", cmd); err != nil {
		t.Fatalf("ApplyActions() error = %v", err)
	}
	if len(ft.structured) != 1 || len(ft.writes) != 0 {
		t.Errorf("got %d structured and %d plain writes, want 1 and 0", len(ft.structured), len(ft.writes))
	}
	if ep := ft.structured[0].Endpoint; ep != 232 {
		t.Errorf("write endpoint = %d, want setup endpoint 232", ep)
	}

	cfg, err := svc.Store().GetActionConfig("blind")
	if err != nil {
		t.Fatalf("GetActionConfig() error = %v", err)
	}
	if len(cfg.CompiledRows) != 1 {
		t.Errorf("stored %d compiled rows, want 1", len(cfg.CompiledRows))
	}
}

func TestApplyActionsKeepsRawAndCompiledRows(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestDevice(t, svc, "1.9.7")

	cmd := &ActionsCommand{
		InputActions:         [][]int{{0, 0x0D, 2, 6, 0, 2}},
		InputActionTemplates: []actions.Template{{Type: "toggle"}},
	}
	if err := svc.ApplyActions(context.Background(), "blind", cmd); err != nil {
		t.Fatalf("ApplyActions() error = %v", err)
	}

	cfg, err := svc.Store().GetActionConfig("blind")
	if err != nil {
		t.Fatalf("GetActionConfig() error = %v", err)
	}
	if len(cfg.RawRows) != 1 {
		t.Errorf("stored %d raw rows, want 1", len(cfg.RawRows))
	}
	if len(cfg.CompiledRows) != 1 {
		t.Errorf("stored %d compiled rows, want 1", len(cfg.CompiledRows))
	}
}

func TestApplyActionsLegacyByFirmware(t *testing.T) {
	svc, ft := newTestService(t)
	registerTestDevice(t, svc, "1.7.0")

	cmd := &ActionsCommand{
		InputConfigurations: []int{0, 0},
		InputActions:        [][]int{{0, 0x0D, 2, 6, 0, 2}},
	}
	if err := svc.ApplyActions(context.Background(), "blind", cmd); err != nil {
		t.Fatalf("ApplyActions() error = %v", err)
	}
	if len(ft.writes) != 2 || len(ft.structured) != 0 {
		t.Errorf("got %d plain and %d structured writes, want 2 and 0", len(ft.writes), len(ft.structured))
	}
}

func TestApplyActionsRejects(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestDevice(t, svc, "1.9.7")

	if err := svc.ApplyActions(context.Background(), "blind", &ActionsCommand{}); err == nil {
		t.Error("ApplyActions() accepted empty command")
	}
	cmd := &ActionsCommand{InputActions: [][]int{{300}}}
	if err := svc.ApplyActions(context.Background(), "blind", cmd); err == nil {
		t.Error("ApplyActions() accepted out-of-range byte")
	}
}

func TestRefreshFirmwareVersion(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestDevice(t, svc, "")

	version, err := svc.RefreshFirmwareVersion(context.Background(), "blind")
	if err != nil {
		t.Fatalf("RefreshFirmwareVersion() error = %v", err)
	}
	if version != "1.9.7" {
		t.Errorf("version = %q, want 1.9.7", version)
	}
	dev, err := svc.Store().GetDevice("blind")
	if err != nil {
		t.Fatal(err)
	}
	if dev.FirmwareVersion != "1.9.7" {
		t.Errorf("stored firmware = %q, want 1.9.7", dev.FirmwareVersion)
	}
}
