package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "setup.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDeviceCRUD(t *testing.T) {
	s := newTestStore(t)

	dev := &Device{
		Name:         "blind_livingroom",
		Addr:         0x4F21,
		Manufacturer: "ubisys",
		Model:        "J1",
		Endpoint:     1,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.SaveDevice(dev); err != nil {
		t.Fatalf("SaveDevice() error = %v", err)
	}

	got, err := s.GetDevice("blind_livingroom")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Addr != dev.Addr || got.Model != dev.Model {
		t.Errorf("GetDevice() = %+v, want %+v", got, dev)
	}

	if _, err := s.GetDevice("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDevice(absent) error = %v, want ErrNotFound", err)
	}

	devices, err := s.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("ListDevices() returned %d devices, want 1", len(devices))
	}

	if err := s.DeleteDevice("blind_livingroom"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := s.GetDevice("blind_livingroom"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDevice() after delete error = %v, want ErrNotFound", err)
	}
}

func TestUpdateDevice(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveDevice(&Device{Name: "switch", Addr: 0x0001}); err != nil {
		t.Fatalf("SaveDevice() error = %v", err)
	}

	err := s.UpdateDevice("switch", func(dev *Device) error {
		dev.Addr = 0x0002
		dev.FirmwareVersion = "1.9.2"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}

	got, err := s.GetDevice("switch")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Addr != 0x0002 || got.FirmwareVersion != "1.9.2" {
		t.Errorf("updated device = %+v", got)
	}

	if err := s.UpdateDevice("absent", func(*Device) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateDevice(absent) error = %v, want ErrNotFound", err)
	}
}

func TestCalibrationRecord(t *testing.T) {
	s := newTestStore(t)

	rec := &CalibrationRecord{
		Report:      map[string]interface{}{"TotalSteps": 500.0, "Mode": 4.0},
		CompletedAt: time.Now().UTC(),
	}
	if err := s.SaveCalibration("blind", rec); err != nil {
		t.Fatalf("SaveCalibration() error = %v", err)
	}

	got, err := s.GetCalibration("blind")
	if err != nil {
		t.Fatalf("GetCalibration() error = %v", err)
	}
	if got.Report["TotalSteps"] != 500.0 {
		t.Errorf("report TotalSteps = %v, want 500", got.Report["TotalSteps"])
	}

	if _, err := s.GetCalibration("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCalibration(absent) error = %v, want ErrNotFound", err)
	}
}

func TestActionConfig(t *testing.T) {
	s := newTestStore(t)

	cfg := &ActionConfig{
		Templates:           []byte(`[{"type":"toggle"}]`),
		InputConfigurations: []uint8{0x00, 0x00},
		RawRows:             [][]byte{{0x01, 0x0D, 0x03, 0x06, 0x00, 0x02}},
		CompiledRows:        [][]byte{{0x00, 0x0D, 0x02, 0x06, 0x00, 0x02}},
		AppliedAt:           time.Now().UTC(),
	}
	if err := s.SaveActionConfig("switch", cfg); err != nil {
		t.Fatalf("SaveActionConfig() error = %v", err)
	}

	got, err := s.GetActionConfig("switch")
	if err != nil {
		t.Fatalf("GetActionConfig() error = %v", err)
	}
	if len(got.RawRows) != 1 || len(got.RawRows[0]) != 6 {
		t.Errorf("raw rows = %v, want one 6-byte row", got.RawRows)
	}
	if len(got.CompiledRows) != 1 || len(got.CompiledRows[0]) != 6 {
		t.Errorf("compiled rows = %v, want one 6-byte row", got.CompiledRows)
	}
	if string(got.Templates) != `[{"type":"toggle"}]` {
		t.Errorf("templates = %s", got.Templates)
	}
}

func TestDeleteDeviceClearsRecords(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveDevice(&Device{Name: "blind"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCalibration("blind", &CalibrationRecord{Report: map[string]interface{}{}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveActionConfig("blind", &ActionConfig{}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteDevice("blind"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := s.GetCalibration("blind"); !errors.Is(err, ErrNotFound) {
		t.Errorf("calibration survived device delete: %v", err)
	}
	if _, err := s.GetActionConfig("blind"); !errors.Is(err, ErrNotFound) {
		t.Errorf("action config survived device delete: %v", err)
	}
}
