package catalog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"zigbee-go-setup/internal/zcl"
	"zigbee-go-setup/internal/zcl/clusters"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuiltinProfiles(t *testing.T) {
	c := New(testLogger())

	tests := []struct {
		model         string
		startEndpoint uint8
		coverBase     uint8
		inputs        int
	}{
		{"S2", 2, 0, 2},
		{"J1-R", 2, 0, 2},
		{"C4", 1, 5, 4},
	}
	for _, tt := range tests {
		p := c.Get(tt.model)
		if p == nil {
			t.Fatalf("Get(%q) = nil", tt.model)
		}
		if p.StartingEndpoint != tt.startEndpoint {
			t.Errorf("%s starting endpoint = %d, want %d", tt.model, p.StartingEndpoint, tt.startEndpoint)
		}
		if p.CoverEndpointBase != tt.coverBase {
			t.Errorf("%s cover endpoint base = %d, want %d", tt.model, p.CoverEndpointBase, tt.coverBase)
		}
		if p.Inputs != tt.inputs {
			t.Errorf("%s inputs = %d, want %d", tt.model, p.Inputs, tt.inputs)
		}
		if p.SetupEndpoint != 232 {
			t.Errorf("%s setup endpoint = %d, want 232", tt.model, p.SetupEndpoint)
		}
		if p.ManufacturerCode != clusters.VendorCode {
			t.Errorf("%s manufacturer code = 0x%04X, want 0x%04X", tt.model, p.ManufacturerCode, clusters.VendorCode)
		}
	}
}

func TestGetStripsFirmwareSuffix(t *testing.T) {
	c := New(testLogger())
	if p := c.Get("J1 (5502)"); p == nil || p.Model != "J1" {
		t.Errorf("Get(\"J1 (5502)\") = %v, want J1 profile", p)
	}
	if p := c.Get("unknown"); p != nil {
		t.Errorf("Get(\"unknown\") = %v, want nil", p)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	profile := `{
		"manufacturer": "acme",
		"model": "R2",
		"manufacturerCode": 4242,
		"startingEndpoint": 3,
		"inputs": 2,
		"clusters": [
			{
				"id": 258,
				"name": "Window Covering",
				"attributes": [
					{"id": 4102, "name": "MotorRampTime", "type": "uint16", "access": "rw", "manufacturerCode": 4242}
				]
			}
		]
	}`
	if err := os.WriteFile(filepath.Join(dir, "r2.json"), []byte(profile), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(testLogger())
	registry := zcl.NewRegistry(testLogger())
	clusters.RegisterAll(registry)
	if err := c.LoadDir(dir, registry); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	p := c.Get("R2")
	if p == nil {
		t.Fatal("loaded profile not found")
	}
	if p.StartingEndpoint != 3 {
		t.Errorf("starting endpoint = %d, want 3", p.StartingEndpoint)
	}
	if p.SetupEndpoint != 232 {
		t.Errorf("setup endpoint defaulted to %d, want 232", p.SetupEndpoint)
	}

	wc := registry.GetByName("Window Covering")
	attr := wc.FindAttributeByName("MotorRampTime")
	if attr == nil {
		t.Fatal("overlay attribute not merged into registry")
	}
	if attr.ID != 0x1006 {
		t.Errorf("overlay attribute id = 0x%04X, want 0x1006", attr.ID)
	}
	if attr.ManufacturerCode != 4242 {
		t.Errorf("overlay manufacturer code = %d, want 4242", attr.ManufacturerCode)
	}
}

func TestLoadDirMissing(t *testing.T) {
	c := New(testLogger())
	registry := zcl.NewRegistry(testLogger())
	if err := c.LoadDir(filepath.Join(t.TempDir(), "absent"), registry); err != nil {
		t.Errorf("LoadDir() on missing dir = %v, want nil", err)
	}
}

func TestLoadDirBadType(t *testing.T) {
	dir := t.TempDir()
	bad := `{"model": "X", "clusters": [{"id": 1, "name": "c", "attributes": [{"id": 0, "name": "a", "type": "float", "access": "r"}]}]}`
	if err := os.WriteFile(filepath.Join(dir, "x.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(testLogger())
	registry := zcl.NewRegistry(testLogger())
	if err := c.LoadDir(dir, registry); err == nil {
		t.Error("LoadDir() accepted unknown attribute type")
	}
}
