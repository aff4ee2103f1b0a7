package store

import (
	"encoding/json"
	"time"
)

// Device is a registered actuator or input unit. The name is the stable key;
// the short address may change after a rejoin.
type Device struct {
	Name            string    `json:"name"`
	Addr            uint16    `json:"addr"`
	Manufacturer    string    `json:"manufacturer,omitempty"`
	Model           string    `json:"model,omitempty"`
	Endpoint        uint8     `json:"endpoint"`
	FirmwareVersion string    `json:"firmware_version,omitempty"`
	RegisteredAt    time.Time `json:"registered_at"`
	LastSeen        time.Time `json:"last_seen"`
}

// CalibrationRecord is the outcome of the most recent calibration run.
type CalibrationRecord struct {
	Request     json.RawMessage        `json:"request,omitempty"`
	Report      map[string]interface{} `json:"report"`
	CompletedAt time.Time              `json:"completed_at"`
}

// ActionConfig is the most recent input-action configuration applied to a
// device. Raw rows and compiled template rows are recorded separately because
// one command may carry both and each set is written to the device.
type ActionConfig struct {
	Templates           json.RawMessage `json:"templates,omitempty"`
	InputConfigurations []uint8         `json:"input_configurations,omitempty"`
	RawRows             [][]byte        `json:"raw_rows,omitempty"`
	CompiledRows        [][]byte        `json:"compiled_rows,omitempty"`
	AppliedAt           time.Time       `json:"applied_at"`
}
