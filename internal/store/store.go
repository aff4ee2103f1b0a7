package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// Device operations
	SaveDevice(dev *Device) error
	GetDevice(name string) (*Device, error)
	DeleteDevice(name string) error
	ListDevices() ([]*Device, error)

	// UpdateDevice atomically reads, modifies, and saves a device in a single
	// transaction. Returns ErrNotFound if the device does not exist.
	UpdateDevice(name string, fn func(dev *Device) error) error

	// Last calibration result per device
	SaveCalibration(device string, rec *CalibrationRecord) error
	GetCalibration(device string) (*CalibrationRecord, error)

	// Last applied input-action configuration per device
	SaveActionConfig(device string, cfg *ActionConfig) error
	GetActionConfig(device string) (*ActionConfig, error)

	// Close the store
	Close() error
}
