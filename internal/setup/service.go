// Package setup ties the configuration surfaces together: device registry,
// calibration runs and input-action programming, with progress published on
// an event bus.
package setup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"zigbee-go-setup/internal/actions"
	"zigbee-go-setup/internal/calibration"
	"zigbee-go-setup/internal/catalog"
	"zigbee-go-setup/internal/store"
	"zigbee-go-setup/internal/transport"
	"zigbee-go-setup/internal/zcl"
)

// ErrCalibrationBusy is returned when a calibration is already running
// against the same device. Sessions are single-flight per device.
var ErrCalibrationBusy = errors.New("setup: calibration already running for this device")

// Service is the configuration flow for registered devices.
type Service struct {
	transport transport.Transport
	registry  *zcl.Registry
	catalog   *catalog.Catalog
	store     store.Store
	events    *EventBus
	logger    *slog.Logger

	// Sleeper overrides the calibration delays; nil uses the wall clock.
	Sleeper calibration.Sleeper

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewService wires the configuration flow.
func NewService(t transport.Transport, registry *zcl.Registry, cat *catalog.Catalog, st store.Store, events *EventBus, logger *slog.Logger) *Service {
	return &Service{
		transport: t,
		registry:  registry,
		catalog:   cat,
		store:     st,
		events:    events,
		logger:    logger.With("component", "setup"),
		inFlight:  make(map[string]bool),
	}
}

// Events returns the service's event bus.
func (s *Service) Events() *EventBus { return s.events }

// Store returns the backing store.
func (s *Service) Store() store.Store { return s.store }

// Catalog returns the device catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// RegisterDevice validates the model against the catalog and persists the
// device. The covering endpoint defaults to 1 when unset.
func (s *Service) RegisterDevice(dev *store.Device) error {
	profile := s.catalog.Get(dev.Model)
	if profile == nil {
		return fmt.Errorf("setup: unknown device model %q (known models: %s)",
			dev.Model, strings.Join(s.catalog.Models(), ", "))
	}
	if dev.Manufacturer == "" {
		dev.Manufacturer = profile.Manufacturer
	}
	if dev.Endpoint == 0 {
		dev.Endpoint = 1
	}
	now := time.Now().UTC()
	if dev.RegisteredAt.IsZero() {
		dev.RegisteredAt = now
	}
	dev.LastSeen = now

	if err := s.store.SaveDevice(dev); err != nil {
		return err
	}
	s.logger.Info("device registered", "name", dev.Name, "model", dev.Model, "addr", fmt.Sprintf("0x%04X", dev.Addr))
	s.events.Emit(Event{Type: EventDeviceRegistered, Device: dev.Name, Data: dev})
	return nil
}

// RemoveDevice deletes a device and its stored records.
func (s *Service) RemoveDevice(name string) error {
	if err := s.store.DeleteDevice(name); err != nil {
		return err
	}
	s.events.Emit(Event{Type: EventDeviceRemoved, Device: name})
	return nil
}

// RefreshFirmwareVersion reads SWBuildID from the device's Basic cluster and
// stores it; the version gates the structured-write path.
func (s *Service) RefreshFirmwareVersion(ctx context.Context, name string) (string, error) {
	dev, err := s.store.GetDevice(name)
	if err != nil {
		return "", err
	}
	ep := transport.NewEndpoint(s.transport, s.registry, dev.Addr, 1)
	vals, err := ep.Read(ctx, "Basic", []string{"SWBuildID"})
	if err != nil {
		return "", err
	}
	version, _ := vals["SWBuildID"].(string)
	if version == "" {
		return "", fmt.Errorf("setup: device %s reports no SWBuildID", name)
	}
	err = s.store.UpdateDevice(name, func(dev *store.Device) error {
		dev.FirmwareVersion = version
		dev.LastSeen = time.Now().UTC()
		return nil
	})
	if err != nil {
		return "", err
	}
	return version, nil
}

// acquire marks a device calibration in flight.
func (s *Service) acquire(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[name] {
		return ErrCalibrationBusy
	}
	s.inFlight[name] = true
	return nil
}

func (s *Service) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, name)
}

// Calibrate runs the calibration sequence against a registered device and
// stores the resulting report.
func (s *Service) Calibrate(ctx context.Context, name string, req *calibration.Request) (calibration.Report, error) {
	dev, err := s.store.GetDevice(name)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(name); err != nil {
		return nil, err
	}
	defer s.release(name)

	ep := transport.NewEndpoint(s.transport, s.registry, dev.Addr, dev.Endpoint)
	orch := calibration.New(ep, s.Sleeper, s.logger)
	orch.OnStep = func(step string) {
		s.events.Emit(Event{Type: EventCalibrationStep, Device: name, Data: StepData{Step: step}})
	}

	s.events.Emit(Event{Type: EventCalibrationStarted, Device: name})
	report, err := orch.Run(ctx, req)
	if err != nil {
		s.events.Emit(Event{Type: EventCalibrationFailed, Device: name, Data: FailureData{Error: err.Error()}})
		return nil, err
	}

	reqJSON, _ := json.Marshal(req)
	rec := &store.CalibrationRecord{
		Request:     reqJSON,
		Report:      report,
		CompletedAt: time.Now().UTC(),
	}
	if err := s.store.SaveCalibration(name, rec); err != nil {
		return nil, err
	}
	s.events.Emit(Event{Type: EventCalibrationDone, Device: name, Data: ResultData{Report: report}})
	return report, nil
}

// Report performs the read-only configuration read-back.
func (s *Service) Report(ctx context.Context, name string) (calibration.Report, error) {
	dev, err := s.store.GetDevice(name)
	if err != nil {
		return nil, err
	}
	ep := transport.NewEndpoint(s.transport, s.registry, dev.Addr, dev.Endpoint)
	return calibration.New(ep, s.Sleeper, s.logger).Report(ctx)
}

// ActionsCommand is the input-programming payload. The three parts are
// independent; any subset may be present.
type ActionsCommand struct {
	InputConfigurations  []int              `json:"input_configurations,omitempty"`
	InputActions         [][]int            `json:"input_actions,omitempty"`
	InputActionTemplates []actions.Template `json:"input_action_templates,omitempty"`
}

// Empty reports whether the command carries nothing to apply.
func (c *ActionsCommand) Empty() bool {
	return len(c.InputConfigurations) == 0 && len(c.InputActions) == 0 && len(c.InputActionTemplates) == 0
}

// ApplyActions programs the device's physical inputs: configuration flags,
// raw binding rows and compiled templates, each applied independently when
// present.
func (s *Service) ApplyActions(ctx context.Context, name string, cmd *ActionsCommand) error {
	if cmd.Empty() {
		return fmt.Errorf("setup: empty input-action command")
	}
	dev, err := s.store.GetDevice(name)
	if err != nil {
		return err
	}
	profile := s.catalog.Get(dev.Model)
	if profile == nil {
		return fmt.Errorf("setup: device %s has unknown model %q", name, dev.Model)
	}

	writer := &actions.Writer{
		Endpoint:   transport.NewEndpoint(s.transport, s.registry, dev.Addr, profile.SetupEndpoint),
		Structured: SupportsStructuredWrite(dev.FirmwareVersion),
	}
	applied := &store.ActionConfig{AppliedAt: time.Now().UTC()}

	if len(cmd.InputConfigurations) > 0 {
		configs, err := toBytes(cmd.InputConfigurations)
		if err != nil {
			return fmt.Errorf("setup: input_configurations: %w", err)
		}
		if err := writer.WriteInputConfigurations(ctx, configs); err != nil {
			return err
		}
		applied.InputConfigurations = configs
	}

	if len(cmd.InputActions) > 0 {
		rows := make([][]byte, len(cmd.InputActions))
		for i, raw := range cmd.InputActions {
			row, err := toBytes(raw)
			if err != nil {
				return fmt.Errorf("setup: input_actions row %d: %w", i, err)
			}
			rows[i] = row
		}
		if err := writer.WriteRawInputActions(ctx, rows); err != nil {
			return err
		}
		applied.RawRows = rows
	}

	if len(cmd.InputActionTemplates) > 0 {
		compiled, err := actions.Compile(cmd.InputActionTemplates, dev.Model)
		if err != nil {
			return err
		}
		if err := writer.WriteInputActions(ctx, compiled); err != nil {
			return err
		}
		applied.Templates, _ = json.Marshal(cmd.InputActionTemplates)
		for _, in := range compiled {
			applied.CompiledRows = append(applied.CompiledRows, in.Bytes())
		}
	}

	if err := s.store.SaveActionConfig(name, applied); err != nil {
		return err
	}
	rows := len(applied.RawRows) + len(applied.CompiledRows)
	s.logger.Info("input actions applied", "name", name,
		"configs", len(applied.InputConfigurations), "rows", rows,
		"structured", writer.Structured)
	s.events.Emit(Event{Type: EventActionsApplied, Device: name, Data: ActionsData{
		Configurations: len(applied.InputConfigurations),
		Rows:           rows,
	}})
	return nil
}

func toBytes(values []int) ([]byte, error) {
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 0xFF {
			return nil, fmt.Errorf("value %d at index %d out of byte range", v, i)
		}
		out[i] = byte(v)
	}
	return out, nil
}
