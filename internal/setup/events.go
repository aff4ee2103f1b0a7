package setup

import (
	"log/slog"
	"sync"
	"time"

	"zigbee-go-setup/internal/calibration"
)

// Event types
const (
	EventDeviceRegistered   = "device_registered"
	EventDeviceRemoved      = "device_removed"
	EventCalibrationStarted = "calibration_started"
	EventCalibrationStep    = "calibration_step"
	EventCalibrationDone    = "calibration_finished"
	EventCalibrationFailed  = "calibration_failed"
	EventActionsApplied     = "actions_applied"
)

// Event is one entry in the setup activity stream. Device names the
// registered device the event concerns; Data carries the typed payload below
// for the event types that have one.
type Event struct {
	Type   string      `json:"type"`
	Device string      `json:"device,omitempty"`
	At     time.Time   `json:"at"`
	Data   interface{} `json:"data,omitempty"`
}

// StepData accompanies calibration_step events.
type StepData struct {
	Step string `json:"step"`
}

// ResultData accompanies calibration_finished events.
type ResultData struct {
	Report calibration.Report `json:"report"`
}

// FailureData accompanies calibration_failed events.
type FailureData struct {
	Error string `json:"error"`
}

// ActionsData accompanies actions_applied events.
type ActionsData struct {
	Configurations int `json:"configurations"`
	Rows           int `json:"rows"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// subscription is one registered handler with an optional type filter.
type subscription struct {
	id      uint64
	types   []string // empty matches every event
	handler EventHandler
}

func (s *subscription) matches(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, t := range s.types {
		if t == eventType {
			return true
		}
	}
	return false
}

// EventBus fans setup events out to subscribers. Dispatch is synchronous; a
// panicking subscriber is recovered so a listener can never take down the
// emitting flow.
type EventBus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{logger: logger}
}

func (eb *EventBus) subscribe(handler EventHandler, types ...string) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	eb.subs = append(eb.subs, subscription{id: id, types: types, handler: handler})
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		for i := range eb.subs {
			if eb.subs[i].id == id {
				eb.subs = append(eb.subs[:i], eb.subs[i+1:]...)
				return
			}
		}
	}
}

// On registers a handler for a specific event type.
// Returns an unsubscribe function.
func (eb *EventBus) On(eventType string, handler EventHandler) func() {
	return eb.subscribe(handler, eventType)
}

// OnAll registers a handler that receives all events.
// Returns an unsubscribe function.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	return eb.subscribe(handler)
}

// Emit stamps and delivers an event to all matching subscribers.
func (eb *EventBus) Emit(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	eb.mu.RLock()
	matched := make([]EventHandler, 0, len(eb.subs))
	for i := range eb.subs {
		if eb.subs[i].matches(event.Type) {
			matched = append(matched, eb.subs[i].handler)
		}
	}
	eb.mu.RUnlock()

	for _, h := range matched {
		eb.dispatch(h, event)
	}
}

func (eb *EventBus) dispatch(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
		}
	}()
	h(event)
}
