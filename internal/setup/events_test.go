package setup

import (
	"io"
	"log/slog"
	"testing"
)

func newTestBus() *EventBus {
	return NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEventBusOnFiltersByType(t *testing.T) {
	bus := newTestBus()

	var steps []string
	bus.On(EventCalibrationStep, func(e Event) {
		steps = append(steps, e.Data.(StepData).Step)
	})

	bus.Emit(Event{Type: EventCalibrationStarted, Device: "blind"})
	bus.Emit(Event{Type: EventCalibrationStep, Device: "blind", Data: StepData{Step: "reset_limits"}})
	bus.Emit(Event{Type: EventCalibrationDone, Device: "blind"})

	if len(steps) != 1 || steps[0] != "reset_limits" {
		t.Errorf("steps = %v, want [reset_limits]", steps)
	}
}

func TestEventBusOnAllSeesEverything(t *testing.T) {
	bus := newTestBus()

	var got []string
	bus.OnAll(func(e Event) { got = append(got, e.Type) })

	bus.Emit(Event{Type: EventDeviceRegistered, Device: "blind"})
	bus.Emit(Event{Type: EventDeviceRemoved, Device: "blind"})

	if len(got) != 2 || got[0] != EventDeviceRegistered || got[1] != EventDeviceRemoved {
		t.Errorf("got = %v", got)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := newTestBus()

	count := 0
	unsub := bus.OnAll(func(Event) { count++ })

	bus.Emit(Event{Type: EventCalibrationStarted, Device: "blind"})
	unsub()
	unsub() // second call is a no-op
	bus.Emit(Event{Type: EventCalibrationDone, Device: "blind"})

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}

func TestEventBusStampsTimestamp(t *testing.T) {
	bus := newTestBus()

	var got Event
	bus.OnAll(func(e Event) { got = e })

	bus.Emit(Event{Type: EventActionsApplied, Device: "switch", Data: ActionsData{Rows: 2}})

	if got.At.IsZero() {
		t.Error("emitted event has no timestamp")
	}
	if data, ok := got.Data.(ActionsData); !ok || data.Rows != 2 {
		t.Errorf("data = %#v, want ActionsData with 2 rows", got.Data)
	}
}

func TestEventBusRecoversHandlerPanic(t *testing.T) {
	bus := newTestBus()

	bus.OnAll(func(Event) { panic("listener bug") })
	delivered := false
	bus.OnAll(func(Event) { delivered = true })

	bus.Emit(Event{Type: EventCalibrationFailed, Device: "blind", Data: FailureData{Error: "timeout"}})

	if !delivered {
		t.Error("panicking handler stopped delivery to later subscribers")
	}
}
