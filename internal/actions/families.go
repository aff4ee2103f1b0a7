package actions

import (
	"sort"
	"sync"
)

// Family describes one template type: its capability flags and the expansion
// that turns a resolved input/endpoint pair into binding-table rows. Exactly
// one of Expand, ExpandPair or ExpandScene is set, matching the flags.
type Family struct {
	Name         string
	DoubleInputs bool
	Cover        bool
	Scene        bool

	Expand       func(input, endpoint uint8, t *Template) []Instruction
	ExpandPair   func(inputs [2]uint8, endpoint uint8, t *Template) []Instruction
	ExpandScene  func(input, endpoint uint8, group uint16, scene uint8) []Instruction
	ExpandScene2 func(input, endpoint uint8, group uint16, scene uint8) []Instruction
}

var (
	familyMu sync.RWMutex
	families = map[string]*Family{}
)

// RegisterFamily adds a template family to the registry. Built-in families
// register at init; scripting hooks may add more at startup. Re-registering
// a name replaces the previous entry.
func RegisterFamily(f *Family) {
	familyMu.Lock()
	defer familyMu.Unlock()
	families[f.Name] = f
}

// lookupFamily returns the family for a template type, or nil.
func lookupFamily(name string) *Family {
	familyMu.RLock()
	defer familyMu.RUnlock()
	return families[name]
}

// FamilyNames returns the registered template types, sorted.
func FamilyNames() []string {
	familyMu.RLock()
	defer familyMu.RUnlock()
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func onOffRow(input, event, endpoint, command uint8) Instruction {
	return Instruction{Input: input, Event: event, Endpoint: endpoint, Cluster: clusterOnOff, Command: command}
}

func levelRow(input, event, endpoint, command uint8, payload ...byte) Instruction {
	return Instruction{Input: input, Event: event, Endpoint: endpoint, Cluster: clusterLevelControl, Command: command, Payload: payload}
}

func coverRow(input, event, endpoint, command uint8) Instruction {
	return Instruction{Input: input, Event: event, Endpoint: endpoint, Cluster: clusterWindowCovering, Client: true, Command: command}
}

func sceneRow(input, event, endpoint uint8, group uint16, scene uint8) Instruction {
	return Instruction{
		Input:    input,
		Event:    event,
		Endpoint: endpoint,
		Cluster:  clusterScenes,
		Command:  cmdRecallScene,
		Payload:  []byte{byte(group), byte(group >> 8), scene},
	}
}

func init() {
	// Momentary push button: toggle on each press.
	RegisterFamily(&Family{
		Name: "toggle",
		Expand: func(input, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{onOffRow(input, maskToggleEdge, endpoint, cmdToggle)}
		},
	})

	// Stationary rocker: both edges toggle, so the light always follows a
	// flip of the switch no matter its current position.
	RegisterFamily(&Family{
		Name: "toggle_switch",
		Expand: func(input, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{
				onOffRow(input, maskToggleEdge, endpoint, cmdToggle),
				onOffRow(input, maskReleased, endpoint, cmdToggle),
			}
		},
	})

	// Stationary switch with fixed orientation: up is on, down is off.
	RegisterFamily(&Family{
		Name: "on_off_switch",
		Expand: func(input, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{
				onOffRow(input, maskToggleEdge, endpoint, cmdOn),
				onOffRow(input, maskReleased, endpoint, cmdOff),
			}
		},
	})

	RegisterFamily(&Family{
		Name: "on",
		Expand: func(input, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{onOffRow(input, maskToggleEdge, endpoint, cmdOn)}
		},
	})

	RegisterFamily(&Family{
		Name: "off",
		Expand: func(input, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{onOffRow(input, maskToggleEdge, endpoint, cmdOff)}
		},
	})

	// One push button: short press toggles, long press dims up and down on
	// alternating holds, release stops the move.
	RegisterFamily(&Family{
		Name: "dimmer_single",
		Expand: func(input, endpoint uint8, t *Template) []Instruction {
			rate := t.rate()
			return []Instruction{
				onOffRow(input, maskPressed, endpoint, cmdToggle),
				levelRow(input, maskLongPress, endpoint, t.moveUpCommand(), dirUp, rate),
				levelRow(input, maskLongPressAlt, endpoint, t.moveDownCommand(), dirDown, rate),
				levelRow(input, maskShortRelease, endpoint, cmdLevelStop),
			}
		},
	})

	// Two push buttons: first switches on and dims up, second switches off
	// and dims down.
	RegisterFamily(&Family{
		Name:         "dimmer_double",
		DoubleInputs: true,
		ExpandPair: func(inputs [2]uint8, endpoint uint8, t *Template) []Instruction {
			rate := t.rate()
			return []Instruction{
				onOffRow(inputs[0], maskPressed, endpoint, cmdOn),
				levelRow(inputs[0], maskPressHold, endpoint, t.moveUpCommand(), dirUp, rate),
				levelRow(inputs[0], maskReleased, endpoint, cmdLevelStop),
				onOffRow(inputs[1], maskPressed, endpoint, cmdOff),
				levelRow(inputs[1], maskPressHold, endpoint, t.moveDownCommand(), dirDown, rate),
				levelRow(inputs[1], maskReleased, endpoint, cmdLevelStop),
			}
		},
	})

	// Two momentary push buttons: hold to travel, release to stop.
	RegisterFamily(&Family{
		Name:         "cover",
		DoubleInputs: true,
		Cover:        true,
		ExpandPair: func(inputs [2]uint8, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{
				coverRow(inputs[0], maskPressed, endpoint, cmdCoverOpen),
				coverRow(inputs[0], maskReleased, endpoint, cmdCoverStop),
				coverRow(inputs[1], maskPressed, endpoint, cmdCoverClose),
				coverRow(inputs[1], maskReleased, endpoint, cmdCoverStop),
			}
		},
	})

	// Two stationary switches: flipping one starts travel, flipping it back
	// stops.
	RegisterFamily(&Family{
		Name:         "cover_switch",
		DoubleInputs: true,
		Cover:        true,
		ExpandPair: func(inputs [2]uint8, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{
				coverRow(inputs[0], maskToggleEdge, endpoint, cmdCoverOpen),
				coverRow(inputs[0], maskReleased, endpoint, cmdCoverStop),
				coverRow(inputs[1], maskToggleEdge, endpoint, cmdCoverClose),
				coverRow(inputs[1], maskReleased, endpoint, cmdCoverStop),
			}
		},
	})

	RegisterFamily(&Family{
		Name:  "cover_up",
		Cover: true,
		Expand: func(input, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{coverRow(input, maskPressed, endpoint, cmdCoverOpen)}
		},
	})

	RegisterFamily(&Family{
		Name:  "cover_down",
		Cover: true,
		Expand: func(input, endpoint uint8, _ *Template) []Instruction {
			return []Instruction{coverRow(input, maskPressed, endpoint, cmdCoverClose)}
		},
	})

	// Momentary button recalling a scene; the secondary scene, if configured,
	// sits on press-and-hold of the same input.
	RegisterFamily(&Family{
		Name:  "scene",
		Scene: true,
		ExpandScene: func(input, endpoint uint8, group uint16, scene uint8) []Instruction {
			return []Instruction{sceneRow(input, maskPressed, endpoint, group, scene)}
		},
		ExpandScene2: func(input, endpoint uint8, group uint16, scene uint8) []Instruction {
			return []Instruction{sceneRow(input, maskPressHold, endpoint, group, scene)}
		},
	})

	// Stationary switch recalling one scene per edge.
	RegisterFamily(&Family{
		Name:  "scene_switch",
		Scene: true,
		ExpandScene: func(input, endpoint uint8, group uint16, scene uint8) []Instruction {
			return []Instruction{sceneRow(input, maskToggleEdge, endpoint, group, scene)}
		},
		ExpandScene2: func(input, endpoint uint8, group uint16, scene uint8) []Instruction {
			return []Instruction{sceneRow(input, maskReleased, endpoint, group, scene)}
		},
	})
}
