package actions

import "fmt"

// ConfigError reports a template list that cannot be compiled: an unknown
// template type, a missing required field or an unrecognized device model.
// It is raised before any transport call is made.
type ConfigError struct {
	Index int    // template position in the list, -1 if not template-bound
	Type  string // template type, if known
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Index < 0 {
		return "input action config: " + e.Msg
	}
	return fmt.Sprintf("input action template %d (%s): %s", e.Index, e.Type, e.Msg)
}

// ValidationError reports a template field value outside its permitted range.
type ValidationError struct {
	Index int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input action template %d: field %q: %s", e.Index, e.Field, e.Msg)
}
