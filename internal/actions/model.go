package actions

import (
	"fmt"
	"sort"
	"strings"
)

// ModelRules fixes the compiler cursor's starting endpoint for a device model
// and, for models whose cover channels sit above the scene endpoints, the
// endpoint base those channels start at.
type ModelRules struct {
	StartingEndpoint  uint8
	CoverEndpointBase uint8 // 0 when cover channels need no shift
}

// Known input-bearing models. Switch, dimmer and shutter units expose their
// primary load on endpoint 1 and bind default input actions from endpoint 2
// up. The four-input scene controller binds from endpoint 1, with its cover
// channels living at endpoints 5-6.
var modelRules = map[string]ModelRules{
	"S1":   {StartingEndpoint: 2},
	"S1-R": {StartingEndpoint: 2},
	"S2":   {StartingEndpoint: 2},
	"S2-R": {StartingEndpoint: 2},
	"D1":   {StartingEndpoint: 2},
	"D1-R": {StartingEndpoint: 2},
	"J1":   {StartingEndpoint: 2},
	"J1-R": {StartingEndpoint: 2},
	"C4":   {StartingEndpoint: 1, CoverEndpointBase: 5},
}

// RulesForModel resolves the cursor rules for a model identity. The model
// string may carry a firmware suffix in parentheses, e.g. "S2 (5502)".
func RulesForModel(modelID string) (ModelRules, error) {
	name := modelID
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if rules, ok := modelRules[name]; ok {
		return rules, nil
	}
	known := make([]string, 0, len(modelRules))
	for m := range modelRules {
		known = append(known, m)
	}
	sort.Strings(known)
	return ModelRules{}, &ConfigError{
		Index: -1,
		Msg:   fmt.Sprintf("unrecognized device model %q (known models: %s)", modelID, strings.Join(known, ", ")),
	}
}
