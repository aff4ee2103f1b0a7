package actions

import (
	"fmt"
	"strings"
)

// Compile expands an ordered template list into the flat instruction list to
// store on the device. The model identity fixes the starting endpoint; from
// there the cursor assigns the next free input and the next endpoint to every
// template that does not override them. Compilation is pure: identical input
// always yields byte-identical output.
func Compile(templates []Template, modelID string) ([]Instruction, error) {
	rules, err := RulesForModel(modelID)
	if err != nil {
		return nil, err
	}

	curInput := 0
	curEndpoint := int(rules.StartingEndpoint)
	curGroup := 0

	var out []Instruction
	for i := range templates {
		t := &templates[i]
		fam := lookupFamily(t.Type)
		if fam == nil {
			return nil, &ConfigError{
				Index: i,
				Type:  t.Type,
				Msg:   fmt.Sprintf("unknown template type (valid types: %s)", strings.Join(FamilyNames(), ", ")),
			}
		}
		if err := validateTemplate(i, t); err != nil {
			return nil, err
		}

		endpoint := curEndpoint
		if t.Endpoint != nil {
			endpoint = *t.Endpoint
		}
		// Models whose cover channels sit above the scene endpoints need the
		// resolved endpoint shifted into the cover range.
		if fam.Cover && rules.CoverEndpointBase > 0 && endpoint < int(rules.CoverEndpointBase) {
			endpoint += int(rules.CoverEndpointBase) - 1
		}

		var maxInput int
		switch {
		case fam.DoubleInputs:
			pair := [2]uint8{uint8(curInput), uint8(curInput + 1)}
			switch {
			case len(t.Inputs) > 0:
				if len(t.Inputs) != 2 {
					return nil, &ConfigError{Index: i, Type: t.Type, Msg: fmt.Sprintf("needs exactly two inputs, got %d", len(t.Inputs))}
				}
				pair = [2]uint8{uint8(t.Inputs[0]), uint8(t.Inputs[1])}
			case t.Input != nil:
				pair = [2]uint8{uint8(*t.Input), uint8(*t.Input + 1)}
			}
			out = append(out, fam.ExpandPair(pair, uint8(endpoint), t)...)
			maxInput = int(pair[0])
			if int(pair[1]) > maxInput {
				maxInput = int(pair[1])
			}

		case fam.Scene:
			if t.SceneID == nil {
				return nil, &ConfigError{Index: i, Type: t.Type, Msg: "missing required field scene_id"}
			}
			input := curInput
			if t.Input != nil {
				input = *t.Input
			}
			if t.GroupID != nil {
				curGroup = *t.GroupID
			}
			out = append(out, fam.ExpandScene(uint8(input), uint8(endpoint), uint16(curGroup), uint8(*t.SceneID))...)
			if t.SceneID2 != nil {
				if t.GroupID2 != nil {
					curGroup = *t.GroupID2
				}
				out = append(out, fam.ExpandScene2(uint8(input), uint8(endpoint), uint16(curGroup), uint8(*t.SceneID2))...)
			}
			maxInput = input

		default:
			input := curInput
			if t.Input != nil {
				input = *t.Input
			}
			out = append(out, fam.Expand(uint8(input), uint8(endpoint), t)...)
			maxInput = input
		}

		// The advance is unconditional: it defines the default for the next
		// template even when that template overrides both values.
		curInput = maxInput + 1
		curEndpoint = endpoint + 1
	}
	return out, nil
}

func validateTemplate(index int, t *Template) error {
	checkByte := func(field string, v int) error {
		if v < 0 || v > 0xFF {
			return &ValidationError{Index: index, Field: field, Msg: fmt.Sprintf("value %d out of range 0..255", v)}
		}
		return nil
	}
	if t.Input != nil {
		if err := checkByte("input", *t.Input); err != nil {
			return err
		}
	}
	for _, in := range t.Inputs {
		if err := checkByte("inputs", in); err != nil {
			return err
		}
	}
	if t.Endpoint != nil {
		if *t.Endpoint < 1 || *t.Endpoint > 240 {
			return &ValidationError{Index: index, Field: "endpoint", Msg: fmt.Sprintf("value %d out of range 1..240", *t.Endpoint)}
		}
	}
	if t.Rate != nil {
		if *t.Rate < 1 || *t.Rate > 0xFE {
			return &ValidationError{Index: index, Field: "rate", Msg: fmt.Sprintf("value %d out of range 1..254", *t.Rate)}
		}
	}
	if t.GroupID != nil && (*t.GroupID < 0 || *t.GroupID > 0xFFFF) {
		return &ValidationError{Index: index, Field: "group_id", Msg: fmt.Sprintf("value %d out of range 0..65535", *t.GroupID)}
	}
	if t.GroupID2 != nil && (*t.GroupID2 < 0 || *t.GroupID2 > 0xFFFF) {
		return &ValidationError{Index: index, Field: "group_id_2", Msg: fmt.Sprintf("value %d out of range 0..65535", *t.GroupID2)}
	}
	if t.SceneID != nil {
		if err := checkByte("scene_id", *t.SceneID); err != nil {
			return err
		}
	}
	if t.SceneID2 != nil {
		if err := checkByte("scene_id_2", *t.SceneID2); err != nil {
			return err
		}
	}
	return nil
}
