package actions

// Template is one authored behavior unit from the input_action_templates
// command surface. All fields except Type are optional; omitted input and
// endpoint fall back to the compiler cursor.
type Template struct {
	Type        string `json:"type"`
	Input       *int   `json:"input,omitempty"`
	Inputs      []int  `json:"inputs,omitempty"`
	Endpoint    *int   `json:"endpoint,omitempty"`
	Rate        *int   `json:"rate,omitempty"`
	NoOnOff     bool   `json:"no_onoff,omitempty"`
	NoOnOffUp   bool   `json:"no_onoff_up,omitempty"`
	NoOnOffDown bool   `json:"no_onoff_down,omitempty"`
	GroupID     *int   `json:"group_id,omitempty"`
	GroupID2    *int   `json:"group_id_2,omitempty"`
	SceneID     *int   `json:"scene_id,omitempty"`
	SceneID2    *int   `json:"scene_id_2,omitempty"`
}

// rate returns the dimming rate for the template, defaulting to 50 steps/s.
func (t *Template) rate() uint8 {
	if t.Rate == nil {
		return 50
	}
	return uint8(*t.Rate)
}

// moveUpCommand picks plain Move or MoveWithOnOff for the up direction.
func (t *Template) moveUpCommand() uint8 {
	if t.NoOnOff || t.NoOnOffUp {
		return cmdMove
	}
	return cmdMoveWithOnOff
}

// moveDownCommand picks plain Move or MoveWithOnOff for the down direction.
func (t *Template) moveDownCommand() uint8 {
	if t.NoOnOff || t.NoOnOffDown {
		return cmdMove
	}
	return cmdMoveWithOnOff
}
