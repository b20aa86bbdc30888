package model

import (
	"fmt"
	"strings"

	"gamepilot/internal/action"
)

// DefaultTokens is the button order of Prediction.Buttons
var DefaultTokens = []string{
	"WEST", "SOUTH", "BACK",
	"DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT", "DPAD_UP",
	"GUIDE",
	"LEFT_SHOULDER", "LEFT_TRIGGER", "LEFT_THUMB",
	"RIGHT_THUMB", "RIGHT_SHOULDER", "RIGHT_TRIGGER",
	"START", "EAST", "NORTH",
}

// BuildActions turns a prediction into one gamepad action per step. Every
// action carries all four axes and every token: TRIGGER tokens become
// trigger values, the rest are pressed when their score exceeds threshold.
func BuildActions(pred Prediction, tokens []string, threshold float64) ([]action.GamepadAction, error) {
	n := len(pred.Buttons)
	if n != len(pred.LeftStick) || n != len(pred.RightStick) {
		return nil, fmt.Errorf("%w: %d button vectors, %d left, %d right",
			ErrBadResponse, n, len(pred.LeftStick), len(pred.RightStick))
	}

	out := make([]action.GamepadAction, 0, n)
	for i := 0; i < n; i++ {
		if len(pred.Buttons[i]) != len(tokens) {
			return nil, fmt.Errorf("%w: step %d has %d button scores for %d tokens",
				ErrBadResponse, i, len(pred.Buttons[i]), len(tokens))
		}
		a := action.GamepadAction{
			Buttons:  make(map[action.Button]bool, len(tokens)),
			Triggers: make(map[action.Trigger]int, 2),
			Axes: map[action.Axis]int{
				action.AxisLeftX:  action.AxisFromUnit(pred.LeftStick[i][0]),
				action.AxisLeftY:  action.AxisFromUnit(pred.LeftStick[i][1]),
				action.AxisRightX: action.AxisFromUnit(pred.RightStick[i][0]),
				action.AxisRightY: action.AxisFromUnit(pred.RightStick[i][1]),
			},
		}
		for j, tok := range tokens {
			v := pred.Buttons[i][j]
			if strings.Contains(tok, "TRIGGER") {
				a.Triggers[action.Trigger(tok)] = action.TriggerFromUnit(v)
				continue
			}
			a.Buttons[action.Button(tok)] = v > threshold
		}
		out = append(out, a)
	}
	return out, nil
}

// SanitizeMenu releases the menu buttons in a and reports whether any of
// them was pressed.
func SanitizeMenu(a action.GamepadAction) bool {
	pressed := false
	for _, b := range action.MenuButtons {
		if a.Buttons[b] {
			pressed = true
		}
		if a.Buttons != nil {
			a.Buttons[b] = false
		}
	}
	return pressed
}
