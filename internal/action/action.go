// Package action defines the action values exchanged between a decision
// process and the input controllers.
package action

import (
	"encoding/json"
	"fmt"
)

// Kind tags which variant an Action carries
type Kind int

const (
	KindGamepad Kind = iota + 1
	KindKeyboardMouse
)

func (k Kind) String() string {
	switch k {
	case KindGamepad:
		return "gamepad"
	case KindKeyboardMouse:
		return "keyboard_mouse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a controller name to its Kind. "km" is accepted as shorthand.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "gamepad":
		return KindGamepad, nil
	case "keyboard_mouse", "km":
		return KindKeyboardMouse, nil
	}
	return 0, fmt.Errorf("unknown controller kind %q", s)
}

// Action is a tagged union over the two controller action shapes.
// Only the field selected by Kind is meaningful.
type Action struct {
	Kind          Kind
	Gamepad       GamepadAction
	KeyboardMouse KeyboardMouseAction
}

// Gamepad wraps a gamepad action
func Gamepad(g GamepadAction) Action {
	return Action{Kind: KindGamepad, Gamepad: g}
}

// KeyboardMouse wraps a keyboard/mouse action
func KeyboardMouse(km KeyboardMouseAction) Action {
	return Action{Kind: KindKeyboardMouse, KeyboardMouse: km}
}

// MarshalJSON writes the active variant in its flat wire form.
func (a Action) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindGamepad:
		return json.Marshal(a.Gamepad)
	case KindKeyboardMouse:
		return json.Marshal(a.KeyboardMouse)
	}
	return nil, fmt.Errorf("marshal action: %v", a.Kind)
}

// Decode parses a flat wire object as the given kind.
func Decode(kind Kind, data []byte) (Action, error) {
	switch kind {
	case KindGamepad:
		var g GamepadAction
		if err := json.Unmarshal(data, &g); err != nil {
			return Action{}, fmt.Errorf("decode gamepad action: %w", err)
		}
		return Gamepad(g), nil
	case KindKeyboardMouse:
		var km KeyboardMouseAction
		if err := json.Unmarshal(data, &km); err != nil {
			return Action{}, fmt.Errorf("decode keyboard/mouse action: %w", err)
		}
		return KeyboardMouse(km), nil
	}
	return Action{}, fmt.Errorf("decode action: %v", kind)
}

// Zero returns the neutral action for a kind: nothing pressed, sticks centered.
func Zero(kind Kind) Action {
	if kind == KindKeyboardMouse {
		return KeyboardMouse(KeyboardMouseAction{Keys: []string{}, MouseButtons: []string{}})
	}
	g := GamepadAction{
		Buttons:  make(map[Button]bool, len(Buttons)),
		Triggers: map[Trigger]int{LeftTrigger: 0, RightTrigger: 0},
		Axes:     map[Axis]int{AxisLeftX: 0, AxisLeftY: 0, AxisRightX: 0, AxisRightY: 0},
	}
	for _, b := range Buttons {
		g.Buttons[b] = false
	}
	return Gamepad(g)
}
