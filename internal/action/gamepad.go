package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	// AxisScale is the magnitude of a fully deflected stick axis.
	AxisScale = 32767
	// AxisMin is the most negative raw axis value.
	AxisMin = -32768
	// TriggerScale is the raw value of a fully pulled trigger.
	TriggerScale = 255
)

// Button names a digital gamepad button
type Button string

const (
	South         Button = "SOUTH"
	East          Button = "EAST"
	North         Button = "NORTH"
	West          Button = "WEST"
	LeftShoulder  Button = "LEFT_SHOULDER"
	RightShoulder Button = "RIGHT_SHOULDER"
	LeftThumb     Button = "LEFT_THUMB"
	RightThumb    Button = "RIGHT_THUMB"
	DpadUp        Button = "DPAD_UP"
	DpadDown      Button = "DPAD_DOWN"
	DpadLeft      Button = "DPAD_LEFT"
	DpadRight     Button = "DPAD_RIGHT"
	Start         Button = "START"
	Back          Button = "BACK"
	Guide         Button = "GUIDE"
)

// Buttons lists every known button.
var Buttons = []Button{
	South, East, North, West,
	LeftShoulder, RightShoulder, LeftThumb, RightThumb,
	DpadUp, DpadDown, DpadLeft, DpadRight,
	Start, Back, Guide,
}

// MenuButtons are the buttons that open system or game menus.
var MenuButtons = []Button{Guide, Start, Back}

// Known reports whether b is in the button vocabulary.
func (b Button) Known() bool {
	for _, k := range Buttons {
		if k == b {
			return true
		}
	}
	return false
}

// Trigger names an analog trigger
type Trigger string

const (
	LeftTrigger  Trigger = "LEFT_TRIGGER"
	RightTrigger Trigger = "RIGHT_TRIGGER"
)

// Axis names one stick axis
type Axis string

const (
	AxisLeftX  Axis = "AXIS_LEFTX"
	AxisLeftY  Axis = "AXIS_LEFTY"
	AxisRightX Axis = "AXIS_RIGHTX"
	AxisRightY Axis = "AXIS_RIGHTY"
)

// Stick pairs the two axes of one thumbstick. Sticks are only ever
// updated as a whole.
type Stick struct {
	Name string
	X, Y Axis
}

var (
	LeftStick  = Stick{Name: "left", X: AxisLeftX, Y: AxisLeftY}
	RightStick = Stick{Name: "right", X: AxisRightX, Y: AxisRightY}
	Sticks     = []Stick{LeftStick, RightStick}
)

// GamepadAction is one gamepad update. Absent entries are left at their
// neutral value by the controller.
type GamepadAction struct {
	Buttons  map[Button]bool
	Triggers map[Trigger]int
	Axes     map[Axis]int
}

// StickValue returns the stick's (x, y) pair and how many of its two axes
// are present.
func (g GamepadAction) StickValue(s Stick) (x, y, present int) {
	if v, ok := g.Axes[s.X]; ok {
		x = v
		present++
	}
	if v, ok := g.Axes[s.Y]; ok {
		y = v
		present++
	}
	return x, y, present
}

// Pressed reports whether b is present and truthy.
func (g GamepadAction) Pressed(b Button) bool {
	return g.Buttons[b]
}

// Clamp returns a copy with every trigger and axis in range.
func (g GamepadAction) Clamp() GamepadAction {
	out := GamepadAction{
		Buttons:  make(map[Button]bool, len(g.Buttons)),
		Triggers: make(map[Trigger]int, len(g.Triggers)),
		Axes:     make(map[Axis]int, len(g.Axes)),
	}
	for b, v := range g.Buttons {
		out.Buttons[b] = v
	}
	for t, v := range g.Triggers {
		out.Triggers[t] = ClampTrigger(v)
	}
	for a, v := range g.Axes {
		out.Axes[a] = ClampAxis(v)
	}
	return out
}

// ClampAxis bounds a raw axis value to [-32768, 32767].
func ClampAxis(v int) int {
	return min(max(v, AxisMin), AxisScale)
}

// ClampTrigger bounds a raw trigger value to [0, 255].
func ClampTrigger(v int) int {
	return min(max(v, 0), TriggerScale)
}

// AxisFromUnit converts a normalized [-1, 1] value to a raw axis value,
// truncating toward zero.
func AxisFromUnit(f float64) int {
	f = min(max(f, -1), 1)
	return int(f * AxisScale)
}

// TriggerFromUnit converts a normalized [0, 1] value to a raw trigger value.
func TriggerFromUnit(f float64) int {
	f = min(max(f, 0), 1)
	return int(f * TriggerScale)
}

func isTrigger(name string) bool {
	return name == string(LeftTrigger) || name == string(RightTrigger)
}

func isAxis(name string) bool {
	switch Axis(name) {
	case AxisLeftX, AxisLeftY, AxisRightX, AxisRightY:
		return true
	}
	return false
}

// MarshalJSON writes the flat form: buttons as 0/1, triggers and axes as ints.
func (g GamepadAction) MarshalJSON() ([]byte, error) {
	flat := make(map[string]int, len(g.Buttons)+len(g.Triggers)+len(g.Axes))
	for b, v := range g.Buttons {
		if v {
			flat[string(b)] = 1
		} else {
			flat[string(b)] = 0
		}
	}
	for t, v := range g.Triggers {
		flat[string(t)] = v
	}
	for a, v := range g.Axes {
		flat[string(a)] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat form. Values may be numbers, booleans or
// one-element numeric lists. Names that are neither triggers nor axes are
// kept as buttons so the controller can reject unknown ones.
func (g *GamepadAction) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Buttons = make(map[Button]bool)
	g.Triggers = make(map[Trigger]int)
	g.Axes = make(map[Axis]int)

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := scalar(raw[name])
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		switch {
		case isTrigger(name):
			g.Triggers[Trigger(name)] = int(v)
		case isAxis(name):
			g.Axes[Axis(name)] = int(v)
		default:
			g.Buttons[Button(name)] = v != 0
		}
	}
	return nil
}

func scalar(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("empty value")
	}
	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return 0, err
		}
		if len(list) != 1 {
			return 0, fmt.Errorf("expected one-element list, got %d elements", len(list))
		}
		return scalar(list[0])
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return 0, err
		}
		if b {
			return 1, nil
		}
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}
