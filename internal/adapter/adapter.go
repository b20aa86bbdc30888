// Package adapter converts gamepad actions into keyboard/mouse actions so a
// gamepad-trained policy can drive keyboard/mouse games.
package adapter

import (
	"math"
	"sort"

	"gamepilot/internal/action"
)

// Options tunes the conversion
type Options struct {
	// ButtonMap maps gamepad buttons to key names
	ButtonMap map[action.Button]string `yaml:"buttons"`

	// TriggerMap maps triggers to mouse-button names
	TriggerMap map[action.Trigger]string `yaml:"triggers"`

	// Sensitivity scales the normalized right stick into mouse pixels
	Sensitivity float64 `yaml:"sensitivity"`

	// Deadzone is the left-stick magnitude that must be exceeded to press a direction key
	Deadzone float64 `yaml:"deadzone"`

	// MaxMouseDelta clamps each mouse component; 0 disables the clamp
	MaxMouseDelta int `yaml:"max_mouse_delta"`

	// TriggerThreshold is the normalized trigger value at which the mapped input is held
	TriggerThreshold float64 `yaml:"trigger_threshold"`
}

// DefaultButtonMap is the stock button layout
var DefaultButtonMap = map[action.Button]string{
	action.South:         "space",
	action.East:          "e",
	action.West:          "q",
	action.North:         "r",
	action.LeftShoulder:  "shift",
	action.RightShoulder: "ctrl",
	action.LeftThumb:     "c",
	action.RightThumb:    "v",
	action.Back:          "tab",
	action.Start:         "esc",
	action.DpadUp:        "up",
	action.DpadDown:      "down",
	action.DpadLeft:      "left",
	action.DpadRight:     "right",
}

// DefaultTriggerMap holds aim on the left trigger and fires on the right
var DefaultTriggerMap = map[action.Trigger]string{
	action.LeftTrigger:  "right",
	action.RightTrigger: "left",
}

// DefaultOptions returns the stock conversion settings
func DefaultOptions() Options {
	return Options{
		ButtonMap:        copyMap(DefaultButtonMap),
		TriggerMap:       copyMap(DefaultTriggerMap),
		Sensitivity:      15,
		Deadzone:         0.2,
		MaxMouseDelta:    50,
		TriggerThreshold: 0.1,
	}
}

func copyMap[K comparable](m map[K]string) map[K]string {
	out := make(map[K]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Adapt converts one gamepad action. It is pure: the same input and options
// always give the same output, with keys and buttons sorted.
func Adapt(g action.GamepadAction, opts Options) action.KeyboardMouseAction {
	keys := make(map[string]bool)
	buttons := make(map[string]bool)

	for b, pressed := range g.Buttons {
		if !pressed {
			continue
		}
		if name, ok := opts.ButtonMap[b]; ok {
			keys[name] = true
		}
	}

	for t, raw := range g.Triggers {
		name, ok := opts.TriggerMap[t]
		if !ok {
			continue
		}
		if float64(action.ClampTrigger(raw))/action.TriggerScale >= opts.TriggerThreshold {
			buttons[name] = true
		}
	}

	lx, ly := normalizedStick(g, action.LeftStick)
	if lx > opts.Deadzone {
		keys["d"] = true
	} else if lx < -opts.Deadzone {
		keys["a"] = true
	}
	if ly > opts.Deadzone {
		keys["w"] = true
	} else if ly < -opts.Deadzone {
		keys["s"] = true
	}

	rx, ry := normalizedStick(g, action.RightStick)
	// half-to-even, so 0.5 rounds to 0
	dx := clampDelta(int(math.RoundToEven(rx*opts.Sensitivity)), opts.MaxMouseDelta)
	dy := clampDelta(int(math.RoundToEven(-ry*opts.Sensitivity)), opts.MaxMouseDelta)

	return action.KeyboardMouseAction{
		Keys:         action.NormalizeKeys(setKeys(keys)),
		MouseButtons: action.NormalizeMouseButtons(setKeys(buttons)),
		MouseDX:      dx,
		MouseDY:      dy,
		MouseWheel:   0,
	}
}

// normalizedStick reads a stick as [-1, 1] floats; missing axes read as 0.
func normalizedStick(g action.GamepadAction, s action.Stick) (x, y float64) {
	return normalizeAxis(g.Axes[s.X]), normalizeAxis(g.Axes[s.Y])
}

func normalizeAxis(v int) float64 {
	v = min(max(v, -action.AxisScale), action.AxisScale)
	return float64(v) / action.AxisScale
}

func clampDelta(v, limit int) int {
	if limit <= 0 {
		return v
	}
	return min(max(v, -limit), limit)
}

func setKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
