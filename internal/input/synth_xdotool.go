package input

import (
	"fmt"
	"os/exec"
	"strconv"
)

// xdotool keysym names that differ from ours
var xdotoolKeys = map[string]string{
	"backspace": "BackSpace",
	"tab":       "Tab",
	"enter":     "Return",
	"shift":     "shift",
	"ctrl":      "ctrl",
	"alt":       "alt",
	"pause":     "Pause",
	"capslock":  "Caps_Lock",
	"esc":       "Escape",
	"space":     "space",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"end":       "End",
	"home":      "Home",
	"left":      "Left",
	"up":        "Up",
	"right":     "Right",
	"down":      "Down",
	"insert":    "Insert",
	"delete":    "Delete",
}

var xdotoolButtons = map[string]string{
	"left":   "1",
	"middle": "2",
	"right":  "3",
}

// xdotool drives input through the xdotool command line tool
type xdotool struct {
	path string
	run  func(path string, args ...string) error
}

func xdotoolSynthesizer() (Synthesizer, error) {
	path, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("xdotool not found in PATH: %w", err)
	}
	return &xdotool{path: path, run: runCommand}, nil
}

func runCommand(path string, args ...string) error {
	out, err := exec.Command(path, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w (output: %s)", path, args, err, string(out))
	}
	return nil
}

func (x *xdotool) Name() string { return "xdotool" }

func (x *xdotool) Key(name string, down bool) error {
	sym, ok := xdotoolKeys[name]
	if !ok {
		sym = name
	}
	cmd := "keyup"
	if down {
		cmd = "keydown"
	}
	return x.run(x.path, cmd, sym)
}

func (x *xdotool) MouseButton(name string, down bool) error {
	btn, ok := xdotoolButtons[name]
	if !ok {
		return fmt.Errorf("unsupported mouse button %q", name)
	}
	cmd := "mouseup"
	if down {
		cmd = "mousedown"
	}
	return x.run(x.path, cmd, btn)
}

func (x *xdotool) Move(dx, dy int) error {
	return x.run(x.path, "mousemove_relative", "--", strconv.Itoa(dx), strconv.Itoa(dy))
}

func (x *xdotool) Wheel(notches int) error {
	btn := "4"
	if notches < 0 {
		btn = "5"
		notches = -notches
	}
	return x.run(x.path, "click", "--repeat", strconv.Itoa(notches), btn)
}

func (x *xdotool) Close() error { return nil }
