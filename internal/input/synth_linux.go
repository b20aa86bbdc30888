//go:build linux

package input

import "fmt"

// evdev key codes for the key vocabulary
var evdevKeys = map[string]uint16{
	"esc": 1, "1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"backspace": 14, "tab": 15,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"enter": 28, "ctrl": 29,
	"a": 30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"shift": 42,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"alt": 56, "space": 57, "capslock": 58,
	"home": 102, "up": 103, "pageup": 104, "left": 105, "right": 106,
	"end": 107, "down": 108, "pagedown": 109, "insert": 110, "delete": 111,
	"pause": 119,
}

var evdevButtons = map[string]uint16{
	"left":   0x110,
	"right":  0x111,
	"middle": 0x112,
}

// uinputSynth injects events through a virtual keyboard/mouse on /dev/uinput
type uinputSynth struct {
	dev *uinputDevice
}

func nativeSynthesizer() (Synthesizer, error) {
	spec := uinputSpec{
		name:    "gamepilot keyboard/mouse",
		vendor:  0x1209,
		product: 0x0001,
		rels:    []uint16{relX, relY, relWheel},
	}
	for _, code := range evdevKeys {
		spec.keys = append(spec.keys, code)
	}
	for _, code := range evdevButtons {
		spec.keys = append(spec.keys, code)
	}
	dev, err := createUinput(spec)
	if err != nil {
		return nil, err
	}
	return &uinputSynth{dev: dev}, nil
}

func (u *uinputSynth) Name() string { return "uinput" }

func (u *uinputSynth) Key(name string, down bool) error {
	code, ok := evdevKeys[name]
	if !ok {
		return fmt.Errorf("no evdev code for %q", name)
	}
	return u.press(code, down)
}

func (u *uinputSynth) MouseButton(name string, down bool) error {
	code, ok := evdevButtons[name]
	if !ok {
		return fmt.Errorf("unsupported mouse button %q", name)
	}
	return u.press(code, down)
}

func (u *uinputSynth) press(code uint16, down bool) error {
	if err := u.dev.emit(evKey, code, boolValue(down)); err != nil {
		return err
	}
	return u.dev.sync()
}

func (u *uinputSynth) Move(dx, dy int) error {
	if dx != 0 {
		if err := u.dev.emit(evRel, relX, int32(dx)); err != nil {
			return err
		}
	}
	if dy != 0 {
		if err := u.dev.emit(evRel, relY, int32(dy)); err != nil {
			return err
		}
	}
	return u.dev.sync()
}

// Wheel follows the evdev convention: positive scrolls up.
func (u *uinputSynth) Wheel(notches int) error {
	if err := u.dev.emit(evRel, relWheel, int32(notches)); err != nil {
		return err
	}
	return u.dev.sync()
}

func (u *uinputSynth) Close() error {
	return u.dev.Close()
}
