//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002

	mouseeventfMove  = 0x0001
	mouseeventfWheel = 0x0800

	wheelDelta = 120
)

// mouseButtonFlags holds the down and up flags per button
var mouseButtonFlags = map[string][2]uint32{
	"left":   {0x0002, 0x0004},
	"right":  {0x0008, 0x0010},
	"middle": {0x0020, 0x0040},
}

type mouseInput struct {
	Type uint32
	Mi   struct {
		Dx        int32
		Dy        int32
		MouseData uint32
		Flags     uint32
		Time      uint32
		ExtraInfo uintptr
	}
}

type keyInput struct {
	Type uint32
	Ki   struct {
		Vk        uint16
		Scan      uint16
		Flags     uint32
		Time      uint32
		ExtraInfo uintptr
	}
	_ [8]byte // pad to sizeof(INPUT), whose union is sized by MOUSEINPUT
}

// sendInputSynth injects events with user32 SendInput
type sendInputSynth struct{}

func nativeSynthesizer() (Synthesizer, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("SendInput unavailable: %w", err)
	}
	return sendInputSynth{}, nil
}

func (sendInputSynth) Name() string { return "sendinput" }

func (sendInputSynth) Key(name string, down bool) error {
	vk, ok := VKCode(name)
	if !ok {
		return fmt.Errorf("no virtual-key code for %q", name)
	}
	var in keyInput
	in.Type = inputKeyboard
	in.Ki.Vk = vk
	if extendedKeys[name] {
		in.Ki.Flags |= keyeventfExtendedKey
	}
	if !down {
		in.Ki.Flags |= keyeventfKeyUp
	}
	return send(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (sendInputSynth) MouseButton(name string, down bool) error {
	flags, ok := mouseButtonFlags[name]
	if !ok {
		return fmt.Errorf("unsupported mouse button %q", name)
	}
	var in mouseInput
	in.Type = inputMouse
	if down {
		in.Mi.Flags = flags[0]
	} else {
		in.Mi.Flags = flags[1]
	}
	return send(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (sendInputSynth) Move(dx, dy int) error {
	var in mouseInput
	in.Type = inputMouse
	in.Mi.Dx = int32(dx)
	in.Mi.Dy = int32(dy)
	in.Mi.Flags = mouseeventfMove
	return send(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (sendInputSynth) Wheel(notches int) error {
	var in mouseInput
	in.Type = inputMouse
	in.Mi.MouseData = uint32(int32(notches * wheelDelta))
	in.Mi.Flags = mouseeventfWheel
	return send(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (sendInputSynth) Close() error { return nil }

func send(in unsafe.Pointer, size uintptr) error {
	n, _, err := procSendInput.Call(1, uintptr(in), size)
	if n != 1 {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}
