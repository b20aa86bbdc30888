//go:build darwin

package input

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

static bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}

static CGPoint currentMousePosition() {
    CGEventRef event = CGEventCreate(NULL);
    CGPoint cursor = CGEventGetLocation(event);
    CFRelease(event);
    return cursor;
}

static void postMouseMove(CGFloat dx, CGFloat dy) {
    CGPoint pos = currentMousePosition();
    CGPoint next = CGPointMake(pos.x + dx, pos.y + dy);
    CGEventRef event = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, next, kCGMouseButtonLeft);
    CGEventSetIntegerValueField(event, kCGMouseEventDeltaX, (int64_t)dx);
    CGEventSetIntegerValueField(event, kCGMouseEventDeltaY, (int64_t)dy);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

// button: 0 left, 1 right, 2 middle
static void postMouseButton(int button, bool pressed) {
    CGEventType type;
    CGMouseButton cgButton;
    switch (button) {
        case 0:
            cgButton = kCGMouseButtonLeft;
            type = pressed ? kCGEventLeftMouseDown : kCGEventLeftMouseUp;
            break;
        case 1:
            cgButton = kCGMouseButtonRight;
            type = pressed ? kCGEventRightMouseDown : kCGEventRightMouseUp;
            break;
        default:
            cgButton = kCGMouseButtonCenter;
            type = pressed ? kCGEventOtherMouseDown : kCGEventOtherMouseUp;
            break;
    }
    CGEventRef event = CGEventCreateMouseEvent(NULL, type, currentMousePosition(), cgButton);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

static void postWheel(int32_t notches) {
    CGEventRef event = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitLine, 1, notches);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

static void postKey(CGKeyCode keyCode, bool pressed) {
    CGEventRef event = CGEventCreateKeyboardEvent(NULL, keyCode, pressed);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}
*/
import "C"

import "fmt"

// macKeyCodes maps virtual-key codes to CGKeyCode for the key vocabulary
var macKeyCodes = map[uint16]uint16{
	0x41: 0x00, 0x42: 0x0B, 0x43: 0x08, 0x44: 0x02, 0x45: 0x0E, 0x46: 0x03, 0x47: 0x05,
	0x48: 0x04, 0x49: 0x22, 0x4A: 0x26, 0x4B: 0x28, 0x4C: 0x25, 0x4D: 0x2E, 0x4E: 0x2D,
	0x4F: 0x1F, 0x50: 0x23, 0x51: 0x0C, 0x52: 0x0F, 0x53: 0x01, 0x54: 0x11, 0x55: 0x20,
	0x56: 0x09, 0x57: 0x0D, 0x58: 0x07, 0x59: 0x10, 0x5A: 0x06,

	0x30: 0x1D, 0x31: 0x12, 0x32: 0x13, 0x33: 0x14, 0x34: 0x15,
	0x35: 0x17, 0x36: 0x16, 0x37: 0x1A, 0x38: 0x1C, 0x39: 0x19,

	0x08: 0x33, // backspace
	0x09: 0x30, // tab
	0x0D: 0x24, // return
	0x10: 0x38, // shift
	0x11: 0x3B, // control
	0x12: 0x3A, // option
	0x13: 0x71, // pause -> F15
	0x14: 0x39, // caps lock
	0x1B: 0x35, // escape
	0x20: 0x31, // space

	0x25: 0x7B, 0x26: 0x7E, 0x27: 0x7C, 0x28: 0x7D,

	0x21: 0x74, // page up
	0x22: 0x79, // page down
	0x23: 0x77, // end
	0x24: 0x73, // home
	0x2D: 0x72, // insert -> help
	0x2E: 0x75, // forward delete
}

var macButtons = map[string]int{"left": 0, "right": 1, "middle": 2}

// quartzSynth posts CoreGraphics events into the login session
type quartzSynth struct{}

func nativeSynthesizer() (Synthesizer, error) {
	if !bool(C.hasAccessibilityPermissions()) {
		return nil, fmt.Errorf("accessibility permission not granted")
	}
	return quartzSynth{}, nil
}

func (quartzSynth) Name() string { return "quartz" }

func (quartzSynth) Key(name string, down bool) error {
	vk, ok := VKCode(name)
	if !ok {
		return fmt.Errorf("no key code for %q", name)
	}
	code, ok := macKeyCodes[vk]
	if !ok {
		return fmt.Errorf("no CGKeyCode for %q", name)
	}
	C.postKey(C.CGKeyCode(code), C.bool(down))
	return nil
}

func (quartzSynth) MouseButton(name string, down bool) error {
	b, ok := macButtons[name]
	if !ok {
		return fmt.Errorf("unsupported mouse button %q", name)
	}
	C.postMouseButton(C.int(b), C.bool(down))
	return nil
}

func (quartzSynth) Move(dx, dy int) error {
	C.postMouseMove(C.CGFloat(dx), C.CGFloat(dy))
	return nil
}

func (quartzSynth) Wheel(notches int) error {
	C.postWheel(C.int32_t(notches))
	return nil
}

func (quartzSynth) Close() error { return nil }
