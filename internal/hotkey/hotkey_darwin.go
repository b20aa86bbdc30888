//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

CGEventRef keyTapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon);

static CFRunLoopRef tapLoop;

// installKeyTap adds a listen-only key tap to the current run loop. It
// returns 0 when the tap cannot be created, usually because accessibility
// access was not granted.
static inline int installKeyTap(uintptr_t refcon) {
    CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) |
        CGEventMaskBit(kCGEventKeyUp) |
        CGEventMaskBit(kCGEventFlagsChanged);
    CFMachPortRef tap = CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly,
        mask,
        keyTapCallback,
        (void*)refcon
    );
    if (!tap) {
        return 0;
    }
    CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
    tapLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(tapLoop, source, kCFRunLoopCommonModes);
    CGEventTapEnable(tap, true);
    return 1;
}

static inline void stopKeyTap(void) {
    if (tapLoop) {
        CFRunLoopStop(tapLoop);
        tapLoop = NULL;
    }
}
*/
import "C"
import (
	"errors"
	"log/slog"
	"runtime"
	"runtime/cgo"
	"unsafe"
)

var macKeys = map[uint16]string{
	0: "A", 11: "B", 8: "C", 2: "D", 14: "E", 3: "F", 5: "G", 4: "H",
	34: "I", 38: "J", 40: "K", 37: "L", 46: "M", 45: "N", 31: "O", 35: "P",
	12: "Q", 15: "R", 1: "S", 17: "T", 32: "U", 9: "V", 13: "W", 7: "X",
	16: "Y", 6: "Z",
	29: "0", 18: "1", 19: "2", 20: "3", 21: "4", 23: "5", 22: "6", 26: "7",
	28: "8", 25: "9",
	122: "F1", 120: "F2", 99: "F3", 118: "F4", 96: "F5", 97: "F6",
	98: "F7", 100: "F8", 101: "F9", 109: "F10", 103: "F11", 111: "F12",
	53: "ESC", 49: "SPACE", 36: "ENTER", 48: "TAB", 51: "BACKSPACE", 117: "DELETE",
	123: "LEFT", 124: "RIGHT", 125: "DOWN", 126: "UP",
}

//export keyTapCallback
func keyTapCallback(proxy C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, refcon unsafe.Pointer) C.CGEventRef {
	m := cgo.Handle(uintptr(refcon)).Value().(*Manager)
	keyCode := uint16(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))

	switch eventType {
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		if name, ok := macKeys[keyCode]; ok {
			m.UpdateState(name, eventType == C.kCGEventKeyDown)
		}
	case C.kCGEventFlagsChanged:
		flags := C.CGEventGetFlags(event)
		switch keyCode {
		case 54, 55:
			m.UpdateState("CMD", flags&C.kCGEventFlagMaskCommand != 0)
		case 56, 60:
			m.UpdateState("SHIFT", flags&C.kCGEventFlagMaskShift != 0)
		case 58, 61:
			m.UpdateState("ALT", flags&C.kCGEventFlagMaskAlternate != 0)
		case 59, 62:
			m.UpdateState("CTRL", flags&C.kCGEventFlagMaskControl != 0)
		}
	}
	return event
}

func (m *Manager) startPlatform() error {
	result := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		h := cgo.NewHandle(m)
		defer h.Delete()

		if C.installKeyTap(C.uintptr_t(h)) == 0 {
			result <- errors.New("create event tap: accessibility permission missing")
			return
		}
		result <- nil
		C.CFRunLoopRun()
		slog.Debug("hotkey: event tap removed")
	}()
	err := <-result
	if err == nil {
		slog.Info("hotkey: event tap installed")
	}
	return err
}

func (m *Manager) stopPlatform() {
	C.stopKeyTap()
}
