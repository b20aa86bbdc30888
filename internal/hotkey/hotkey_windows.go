//go:build windows

package hotkey

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmSysKeyDown = 0x0104
	wmQuit       = 0x0012
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    windows.HWND
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// vkNames maps virtual-key codes to hotkey part names
var vkNames = map[uint32]string{
	0x10: "SHIFT", 0xA0: "SHIFT", 0xA1: "SHIFT",
	0x11: "CTRL", 0xA2: "CTRL", 0xA3: "CTRL",
	0x12: "ALT", 0xA4: "ALT", 0xA5: "ALT",
	0x5B: "CMD", 0x5C: "CMD",
	0x08: "BACKSPACE", 0x09: "TAB", 0x0D: "ENTER", 0x13: "PAUSE",
	0x14: "CAPSLOCK", 0x1B: "ESC", 0x20: "SPACE",
	0x21: "PAGEUP", 0x22: "PAGEDOWN", 0x23: "END", 0x24: "HOME",
	0x25: "LEFT", 0x26: "UP", 0x27: "RIGHT", 0x28: "DOWN",
	0x2C: "PRINTSCREEN", 0x2D: "INSERT", 0x2E: "DELETE", 0x91: "SCROLLLOCK",
}

var (
	hookMu     sync.Mutex
	hookTarget *Manager
	hookHandle uintptr
	hookThread uint32
)

func (m *Manager) startPlatform() error {
	hookMu.Lock()
	if hookTarget != nil {
		hookMu.Unlock()
		return fmt.Errorf("hotkey hook already running")
	}
	hookTarget = m
	hookMu.Unlock()

	started := make(chan error, 1)
	// the hook must be installed on the thread that pumps messages
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hMod, _, _ := procGetModuleHandle.Call(0)
		h, _, err := procSetWindowsHookEx.Call(whKeyboardLL, windows.NewCallback(keyboardHook), hMod, 0)
		if h == 0 {
			started <- fmt.Errorf("SetWindowsHookEx: %w", err)
			return
		}
		hookMu.Lock()
		hookHandle = h
		hookThread = windows.GetCurrentThreadId()
		hookMu.Unlock()
		started <- nil
		slog.Info("hotkey: keyboard hook installed")

		var message msg
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&message)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(h)
		slog.Debug("hotkey: keyboard hook removed")
	}()

	if err := <-started; err != nil {
		hookMu.Lock()
		hookTarget = nil
		hookMu.Unlock()
		return err
	}
	return nil
}

func (m *Manager) stopPlatform() {
	hookMu.Lock()
	defer hookMu.Unlock()
	if hookTarget != m {
		return
	}
	if hookThread != 0 {
		procPostThreadMessage.Call(uintptr(hookThread), wmQuit, 0, 0)
	}
	hookTarget, hookHandle, hookThread = nil, 0, 0
}

func keyboardHook(nCode int, wParam uintptr, lParam uintptr) uintptr {
	hookMu.Lock()
	m, h := hookTarget, hookHandle
	hookMu.Unlock()

	if nCode == 0 && m != nil {
		kbd := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		if name := vkName(kbd.VkCode); name != "" {
			m.UpdateState(name, wParam == wmKeyDown || wParam == wmSysKeyDown)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(h, uintptr(nCode), wParam, lParam)
	return ret
}

func vkName(vk uint32) string {
	if name, ok := vkNames[vk]; ok {
		return name
	}
	switch {
	case vk >= 'A' && vk <= 'Z', vk >= '0' && vk <= '9':
		return string(rune(vk))
	case vk >= 0x70 && vk <= 0x7B:
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	return ""
}
