//go:build windows

package process

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"gamepilot/internal/capture"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetWindowRect       = user32.NewProc("GetWindowRect")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type rawWindow struct {
	hwnd  windows.HWND
	pid   int
	title string
}

var (
	enumMu       sync.Mutex
	enumResult   []rawWindow
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if !windows.IsWindowVisible(hwnd) {
			return 1
		}
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
			return 1
		}
		buf := make([]uint16, 512)
		n, _ := windows.GetWindowText(hwnd, &buf[0], int32(len(buf)))
		enumResult = append(enumResult, rawWindow{
			hwnd:  hwnd,
			pid:   int(pid),
			title: windows.UTF16ToString(buf[:n]),
		})
		return 1
	})
)

// visibleWindows lists every visible top-level window
func visibleWindows() ([]rawWindow, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumResult = nil
	if err := windows.EnumWindows(enumCallback, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	out := enumResult
	enumResult = nil
	return out, nil
}

func windowsOf(pid int) ([]Window, error) {
	raw, err := visibleWindows()
	if err != nil {
		return nil, err
	}
	var out []Window
	for _, w := range raw {
		if w.pid != pid || w.title == "" {
			continue
		}
		var r rect
		ret, _, callErr := procGetWindowRect.Call(uintptr(w.hwnd), uintptr(unsafe.Pointer(&r)))
		if ret == 0 {
			return nil, fmt.Errorf("GetWindowRect %q: %w", w.title, callErr)
		}
		out = append(out, Window{
			Handle: uintptr(w.hwnd),
			Title:  w.title,
			Rect: capture.Region{
				Left:   int(r.Left),
				Top:    int(r.Top),
				Width:  int(r.Right - r.Left),
				Height: int(r.Bottom - r.Top),
			},
		})
	}
	return out, nil
}

func listProcesses(all bool) ([]Process, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var procs []Process
	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err = windows.Process32First(snap, &entry); err == nil; err = windows.Process32Next(snap, &entry) {
		if entry.ProcessID == 0 {
			continue
		}
		procs = append(procs, Process{
			PID:  int(entry.ProcessID),
			Name: windows.UTF16ToString(entry.ExeFile[:]),
		})
	}

	raw, err := visibleWindows()
	if err != nil {
		return nil, err
	}
	titles := make(map[int][]string)
	for _, w := range raw {
		t := w.title
		if t == "" {
			t = "<untitled>"
		}
		titles[w.pid] = appendUnique(titles[w.pid], t)
	}
	return mergeWindows(procs, titles, all), nil
}

// Activate brings the target window to the foreground
func Activate(w Window) error {
	ret, _, err := procSetForegroundWindow.Call(w.Handle)
	if ret == 0 {
		return fmt.Errorf("SetForegroundWindow: %w", err)
	}
	return nil
}
