//go:build windows

package osutils

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	ntdll                = windows.NewLazySystemDLL("ntdll.dll")
	procNtSuspendProcess = ntdll.NewProc("NtSuspendProcess")
	procNtResumeProcess  = ntdll.NewProc("NtResumeProcess")
)

// IsAdmin reports whether the process token is elevated
func IsAdmin() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

func suspendProcess(pid int) error {
	return ntProcessCall(procNtSuspendProcess, pid)
}

func resumeProcess(pid int) error {
	return ntProcessCall(procNtResumeProcess, pid)
}

func ntProcessCall(proc *windows.LazyProc, pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_SUSPEND_RESUME, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	status, _, _ := proc.Call(uintptr(h))
	if status != 0 {
		return fmt.Errorf("%s(%d): NTSTATUS 0x%X", proc.Name, pid, status)
	}
	return nil
}
