//go:build !windows && !linux

package process

func listProcesses(all bool) ([]Process, error) {
	return nil, ErrUnsupported
}

func windowsOf(pid int) ([]Window, error) {
	return nil, ErrUnsupported
}

// Activate is not supported on this platform
func Activate(w Window) error {
	return ErrUnsupported
}
