// Package osutils holds OS-level helpers: privilege checks and process
// time control.
package osutils

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrUnsupportedSpeed is returned for speed factors other than 0 and 1
var ErrUnsupportedSpeed = errors.New("only speed 0 (paused) and 1 (running) are supported")

// ProcessDilator controls a target's clock by suspending and resuming the
// whole process. Speed 0 freezes it, speed 1 lets it run.
type ProcessDilator struct {
	pid     int
	mu      sync.Mutex
	paused  bool
	suspend func(pid int) error
	resume  func(pid int) error
}

// NewProcessDilator controls pid
func NewProcessDilator(pid int) (*ProcessDilator, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}
	return &ProcessDilator{pid: pid, suspend: suspendProcess, resume: resumeProcess}, nil
}

// SetSpeed pauses (0) or resumes (1) the process. Repeated calls with the
// current speed do nothing.
func (d *ProcessDilator) SetSpeed(speed float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch speed {
	case 0:
		if d.paused {
			return nil
		}
		if err := d.suspend(d.pid); err != nil {
			return err
		}
		d.paused = true
	case 1:
		if !d.paused {
			return nil
		}
		if err := d.resume(d.pid); err != nil {
			return err
		}
		d.paused = false
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedSpeed, speed)
	}
	return nil
}

// Paused reports whether the process is currently suspended
func (d *ProcessDilator) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Release resumes the process if it is suspended. A target must never be
// left frozen when the controller exits.
func (d *ProcessDilator) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.paused {
		return nil
	}
	slog.Info("osutils: resuming suspended process", "pid", d.pid)
	if err := d.resume(d.pid); err != nil {
		return err
	}
	d.paused = false
	return nil
}
