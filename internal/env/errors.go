package env

import (
	"errors"
	"fmt"
)

var (
	// ErrTargetUnavailable is returned when the target process or its
	// window cannot be found
	ErrTargetUnavailable = errors.New("target unavailable")

	// ErrClosed is returned by operations on a closed environment
	ErrClosed = errors.New("environment closed")
)

// TargetError carries the spec that failed to resolve
type TargetError struct {
	Spec string
	PID  int
	Err  error
}

func (e *TargetError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("%v: %s (pid %d): %v", ErrTargetUnavailable, e.Spec, e.PID, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrTargetUnavailable, e.Spec, e.Err)
}

func (e *TargetError) Unwrap() []error {
	return []error{ErrTargetUnavailable, e.Err}
}
