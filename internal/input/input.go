// Package input provides the controllers that turn actions into synthetic
// gamepad or keyboard/mouse input.
package input

import (
	"fmt"
	"runtime"
	"time"

	"gamepilot/internal/action"
)

// Controller applies actions to an input device and tracks what it has
// pressed so later steps can reconcile against it. Implementations are not
// safe for concurrent use.
type Controller interface {
	Kind() action.Kind
	Step(a action.Action) error
	Reset() error
	Close() error
}

// Waker is implemented by controllers that need a nudge before the target
// notices them.
type Waker interface {
	Wakeup(hold time.Duration) error
}

// Backend selectors for the keyboard/mouse controller
const (
	BackendAuto    = "auto"
	BackendNative  = "native"
	BackendXdotool = "xdotool"
)

// Options configures controller construction
type Options struct {
	// DryRun suppresses every device call while still tracking state
	DryRun bool

	// Profile selects the gamepad button table ("xbox" or "ps4")
	Profile string

	// InvertY submits stick Y values as -y-1
	InvertY bool

	// Backend selects the keyboard/mouse synthesis path
	Backend string
}

// DefaultOptions returns options for the host platform
func DefaultOptions() Options {
	return Options{
		Profile: ProfileXbox,
		InvertY: runtime.GOOS == "windows",
		Backend: BackendAuto,
	}
}

// New builds the controller for kind
func New(kind action.Kind, opts Options) (Controller, error) {
	switch kind {
	case action.KindGamepad:
		return NewGamepad(opts)
	case action.KindKeyboardMouse:
		return NewKeyboardMouse(opts)
	}
	return nil, fmt.Errorf("%w: %v", ErrActionKind, kind)
}
