package input

import (
	"fmt"
	"log/slog"
	"time"

	"gamepilot/internal/action"
)

// Pad is a virtual gamepad device. Update submits a whole report at once.
type Pad interface {
	Update(r Report) error
	Close() error
}

// GamepadController drives a virtual gamepad
type GamepadController struct {
	profile *Profile
	pad     Pad
	dryRun  bool
	invertY bool
	closed  bool

	report Report
	sticks map[string][2]int

	sleep func(time.Duration)
}

// NewGamepad validates the profile and, unless dry-running, connects a
// virtual pad for it.
func NewGamepad(opts Options) (*GamepadController, error) {
	profile, err := LoadProfile(opts.Profile)
	if err != nil {
		return nil, err
	}

	var pad Pad
	if !opts.DryRun {
		pad, err = openPad(profile)
		if err != nil {
			return nil, fmt.Errorf("%w: gamepad: %v", ErrCapabilityMissing, err)
		}
		slog.Info("input: virtual gamepad connected", "profile", profile.Name)
	} else {
		slog.Info("input: gamepad dry run", "profile", profile.Name)
	}
	return newGamepad(profile, pad, opts), nil
}

func newGamepad(profile *Profile, pad Pad, opts Options) *GamepadController {
	return &GamepadController{
		profile: profile,
		pad:     pad,
		dryRun:  opts.DryRun,
		invertY: opts.InvertY,
		sticks:  make(map[string][2]int, len(action.Sticks)),
		sleep:   time.Sleep,
	}
}

// Kind implements Controller
func (c *GamepadController) Kind() action.Kind { return action.KindGamepad }

// Profile returns the active profile name
func (c *GamepadController) Profile() string { return c.profile.Name }

// Report returns the last report built (and submitted unless dry-running)
func (c *GamepadController) Report() Report { return c.report }

// Stick returns the last stored (x, y) pair for a stick
func (c *GamepadController) Stick(s action.Stick) (x, y int, ok bool) {
	v, ok := c.sticks[s.Name]
	return v[0], v[1], ok
}

// Step replaces the pad state with a. The action is validated as a whole
// before anything is submitted.
func (c *GamepadController) Step(a action.Action) error {
	if c.closed {
		return ErrClosed
	}
	if a.Kind != action.KindGamepad {
		return fmt.Errorf("%w: got %v", ErrActionKind, a.Kind)
	}
	g := a.Gamepad.Clamp()
	if err := c.validate(g); err != nil {
		return err
	}

	var r Report
	for b, pressed := range g.Buttons {
		if err := c.profile.Set(&r, b, pressed); err != nil {
			return err
		}
	}
	r.LeftTrigger = uint8(g.Triggers[action.LeftTrigger])
	r.RightTrigger = uint8(g.Triggers[action.RightTrigger])

	for _, s := range action.Sticks {
		x, y, n := g.StickValue(s)
		if n != 2 {
			continue
		}
		c.sticks[s.Name] = [2]int{x, y}
		sx, sy := int16(x), int16(y)
		if c.invertY {
			sy = flipY(sy)
		}
		switch s {
		case action.LeftStick:
			r.LeftX, r.LeftY = sx, sy
		case action.RightStick:
			r.RightX, r.RightY = sx, sy
		}
	}

	c.report = r
	return c.commit()
}

func (c *GamepadController) validate(g action.GamepadAction) error {
	for b := range g.Buttons {
		if !c.profile.Has(b) {
			return fmt.Errorf("%w: %s", ErrUnknownButton, b)
		}
	}
	for _, s := range action.Sticks {
		if _, _, n := g.StickValue(s); n == 1 {
			return fmt.Errorf("%w: %s stick", ErrIncompleteStick, s.Name)
		}
	}
	return nil
}

// flipY maps y to -y-1, which for int16 is bitwise NOT: 32767 <-> -32768.
func flipY(y int16) int16 {
	return ^y
}

// Reset releases everything and centers both sticks
func (c *GamepadController) Reset() error {
	if c.closed {
		return ErrClosed
	}
	c.report = Report{}
	return c.commit()
}

// Wakeup taps LEFT_THUMB so the target registers the pad.
func (c *GamepadController) Wakeup(hold time.Duration) error {
	if c.closed {
		return ErrClosed
	}
	var r Report
	if err := c.profile.Set(&r, action.LeftThumb, true); err != nil {
		return err
	}
	c.report = r
	if err := c.commit(); err != nil {
		return err
	}
	c.sleep(hold)
	c.report = Report{}
	if err := c.commit(); err != nil {
		return err
	}
	c.sleep(hold)
	return nil
}

// Close disconnects the pad. It is safe to call more than once.
func (c *GamepadController) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.pad == nil {
		return nil
	}
	slog.Info("input: disconnecting virtual gamepad", "profile", c.profile.Name)
	return c.pad.Close()
}

func (c *GamepadController) commit() error {
	if c.dryRun || c.pad == nil {
		return nil
	}
	if err := c.pad.Update(c.report); err != nil {
		return fmt.Errorf("gamepad update: %w", err)
	}
	return nil
}
