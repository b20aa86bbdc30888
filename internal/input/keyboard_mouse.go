package input

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gamepilot/internal/action"
)

// Synthesizer emits individual keyboard and mouse events on the host.
// Key and button names are already normalized.
type Synthesizer interface {
	Name() string
	Key(name string, down bool) error
	MouseButton(name string, down bool) error
	Move(dx, dy int) error
	Wheel(notches int) error
	Close() error
}

// KeyboardMouseController reconciles the desired key and button sets of
// each action against what it pressed before.
type KeyboardMouseController struct {
	synth  Synthesizer
	dryRun bool
	closed bool

	keys    map[string]bool
	buttons map[string]bool
}

// NewKeyboardMouse probes for a synthesis backend (skipped when dry-running)
// and fixes it for the controller's life.
func NewKeyboardMouse(opts Options) (*KeyboardMouseController, error) {
	var synth Synthesizer
	if !opts.DryRun {
		var err error
		synth, err = probeSynthesizer(opts.Backend, nativeSynthesizer, xdotoolSynthesizer)
		if err != nil {
			return nil, err
		}
		slog.Info("input: keyboard/mouse backend selected", "backend", synth.Name())
	} else {
		slog.Info("input: keyboard/mouse dry run")
	}
	return newKeyboardMouse(synth, opts.DryRun), nil
}

func newKeyboardMouse(synth Synthesizer, dryRun bool) *KeyboardMouseController {
	return &KeyboardMouseController{
		synth:   synth,
		dryRun:  dryRun,
		keys:    make(map[string]bool),
		buttons: make(map[string]bool),
	}
}

type synthFactory func() (Synthesizer, error)

func probeSynthesizer(backend string, native, fallback synthFactory) (Synthesizer, error) {
	switch strings.ToLower(backend) {
	case BackendNative:
		s, err := native()
		if err != nil {
			return nil, fmt.Errorf("%w: native: %v", ErrCapabilityMissing, err)
		}
		return s, nil
	case BackendXdotool:
		s, err := fallback()
		if err != nil {
			return nil, fmt.Errorf("%w: xdotool: %v", ErrCapabilityMissing, err)
		}
		return s, nil
	case "", BackendAuto:
		s, nerr := native()
		if nerr == nil {
			return s, nil
		}
		slog.Warn("input: native keyboard/mouse backend unavailable, trying fallback", "error", nerr)
		s, ferr := fallback()
		if ferr == nil {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCapabilityMissing, errors.Join(nerr, ferr))
	}
	return nil, fmt.Errorf("unknown keyboard/mouse backend %q", backend)
}

// Kind implements Controller
func (c *KeyboardMouseController) Kind() action.Kind { return action.KindKeyboardMouse }

// Backend names the synthesis path, or "dry-run"
func (c *KeyboardMouseController) Backend() string {
	if c.synth == nil {
		return "dry-run"
	}
	return c.synth.Name()
}

// PressedKeys returns the tracked key set, sorted
func (c *KeyboardMouseController) PressedKeys() []string { return sortedSet(c.keys) }

// PressedButtons returns the tracked mouse button set, sorted
func (c *KeyboardMouseController) PressedButtons() []string { return sortedSet(c.buttons) }

// Step emits the minimal events to move from the tracked state to a:
// key releases, key presses, button releases, button presses, then motion
// and wheel when non-zero.
func (c *KeyboardMouseController) Step(a action.Action) error {
	if c.closed {
		return ErrClosed
	}
	if a.Kind != action.KindKeyboardMouse {
		return fmt.Errorf("%w: got %v", ErrActionKind, a.Kind)
	}
	km := a.KeyboardMouse
	wantKeys := action.NormalizeKeys(km.Keys)
	wantButtons := action.NormalizeMouseButtons(km.MouseButtons)

	releaseKeys, pressKeys := diff(c.keys, wantKeys)
	releaseButtons, pressButtons := diff(c.buttons, wantButtons)

	for _, k := range releaseKeys {
		if err := c.key(k, false); err != nil {
			return err
		}
	}
	for _, k := range pressKeys {
		if err := c.key(k, true); err != nil {
			return err
		}
	}
	for _, b := range releaseButtons {
		if err := c.button(b, false); err != nil {
			return err
		}
	}
	for _, b := range pressButtons {
		if err := c.button(b, true); err != nil {
			return err
		}
	}
	if km.MouseDX != 0 || km.MouseDY != 0 {
		if err := c.emit(func(s Synthesizer) error { return s.Move(km.MouseDX, km.MouseDY) }); err != nil {
			return fmt.Errorf("mouse move: %w", err)
		}
	}
	if km.MouseWheel != 0 {
		if err := c.emit(func(s Synthesizer) error { return s.Wheel(km.MouseWheel) }); err != nil {
			return fmt.Errorf("mouse wheel: %w", err)
		}
	}
	return nil
}

// Reset releases every tracked key and button
func (c *KeyboardMouseController) Reset() error {
	if c.closed {
		return ErrClosed
	}
	return c.releaseAll()
}

func (c *KeyboardMouseController) releaseAll() error {
	var errs []error
	for _, k := range sortedSet(c.keys) {
		if err := c.key(k, false); err != nil {
			errs = append(errs, err)
			delete(c.keys, k)
		}
	}
	for _, b := range sortedSet(c.buttons) {
		if err := c.button(b, false); err != nil {
			errs = append(errs, err)
			delete(c.buttons, b)
		}
	}
	return errors.Join(errs...)
}

// Close releases everything still held and closes the backend. Safe to
// call more than once.
func (c *KeyboardMouseController) Close() error {
	if c.closed {
		return nil
	}
	err := c.releaseAll()
	c.closed = true
	if c.synth != nil {
		err = errors.Join(err, c.synth.Close())
	}
	return err
}

func (c *KeyboardMouseController) key(name string, down bool) error {
	if err := c.emit(func(s Synthesizer) error { return s.Key(name, down) }); err != nil {
		return fmt.Errorf("key %s: %w", name, err)
	}
	if down {
		c.keys[name] = true
	} else {
		delete(c.keys, name)
	}
	return nil
}

func (c *KeyboardMouseController) button(name string, down bool) error {
	if err := c.emit(func(s Synthesizer) error { return s.MouseButton(name, down) }); err != nil {
		return fmt.Errorf("mouse button %s: %w", name, err)
	}
	if down {
		c.buttons[name] = true
	} else {
		delete(c.buttons, name)
	}
	return nil
}

func (c *KeyboardMouseController) emit(fn func(Synthesizer) error) error {
	if c.dryRun || c.synth == nil {
		return nil
	}
	return fn(c.synth)
}

// diff returns the sorted names to release and to press
func diff(held map[string]bool, want []string) (release, press []string) {
	wanted := make(map[string]bool, len(want))
	for _, w := range want {
		wanted[w] = true
		if !held[w] {
			press = append(press, w)
		}
	}
	for h := range held {
		if !wanted[h] {
			release = append(release, h)
		}
	}
	sort.Strings(release)
	sort.Strings(press)
	return release, press
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
