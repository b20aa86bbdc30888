package input

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"gamepilot/internal/action"
)

type fakeSynth struct {
	name   string
	events []string
	closed bool
}

func (s *fakeSynth) Name() string { return s.name }

func (s *fakeSynth) Key(name string, down bool) error {
	s.events = append(s.events, fmt.Sprintf("key:%s:%v", name, down))
	return nil
}

func (s *fakeSynth) MouseButton(name string, down bool) error {
	s.events = append(s.events, fmt.Sprintf("btn:%s:%v", name, down))
	return nil
}

func (s *fakeSynth) Move(dx, dy int) error {
	s.events = append(s.events, fmt.Sprintf("move:%d:%d", dx, dy))
	return nil
}

func (s *fakeSynth) Wheel(n int) error {
	s.events = append(s.events, fmt.Sprintf("wheel:%d", n))
	return nil
}

func (s *fakeSynth) Close() error {
	s.closed = true
	return nil
}

func km(keys, buttons []string, dx, dy, wheel int) action.Action {
	return action.KeyboardMouse(action.KeyboardMouseAction{
		Keys: keys, MouseButtons: buttons, MouseDX: dx, MouseDY: dy, MouseWheel: wheel,
	})
}

func TestKeyboardMouseDiffOrder(t *testing.T) {
	s := &fakeSynth{}
	c := newKeyboardMouse(s, false)

	if err := c.Step(km([]string{"w", "space"}, []string{"left"}, 0, 0, 0)); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	s.events = nil

	if err := c.Step(km([]string{"w", "a"}, []string{"right"}, 3, -2, 1)); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	want := []string{
		"key:space:false",
		"key:a:true",
		"btn:left:false",
		"btn:right:true",
		"move:3:-2",
		"wheel:1",
	}
	if !reflect.DeepEqual(s.events, want) {
		t.Errorf("Events = %v, want %v", s.events, want)
	}
	if got := c.PressedKeys(); !reflect.DeepEqual(got, []string{"a", "w"}) {
		t.Errorf("PressedKeys = %v", got)
	}
}

func TestKeyboardMouseReleaseOnly(t *testing.T) {
	s := &fakeSynth{}
	c := newKeyboardMouse(s, false)

	if err := c.Step(km([]string{"w"}, nil, 0, 0, 0)); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	s.events = nil

	if err := c.Step(km(nil, nil, 0, 0, 0)); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	want := []string{"key:w:false"}
	if !reflect.DeepEqual(s.events, want) {
		t.Errorf("Events = %v, want %v", s.events, want)
	}
	if got := c.PressedKeys(); len(got) != 0 {
		t.Errorf("Expected no pressed keys, got %v", got)
	}
}

func TestKeyboardMouseIdempotent(t *testing.T) {
	s := &fakeSynth{}
	c := newKeyboardMouse(s, false)
	a := km([]string{"d", "shift"}, []string{"middle"}, 0, 0, 0)
	c.Step(a)
	s.events = nil
	c.Step(a)
	if len(s.events) != 0 {
		t.Errorf("Repeating an action with no motion should emit nothing, got %v", s.events)
	}
}

func TestKeyboardMouseDropsUnknownNames(t *testing.T) {
	s := &fakeSynth{}
	c := newKeyboardMouse(s, false)
	c.Step(km([]string{" W ", "hyper", "F13"}, []string{"LEFT", "back"}, 0, 0, 0))
	want := []string{"key:w:true", "btn:left:true"}
	if !reflect.DeepEqual(s.events, want) {
		t.Errorf("Events = %v, want %v", s.events, want)
	}
}

func TestKeyboardMouseResetReleasesExactly(t *testing.T) {
	s := &fakeSynth{}
	c := newKeyboardMouse(s, false)
	c.Step(km([]string{"e", "q"}, []string{"left"}, 0, 0, 0))
	s.events = nil

	if err := c.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	want := []string{"key:e:false", "key:q:false", "btn:left:false"}
	if !reflect.DeepEqual(s.events, want) {
		t.Errorf("Events = %v, want %v", s.events, want)
	}
	if len(c.PressedKeys()) != 0 || len(c.PressedButtons()) != 0 {
		t.Error("State should be empty after reset")
	}
}

func TestKeyboardMouseDryRunMatchesLive(t *testing.T) {
	live := newKeyboardMouse(&fakeSynth{}, false)
	dry := newKeyboardMouse(nil, true)
	steps := []action.Action{
		km([]string{"w"}, nil, 1, 1, 0),
		km([]string{"w", "a"}, []string{"left"}, 0, 0, 0),
		km(nil, []string{"right"}, 0, 0, 0),
	}
	for i, a := range steps {
		if err := live.Step(a); err != nil {
			t.Fatalf("live step %d: %v", i, err)
		}
		if err := dry.Step(a); err != nil {
			t.Fatalf("dry step %d: %v", i, err)
		}
		if !reflect.DeepEqual(live.PressedKeys(), dry.PressedKeys()) ||
			!reflect.DeepEqual(live.PressedButtons(), dry.PressedButtons()) {
			t.Errorf("Step %d: dry-run state diverged", i)
		}
	}
}

func TestKeyboardMouseCloseReleases(t *testing.T) {
	s := &fakeSynth{}
	c := newKeyboardMouse(s, false)
	c.Step(km([]string{"ctrl"}, nil, 0, 0, 0))
	s.events = nil
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !reflect.DeepEqual(s.events, []string{"key:ctrl:false"}) || !s.closed {
		t.Errorf("Close should release held keys and close the backend, events %v", s.events)
	}
	if err := c.Step(km(nil, nil, 0, 0, 0)); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestProbeSynthesizer(t *testing.T) {
	ok := func(name string) synthFactory {
		return func() (Synthesizer, error) { return &fakeSynth{name: name}, nil }
	}
	missing := func() (Synthesizer, error) { return nil, errors.New("nope") }

	s, err := probeSynthesizer(BackendAuto, ok("native"), ok("xdotool"))
	if err != nil || s.Name() != "native" {
		t.Errorf("auto should prefer native, got %v, %v", s, err)
	}
	s, err = probeSynthesizer(BackendAuto, missing, ok("xdotool"))
	if err != nil || s.Name() != "xdotool" {
		t.Errorf("auto should fall back, got %v, %v", s, err)
	}
	if _, err = probeSynthesizer(BackendAuto, missing, missing); !errors.Is(err, ErrCapabilityMissing) {
		t.Errorf("Expected ErrCapabilityMissing, got %v", err)
	}
	if _, err = probeSynthesizer(BackendNative, missing, ok("xdotool")); !errors.Is(err, ErrCapabilityMissing) {
		t.Errorf("Forced native should not fall back, got %v", err)
	}
	if _, err = probeSynthesizer("carrier-pigeon", ok("a"), ok("b")); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestXdotoolCommands(t *testing.T) {
	var calls [][]string
	x := &xdotool{path: "xdotool", run: func(path string, args ...string) error {
		calls = append(calls, args)
		return nil
	}}
	x.Key("esc", true)
	x.MouseButton("right", false)
	x.Move(-4, 7)
	x.Wheel(-2)
	want := [][]string{
		{"keydown", "Escape"},
		{"mouseup", "3"},
		{"mousemove_relative", "--", "-4", "7"},
		{"click", "--repeat", "2", "5"},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("Calls = %v, want %v", calls, want)
	}
}
