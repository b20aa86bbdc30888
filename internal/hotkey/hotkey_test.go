package hotkey

import (
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Ctrl+Alt+Shift+Esc", []string{"CTRL", "ALT", "SHIFT", "ESC"}},
		{"control + escape", []string{"CTRL", "ESC"}},
		{"Cmd+Option+Q", []string{"CMD", "ALT", "Q"}},
		{"F12", []string{"F12"}},
	}
	for _, tt := range tests {
		got, err := ParseCombo(tt.in)
		if err != nil {
			t.Errorf("ParseCombo(%q) failed: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseCombo(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "  ", "Ctrl++Esc", "Ctrl+"} {
		if _, err := ParseCombo(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func waitCount(c *atomic.Int32, want int32) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Load() == want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return c.Load() == want
}

func TestManagerFiresOncePerPress(t *testing.T) {
	m := NewManager()
	var fired atomic.Int32
	if err := m.Register("Ctrl+Esc", func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}

	m.UpdateState("CTRL", true)
	if fired.Load() != 0 {
		t.Fatal("Partial combination should not fire")
	}
	m.UpdateState("esc", true)
	// key repeat
	m.UpdateState("ESC", true)
	m.UpdateState("ESC", true)
	if !waitCount(&fired, 1) {
		t.Fatalf("Expected 1 trigger while held, got %d", fired.Load())
	}

	m.UpdateState("ESC", false)
	m.UpdateState("ESC", true)
	if !waitCount(&fired, 2) {
		t.Errorf("Expected a second trigger after re-press, got %d", fired.Load())
	}
}

func TestManagerIgnoresEventsAfterStop(t *testing.T) {
	m := NewManager()
	var fired atomic.Int32
	if err := m.Register("Ctrl+Alt+Shift+Esc", func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}
	m.Stop()
	for _, k := range []string{"CTRL", "ALT", "SHIFT", "ESC"} {
		m.UpdateState(k, true)
	}
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("Stopped manager fired %d times", fired.Load())
	}
}
