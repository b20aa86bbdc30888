package osutils

import (
	"errors"
	"testing"
)

func newFakeDilator() (*ProcessDilator, *[]string) {
	var calls []string
	d := &ProcessDilator{
		pid:     42,
		suspend: func(int) error { calls = append(calls, "suspend"); return nil },
		resume:  func(int) error { calls = append(calls, "resume"); return nil },
	}
	return d, &calls
}

func TestSetSpeedTransitions(t *testing.T) {
	d, calls := newFakeDilator()

	d.SetSpeed(1) // already running
	d.SetSpeed(0)
	d.SetSpeed(0)
	d.SetSpeed(1)

	want := []string{"suspend", "resume"}
	if len(*calls) != len(want) || (*calls)[0] != want[0] || (*calls)[1] != want[1] {
		t.Errorf("Calls = %v, want %v", *calls, want)
	}
	if d.Paused() {
		t.Error("Expected running after SetSpeed(1)")
	}
}

func TestSetSpeedRejectsFractions(t *testing.T) {
	d, _ := newFakeDilator()
	if err := d.SetSpeed(0.5); !errors.Is(err, ErrUnsupportedSpeed) {
		t.Errorf("Expected ErrUnsupportedSpeed, got %v", err)
	}
}

func TestReleaseResumesOnlyWhenPaused(t *testing.T) {
	d, calls := newFakeDilator()
	d.Release()
	if len(*calls) != 0 {
		t.Errorf("Release on a running process should do nothing, got %v", *calls)
	}
	d.SetSpeed(0)
	d.Release()
	if d.Paused() || (*calls)[len(*calls)-1] != "resume" {
		t.Errorf("Release should resume a paused process, calls %v", *calls)
	}
}

func TestSuspendFailureKeepsState(t *testing.T) {
	d, _ := newFakeDilator()
	d.suspend = func(int) error { return errors.New("access denied") }
	if err := d.SetSpeed(0); err == nil {
		t.Fatal("Expected suspend error")
	}
	if d.Paused() {
		t.Error("State must not change when suspend fails")
	}
}

func TestNewProcessDilatorValidatesPid(t *testing.T) {
	if _, err := NewProcessDilator(0); err == nil {
		t.Error("Expected error for pid 0")
	}
}
