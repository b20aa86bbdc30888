package env

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gamepilot/internal/action"
	"gamepilot/internal/capture"
	"gamepilot/internal/input"
	"gamepilot/internal/process"
)

// recorder is shared by the fakes so tests can assert cross-component order
type recorder struct {
	calls []string
}

func (r *recorder) add(s string) { r.calls = append(r.calls, s) }

func (r *recorder) joined() string { return strings.Join(r.calls, ",") }

type fakeController struct {
	rec      *recorder
	kind     action.Kind
	stepErr  error
	closeErr error
}

func (c *fakeController) Kind() action.Kind { return c.kind }

func (c *fakeController) Step(a action.Action) error {
	c.rec.add("step")
	return c.stepErr
}

func (c *fakeController) Reset() error {
	c.rec.add("reset")
	return nil
}

func (c *fakeController) Close() error {
	c.rec.add("controller.close")
	return c.closeErr
}

type wakingController struct {
	fakeController
	hold time.Duration
}

func (c *wakingController) Wakeup(hold time.Duration) error {
	c.rec.add("wakeup")
	c.hold = hold
	return nil
}

type fakeBackend struct {
	rec      *recorder
	frames   []capture.Frame
	closeErr error
}

func (b *fakeBackend) Capture() capture.Frame {
	b.rec.add("capture")
	if len(b.frames) == 0 {
		return capture.Black(capture.Region{Width: 4, Height: 4})
	}
	f := b.frames[0]
	b.frames = b.frames[1:]
	return f
}

func (b *fakeBackend) Close() error {
	b.rec.add("backend.close")
	return b.closeErr
}

type fakeDilator struct {
	rec    *recorder
	paused bool
}

func (d *fakeDilator) SetSpeed(speed float64) error {
	if speed == 0 {
		d.rec.add("pause")
		d.paused = true
	} else {
		d.rec.add("resume")
		d.paused = false
	}
	return nil
}

func (d *fakeDilator) Release() error {
	if d.paused {
		d.rec.add("release")
		d.paused = false
	}
	return nil
}

func freshFrame(w, h int) capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.SetRGBA(0, 0, color.RGBA{G: 255, A: 255})
	return capture.Frame{Image: img, CapturedAt: time.Now()}
}

type harness struct {
	rec        *recorder
	controller input.Controller
	backend    *fakeBackend
	dilator    *fakeDilator
	sleeps     []time.Duration
	region     capture.Region
}

func newHarness(controller input.Controller, rec *recorder) *harness {
	return &harness{
		rec:        rec,
		controller: controller,
		backend:    &fakeBackend{rec: rec},
		dilator:    &fakeDilator{rec: rec},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Lookup: func(spec process.Spec) (process.Target, error) {
			if !spec.Matches(1234, "game.exe") {
				return process.Target{}, process.ErrNotFound
			}
			return process.Target{
				PID:    1234,
				Name:   "game.exe",
				Window: process.Window{Title: "Game", Rect: capture.Region{Left: 10, Top: 10, Width: 640, Height: 360}},
			}, nil
		},
		NewController: func(kind action.Kind, opts input.Options) (input.Controller, error) {
			return h.controller, nil
		},
		NewBackend: func(kind string, region capture.Region, fps int) (capture.Backend, error) {
			h.region = region
			return h.backend, nil
		},
		NewDilator: func(pid int) (Dilator, error) {
			return h.dilator, nil
		},
		Sleep: func(d time.Duration) {
			h.rec.add("sleep")
			h.sleeps = append(h.sleeps, d)
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Target = "game.exe"
	return cfg
}

func TestNewBindsTarget(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	e, err := New(context.Background(), testConfig(), h.deps())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if e.State() != StateBound {
		t.Errorf("Expected bound, got %v", e.State())
	}
	if h.region.Width != 640 || h.region.Left != 10 {
		t.Errorf("Backend should capture the target window, got %v", h.region)
	}
	if e.StepDuration() != 100*time.Millisecond {
		t.Errorf("Expected 100ms default step at 10 fps, got %v", e.StepDuration())
	}
}

func TestNewTargetUnavailable(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	cfg := testConfig()
	cfg.Target = "missing.exe"

	_, err := New(context.Background(), cfg, h.deps())
	if !errors.Is(err, ErrTargetUnavailable) || !errors.Is(err, process.ErrNotFound) {
		t.Fatalf("Expected ErrTargetUnavailable wrapping ErrNotFound, got %v", err)
	}
	var te *TargetError
	if !errors.As(err, &te) || te.Spec != "missing.exe" {
		t.Errorf("Expected TargetError naming the spec, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("Nothing should be built for a missing target, got %v", rec.calls)
	}
}

func TestNewClosesControllerWhenBackendFails(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	deps := h.deps()
	deps.NewBackend = func(string, capture.Region, int) (capture.Backend, error) {
		return nil, errors.New("no display")
	}
	if _, err := New(context.Background(), testConfig(), deps); err == nil {
		t.Fatal("Expected capture error")
	}
	if rec.joined() != "controller.close" {
		t.Errorf("Expected controller closed after partial setup, got %v", rec.calls)
	}
}

func TestStepWithoutDilation(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	h.backend.frames = []capture.Frame{freshFrame(640, 360)}
	e, _ := New(context.Background(), testConfig(), h.deps())

	f, err := e.Step(context.Background(), action.Zero(action.KindGamepad), 0)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if rec.joined() != "step,sleep,capture" {
		t.Errorf("Unexpected order %v", rec.calls)
	}
	if h.sleeps[0] != e.StepDuration() {
		t.Errorf("Expected default step duration, got %v", h.sleeps[0])
	}
	if f.Stale || e.State() != StateReady {
		t.Errorf("Fresh capture should make the env ready")
	}
}

func TestStepWithDilationBrackets(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	cfg := testConfig()
	cfg.Dilation = true
	e, _ := New(context.Background(), cfg, h.deps())

	if _, err := e.Step(context.Background(), action.Zero(action.KindGamepad), 250*time.Millisecond); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if rec.joined() != "step,resume,sleep,pause,capture" {
		t.Errorf("Unexpected order %v", rec.calls)
	}
	if h.sleeps[0] != 250*time.Millisecond {
		t.Errorf("Expected explicit duration, got %v", h.sleeps[0])
	}
	if !e.Status().Paused {
		t.Error("Target should be paused after a dilated step")
	}
}

func TestStepControllerErrorSkipsTiming(t *testing.T) {
	rec := &recorder{}
	c := &fakeController{rec: rec, stepErr: input.ErrUnknownButton}
	h := newHarness(c, rec)
	e, _ := New(context.Background(), testConfig(), h.deps())

	_, err := e.Step(context.Background(), action.Zero(action.KindGamepad), 0)
	if !errors.Is(err, input.ErrUnknownButton) {
		t.Fatalf("Expected controller error, got %v", err)
	}
	if rec.joined() != "step" {
		t.Errorf("Nothing should follow a failed controller step, got %v", rec.calls)
	}
}

func TestStepStaleFrameStaysBound(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	e, _ := New(context.Background(), testConfig(), h.deps())

	f, err := e.Step(context.Background(), action.Zero(action.KindGamepad), 0)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if !f.Stale || e.State() != StateBound {
		t.Errorf("A black fallback frame should not mark the env ready")
	}
	if e.Status().StaleFrames != 1 {
		t.Errorf("Expected one stale frame counted, got %d", e.Status().StaleFrames)
	}
}

func TestObservationResize(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	h.backend.frames = []capture.Frame{freshFrame(640, 360)}
	cfg := testConfig()
	cfg.ObserveWidth, cfg.ObserveHeight = 256, 144
	e, _ := New(context.Background(), cfg, h.deps())

	f, _ := e.Step(context.Background(), action.Zero(action.KindGamepad), 0)
	if f.Image.Bounds() != image.Rect(0, 0, 256, 144) {
		t.Errorf("Expected resized observation, got %v", f.Image.Bounds())
	}
	o, err := e.Observe(context.Background())
	if err != nil || o.Image.Bounds() != image.Rect(0, 0, 256, 144) {
		t.Errorf("Observe should return the last frame resized, got %v (%v)", o.Image.Bounds(), err)
	}
	if strings.Count(rec.joined(), "capture") != 1 {
		t.Errorf("Observe must not capture again, got %v", rec.calls)
	}
}

func TestObserveBeforeStepRecordsCapture(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	e, _ := New(context.Background(), testConfig(), h.deps())

	f, err := e.Observe(context.Background())
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if !f.Stale {
		t.Error("Expected the black fallback frame")
	}
	st := e.Status()
	if st.Steps != 0 || st.StaleFrames != 1 {
		t.Errorf("Expected 0 steps and 1 stale frame, got %d and %d", st.Steps, st.StaleFrames)
	}

	if _, err := e.Observe(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Count(rec.joined(), "capture") != 1 {
		t.Errorf("A second Observe must reuse the frame, got %v", rec.calls)
	}
}

// captureLogs routes the default logger into a buffer for the test
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestStaleWarningNamesServedFrame(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	fresh := freshFrame(4, 4)
	previous := fresh
	previous.Stale = true
	h.backend.frames = []capture.Frame{capture.Black(capture.Region{Width: 4, Height: 4}), fresh, previous}
	e, _ := New(context.Background(), testConfig(), h.deps())
	logs := captureLogs(t)

	step := func() {
		if _, err := e.Step(context.Background(), action.Zero(action.KindGamepad), 0); err != nil {
			t.Fatal(err)
		}
	}

	step()
	if !strings.Contains(logs.String(), "serving black frame") {
		t.Errorf("Expected a black frame warning, got %q", logs.String())
	}
	logs.Reset()

	step()
	if strings.Contains(logs.String(), "capture missed") {
		t.Errorf("A fresh frame should not warn, got %q", logs.String())
	}

	step()
	if !strings.Contains(logs.String(), "serving previous frame") {
		t.Errorf("Expected a previous frame warning, got %q", logs.String())
	}
}

func TestResetPrefersWakeup(t *testing.T) {
	rec := &recorder{}
	c := &wakingController{fakeController: fakeController{rec: rec}}
	h := newHarness(c, rec)
	e, _ := New(context.Background(), testConfig(), h.deps())

	if err := e.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if rec.joined() != "wakeup,sleep" {
		t.Errorf("Unexpected order %v", rec.calls)
	}
	if c.hold != 100*time.Millisecond || h.sleeps[0] != time.Second {
		t.Errorf("Expected 100ms wakeup then 1s settle, got %v / %v", c.hold, h.sleeps[0])
	}
}

func TestResetFallsBackToControllerReset(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	e, _ := New(context.Background(), testConfig(), h.deps())

	e.Reset(context.Background())
	if rec.joined() != "reset,sleep" {
		t.Errorf("Unexpected order %v", rec.calls)
	}
}

func TestPauseWithoutDilatorIsNoop(t *testing.T) {
	rec := &recorder{}
	h := newHarness(&fakeController{rec: rec}, rec)
	e, _ := New(context.Background(), testConfig(), h.deps())
	if err := e.Pause(); err != nil {
		t.Errorf("Pause without dilator should succeed, got %v", err)
	}
	if err := e.Unpause(); err != nil {
		t.Errorf("Unpause without dilator should succeed, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("Expected no calls, got %v", rec.calls)
	}
}

func TestCloseOrderAndIdempotence(t *testing.T) {
	rec := &recorder{}
	c := &fakeController{rec: rec, closeErr: errors.New("pad unplugged")}
	h := newHarness(c, rec)
	h.backend.closeErr = errors.New("pipeline stuck")
	cfg := testConfig()
	cfg.Dilation = true
	e, _ := New(context.Background(), cfg, h.deps())
	e.Pause()

	err := e.Close()
	if err == nil || !strings.Contains(err.Error(), "pad unplugged") {
		t.Errorf("Expected the controller error, got %v", err)
	}
	if rec.joined() != "pause,controller.close,backend.close,release" {
		t.Errorf("Unexpected close order %v", rec.calls)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
	if strings.Count(rec.joined(), "close") != 2 {
		t.Errorf("Resources must be closed exactly once, got %v", rec.calls)
	}
	if _, err := e.Step(context.Background(), action.Zero(action.KindGamepad), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
}

func TestStepDurationScalesWithSpeed(t *testing.T) {
	if d := stepDuration(10, 2); d != 50*time.Millisecond {
		t.Errorf("Expected 50ms, got %v", d)
	}
	if d := stepDuration(60, 1); d != time.Second/60 {
		t.Errorf("Expected 1/60s, got %v", d)
	}
}
