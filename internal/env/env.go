// Package env ties an input controller, a capture backend and optional time
// dilation into a step loop: apply an action, let the target run for one
// step, then hand back the newest frame.
package env

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/image/draw"

	"gamepilot/internal/action"
	"gamepilot/internal/capture"
	"gamepilot/internal/input"
	"gamepilot/internal/osutils"
	"gamepilot/internal/process"
)

// State is the environment lifecycle stage
type State int

const (
	StateUninitialized State = iota
	StateBound
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBound:
		return "bound"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	wakeupHold    = 100 * time.Millisecond
	defaultSettle = time.Second
	defaultEnvFPS = 10
	defaultSpeed  = 1.0
	speedPaused   = 0.0
	speedRunning  = 1.0
)

// Dilator changes how fast the target's clock runs
type Dilator interface {
	SetSpeed(speed float64) error
}

// releaser is implemented by dilators that must undo a pause on exit
type releaser interface {
	Release() error
}

// Config describes one session
type Config struct {
	// Target is a process spec: "pid:123", "123" or an executable name
	Target string

	Controller action.Kind
	Input      input.Options

	// CaptureBackend names a capture.New backend
	CaptureBackend string

	// FPS is the step rate; the default step lasts 1/(FPS*Speed)
	FPS   int
	Speed float64

	// Dilation pauses the target between steps
	Dilation bool
	// AsyncMode lets the target run only while a step sleeps. Without it a
	// configured dilator is left running and only Pause/Unpause act on it.
	AsyncMode bool

	// ObserveWidth and ObserveHeight resize frames; zero keeps capture size
	ObserveWidth  int
	ObserveHeight int

	// Settle is the wait after Reset
	Settle time.Duration
}

// DefaultConfig returns a gamepad session at 10 steps per second
func DefaultConfig() Config {
	return Config{
		Controller:     action.KindGamepad,
		Input:          input.DefaultOptions(),
		CaptureBackend: capture.KindPolling,
		FPS:            defaultEnvFPS,
		Speed:          defaultSpeed,
		AsyncMode:      true,
		Settle:         defaultSettle,
	}
}

// Deps are the collaborators the environment is built from
type Deps struct {
	Lookup        func(spec process.Spec) (process.Target, error)
	Activate      func(w process.Window) error
	NewController func(kind action.Kind, opts input.Options) (input.Controller, error)
	NewBackend    func(kind string, region capture.Region, fps int) (capture.Backend, error)
	NewDilator    func(pid int) (Dilator, error)
	Sleep         func(time.Duration)
}

// DefaultDeps wires the real platform implementations
func DefaultDeps() Deps {
	return Deps{
		Lookup:        process.Lookup,
		Activate:      process.Activate,
		NewController: input.New,
		NewBackend:    capture.New,
		NewDilator: func(pid int) (Dilator, error) {
			d, err := osutils.NewProcessDilator(pid)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
		Sleep: time.Sleep,
	}
}

// Status is a point-in-time view of the environment
type Status struct {
	State       string `json:"state"`
	Target      string `json:"target"`
	PID         int    `json:"pid"`
	Window      string `json:"window"`
	Controller  string `json:"controller"`
	Steps       uint64 `json:"steps"`
	StaleFrames uint64 `json:"stale_frames"`
	Paused      bool   `json:"paused"`
}

// Env is a bound session. Step, Reset, Pause, Unpause and Close must be
// called from one goroutine; Status may be called from any.
type Env struct {
	cfg        Config
	target     process.Target
	controller input.Controller
	backend    capture.Backend
	dilator    Dilator
	sleep      func(time.Duration)
	step       time.Duration

	mu     sync.Mutex
	state  State
	steps  uint64
	stale  uint64
	paused bool
	last   *capture.Frame
}

// New resolves the target and builds the controller, the dilator and the
// capture backend. Anything built before a failure is closed again.
func New(ctx context.Context, cfg Config, deps Deps) (*Env, error) {
	if cfg.FPS <= 0 {
		cfg.FPS = defaultEnvFPS
	}
	if cfg.Speed <= 0 {
		cfg.Speed = defaultSpeed
	}
	if cfg.Settle == 0 {
		cfg.Settle = defaultSettle
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}

	_, span := tracer.Start(ctx, "env bind")
	defer span.End()

	spec, err := process.ParseSpec(cfg.Target)
	if err != nil {
		return nil, &TargetError{Spec: cfg.Target, Err: err}
	}
	target, err := deps.Lookup(spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "target lookup failed")
		return nil, &TargetError{Spec: spec.String(), PID: spec.PID, Err: err}
	}
	span.SetAttributes(attribute.Int("target.pid", target.PID))
	slog.Info("env: target found", "name", target.Name, "pid", target.PID, "window", target.Window.Title, "region", target.Window.Rect.String())

	if deps.Activate != nil {
		if err := deps.Activate(target.Window); err != nil {
			slog.Warn("env: could not focus target window", "error", err)
		}
	}

	e := &Env{
		cfg:    cfg,
		target: target,
		sleep:  deps.Sleep,
		step:   stepDuration(cfg.FPS, cfg.Speed),
	}

	e.controller, err = deps.NewController(cfg.Controller, cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	if cfg.Dilation {
		d, err := deps.NewDilator(target.PID)
		if err != nil {
			e.abort()
			return nil, fmt.Errorf("time dilation: %w", err)
		}
		e.dilator = d
	}

	e.backend, err = deps.NewBackend(cfg.CaptureBackend, target.Window.Rect, cfg.FPS)
	if err != nil {
		e.abort()
		return nil, fmt.Errorf("capture: %w", err)
	}

	e.state = StateBound
	slog.Info("env: bound", "controller", cfg.Controller.String(), "capture", cfg.CaptureBackend, "step", e.step, "dilation", e.dilator != nil)
	return e, nil
}

// abort closes what a failed New built
func (e *Env) abort() {
	if e.controller != nil {
		if err := e.controller.Close(); err != nil {
			slog.Warn("env: closing controller after failed setup", "error", err)
		}
	}
	e.releaseDilator()
}

func stepDuration(fps int, speed float64) time.Duration {
	return time.Duration(float64(time.Second) / (float64(fps) * speed))
}

// StepDuration is the default length of one step
func (e *Env) StepDuration() time.Duration {
	return e.step
}

// Target returns the resolved target
func (e *Env) Target() process.Target {
	return e.target
}

// State returns the lifecycle stage
func (e *Env) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns a snapshot for status reporting
func (e *Env) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:       e.state.String(),
		Target:      e.target.Name,
		PID:         e.target.PID,
		Window:      e.target.Window.Title,
		Controller:  e.cfg.Controller.String(),
		Steps:       e.steps,
		StaleFrames: e.stale,
		Paused:      e.paused,
	}
}

// Step applies a, lets the target run for duration and returns the newest
// frame. A duration of zero or less uses StepDuration.
func (e *Env) Step(ctx context.Context, a action.Action, duration time.Duration) (capture.Frame, error) {
	ctx, span := tracer.Start(ctx, "env step")
	defer span.End()

	if e.State() == StateClosed {
		return capture.Frame{}, ErrClosed
	}
	if duration <= 0 {
		duration = e.step
	}
	span.SetAttributes(
		attribute.String("action.kind", a.Kind.String()),
		attribute.Int64("step.duration_ms", duration.Milliseconds()),
	)

	if err := e.controller.Step(a); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "controller step failed")
		return capture.Frame{}, fmt.Errorf("controller step: %w", err)
	}

	if e.dilator != nil && e.cfg.AsyncMode {
		if err := e.setSpeed(speedRunning); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "resume failed")
			return capture.Frame{}, err
		}
		e.sleep(duration)
		if err := e.setSpeed(speedPaused); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pause failed")
			return capture.Frame{}, err
		}
	} else {
		e.sleep(duration)
	}

	e.mu.Lock()
	e.steps++
	e.mu.Unlock()
	stepCounter.Add(ctx, 1)

	frame := e.capture(ctx)
	if frame.Stale {
		span.AddEvent("stale frame")
	}
	return e.observation(frame), nil
}

// capture grabs a frame and records it as the latest observation
func (e *Env) capture(ctx context.Context) capture.Frame {
	frame := e.backend.Capture()
	if frame.Stale {
		staleCounter.Add(ctx, 1)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if frame.Stale {
		e.stale++
		// Backends only fall back to a previous frame once they have
		// delivered a fresh one, which is what moves the env to Ready.
		served := "previous frame"
		if e.state == StateBound {
			served = "black frame"
		}
		slog.Warn("env: capture missed, serving "+served, "steps", e.steps, "stale", e.stale)
	} else if e.state == StateBound {
		e.state = StateReady
	}
	e.last = &frame
	return frame
}

// Observe returns the most recent frame without stepping. Before the first
// step it captures one.
func (e *Env) Observe(ctx context.Context) (capture.Frame, error) {
	if e.State() == StateClosed {
		return capture.Frame{}, ErrClosed
	}
	e.mu.Lock()
	last := e.last
	e.mu.Unlock()
	if last == nil {
		f := e.capture(ctx)
		last = &f
	}
	return e.observation(*last), nil
}

// observation resizes a frame to the configured observation size
func (e *Env) observation(f capture.Frame) capture.Frame {
	w, h := e.cfg.ObserveWidth, e.cfg.ObserveHeight
	if w <= 0 || h <= 0 || f.Image == nil {
		return f
	}
	if f.Image.Bounds().Dx() == w && f.Image.Bounds().Dy() == h {
		return f
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), f.Image, f.Image.Bounds(), draw.Src, nil)
	f.Image = dst
	return f
}

// Reset wakes the controller (or resets it if it cannot be woken) and waits
// for the target to settle.
func (e *Env) Reset(ctx context.Context) error {
	_, span := tracer.Start(ctx, "env reset")
	defer span.End()

	if e.State() == StateClosed {
		return ErrClosed
	}
	var err error
	if w, ok := e.controller.(input.Waker); ok {
		err = w.Wakeup(wakeupHold)
	} else {
		err = e.controller.Reset()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "controller reset failed")
		return fmt.Errorf("controller reset: %w", err)
	}
	e.sleep(e.cfg.Settle)
	return nil
}

// Pause freezes the target. It does nothing without a dilator.
func (e *Env) Pause() error {
	if e.dilator == nil {
		return nil
	}
	return e.setSpeed(speedPaused)
}

// Unpause lets the target run again. It does nothing without a dilator.
func (e *Env) Unpause() error {
	if e.dilator == nil {
		return nil
	}
	return e.setSpeed(speedRunning)
}

func (e *Env) setSpeed(speed float64) error {
	if err := e.dilator.SetSpeed(speed); err != nil {
		return fmt.Errorf("set speed %v: %w", speed, err)
	}
	e.mu.Lock()
	e.paused = speed == speedPaused
	e.mu.Unlock()
	return nil
}

// Close releases the controller, then the capture backend, then any paused
// target. Only the controller's error is returned. Later calls do nothing.
func (e *Env) Close() error {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state = StateClosed
	steps, stale := e.steps, e.stale
	e.mu.Unlock()

	var err error
	if cerr := e.controller.Close(); cerr != nil {
		err = fmt.Errorf("close controller: %w", cerr)
	}
	if berr := e.backend.Close(); berr != nil {
		slog.Warn("env: closing capture backend", "error", berr)
	}
	e.releaseDilator()
	slog.Info("env: closed", "steps", steps, "stale", stale)
	return err
}

func (e *Env) releaseDilator() {
	r, ok := e.dilator.(releaser)
	if !ok {
		return
	}
	if err := r.Release(); err != nil {
		slog.Error("env: target may still be paused", "pid", e.target.PID, "error", err)
	}
}
