// Package rollout runs the observe, predict, act loop against a bound
// environment until the operator stops it.
package rollout

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gamepilot/internal/action"
	"gamepilot/internal/adapter"
	"gamepilot/internal/capture"
	"gamepilot/internal/model"
)

const (
	menuPressHold = 50 * time.Millisecond
	menuPressGap  = 300 * time.Millisecond
	menuPresses   = 5
)

// Policy decides the next actions from an observation
type Policy interface {
	Reset(ctx context.Context) error
	Info(ctx context.Context) (model.Info, error)
	Predict(ctx context.Context, img image.Image) (model.Prediction, error)
}

// Environment is the part of env.Env the loop drives
type Environment interface {
	Step(ctx context.Context, a action.Action, duration time.Duration) (capture.Frame, error)
	Observe(ctx context.Context) (capture.Frame, error)
	Reset(ctx context.Context) error
	Pause() error
	Unpause() error
}

// Options configures a rollout
type Options struct {
	Controller action.Kind

	// Tokens is the button order of predictions; defaults to the model's
	// own list or model.DefaultTokens
	Tokens []string

	ButtonThreshold float64

	// AllowMenu keeps GUIDE/START/BACK presses from the model
	AllowMenu bool

	// Adapter converts gamepad plans for keyboard/mouse sessions
	Adapter adapter.Options

	// ActionRepeat overrides the model's repeat count when positive
	ActionRepeat int

	// MenuInit presses SOUTH then EAST a few times before starting, for
	// targets that only notice a new pad after some input
	MenuInit bool

	Session string
}

// Runner drives one rollout
type Runner struct {
	env    Environment
	policy Policy
	stop   *StopSignal
	log    *ActionLog
	opts   Options
	sleep  func(time.Duration)

	steps atomic.Int64
}

// NewRunner builds a runner. A nil log disables action logging; an empty
// session gets a random id.
func NewRunner(e Environment, p Policy, stop *StopSignal, log *ActionLog, opts Options) *Runner {
	if opts.Session == "" {
		opts.Session = uuid.NewString()
	}
	if stop == nil {
		stop = NewStopSignal()
	}
	return &Runner{env: e, policy: p, stop: stop, log: log, opts: opts, sleep: time.Sleep}
}

// Session returns the session id written to every log record
func (r *Runner) Session() string {
	return r.opts.Session
}

// Steps returns the number of completed prediction steps. Safe to call
// while Run is in progress.
func (r *Runner) Steps() int {
	return int(r.steps.Load())
}

// Run resets the policy and the environment, then loops until the stop
// signal trips, ctx ends or a step fails. The target is always left
// running on return.
func (r *Runner) Run(ctx context.Context) (err error) {
	if err := r.policy.Reset(ctx); err != nil {
		return fmt.Errorf("model reset: %w", err)
	}
	info, err := r.policy.Info(ctx)
	if err != nil {
		return fmt.Errorf("model info: %w", err)
	}
	repeat := info.ActionRepeat
	if r.opts.ActionRepeat > 0 {
		repeat = r.opts.ActionRepeat
	}
	repeat = max(repeat, 1)
	tokens := r.opts.Tokens
	if len(tokens) == 0 {
		tokens = info.Tokens
	}
	if len(tokens) == 0 {
		tokens = model.DefaultTokens
	}
	slog.Info("rollout: model ready", "checkpoint", info.Checkpoint, "repeat", repeat, "session", r.opts.Session)

	if r.opts.MenuInit && r.opts.Controller == action.KindGamepad {
		if err := r.menuInit(ctx); err != nil {
			return err
		}
	}

	if err := r.env.Reset(ctx); err != nil {
		return fmt.Errorf("env reset: %w", err)
	}
	if err := r.env.Pause(); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	defer func() {
		if uerr := r.env.Unpause(); uerr != nil {
			slog.Error("rollout: unpause failed", "error", uerr)
			err = errors.Join(err, uerr)
		}
	}()

	if _, err := r.env.Step(ctx, action.Zero(r.opts.Controller), 0); err != nil {
		return fmt.Errorf("initial step: %w", err)
	}

	for !r.stopped(ctx) {
		obs, err := r.env.Observe(ctx)
		if err != nil {
			return fmt.Errorf("step %d: observe: %w", r.Steps(), err)
		}
		pred, err := r.policy.Predict(ctx, obs.Image)
		if err != nil {
			return fmt.Errorf("step %d: predict: %w", r.Steps(), err)
		}
		plan, err := r.plan(pred, tokens)
		if err != nil {
			return fmt.Errorf("step %d: %w", r.Steps(), err)
		}
		slog.Debug("rollout: executing plan", "step", r.Steps(), "actions", len(plan), "repeat", repeat)

		done, err := r.execute(ctx, plan, repeat)
		if err != nil {
			return err
		}
		if done {
			r.steps.Add(1)
		}
	}
	slog.Info("rollout: stopped", "steps", r.Steps(), "reason", r.stopReason(ctx))
	return nil
}

// plan turns a prediction into controller actions for this session
func (r *Runner) plan(pred model.Prediction, tokens []string) ([]action.Action, error) {
	pads, err := model.BuildActions(pred, tokens, r.opts.ButtonThreshold)
	if err != nil {
		return nil, err
	}
	out := make([]action.Action, 0, len(pads))
	for _, g := range pads {
		if !r.opts.AllowMenu && model.SanitizeMenu(g) {
			slog.Info("rollout: model pressed a menu button, suppressed", "step", r.Steps())
		}
		if r.opts.Controller == action.KindKeyboardMouse {
			out = append(out, action.KeyboardMouse(adapter.Adapt(g, r.opts.Adapter)))
			continue
		}
		out = append(out, action.Gamepad(g))
	}
	return out, nil
}

// execute holds each action for repeat env steps, logging it once it has
// run in full. It reports whether the whole plan ran.
func (r *Runner) execute(ctx context.Context, plan []action.Action, repeat int) (bool, error) {
	for i, a := range plan {
		for n := 0; n < repeat; n++ {
			if r.stopped(ctx) {
				return false, nil
			}
			if _, err := r.env.Step(ctx, a, 0); err != nil {
				return false, fmt.Errorf("step %d.%d: %w", r.Steps(), i, err)
			}
		}
		if r.log != nil {
			if err := r.log.Write(r.Steps(), i, a); err != nil {
				slog.Warn("rollout: action log write failed", "error", err)
			}
		}
	}
	return true, nil
}

func (r *Runner) stopped(ctx context.Context) bool {
	return r.stop.Stopped() || ctx.Err() != nil
}

func (r *Runner) stopReason(ctx context.Context) string {
	if r.stop.Stopped() {
		return r.stop.Reason()
	}
	if err := ctx.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// menuInit taps SOUTH once and EAST several times
func (r *Runner) menuInit(ctx context.Context) error {
	slog.Info("rollout: running controller menu init")
	if err := r.tap(ctx, action.South); err != nil {
		return err
	}
	for i := 0; i < menuPresses; i++ {
		if err := r.tap(ctx, action.East); err != nil {
			return err
		}
		r.sleep(menuPressGap)
	}
	return nil
}

func (r *Runner) tap(ctx context.Context, b action.Button) error {
	press := action.Gamepad(action.GamepadAction{Buttons: map[action.Button]bool{b: true}})
	if _, err := r.env.Step(ctx, press, menuPressHold); err != nil {
		return fmt.Errorf("menu init %s: %w", b, err)
	}
	if _, err := r.env.Step(ctx, action.Zero(action.KindGamepad), menuPressHold); err != nil {
		return fmt.Errorf("menu init %s release: %w", b, err)
	}
	return nil
}

// Countdown logs a countdown of n seconds. It returns early when stop trips
// or ctx ends.
func Countdown(ctx context.Context, n int, stop *StopSignal) bool {
	for i := n; i > 0; i-- {
		slog.Info("rollout: starting", "in", i)
		select {
		case <-ctx.Done():
			return false
		case <-stop.Done():
			return false
		case <-time.After(time.Second):
		}
	}
	return true
}
