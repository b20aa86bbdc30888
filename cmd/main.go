// gamepilot - drives a running game with a remote model
// Binds a game process, streams its window to the model server and replays
// the predicted gamepad or keyboard/mouse actions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"gamepilot/internal/action"
	"gamepilot/internal/adapter"
	"gamepilot/internal/api"
	"gamepilot/internal/config"
	"gamepilot/internal/env"
	"gamepilot/internal/hotkey"
	"gamepilot/internal/model"
	"gamepilot/internal/osutils"
	"gamepilot/internal/process"
	"gamepilot/internal/rollout"
	"gamepilot/internal/tray"
)

const modelTimeout = 30 * time.Second

var (
	version    = "0.1.0"
	configPath = flag.String("config", "", "Config file (default: user config dir)")
	listProcs  = flag.Bool("list", false, "List processes with visible windows")
	listAll    = flag.Bool("all", false, "With -list, include processes without windows")
	schemaKind = flag.String("schema", "", "Print the action JSON schema for a controller kind (gamepad or km)")
	showVer    = flag.Bool("version", false, "Show version")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	writeCfg   = flag.Bool("write-config", false, "Save the effective configuration to the config file and exit")

	targetFlag   = flag.String("process", "", "Target process (name, pid or pid:N)")
	controller   = flag.String("controller", "", "Controller kind: gamepad or km")
	modelHost    = flag.String("host", "", "Model server host")
	modelPort    = flag.Int("port", 0, "Model server port")
	disableInput = flag.Bool("disable-input", false, "Track actions without sending input")
	speedhack    = flag.Bool("speedhack", false, "Pause the target between steps")
	envFPS       = flag.Int("fps", 0, "Environment steps per second")
	noTray       = flag.Bool("no-tray", false, "Do not show the tray icon")
)

func main() {
	flag.Parse()
	setupLogging(*debug)

	if *showVer {
		fmt.Printf("gamepilot version %s\n", version)
		return
	}
	if *schemaKind != "" {
		if err := printSchema(*schemaKind); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if *listProcs {
		if err := listProcesses(*listAll); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfgMgr, err := newConfigManager(*configPath)
	if err != nil {
		slog.Error("Failed to initialize config", "error", err)
		os.Exit(1)
	}
	if err := cfgMgr.Load(); err != nil {
		slog.Error("Failed to load config", "path", cfgMgr.Path(), "error", err)
		os.Exit(1)
	}
	cfg := cfgMgr.Get()
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(2)
	}
	if *writeCfg {
		if err := cfgMgr.Save(); err != nil {
			slog.Error("Failed to save config", "path", cfgMgr.Path(), "error", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration written to %s\n", cfgMgr.Path())
		return
	}

	if err := runService(cfg); err != nil {
		var te *env.TargetError
		if errors.As(err, &te) {
			slog.Error("Target is not running", "target", te.Spec, "error", te.Err)
			os.Exit(3)
		}
		slog.Error("Rollout failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newConfigManager(path string) (*config.Manager, error) {
	if path != "" {
		return config.NewManagerAt(path), nil
	}
	return config.NewManager()
}

// applyFlags overrides config values with flags set on the command line
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "process":
			cfg.Process = *targetFlag
		case "controller":
			cfg.Controller = *controller
		case "host":
			cfg.ModelHost = *modelHost
		case "port":
			cfg.Port = *modelPort
		case "disable-input":
			cfg.DisableInput = *disableInput
		case "speedhack":
			cfg.EnableSpeedhack = *speedhack
		case "fps":
			cfg.EnvFPS = *envFPS
		case "no-tray":
			cfg.Operator.Tray = !*noTray
		}
	})
}

func printSchema(kind string) error {
	k, err := action.ParseKind(kind)
	if err != nil {
		return err
	}
	s, err := action.Schema(k)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func listProcesses(all bool) error {
	procs, err := process.List(all)
	if err != nil {
		return err
	}
	fmt.Println("Processes:")
	fmt.Println("----------")
	for _, p := range procs {
		fmt.Printf("%-8d %s\n", p.PID, p.Name)
		for _, t := range p.Titles {
			fmt.Printf("         window: %s\n", t)
		}
	}
	return nil
}

// runService wires the stop sources, then runs the rollout. With the tray
// enabled the rollout runs on a goroutine so the tray owns the main thread.
func runService(cfg *config.Config) error {
	if !osutils.IsAdmin() && runtime.GOOS == "windows" && cfg.EnableSpeedhack {
		slog.Warn("Not running as Administrator; suspending the target may fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := rollout.NewStopSignal()
	var current atomic.Pointer[session]

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("Shutting down...", "signal", sig.String())
		stop.Stop("signal")
		// a second signal aborts blocking calls
		<-sigCh
		cancel()
	}()

	if cfg.StopFile != "" {
		closeWatch, err := stop.WatchFile(cfg.StopFile)
		if err != nil {
			slog.Warn("Stop file watch failed", "path", cfg.StopFile, "error", err)
		} else {
			defer closeWatch()
		}
	}

	if cfg.Operator.StopHotkey != "" {
		hk := hotkey.NewManager()
		if err := hk.Register(cfg.Operator.StopHotkey, func() { stop.Stop("hotkey") }); err != nil {
			slog.Warn("Invalid stop hotkey", "hotkey", cfg.Operator.StopHotkey, "error", err)
		} else if err := hk.Start(); err != nil {
			slog.Warn("Stop hotkey unavailable; use the stop file, the tray or Ctrl+C", "error", err)
		} else {
			slog.Info("Registered emergency stop hotkey", "hotkey", cfg.Operator.StopHotkey)
			defer hk.Stop()
		}
	}

	snapshot := func() api.Snapshot {
		snap := api.Snapshot{Stopped: stop.Stopped(), StopReason: stop.Reason()}
		if s := current.Load(); s != nil {
			st := s.env.Status()
			snap.Env = &st
			snap.Session = s.runner.Session()
			snap.Steps = s.runner.Steps()
		}
		return snap
	}

	if cfg.Operator.StatusPort > 0 {
		server := api.NewServer(cfg.Operator.StatusToken, snapshot, stop.Stop)
		go func() {
			if err := server.Start(ctx, cfg.Operator.StatusPort); err != nil {
				slog.Warn("Status API unavailable", "error", err)
			}
		}()
		go publishStatus(ctx, server, snapshot)
	}

	if !cfg.Operator.Tray {
		return runRollout(ctx, cfg, stop, &current)
	}

	t := tray.New("gamepilot - "+cfg.Process, stop.Stop, cancel)
	errCh := make(chan error, 1)
	go func() {
		err := runRollout(ctx, cfg, stop, &current)
		errCh <- err
		t.Stop()
	}()
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.SetStatus(trayStatus(snapshot()))
			}
		}
	}()
	t.Run()
	return <-errCh
}

func publishStatus(ctx context.Context, server *api.Server, snapshot func() api.Snapshot) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			server.Publish(snapshot())
		}
	}
}

func trayStatus(s api.Snapshot) string {
	switch {
	case s.Stopped:
		return "Stopping (" + s.StopReason + ")"
	case s.Env == nil:
		return "Starting"
	default:
		return fmt.Sprintf("%s: %d steps", s.Env.State, s.Steps)
	}
}

// session is the live rollout shown by the status surfaces
type session struct {
	env    *env.Env
	runner *rollout.Runner
}

func runRollout(ctx context.Context, cfg *config.Config, stop *rollout.StopSignal, current *atomic.Pointer[session]) error {
	kind, err := action.ParseKind(cfg.Controller)
	if err != nil {
		return err
	}

	if !rollout.Countdown(ctx, cfg.WarmupCountdown, stop) {
		slog.Info("Stopped before start", "reason", stop.Reason())
		return nil
	}

	client, err := model.Dial(ctx, cfg.ModelAddr(), modelTimeout)
	if err != nil {
		return fmt.Errorf("connect model: %w", err)
	}
	defer client.Close()

	info, err := client.Info(ctx)
	if err != nil {
		return fmt.Errorf("model info: %w", err)
	}

	envCfg := env.DefaultConfig()
	envCfg.Target = cfg.Process
	envCfg.Controller = kind
	envCfg.Input.DryRun = cfg.DisableInput
	envCfg.Input.Profile = cfg.GamepadType
	envCfg.Input.Backend = cfg.KMBackend
	envCfg.CaptureBackend = cfg.CaptureBackend
	envCfg.FPS = cfg.EnvFPS
	envCfg.Speed = cfg.GameSpeed
	envCfg.Dilation = cfg.EnableSpeedhack
	envCfg.AsyncMode = true
	envCfg.ObserveWidth = cfg.ObserveSize
	envCfg.ObserveHeight = cfg.ObserveSize

	e, err := env.New(ctx, envCfg, env.DefaultDeps())
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			slog.Error("Failed to close environment", "error", err)
		}
	}()

	opts := rollout.Options{
		Controller:      kind,
		ButtonThreshold: cfg.ButtonThreshold,
		AllowMenu:       cfg.AllowMenu,
		MenuInit:        !cfg.DisableInput && needsMenuInit(cfg.MenuInit, e.Target().Name),
		Session:         uuid.NewString(),
	}
	if kind == action.KindKeyboardMouse {
		if opts.Adapter, err = adapterOptions(cfg.KM); err != nil {
			return err
		}
	}

	actions, err := rollout.OpenActionLog(cfg.ActionsDir, checkpointName(info.Checkpoint), opts.Session)
	if err != nil {
		return fmt.Errorf("open action log: %w", err)
	}
	defer actions.Close()
	slog.Info("Logging actions", "path", actions.Path(), "session", opts.Session)

	runner := rollout.NewRunner(e, client, stop, actions, opts)

	current.Store(&session{env: e, runner: runner})
	defer current.Store(nil)

	return runner.Run(ctx)
}

func needsMenuInit(names []string, target string) bool {
	return slices.ContainsFunc(names, func(n string) bool {
		return process.NameMatches(n, target)
	})
}

// adapterOptions uses the map file when one is set, else the KM settings
func adapterOptions(km config.KMConfig) (adapter.Options, error) {
	if km.MapFile != "" {
		return adapter.LoadOptions(km.MapFile)
	}
	opts := adapter.DefaultOptions()
	opts.Sensitivity = km.MouseSens
	opts.Deadzone = km.Deadzone
	opts.MaxMouseDelta = km.MouseMax
	opts.TriggerThreshold = km.TriggerThreshold
	return opts, nil
}

// checkpointName is the checkpoint file name without directory or extension
func checkpointName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	path = strings.TrimSuffix(path, filepath.Ext(path))
	if path == "" {
		return "unknown"
	}
	return path
}
