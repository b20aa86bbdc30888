package main

import (
	"os"
	"path/filepath"
	"testing"

	"gamepilot/internal/api"
	"gamepilot/internal/config"
	"gamepilot/internal/env"
)

func TestCheckpointName(t *testing.T) {
	tests := map[string]string{
		"/ckpts/run7/model_0042.pt":      "model_0042",
		`C:\ckpts\run7\model_0042.ckpt`: "model_0042",
		"plain":                          "plain",
		"":                               "unknown",
	}
	for in, want := range tests {
		if got := checkpointName(in); got != want {
			t.Errorf("checkpointName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNeedsMenuInit(t *testing.T) {
	names := config.DefaultConfig().MenuInit
	if !needsMenuInit(names, "Cuphead.exe") {
		t.Error("Expected cuphead to need menu init")
	}
	if !needsMenuInit(names, "isaac-ng") {
		t.Error("Expected a name without .exe to match")
	}
	if needsMenuInit(names, "celeste.exe") {
		t.Error("Celeste should not need menu init")
	}
}

func TestAdapterOptionsFromConfig(t *testing.T) {
	km := config.DefaultConfig().KM
	km.MouseSens = 30
	opts, err := adapterOptions(km)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Sensitivity != 30 || opts.MaxMouseDelta != km.MouseMax {
		t.Errorf("Expected KM settings applied, got %+v", opts)
	}

	path := filepath.Join(t.TempDir(), "map.yaml")
	if err := os.WriteFile(path, []byte("sensitivity: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}
	km.MapFile = path
	opts, err = adapterOptions(km)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Sensitivity != 20 {
		t.Errorf("Expected map file sensitivity 20, got %v", opts.Sensitivity)
	}
}

func TestTrayStatus(t *testing.T) {
	if got := trayStatus(api.Snapshot{}); got != "Starting" {
		t.Errorf("Expected Starting, got %q", got)
	}
	got := trayStatus(api.Snapshot{Env: &env.Status{State: "ready"}, Steps: 12})
	if got != "ready: 12 steps" {
		t.Errorf("Unexpected status %q", got)
	}
	if got := trayStatus(api.Snapshot{Stopped: true, StopReason: "hotkey"}); got != "Stopping (hotkey)" {
		t.Errorf("Unexpected status %q", got)
	}
}
