package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Get().EnvFPS != 60 || m.Get().KM.MouseSens != 15 {
		t.Errorf("Expected defaults, got %+v", m.Get())
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m := NewManagerAt(path)
	cfg := DefaultConfig()
	cfg.Process = "hollow_knight.exe"
	cfg.KM.Deadzone = 0.3
	m.Set(cfg)
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other := NewManagerAt(path)
	if err := other.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if other.Get().Process != "hollow_knight.exe" || other.Get().KM.Deadzone != 0.3 {
		t.Errorf("Saved values not loaded back, got %+v", other.Get())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"process":"file.exe","env_fps":30}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NG_PROCESS", "env.exe")
	t.Setenv("NG_KM_DEADZONE", "0.35")
	t.Setenv("NG_DISABLE_INPUT", "true")
	t.Setenv("NG_MENU_INIT", "a.exe,b.exe")

	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()
	if cfg.Process != "env.exe" {
		t.Errorf("Expected env to win, got %q", cfg.Process)
	}
	if cfg.EnvFPS != 30 {
		t.Errorf("File value should survive when env is unset, got %d", cfg.EnvFPS)
	}
	if cfg.KM.Deadzone != 0.35 || !cfg.DisableInput {
		t.Errorf("Nested and bool env values not applied: %+v", cfg)
	}
	if len(cfg.MenuInit) != 2 || cfg.MenuInit[1] != "b.exe" {
		t.Errorf("Expected list from env, got %v", cfg.MenuInit)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("NG_ENV_FPS", "fast")
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))
	if err := m.Load(); err == nil {
		t.Error("Expected parse error for non-numeric NG_ENV_FPS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"controller", func(c *Config) { c.Controller = "joystick" }},
		{"gamepad type", func(c *Config) { c.GamepadType = "switch" }},
		{"fps", func(c *Config) { c.EnvFPS = 0 }},
		{"speed", func(c *Config) { c.GameSpeed = -1 }},
		{"port", func(c *Config) { c.Port = 70000 }},
		{"deadzone", func(c *Config) { c.KM.Deadzone = 1 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestModelAddr(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ModelAddr(); got != "127.0.0.1:5555" {
		t.Errorf("Expected 127.0.0.1:5555, got %q", got)
	}
}
