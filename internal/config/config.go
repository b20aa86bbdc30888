// Package config provides configuration management for gamepilot.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

// Config represents the runner configuration. Values come from defaults,
// then the config file, then NG_* environment variables; command-line flags
// are applied on top by the caller.
type Config struct {
	// Process is the target spec (e.g. "celeste.exe" or "pid:1234")
	Process string `json:"process" env:"NG_PROCESS"`

	// Controller is "gamepad" or "km"
	Controller string `json:"controller" env:"NG_CONTROLLER"`

	// GamepadType is the virtual pad profile ("xbox" or "ps4")
	GamepadType string `json:"gamepad_type" env:"NG_GAMEPAD_TYPE"`

	// KMBackend selects keyboard/mouse synthesis ("auto", "native", "xdotool")
	KMBackend string `json:"km_backend" env:"NG_KM_BACKEND"`

	// ModelHost and Port locate the model server
	ModelHost string `json:"model_host" env:"NG_MODEL_HOST"`
	Port      int    `json:"port" env:"NG_PORT"`

	// DisableInput runs controllers dry: state is tracked, nothing is sent
	DisableInput bool `json:"disable_input" env:"NG_DISABLE_INPUT"`

	// EnableSpeedhack pauses the target between steps
	EnableSpeedhack bool `json:"enable_speedhack" env:"NG_ENABLE_SPEEDHACK"`

	// StopFile ends the rollout when it appears
	StopFile string `json:"stop_file" env:"NG_STOP_FILE"`

	// EnvFPS and GameSpeed set the step length to 1/(EnvFPS*GameSpeed)
	EnvFPS    int     `json:"env_fps" env:"NG_ENV_FPS"`
	GameSpeed float64 `json:"game_speed" env:"NG_GAME_SPEED"`

	// CaptureBackend is "polling", "continuous" or "gstreamer"
	CaptureBackend string `json:"capture_backend" env:"NG_CAPTURE_BACKEND"`

	// ObserveSize is the square observation edge sent to the model
	ObserveSize int `json:"observe_size" env:"NG_OBSERVE_SIZE"`

	// ButtonThreshold is the score above which a predicted button is pressed
	ButtonThreshold float64 `json:"button_threshold" env:"NG_BUTTON_THRES"`

	// AllowMenu keeps GUIDE/START/BACK in predicted actions
	AllowMenu bool `json:"allow_menu" env:"NG_ALLOW_MENU"`

	// WarmupCountdown is the number of seconds to wait before starting
	WarmupCountdown int `json:"warmup_countdown" env:"NG_WARMUP_COUNTDOWN"`

	// MenuInit lists executables that need a button sequence before the
	// virtual pad is recognized
	MenuInit []string `json:"menu_init" env:"NG_MENU_INIT" envSeparator:","`

	// ActionsDir receives the JSONL action logs
	ActionsDir string `json:"actions_dir" env:"NG_ACTIONS_DIR"`

	KM KMConfig `json:"km"`

	Operator OperatorConfig `json:"operator"`
}

// KMConfig tunes the gamepad to keyboard/mouse adapter
type KMConfig struct {
	MouseSens        float64 `json:"mouse_sens" env:"NG_KM_MOUSE_SENS"`
	Deadzone         float64 `json:"deadzone" env:"NG_KM_DEADZONE"`
	MouseMax         int     `json:"mouse_max" env:"NG_KM_MOUSE_MAX"`
	TriggerThreshold float64 `json:"trigger_threshold" env:"NG_KM_TRIGGER_THRES"`

	// MapFile is an optional YAML button/trigger map
	MapFile string `json:"map_file,omitempty" env:"NG_ADAPTER_MAP"`
}

// OperatorConfig controls the ways an operator can stop a rollout
type OperatorConfig struct {
	// StopHotkey is the emergency hotkey (e.g. "Ctrl+Alt+Shift+Esc")
	StopHotkey string `json:"stop_hotkey,omitempty" env:"NG_STOP_HOTKEY"`

	// StatusPort serves /health, /api/status and /api/stop; 0 disables it
	StatusPort int `json:"status_port" env:"NG_STATUS_PORT"`

	// StatusToken is an optional bearer token for the status API
	StatusToken string `json:"status_token,omitempty" env:"NG_STATUS_TOKEN"`

	// Tray shows a tray icon with a stop item
	Tray bool `json:"tray" env:"NG_TRAY"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Process:         "celeste.exe",
		Controller:      "gamepad",
		GamepadType:     "xbox",
		KMBackend:       "auto",
		ModelHost:       "127.0.0.1",
		Port:            5555,
		StopFile:        "STOP",
		EnvFPS:          60,
		GameSpeed:       1.0,
		CaptureBackend:  "continuous",
		ObserveSize:     256,
		ButtonThreshold: 0.5,
		WarmupCountdown: 3,
		MenuInit:        []string{"isaac-ng.exe", "cuphead.exe"},
		ActionsDir:      "out",
		KM: KMConfig{
			MouseSens:        15,
			Deadzone:         0.2,
			MouseMax:         50,
			TriggerThreshold: 0.1,
		},
		Operator: OperatorConfig{
			StopHotkey: "Ctrl+Alt+Shift+Esc",
			StatusPort: 18080,
			Tray:       true,
		},
	}
}

// Validate rejects values the runner cannot work with
func (c *Config) Validate() error {
	switch c.Controller {
	case "gamepad", "km", "keyboard_mouse":
	default:
		return fmt.Errorf("controller must be gamepad or km, got %q", c.Controller)
	}
	switch c.GamepadType {
	case "xbox", "ps4":
	default:
		return fmt.Errorf("gamepad type must be xbox or ps4, got %q", c.GamepadType)
	}
	if c.EnvFPS <= 0 {
		return fmt.Errorf("env fps must be positive, got %d", c.EnvFPS)
	}
	if c.GameSpeed <= 0 {
		return fmt.Errorf("game speed must be positive, got %v", c.GameSpeed)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid model port %d", c.Port)
	}
	if c.Operator.StatusPort < 0 || c.Operator.StatusPort > 65535 {
		return fmt.Errorf("invalid status port %d", c.Operator.StatusPort)
	}
	if c.KM.Deadzone < 0 || c.KM.Deadzone >= 1 {
		return fmt.Errorf("km deadzone must be in [0, 1), got %v", c.KM.Deadzone)
	}
	return nil
}

// ModelAddr is the model server's host:port
func (c *Config) ModelAddr() string {
	return fmt.Sprintf("%s:%d", c.ModelHost, c.Port)
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
}

// NewManager creates a manager for the per-user config file
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a manager for an explicit config file
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// getConfigPath returns the path to the configuration file under the
// user config dir (AppData, Library/Application Support or XDG).
func getConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(base, "gamepilot")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the config file location
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration file, if any, then applies NG_* environment
// overrides.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		slog.Debug("config: no config file, using defaults", "path", m.configPath)
	case err != nil:
		return err
	default:
		if err := json.Unmarshal(data, m.config); err != nil {
			return fmt.Errorf("parse %s: %w", m.configPath, err)
		}
	}

	if err := ParseEnv(m.config); err != nil {
		return err
	}
	return nil
}

// ParseEnv overlays NG_* environment variables on target. Unset variables
// leave fields untouched.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	slog.Info("config: saving configuration", "path", m.configPath, "bytes", len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set replaces the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}
