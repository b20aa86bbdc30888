// Package hotkey watches global keyboard state and fires callbacks for key
// combinations, used for the emergency stop.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrUnsupported is returned by Start where no global hook exists
var ErrUnsupported = errors.New("global hotkeys not supported on this platform")

// aliases maps accepted spellings to the names the platform hooks report
var aliases = map[string]string{
	"CONTROL": "CTRL",
	"OPTION":  "ALT",
	"ESCAPE":  "ESC",
	"RETURN":  "ENTER",
	"WIN":     "CMD",
	"SUPER":   "CMD",
	"COMMAND": "CMD",
	"DEL":     "DELETE",
}

// Manager matches held keys against registered combinations
type Manager struct {
	mu      sync.Mutex
	hotkeys []*registeredHotkey
	held    map[string]bool
	stopped bool
}

type registeredHotkey struct {
	parts    []string // e.g. ["CTRL", "ALT", "SHIFT", "ESC"]
	original string
	callback func()
	// fired is set while the combination stays held, so key repeat does
	// not trigger it again
	fired bool
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{held: make(map[string]bool)}
}

// ParseCombo splits "Ctrl+Alt+Shift+Esc" into normalized key names
func ParseCombo(combo string) ([]string, error) {
	if strings.TrimSpace(combo) == "" {
		return nil, errors.New("empty hotkey")
	}
	var parts []string
	for _, p := range strings.Split(strings.ToUpper(combo), "+") {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("invalid hotkey %q", combo)
		}
		if a, ok := aliases[p]; ok {
			p = a
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// Register adds a combination such as "Ctrl+Alt+Shift+Esc"
func (m *Manager) Register(combo string, callback func()) error {
	parts, err := ParseCombo(combo)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: combo,
		callback: callback,
	})
	return nil
}

// UpdateState records a key transition reported by the platform hook and
// fires any combination that just became fully held.
func (m *Manager) UpdateState(key string, isDown bool) {
	key = strings.ToUpper(key)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if isDown {
		m.held[key] = true
	} else {
		delete(m.held, key)
	}
	var fire []*registeredHotkey
	for _, hk := range m.hotkeys {
		all := true
		for _, p := range hk.parts {
			if !m.held[p] {
				all = false
				break
			}
		}
		if !all {
			hk.fired = false
			continue
		}
		if !hk.fired {
			hk.fired = true
			fire = append(fire, hk)
		}
	}
	m.mu.Unlock()

	for _, hk := range fire {
		slog.Info("hotkey: triggered", "combo", hk.original)
		go hk.callback()
	}
}

// Start installs the platform hook
func (m *Manager) Start() error {
	return m.startPlatform()
}

// Stop removes the hook; later key events are ignored
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.stopPlatform()
}
