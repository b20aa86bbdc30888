package action

import (
	"sort"
	"strings"
)

// KeyboardMouseAction is the desired keyboard/mouse state for one step plus
// the relative pointer motion to apply.
type KeyboardMouseAction struct {
	Keys         []string `json:"keys"`
	MouseButtons []string `json:"mouse_buttons"`
	MouseDX      int      `json:"mouse_dx"`
	MouseDY      int      `json:"mouse_dy"`
	MouseWheel   int      `json:"mouse_wheel"`
}

// DefaultKeys is the compact key vocabulary used by keyboard/mouse action spaces.
var DefaultKeys = []string{
	"w", "a", "s", "d", "space", "shift", "ctrl", "e", "q", "r",
	"tab", "esc", "up", "down", "left", "right", "c", "v",
}

// MouseButtonNames lists the supported mouse buttons.
var MouseButtonNames = []string{"left", "right", "middle"}

// KeyNames lists every key the controllers can synthesize.
var KeyNames = func() []string {
	names := []string{
		"backspace", "tab", "enter", "shift", "ctrl", "alt", "pause", "capslock",
		"esc", "space", "pageup", "pagedown", "end", "home",
		"left", "up", "right", "down", "insert", "delete",
	}
	for c := '0'; c <= '9'; c++ {
		names = append(names, string(c))
	}
	for c := 'a'; c <= 'z'; c++ {
		names = append(names, string(c))
	}
	return names
}()

var (
	knownKeys    = toSet(KeyNames)
	knownButtons = toSet(MouseButtonNames)
)

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// NormalizeKeys trims and lowercases key names, drops unknown ones and
// returns the distinct survivors sorted.
func NormalizeKeys(names []string) []string {
	return normalize(names, knownKeys)
}

// NormalizeMouseButtons is NormalizeKeys for mouse button names.
func NormalizeMouseButtons(names []string) []string {
	return normalize(names, knownButtons)
}

func normalize(names []string, known map[string]bool) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if !known[n] || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
