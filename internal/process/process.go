// Package process finds the target application: its pid, the window to
// drive and the desktop rectangle to capture.
package process

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"gamepilot/internal/capture"
)

var (
	// ErrNotFound is returned when no process matches a spec
	ErrNotFound = errors.New("process not found")
	// ErrNoWindow is returned when a matching process has no visible window
	ErrNoWindow = errors.New("process has no visible window")
	// ErrUnsupported is returned on platforms without a window lookup
	ErrUnsupported = errors.New("process lookup not supported on this platform")
)

// proxyKeywords mark helper windows that games spawn next to the real one
var proxyKeywords = []string{"d3dproxywindow", "proxy", "helper", "overlay"}

// Spec identifies a target by pid or by executable name
type Spec struct {
	PID  int
	Name string
}

// ParseSpec accepts "pid:123", a bare pid, an executable name or a path to
// one. Quotes around the value are ignored.
func ParseSpec(s string) (Spec, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Spec{}, errors.New("empty process spec")
	}
	if strings.HasPrefix(strings.ToLower(raw), "pid:") {
		pid, err := strconv.Atoi(strings.TrimSpace(raw[4:]))
		if err != nil || pid <= 0 {
			return Spec{}, fmt.Errorf("invalid pid in %q", raw)
		}
		return Spec{PID: pid}, nil
	}
	if isDigits(raw) {
		pid, err := strconv.Atoi(raw)
		if err != nil || pid <= 0 {
			return Spec{}, fmt.Errorf("invalid pid %q", raw)
		}
		return Spec{PID: pid}, nil
	}
	name := normalizeName(raw)
	if name == "" {
		return Spec{}, fmt.Errorf("invalid process spec %q", raw)
	}
	return Spec{Name: name}, nil
}

func (s Spec) String() string {
	if s.PID > 0 {
		return fmt.Sprintf("pid:%d", s.PID)
	}
	return s.Name
}

// Matches reports whether an executable name satisfies the spec. Names are
// compared case-insensitively with and without a ".exe" suffix.
func (s Spec) Matches(pid int, name string) bool {
	if s.PID > 0 {
		return pid == s.PID
	}
	return NameMatches(s.Name, name)
}

// NameMatches compares two executable names the way ParseSpec names are
// matched.
func NameMatches(query, candidate string) bool {
	a := nameVariants(query)
	for v := range nameVariants(candidate) {
		if a[v] {
			return true
		}
	}
	return false
}

func nameVariants(name string) map[string]bool {
	base := strings.ToLower(normalizeName(name))
	if base == "" {
		return nil
	}
	if strings.HasSuffix(base, ".exe") {
		return map[string]bool{base: true, strings.TrimSuffix(base, ".exe"): true}
	}
	return map[string]bool{base: true, base + ".exe": true}
}

func normalizeName(s string) string {
	name := strings.Trim(strings.TrimSpace(s), `"'`)
	if strings.ContainsAny(name, `/\`) {
		// both separators: Windows paths are accepted on every host
		name = name[strings.LastIndexAny(name, `/\`)+1:]
	}
	return name
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Window is one visible top-level window
type Window struct {
	Handle uintptr
	Title  string
	Rect   capture.Region
}

// Target is a resolved application
type Target struct {
	PID    int
	Name   string
	Window Window
}

// Process is one entry of a process listing
type Process struct {
	PID    int
	Name   string
	Titles []string
}

// Lookup resolves spec to a running process and its main window. When
// several processes match, the first one is used.
func Lookup(spec Spec) (Target, error) {
	procs, err := listProcesses(true)
	if err != nil {
		return Target{}, err
	}
	var matches []Process
	for _, p := range procs {
		if spec.Matches(p.PID, p.Name) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return Target{}, fmt.Errorf("%w: %s", ErrNotFound, spec)
	}
	if len(matches) > 1 {
		slog.Warn("process: multiple matches, using first", "spec", spec.String(), "count", len(matches))
	}
	p := matches[0]

	windows, err := windowsOf(p.PID)
	if err != nil {
		return Target{}, err
	}
	w, ok := pickWindow(windows)
	if !ok {
		return Target{}, fmt.Errorf("%w: %s (pid %d)", ErrNoWindow, p.Name, p.PID)
	}
	if len(windows) > 1 {
		slog.Info("process: picked window", "pid", p.PID, "title", w.Title, "candidates", len(windows))
	}
	return Target{PID: p.PID, Name: p.Name, Window: w}, nil
}

// List returns processes with their visible window titles. Unless all is
// set only processes owning a window are returned. Windowed processes sort
// first, then by name and pid.
func List(all bool) ([]Process, error) {
	procs, err := listProcesses(all)
	if err != nil {
		return nil, err
	}
	sortProcesses(procs)
	return procs, nil
}

// pickWindow prefers the first window whose title is not a known proxy or
// overlay window, falling back to the first window.
func pickWindow(windows []Window) (Window, bool) {
	if len(windows) == 0 {
		return Window{}, false
	}
	for _, w := range windows {
		if !isProxyTitle(w.Title) {
			return w, true
		}
	}
	return windows[0], true
}

func isProxyTitle(title string) bool {
	t := strings.ToLower(title)
	for _, k := range proxyKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

func sortProcesses(procs []Process) {
	sort.SliceStable(procs, func(i, j int) bool {
		wi, wj := len(procs[i].Titles) > 0, len(procs[j].Titles) > 0
		if wi != wj {
			return wi
		}
		ni, nj := strings.ToLower(procs[i].Name), strings.ToLower(procs[j].Name)
		if ni != nj {
			return ni < nj
		}
		return procs[i].PID < procs[j].PID
	})
}

// mergeWindows attaches window titles to processes. Windowed pids missing
// from procs get a placeholder name. Processes without windows are dropped
// unless all is set.
func mergeWindows(procs []Process, titles map[int][]string, all bool) []Process {
	seen := make(map[int]bool, len(procs))
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		seen[p.PID] = true
		p.Titles = titles[p.PID]
		if !all && len(p.Titles) == 0 {
			continue
		}
		out = append(out, p)
	}
	for pid, ts := range titles {
		if seen[pid] {
			continue
		}
		out = append(out, Process{PID: pid, Name: fmt.Sprintf("pid_%d", pid), Titles: ts})
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
