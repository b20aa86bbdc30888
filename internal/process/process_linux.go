//go:build linux

package process

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"gamepilot/internal/capture"
)

// runXdotool is replaced in tests
var runXdotool = func(args ...string) ([]byte, error) {
	path, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("%w: xdotool not found", ErrUnsupported)
	}
	return exec.Command(path, args...).Output()
}

func listProcesses(all bool) ([]Process, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}
	var procs []Process
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		comm, err := os.ReadFile("/proc/" + e.Name() + "/comm")
		if err != nil {
			continue // exited or not ours to read
		}
		procs = append(procs, Process{PID: pid, Name: strings.TrimSpace(string(comm))})
	}

	titles := make(map[int][]string)
	if ids, err := searchWindows(); err == nil {
		for _, id := range ids {
			pid, err := windowPID(id)
			if err != nil {
				continue
			}
			t, _ := windowTitle(id)
			if t == "" {
				t = "<untitled>"
			}
			titles[pid] = appendUnique(titles[pid], t)
		}
	}
	return mergeWindows(procs, titles, all), nil
}

func windowsOf(pid int) ([]Window, error) {
	out, err := runXdotool("search", "--onlyvisible", "--pid", strconv.Itoa(pid), "--name", "")
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, nil // xdotool exits 1 when nothing matched
		}
		return nil, err
	}
	var windows []Window
	for _, id := range parseIDs(out) {
		title, err := windowTitle(id)
		if err != nil || title == "" {
			continue
		}
		r, err := windowGeometry(id)
		if err != nil {
			continue
		}
		windows = append(windows, Window{Handle: id, Title: title, Rect: r})
	}
	return windows, nil
}

// Activate raises and focuses the target window
func Activate(w Window) error {
	_, err := runXdotool("windowactivate", strconv.FormatUint(uint64(w.Handle), 10))
	return err
}

func searchWindows() ([]uintptr, error) {
	out, err := runXdotool("search", "--onlyvisible", "--name", "")
	if err != nil {
		return nil, err
	}
	return parseIDs(out), nil
}

func windowPID(id uintptr) (int, error) {
	out, err := runXdotool("getwindowpid", strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(out)))
}

func windowTitle(id uintptr) (string, error) {
	out, err := runXdotool("getwindowname", strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func windowGeometry(id uintptr) (capture.Region, error) {
	out, err := runXdotool("getwindowgeometry", "--shell", strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return capture.Region{}, err
	}
	return parseGeometry(out)
}

// parseGeometry reads the KEY=VALUE lines of `xdotool getwindowgeometry --shell`
func parseGeometry(out []byte) (capture.Region, error) {
	var r capture.Region
	fields := map[string]*int{"X": &r.Left, "Y": &r.Top, "WIDTH": &r.Width, "HEIGHT": &r.Height}
	found := 0
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		dst, ok := fields[k]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return capture.Region{}, fmt.Errorf("geometry %s=%q: %w", k, v, err)
		}
		*dst = n
		found++
	}
	if found < len(fields) {
		return capture.Region{}, fmt.Errorf("incomplete window geometry %q", out)
	}
	return r, nil
}

func parseIDs(out []byte) []uintptr {
	var ids []uintptr
	for _, f := range strings.Fields(string(out)) {
		id, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uintptr(id))
	}
	return ids
}
