package rollout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gamepilot/internal/action"
)

const actionLogSuffix = "_ACTIONS.jsonl"

// ActionLog writes one JSON object per executed action
type ActionLog struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	session string
	path    string
}

// NewActionLog writes records tagged with session to w
func NewActionLog(w io.Writer, session string) *ActionLog {
	return &ActionLog{w: w, session: session}
}

// OpenActionLog creates the next numbered log file (0001_ACTIONS.jsonl,
// 0002_ACTIONS.jsonl, ...) under dir/run.
func OpenActionLog(dir, run, session string) (*ActionLog, error) {
	out := filepath.Join(dir, run)
	if err := os.MkdirAll(out, 0755); err != nil {
		return nil, err
	}
	n, err := nextRunNumber(out)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(out, fmt.Sprintf("%04d%s", n, actionLogSuffix))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l := NewActionLog(f, session)
	l.closer = f
	l.path = path
	return l, nil
}

// nextRunNumber returns one past the highest numbered log in dir
func nextRunNumber(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+actionLogSuffix))
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, m := range matches {
		prefix, _, _ := strings.Cut(filepath.Base(m), "_")
		if n, err := strconv.Atoi(prefix); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// Path is the log file location, empty for writer-backed logs
func (l *ActionLog) Path() string {
	return l.path
}

// Write appends a record for a executed at step/substep
func (l *ActionLog) Write(step, substep int, a action.Action) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	record := make(map[string]any)
	if err := json.Unmarshal(raw, &record); err != nil {
		return err
	}
	record["step"] = step
	record["substep"] = substep
	record["session"] = l.session

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(line)
	return err
}

// Close closes the underlying file, if any
func (l *ActionLog) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
