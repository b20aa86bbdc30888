package rollout

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// StopSignal is a one-way latch polled by the rollout loop between steps.
// Any goroutine may trip it.
type StopSignal struct {
	stopped atomic.Bool
	once    sync.Once
	done    chan struct{}

	mu     sync.Mutex
	reason string
	file   string
}

// NewStopSignal returns an untripped signal
func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Stop trips the signal. Only the first reason is kept.
func (s *StopSignal) Stop(reason string) {
	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		s.stopped.Store(true)
		close(s.done)
		slog.Info("rollout: stop requested", "reason", reason)
	})
}

// Stopped reports whether the signal was tripped. With a stop file set it
// also checks the file, so a missed watch event still stops the loop.
func (s *StopSignal) Stopped() bool {
	if s.stopped.Load() {
		return true
	}
	s.mu.Lock()
	file := s.file
	s.mu.Unlock()
	if file != "" && fileExists(file) {
		s.Stop("stop file " + file)
		return true
	}
	return false
}

// Done is closed when the signal trips
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

// Reason returns why the signal tripped
func (s *StopSignal) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// WatchFile trips the signal when path is created. The returned function
// stops watching. A pre-existing file trips the signal immediately.
func (s *StopSignal) WatchFile(path string) (func() error, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.file = abs
	s.mu.Unlock()

	if fileExists(abs) {
		s.Stop("stop file " + abs)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		slog.Warn("rollout: cannot watch stop file directory, polling only", "dir", dir, "error", err)
		return func() error { return nil }, nil
	}

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Clean(event.Name) == abs && fileExists(abs) {
					s.Stop("stop file " + abs)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("rollout: stop file watch error", "error", err)
			}
		}
	}()
	return w.Close, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
