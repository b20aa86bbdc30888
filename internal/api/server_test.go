package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gamepilot/internal/env"
)

type stopRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *stopRecorder) stop(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *stopRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

func (r *stopRecorder) first() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reasons) == 0 {
		return ""
	}
	return r.reasons[0]
}

func newTestServer(t *testing.T, token string) (*Server, *stopRecorder, *httptest.Server) {
	t.Helper()
	rec := &stopRecorder{}
	s := NewServer(token, func() Snapshot {
		return Snapshot{
			Env:     &env.Status{State: "ready", Target: "celeste.exe", PID: 42},
			Session: "s1",
			Steps:   7,
		}
	}, rec.stop)
	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.run(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return s, rec, ts
}

func TestHealthSkipsAuth(t *testing.T) {
	_, _, ts := newTestServer(t, "secret")
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusRequiresToken(t *testing.T) {
	_, _, ts := newTestServer(t, "secret")

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if snap.Env == nil || snap.Env.PID != 42 || snap.Steps != 7 || snap.Session != "s1" {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

func TestStopEndpoint(t *testing.T) {
	_, rec, ts := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/api/stop")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/stop", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if rec.count() != 1 || rec.first() != "api" {
		t.Errorf("Expected one api stop, got %d (%q)", rec.count(), rec.first())
	}
}

func TestWebSocketStreamsAndStops(t *testing.T) {
	s, rec, ts := newTestServer(t, "")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("Expected an initial snapshot: %v", err)
	}
	if first.Steps != 7 {
		t.Errorf("Expected steps 7, got %d", first.Steps)
	}

	s.Publish(Snapshot{Session: "s1", Stopped: true, StopReason: "hotkey"})
	var pushed Snapshot
	if err := conn.ReadJSON(&pushed); err != nil {
		t.Fatalf("Expected a published snapshot: %v", err)
	}
	if !pushed.Stopped || pushed.StopReason != "hotkey" {
		t.Errorf("Unexpected pushed snapshot %+v", pushed)
	}

	if err := conn.WriteJSON(message{Type: "stop"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rec.count() != 1 {
		t.Errorf("Expected a stop over websocket, got %d", rec.count())
	}
}
