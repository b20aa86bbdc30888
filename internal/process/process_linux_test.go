//go:build linux

package process

import (
	"testing"
)

func TestParseGeometry(t *testing.T) {
	out := []byte("WINDOW=62914567\nX=100\nY=40\nWIDTH=1280\nHEIGHT=720\nSCREEN=0\n")
	r, err := parseGeometry(out)
	if err != nil {
		t.Fatalf("parseGeometry error: %v", err)
	}
	if r.Left != 100 || r.Top != 40 || r.Width != 1280 || r.Height != 720 {
		t.Errorf("Unexpected region %v", r)
	}
	if _, err := parseGeometry([]byte("X=1\nY=2\n")); err == nil {
		t.Error("Expected error for partial geometry")
	}
}

func TestWindowsOfUsesXdotool(t *testing.T) {
	orig := runXdotool
	defer func() { runXdotool = orig }()

	runXdotool = func(args ...string) ([]byte, error) {
		switch args[0] {
		case "search":
			return []byte("11\n12\n"), nil
		case "getwindowname":
			if args[1] == "11" {
				return []byte("Overlay\n"), nil
			}
			return []byte("Celeste\n"), nil
		case "getwindowgeometry":
			return []byte("X=0\nY=0\nWIDTH=640\nHEIGHT=360\n"), nil
		}
		t.Fatalf("unexpected xdotool call %v", args)
		return nil, nil
	}

	ws, err := windowsOf(5)
	if err != nil {
		t.Fatalf("windowsOf error: %v", err)
	}
	w, ok := pickWindow(ws)
	if !ok || w.Title != "Celeste" || w.Handle != 12 || w.Rect.Width != 640 {
		t.Errorf("Unexpected pick %+v from %+v", w, ws)
	}
}
