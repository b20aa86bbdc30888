package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"
)

func TestIconPNG(t *testing.T) {
	data, err := Icon("linux")
	if err != nil {
		t.Fatalf("Icon failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected PNG data: %v", err)
	}
	if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Errorf("Expected %dx%d icon, got %v", iconSize, iconSize, b)
	}
}

func TestIconICO(t *testing.T) {
	data, err := Icon("windows")
	if err != nil {
		t.Fatalf("Icon failed: %v", err)
	}
	if binary.LittleEndian.Uint16(data[2:]) != 1 || binary.LittleEndian.Uint16(data[4:]) != 1 {
		t.Fatalf("Bad ICO header % x", data[:6])
	}
	size := binary.LittleEndian.Uint32(data[14:])
	offset := binary.LittleEndian.Uint32(data[18:])
	if int(offset+size) != len(data) {
		t.Errorf("Entry does not cover the payload: offset %d size %d len %d", offset, size, len(data))
	}
	if _, err := png.Decode(bytes.NewReader(data[offset:])); err != nil {
		t.Errorf("ICO entry should hold PNG data: %v", err)
	}
}

func TestSetStatusBeforeRun(t *testing.T) {
	tr := New("test", nil, nil)
	tr.SetStatus("Running")
	if tr.status != "Running" {
		t.Errorf("Expected status kept until the menu exists, got %q", tr.status)
	}
}
