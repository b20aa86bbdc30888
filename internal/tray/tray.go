// Package tray shows the rollout state in the system tray and offers a stop
// item, using getlantern/systray.
package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

const iconSize = 16

// Tray owns the tray icon. Run blocks on the calling goroutine, which must
// be the main one on macOS.
type Tray struct {
	tooltip string
	onStop  func(reason string)
	onQuit  func()

	mu     sync.Mutex
	status string
	item   *systray.MenuItem
	quitCh chan struct{}
}

// New creates a tray. onStop runs when the operator picks "Stop rollout";
// onQuit runs once the tray loop exits.
func New(tooltip string, onStop func(reason string), onQuit func()) *Tray {
	return &Tray{
		tooltip: tooltip,
		onStop:  onStop,
		onQuit:  onQuit,
		status:  "Starting",
		quitCh:  make(chan struct{}),
	}
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() {
		close(t.quitCh)
		if t.onQuit != nil {
			t.onQuit()
		}
	})
}

// Stop removes the icon and makes Run return
func (t *Tray) Stop() {
	systray.Quit()
}

// SetStatus updates the disabled status line at the top of the menu
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	if t.item != nil {
		t.item.SetTitle(status)
	}
}

func (t *Tray) setupMenu() {
	systray.SetTitle("gamepilot")
	systray.SetTooltip(t.tooltip)
	if icon, err := Icon(runtime.GOOS); err == nil {
		systray.SetIcon(icon)
	} else {
		slog.Warn("tray: icon encode failed", "error", err)
	}

	t.mu.Lock()
	t.item = systray.AddMenuItem(t.status, "")
	t.item.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	stop := systray.AddMenuItem("Stop rollout", "Stop sending inputs and release the target")
	quit := systray.AddMenuItem("Quit", "")

	go func() {
		for {
			select {
			case <-stop.ClickedCh:
				slog.Info("tray: stop requested")
				stop.Disable()
				if t.onStop != nil {
					t.onStop("tray")
				}
			case <-quit.ClickedCh:
				if t.onStop != nil {
					t.onStop("tray quit")
				}
				systray.Quit()
				return
			case <-t.quitCh:
				return
			}
		}
	}()
}

// Icon renders the tray icon: PNG data, wrapped in an ICO container on
// Windows.
func Icon(goos string) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	fill := color.NRGBA{R: 0x2e, G: 0xa0, B: 0x43, A: 0xff}
	for y := 2; y < iconSize-2; y++ {
		for x := 2; x < iconSize-2; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	if goos != "windows" {
		return buf.Bytes(), nil
	}
	return wrapICO(buf.Bytes(), iconSize), nil
}

// wrapICO builds a single-entry ICO holding PNG data
func wrapICO(pngData []byte, size int) []byte {
	const headerLen = 6 + 16
	out := make([]byte, headerLen, headerLen+len(pngData))
	binary.LittleEndian.PutUint16(out[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(out[4:], 1) // count
	out[6] = byte(size)
	out[7] = byte(size)
	binary.LittleEndian.PutUint16(out[10:], 1)  // planes
	binary.LittleEndian.PutUint16(out[12:], 32) // bpp
	binary.LittleEndian.PutUint32(out[14:], uint32(len(pngData)))
	binary.LittleEndian.PutUint32(out[18:], headerLen)
	return append(out, pngData...)
}
