package capture

import (
	"log/slog"
	"time"
)

// Polling grabs the region synchronously on every Capture
type Polling struct {
	grabber Grabber
	fb      fallback
	misses  uint64
}

// NewPolling returns a polling backend for region
func NewPolling(region Region, g Grabber) *Polling {
	return &Polling{grabber: g, fb: fallback{region: region}}
}

// Capture grabs the region now; a failed grab re-serves the previous frame.
func (p *Polling) Capture() Frame {
	img, err := p.grabber.Grab(p.fb.region)
	if err != nil || img == nil {
		p.misses++
		slog.Debug("capture: polling grab missed", "error", err, "misses", p.misses)
		return p.fb.miss()
	}
	return p.fb.fresh(img, time.Now())
}

// Misses returns how many grabs have failed
func (p *Polling) Misses() uint64 { return p.misses }

// Close implements Backend
func (p *Polling) Close() error { return nil }
