package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"
)

// Source produces frames on its own schedule until ctx is cancelled.
// publish must not block.
type Source interface {
	Run(ctx context.Context, publish func(img *image.RGBA)) error
}

// Continuous runs a Source in the background and keeps only the newest
// frame. Capture never blocks on the producer.
type Continuous struct {
	fb fallback

	mu      sync.Mutex
	pending *image.RGBA
	at      time.Time
	drops   uint64

	cancel context.CancelFunc
	done   chan struct{}
	runErr error
	once   sync.Once
}

// NewContinuous starts src and returns the backend reading from it
func NewContinuous(region Region, src Source) *Continuous {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Continuous{
		fb:     fallback{region: region},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		err := src.Run(ctx, c.publish)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("capture: frame source stopped", "error", err)
			c.runErr = err
		}
	}()
	return c
}

func (c *Continuous) publish(img *image.RGBA) {
	c.mu.Lock()
	if c.pending != nil {
		c.drops++
	}
	c.pending = img
	c.at = time.Now()
	c.mu.Unlock()
}

// Capture returns the newest unread frame, else the last frame returned
// (marked stale), else a black frame.
func (c *Continuous) Capture() Frame {
	c.mu.Lock()
	img, at := c.pending, c.at
	c.pending = nil
	c.mu.Unlock()

	if img == nil {
		return c.fb.miss()
	}
	return c.fb.fresh(img, at)
}

// Drops returns how many frames were overwritten before being read
func (c *Continuous) Drops() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drops
}

// Close stops the source and waits for it to exit
func (c *Continuous) Close() error {
	c.once.Do(func() {
		c.cancel()
		<-c.done
	})
	return c.runErr
}

// TickerSource grabs at a fixed rate
type TickerSource struct {
	grabber  Grabber
	region   Region
	interval time.Duration
}

// NewTickerSource grabs region fps times per second
func NewTickerSource(g Grabber, region Region, fps int) *TickerSource {
	if fps <= 0 {
		fps = 60
	}
	return &TickerSource{grabber: g, region: region, interval: time.Second / time.Duration(fps)}
}

// Run implements Source
func (s *TickerSource) Run(ctx context.Context, publish func(*image.RGBA)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			img, err := s.grabber.Grab(s.region)
			if err != nil {
				slog.Debug("capture: grab missed", "error", err)
				continue
			}
			publish(img)
		}
	}
}
