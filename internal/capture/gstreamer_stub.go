//go:build !linux

package capture

import (
	"context"
	"fmt"
	"image"
	"runtime"
)

// GStreamerSource is only available on Linux
type GStreamerSource struct{}

// NewGStreamerSource reports that ximagesrc capture is unavailable here
func NewGStreamerSource(region Region, fps int) (*GStreamerSource, error) {
	return nil, fmt.Errorf("gstreamer capture is not supported on %s", runtime.GOOS)
}

// Run implements Source
func (s *GStreamerSource) Run(ctx context.Context, publish func(*image.RGBA)) error {
	return fmt.Errorf("gstreamer capture is not supported on %s", runtime.GOOS)
}
