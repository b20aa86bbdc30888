package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenGrabber reads pixels from the desktop
type ScreenGrabber struct{}

// Grab captures r from the screen
func (ScreenGrabber) Grab(r Region) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(r.Rect())
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", r, err)
	}
	return img, nil
}

// DisplayRegion returns the bounds of display i, 0 being the primary
func DisplayRegion(i int) (Region, error) {
	n := screenshot.NumActiveDisplays()
	if i < 0 || i >= n {
		return Region{}, fmt.Errorf("display %d not found (%d active)", i, n)
	}
	b := screenshot.GetDisplayBounds(i)
	return Region{Left: b.Min.X, Top: b.Min.Y, Width: b.Dx(), Height: b.Dy()}, nil
}
