// Package capture provides screen-capture backends that always hand back a
// frame, falling back to the previous frame or a black one on a miss.
package capture

import (
	"fmt"
	"image"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

// Region is a screen rectangle in desktop coordinates
type Region struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the region as a desktop rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Size returns the frame size for the region
func (r Region) Size() image.Point {
	return image.Pt(r.Width, r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.Left, r.Top)
}

// Validate rejects empty regions
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("capture region %s is empty", r)
	}
	return nil
}

// Frame is one captured image, sized to the backend's region with its
// origin at (0, 0). Stale is set on anything not freshly captured: a
// re-served previous frame or the black placeholder.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Stale      bool
}

// Black returns an opaque black frame of the region's size
func Black(r Region) Frame {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return Frame{Image: img, CapturedAt: time.Now(), Stale: true}
}

// Backend produces frames for a fixed region. Capture never fails.
type Backend interface {
	Capture() Frame
	Close() error
}

// Grabber reads the current pixels of a desktop region
type Grabber interface {
	Grab(r Region) (*image.RGBA, error)
}

// Backend names
const (
	KindPolling    = "polling"
	KindContinuous = "continuous"
	KindGStreamer  = "gstreamer"
)

// New builds a backend by name for region at the given frame rate
func New(kind string, region Region, fps int) (Backend, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = 60
	}
	switch strings.ToLower(kind) {
	case "", KindPolling:
		return NewPolling(region, ScreenGrabber{}), nil
	case KindContinuous:
		return NewContinuous(region, NewTickerSource(ScreenGrabber{}, region, fps)), nil
	case KindGStreamer:
		src, err := NewGStreamerSource(region, fps)
		if err != nil {
			return nil, err
		}
		return NewContinuous(region, src), nil
	}
	return nil, fmt.Errorf("unknown capture backend %q", kind)
}

// fit returns img as a region-sized RGBA with a zero origin, scaling if the
// source size differs.
func fit(img *image.RGBA, r Region) *image.RGBA {
	b := img.Bounds()
	if b.Min == (image.Point{}) && b.Size() == r.Size() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	if b.Size() == r.Size() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// fallback tracks the last frame handed out and re-serves it on a miss
type fallback struct {
	region Region
	last   *Frame
}

func (f *fallback) fresh(img *image.RGBA, at time.Time) Frame {
	frame := Frame{Image: fit(img, f.region), CapturedAt: at}
	f.last = &frame
	return frame
}

func (f *fallback) miss() Frame {
	if f.last != nil {
		frame := *f.last
		frame.Stale = true
		return frame
	}
	return Black(f.region)
}
