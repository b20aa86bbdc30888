//go:build linux

package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// GStreamerSource captures an X11 region with ximagesrc and pulls RGBA
// frames from an appsink that keeps only the latest buffer.
type GStreamerSource struct {
	region Region
	fps    int
}

// NewGStreamerSource checks that the needed elements exist
func NewGStreamerSource(region Region, fps int) (*GStreamerSource, error) {
	gst.Init(nil)
	for _, name := range []string{"ximagesrc", "videoconvert", "videorate", "capsfilter"} {
		if gst.Find(name) == nil {
			return nil, fmt.Errorf("gstreamer element %s not installed", name)
		}
	}
	return &GStreamerSource{region: region, fps: fps}, nil
}

// Run implements Source
func (s *GStreamerSource) Run(ctx context.Context, publish func(*image.RGBA)) error {
	pipeline, sink, err := s.build()
	if err != nil {
		return err
	}
	defer pipeline.SetState(gst.StateNull)

	w, h := s.region.Width, s.region.Height
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			sample := sink.PullSample()
			if sample == nil {
				slog.Warn("capture: gstreamer sample missing, skipping frame")
				return gst.FlowOK
			}
			buffer := sample.GetBuffer()
			if buffer == nil {
				return gst.FlowOK
			}
			mapInfo := buffer.Map(gst.MapRead)
			data := mapInfo.Bytes()
			if len(data) < w*h*4 {
				buffer.Unmap()
				slog.Warn("capture: short gstreamer buffer", "bytes", len(data), "want", w*h*4)
				return gst.FlowOK
			}
			img := image.NewRGBA(image.Rect(0, 0, w, h))
			copy(img.Pix, data[:w*h*4])
			buffer.Unmap()
			publish(img)
			return gst.FlowOK
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("start capture pipeline: %w", err)
	}
	slog.Info("capture: gstreamer pipeline playing", "region", s.region.String(), "fps", s.fps)

	bus := pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			return fmt.Errorf("capture pipeline reached end of stream")
		case gst.MessageError:
			gerr := msg.ParseError()
			return fmt.Errorf("capture pipeline: %s (%s)", gerr.Error(), gerr.DebugString())
		}
	}
}

func (s *GStreamerSource) build() (*gst.Pipeline, *app.Sink, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, nil, fmt.Errorf("create pipeline: %w", err)
	}

	src, err := gst.NewElement("ximagesrc")
	if err != nil {
		return nil, nil, fmt.Errorf("create ximagesrc: %w", err)
	}
	r := s.region
	src.SetProperty("startx", uint(r.Left))
	src.SetProperty("starty", uint(r.Top))
	src.SetProperty("endx", uint(r.Left+r.Width-1))
	src.SetProperty("endy", uint(r.Top+r.Height-1))
	src.SetProperty("use-damage", false)
	src.SetProperty("show-pointer", false)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, nil, fmt.Errorf("create videoconvert: %w", err)
	}
	rate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, nil, fmt.Errorf("create videorate: %w", err)
	}
	rate.SetProperty("drop-only", true)

	caps, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, nil, fmt.Errorf("create capsfilter: %w", err)
	}
	caps.SetProperty("caps", gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/1", r.Width, r.Height, s.fps)))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, nil, fmt.Errorf("create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)

	pipeline.AddMany(src, convert, rate, caps, sink.Element)
	if err := gst.ElementLinkMany(src, convert, rate, caps, sink.Element); err != nil {
		return nil, nil, fmt.Errorf("link capture pipeline: %w", err)
	}
	return pipeline, sink, nil
}
