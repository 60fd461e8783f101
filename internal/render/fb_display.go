package render

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	fb "github.com/gonutz/framebuffer"
	xdraw "golang.org/x/image/draw"

	"github.com/rook-computer/shadeview/internal/state"
)

// DefaultFBDevice is the Linux framebuffer presented to.
const DefaultFBDevice = "/dev/fb0"

// FBDisplay presents an ImageSurface on the Linux framebuffer. The surface
// is a logical canvas; frames are scaled to the framebuffer size.
type FBDisplay struct {
	Device string
	Source *ImageSurface
	// HUD, when set, is drawn over each presented frame.
	HUD    *HUD
	Logger Logger

	fbDev   *fb.Device
	running atomic.Bool
}

func NewFBDisplay(source *ImageSurface) *FBDisplay {
	return &FBDisplay{Device: DefaultFBDevice, Source: source}
}

func (d *FBDisplay) Start(ctx context.Context) error {
	path := d.Device
	if path == "" {
		path = DefaultFBDevice
	}
	dev, err := fb.Open(path)
	if err != nil {
		return err
	}
	d.fbDev = dev
	if d.Logger != nil {
		bounds := dev.Bounds()
		d.Logger.Infof("fb", "framebuffer open, bounds=%dx%d", bounds.Dx(), bounds.Dy())
	}
	d.running.Store(true)
	return nil
}

func (d *FBDisplay) Stop() error {
	d.running.Store(false)
	if d.fbDev != nil {
		d.fbDev.Close()
	}
	return nil
}

// Present copies the current surface, with the HUD on top, to the screen.
func (d *FBDisplay) Present(snap state.State) {
	if !d.running.Load() || d.fbDev == nil || d.Source == nil {
		return
	}
	frame := d.Frame(snap)
	blitToFB(d.fbDev, frame)
}

// Frame composes the image Present would show.
func (d *FBDisplay) Frame(snap state.State) *image.RGBA {
	frame := d.Source.Snapshot()
	if d.HUD != nil {
		d.HUD.Draw(frame, snap)
	}
	return frame
}

// RunLoop presents at ~30 FPS until the context is done. Renders paint the
// surface on their own goroutines; this loop only samples it.
func (d *FBDisplay) RunLoop(ctx context.Context, store *state.Store) {
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()
	lastLog := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := store.Snapshot()
			d.Present(snap)
			if d.Logger != nil && time.Since(lastLog) > 10*time.Second {
				d.Logger.Infof("fb", "heartbeat frame, generation=%d phase=%s", snap.Render.Generation, snap.Render.Phase)
				lastLog = time.Now()
			}
		}
	}
}

func blitToFB(dev *fb.Device, frame *image.RGBA) {
	xdraw.NearestNeighbor.Scale(dev, dev.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
}
