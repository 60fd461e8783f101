package web

import (
	"context"
	"image"

	"github.com/rook-computer/shadeview/internal/input"
	"github.com/rook-computer/shadeview/internal/state"
	"github.com/rook-computer/shadeview/internal/viewport"
)

// Viewer is the read-only view of the renderer used by the API.
type Viewer interface {
	Viewport() viewport.Viewport
	PixelToValue(x, y float64) (float64, float64)
	ValueToPixel(px, py float64) (float64, float64)
}

// FrameSource provides the pixels served as PNG.
type FrameSource interface {
	Snapshot() *image.RGBA
}

// EventSink receives the commands the API turns requests into. The API
// never mutates the viewport itself; the viewer's event loop does.
type EventSink interface {
	Send(ctx context.Context, ev input.Event) error
}

type StatusSource interface {
	Snapshot() state.State
}

type APIV1Deps struct {
	Viewer Viewer
	Frames FrameSource
	Events EventSink
	Status StatusSource
	// ShareURL is the base URL for share links. When empty, it is derived
	// from the request host.
	ShareURL string
}
