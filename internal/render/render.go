// Package render paints a shader onto a raster surface progressively and
// presents the result.
package render

import (
	"context"

	"github.com/rook-computer/shadeview/internal/state"
)

// Display shows the contents of a surface to the user.
type Display interface {
	Start(ctx context.Context) error
	Stop() error
	// RunLoop presents frames until ctx is done.
	RunLoop(ctx context.Context, store *state.Store)
	Present(snap state.State)
}

// NoopDisplay is used when frames are only served over HTTP.
type NoopDisplay struct{}

func (NoopDisplay) Start(ctx context.Context) error                 { return nil }
func (NoopDisplay) Stop() error                                     { return nil }
func (NoopDisplay) RunLoop(ctx context.Context, store *state.Store) {}
func (NoopDisplay) Present(snap state.State)                        {}
