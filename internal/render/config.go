package render

import (
	"image/color"
	"time"
)

// Render defaults.
const (
	// DefaultCellSize is the edge of a coarse pass cell in pixels.
	DefaultCellSize = 32
	// DefaultInterval bounds how long a render runs between yields.
	DefaultInterval = 100 * time.Millisecond

	DefaultWidth  = 600
	DefaultHeight = 600
)

// HUD colors.
var (
	HUDForeground = color.RGBA{R: 0xFF, G: 0xDC, B: 0x00, A: 0xFF} // #ffdc00
	HUDBackground = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xA0}
)
