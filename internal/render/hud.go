package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/rook-computer/shadeview/internal/state"
)

const (
	hudMargin   = 8
	hudPadding  = 6
	hudFontSize = 14
)

// HUD draws a status overlay onto presented frames. It never touches the
// render surface itself.
type HUD struct {
	ttFont   *truetype.Font
	fallback font.Face
	size     float64
	Logger   Logger
}

// NewHUD parses the embedded Go font. If parsing fails the overlay falls
// back to the fixed 7x13 bitmap face.
func NewHUD(logger Logger) *HUD {
	h := &HUD{fallback: basicfont.Face7x13, size: hudFontSize, Logger: logger}
	tt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		if logger != nil {
			logger.Errorf("fb", "truetype parse failed, using basicfont: %v", err)
		}
		return h
	}
	h.ttFont = tt
	return h
}

// Lines formats the overlay text for a state snapshot.
func (h *HUD) Lines(snap state.State) []string {
	v := snap.Viewport
	lines := []string{
		fmt.Sprintf("center %.6g, %.6g  scale %.4g", v.CenterX, v.CenterY, v.Scale),
		fmt.Sprintf("gen %d %s  %d cells", snap.Render.Generation, snap.Render.Phase, snap.Render.Cells),
	}
	if snap.Shader != "" {
		lines[0] = snap.Shader + "  " + lines[0]
	}
	if snap.Timing.Samples > 0 {
		lines = append(lines, fmt.Sprintf("mean %s  max %s", snap.Timing.Mean.Round(1e6), snap.Timing.Max.Round(1e6)))
	}
	if snap.Render.Err != "" {
		lines = append(lines, "error: "+snap.Render.Err)
	}
	return lines
}

// Draw renders the overlay into the top-left corner of dst.
func (h *HUD) Draw(dst *image.RGBA, snap state.State) {
	lines := h.Lines(snap)
	if h.ttFont != nil {
		err := h.drawTrueType(dst, lines)
		if err == nil {
			return
		}
		if h.Logger != nil {
			h.Logger.Errorf("fb", "hud draw failed, using basicfont: %v", err)
		}
		h.ttFont = nil
	}
	h.drawFallback(dst, lines)
}

func (h *HUD) drawTrueType(dst *image.RGBA, lines []string) error {
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(h.ttFont)
	c.SetFontSize(h.size)
	c.SetClip(dst.Bounds())
	c.SetDst(dst)
	c.SetSrc(image.NewUniform(HUDForeground))
	c.SetHinting(font.HintingFull)

	lineHeight := c.PointToFixed(h.size * 1.4)
	width := 0
	face := truetype.NewFace(h.ttFont, &truetype.Options{Size: h.size, DPI: 72})
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > width {
			width = w
		}
	}
	height := (lineHeight * fixed.Int26_6(len(lines))).Ceil()
	drawBox(dst, width, height)

	pt := freetype.Pt(hudMargin+hudPadding, hudMargin+hudPadding)
	pt.Y += c.PointToFixed(h.size)
	for _, line := range lines {
		if _, err := c.DrawString(line, pt); err != nil {
			return err
		}
		pt.Y += lineHeight
	}
	return nil
}

func (h *HUD) drawFallback(dst *image.RGBA, lines []string) {
	metrics := h.fallback.Metrics()
	lineHeight := metrics.Height.Ceil()
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(HUDForeground), Face: h.fallback}
	width := 0
	for _, line := range lines {
		if w := drawer.MeasureString(line).Ceil(); w > width {
			width = w
		}
	}
	drawBox(dst, width, lineHeight*len(lines))

	baseline := hudMargin + hudPadding + metrics.Ascent.Ceil()
	for _, line := range lines {
		drawer.Dot = fixed.P(hudMargin+hudPadding, baseline)
		drawer.DrawString(line)
		baseline += lineHeight
	}
}

func drawBox(dst *image.RGBA, textWidth, textHeight int) {
	box := image.Rect(hudMargin, hudMargin, hudMargin+textWidth+2*hudPadding, hudMargin+textHeight+2*hudPadding)
	draw.Draw(dst, box.Intersect(dst.Bounds()), &image.Uniform{C: color.Color(HUDBackground)}, image.Point{}, draw.Over)
}
