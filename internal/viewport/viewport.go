// Package viewport maps surface pixels to plane coordinates and back.
package viewport

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
)

// ZoomStep is the scale factor applied by one wheel notch.
const ZoomStep = 1.4

var (
	ErrInvalidFactor = errors.New("viewport: zoom factor must be positive and finite")
	ErrInvalidScale  = errors.New("viewport: scale must be positive and finite")
	ErrEmptySurface  = errors.New("viewport: surface has no pixels")
)

// Viewport is the plane point shown at the surface center plus the zoom scale.
// At scale 1 the full surface spans one plane unit on each axis.
type Viewport struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Scale   float64 `json:"scale"`
}

// Default shows the unit square.
func Default() Viewport {
	return Viewport{CenterX: 0.5, CenterY: 0.5, Scale: 1}
}

func (v Viewport) Validate() error {
	if !finite(v.CenterX) || !finite(v.CenterY) {
		return fmt.Errorf("viewport: center (%g, %g) is not finite", v.CenterX, v.CenterY)
	}
	if !(v.Scale > 0) || !finite(v.Scale) {
		return ErrInvalidScale
	}
	return nil
}

// Constants derives the affine transform for a surface of the given size.
// The result is only valid until the viewport or the surface size changes.
func (v Viewport) Constants(width, height int) Constants {
	w := float64(width)
	h := float64(height)
	mulX := 1 / w / v.Scale
	mulY := 1 / h / v.Scale
	return Constants{
		MulX: mulX,
		SumX: v.CenterX - w/2*mulX,
		MulY: mulY,
		SumY: v.CenterY - h/2*mulY,
	}
}

// Zoom multiplies the scale by factor, keeping the plane point under the
// focal pixel (fx, fy) fixed. On error the viewport is left unchanged.
func (v *Viewport) Zoom(fx, fy, factor float64, width, height int) error {
	if !(factor > 0) || !finite(factor) {
		return ErrInvalidFactor
	}
	if width <= 0 || height <= 0 {
		return ErrEmptySurface
	}
	w := float64(width)
	h := float64(height)
	scale := v.Scale * factor
	if !(scale > 0) || !finite(scale) {
		return ErrInvalidScale
	}
	// The shift divides by the post-update scale.
	v.Scale = scale
	v.CenterX += (fx - w/2) * (factor - 1) / w / scale
	v.CenterY += (fy - h/2) * (factor - 1) / h / scale
	return nil
}

// WheelFactor converts a wheel delta into a zoom factor. Negative deltas
// (wheel away from the user) zoom in.
func WheelFactor(deltaY float64) float64 {
	if deltaY < 0 {
		return ZoomStep
	}
	return 1 / ZoomStep
}

// Query encodes the viewport for share links.
func (v Viewport) Query() url.Values {
	q := url.Values{}
	q.Set("cx", strconv.FormatFloat(v.CenterX, 'g', -1, 64))
	q.Set("cy", strconv.FormatFloat(v.CenterY, 'g', -1, 64))
	q.Set("scale", strconv.FormatFloat(v.Scale, 'g', -1, 64))
	return q
}

// FromQuery is the inverse of Query. Missing keys keep the default value.
func FromQuery(q url.Values) (Viewport, error) {
	v := Default()
	fields := []struct {
		key string
		dst *float64
	}{
		{"cx", &v.CenterX},
		{"cy", &v.CenterY},
		{"scale", &v.Scale},
	}
	for _, f := range fields {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Viewport{}, fmt.Errorf("viewport: %s must be a number (got %q): %w", f.key, raw, err)
		}
		*f.dst = parsed
	}
	if err := v.Validate(); err != nil {
		return Viewport{}, err
	}
	return v, nil
}

// Constants satisfy plane_x = pixel_x*MulX + SumX, and likewise for y.
type Constants struct {
	MulX, SumX float64
	MulY, SumY float64
}

func (c Constants) PixelToValue(x, y float64) (float64, float64) {
	return x*c.MulX + c.SumX, y*c.MulY + c.SumY
}

func (c Constants) ValueToPixel(px, py float64) (float64, float64) {
	return (px - c.SumX) / c.MulX, (py - c.SumY) / c.MulY
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
