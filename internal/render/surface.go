package render

import (
	"image"
	"image/color"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Surface is a raster target. Its size is re-read at the start of every
// render, so it may change between renders.
type Surface interface {
	Size() (width, height int)
	// FillRect paints a rectangle. Parts outside the surface are clipped.
	FillRect(x, y, width, height int, c color.Color)
}

// ImageSurface is an in-memory Surface safe for concurrent use.
type ImageSurface struct {
	mu  sync.RWMutex
	img *image.RGBA
}

func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *ImageSurface) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ImageSurface) FillRect(x, y, width, height int, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := image.Rect(x, y, x+width, y+height).Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	// Fast path for the common opaque case: write the first row, then copy it.
	if rgba.A == 0xFF {
		first := s.img.PixOffset(r.Min.X, r.Min.Y)
		row := s.img.Pix[first : first+4*r.Dx()]
		for i := 0; i < len(row); i += 4 {
			row[i+0] = rgba.R
			row[i+1] = rgba.G
			row[i+2] = rgba.B
			row[i+3] = rgba.A
		}
		for yy := r.Min.Y + 1; yy < r.Max.Y; yy++ {
			off := s.img.PixOffset(r.Min.X, yy)
			copy(s.img.Pix[off:off+len(row)], row)
		}
		return
	}
	xdraw.Draw(s.img, r, &image.Uniform{C: rgba}, image.Point{}, xdraw.Src)
}

// Snapshot returns a copy of the current pixels.
func (s *ImageSurface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := image.NewRGBA(s.img.Bounds())
	copy(cp.Pix, s.img.Pix)
	return cp
}

// At returns the color of one pixel.
func (s *ImageSurface) At(x, y int) color.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img.RGBAAt(x, y)
}

// Resize changes the surface size. The old content is rescaled into the new
// bounds so the next render starts from a stretched preview instead of black.
func (s *ImageSurface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.img
	if old.Bounds().Dx() == width && old.Bounds().Dy() == height {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	if !old.Bounds().Empty() && width > 0 && height > 0 {
		xdraw.NearestNeighbor.Scale(s.img, s.img.Bounds(), old, old.Bounds(), xdraw.Src, nil)
	}
}
