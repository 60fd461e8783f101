package render

import (
	"image"
	"iter"
)

// Cell is one square of the fill schedule. Level 0 is the coarse pass;
// each further level halves Size.
type Cell struct {
	Row, Col int
	Size     int
	Level    int
}

func (c Cell) X() int { return c.Col * c.Size }
func (c Cell) Y() int { return c.Row * c.Size }

// Rect is the painted area. It may extend past the surface edge.
func (c Cell) Rect() image.Rectangle {
	return image.Rect(c.X(), c.Y(), c.X()+c.Size, c.Y()+c.Size)
}

// Cells yields the coarse-to-fine schedule for a width x height surface.
//
// The coarse pass covers the surface with initial-sized cells in row-major
// order. Every following level halves the cell size and yields only cells
// with an odd row or column, which are exactly the cells whose top-left
// pixel no coarser level has sampled. initial must be a power of two.
func Cells(width, height, initial int) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		if width <= 0 || height <= 0 || initial <= 0 {
			return
		}
		for y := 0; y < height; y += initial {
			for x := 0; x < width; x += initial {
				if !yield(Cell{Row: y / initial, Col: x / initial, Size: initial}) {
					return
				}
			}
		}
		level := 0
		for size := initial >> 1; size >= 1; size >>= 1 {
			level++
			nrows := ceilDiv(height, size)
			ncols := ceilDiv(width, size)
			for i := 0; i < nrows; i++ {
				for j := 0; j < ncols; j++ {
					if i&1 == 0 && j&1 == 0 {
						continue
					}
					if !yield(Cell{Row: i, Col: j, Size: size, Level: level}) {
						return
					}
				}
			}
		}
	}
}

// CellCount is the number of cells Cells yields. Every pixel is the
// top-left of exactly one cell, so this is width*height for non-empty
// surfaces.
func CellCount(width, height, initial int) int {
	if width <= 0 || height <= 0 || initial <= 0 {
		return 0
	}
	n := ceilDiv(width, initial) * ceilDiv(height, initial)
	for size := initial >> 1; size >= 1; size >>= 1 {
		nrows := ceilDiv(height, size)
		ncols := ceilDiv(width, size)
		n += nrows*ncols - ceilDiv(nrows, 2)*ceilDiv(ncols, 2)
	}
	return n
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }
