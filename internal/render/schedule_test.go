package render

import (
	"image"
	"testing"
)

func TestCellsScenario600(t *testing.T) {
	var perLevel [6]int
	sizes := map[int]int{}
	prevLevel := 0
	for c := range Cells(600, 600, 32) {
		if c.Level < prevLevel {
			t.Fatalf("level went backwards: %d after %d", c.Level, prevLevel)
		}
		prevLevel = c.Level
		perLevel[c.Level]++
		sizes[c.Level] = c.Size
	}

	// 600/32 rounds up to 19 cells per axis.
	if perLevel[0] != 19*19 {
		t.Errorf("coarse cells = %d, want %d", perLevel[0], 19*19)
	}
	wantSizes := map[int]int{0: 32, 1: 16, 2: 8, 3: 4, 4: 2, 5: 1}
	for level, size := range wantSizes {
		if sizes[level] != size {
			t.Errorf("level %d size = %d, want %d", level, sizes[level], size)
		}
	}
	// Each refinement level paints its grid minus the even/even cells.
	want := []int{361, 38*38 - 19*19, 75*75 - 38*38, 150*150 - 75*75, 300*300 - 150*150, 600*600 - 300*300}
	total := 0
	for level, n := range perLevel {
		if n != want[level] {
			t.Errorf("level %d cells = %d, want %d", level, n, want[level])
		}
		total += n
	}
	if total != 360000 {
		t.Errorf("total cells = %d, want 360000", total)
	}
	if got := CellCount(600, 600, 32); got != total {
		t.Errorf("CellCount = %d, want %d", got, total)
	}
}

func TestCellsTiling(t *testing.T) {
	sizes := []struct{ w, h, s0 int }{
		{600, 600, 32},
		{1, 1, 32},
		{33, 7, 8},
		{17, 64, 16},
		{5, 5, 1},
		{100, 3, 4},
		{31, 33, 2},
	}
	for _, sz := range sizes {
		// Every pixel must be the top-left of exactly one scheduled cell.
		seen := make([]int, sz.w*sz.h)
		// No cell of a level may overlap another cell of the same level.
		levelCover := map[int][]bool{}
		n := 0
		for c := range Cells(sz.w, sz.h, sz.s0) {
			n++
			x, y := c.X(), c.Y()
			if x >= sz.w || y >= sz.h {
				t.Fatalf("%v: cell %+v starts outside the surface", sz, c)
			}
			seen[y*sz.w+x]++

			cover := levelCover[c.Level]
			if cover == nil {
				cover = make([]bool, sz.w*sz.h)
				levelCover[c.Level] = cover
			}
			r := c.Rect().Intersect(image.Rect(0, 0, sz.w, sz.h))
			for py := r.Min.Y; py < r.Max.Y; py++ {
				for px := r.Min.X; px < r.Max.X; px++ {
					if cover[py*sz.w+px] {
						t.Fatalf("%v: level %d paints (%d,%d) twice", sz, c.Level, px, py)
					}
					cover[py*sz.w+px] = true
				}
			}
		}
		for i, k := range seen {
			if k != 1 {
				t.Errorf("%v: pixel (%d,%d) is the top-left of %d cells", sz, i%sz.w, i/sz.w, k)
			}
		}
		if n != sz.w*sz.h || CellCount(sz.w, sz.h, sz.s0) != n {
			t.Errorf("%v: %d cells, CellCount %d, want %d", sz, n, CellCount(sz.w, sz.h, sz.s0), sz.w*sz.h)
		}
	}
}

func TestCellsEmpty(t *testing.T) {
	for c := range Cells(0, 10, 32) {
		t.Errorf("unexpected cell %+v", c)
	}
	if n := CellCount(10, 0, 32); n != 0 {
		t.Errorf("CellCount(10, 0) = %d, want 0", n)
	}
}

func TestCellsStopEarly(t *testing.T) {
	n := 0
	for range Cells(600, 600, 32) {
		n++
		if n == 5 {
			break
		}
	}
	if n != 5 {
		t.Errorf("n = %d, want 5", n)
	}
}
