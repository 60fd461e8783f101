package viewport

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

var testViewports = []Viewport{
	Default(),
	{CenterX: -0.75, CenterY: 0.1, Scale: 3.5},
	{CenterX: 12, CenterY: -40, Scale: 0.01},
	{CenterX: 0.3, CenterY: 0.3, Scale: 1e6},
}

func TestConstants(t *testing.T) {
	c := Default().Constants(600, 300)
	want := Constants{MulX: 1.0 / 600, SumX: 0, MulY: 1.0 / 300, SumY: 0}
	if diff := cmp.Diff(want, c, cmp.Comparer(func(a, b float64) bool { return near(a, b, 1e-12) })); diff != "" {
		t.Errorf("Constants mismatch (-want +got):\n%s", diff)
	}

	x, y := c.PixelToValue(300, 150)
	if !near(x, 0.5, 1e-12) || !near(y, 0.5, 1e-12) {
		t.Errorf("center pixel maps to (%g, %g), want (0.5, 0.5)", x, y)
	}
}

func TestRoundTrip(t *testing.T) {
	sizes := [][2]int{{600, 600}, {1, 1}, {1920, 1080}, {33, 17}}
	for _, v := range testViewports {
		for _, sz := range sizes {
			c := v.Constants(sz[0], sz[1])
			for _, px := range []int{0, 1, sz[0] / 2, sz[0] - 1} {
				for _, py := range []int{0, 1, sz[1] / 2, sz[1] - 1} {
					vx, vy := c.PixelToValue(float64(px), float64(py))
					gx, gy := c.ValueToPixel(vx, vy)
					if math.Abs(gx-float64(px)) > 1e-6 || math.Abs(gy-float64(py)) > 1e-6 {
						t.Errorf("%+v %v: round trip of (%d, %d) = (%g, %g)", v, sz, px, py, gx, gy)
					}
				}
			}
		}
	}
}

func TestZoomFixedPoint(t *testing.T) {
	const w, h = 600, 400
	factors := []float64{ZoomStep, 1 / ZoomStep, 1, 2, 0.5, 10}
	focals := [][2]float64{{0, 0}, {300, 200}, {599, 1}, {123.5, 377}}
	for _, v0 := range testViewports {
		for _, f := range factors {
			for _, p := range focals {
				v := v0
				bx, by := v.Constants(w, h).PixelToValue(p[0], p[1])
				if err := v.Zoom(p[0], p[1], f, w, h); err != nil {
					t.Fatalf("Zoom(%v, %g) = %v", p, f, err)
				}
				ax, ay := v.Constants(w, h).PixelToValue(p[0], p[1])
				if !near(ax, bx, 1e-9) || !near(ay, by, 1e-9) {
					t.Errorf("%+v Zoom(%v, %g): plane point moved from (%g, %g) to (%g, %g)", v0, p, f, bx, by, ax, ay)
				}
				if !near(v.Scale, v0.Scale*f, 1e-12) {
					t.Errorf("scale = %g, want %g", v.Scale, v0.Scale*f)
				}
			}
		}
	}
}

func TestZoomErrors(t *testing.T) {
	tests := []struct {
		name   string
		v      Viewport
		factor float64
		w, h   int
		want   error
	}{
		{"zero factor", Default(), 0, 10, 10, ErrInvalidFactor},
		{"negative factor", Default(), -1.4, 10, 10, ErrInvalidFactor},
		{"nan factor", Default(), math.NaN(), 10, 10, ErrInvalidFactor},
		{"inf factor", Default(), math.Inf(1), 10, 10, ErrInvalidFactor},
		{"empty surface", Default(), 2, 0, 10, ErrEmptySurface},
		{"scale underflow", Viewport{Scale: 1e-300}, 1e-300, 10, 10, ErrInvalidScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.v
			err := v.Zoom(5, 5, tt.factor, tt.w, tt.h)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Zoom() = %v, want %v", err, tt.want)
			}
			if v != tt.v {
				t.Errorf("viewport changed on error: %+v -> %+v", tt.v, v)
			}
		})
	}
}

func TestWheelFactor(t *testing.T) {
	if got := WheelFactor(-100); got != ZoomStep {
		t.Errorf("WheelFactor(-100) = %g, want %g", got, ZoomStep)
	}
	if got := WheelFactor(3); got != 1/ZoomStep {
		t.Errorf("WheelFactor(3) = %g, want %g", got, 1/ZoomStep)
	}
	if got := WheelFactor(0); got != 1/ZoomStep {
		t.Errorf("WheelFactor(0) = %g, want %g", got, 1/ZoomStep)
	}
}

func TestQuery(t *testing.T) {
	v := Viewport{CenterX: -0.743643887037151, CenterY: 0.13182590420533, Scale: 2.5e5}
	got, err := FromQuery(v.Query())
	if err != nil {
		t.Fatal(err)
	}
	if got != v {
		t.Errorf("FromQuery(Query()) = %+v, want %+v", got, v)
	}

	q := v.Query()
	q.Set("scale", "-1")
	if _, err := FromQuery(q); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("negative scale: err = %v, want %v", err, ErrInvalidScale)
	}
	q.Set("scale", "abc")
	if _, err := FromQuery(q); err == nil {
		t.Error("non-numeric scale: expected error")
	}
}
