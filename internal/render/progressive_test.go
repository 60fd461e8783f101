package render

import (
	"context"
	"errors"
	"image/color"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rook-computer/shadeview/internal/viewport"
)

type fill struct {
	x, y, size int
	c          color.RGBA
}

// recordingSurface remembers every FillRect call in order.
type recordingSurface struct {
	mu    sync.Mutex
	w, h  int
	fills []fill
}

func (s *recordingSurface) Size() (int, int) { return s.w, s.h }

func (s *recordingSurface) FillRect(x, y, w, h int, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills = append(s.fills, fill{x, y, w, color.RGBAModel.Convert(c).(color.RGBA)})
}

func (s *recordingSurface) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fills)
}

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func newClock() *stepClock {
	return &stepClock{t: time.Unix(0, 0), step: time.Millisecond}
}

// pixelShader encodes the plane coordinate so tests can check which sample
// ended up where.
func pixelShader(x, y float64) (color.Color, error) {
	return color.RGBA{R: uint8(int(x*1000) % 251), G: uint8(int(y*1000) % 241), B: 7, A: 0xFF}, nil
}

func TestNewErrors(t *testing.T) {
	surface := &recordingSurface{w: 10, h: 10}
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no surface", Options{}, ErrNoSurface},
		{"bad cell size", Options{Surface: surface, CellSize: 24}, ErrCellSize},
		{"negative interval", Options{Surface: surface, Interval: -time.Second}, ErrInterval},
		{"bad viewport", Options{Surface: surface, Viewport: viewport.Viewport{CenterX: 1, Scale: -2}}, viewport.ErrInvalidScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("New() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRenderScenario600(t *testing.T) {
	surface := &recordingSurface{w: 600, h: 600}
	r, err := New(Options{Surface: surface})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %v, want completed", res.Status)
	}
	if res.Generation != 1 {
		t.Errorf("generation = %d, want 1", res.Generation)
	}
	want := CellCount(600, 600, 32)
	if res.Cells != want || len(surface.fills) != want {
		t.Errorf("cells = %d, fills = %d, want %d", res.Cells, len(surface.fills), want)
	}
	// The coarse pass comes first and paints full 32px squares.
	for i, f := range surface.fills[:361] {
		if f.size != 32 || f.x != (i%19)*32 || f.y != (i/19)*32 {
			t.Fatalf("fill %d = %+v, want 32px cell at row %d col %d", i, f, i/19, i%19)
		}
	}
	// Refinement sizes never grow.
	for i := 1; i < len(surface.fills); i++ {
		if surface.fills[i].size > surface.fills[i-1].size {
			t.Fatalf("fill %d has size %d after %d", i, surface.fills[i].size, surface.fills[i-1].size)
		}
	}
	// Default shader: top-left is plane (0,0), so red and green are 0.
	if got := surface.fills[0].c; got != (color.RGBA{A: 0xFF}) {
		t.Errorf("first fill color = %v, want opaque black", got)
	}
}

func TestRenderFinalImage(t *testing.T) {
	const w, h = 45, 30
	surface := NewImageSurface(w, h)
	v := viewport.Viewport{CenterX: -0.5, CenterY: 0.25, Scale: 3}
	r, err := New(Options{Surface: surface, Shader: pixelShader, CellSize: 8, Viewport: v})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Every pixel ends up with the sample taken at its own position.
	consts := v.Constants(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px, py := consts.PixelToValue(float64(x), float64(y))
			c, _ := pixelShader(px, py)
			if got := surface.At(x, y); got != c {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, c)
			}
		}
	}
}

func TestRenderYieldsAtInterval(t *testing.T) {
	surface := &recordingSurface{w: 64, h: 64}
	clock := newClock()
	var yields []int
	r, err := New(Options{
		Surface:  surface,
		Interval: 10 * time.Millisecond,
		Now:      clock.Now,
		Yield:    func(context.Context) { yields = append(yields, surface.count()) },
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status = %v", res.Status)
	}
	if len(yields) == 0 {
		t.Fatal("render never yielded")
	}
	// One clock reading per cell plus one after each yield: with a 1ms step
	// and a 10ms interval every yield comes ten cells after the previous one.
	if yields[0] != 10 {
		t.Errorf("first yield after %d cells, want 10", yields[0])
	}
	for i := 1; i < len(yields); i++ {
		if d := yields[i] - yields[i-1]; d != 10 {
			t.Errorf("yield %d after %d cells, want 10", i, d)
		}
	}
}

func TestRenderSuperseded(t *testing.T) {
	surface := &recordingSurface{w: 200, h: 200}
	clock := newClock()
	var r *Renderer
	var second *Task
	paintedAtSwitch := -1
	r, err := New(Options{
		Surface:  surface,
		Interval: 5 * time.Millisecond,
		Now:      clock.Now,
		Yield: func(context.Context) {
			// A zoom arrives while the first render is suspended.
			if second == nil && surface.count() > 100 {
				if err := r.Zoom(50, 50, viewport.ZoomStep); err != nil {
					t.Errorf("Zoom: %v", err)
				}
				second = r.Begin()
				paintedAtSwitch = surface.count()
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSuperseded {
		t.Fatalf("status = %v, want superseded", res.Status)
	}
	if second == nil || second.Generation() != 2 {
		t.Fatalf("second render not started")
	}
	if got := surface.count(); got != paintedAtSwitch {
		t.Errorf("generation 1 painted %d cells after generation 2 started", got-paintedAtSwitch)
	}
	if res.Cells != paintedAtSwitch {
		t.Errorf("Cells = %d, want %d", res.Cells, paintedAtSwitch)
	}

	res2, err := second.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res2.Status != StatusCompleted || res2.Generation != 2 {
		t.Errorf("second result = %+v, want completed generation 2", res2)
	}
	if res2.Cells != CellCount(200, 200, DefaultCellSize) {
		t.Errorf("second render painted %d cells", res2.Cells)
	}
}

func TestTriggerSupersedes(t *testing.T) {
	surface := NewImageSurface(300, 300)
	gate := make(chan struct{})
	var once sync.Once
	var r *Renderer
	r, err := New(Options{
		Surface:  surface,
		Interval: time.Nanosecond,
		Yield: func(context.Context) {
			// Hold the first render at its first suspend point.
			if r.Generation() == 1 {
				once.Do(func() { <-gate })
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	h1 := r.Trigger(ctx)
	h2 := r.Trigger(ctx)
	close(gate)

	res1, err := h1.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res1.Status != StatusSuperseded {
		t.Errorf("first render status = %v, want superseded", res1.Status)
	}
	res2, err := h2.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res2.Status != StatusCompleted || res2.Generation != 2 {
		t.Errorf("second render = %+v", res2)
	}
}

func TestRenderShaderError(t *testing.T) {
	surface := &recordingSurface{w: 64, h: 64}
	errBoom := errors.New("boom")
	failAt := 0.75
	calls := 0
	s := func(x, y float64) (color.Color, error) {
		calls++
		if x == failAt && y == 0 {
			return nil, errBoom
		}
		return color.RGBA{R: 1, A: 0xFF}, nil
	}
	r, err := New(Options{Surface: surface, Shader: s})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Render(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("Render() error = %v, want %v", err, errBoom)
	}
	if res.Status != StatusFailed {
		t.Errorf("status = %v, want failed", res.Status)
	}
	// Plane x=0.75 is pixel 48: the second 16px cell of the first
	// refinement level, after four coarse cells and one refinement cell.
	if calls != 6 {
		t.Errorf("shader calls = %d, want 6", calls)
	}
	if len(surface.fills) != calls-1 || res.Cells != calls-1 {
		t.Errorf("fills = %d, cells = %d, want %d", len(surface.fills), res.Cells, calls-1)
	}
	for _, f := range surface.fills {
		if f.c != (color.RGBA{R: 1, A: 0xFF}) {
			t.Fatalf("unexpected fill %+v", f)
		}
	}
}

func TestRenderContextCancelled(t *testing.T) {
	surface := &recordingSurface{w: 64, h: 64}
	ctx, cancel := context.WithCancel(context.Background())
	clock := newClock()
	r, err := New(Options{
		Surface:  surface,
		Interval: 3 * time.Millisecond,
		Now:      clock.Now,
		Yield:    func(context.Context) { cancel() },
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Render(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Render() = %v, want context.Canceled", err)
	}
	if res.Cells == 0 || res.Cells >= CellCount(64, 64, DefaultCellSize) {
		t.Errorf("cells = %d, want a partial render", res.Cells)
	}
	if res.Status != StatusFailed {
		t.Errorf("status = %v, want failed", res.Status)
	}
}

func TestTriggerRecoversPanic(t *testing.T) {
	surface := &recordingSurface{w: 64, h: 64}
	calls := 0
	r, err := New(Options{Surface: surface, Shader: func(x, y float64) (color.Color, error) {
		calls++
		if calls == 5 {
			panic("shader exploded")
		}
		return color.RGBA{A: 0xFF}, nil
	}})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Trigger(context.Background()).Wait(context.Background())
	if err == nil {
		t.Fatal("expected an error from a panicking shader")
	}
	if res.Status != StatusFailed {
		t.Errorf("status = %v, want failed", res.Status)
	}
	if res.Cells != 4 || surface.count() != 4 {
		t.Errorf("cells = %d, fills = %d, want 4", res.Cells, surface.count())
	}
	// The run lock is released, so the next render can start and finish.
	res, err = r.Render(context.Background())
	if err != nil || res.Status != StatusCompleted {
		t.Errorf("render after panic = %+v, %v", res, err)
	}
}

// TestTriggerNoPaintAfterNewGeneration runs two real goroutine renders with
// a slow shader and checks that the first one stops sampling as soon as the
// second generation begins.
func TestTriggerNoPaintAfterNewGeneration(t *testing.T) {
	surface := NewImageSurface(600, 600)
	var r *Renderer
	var samples, firstGenSamples atomic.Int64
	slow := func(x, y float64) (color.Color, error) {
		if r.Generation() == 1 {
			firstGenSamples.Add(1)
		}
		samples.Add(1)
		time.Sleep(20 * time.Microsecond)
		return color.RGBA{R: 0x80, A: 0xFF}, nil
	}
	r, err := New(Options{Surface: surface, Shader: slow})
	if err != nil {
		t.Fatal(err)
	}

	h1 := r.Trigger(context.Background())
	deadline := time.Now().Add(5 * time.Second)
	for samples.Load() < 200 {
		if time.Now().After(deadline) {
			t.Fatal("first render did not start sampling")
		}
		time.Sleep(time.Millisecond)
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	h2 := r.Trigger(ctx2)
	if h2.Generation() != 2 {
		t.Fatalf("second generation = %d", h2.Generation())
	}

	res1 := h1.Result()
	if res1.Status != StatusSuperseded {
		t.Fatalf("first render status = %v, want superseded", res1.Status)
	}
	if got, want := int64(res1.Cells), firstGenSamples.Load(); got != want {
		t.Errorf("generation 1 painted %d cells after generation 2 began", got-want)
	}

	cancel2()
	res2 := h2.Result()
	if res2.Status == StatusCompleted && res2.Cells != CellCount(600, 600, DefaultCellSize) {
		t.Errorf("second render = %+v", res2)
	}
}

func TestTransformUsesCurrentState(t *testing.T) {
	surface := NewImageSurface(100, 50)
	r, err := New(Options{Surface: surface})
	if err != nil {
		t.Fatal(err)
	}
	x, y := r.PixelToValue(50, 25)
	if math.Abs(x-0.5) > 1e-12 || math.Abs(y-0.5) > 1e-12 {
		t.Errorf("PixelToValue(center) = (%g, %g), want (0.5, 0.5)", x, y)
	}
	if err := r.Zoom(0, 0, 2); err != nil {
		t.Fatal(err)
	}
	if x, y := r.PixelToValue(0, 0); math.Abs(x) > 1e-12 || math.Abs(y) > 1e-12 {
		t.Errorf("focal pixel moved to (%g, %g)", x, y)
	}
	surface.Resize(200, 100)
	px, py := r.ValueToPixel(r.PixelToValue(10, 20))
	if px < 9.999 || px > 10.001 || py < 19.999 || py > 20.001 {
		t.Errorf("round trip after resize = (%g, %g)", px, py)
	}
	if err := r.Zoom(0, 0, -1); !errors.Is(err, viewport.ErrInvalidFactor) {
		t.Errorf("Zoom(-1) = %v, want %v", err, viewport.ErrInvalidFactor)
	}
}
