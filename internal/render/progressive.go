package render

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/shadeview/internal/shader"
	"github.com/rook-computer/shadeview/internal/viewport"
)

var (
	ErrNoSurface = errors.New("render: surface is required")
	ErrCellSize  = errors.New("render: cell size must be a positive power of two")
	ErrInterval  = errors.New("render: interval must not be negative")
)

// Status is the outcome state of one render generation.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusSuperseded
	// StatusFailed covers shader errors, shader panics and context
	// cancellation; Result.Err says which.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusSuperseded:
		return "superseded"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result describes a finished render. Err is set exactly when Status is
// StatusFailed; supersession is not an error.
type Result struct {
	Generation uint64
	Status     Status
	Cells      int
	Elapsed    time.Duration
	Err        error
}

type Logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Options configures a Renderer. Only Surface is required.
type Options struct {
	Surface  Surface
	Interval time.Duration
	Shader   shader.Shader
	CellSize int
	Viewport viewport.Viewport
	Logger   Logger

	// Now and Yield stand in for the host scheduler. Yield is the suspend
	// point: it should let pending work run and return. It is the only place
	// a new generation can begin while a render is in progress. Defaults
	// are time.Now and runtime.Gosched.
	Now   func() time.Time
	Yield func(ctx context.Context)
}

// Renderer paints a shader onto a surface coarse-to-fine. Starting a render
// supersedes any render still in flight; the older one notices at its next
// yield point and stops.
type Renderer struct {
	surface  Surface
	shader   shader.Shader
	interval time.Duration
	cellSize int
	logger   Logger
	now      func() time.Time
	yield    func(ctx context.Context)

	mu   sync.Mutex
	view viewport.Viewport

	// run is held by a painting task except while it is suspended in
	// yield. Begin takes it too, so generations never paint concurrently.
	run sync.Mutex

	generation atomic.Uint64
}

func New(opts Options) (*Renderer, error) {
	if opts.Surface == nil {
		return nil, ErrNoSurface
	}
	if opts.Interval < 0 {
		return nil, ErrInterval
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	if opts.CellSize == 0 {
		opts.CellSize = DefaultCellSize
	}
	if !isPowerOfTwo(opts.CellSize) {
		return nil, fmt.Errorf("%w (got %d)", ErrCellSize, opts.CellSize)
	}
	if opts.Shader == nil {
		opts.Shader = shader.Default
	}
	if opts.Viewport == (viewport.Viewport{}) {
		opts.Viewport = viewport.Default()
	}
	if err := opts.Viewport.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Yield == nil {
		opts.Yield = func(context.Context) { runtime.Gosched() }
	}
	return &Renderer{
		surface:  opts.Surface,
		shader:   opts.Shader,
		interval: opts.Interval,
		cellSize: opts.CellSize,
		logger:   opts.Logger,
		now:      opts.Now,
		yield:    opts.Yield,
		view:     opts.Viewport,
	}, nil
}

// Generation is the id of the most recently started render.
func (r *Renderer) Generation() uint64 { return r.generation.Load() }

func (r *Renderer) Viewport() viewport.Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// SetViewport replaces the pan and zoom state. It does not start a render.
func (r *Renderer) SetViewport(v viewport.Viewport) error {
	if err := v.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.view = v
	r.mu.Unlock()
	return nil
}

// Zoom scales the view around the focal surface pixel. It does not start
// a render.
func (r *Renderer) Zoom(fx, fy, factor float64) error {
	w, h := r.surface.Size()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view.Zoom(fx, fy, factor, w, h)
}

// PixelToValue converts a surface pixel to plane coordinates using the
// current viewport and surface size.
func (r *Renderer) PixelToValue(x, y float64) (float64, float64) {
	return r.constants().PixelToValue(x, y)
}

func (r *Renderer) ValueToPixel(px, py float64) (float64, float64) {
	return r.constants().ValueToPixel(px, py)
}

func (r *Renderer) constants() viewport.Constants {
	w, h := r.surface.Size()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view.Constants(w, h)
}

// Task is one render generation with its transform frozen at start.
type Task struct {
	r          *Renderer
	generation uint64
	width      int
	height     int
	consts     viewport.Constants

	// progress of the current Run, kept so a recovered panic can report it
	started time.Time
	cells   int
}

// Begin starts a new generation, superseding every earlier one, and
// captures the surface size and transform it will paint with.
func (r *Renderer) Begin() *Task {
	r.run.Lock()
	defer r.run.Unlock()
	w, h := r.surface.Size()
	r.mu.Lock()
	consts := r.view.Constants(w, h)
	gen := r.generation.Add(1)
	r.mu.Unlock()
	return &Task{r: r, generation: gen, width: w, height: h, consts: consts}
}

func (t *Task) Generation() uint64 { return t.generation }

// Stale reports whether a newer render has started.
func (t *Task) Stale() bool { return t.r.generation.Load() != t.generation }

// Run paints the schedule. Only one task paints at a time; a newer
// generation can begin only while this one is suspended at a yield point,
// and the staleness check right after the yield stops it before it paints
// another cell.
func (t *Task) Run(ctx context.Context) (Result, error) {
	r := t.r
	r.run.Lock()
	defer r.run.Unlock()

	start := r.now()
	t.started, t.cells = start, 0
	res := Result{Generation: t.generation, Status: StatusRunning}
	if t.Stale() {
		res.Status = StatusSuperseded
		return res, nil
	}
	last := start
	for cell := range Cells(t.width, t.height, r.cellSize) {
		x, y := cell.X(), cell.Y()
		px, py := t.consts.PixelToValue(float64(x), float64(y))
		c, err := r.shader(px, py)
		if err != nil {
			res.Status = StatusFailed
			res.Elapsed = r.now().Sub(start)
			res.Err = fmt.Errorf("render: shader at (%g, %g): %w", px, py, err)
			if r.logger != nil {
				r.logger.Errorf("render", "generation %d failed after %d cells: %v", t.generation, res.Cells, err)
			}
			return res, res.Err
		}
		r.surface.FillRect(x, y, cell.Size, cell.Size, c)
		res.Cells++
		t.cells = res.Cells

		if r.now().Sub(last) < r.interval {
			continue
		}
		r.run.Unlock()
		r.yield(ctx)
		r.run.Lock()
		if t.Stale() {
			res.Status = StatusSuperseded
			res.Elapsed = r.now().Sub(start)
			if r.logger != nil {
				r.logger.Infof("render", "generation %d superseded after %d cells", t.generation, res.Cells)
			}
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			res.Status = StatusFailed
			res.Elapsed = r.now().Sub(start)
			res.Err = err
			return res, err
		}
		last = r.now()
	}
	res.Status = StatusCompleted
	res.Elapsed = r.now().Sub(start)
	if r.logger != nil {
		r.logger.Infof("render", "generation %d completed: %d cells in %s", t.generation, res.Cells, res.Elapsed)
	}
	return res, nil
}

// Render starts a new generation and runs it on the calling goroutine.
func (r *Renderer) Render(ctx context.Context) (Result, error) {
	return r.Begin().Run(ctx)
}

// Trigger starts a new generation on its own goroutine and returns a handle
// that resolves once it completes, is superseded or fails.
func (r *Renderer) Trigger(ctx context.Context) *Handle {
	t := r.Begin()
	h := &Handle{generation: t.generation, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer func() {
			if p := recover(); p != nil {
				h.result = Result{
					Generation: t.generation,
					Status:     StatusFailed,
					Cells:      t.cells,
					Elapsed:    r.now().Sub(t.started),
					Err:        fmt.Errorf("render: shader panic: %v", p),
				}
				if r.logger != nil {
					r.logger.Errorf("render", "generation %d: %v", t.generation, h.result.Err)
				}
			}
		}()
		h.result, _ = t.Run(ctx)
	}()
	return h
}

// Handle tracks a render started with Trigger.
type Handle struct {
	generation uint64
	done       chan struct{}
	result     Result
}

func (h *Handle) Generation() uint64 { return h.generation }

// Done is closed when the render has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result is valid once Done is closed.
func (h *Handle) Result() Result {
	<-h.done
	return h.result
}

// Wait blocks until the render finishes or ctx is done. A superseded render
// is not an error.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{Generation: h.generation, Status: StatusRunning}, ctx.Err()
	case <-h.done:
		return h.result, h.result.Err
	}
}
