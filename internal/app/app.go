// Package app runs the viewer: it owns the render pipeline and turns input
// events into viewport changes and new render generations.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/shadeview/internal/input"
	"github.com/rook-computer/shadeview/internal/render"
	"github.com/rook-computer/shadeview/internal/state"
	"github.com/rook-computer/shadeview/internal/viewport"
	"github.com/rook-computer/shadeview/internal/web"
)

// Console takes over the local terminal while the display is active.
type Console interface {
	Enter() error
	Restore() error
}

type App struct {
	Store    *state.Store
	Renderer *render.Renderer
	Surface  render.Surface
	Display  render.Display
	Inputs   []input.Source
	Web      web.Server
	Console  Console
	Logger   Logger
	Now      func() time.Time

	// handles of renders whose outcome has not been recorded yet
	pending sync.WaitGroup

	exitOnce atomic.Bool
	exitCh   chan error
}

func New(store *state.Store, renderer *render.Renderer, surface render.Surface, display render.Display, webServer web.Server, inputs ...input.Source) *App {
	return &App{
		Store:    store,
		Renderer: renderer,
		Surface:  surface,
		Display:  display,
		Inputs:   inputs,
		Web:      webServer,
		Logger:   NoopLogger{},
		Now:      time.Now,
		exitCh:   make(chan error, 1),
	}
}

// Exit requests the app to stop running.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

// Start brings up the display, inputs and web server, renders the initial
// view and then serves events until ctx is done or Exit is called.
func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	app.exitOnce.Store(false)
	if app.Logger == nil {
		app.Logger = NoopLogger{}
	}
	if app.Now == nil {
		app.Now = time.Now
	}
	if app.Display == nil {
		app.Display = render.NoopDisplay{}
	}

	if err := app.Display.Start(ctx); err != nil {
		app.Logger.Errorf("app", "display start error: %v", err)
		return err
	}
	defer app.Display.Stop()

	if app.Console != nil {
		if err := app.Console.Enter(); err != nil {
			app.Logger.Errorf("tty", "console takeover failed: %v", err)
		}
		defer func() { _ = app.Console.Restore() }()
	}

	for _, src := range app.Inputs {
		if err := src.Start(ctx); err != nil {
			// Local input is optional; the web API still works.
			app.Logger.Errorf("app", "input start error: %v", err)
			continue
		}
		defer src.Stop()
	}

	if app.Web != nil {
		if err := app.Web.Start(ctx); err != nil {
			app.Logger.Errorf("app", "web start error: %v", err)
			return err
		}
		defer app.Web.Stop()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Display.RunLoop(loopCtx, app.Store)
	}()

	app.render(loopCtx)
	events := input.Merge(loopCtx, app.Inputs...)

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case err = <-app.exitCh:
			break loop
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			app.HandleEvent(loopCtx, ev)
		}
	}
	cancel()
	wg.Wait()
	app.pending.Wait()
	return err
}

// HandleEvent applies one input event. It must only be called from the
// event loop, so viewport changes and render starts are serialized.
func (app *App) HandleEvent(ctx context.Context, ev input.Event) {
	switch ev := ev.(type) {
	case input.WheelEvent:
		factor := viewport.WheelFactor(ev.DeltaY)
		if err := app.Renderer.Zoom(ev.X, ev.Y, factor); err != nil {
			app.Logger.Errorf("app", "zoom at (%g, %g) by %g: %v", ev.X, ev.Y, factor, err)
			return
		}
		app.render(ctx)
	case input.ViewportEvent:
		if err := app.Renderer.SetViewport(ev.Viewport); err != nil {
			app.Logger.Errorf("app", "set viewport %+v: %v", ev.Viewport, err)
			return
		}
		app.render(ctx)
	case input.RenderEvent:
		app.render(ctx)
	case input.PointerEvent:
		// Panning is not supported; pointer input is only observed.
		app.Logger.Infof("input", "pointer %s at (%.1f, %.1f) button %d", ev.Kind, ev.X, ev.Y, ev.Button)
	case input.ExitEvent:
		app.Logger.Infof("app", "exit requested")
		app.Exit(nil)
	default:
		app.Logger.Errorf("app", "unhandled event %T", ev)
	}
}

// render starts a new generation, superseding any render in flight, and
// records its outcome in the store once it finishes.
func (app *App) render(ctx context.Context) {
	v := app.Renderer.Viewport()
	w, h := app.Surface.Size()
	handle := app.Renderer.Trigger(ctx)
	app.Store.BeginRender(handle.Generation(), v, w, h, app.Now())

	app.pending.Add(1)
	go func() {
		defer app.pending.Done()
		<-handle.Done()
		res := handle.Result()
		app.Store.FinishRender(res.Generation, phaseOf(res), res.Cells, res.Elapsed, res.Err)
	}()
}

func phaseOf(res render.Result) state.Phase {
	switch {
	case res.Err != nil && (errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)):
		// Abandoned on shutdown, not broken.
		return state.SUPERSEDED
	case res.Err != nil:
		return state.FAILED
	case res.Status == render.StatusCompleted:
		return state.COMPLETED
	case res.Status == render.StatusSuperseded:
		return state.SUPERSEDED
	}
	return state.FAILED
}

func (app *App) Stop() error {
	app.Exit(nil)
	return nil
}
