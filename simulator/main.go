package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rook-computer/shadeview/internal/app"
	"github.com/rook-computer/shadeview/internal/config"
	"github.com/rook-computer/shadeview/internal/input"
	"github.com/rook-computer/shadeview/internal/render"
	"github.com/rook-computer/shadeview/internal/state"
	"github.com/rook-computer/shadeview/internal/viewport"
	"github.com/rook-computer/shadeview/internal/web"
)

func main() {
	cfg, err := config.FromEnv(config.Config{
		Width:      render.DefaultWidth,
		Height:     render.DefaultHeight,
		CellSize:   render.DefaultCellSize,
		Interval:   render.DefaultInterval,
		Shader:     "default",
		ListenAddr: ":8080",
		LogFormat:  "text",
	})
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}
	cfg.RegisterFlags(flag.CommandLine)
	staticDir := flag.String("static-dir", "", "serve static UI from this directory (optional); when empty, the embedded viewer is served")
	snapshot := flag.String("snapshot", "", "render once to this PNG file and exit")
	view := flag.String("view", "", "initial viewport as a share query, e.g. cx=-0.5&cy=0&scale=0.4")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}

	var logger app.Logger = app.NoopLogger{}
	if cfg.Debug {
		logger = app.NewFileLogger(os.Stderr)
	}

	initial, err := parseView(*view)
	if err != nil {
		fmt.Println("view error:", err)
		os.Exit(2)
	}

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := state.NewStore()
	remote := input.NewChanSource(16)
	control, err := NewSimControl(cfg.Shader, store, remote)
	if err != nil {
		fmt.Println("shader error:", err)
		os.Exit(2)
	}

	surface := render.NewImageSurface(cfg.Width, cfg.Height)
	control.Surface = surface
	renderer, err := render.New(render.Options{
		Surface:  surface,
		Interval: cfg.Interval,
		Shader:   control.Shader(),
		CellSize: cfg.CellSize,
		Viewport: initial,
		Logger:   logger,
	})
	if err != nil {
		fmt.Println("renderer error:", err)
		os.Exit(2)
	}

	if *snapshot != "" {
		if err := writeSnapshot(processCtx, *snapshot, renderer, surface, store, !cfg.NoHUD); err != nil {
			fmt.Println("snapshot error:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", *snapshot)
		return
	}

	server := web.NewHTTPServer(web.ServerConfig{ListenAddr: cfg.ListenAddr, DevMode: cfg.DevMode})
	server.Logger = logger
	mux := web.NewDefaultMux(*staticDir, web.APIV1Deps{
		Viewer:   renderer,
		Frames:   surface,
		Events:   remote,
		Status:   store,
		ShareURL: cfg.ShareURL,
	})
	registerSimEndpoints(mux, control)
	server.Handler = mux

	a := app.New(store, renderer, surface, render.NoopDisplay{}, server, remote)
	a.Logger = logger

	fmt.Println("shadeview simulator listening on", cfg.ListenAddr)
	fmt.Println("Shader:", control.ShaderName())
	fmt.Println("API: http://" + trimLeadingColon(cfg.ListenAddr) + "/api/v1/")

	if err := a.Start(processCtx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println("simulator error:", err)
		os.Exit(1)
	}
}

func parseView(raw string) (viewport.Viewport, error) {
	if raw == "" {
		return viewport.Default(), nil
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return viewport.Viewport{}, err
	}
	return viewport.FromQuery(q)
}

// writeSnapshot renders the initial view to completion and saves it.
func writeSnapshot(ctx context.Context, path string, renderer *render.Renderer, surface *render.ImageSurface, store *state.Store, hud bool) error {
	w, h := surface.Size()
	task := renderer.Begin()
	store.BeginRender(task.Generation(), renderer.Viewport(), w, h, time.Now())
	res, err := task.Run(ctx)
	phase := state.COMPLETED
	if err != nil {
		phase = state.FAILED
	}
	store.FinishRender(res.Generation, phase, res.Cells, res.Elapsed, err)
	if err != nil {
		return err
	}

	frame := surface.Snapshot()
	if hud {
		render.NewHUD(nil).Draw(frame, store.Snapshot())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func trimLeadingColon(addr string) string {
	// Best-effort for display; don't attempt full URL parsing here.
	if len(addr) > 0 && addr[0] == ':' {
		return "127.0.0.1" + addr
	}
	if addr == "" {
		return "127.0.0.1:8080"
	}
	// If it's already a host:port, keep it.
	return addr
}
