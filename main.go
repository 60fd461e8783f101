package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rook-computer/shadeview/internal/app"
	"github.com/rook-computer/shadeview/internal/config"
	"github.com/rook-computer/shadeview/internal/input"
	"github.com/rook-computer/shadeview/internal/render"
	"github.com/rook-computer/shadeview/internal/shader"
	"github.com/rook-computer/shadeview/internal/state"
	"github.com/rook-computer/shadeview/internal/system"
	"github.com/rook-computer/shadeview/internal/viewport"
	"github.com/rook-computer/shadeview/internal/web"
)

func main() {
	fmt.Println("shadeview starting")

	cfg, err := config.FromEnv(config.Config{
		Width:      render.DefaultWidth,
		Height:     render.DefaultHeight,
		CellSize:   render.DefaultCellSize,
		Interval:   render.DefaultInterval,
		Shader:     "default",
		ListenAddr: ":80",
		FBDevice:   render.DefaultFBDevice,
		InputGlob:  input.DefaultEvdevGlob,
		LogFormat:  "text",
		LogPath:    "./shadeview-debug.log",
	})
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}

	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	if err := redirectStdIO(cfg.StdioLog); err != nil {
		fmt.Println("stdio log redirect error:", err)
	}

	logger, closeLog := openLogger(cfg)
	defer closeLog()

	sh, err := shader.Lookup(cfg.Shader)
	if err != nil {
		fmt.Println("shader error:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := state.NewStore()
	store.SetShader(cfg.Shader)

	surface := render.NewImageSurface(cfg.Width, cfg.Height)
	renderer, err := render.New(render.Options{
		Surface:  surface,
		Interval: cfg.Interval,
		Shader:   sh,
		CellSize: cfg.CellSize,
		Viewport: viewport.Default(),
		Logger:   logger,
	})
	if err != nil {
		fmt.Println("renderer error:", err)
		os.Exit(2)
	}

	display := render.NewFBDisplay(surface)
	display.Device = cfg.FBDevice
	display.Logger = logger
	if !cfg.NoHUD {
		display.HUD = render.NewHUD(logger)
	}

	remote := input.NewChanSource(16)
	inputs := []input.Source{remote}
	if cfg.InputGlob != "" {
		evdev := input.NewEvdevSource(cfg.InputGlob, surface.Size)
		evdev.Logger = logger
		inputs = append(inputs, evdev)
	}

	var server web.Server = &web.NoopServer{}
	if cfg.ListenAddr != "" {
		httpServer := web.NewHTTPServer(web.ServerConfig{ListenAddr: cfg.ListenAddr, DevMode: cfg.DevMode})
		httpServer.Logger = logger
		httpServer.Handler = web.NewDefaultMux("", web.APIV1Deps{
			Viewer:   renderer,
			Frames:   surface,
			Events:   remote,
			Status:   store,
			ShareURL: cfg.ShareURL,
		})
		server = httpServer
	}

	a := app.New(store, renderer, surface, display, server, inputs...)
	a.Logger = logger
	a.Console = system.NewConsole(logger)

	if err := a.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("main", "app exited: %v", err)
		fmt.Println("app error:", err)
		os.Exit(1)
	}
	logger.Infof("main", "shutdown complete")
}

// openLogger picks the debug logger. Without -debug nothing is logged.
func openLogger(cfg config.Config) (app.Logger, func()) {
	if !cfg.Debug {
		return app.NoopLogger{}, func() {}
	}
	if cfg.LogFormat == "json" {
		zl, err := app.NewZapLogger(cfg.LogPath)
		if err != nil {
			fmt.Println("debug log open error:", err)
			return app.NoopLogger{}, func() {}
		}
		zl.Infof("main", "debug logging enabled")
		return zl, func() { _ = zl.Sync() }
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Println("debug log open error:", err)
		return app.NoopLogger{}, func() {}
	}
	l := app.NewFileLogger(f)
	l.Infof("main", "debug logging enabled")
	return l, func() { _ = f.Close() }
}
