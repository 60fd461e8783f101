// Package config collects viewer settings from flags and SHADEVIEW_*
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvWidth     = "SHADEVIEW_WIDTH"
	EnvHeight    = "SHADEVIEW_HEIGHT"
	EnvCellSize  = "SHADEVIEW_CELL_SIZE"
	EnvInterval  = "SHADEVIEW_INTERVAL"
	EnvShader    = "SHADEVIEW_SHADER"
	EnvListen    = "SHADEVIEW_LISTEN"
	EnvDevMode   = "SHADEVIEW_DEV"
	EnvFBDevice  = "SHADEVIEW_FB"
	EnvInputGlob = "SHADEVIEW_INPUT"
	EnvLogFormat = "SHADEVIEW_LOG_FORMAT"
	EnvLogPath   = "SHADEVIEW_LOG"
	EnvStdioLog  = "SHADEVIEW_STDIO_LOG"
	EnvShareURL  = "SHADEVIEW_SHARE_URL"
)

// Config is shared by the device binary and the simulator. The intended
// defaults differ per binary (listen :80 on the device, :8080 in the
// simulator), so callers pass their own defaults to FromEnv.
type Config struct {
	Width    int
	Height   int
	CellSize int
	Interval time.Duration
	Shader   string

	ListenAddr string
	DevMode    bool
	// ShareURL is the public base URL put into share QR codes. Empty means
	// derive it from the request.
	ShareURL string

	FBDevice  string
	InputGlob string
	NoHUD     bool

	Debug     bool
	LogFormat string // "text" or "json"
	LogPath   string
	StdioLog  string
}

// FromEnv overrides defaults with any SHADEVIEW_* variables that are set.
func FromEnv(defaults Config) (Config, error) {
	cfg := defaults
	ints := []struct {
		env string
		dst *int
	}{
		{EnvWidth, &cfg.Width},
		{EnvHeight, &cfg.Height},
		{EnvCellSize, &cfg.CellSize},
	}
	for _, f := range ints {
		raw := os.Getenv(f.env)
		if raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be an integer (got %q): %w", f.env, raw, err)
		}
		*f.dst = parsed
	}

	if raw := os.Getenv(EnvInterval); raw != "" {
		parsed, err := parseInterval(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be a duration or milliseconds (got %q): %w", EnvInterval, raw, err)
		}
		cfg.Interval = parsed
	}

	if raw := os.Getenv(EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		cfg.DevMode = parsed
	}

	strs := []struct {
		env string
		dst *string
	}{
		{EnvShader, &cfg.Shader},
		{EnvListen, &cfg.ListenAddr},
		{EnvFBDevice, &cfg.FBDevice},
		{EnvInputGlob, &cfg.InputGlob},
		{EnvLogFormat, &cfg.LogFormat},
		{EnvLogPath, &cfg.LogPath},
		{EnvStdioLog, &cfg.StdioLog},
		{EnvShareURL, &cfg.ShareURL},
	}
	for _, f := range strs {
		if raw := os.Getenv(f.env); raw != "" {
			*f.dst = raw
		}
	}
	return cfg, nil
}

// parseInterval accepts a Go duration ("250ms") or bare milliseconds ("250").
func parseInterval(raw string) (time.Duration, error) {
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(raw)
}

// RegisterFlags binds every setting to fs, using the current values as
// defaults. Call it after FromEnv so the environment provides defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "width", c.Width, "surface width in pixels; also "+EnvWidth)
	fs.IntVar(&c.Height, "height", c.Height, "surface height in pixels; also "+EnvHeight)
	fs.IntVar(&c.CellSize, "cell-size", c.CellSize, "coarse pass cell size, a power of two; also "+EnvCellSize)
	fs.DurationVar(&c.Interval, "interval", c.Interval, "max time between yields while rendering; also "+EnvInterval)
	fs.StringVar(&c.Shader, "shader", c.Shader, "color function: default | mandelbrot | fire | checker; also "+EnvShader)
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "http listen address, empty disables the API; also "+EnvListen)
	fs.BoolVar(&c.DevMode, "dev", c.DevMode, "enable dev mode (permissive CORS); also "+EnvDevMode)
	fs.StringVar(&c.ShareURL, "share-url", c.ShareURL, "base URL encoded in share QR codes; also "+EnvShareURL)
	fs.StringVar(&c.FBDevice, "fb", c.FBDevice, "framebuffer device; also "+EnvFBDevice)
	fs.StringVar(&c.InputGlob, "input", c.InputGlob, "evdev device glob, empty disables local input; also "+EnvInputGlob)
	fs.BoolVar(&c.NoHUD, "no-hud", c.NoHUD, "disable the status overlay")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable debug logging")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "debug log format: text | json; also "+EnvLogFormat)
	fs.StringVar(&c.LogPath, "log", c.LogPath, "debug log file; also "+EnvLogPath)
	fs.StringVar(&c.StdioLog, "stdio-log", c.StdioLog, "redirect stdout+stderr (including panics) to this file; also "+EnvStdioLog)
}

var ErrInvalid = errors.New("config: invalid")

func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("surface size %dx%d must be positive", c.Width, c.Height))
	}
	if c.CellSize <= 0 || c.CellSize&(c.CellSize-1) != 0 {
		errs = append(errs, fmt.Errorf("cell size %d must be a power of two", c.CellSize))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval %s must be positive", c.Interval))
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text or json", c.LogFormat))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
