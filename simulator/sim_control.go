package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/shadeview/internal/input"
	"github.com/rook-computer/shadeview/internal/render"
	"github.com/rook-computer/shadeview/internal/shader"
	"github.com/rook-computer/shadeview/internal/state"
	"github.com/rook-computer/shadeview/internal/web"
)

// SimFaults makes the simulated shader slow or broken so interruption and
// failure handling can be exercised from a browser.
type SimFaults struct {
	SampleDelayMicros int64 `json:"sampleDelayMicros"`
	FailAfterSamples  int64 `json:"failAfterSamples"`
	PanicAfterSamples int64 `json:"panicAfterSamples"`
}

const maxSimSize = 4096

type SimControl struct {
	startupShader string
	currentName   atomic.Value // string
	current       atomic.Value // shader.Shader

	Store  *state.Store
	Events web.EventSink
	// Surface, when set, can be resized through /sim/resize.
	Surface *render.ImageSurface

	faults struct {
		mu sync.RWMutex
		v  SimFaults
	}
	samples atomic.Int64
}

func NewSimControl(startupShader string, store *state.Store, events web.EventSink) (*SimControl, error) {
	c := &SimControl{startupShader: strings.TrimSpace(startupShader), Store: store, Events: events}
	if c.startupShader == "" {
		c.startupShader = "default"
	}
	if err := c.UseShader(c.startupShader); err != nil {
		return nil, err
	}
	return c, nil
}

// UseShader switches the color function every later sample uses.
func (c *SimControl) UseShader(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.startupShader
	}
	sh, err := shader.Lookup(name)
	if err != nil {
		return err
	}
	c.current.Store(sh)
	c.currentName.Store(name)
	if c.Store != nil {
		c.Store.SetShader(name)
	}
	return nil
}

func (c *SimControl) ShaderName() string {
	name, _ := c.currentName.Load().(string)
	return name
}

func (c *SimControl) Faults() SimFaults {
	c.faults.mu.RLock()
	defer c.faults.mu.RUnlock()
	return c.faults.v
}

// SetFaults replaces the faults and restarts the sample count.
func (c *SimControl) SetFaults(v SimFaults) {
	c.faults.mu.Lock()
	c.faults.v = v
	c.faults.mu.Unlock()
	c.samples.Store(0)
}

func (c *SimControl) Reset() error {
	c.SetFaults(SimFaults{})
	return c.UseShader(c.startupShader)
}

// Shader is handed to the renderer once; it dispatches to the current
// shader and applies faults.
func (c *SimControl) Shader() shader.Shader {
	return func(x, y float64) (color.Color, error) {
		faults := c.Faults()
		n := c.samples.Add(1)
		if faults.SampleDelayMicros > 0 {
			time.Sleep(time.Duration(faults.SampleDelayMicros) * time.Microsecond)
		}
		if faults.PanicAfterSamples > 0 && n > faults.PanicAfterSamples {
			panic(fmt.Sprintf("simulated shader panic after %d samples", faults.PanicAfterSamples))
		}
		if faults.FailAfterSamples > 0 && n > faults.FailAfterSamples {
			return nil, fmt.Errorf("simulated shader failure after %d samples", faults.FailAfterSamples)
		}
		sh, _ := c.current.Load().(shader.Shader)
		return sh(x, y)
	}
}

func (c *SimControl) rerender(ctx context.Context) error {
	if c.Events == nil {
		return nil
	}
	return c.Events.Send(ctx, input.RenderEvent{})
}

func registerSimEndpoints(handler http.Handler, control *SimControl) {
	mux, ok := handler.(*http.ServeMux)
	if !ok {
		// Only supported when the simulator uses the default mux.
		return
	}

	mux.HandleFunc("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := control.Reset(); err != nil {
			writeSimError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := control.rerender(r.Context()); err != nil {
			writeSimError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "shader": control.ShaderName()})
	})

	mux.HandleFunc("/sim/shader/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/sim/shader/")
		name = strings.Trim(name, "/")
		if err := control.UseShader(name); err != nil {
			writeSimError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := control.rerender(r.Context()); err != nil {
			writeSimError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "shader": control.ShaderName()})
	})

	mux.HandleFunc("/sim/resize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if control.Surface == nil {
			writeSimError(w, http.StatusNotImplemented, "surface not configured")
			return
		}
		var size struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		}
		if err := json.NewDecoder(r.Body).Decode(&size); err != nil {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if size.Width <= 0 || size.Height <= 0 || size.Width > maxSimSize || size.Height > maxSimSize {
			writeSimError(w, http.StatusBadRequest, fmt.Sprintf("size must be between 1 and %d", maxSimSize))
			return
		}
		// The next render picks up the new size; the old frame is kept as a scaled preview.
		control.Surface.Resize(size.Width, size.Height)
		if err := control.rerender(r.Context()); err != nil {
			writeSimError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "width": size.Width, "height": size.Height})
	})

	mux.HandleFunc("/sim/faults", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeSimJSON(w, http.StatusOK, control.Faults())
			return
		case http.MethodPost:
			var patch struct {
				SampleDelayMicros *int64 `json:"sampleDelayMicros"`
				FailAfterSamples  *int64 `json:"failAfterSamples"`
				PanicAfterSamples *int64 `json:"panicAfterSamples"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
			current := control.Faults()
			if patch.SampleDelayMicros != nil {
				current.SampleDelayMicros = *patch.SampleDelayMicros
			}
			if patch.FailAfterSamples != nil {
				current.FailAfterSamples = *patch.FailAfterSamples
			}
			if patch.PanicAfterSamples != nil {
				current.PanicAfterSamples = *patch.PanicAfterSamples
			}
			control.SetFaults(current)
			writeSimJSON(w, http.StatusOK, current)
			return
		default:
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
