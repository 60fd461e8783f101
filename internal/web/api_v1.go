package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"math"
	"net/http"
	"strconv"

	"github.com/rook-computer/shadeview/internal/input"
	"github.com/rook-computer/shadeview/internal/render"
	"github.com/rook-computer/shadeview/internal/viewport"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type viewportResponse struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Scale   float64 `json:"scale"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
}

type zoomRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}

type pointerRequest struct {
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
}

type transformResponse struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	PX float64 `json:"px"`
	PY float64 `json:"py"`
}

type renderInfoResponse struct {
	Generation uint64  `json:"generation"`
	Phase      string  `json:"phase"`
	Cells      int     `json:"cells"`
	ElapsedMS  float64 `json:"elapsedMs"`
	Error      string  `json:"error,omitempty"`
}

type statusResponse struct {
	Viewport   viewportResponse   `json:"viewport"`
	Shader     string             `json:"shader"`
	Render     renderInfoResponse `json:"render"`
	Started    int                `json:"started"`
	Completed  int                `json:"completed"`
	Superseded int                `json:"superseded"`
	Failed     int                `json:"failed"`
	MeanMS     float64            `json:"meanMs"`
	GeoMeanMS  float64            `json:"geoMeanMs"`
	MaxMS      float64            `json:"maxMs"`
}

type shareResponse struct {
	URL string `json:"url"`
}

func apiV1Router(deps APIV1Deps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/viewport", func(w http.ResponseWriter, r *http.Request) { handleViewport(w, r, deps) })
	mux.HandleFunc("/zoom", func(w http.ResponseWriter, r *http.Request) { handleZoom(w, r, deps) })
	mux.HandleFunc("/pointer", func(w http.ResponseWriter, r *http.Request) { handlePointer(w, r, deps) })
	mux.HandleFunc("/render", func(w http.ResponseWriter, r *http.Request) { handleRender(w, r, deps) })
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) { handleStatus(w, r, deps) })
	mux.HandleFunc("/transform", func(w http.ResponseWriter, r *http.Request) { handleTransform(w, r, deps) })
	mux.HandleFunc("/frame.png", func(w http.ResponseWriter, r *http.Request) { handleFrame(w, r, deps) })
	mux.HandleFunc("/share", func(w http.ResponseWriter, r *http.Request) { handleShare(w, r, deps) })
	mux.HandleFunc("/share.png", func(w http.ResponseWriter, r *http.Request) { handleShareQR(w, r, deps) })
	return mux
}

func handleViewport(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	switch r.Method {
	case http.MethodGet:
		if deps.Viewer == nil {
			writeAPIError(w, http.StatusNotImplemented, "not_implemented", "viewer not configured")
			return
		}
		writeJSON(w, http.StatusOK, currentViewport(deps))
	case http.MethodPut, http.MethodPost:
		var v viewport.Viewport
		if !decodeBody(w, r, &v) {
			return
		}
		if err := v.Validate(); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_viewport", err.Error())
			return
		}
		sendEvent(w, r, deps, input.ViewportEvent{Viewport: v})
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func currentViewport(deps APIV1Deps) viewportResponse {
	v := deps.Viewer.Viewport()
	resp := viewportResponse{CenterX: v.CenterX, CenterY: v.CenterY, Scale: v.Scale}
	if deps.Status != nil {
		snap := deps.Status.Snapshot()
		resp.Width, resp.Height = snap.Width, snap.Height
	}
	return resp
}

func handleZoom(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	var req zoomRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !finite(req.X) || !finite(req.Y) || !finite(req.DeltaY) {
		writeAPIError(w, http.StatusBadRequest, "invalid_zoom", "x, y and deltaY must be finite numbers")
		return
	}
	sendEvent(w, r, deps, input.WheelEvent{X: req.X, Y: req.Y, DeltaY: req.DeltaY})
}

func handlePointer(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	var req pointerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := input.ParsePointerKind(req.Kind)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_pointer", err.Error())
		return
	}
	sendEvent(w, r, deps, input.PointerEvent{Kind: kind, X: req.X, Y: req.Y, Button: req.Button})
}

func handleRender(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	sendEvent(w, r, deps, input.RenderEvent{})
}

func sendEvent(w http.ResponseWriter, r *http.Request, deps APIV1Deps, ev input.Event) {
	if deps.Events == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "input not configured")
		return
	}
	if err := deps.Events.Send(r.Context(), ev); err != nil {
		if errors.Is(err, input.ErrClosed) {
			writeAPIError(w, http.StatusServiceUnavailable, "shutting_down", err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "send_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handleStatus(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Status == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "status not configured")
		return
	}
	snap := deps.Status.Snapshot()
	v := snap.Viewport
	writeJSON(w, http.StatusOK, statusResponse{
		Viewport: viewportResponse{CenterX: v.CenterX, CenterY: v.CenterY, Scale: v.Scale, Width: snap.Width, Height: snap.Height},
		Shader:   snap.Shader,
		Render: renderInfoResponse{
			Generation: snap.Render.Generation,
			Phase:      snap.Render.Phase.String(),
			Cells:      snap.Render.Cells,
			ElapsedMS:  ms(snap.Render.Elapsed.Seconds()),
			Error:      snap.Render.Err,
		},
		Started:    snap.Counters.Started,
		Completed:  snap.Counters.Completed,
		Superseded: snap.Counters.Superseded,
		Failed:     snap.Counters.Failed,
		MeanMS:     ms(snap.Timing.Mean.Seconds()),
		GeoMeanMS:  ms(snap.Timing.GeoMean.Seconds()),
		MaxMS:      ms(snap.Timing.Max.Seconds()),
	})
}

// handleTransform converts pixel (x, y) to plane (px, py), or the reverse
// when px and py are given instead.
func handleTransform(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Viewer == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "viewer not configured")
		return
	}
	q := r.URL.Query()
	if q.Has("px") || q.Has("py") {
		px, errX := strconv.ParseFloat(q.Get("px"), 64)
		py, errY := strconv.ParseFloat(q.Get("py"), 64)
		if errX != nil || errY != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_query", "px and py must be numbers")
			return
		}
		x, y := deps.Viewer.ValueToPixel(px, py)
		writeJSON(w, http.StatusOK, transformResponse{X: x, Y: y, PX: px, PY: py})
		return
	}
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_query", "x and y (or px and py) must be numbers")
		return
	}
	px, py := deps.Viewer.PixelToValue(x, y)
	writeJSON(w, http.StatusOK, transformResponse{X: x, Y: y, PX: px, PY: py})
}

func handleFrame(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Frames == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "frames not configured")
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, deps.Frames.Snapshot()); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	writePNG(w, deps, buf.Bytes())
}

func handleShare(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Viewer == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "viewer not configured")
		return
	}
	link, err := render.ShareURL(shareBase(r, deps), deps.Viewer.Viewport())
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "share_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{URL: link})
}

func handleShareQR(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Viewer == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "viewer not configured")
		return
	}
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 2048 {
			writeAPIError(w, http.StatusBadRequest, "invalid_query", "size must be between 1 and 2048")
			return
		}
		size = parsed
	}
	img, err := render.ShareQRCode(shareBase(r, deps), deps.Viewer.Viewport(), size)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "share_failed", err.Error())
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	writePNG(w, deps, buf.Bytes())
}

func shareBase(r *http.Request, deps APIV1Deps) string {
	if deps.ShareURL != "" {
		return deps.ShareURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

func writePNG(w http.ResponseWriter, deps APIV1Deps, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if deps.Status != nil {
		w.Header().Set("X-Render-Generation", strconv.FormatUint(deps.Status.Snapshot().Render.Generation, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func ms(seconds float64) float64 { return seconds * 1000 }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
