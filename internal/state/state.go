package state

import (
	"math"
	"sync"
	"time"

	"github.com/aclements/go-moremath/stats"

	"github.com/rook-computer/shadeview/internal/viewport"
)

// Phase of the most recent render generation.
type Phase int

const (
	IDLE Phase = iota
	RENDERING
	COMPLETED
	SUPERSEDED
	FAILED
)

func (p Phase) String() string {
	switch p {
	case IDLE:
		return "idle"
	case RENDERING:
		return "rendering"
	case COMPLETED:
		return "completed"
	case SUPERSEDED:
		return "superseded"
	case FAILED:
		return "failed"
	}
	return "unknown"
}

// historySize bounds how many completed render durations feed the stats.
const historySize = 64

type RenderInfo struct {
	Generation uint64
	Phase      Phase
	Cells      int
	Elapsed    time.Duration
	StartedAt  time.Time
	Err        string
}

type Counters struct {
	Started    int
	Completed  int
	Superseded int
	Failed     int
}

type Timing struct {
	// Mean and GeoMean over recent completed renders.
	Mean    time.Duration
	GeoMean time.Duration
	Max     time.Duration
	Samples int
}

type State struct {
	Viewport viewport.Viewport
	Width    int
	Height   int
	Shader   string
	Render   RenderInfo
	Counters Counters
	Timing   Timing
}

type Store struct {
	mu      sync.RWMutex
	state   State
	history []float64 // seconds
}

func NewStore() *Store {
	return &Store{state: State{Viewport: viewport.Default()}}
}

func (store *Store) Snapshot() State {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

func (store *Store) SetShader(name string) {
	store.mu.Lock()
	store.state.Shader = name
	store.mu.Unlock()
}

func (store *Store) UpdateView(v viewport.Viewport, width, height int) {
	store.mu.Lock()
	store.state.Viewport = v
	store.state.Width = width
	store.state.Height = height
	store.mu.Unlock()
}

// BeginRender records that generation gen has started on view v.
func (store *Store) BeginRender(gen uint64, v viewport.Viewport, width, height int, now time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.state.Viewport = v
	store.state.Width = width
	store.state.Height = height
	store.state.Render = RenderInfo{Generation: gen, Phase: RENDERING, StartedAt: now}
	store.state.Counters.Started++
}

// FinishRender records the outcome of generation gen. Outcomes of
// generations older than the current one only update the counters.
func (store *Store) FinishRender(gen uint64, phase Phase, cells int, elapsed time.Duration, err error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	switch phase {
	case COMPLETED:
		store.state.Counters.Completed++
		store.history = append(store.history, elapsed.Seconds())
		if len(store.history) > historySize {
			store.history = store.history[len(store.history)-historySize:]
		}
		store.state.Timing = timing(store.history)
	case SUPERSEDED:
		store.state.Counters.Superseded++
	case FAILED:
		store.state.Counters.Failed++
	}
	if gen != store.state.Render.Generation {
		return
	}
	store.state.Render.Phase = phase
	store.state.Render.Cells = cells
	store.state.Render.Elapsed = elapsed
	if err != nil {
		store.state.Render.Err = err.Error()
	}
}

func timing(history []float64) Timing {
	t := Timing{Samples: len(history)}
	if len(history) == 0 {
		return t
	}
	t.Mean = seconds(stats.Mean(history))
	// GeoMean is undefined for zero durations.
	positive := make([]float64, 0, len(history))
	for _, s := range history {
		if s > 0 {
			positive = append(positive, s)
		}
		if d := seconds(s); d > t.Max {
			t.Max = d
		}
	}
	if len(positive) > 0 {
		t.GeoMean = seconds(stats.GeoMean(positive))
	}
	return t
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
