// Package input turns pointer, wheel and remote commands into events for
// the viewer's single event loop.
package input

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rook-computer/shadeview/internal/viewport"
)

// Event is a command for the viewer's event loop.
type Event interface {
	isEvent()
}

// WheelEvent zooms around the surface pixel (X, Y). Negative DeltaY zooms in.
type WheelEvent struct {
	X, Y   float64
	DeltaY float64
}

type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	}
	return fmt.Sprintf("PointerKind(%d)", int(k))
}

// ParsePointerKind is the inverse of PointerKind.String.
func ParsePointerKind(s string) (PointerKind, error) {
	switch s {
	case "down":
		return PointerDown, nil
	case "move":
		return PointerMove, nil
	case "up":
		return PointerUp, nil
	}
	return 0, fmt.Errorf("input: unknown pointer kind %q", s)
}

// PointerEvent is delivered for button presses and drags. Panning is not
// implemented; the viewer only observes these.
type PointerEvent struct {
	Kind   PointerKind
	X, Y   float64
	Button int
}

// ViewportEvent replaces the whole view, e.g. when opening a share link.
type ViewportEvent struct {
	Viewport viewport.Viewport
}

// RenderEvent asks for a fresh render of the current view.
type RenderEvent struct{}

// ExitEvent asks the viewer to shut down.
type ExitEvent struct{}

func (WheelEvent) isEvent()    {}
func (PointerEvent) isEvent()  {}
func (ViewportEvent) isEvent() {}
func (RenderEvent) isEvent()   {}
func (ExitEvent) isEvent()     {}

type Logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

type Source interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
}

type NoopSource struct{ ch chan Event }

func NewNoopSource() *NoopSource { return &NoopSource{ch: make(chan Event)} }

func (n *NoopSource) Start(ctx context.Context) error { return nil }
func (n *NoopSource) Stop() error                     { return nil }
func (n *NoopSource) Events() <-chan Event            { return n.ch }

var ErrClosed = errors.New("input: source closed")

// ChanSource is fed programmatically, e.g. by the HTTP API.
type ChanSource struct {
	ch   chan Event
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup
	once    sync.Once
}

func NewChanSource(buffer int) *ChanSource {
	return &ChanSource{ch: make(chan Event, buffer), done: make(chan struct{})}
}

func (s *ChanSource) Start(ctx context.Context) error { return nil }

// Stop wakes every blocked Send with ErrClosed, then closes the event
// channel. Events already queued can still be read.
func (s *ChanSource) Stop() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()
	s.senders.Wait()
	s.once.Do(func() { close(s.ch) })
	return nil
}

func (s *ChanSource) Events() <-chan Event { return s.ch }

// Send queues ev, blocking until there is room, the source is stopped or
// ctx is done.
func (s *ChanSource) Send(ctx context.Context, ev Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.senders.Add(1)
	s.mu.Unlock()
	defer s.senders.Done()

	select {
	case s.ch <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Merge forwards events from all sources into one channel, which is closed
// once every source channel is closed or ctx is done.
func Merge(ctx context.Context, sources ...Source) <-chan Event {
	out := make(chan Event)
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(in <-chan Event) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-in:
					if !ok {
						return
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}(src.Events())
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
