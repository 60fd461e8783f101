//go:build !linux

package input

import (
	"context"
	"errors"
)

// EvdevSource is only functional on Linux.
type EvdevSource struct {
	Glob   string
	Bounds func() (width, height int)
	Logger Logger

	ch chan Event
}

func NewEvdevSource(glob string, bounds func() (int, int)) *EvdevSource {
	return &EvdevSource{Glob: glob, Bounds: bounds, ch: make(chan Event)}
}

func (s *EvdevSource) Start(ctx context.Context) error {
	return errors.New("input: evdev is only supported on linux")
}

func (s *EvdevSource) Stop() error          { return nil }
func (s *EvdevSource) Events() <-chan Event { return s.ch }
