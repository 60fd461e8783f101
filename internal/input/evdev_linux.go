//go:build linux

package input

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// EvdevSource reads mice and keyboards from Linux evdev devices.
type EvdevSource struct {
	Glob string
	// Bounds reports the surface size the cursor is clamped to.
	Bounds func() (width, height int)
	Logger Logger

	ch      chan Event
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	tracker *pointerTracker
}

func NewEvdevSource(glob string, bounds func() (int, int)) *EvdevSource {
	if glob == "" {
		glob = DefaultEvdevGlob
	}
	return &EvdevSource{Glob: glob, Bounds: bounds, ch: make(chan Event, 64)}
}

func (s *EvdevSource) Events() <-chan Event { return s.ch }

// Start opens every matching device. It is best-effort: with no devices it
// logs and returns nil.
func (s *EvdevSource) Start(ctx context.Context) error {
	paths, err := filepath.Glob(s.Glob)
	if err != nil || len(paths) == 0 {
		if s.Logger != nil {
			s.Logger.Infof("input", "no evdev devices match %s", s.Glob)
		}
		return nil
	}
	readCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.tracker = newPointerTracker(s.Bounds)

	// input_event = timeval + u16 type + u16 code + s32 value.
	tvSize := binary.Size(unix.Timeval{})
	for _, path := range paths {
		s.wg.Add(1)
		go func(p string) {
			defer s.wg.Done()
			s.readDevice(readCtx, p, tvSize)
		}(path)
	}
	if s.Logger != nil {
		s.Logger.Infof("input", "reading %d evdev devices", len(paths))
	}
	return nil
}

func (s *EvdevSource) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *EvdevSource) readDevice(ctx context.Context, path string, tvSize int) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Errorf("input", "open %s: %v", path, err)
		}
		return
	}
	f := os.NewFile(uintptr(fd), path)
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pollFds, 250); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Device might have gone away.
			return
		}
		if pollFds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		for _, raw := range decodeRecords(buf[:n], tvSize) {
			for _, ev := range s.tracker.apply(raw) {
				select {
				case s.ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
