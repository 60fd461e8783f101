package input

import (
	"encoding/binary"
	"sync"
)

// Linux input-event-codes.h
const (
	evKey = 0x01
	evRel = 0x02

	relX     = 0x00
	relY     = 0x01
	relWheel = 0x08

	keyEsc    = 1
	keyF4     = 62
	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
)

// DefaultEvdevGlob matches every evdev device.
const DefaultEvdevGlob = "/dev/input/event*"

type rawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// decodeRecords splits buf into input_event records. A record is a timeval
// of tvSize bytes followed by u16 type, u16 code and s32 value. A trailing
// partial record is ignored.
func decodeRecords(buf []byte, tvSize int) []rawEvent {
	size := tvSize + 8
	var out []rawEvent
	for off := 0; off+size <= len(buf); off += size {
		rec := buf[off : off+size]
		out = append(out, rawEvent{
			Type:  binary.LittleEndian.Uint16(rec[tvSize : tvSize+2]),
			Code:  binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4]),
			Value: int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8])),
		})
	}
	return out
}

// pointerTracker integrates relative mouse motion into a cursor position
// clamped to the surface. It is shared by all devices.
type pointerTracker struct {
	mu     sync.Mutex
	bounds func() (int, int)
	x, y   float64
	placed bool
	held   int // button number + 1, or 0
}

func newPointerTracker(bounds func() (int, int)) *pointerTracker {
	return &pointerTracker{bounds: bounds}
}

func (t *pointerTracker) apply(ev rawEvent) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, h := 0, 0
	if t.bounds != nil {
		w, h = t.bounds()
	}
	if !t.placed {
		// Start in the middle of the surface.
		t.x, t.y = float64(w)/2, float64(h)/2
		t.placed = true
	}

	switch ev.Type {
	case evRel:
		switch ev.Code {
		case relX:
			t.x = clamp(t.x+float64(ev.Value), w)
		case relY:
			t.y = clamp(t.y+float64(ev.Value), h)
		case relWheel:
			if ev.Value == 0 {
				return nil
			}
			// Positive REL_WHEEL is a notch away from the user.
			return []Event{WheelEvent{X: t.x, Y: t.y, DeltaY: -float64(ev.Value)}}
		default:
			return nil
		}
		if t.held != 0 {
			return []Event{PointerEvent{Kind: PointerMove, X: t.x, Y: t.y, Button: t.held - 1}}
		}
	case evKey:
		switch ev.Code {
		case keyF4, keyEsc:
			if ev.Value == 1 {
				return []Event{ExitEvent{}}
			}
		case btnLeft, btnMiddle, btnRight:
			button := buttonNumber(ev.Code)
			switch ev.Value {
			case 1:
				t.held = button + 1
				return []Event{PointerEvent{Kind: PointerDown, X: t.x, Y: t.y, Button: button}}
			case 0:
				if t.held == button+1 {
					t.held = 0
				}
				return []Event{PointerEvent{Kind: PointerUp, X: t.x, Y: t.y, Button: button}}
			}
		}
	}
	return nil
}

// buttonNumber follows the DOM numbering: 0 primary, 1 middle, 2 secondary.
func buttonNumber(code uint16) int {
	switch code {
	case btnMiddle:
		return 1
	case btnRight:
		return 2
	}
	return 0
}

func clamp(v float64, limit int) float64 {
	if v < 0 {
		return 0
	}
	if hi := float64(limit - 1); v > hi {
		if hi < 0 {
			return 0
		}
		return hi
	}
	return v
}
