package render

import (
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/rook-computer/shadeview/internal/state"
	"github.com/rook-computer/shadeview/internal/viewport"
)

func hudState() state.State {
	return state.State{
		Viewport: viewport.Viewport{CenterX: -0.75, CenterY: 0.1, Scale: 12},
		Shader:   "mandelbrot",
		Render:   state.RenderInfo{Generation: 4, Phase: state.RENDERING, Cells: 1234},
		Timing:   state.Timing{Mean: 1500 * time.Millisecond, Max: 2 * time.Second, Samples: 2},
	}
}

func TestHUDLines(t *testing.T) {
	h := NewHUD(nil)
	lines := h.Lines(hudState())
	if len(lines) != 3 {
		t.Fatalf("Lines() = %q, want 3 lines", lines)
	}
	for _, want := range []string{"mandelbrot", "center -0.75, 0.1", "scale 12"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line 0 = %q, missing %q", lines[0], want)
		}
	}
	if lines[1] != "gen 4 rendering  1234 cells" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "mean 1.5s  max 2s" {
		t.Errorf("line 2 = %q", lines[2])
	}

	snap := hudState()
	snap.Render.Err = errors.New("bad sample").Error()
	lines = h.Lines(snap)
	if got := lines[len(lines)-1]; got != "error: bad sample" {
		t.Errorf("last line = %q", got)
	}
}

func changedPixels(a, b *image.RGBA) int {
	n := 0
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			n++
		}
	}
	return n
}

func TestHUDDraw(t *testing.T) {
	for _, fallback := range []bool{false, true} {
		h := NewHUD(nil)
		if fallback {
			h.ttFont = nil
		}
		dst := image.NewRGBA(image.Rect(0, 0, 400, 200))
		before := image.NewRGBA(dst.Bounds())
		h.Draw(dst, hudState())
		if changedPixels(before, dst) == 0 {
			t.Errorf("fallback=%v: Draw left the frame untouched", fallback)
		}
		// The overlay stays in the top-left corner.
		for x := 0; x < 400; x++ {
			if c := dst.RGBAAt(x, 199); c.A != 0 {
				t.Fatalf("fallback=%v: pixel (%d,199) = %v, want untouched", fallback, x, c)
			}
		}
	}
}

func TestFBDisplayFrame(t *testing.T) {
	surface := NewImageSurface(50, 20)
	d := NewFBDisplay(surface)
	// Not started: Present is a no-op and must not panic.
	d.Present(state.State{})
	frame := d.Frame(state.State{})
	if frame.Bounds() != image.Rect(0, 0, 50, 20) {
		t.Errorf("Frame bounds = %v", frame.Bounds())
	}
}

func TestShareURL(t *testing.T) {
	v := viewport.Viewport{CenterX: 0.25, CenterY: -1, Scale: 4}
	got, err := ShareURL("http://viewer.local/?theme=dark", v)
	if err != nil {
		t.Fatal(err)
	}
	want := "http://viewer.local/?cx=0.25&cy=-1&scale=4&theme=dark"
	if got != want {
		t.Errorf("ShareURL() = %q, want %q", got, want)
	}
	if _, err := ShareURL("", v); err == nil {
		t.Error("ShareURL with empty base: expected error")
	}
}

func TestShareQRCode(t *testing.T) {
	img, err := ShareQRCode("http://viewer.local/", viewport.Default(), 128)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 128 {
		t.Errorf("QR bounds = %v, want 128x128", b)
	}
}
