// Package shader holds color functions over plane coordinates.
package shader

import (
	"errors"
	"fmt"
	"image/color"
	"image/color/palette"
	"math"
	"sort"
)

// Shader maps a plane coordinate to a color. It must be pure; its cost is
// unknown to the caller. A returned error aborts the render that called it.
type Shader func(x, y float64) (color.Color, error)

var ErrUnknownShader = errors.New("shader: unknown shader")

// Default puts x in the red channel and y in the green channel.
func Default(x, y float64) (color.Color, error) {
	return color.RGBA{R: channel(x), G: channel(y), B: 0, A: 0xFF}, nil
}

func channel(v float64) uint8 {
	c := math.Round(v * 255)
	switch {
	case math.IsNaN(c) || c <= 0:
		return 0
	case c >= 255:
		return 255
	}
	return uint8(c)
}

// Mandelbrot colors points by escape time. The palette length is the
// iteration limit; points that never escape get the first entry.
func Mandelbrot(colors color.Palette) Shader {
	if len(colors) == 0 {
		colors = palette.Plan9
	}
	return func(x, y float64) (color.Color, error) {
		var zr, zi float64
		for i := range colors {
			zr, zi = zr*zr-zi*zi+x, 2*zr*zi+y
			if zr*zr+zi*zi > 4 {
				return colors[i], nil
			}
		}
		return colors[0], nil
	}
}

// Checker alternates black and white squares n per plane unit.
func Checker(n int) Shader {
	if n <= 0 {
		n = 8
	}
	return func(x, y float64) (color.Color, error) {
		ix := int(math.Floor(x * float64(n)))
		iy := int(math.Floor(y * float64(n)))
		if (ix+iy)&1 == 0 {
			return color.White, nil
		}
		return color.Black, nil
	}
}

// Gradient returns steps colors linearly interpolated from start to end.
func Gradient(start, end color.RGBA, steps int) color.Palette {
	p := make(color.Palette, 0, steps)
	for j := 0; j < steps; j++ {
		fraction := float64(j) / float64(steps)
		p = append(p, color.RGBA{
			R: lerp(start.R, end.R, fraction),
			G: lerp(start.G, end.G, fraction),
			B: lerp(start.B, end.B, fraction),
			A: 0xFF,
		})
	}
	return p
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

var registry = map[string]func() Shader{
	"default":    func() Shader { return Default },
	"mandelbrot": func() Shader { return Mandelbrot(nil) },
	"fire": func() Shader {
		return Mandelbrot(Gradient(color.RGBA{R: 0x10, A: 0xFF}, color.RGBA{R: 0xFF, G: 0xDC, A: 0xFF}, 128))
	},
	"checker": func() Shader { return Checker(8) },
}

// Lookup returns the named built-in shader.
func Lookup(name string) (Shader, error) {
	if name == "" {
		name = "default"
	}
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownShader, name, Names())
	}
	return mk(), nil
}

// Names lists the built-in shaders in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
