package scene

import (
	"fmt"
	"image/color"

	"github.com/chewxy/math32"
)

// Color is a linear RGB triple with components in [0,1].
type Color struct {
	R, G, B float32
}

var (
	White = Hex(0xffffff)
	Black = Hex(0x000000)
)

// Hex builds a Color from a 0xRRGGBB literal.
func Hex(v uint32) Color {
	return Color{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
	}
}

// HSV builds a Color from hue in degrees and saturation/value in [0,1].
func HSV(h, s, v float32) Color {
	h = math32.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math32.Abs(math32.Mod(h/60, 2)-1))
	m := v - c

	var out Color
	switch sector := int(h / 60); sector {
	case 0:
		out = Color{c, x, 0}
	case 1:
		out = Color{x, c, 0}
	case 2:
		out = Color{0, c, x}
	case 3:
		out = Color{0, x, c}
	case 4:
		out = Color{x, 0, c}
	default:
		out = Color{c, 0, x}
	}
	return Color{out.R + m, out.G + m, out.B + m}
}

// Hex returns the 0xRRGGBB value of c.
func (c Color) Hex() uint32 {
	return uint32(clampByte(c.R))<<16 | uint32(clampByte(c.G))<<8 | uint32(clampByte(c.B))
}

// NRGBA converts c to a straight-alpha 8-bit color.
func (c Color) NRGBA(alpha float32) color.NRGBA {
	return color.NRGBA{R: clampByte(c.R), G: clampByte(c.G), B: clampByte(c.B), A: clampByte(alpha)}
}

// Scale multiplies every component by f.
func (c Color) Scale(f float32) Color {
	return Color{c.R * f, c.G * f, c.B * f}
}

// Mix blends c toward o by t.
func (c Color) Mix(o Color, t float32) Color {
	return Color{c.R + (o.R-c.R)*t, c.G + (o.G-c.G)*t, c.B + (o.B-c.B)*t}
}

func (c Color) String() string { return fmt.Sprintf("#%06x", c.Hex()) }

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
