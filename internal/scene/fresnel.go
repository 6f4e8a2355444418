package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FresnelUniforms are the shader parameters of the translucent ghost
// material. Every mesh of the ghost shares one set.
type FresnelUniforms struct {
	Bias    float32
	Scale   float32
	Power   float32
	Time    float32
	Opacity float32
}

// DefaultFresnel returns the installation's ghost look.
func DefaultFresnel() *FresnelUniforms {
	return &FresnelUniforms{Bias: 2.2, Scale: 6, Power: 3.5, Opacity: 0.8}
}

var (
	fresnelInner = Color{0.5, 0.1, 0.7}
	fresnelRim   = Color{0.55, 0.2, 0.8}
)

// Reflection is the fresnel factor for a surface normal seen along view
// (both unit vectors, view pointing from the eye to the surface).
func (u *FresnelUniforms) Reflection(normal, view mgl32.Vec3) float32 {
	return u.Bias + u.Scale*math32.Pow(1-normal.Dot(view), u.Power)
}

// Shade returns the color and alpha of a fragment with reflection factor r.
// Alpha flickers with Time.
func (u *FresnelUniforms) Shade(r float32) (Color, float32) {
	flicker := 0.2*math32.Sin(u.Time*4) + 0.9
	return fresnelInner.Mix(fresnelRim, r), u.Opacity * flicker
}
