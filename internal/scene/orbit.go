package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Orbit is the host control scheme: the wheel zooms toward the target and a
// drag rotates the camera around it. Input feeds velocities that decay by
// Damping every update, so motion eases out after the pointer stops.
type Orbit struct {
	Target      mgl32.Vec3
	Damping     float32
	RotateSpeed float32
	ZoomSpeed   float32
	MinZoom     float32
	MaxZoom     float32

	yaw, pitch float32
	zoom       float32 // multiplies the distance to the target

	yawVel, pitchVel, zoomVel float32
}

// NewOrbit returns controls centered on target.
func NewOrbit(target mgl32.Vec3) *Orbit {
	return &Orbit{
		Target:      target,
		Damping:     0.05,
		RotateSpeed: 0.005,
		ZoomSpeed:   0.1,
		MinZoom:     0.2,
		MaxZoom:     4,
		zoom:        1,
	}
}

// Drag feeds a pointer drag in pixels.
func (o *Orbit) Drag(dx, dy float32) {
	o.yawVel -= dx * o.RotateSpeed
	o.pitchVel -= dy * o.RotateSpeed
}

// Wheel feeds a wheel delta; positive zooms in.
func (o *Orbit) Wheel(dy float32) {
	o.zoomVel -= dy * o.ZoomSpeed
}

// Update integrates the damped velocities.
func (o *Orbit) Update() {
	o.yaw += o.yawVel * o.Damping
	o.pitch += o.pitchVel * o.Damping
	o.pitch = mgl32.Clamp(o.pitch, -math32.Pi/2+0.05, math32.Pi/2-0.05)
	o.zoom = mgl32.Clamp(o.zoom*(1+o.zoomVel*o.Damping), o.MinZoom, o.MaxZoom)

	keep := 1 - o.Damping
	o.yawVel *= keep
	o.pitchVel *= keep
	o.zoomVel *= keep
}

// Apply returns pos rotated around the target by the accumulated orbit and
// scaled by the zoom factor.
func (o *Orbit) Apply(pos mgl32.Vec3) mgl32.Vec3 {
	off := pos.Sub(o.Target)
	q := mgl32.QuatRotate(o.yaw, mgl32.Vec3{0, 1, 0})
	off = q.Rotate(off)

	right := mgl32.Vec3{0, 1, 0}.Cross(off)
	if right.Len() > 1e-6 {
		off = mgl32.QuatRotate(o.pitch, right.Normalize()).Rotate(off)
	}
	return o.Target.Add(off.Mul(o.zoom))
}
