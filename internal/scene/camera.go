package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera looking at Target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FOV      float32 // vertical, degrees
	Aspect   float32
	Near     float32
	Far      float32

	// Layers lists what the camera renders.
	Layers Layers
}

// NewCamera returns a camera with the installation's lens settings.
func NewCamera(fov, aspect float32) *Camera {
	c := &Camera{
		Position: mgl32.Vec3{0, 5, 5},
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      fov,
		Aspect:   aspect,
		Near:     0.1,
		Far:      1000,
		Layers:   LayerMask(0),
	}
	return c
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target mgl32.Vec3) { c.Target = target }

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the camera-to-clip matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// Direction is the unit vector from the camera toward its target.
func (c *Camera) Direction() mgl32.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// Ray returns the world ray through normalized device coordinates (x, y),
// both in [-1,1] with y pointing up.
func (c *Camera) Ray(ndcX, ndcY float32) Ray {
	inv := c.ViewProjection().Inv()
	near := unproject(inv, ndcX, ndcY, -1)
	far := unproject(inv, ndcX, ndcY, 1)
	return Ray{Origin: near, Dir: far.Sub(near).Normalize()}
}

// Project maps a world point to NDC; depth is the clip-space w, negative
// behind the camera.
func (c *Camera) Project(vp mgl32.Mat4, p mgl32.Vec3) (ndc mgl32.Vec3, depth float32) {
	v := vp.Mul4x1(p.Vec4(1))
	if v.W() == 0 {
		return mgl32.Vec3{}, 0
	}
	return v.Vec3().Mul(1 / v.W()), v.W()
}

func unproject(inv mgl32.Mat4, x, y, z float32) mgl32.Vec3 {
	v := inv.Mul4x1(mgl32.Vec4{x, y, z, 1})
	return v.Vec3().Mul(1 / v.W())
}

// ToNDC converts a pointer position in pixels to normalized device coordinates.
func ToNDC(px, py, width, height int) (x, y float32) {
	x = float32(px)/float32(width)*2 - 1
	y = -float32(py)/float32(height)*2 + 1
	return x, y
}
