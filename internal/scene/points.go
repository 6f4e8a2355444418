package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Points is a particle cloud drawn as small dots, used for the ground.
type Points struct {
	Position  mgl32.Vec3
	Particles []mgl32.Vec3
	Color     Color
	Opacity   float32
	Size      float32
}

// NewGroundGrid returns the vertices of a width x depth plane with the given
// number of segments per side, lying flat in the XZ plane at height y.
func NewGroundGrid(width, depth float32, segments int, y float32) *Points {
	n := segments + 1
	p := &Points{
		Position:  mgl32.Vec3{0, y, 0},
		Particles: make([]mgl32.Vec3, 0, n*n),
		Color:     White,
		Opacity:   0.6,
		Size:      0.01,
	}
	for iz := 0; iz < n; iz++ {
		z := -depth/2 + depth*float32(iz)/float32(segments)
		for ix := 0; ix < n; ix++ {
			x := -width/2 + width*float32(ix)/float32(segments)
			p.Particles = append(p.Particles, mgl32.Vec3{x, 0, z})
		}
	}
	return p
}

// Wave sets every particle's height to sin(x*frequency + elapsed)*amplitude.
func (p *Points) Wave(elapsed, frequency, amplitude float32) {
	for i := range p.Particles {
		x := p.Particles[i][0]
		p.Particles[i][1] = math32.Sin(x*frequency+elapsed) * amplitude
	}
}
