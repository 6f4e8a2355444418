// Package frame advances the scene by one display refresh.
package frame

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/iburimskiy/bodo-installation/internal/assets"
	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// Path is the camera's opening move plus the ground wave settings.
type Path struct {
	Start      mgl32.Vec3
	Final      mgl32.Vec3
	Transition float32 // seconds
	GhostPush  float32

	WaveFrequency float32
	WaveAmplitude float32
}

// Loop owns the clock of the scene.
type Loop struct {
	camera   *scene.Camera
	orbit    *scene.Orbit
	registry *assets.Registry
	floor    *scene.Points
	path     Path

	elapsed float32
}

// New returns a loop at time zero.
func New(camera *scene.Camera, orbit *scene.Orbit, registry *assets.Registry, floor *scene.Points, path Path) *Loop {
	return &Loop{camera: camera, orbit: orbit, registry: registry, floor: floor, path: path}
}

// Elapsed returns the seconds since the first tick.
func (l *Loop) Elapsed() float32 { return l.elapsed }

// Tick advances everything by dt seconds. It never fails.
func (l *Loop) Tick(dt float32) {
	l.elapsed += dt
	t := l.elapsed

	pos := l.BasePosition(t).Add(Sway(t))
	l.orbit.Update()
	pos = l.orbit.Apply(pos)
	if g, ok := l.registry.Ghost(); ok && g.Active {
		pos = pos.Add(pos.Sub(l.orbit.Target).Normalize().Mul(l.path.GhostPush))
	}
	l.camera.Position = pos
	l.camera.LookAt(l.orbit.Target)

	for _, m := range l.registry.Mixers() {
		m.Update(dt)
	}

	if g, ok := l.registry.Ghost(); ok {
		g.Uniforms.Time = t
		g.Model.Position[0] = 0.7 * math32.Sin(t*0.3)
		g.Model.Position[2] = 0.9 * math32.Cos(t*0.3)
	}

	if l.floor != nil {
		l.floor.Wave(t, l.path.WaveFrequency, l.path.WaveAmplitude)
	}
}

// BasePosition is the eased point of the camera path at time t.
func (l *Loop) BasePosition(t float32) mgl32.Vec3 {
	p := float32(1)
	if l.path.Transition > 0 {
		p = mgl32.Clamp(t/l.path.Transition, 0, 1)
	}
	e := EaseInOutQuad(p)
	return l.path.Start.Add(l.path.Final.Sub(l.path.Start).Mul(e))
}

// Sway is the idle camera drift added on top of the path.
func Sway(t float32) mgl32.Vec3 {
	return mgl32.Vec3{
		1.06 * math32.Sin(t*0.12),
		0.96 * math32.Sin(t*0.15),
		1.1 * math32.Sin(t*0.19),
	}
}

// EaseInOutQuad accelerates through the first half and decelerates
// through the second.
func EaseInOutQuad(t float32) float32 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}
