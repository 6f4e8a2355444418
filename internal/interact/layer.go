// Package interact turns pointer input into control changes and mirrors
// each change into the matching device parameter.
package interact

import (
	"errors"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/iburimskiy/bodo-installation/internal/assets"
	"github.com/iburimskiy/bodo-installation/internal/controls"
	"github.com/iburimskiy/bodo-installation/internal/device"
	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// GhostParam is the device parameter following the ghost's height.
const GhostParam = assets.GhostAsset

// ParamWriter receives parameter writes. Writes before the device is
// connected fail with device.ErrNotConnected and are dropped silently.
type ParamWriter interface {
	SetParameter(name string, value float64) error
}

// Options tune picking and dragging.
type Options struct {
	// Layer is the picking layer of interactive meshes.
	Layer int
	// DragScale converts pointer pixels to scene units.
	DragScale float32
	GhostMin  float32
	GhostMax  float32
}

type dragState struct {
	slider *controls.SliderControl
	ghost  *controls.Ghost
	startY int
	start  float32
}

// Layer is the interaction layer. Call it from the frame goroutine only.
type Layer struct {
	registry *assets.Registry
	camera   *scene.Camera
	params   ParamWriter
	opts     Options
	logger   *slog.Logger

	width, height int
	drag          *dragState

	// parameters the device does not know, reported once each
	unknown map[string]bool
}

// New returns an interaction layer picking against registry's controls.
func New(registry *assets.Registry, camera *scene.Camera, params ParamWriter, opts Options, logger *slog.Logger) *Layer {
	return &Layer{
		registry: registry,
		camera:   camera,
		params:   params,
		opts:     opts,
		logger:   logger,
		width:    1,
		height:   1,
		unknown:  map[string]bool{},
	}
}

// SetViewport sets the pixel size pointer coordinates refer to.
func (l *Layer) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		l.width, l.height = width, height
	}
}

// Dragging reports whether a slider or the ghost is held.
func (l *Layer) Dragging() bool { return l.drag != nil }

// PointerDown picks the control under the pointer: a toggle flips at once,
// a slider thumb or the ghost starts a drag. It reports whether anything
// was hit.
func (l *Layer) PointerDown(px, py int) bool {
	l.drag = nil
	rc := l.raycaster(px, py)

	if t, ok := l.pickToggle(rc); ok {
		active := t.Toggle()
		l.logger.Debug("toggle clicked", "control", t.Name, "active", active)
		v := 0.0
		if active {
			v = 1
		}
		l.write(t.Name, v)
		return true
	}
	if s, ok := l.pickSlider(rc); ok {
		l.drag = &dragState{slider: s, startY: py, start: s.Position()}
		return true
	}
	if g, ok := l.pickGhost(rc); ok {
		l.drag = &dragState{ghost: g, startY: py, start: g.Height()}
		g.Active = true
		return true
	}
	return false
}

// PointerMove updates the held control.
func (l *Layer) PointerMove(px, py int) {
	d := l.drag
	if d == nil {
		return
	}
	delta := float32(d.startY-py) * l.opts.DragScale
	switch {
	case d.slider != nil:
		z := d.slider.Slide(d.start + delta)
		l.write(d.slider.Name, float64(-z))
	case d.ghost != nil:
		y := mgl32.Clamp(d.start+delta, l.opts.GhostMin, l.opts.GhostMax)
		d.ghost.SetHeight(y)
		l.write(GhostParam, float64(l.normalizeGhost(y)))
	}
}

// PointerUp releases any drag.
func (l *Layer) PointerUp() {
	if l.drag != nil && l.drag.ghost != nil {
		l.drag.ghost.Active = false
	}
	l.drag = nil
}

// normalizeGhost maps a height in [GhostMin, GhostMax] to [0,1].
func (l *Layer) normalizeGhost(y float32) float32 {
	span := l.opts.GhostMax - l.opts.GhostMin
	if span <= 0 {
		return 0
	}
	return (y - l.opts.GhostMin) / span
}

func (l *Layer) raycaster(px, py int) *scene.Raycaster {
	x, y := scene.ToNDC(px, py, l.width, l.height)
	rc := scene.NewRaycaster(l.camera.Ray(x, y))
	rc.Layers = scene.LayerMask(l.opts.Layer)
	return rc
}

func (l *Layer) pickToggle(rc *scene.Raycaster) (*controls.ToggleControl, bool) {
	toggles := l.registry.Toggles()
	roots := make([]*scene.Node, len(toggles))
	for i, t := range toggles {
		roots[i] = t.Model
	}
	hit, ok := rc.First(roots...)
	if !ok {
		return nil, false
	}
	for _, t := range toggles {
		if t.Model.Contains(hit.Node) {
			return t, true
		}
	}
	return nil, false
}

func (l *Layer) pickSlider(rc *scene.Raycaster) (*controls.SliderControl, bool) {
	sliders := l.registry.Sliders()
	var thumbs []*scene.Node
	for _, s := range sliders {
		if s.Thumb != nil {
			thumbs = append(thumbs, s.Thumb)
		}
	}
	hit, ok := rc.First(thumbs...)
	if !ok {
		return nil, false
	}
	for _, s := range sliders {
		if s.Grabbed(hit.Node) {
			return s, true
		}
	}
	return nil, false
}

func (l *Layer) pickGhost(rc *scene.Raycaster) (*controls.Ghost, bool) {
	g, ok := l.registry.Ghost()
	if !ok {
		return nil, false
	}
	hit, ok := rc.First(g.Model)
	if !ok || !g.Grabbed(hit.Node) {
		return nil, false
	}
	return g, true
}

func (l *Layer) write(name string, v float64) {
	if l.params == nil {
		return
	}
	err := l.params.SetParameter(name, v)
	switch {
	case err == nil:
	case errors.Is(err, device.ErrNotConnected):
	case errors.Is(err, device.ErrUnknownParameter):
		if !l.unknown[name] {
			l.unknown[name] = true
			l.logger.Debug("device has no such parameter", "param", name)
		}
	default:
		l.logger.Warn("parameter write failed", "param", name, "value", v, "error", err)
	}
}
