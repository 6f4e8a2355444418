package controls

import (
	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// Ghost is the translucent fresnel-shaded object. Its opacity follows the
// device, its height follows a drag and its X/Z drift with time.
type Ghost struct {
	Model    *scene.Node
	Uniforms *scene.FresnelUniforms
	Mixer    *scene.Mixer

	// Active pushes the camera back while set.
	Active bool
}

// NewGhost gives every mesh a shared fresnel material on the interactive
// layer, lifts the model to y=1 and loops the first clip, if any.
func NewGhost(model *scene.Node, clips []scene.Clip, layer int) *Ghost {
	g := &Ghost{
		Model:    model,
		Uniforms: scene.DefaultFresnel(),
		Mixer:    scene.NewMixer(),
	}
	model.Visible = true
	model.Meshes(func(n *scene.Node) {
		n.Layers.Set(layer)
		n.Material = &scene.Material{
			Kind:       scene.MaterialFresnel,
			Opacity:    1,
			DoubleSide: true,
			Additive:   true,
			Fresnel:    g.Uniforms,
		}
	})
	model.Position[1] = 1
	if len(clips) > 0 {
		a := g.Mixer.ClipAction(clips[0])
		a.Loop = scene.LoopRepeat
		a.Play()
	}
	return g
}

// Height returns the model's Y coordinate.
func (g *Ghost) Height() float32 { return g.Model.Position.Y() }

// SetHeight moves the model along Y.
func (g *Ghost) SetHeight(y float32) { g.Model.Position[1] = y }

// SetOpacity writes the opacity uniform unchecked.
func (g *Ghost) SetOpacity(v float32) { g.Uniforms.Opacity = v }

// Grabbed reports whether n belongs to the ghost model.
func (g *Ghost) Grabbed(n *scene.Node) bool { return g.Model.Contains(n) }
