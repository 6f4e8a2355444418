package controls

import (
	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// ToggleControl is a clickable model with two audio-linked states and a
// one-shot press animation played forward on activation and backward on
// deactivation.
type ToggleControl struct {
	Name    string
	Model   *scene.Node
	Mixer   *scene.Mixer
	Action  *scene.Action // nil when the model carries no clip
	Palette Palette

	toggled bool
}

// NewToggle wires model as an inactive toggle: every mesh moves to layer and
// gets a basic material in the inactive color, and the first clip (if any)
// becomes a paused, clamped, play-once action.
func NewToggle(name string, model *scene.Node, clips []scene.Clip, palette Palette, layer int) *ToggleControl {
	t := &ToggleControl{
		Name:    name,
		Model:   model,
		Mixer:   scene.NewMixer(),
		Palette: palette,
	}
	model.Meshes(func(n *scene.Node) {
		n.Layers.Set(layer)
		n.Material = &scene.Material{Kind: scene.MaterialBasic, Color: palette.Inactive, Opacity: 1}
	})
	if len(clips) > 0 {
		t.Action = t.Mixer.ClipAction(clips[0])
		t.Action.Loop = scene.LoopOnce
		t.Action.ClampWhenFinished = true
		t.Action.Paused = true
	}
	return t
}

// Toggled reports the current state.
func (t *ToggleControl) Toggled() bool { return t.toggled }

// Toggle flips the state, restarts the press animation in the matching
// direction and recolors the model. It returns the new state.
func (t *ToggleControl) Toggle() bool {
	t.toggled = !t.toggled
	t.play(t.toggled)
	t.recolor()
	return t.toggled
}

// SetActive applies a state decided elsewhere (the audio device). Only the
// color and state follow; the press animation is left alone.
func (t *ToggleControl) SetActive(active bool) {
	t.toggled = active
	t.recolor()
}

// Color returns the color of the first mesh of the model.
func (t *ToggleControl) Color() scene.Color {
	var c scene.Color
	found := false
	t.Model.Meshes(func(n *scene.Node) {
		if !found && n.Material != nil {
			c = n.Material.Color
			found = true
		}
	})
	return c
}

func (t *ToggleControl) recolor() {
	t.Model.SetColor(t.Palette.Color(t.toggled))
}

func (t *ToggleControl) play(forward bool) {
	a := t.Action
	if a == nil {
		return
	}
	if forward {
		a.TimeScale = 1
		a.Reset()
	} else {
		a.TimeScale = -1
		a.Time = a.Clip.Duration
	}
	a.Play()
}
