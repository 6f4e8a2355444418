package controls

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// SliderControl is a track model with a draggable thumb moving along Z.
type SliderControl struct {
	Name  string
	Model *scene.Node
	Thumb *scene.Node // nil when the model has no thumb sub-object
	Min   float32
	Max   float32
}

// ThumbName maps a slider name to its thumb node name ("s4" -> "thumb4").
func ThumbName(slider string) string {
	if len(slider) > 0 && slider[0] == 's' {
		return "thumb" + slider[1:]
	}
	return "thumb" + slider
}

// NewSlider colors the track and thumb, moves every mesh to the interactive
// layer and parks the thumb at zero.
func NewSlider(name string, model *scene.Node, lo, hi float32, layer int) *SliderControl {
	s := &SliderControl{Name: name, Model: model, Min: lo, Max: hi}
	thumbName := ThumbName(name)
	model.Meshes(func(n *scene.Node) {
		n.Layers.Set(layer)
		if n.Name == thumbName {
			n.Material = &scene.Material{Kind: scene.MaterialBasic, Color: SliderColor, Opacity: 1}
			return
		}
		n.Material = &scene.Material{
			Kind:      scene.MaterialStandard,
			Color:     SliderColor,
			Opacity:   1,
			Metalness: 0.5,
			Roughness: 0.5,
		}
	})
	s.Thumb = model.FindByName(thumbName)
	if s.Thumb != nil {
		s.Thumb.Position[2] = 0
	}
	return s
}

// Position returns the thumb coordinate.
func (s *SliderControl) Position() float32 {
	if s.Thumb == nil {
		return 0
	}
	return s.Thumb.Position.Z()
}

// Clamp limits z to the slider range.
func (s *SliderControl) Clamp(z float32) float32 {
	return mgl32.Clamp(z, s.Min, s.Max)
}

// Slide clamps z into range, moves the thumb and returns the applied value.
func (s *SliderControl) Slide(z float32) float32 {
	z = s.Clamp(z)
	s.SetPosition(z)
	return z
}

// SetPosition moves the thumb without range checks.
func (s *SliderControl) SetPosition(z float32) {
	if s.Thumb == nil {
		return
	}
	s.Thumb.Position[2] = z
}

// Grabbed reports whether n is the thumb or part of it.
func (s *SliderControl) Grabbed(n *scene.Node) bool {
	return s.Thumb != nil && s.Thumb.Contains(n)
}
