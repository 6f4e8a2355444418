package controls

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iburimskiy/bodo-installation/internal/scene"
)

func tri() *scene.Mesh {
	return &scene.Mesh{Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
}

func buttonModel(name string) *scene.Node {
	root := scene.NewNode(name)
	root.Add(scene.NewMeshNode(name+"_cap", tri()))
	root.Add(scene.NewMeshNode(name+"_base", tri()))
	return root
}

func TestToggleActivateThenDeactivateRestoresColor(t *testing.T) {
	for _, name := range []string{"b1", "b8", "p1", "p5"} {
		tg := NewToggle(name, buttonModel(name), []scene.Clip{{Duration: 1}}, PaletteFor(name), 1)
		original := tg.Color()

		require.True(t, tg.Toggle(), name)
		assert.Equal(t, PaletteFor(name).Active, tg.Color(), name)

		require.False(t, tg.Toggle(), name)
		assert.Equal(t, original, tg.Color(), name)
		assert.False(t, tg.Toggled(), name)
	}
}

func TestToggleB3Scenario(t *testing.T) {
	tg := NewToggle("b3", buttonModel("b3"), []scene.Clip{{Duration: 0.5}}, PaletteB, 1)
	assert.False(t, tg.Toggled())
	assert.Equal(t, scene.Hex(0x462cab), tg.Color())

	tg.Toggle()
	assert.True(t, tg.Toggled())
	assert.Equal(t, scene.Hex(0x4cc9f0), tg.Color())
	assert.Equal(t, 1, tg.Action.Direction())
	assert.True(t, tg.Action.Running())
	assert.Equal(t, float32(0), tg.Action.Time)
}

func TestToggleDeactivationPlaysReverseFromEnd(t *testing.T) {
	tg := NewToggle("b2", buttonModel("b2"), []scene.Clip{{Duration: 0.8}}, PaletteB, 1)
	tg.Toggle()
	tg.Mixer.Update(0.1)

	// Restarting mid-flight is allowed.
	tg.Toggle()
	assert.Equal(t, -1, tg.Action.Direction())
	assert.InDelta(t, 0.8, tg.Action.Time, 1e-6)
	assert.True(t, tg.Action.Running())
}

func TestToggleMeshesMoveToInteractiveLayer(t *testing.T) {
	tg := NewToggle("p2", buttonModel("p2"), nil, PaletteP, 1)
	tg.Model.Meshes(func(n *scene.Node) {
		assert.True(t, n.Layers.Test(scene.LayerMask(1)))
		assert.False(t, n.Layers.Test(scene.LayerMask(0)))
	})
	assert.Nil(t, tg.Action)
	tg.Toggle() // no clip: recolor only
	assert.Equal(t, PaletteP.Active, tg.Color())
}

func TestToggleSetActive(t *testing.T) {
	tg := NewToggle("p4", buttonModel("p4"), nil, PaletteP, 1)
	tg.SetActive(true)
	assert.True(t, tg.Toggled())
	assert.Equal(t, PaletteP.Active, tg.Color())
	tg.SetActive(false)
	assert.Equal(t, PaletteP.Inactive, tg.Color())
}

func TestPaletteFor(t *testing.T) {
	assert.Equal(t, PaletteP, PaletteFor("p3"))
	assert.Equal(t, PaletteB, PaletteFor("b3"))
	assert.NotEqual(t, PaletteB.Inactive, PaletteP.Inactive)
}

func sliderModel(name string) *scene.Node {
	root := scene.NewNode(name)
	track := root.Add(scene.NewMeshNode("track", tri()))
	track.Add(scene.NewMeshNode(ThumbName(name), tri()))
	return root
}

func TestNewSliderFindsThumb(t *testing.T) {
	s := NewSlider("s2", sliderModel("s2"), -1, 0, 1)
	require.NotNil(t, s.Thumb)
	assert.Equal(t, "thumb2", s.Thumb.Name)
	assert.Equal(t, float32(0), s.Position())
	assert.Equal(t, scene.MaterialBasic, s.Thumb.Material.Kind)
	assert.Equal(t, SliderColor, s.Thumb.Material.Color)
	assert.True(t, s.Grabbed(s.Thumb))
	assert.False(t, s.Grabbed(s.Model))
}

func TestSliderSlideClamps(t *testing.T) {
	s := NewSlider("s5", sliderModel("s5"), -1, 0, 1)
	assert.Equal(t, float32(0), s.Slide(0.5))
	assert.Equal(t, float32(-1), s.Slide(-3))
	assert.Equal(t, float32(-0.25), s.Slide(-0.25))
	assert.Equal(t, float32(-0.25), s.Position())

	s.SetPosition(-7)
	assert.Equal(t, float32(-7), s.Position())
}

func TestSliderWithoutThumb(t *testing.T) {
	s := NewSlider("s9", scene.NewNode("s9"), -1, 0, 1)
	assert.Nil(t, s.Thumb)
	assert.Equal(t, float32(-0.5), s.Slide(-0.5))
	assert.Equal(t, float32(0), s.Position())
	assert.False(t, s.Grabbed(s.Model))
}

func TestThumbName(t *testing.T) {
	assert.Equal(t, "thumb1", ThumbName("s1"))
	assert.Equal(t, "thumb9", ThumbName("s9"))
	assert.Equal(t, "thumbx", ThumbName("x"))
}

func TestSelectionSetHighlightsExactlyOne(t *testing.T) {
	set := NewSelectionSet(8)
	for i := 1; i <= 8; i++ {
		require.True(t, set.Put(i, scene.NewMeshNode("box", tri())))
	}
	assert.False(t, set.Put(9, scene.NewMeshNode("box9", tri())))

	set.Select(3)
	set.Select(5)
	assert.Equal(t, 5, set.Selected())
	for i := 1; i <= 8; i++ {
		n, ok := set.Entry(i)
		require.True(t, ok)
		if i == 5 {
			assert.Equal(t, SelectionHighlight, n.Material.Color)
		} else {
			assert.Equal(t, SelectionBase, n.Material.Color, "entry %d", i)
		}
	}

	for _, k := range []int{0, 9, -1} {
		set.Select(k)
		assert.Equal(t, 0, set.Selected())
		for i := 1; i <= 8; i++ {
			n, _ := set.Entry(i)
			assert.Equal(t, SelectionBase, n.Material.Color)
		}
	}
}

func TestSelectionSetToleratesMissingEntries(t *testing.T) {
	set := NewSelectionSet(8)
	set.Put(2, scene.NewMeshNode("box2", tri()))
	set.Select(4)
	assert.Equal(t, 0, set.Selected())
	set.Select(2)
	assert.Equal(t, 2, set.Selected())
	assert.Equal(t, 1, set.Len())
}

func TestGhostSetup(t *testing.T) {
	model := scene.NewNode("ghost")
	body := model.Add(scene.NewMeshNode("body", tri()))
	g := NewGhost(model, []scene.Clip{{Duration: 2}}, 1)

	assert.Equal(t, float32(1), g.Height())
	assert.Equal(t, scene.MaterialFresnel, body.Material.Kind)
	assert.Same(t, g.Uniforms, body.Material.Fresnel)
	assert.InDelta(t, 0.8, g.Uniforms.Opacity, 1e-6)
	assert.True(t, g.Mixer.Actions()[0].Running())
	assert.True(t, g.Grabbed(body))

	g.SetOpacity(0.3)
	assert.InDelta(t, 0.3, body.Material.Fresnel.Opacity, 1e-6)
}
