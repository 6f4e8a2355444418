package interact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iburimskiy/bodo-installation/internal/assets"
	"github.com/iburimskiy/bodo-installation/internal/controls"
	"github.com/iburimskiy/bodo-installation/internal/device"
	"github.com/iburimskiy/bodo-installation/internal/scene"
)

const viewport = 400

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type write struct {
	name  string
	value float64
}

type recorder struct {
	writes []write
	err    error
}

func (r *recorder) SetParameter(name string, value float64) error {
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, write{name, value})
	return nil
}

func (r *recorder) last() write {
	if len(r.writes) == 0 {
		return write{}
	}
	return r.writes[len(r.writes)-1]
}

func plate(name string) *scene.Node {
	return scene.NewMeshNode(name, &scene.Mesh{Positions: []mgl32.Vec3{{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {0, 0.5, 0}}})
}

func at(n *scene.Node, pos mgl32.Vec3) *scene.Node {
	root := scene.NewNode("")
	root.Position = pos
	root.Add(n)
	return root
}

type fixture struct {
	registry *assets.Registry
	camera   *scene.Camera
	params   *recorder
	layer    *Layer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := assets.NewRegistry(assets.DefaultCatalog(), assets.Options{Layer: 1, SliderMin: -1, SliderMax: 0}, discard())
	r.Publish(assets.Loaded{Name: "b3", Model: at(plate("cap"), mgl32.Vec3{-3, 0, 0})})
	slider := at(plate("track"), mgl32.Vec3{0, -3, 0})
	slider.Add(plate("thumb2"))
	slider.Children[1].Position = mgl32.Vec3{0, 3, 0}
	r.Publish(assets.Loaded{Name: "s2", Model: slider})
	r.Publish(assets.Loaded{Name: "ghost", Model: at(plate("body"), mgl32.Vec3{3, 0, 0})})
	require.Equal(t, 3, r.ReadyCount())

	cam := scene.NewCamera(75, 1)
	cam.Position = mgl32.Vec3{0, 0, 10}
	cam.LookAt(mgl32.Vec3{})

	params := &recorder{}
	l := New(r, cam, params, Options{Layer: 1, DragScale: 1.0 / 100, GhostMin: -2, GhostMax: 2}, discard())
	l.SetViewport(viewport, viewport)
	return &fixture{registry: r, camera: cam, params: params, layer: l}
}

// pixel returns the window position of world point p.
func (f *fixture) pixel(p mgl32.Vec3) (int, int) {
	ndc, _ := f.camera.Project(f.camera.ViewProjection(), p)
	x := (ndc.X() + 1) / 2 * viewport
	y := (1 - ndc.Y()) / 2 * viewport
	return int(math.Round(float64(x))), int(math.Round(float64(y)))
}

func TestClickTogglesB3(t *testing.T) {
	f := newFixture(t)
	b3, _ := f.registry.Toggle("b3")
	assert.False(t, b3.Toggled())
	assert.Equal(t, controls.PaletteB.Inactive, b3.Color())

	x, y := f.pixel(mgl32.Vec3{-3, 0, 0})
	require.True(t, f.layer.PointerDown(x, y))
	f.layer.PointerUp()

	assert.True(t, b3.Toggled())
	assert.Equal(t, controls.PaletteB.Active, b3.Color())
	assert.Equal(t, write{"b3", 1}, f.params.last())
	assert.False(t, f.layer.Dragging())

	f.layer.PointerDown(x, y)
	assert.False(t, b3.Toggled())
	assert.Equal(t, controls.PaletteB.Inactive, b3.Color())
	assert.Equal(t, write{"b3", 0}, f.params.last())
}

func TestDragSliderS2(t *testing.T) {
	f := newFixture(t)
	s2, _ := f.registry.Slider("s2")
	require.Equal(t, float32(0), s2.Position())

	x, y := f.pixel(mgl32.Vec3{0, 0, 0})
	require.True(t, f.layer.PointerDown(x, y))
	require.True(t, f.layer.Dragging())
	assert.Empty(t, f.params.writes)

	// 50px up: 0 + 0.5 clamps back to 0
	f.layer.PointerMove(x, y-50)
	assert.Equal(t, float32(0), s2.Position())
	assert.Equal(t, "s2", f.params.last().name)
	assert.Zero(t, f.params.last().value)

	f.layer.PointerMove(x, y+50)
	assert.InDelta(t, -0.5, s2.Position(), 1e-6)
	assert.InDelta(t, 0.5, f.params.last().value, 1e-6)

	f.layer.PointerMove(x, y+500)
	assert.Equal(t, float32(-1), s2.Position())
	assert.Equal(t, write{"s2", 1}, f.params.last())

	for _, w := range f.params.writes {
		assert.GreaterOrEqual(t, w.value, 0.0)
		assert.LessOrEqual(t, w.value, 1.0)
	}

	f.layer.PointerUp()
	n := len(f.params.writes)
	f.layer.PointerMove(x, y)
	assert.Len(t, f.params.writes, n)
	assert.False(t, f.layer.Dragging())
}

func TestDragGhost(t *testing.T) {
	f := newFixture(t)
	g, _ := f.registry.Ghost()
	require.Equal(t, float32(1), g.Height())

	x, y := f.pixel(mgl32.Vec3{3, 1, 0})
	require.True(t, f.layer.PointerDown(x, y))
	assert.True(t, g.Active)

	f.layer.PointerMove(x, y+100)
	assert.InDelta(t, 0, g.Height(), 1e-6)
	assert.Equal(t, GhostParam, f.params.last().name)
	assert.InDelta(t, 0.5, f.params.last().value, 1e-6)

	f.layer.PointerMove(x, y-1000)
	assert.Equal(t, float32(2), g.Height())
	assert.InDelta(t, 1, f.params.last().value, 1e-6)

	f.layer.PointerMove(x, y+1000)
	assert.Equal(t, float32(-2), g.Height())
	assert.InDelta(t, 0, f.params.last().value, 1e-6)

	f.layer.PointerUp()
	assert.False(t, g.Active)
}

func TestTogglesWinOverNearerObjects(t *testing.T) {
	f := newFixture(t)
	behind := at(plate("cap"), mgl32.Vec3{3, 1, -2})
	behind.Scale = mgl32.Vec3{6, 6, 6}
	f.registry.Publish(assets.Loaded{Name: "p1", Model: behind})

	x, y := f.pixel(mgl32.Vec3{3, 1, 0})
	require.True(t, f.layer.PointerDown(x, y))

	p1, _ := f.registry.Toggle("p1")
	g, _ := f.registry.Ghost()
	assert.True(t, p1.Toggled())
	assert.False(t, f.layer.Dragging())
	assert.False(t, g.Active)
}

func TestMissIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.layer.PointerDown(0, 0))
	f.layer.PointerMove(0, 100)
	f.layer.PointerUp()
	assert.Empty(t, f.params.writes)
}

func TestBackgroundLayerIsNotPickable(t *testing.T) {
	f := newFixture(t)
	// a set piece in front of b3 stays on the default layer
	f.registry.Publish(assets.Loaded{Name: "bodo", Model: at(plate("hull"), mgl32.Vec3{-3, 0, 2})})

	x, y := f.pixel(mgl32.Vec3{-3, 0, 0})
	require.True(t, f.layer.PointerDown(x, y))
	b3, _ := f.registry.Toggle("b3")
	assert.True(t, b3.Toggled())
}

func TestDisconnectedWritesAreSkipped(t *testing.T) {
	f := newFixture(t)
	bridge := device.NewBridge(device.Options{}, nil, discard())
	f.layer.params = bridge

	x, y := f.pixel(mgl32.Vec3{-3, 0, 0})
	assert.NotPanics(t, func() { f.layer.PointerDown(x, y) })
	b3, _ := f.registry.Toggle("b3")
	assert.True(t, b3.Toggled())

	f.params.err = errors.New("socket closed")
	f.layer.params = f.params
	f.layer.PointerDown(x, y)
	assert.False(t, b3.Toggled())
	assert.Empty(t, f.params.writes)
}

func TestUnknownParameterIsReportedOnce(t *testing.T) {
	f := newFixture(t)
	var logs bytes.Buffer
	f.layer.logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.params.err = fmt.Errorf("%w: s2", device.ErrUnknownParameter)

	x, y := f.pixel(mgl32.Vec3{0, 0, 0})
	require.True(t, f.layer.PointerDown(x, y))
	for dy := 10; dy <= 100; dy += 10 {
		f.layer.PointerMove(x, y+dy)
	}
	f.layer.PointerUp()

	s2, _ := f.registry.Slider("s2")
	assert.InDelta(t, -1, s2.Position(), 1e-6)
	assert.Equal(t, 1, strings.Count(logs.String(), "param=s2"))
	assert.NotContains(t, logs.String(), "level=WARN")
}
