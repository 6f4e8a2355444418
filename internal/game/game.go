// Package game hosts the installation in an ebiten window: it drains load
// and device events, routes input and renders every frame.
package game

import (
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/iburimskiy/bodo-installation/internal/assets"
	"github.com/iburimskiy/bodo-installation/internal/config"
	"github.com/iburimskiy/bodo-installation/internal/device"
	"github.com/iburimskiy/bodo-installation/internal/frame"
	"github.com/iburimskiy/bodo-installation/internal/interact"
	"github.com/iburimskiy/bodo-installation/internal/scene"
	"github.com/iburimskiy/bodo-installation/internal/statesync"
)

const (
	smoothingFactor = 0.6
	orbitDragPixels = 3
)

// Options wire a Game to its collaborators.
type Options struct {
	Config   config.Config
	Catalog  *assets.Catalog
	Registry *assets.Registry
	Loads    <-chan assets.Loaded
	Bridge   *device.Bridge
	Logger   *slog.Logger
}

// Game implements ebiten.Game. Every scene mutation happens in Update, on
// ebiten's game goroutine.
type Game struct {
	cfg      config.Config
	logger   *slog.Logger
	catalog  *assets.Catalog
	registry *assets.Registry
	loads    <-chan assets.Loaded
	bridge   *device.Bridge
	syncer   *statesync.Syncer
	input    *interact.Layer

	camera   *scene.Camera
	orbit    *scene.Orbit
	floor    *scene.Points
	loop     *frame.Loop
	renderer renderer
	bloom    bloom

	// input edge detection
	prevKey map[ebiten.Key]bool

	// pointer state
	resumed     bool
	orbiting    bool
	pressX      int
	pressY      int
	lastX       int
	lastY       int
	leftOnEmpty bool

	level         float64
	width, height int
}

// New builds the scene around registry.
func New(opts Options) *Game {
	cfg := opts.Config
	g := &Game{
		cfg:      cfg,
		logger:   opts.Logger,
		catalog:  opts.Catalog,
		registry: opts.Registry,
		loads:    opts.Loads,
		bridge:   opts.Bridge,
		prevKey:  map[ebiten.Key]bool{},
		width:    cfg.Window.Width,
		height:   cfg.Window.Height,
		bloom: bloom{
			strength:  cfg.Bloom.Strength,
			threshold: cfg.Bloom.Threshold,
			radius:    cfg.Bloom.Radius,
		},
	}

	g.camera = scene.NewCamera(cfg.Camera.FOV, float32(cfg.Window.Width)/float32(cfg.Window.Height))
	g.camera.Layers.Enable(config.InteractiveLayer)
	g.camera.Position = mgl32.Vec3(cfg.Camera.Start)
	g.orbit = scene.NewOrbit(mgl32.Vec3(cfg.Camera.Target))
	g.camera.LookAt(g.orbit.Target)

	g.floor = scene.NewGroundGrid(cfg.Floor.Width, cfg.Floor.Depth, cfg.Floor.Segments, cfg.Floor.Height)
	g.floor.Color = scene.Hex(0x882ee8)

	g.loop = frame.New(g.camera, g.orbit, g.registry, g.floor, frame.Path{
		Start:         mgl32.Vec3(cfg.Camera.Start),
		Final:         mgl32.Vec3(cfg.Camera.Final),
		Transition:    cfg.Camera.TransitionSec,
		GhostPush:     cfg.Camera.GhostPush,
		WaveFrequency: cfg.Floor.Frequency,
		WaveAmplitude: cfg.Floor.Amplitude,
	})

	g.syncer = statesync.NewSyncer(statesync.NewTranslator(g.catalog), g.registry, g.logger)
	g.input = interact.New(g.registry, g.camera, g.bridge, interact.Options{
		Layer:     config.InteractiveLayer,
		DragScale: cfg.Interaction.DragScale,
		GhostMin:  cfg.Interaction.GhostMin,
		GhostMax:  cfg.Interaction.GhostMax,
	}, g.logger)
	g.input.SetViewport(g.width, g.height)
	return g
}

func (g *Game) Update() error {
	justPressed := func(k ebiten.Key) bool {
		pressed := ebiten.IsKeyPressed(k)
		jp := pressed && !g.prevKey[k]
		g.prevKey[k] = pressed
		return jp
	}
	if justPressed(ebiten.KeyEscape) || justPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}

	g.drainLoads()
	g.drainDevice()
	g.handlePointer()

	g.loop.Tick(float32(1 / float64(ebiten.TPS())))

	g.level = smoothingFactor*g.level + (1-smoothingFactor)*g.bridge.Level()
	return nil
}

// drainLoads publishes every completed asset load without blocking.
func (g *Game) drainLoads() {
	for g.loads != nil {
		select {
		case ev, ok := <-g.loads:
			if !ok {
				g.loads = nil
				g.logger.Info("asset loading finished", "ready", g.registry.ReadyCount(), "requested", len(g.catalog.Names()))
				return
			}
			g.registry.Publish(ev)
		default:
			return
		}
	}
}

// drainDevice applies the device events that arrived since the last tick.
func (g *Game) drainDevice() {
	events := g.bridge.Events()
	for {
		select {
		case ev := <-events:
			g.syncer.Handle(ev)
		default:
			return
		}
	}
}

func (g *Game) handlePointer() {
	x, y := ebiten.CursorPosition()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if !g.resumed {
			g.bridge.Resume()
			g.resumed = true
		}
		g.leftOnEmpty = !g.input.PointerDown(x, y)
		g.pressX, g.pressY = x, y
		g.lastX, g.lastY = x, y
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		g.orbiting = true
		g.lastX, g.lastY = x, y
	}

	switch {
	case g.input.Dragging() && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		g.input.PointerMove(x, y)
	case g.orbiting && ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight),
		g.leftOnEmpty && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && g.movedSincePress(x, y):
		g.orbit.Drag(float32(x-g.lastX), float32(y-g.lastY))
	}
	g.lastX, g.lastY = x, y

	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.input.PointerUp()
		g.leftOnEmpty = false
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonRight) {
		g.orbiting = false
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		g.orbit.Wheel(float32(dy))
	}
}

func (g *Game) movedSincePress(x, y int) bool {
	dx, dy := x-g.pressX, y-g.pressY
	return dx*dx+dy*dy >= orbitDragPixels*orbitDragPixels
}

func (g *Game) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	target := g.bloom.target(w, h)
	target.Fill(color.Black)
	g.renderer.draw(target, g.camera, g.registry.Root(), g.floor)
	g.bloom.composite(screen)

	g.drawLevel(screen)
	ebitenutil.DebugPrintAt(screen, g.status(), 12, 12)
}

func (g *Game) status() string {
	state := "offline"
	switch {
	case !g.cfg.Device.Enabled:
		state = "disabled"
	case g.bridge.Connected() && !g.resumed:
		state = "connected - click to start audio"
	case g.bridge.Connected():
		state = "connected"
	}
	elapsed := time.Duration(float64(g.loop.Elapsed()) * float64(time.Second))
	return fmt.Sprintf("%02d:%02d | assets %d/%d | device %s | Esc/Q: Quit",
		int(elapsed.Minutes()), int(elapsed.Seconds())%60, g.registry.ReadyCount(), len(g.catalog.Names()), state)
}

// drawLevel shows the device output level as a small bar under the status.
func (g *Game) drawLevel(screen *ebiten.Image) {
	const x, y, w, h = 12, 32, 160, 6
	v := mgl32.Clamp(float32(g.level)*4, 0, 1)
	vector.DrawFilledRect(screen, x, y, w, h, color.RGBA{R: 20, G: 25, B: 35, A: 200}, false)
	vector.DrawFilledRect(screen, x, y, w*v, h, scene.HSV(260-200*v, 0.8, 0.9).NRGBA(1), false)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.camera.Aspect = float32(outsideWidth) / float32(outsideHeight)
		g.input.SetViewport(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}
