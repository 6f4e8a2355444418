package assets

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/iburimskiy/bodo-installation/internal/controls"
	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// Registry owns every loaded model and the controls built from them.
// It is filled once per name from Loaded events and never shrinks.
//
// Registry is not safe for concurrent use: publish events from the same
// goroutine that reads it (the frame loop).
type Registry struct {
	catalog   *Catalog
	layer     int
	sliderMin float32
	sliderMax float32
	logger    *slog.Logger

	root      *scene.Node
	toggles   map[string]*controls.ToggleControl
	sliders   map[string]*controls.SliderControl
	ghost     *controls.Ghost
	selection *controls.SelectionSet
	extra     *scene.Node
	pieces    map[string]*scene.Node
	mixers    []*scene.Mixer

	ready  map[string]bool
	failed map[string]error
}

// Options configure the controls the registry builds.
type Options struct {
	Layer     int
	SliderMin float32
	SliderMax float32
}

// NewRegistry returns an empty registry for catalog.
func NewRegistry(catalog *Catalog, opts Options, logger *slog.Logger) *Registry {
	return &Registry{
		catalog:   catalog,
		layer:     opts.Layer,
		sliderMin: opts.SliderMin,
		sliderMax: opts.SliderMax,
		logger:    logger,
		root:      scene.NewNode("scene"),
		toggles:   map[string]*controls.ToggleControl{},
		sliders:   map[string]*controls.SliderControl{},
		selection: controls.NewSelectionSet(SelectionSize),
		pieces:    map[string]*scene.Node{},
		ready:     map[string]bool{},
		failed:    map[string]error{},
	}
}

// Publish builds the entity for one completed load. Failed loads are logged
// and remembered; the feature stays absent for the session.
func (r *Registry) Publish(ev Loaded) {
	if r.ready[ev.Name] {
		r.logger.Warn("asset already registered", "asset", ev.Name)
		return
	}
	if ev.Err != nil {
		r.failed[ev.Name] = ev.Err
		r.logger.Error("asset load failed", "asset", ev.Name, "error", ev.Err)
		return
	}
	if err := r.build(ev); err != nil {
		r.failed[ev.Name] = err
		r.logger.Error("asset rejected", "asset", ev.Name, "error", err)
		return
	}
	r.ready[ev.Name] = true
	r.root.Add(ev.Model)
	r.logger.Info("asset loaded", "asset", ev.Name)
}

func (r *Registry) build(ev Loaded) error {
	kind, err := r.catalog.Kind(ev.Name)
	if err != nil {
		return err
	}
	if ev.Model == nil {
		return fmt.Errorf("%s: no model", ev.Name)
	}
	ev.Model.Name = ev.Name

	switch kind {
	case KindToggle:
		t := controls.NewToggle(ev.Name, ev.Model, ev.Clips, controls.PaletteFor(ev.Name), r.layer)
		r.toggles[ev.Name] = t
		r.mixers = append(r.mixers, t.Mixer)
	case KindSlider:
		s := controls.NewSlider(ev.Name, ev.Model, r.sliderMin, r.sliderMax, r.layer)
		if s.Thumb == nil {
			r.logger.Warn("slider has no thumb", "asset", ev.Name, "thumb", controls.ThumbName(ev.Name))
		}
		r.sliders[ev.Name] = s
	case KindGhost:
		r.ghost = controls.NewGhost(ev.Model, ev.Clips, r.layer)
		r.mixers = append(r.mixers, r.ghost.Mixer)
	case KindSelection:
		r.buildSelection(ev.Model)
	case KindSetPiece:
		dressSetPiece(ev.Model, scene.MaterialLambert, scene.Hex(0x9a63ff), 0.5)
		r.pieces[ev.Name] = ev.Model
	case KindAnimatedSetPiece:
		dressSetPiece(ev.Model, scene.MaterialStandard, scene.Hex(0x301869), 1)
		m := scene.NewMixer()
		for _, c := range ev.Clips {
			a := m.ClipAction(c)
			a.ClampWhenFinished = true
			a.Play()
		}
		r.mixers = append(r.mixers, m)
		r.pieces[ev.Name] = ev.Model
	default:
		return fmt.Errorf("%s: unhandled kind %v", ev.Name, kind)
	}
	return nil
}

func (r *Registry) buildSelection(model *scene.Node) {
	model.Meshes(func(n *scene.Node) {
		if !strings.HasPrefix(n.Name, SelectionAsset) {
			r.extra = n
			n.Material = &scene.Material{
				Kind:      scene.MaterialStandard,
				Color:     controls.SelectionBase,
				Opacity:   1,
				Metalness: 0.8,
				Roughness: 0.3,
			}
			return
		}
		i, err := strconv.Atoi(strings.TrimPrefix(n.Name, SelectionAsset))
		if err != nil {
			return
		}
		if !r.selection.Put(i, n) {
			r.logger.Warn("selection entry out of range", "asset", SelectionAsset, "entry", n.Name)
		}
	})
}

func dressSetPiece(model *scene.Node, kind scene.MaterialKind, wire scene.Color, wireOpacity float32) {
	model.Meshes(func(n *scene.Node) {
		n.Material = &scene.Material{
			Kind:       kind,
			Color:      scene.Black,
			Opacity:    1,
			Metalness:  0.1,
			Roughness:  0.3,
			DoubleSide: kind == scene.MaterialStandard,
			Wire:       &scene.Wireframe{Color: wire, Opacity: wireOpacity},
		}
	})
}

// Ready reports whether name has loaded and been built.
func (r *Registry) Ready(name string) bool { return r.ready[name] }

// Failed returns the load error of name, if its load failed.
func (r *Registry) Failed(name string) error { return r.failed[name] }

// ReadyCount returns the number of built assets.
func (r *Registry) ReadyCount() int { return len(r.ready) }

// Toggle returns the toggle control called name.
func (r *Registry) Toggle(name string) (*controls.ToggleControl, bool) {
	t, ok := r.toggles[name]
	return t, ok
}

// Toggles returns the loaded toggles ordered by name.
func (r *Registry) Toggles() []*controls.ToggleControl {
	out := make([]*controls.ToggleControl, 0, len(r.toggles))
	for _, t := range r.toggles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Slider returns the slider called name.
func (r *Registry) Slider(name string) (*controls.SliderControl, bool) {
	s, ok := r.sliders[name]
	return s, ok
}

// Sliders returns the loaded sliders ordered by name.
func (r *Registry) Sliders() []*controls.SliderControl {
	out := make([]*controls.SliderControl, 0, len(r.sliders))
	for _, s := range r.sliders {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Ghost returns the ghost once loaded.
func (r *Registry) Ghost() (*controls.Ghost, bool) { return r.ghost, r.ghost != nil }

// Selection returns the numbered selection set; it is empty until the
// selection asset loads.
func (r *Registry) Selection() *controls.SelectionSet { return r.selection }

// SetPiece returns a static model by name.
func (r *Registry) SetPiece(name string) (*scene.Node, bool) {
	n, ok := r.pieces[name]
	return n, ok
}

// Root is the parent of every loaded model.
func (r *Registry) Root() *scene.Node { return r.root }

// Mixers returns every playback controller created so far.
func (r *Registry) Mixers() []*scene.Mixer { return r.mixers }
