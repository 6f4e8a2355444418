package statesync

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/iburimskiy/bodo-installation/internal/assets"
	"github.com/iburimskiy/bodo-installation/internal/device"
)

// Reserved device identifiers.
const (
	OpacityParam = "ghostOn"
	SelectionTag = assets.SelectionAsset
)

// Translator maps raw device events onto scene events by name.
type Translator struct {
	catalog      *assets.Catalog
	opacityParam string
	selectionTag string
}

// NewTranslator returns a translator for the controls in catalog.
func NewTranslator(catalog *assets.Catalog) *Translator {
	return &Translator{
		catalog:      catalog,
		opacityParam: OpacityParam,
		selectionTag: SelectionTag,
	}
}

// Translate reports false for events no scene entity listens to.
func (t *Translator) Translate(ev device.Event) (Event, bool) {
	switch e := ev.(type) {
	case device.ParameterChange:
		return t.parameter(e)
	case device.Message:
		if e.Tag != t.selectionTag || len(e.Payload) == 0 {
			return nil, false
		}
		return SelectionChanged{Index: selectionIndex(e.Payload[0])}, true
	default:
		return nil, false
	}
}

func (t *Translator) parameter(e device.ParameterChange) (Event, bool) {
	if e.Name == t.opacityParam {
		return TranslucentOpacityChanged{Value: e.Value}, true
	}
	kind, err := t.catalog.Kind(e.Name)
	if err != nil {
		return nil, false
	}
	switch kind {
	case assets.KindToggle:
		return ToggleChanged{Name: e.Name, Active: e.Value == 1}, true
	case assets.KindSlider:
		return SliderChanged{Name: e.Name, Value: e.Value}, true
	default:
		return nil, false
	}
}

// selectionIndex keeps whole numbers and maps anything else to 0, which
// selects nothing.
func selectionIndex(v float64) int {
	if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0
	}
	return int(v)
}

// Syncer mirrors device events into the registry. It never writes back to
// the device.
type Syncer struct {
	translator *Translator
	registry   *assets.Registry
	logger     *slog.Logger
}

// NewSyncer returns a syncer applying events to registry.
func NewSyncer(t *Translator, registry *assets.Registry, logger *slog.Logger) *Syncer {
	return &Syncer{translator: t, registry: registry, logger: logger}
}

// Handle translates and applies one raw device event.
func (s *Syncer) Handle(ev device.Event) {
	e, ok := s.translator.Translate(ev)
	if !ok {
		return
	}
	if err := Apply(s.registry, e); err != nil {
		s.logger.Debug("device event not applied", "event", fmt.Sprintf("%+v", e), "error", err)
	}
}

// Apply mutates visual state for e. It fails only when the target entity
// has not loaded.
func Apply(r *assets.Registry, e Event) error {
	switch e := e.(type) {
	case ToggleChanged:
		t, ok := r.Toggle(e.Name)
		if !ok {
			return fmt.Errorf("toggle %s not loaded", e.Name)
		}
		t.SetActive(e.Active)
	case SliderChanged:
		s, ok := r.Slider(e.Name)
		if !ok {
			return fmt.Errorf("slider %s not loaded", e.Name)
		}
		s.SetPosition(float32(-e.Value))
	case TranslucentOpacityChanged:
		g, ok := r.Ghost()
		if !ok {
			return fmt.Errorf("%s not loaded", assets.GhostAsset)
		}
		g.SetOpacity(float32(e.Value))
	case SelectionChanged:
		r.Selection().Select(e.Index)
	default:
		return fmt.Errorf("unhandled event %T", e)
	}
	return nil
}
