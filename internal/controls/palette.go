// Package controls holds the audio-linked entities of the scene: toggle
// buttons, slider thumbs, the translucent ghost and the numbered selection
// set. Each owns its model; the asset registry creates them when their
// model finishes loading.
package controls

import (
	"strings"

	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// Palette is the two-color scheme of a toggle family.
type Palette struct {
	Inactive scene.Color
	Active   scene.Color
}

// Color returns the palette color for the given state.
func (p Palette) Color(active bool) scene.Color {
	if active {
		return p.Active
	}
	return p.Inactive
}

// Toggle families. One palette per family, used on load, on click and on
// remote sync alike.
var (
	PaletteB = Palette{Inactive: scene.Hex(0x462cab), Active: scene.Hex(0x4cc9f0)}
	PaletteP = Palette{Inactive: scene.Hex(0x4361ee), Active: scene.Hex(0x992b6b)}
)

var (
	SliderColor        = scene.Hex(0x882ee8)
	SelectionBase      = scene.Hex(0x301869)
	SelectionHighlight = scene.Hex(0xb899ff)
)

// PaletteFor picks the family palette from a control name ("p3" -> P,
// anything else -> B).
func PaletteFor(name string) Palette {
	if strings.HasPrefix(name, "p") {
		return PaletteP
	}
	return PaletteB
}
