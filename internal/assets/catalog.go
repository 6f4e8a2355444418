// Package assets loads the installation's binary models and turns each
// completed load into a typed control in the Registry.
package assets

import (
	"errors"
	"fmt"
	"slices"
)

// Kind says what the registry builds from an asset.
type Kind int

const (
	KindToggle Kind = iota
	KindSlider
	KindGhost
	KindSelection
	KindSetPiece         // static model, lambert black with a violet wireframe
	KindAnimatedSetPiece // standard black with wireframe, every clip played once
)

func (k Kind) String() string {
	switch k {
	case KindToggle:
		return "toggle"
	case KindSlider:
		return "slider"
	case KindGhost:
		return "ghost"
	case KindSelection:
		return "selection"
	case KindSetPiece:
		return "set-piece"
	case KindAnimatedSetPiece:
		return "animated-set-piece"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrUnknownAsset is returned for names missing from the catalog.
var ErrUnknownAsset = errors.New("unknown asset")

// Catalog maps every logical asset name to its kind. Names double as file
// stems and as audio parameter identifiers for toggles and sliders.
type Catalog struct {
	entries map[string]Kind
	order   []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: map[string]Kind{}}
}

// Add registers names under kind; later registrations of a name win.
func (c *Catalog) Add(kind Kind, names ...string) *Catalog {
	for _, n := range names {
		if _, ok := c.entries[n]; !ok {
			c.order = append(c.order, n)
		}
		c.entries[n] = kind
	}
	return c
}

// Kind returns the kind of name.
func (c *Catalog) Kind(name string) (Kind, error) {
	k, ok := c.entries[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, name)
	}
	return k, nil
}

// Names returns every name in registration order.
func (c *Catalog) Names() []string { return slices.Clone(c.order) }

// NamesOf returns the names of one kind in registration order.
func (c *Catalog) NamesOf(kind Kind) []string {
	var out []string
	for _, n := range c.order {
		if c.entries[n] == kind {
			out = append(out, n)
		}
	}
	return out
}

// Reserved names.
const (
	GhostAsset     = "ghost"
	SelectionAsset = "box"
	SelectionSize  = 8
)

// DefaultCatalog is the installation's fixed asset set.
func DefaultCatalog() *Catalog {
	return NewCatalog().
		Add(KindToggle, "b1", "b2", "b3", "b4", "b5", "b6", "b7", "b8").
		Add(KindToggle, "p1", "p2", "p3", "p4", "p5").
		Add(KindSlider, "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9").
		Add(KindAnimatedSetPiece, "bodo_b").
		Add(KindSetPiece, "bodo").
		Add(KindSelection, SelectionAsset).
		Add(KindGhost, GhostAsset)
}
