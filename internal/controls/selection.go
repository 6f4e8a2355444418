package controls

import (
	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// SelectionSet is a fixed, 1-based numbered set of objects of which at most
// one is highlighted.
type SelectionSet struct {
	Size      int
	Base      scene.Color
	Highlight scene.Color

	entries  map[int]*scene.Node
	selected int
}

// NewSelectionSet returns an empty set of the given size.
func NewSelectionSet(size int) *SelectionSet {
	return &SelectionSet{
		Size:      size,
		Base:      SelectionBase,
		Highlight: SelectionHighlight,
		entries:   make(map[int]*scene.Node, size),
	}
}

// Put registers n as entry i in the base color. Indices outside 1..Size are
// ignored and reported false.
func (s *SelectionSet) Put(i int, n *scene.Node) bool {
	if i < 1 || i > s.Size {
		return false
	}
	n.Material = &scene.Material{Kind: scene.MaterialBasic, Color: s.Base, Opacity: 1}
	s.entries[i] = n
	return true
}

// Entry returns entry i, if registered.
func (s *SelectionSet) Entry(i int) (*scene.Node, bool) {
	n, ok := s.entries[i]
	return n, ok
}

// Len returns the number of registered entries.
func (s *SelectionSet) Len() int { return len(s.entries) }

// Select highlights entry k and reverts all others. A k outside 1..Size
// reverts every entry and leaves nothing selected.
func (s *SelectionSet) Select(k int) {
	s.selected = 0
	for i := 1; i <= s.Size; i++ {
		n, ok := s.entries[i]
		if !ok || n.Material == nil {
			continue
		}
		if i == k {
			n.Material.Color = s.Highlight
			s.selected = k
		} else {
			n.Material.Color = s.Base
		}
	}
}

// Selected returns the highlighted index, or 0.
func (s *SelectionSet) Selected() int { return s.selected }
