package statesync

// Event is a device notification already matched to a scene entity.
type Event interface {
	eventMarker()
}

// ToggleChanged sets a toggle's visual state without playing its animation.
type ToggleChanged struct {
	Name   string
	Active bool
}

func (ToggleChanged) eventMarker() {}

// SliderChanged moves a slider's thumb to -Value, unclamped.
type SliderChanged struct {
	Name  string
	Value float64
}

func (SliderChanged) eventMarker() {}

// TranslucentOpacityChanged writes the ghost's opacity uniform.
type TranslucentOpacityChanged struct {
	Value float64
}

func (TranslucentOpacityChanged) eventMarker() {}

// SelectionChanged highlights entry Index (1-based) of the selection set.
// Indices outside the set highlight nothing.
type SelectionChanged struct {
	Index int
}

func (SelectionChanged) eventMarker() {}
