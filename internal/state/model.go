package state

import "PanoPaint/internal/geom"

// Kind tells annotation collections apart.
type Kind string

const (
	KindStroke Kind = "stroke"
	KindCircle Kind = "circle"
)

// Store keys of the persisted collections.
const (
	StrokesKey = "freehand_strokes"
	CirclesKey = "circles"
)

// SavedStroke is a finalized polyline annotation. Freehand strokes and
// finalized outline shapes are both kept as strokes.
type SavedStroke struct {
	Name   string             `json:"name"`
	Points []geom.SpherePoint `json:"points"`
	Color  string             `json:"color,omitempty"`
}

// SavedCircle is a circle annotation. Diameter is in screen pixels at the
// time it was drawn; the outline shown in the viewer is sampled from it.
type SavedCircle struct {
	Name     string  `json:"name"`
	Ath      float64 `json:"ath"`
	Atv      float64 `json:"atv"`
	Diameter float64 `json:"diameter"`
}

func (s SavedStroke) clone() SavedStroke {
	s.Points = append([]geom.SpherePoint(nil), s.Points...)
	return s
}

// deleted remembers where a removed item sat so redo can put it back.
type deleted[T any] struct {
	item  T
	index int
}
