package geom

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// DefaultTolerance is the hit radius in pixels used by move and scale gestures.
const DefaultTolerance = 50.0

// SegmentDistance returns the distance from p to the segment a-b.
func SegmentDistance(p, a, b vec.Vec2) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Length()
	}
	t := Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return p.Sub(a.Add(ab.Mul(t))).Length()
}

// PolylineDistance returns the smallest distance from p to any segment of
// pts. A single point is measured directly; an empty line is infinitely far.
func PolylineDistance(p vec.Vec2, pts []vec.Vec2) float64 {
	switch len(pts) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Sub(pts[0]).Length()
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		if d := SegmentDistance(p, pts[i-1], pts[i]); d < best {
			best = d
		}
	}
	return best
}

// Line is a named polyline in screen space.
type Line struct {
	Name   string
	Points []vec.Vec2
}

// Ring is a named circle outline in screen space.
type Ring struct {
	Name   string
	Center vec.Vec2
	Radius float64
}

// Hit is the result of a nearest-item search.
type Hit struct {
	Name     string
	Distance float64
}

// NearestLine returns the line closest to p, if it lies within tol.
// On ties the earlier line wins.
func NearestLine(p vec.Vec2, lines []Line, tol float64) (Hit, bool) {
	best := Hit{Distance: math.Inf(1)}
	for _, l := range lines {
		if d := PolylineDistance(p, l.Points); d < best.Distance {
			best = Hit{Name: l.Name, Distance: d}
		}
	}
	if best.Name == "" || best.Distance > tol {
		return Hit{}, false
	}
	return best, true
}

// NearestRing returns the ring whose outline is closest to p, measured as
// |dist(p, center) - radius|, if it lies within tol.
func NearestRing(p vec.Vec2, rings []Ring, tol float64) (Hit, bool) {
	best := Hit{Distance: math.Inf(1)}
	for _, r := range rings {
		d := math.Abs(p.Sub(r.Center).Length() - r.Radius)
		if d < best.Distance {
			best = Hit{Name: r.Name, Distance: d}
		}
	}
	if best.Name == "" || best.Distance > tol {
		return Hit{}, false
	}
	return best, true
}
