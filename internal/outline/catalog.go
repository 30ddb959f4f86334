package outline

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"seehuhn.de/go/geom/vec"
)

// Outline is a closed shape in its own coordinate space, spanning
// 0..Width by 0..Height.
type Outline struct {
	Kind   string
	Width  float64
	Height float64
	D      string

	// Fallback holds unit offsets, scaled by the radius, used when D
	// cannot produce a usable polygon.
	Fallback []vec.Vec2
}

// Built-in shape kinds.
const (
	Circle  = "circle"
	Star    = "star"
	Arrow   = "arrow"
	Heart   = "heart"
	Diamond = "diamond"
)

// circleKappa places cubic control points so four segments approximate a circle.
const circleKappa = 0.5522847498

var (
	mu      sync.RWMutex
	catalog = map[string]Outline{
		Star: {
			Kind: Star, Width: 193, Height: 182,
			D: "M118.588 69.5986L118.7 69.9434H190.542L132.715 111.958L132.421 112.172L132.533 112.517L154.62 180.496L96.7939 138.483L96.5 138.27L96.2061 138.483L38.3789 180.496L60.4668 112.517L60.5791 112.172L60.2852 111.958L2.45801 69.9434H74.2998L74.4121 69.5986L96.5 1.61719L118.588 69.5986Z",
		},
		Arrow: {
			Kind: Arrow, Width: 234, Height: 151,
			D: "M157.5 45H0.5V109H157.5V149.5L233 74L157.5 1.5V45Z",
		},
		Heart: {
			Kind: Heart, Width: 100, Height: 100,
			D: "M50 15C50 15 35 5 20 15C5 25 5 45 20 55C35 65 50 85 50 85C50 85 65 65 80 55C95 45 95 25 80 15C65 5 50 15 50 15Z",
			Fallback: []vec.Vec2{
				{X: -0.5, Y: -0.4}, {X: -0.3, Y: -0.5}, {X: 0, Y: -0.6}, {X: 0.3, Y: -0.5},
				{X: 0.5, Y: -0.4}, {X: 0.4, Y: 0}, {X: 0.3, Y: 0.3}, {X: 0, Y: 0.4},
				{X: -0.3, Y: 0.3}, {X: -0.4, Y: 0}, {X: -0.5, Y: -0.4},
			},
		},
		Diamond: {
			Kind: Diamond, Width: 100, Height: 100,
			D: "M50 10L90 50L50 90L10 50L50 10Z",
		},
		Circle: {
			Kind: Circle, Width: 100, Height: 100,
			D: circlePath(50, 50, 50),
		},
	}
)

func circlePath(cx, cy, r float64) string {
	k := r * circleKappa
	return fmt.Sprintf("M%g %g"+
		"C%g %g %g %g %g %g"+
		"C%g %g %g %g %g %g"+
		"C%g %g %g %g %g %g"+
		"C%g %g %g %g %g %gZ",
		cx+r, cy,
		cx+r, cy+k, cx+k, cy+r, cx, cy+r,
		cx-k, cy+r, cx-r, cy+k, cx-r, cy,
		cx-r, cy-k, cx-k, cy-r, cx, cy-r,
		cx+k, cy-r, cx+r, cy-k, cx+r, cy)
}

// Lookup returns the outline registered for kind.
func Lookup(kind string) (Outline, bool) {
	mu.RLock()
	defer mu.RUnlock()
	o, ok := catalog[kind]
	return o, ok
}

// Register adds or replaces an outline. The kind must be non-empty and the
// outline space must have a positive size.
func Register(o Outline) error {
	if o.Kind == "" {
		return fmt.Errorf("outline: missing kind")
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("outline %q: invalid size %gx%g", o.Kind, o.Width, o.Height)
	}
	mu.Lock()
	catalog[o.Kind] = o
	mu.Unlock()
	return nil
}

// Kinds lists the registered shape kinds in name order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(catalog))
	for k := range catalog {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Unit returns the parsed outline mapped to offsets in [-1, 1] on both
// axes, relative to the center of the outline space.
func (o Outline) Unit() ([]vec.Vec2, error) {
	pts, err := ParsePath(o.D)
	if err != nil {
		return nil, err
	}
	if o.Width <= 0 || o.Height <= 0 {
		return nil, fmt.Errorf("outline %q: invalid size %gx%g", o.Kind, o.Width, o.Height)
	}
	rx, ry := o.Width/2, o.Height/2
	out := make([]vec.Vec2, len(pts))
	for i, p := range pts {
		out[i] = vec.Vec2{X: (p.X - rx) / rx, Y: (p.Y - ry) / ry}
	}
	return out, nil
}

// Place maps the outline onto the screen around center, scaled so the unit
// square spans radius pixels in each direction. Fewer than three usable
// points is an error.
func (o Outline) Place(center vec.Vec2, radius float64) ([]vec.Vec2, error) {
	unit, err := o.Unit()
	if err != nil {
		return nil, err
	}
	if len(unit) < 3 {
		return nil, fmt.Errorf("outline %q: only %d points", o.Kind, len(unit))
	}
	return scale(unit, center, radius), nil
}

// PlaceFallback returns the outline's own fallback polygon, or a closed
// octagon when it has none.
func (o Outline) PlaceFallback(center vec.Vec2, radius float64) []vec.Vec2 {
	if len(o.Fallback) >= 3 {
		return scale(o.Fallback, center, radius)
	}
	return Fallback(center, radius)
}

// Fallback returns a closed octagon of half the radius around center.
func Fallback(center vec.Vec2, radius float64) []vec.Vec2 {
	const n = 8
	pts := make([]vec.Vec2, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / n
		pts = append(pts, vec.Vec2{X: 0.5 * math.Cos(a), Y: 0.5 * math.Sin(a)})
	}
	pts = append(pts, pts[0])
	return scale(pts, center, radius)
}

func scale(unit []vec.Vec2, center vec.Vec2, radius float64) []vec.Vec2 {
	out := make([]vec.Vec2, len(unit))
	for i, u := range unit {
		out[i] = center.Add(u.Mul(radius))
	}
	return out
}
