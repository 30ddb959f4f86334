package geom

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"seehuhn.de/go/geom/vec"
)

const (
	minCircleSamples = 24
	maxCircleSamples = 180
)

// Centroid returns the mean of pts. It is the zero vector for no points.
func Centroid(pts []vec.Vec2) vec.Vec2 {
	if len(pts) == 0 {
		return vec.Vec2{}
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	return vec.Vec2{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
}

// ScaleAbout scales every point away from c by factor f.
func ScaleAbout(pts []vec.Vec2, c vec.Vec2, f float64) []vec.Vec2 {
	out := make([]vec.Vec2, len(pts))
	for i, p := range pts {
		out[i] = c.Add(p.Sub(c).Mul(f))
	}
	return out
}

// Translate shifts every point by d.
func Translate(pts []vec.Vec2, d vec.Vec2) []vec.Vec2 {
	out := make([]vec.Vec2, len(pts))
	for i, p := range pts {
		out[i] = p.Add(d)
	}
	return out
}

// CircleSampleCount returns how many outline points a circle of the given
// on-screen diameter is approximated with.
func CircleSampleCount(diameter float64) int {
	if math.IsNaN(diameter) {
		return minCircleSamples
	}
	return int(Clamp(math.Round(diameter), minCircleSamples, maxCircleSamples))
}

// SampleCircle returns the outline of a circle as CircleSampleCount points
// followed by a copy of the first one, so the polyline closes on itself.
func SampleCircle(center vec.Vec2, diameter float64) []vec.Vec2 {
	n := CircleSampleCount(diameter)
	r := diameter / 2
	pts := make([]vec.Vec2, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts = append(pts, vec.Vec2{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)})
	}
	return append(pts, pts[0])
}
