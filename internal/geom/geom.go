// Package geom holds the plain geometry shared by the annotation engines:
// sphere coordinates, screen-space distance math and circle sampling.
package geom

import (
	"context"
	"math"

	"seehuhn.de/go/geom/vec"
)

// SpherePoint is a direction on the panorama sphere in degrees.
// Ath is the horizontal angle, Atv the vertical one.
type SpherePoint struct {
	Ath float64 `json:"ath"`
	Atv float64 `json:"atv"`
}

// Projector converts between screen pixels and sphere angles for the
// current view. Results are only valid for the view at call time.
type Projector interface {
	ToSphere(ctx context.Context, pts ...vec.Vec2) ([]SpherePoint, error)
	ToScreen(ctx context.Context, pts ...SpherePoint) ([]vec.Vec2, error)
}

// Near reports whether a and b differ by at most tol degrees on both axes.
func Near(a, b SpherePoint, tol float64) bool {
	return math.Abs(a.Ath-b.Ath) <= tol && math.Abs(a.Atv-b.Atv) <= tol
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
