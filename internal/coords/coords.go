// Package coords converts between screen pixels and sphere angles by asking
// the viewer, one round trip per batch.
package coords

import (
	"context"
	"fmt"
	"time"

	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
)

// DefaultTimeout bounds a conversion when the caller's context has no deadline.
const DefaultTimeout = 2 * time.Second

// Evaluator runs an action and reads variables back.
type Evaluator interface {
	Eval(ctx context.Context, action string, vars ...string) (map[string]float64, error)
}

// Bridge implements geom.Projector on top of an Evaluator.
type Bridge struct {
	ev      Evaluator
	Timeout time.Duration
}

var _ geom.Projector = (*Bridge)(nil)

func New(ev Evaluator) *Bridge {
	return &Bridge{ev: ev, Timeout: DefaultTimeout}
}

func (b *Bridge) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || b.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.Timeout)
}

// ToSphere converts screen positions to sphere angles.
func (b *Bridge) ToSphere(ctx context.Context, pts ...vec.Vec2) ([]geom.SpherePoint, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	var s krpano.Script
	vars := make([]string, 0, 2*len(pts))
	for i, p := range pts {
		a, v := fmt.Sprintf("__pa%d", i), fmt.Sprintf("__pv%d", i)
		s.Add(krpano.ScreenToSphere(p.X, p.Y, a, v))
		vars = append(vars, a, v)
	}
	ctx, cancel := b.bound(ctx)
	defer cancel()
	vals, err := b.ev.Eval(ctx, s.String(), vars...)
	if err != nil {
		return nil, fmt.Errorf("screen to sphere: %w", err)
	}
	out := make([]geom.SpherePoint, len(pts))
	for i := range pts {
		out[i] = geom.SpherePoint{Ath: vals[vars[2*i]], Atv: vals[vars[2*i+1]]}
	}
	return out, nil
}

// ToScreen converts sphere angles to screen positions.
func (b *Bridge) ToScreen(ctx context.Context, pts ...geom.SpherePoint) ([]vec.Vec2, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	var s krpano.Script
	vars := make([]string, 0, 2*len(pts))
	for i, p := range pts {
		x, y := fmt.Sprintf("__px%d", i), fmt.Sprintf("__py%d", i)
		s.Add(krpano.SphereToScreen(p, x, y))
		vars = append(vars, x, y)
	}
	ctx, cancel := b.bound(ctx)
	defer cancel()
	vals, err := b.ev.Eval(ctx, s.String(), vars...)
	if err != nil {
		return nil, fmt.Errorf("sphere to screen: %w", err)
	}
	out := make([]vec.Vec2, len(pts))
	for i := range pts {
		out[i] = vec.Vec2{X: vals[vars[2*i]], Y: vals[vars[2*i+1]]}
	}
	return out, nil
}
