package control

import (
	"context"
	"log"

	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/state"
)

// HitTest finds the stroke or circle outline nearest to x, y within the
// configured tolerance. A stroke wins a tie with a circle.
func (c *Controller) HitTest(ctx context.Context, x, y float64) (state.Change, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitTest(ctx, at(x, y))
}

func (c *Controller) hitTest(ctx context.Context, p vec.Vec2) (state.Change, bool) {
	strokes, circles := c.hist.Strokes(), c.hist.Circles()

	// project everything in one round trip
	var all []geom.SpherePoint
	for _, s := range strokes {
		all = append(all, s.Points...)
	}
	for _, ci := range circles {
		all = append(all, geom.SpherePoint{Ath: ci.Ath, Atv: ci.Atv})
	}
	if len(all) == 0 {
		return state.Change{}, false
	}
	scr, err := c.proj.ToScreen(ctx, all...)
	if err != nil {
		log.Printf("[CONTROL] hit test: %v", err)
		return state.Change{}, false
	}

	lines := make([]geom.Line, len(strokes))
	for i, s := range strokes {
		lines[i] = geom.Line{Name: s.Name, Points: scr[:len(s.Points)]}
		scr = scr[len(s.Points):]
	}
	rings := make([]geom.Ring, len(circles))
	for i, ci := range circles {
		rings[i] = geom.Ring{Name: ci.Name, Center: scr[i], Radius: ci.Diameter / 2}
	}

	line, okLine := geom.NearestLine(p, lines, c.cfg.Tolerance)
	ring, okRing := geom.NearestRing(p, rings, c.cfg.Tolerance)
	switch {
	case okLine && (!okRing || line.Distance <= ring.Distance):
		return state.Change{Kind: state.KindStroke, Name: line.Name}, true
	case okRing:
		return state.Change{Kind: state.KindCircle, Name: ring.Name}, true
	}
	return state.Change{}, false
}

// selectAt selects whatever lies under p, or clears the selection.
func (c *Controller) selectAt(ctx context.Context, p vec.Vec2) state.Change {
	hit, ok := c.hitTest(ctx, p)
	switch {
	case !ok:
		c.hist.ClearSelection()
	case hit.Kind == state.KindStroke:
		c.hist.SelectStroke(hit.Name)
	default:
		c.hist.SelectCircle(hit.Name)
	}
	return hit
}
