package draw

import (
	"context"
	"errors"

	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
)

// TempStroke is the hotspot that collects an unfinished freehand stroke.
const TempStroke = "freehand_path"

var ErrNoStroke = errors.New("draw: no stroke in progress")

// FreehandEngine records drag samples into a temporary polyline. The
// viewer converts every sample itself, so a drag costs no round trips.
type FreehandEngine struct {
	cmd  Commander
	proj geom.Projector

	color    krpano.Color
	n        int
	active   bool
	selected bool
}

func NewFreehandEngine(cmd Commander, proj geom.Projector) *FreehandEngine {
	return &FreehandEngine{cmd: cmd, proj: proj, color: krpano.DefaultColor}
}

// Active reports whether a temporary stroke exists.
func (e *FreehandEngine) Active() bool { return e.active }

// Count is the number of samples in the temporary stroke.
func (e *FreehandEngine) Count() int { return e.n }

// Start replaces any temporary stroke with a new one beginning at x, y.
func (e *FreehandEngine) Start(x, y float64, col krpano.Color) {
	h := krpano.H(TempStroke)
	e.color, e.n, e.active, e.selected = col, 0, true, false
	var sc krpano.Script
	sc.Add(h.Remove(), h.Add()).Add(lineStyle(h, col, false, 0, krpano.ShapeZ)...)
	sc.Add(e.sample(x, y))
	e.cmd.Execute(sc.String())
}

// Move appends one sample. Every sample becomes a vertex.
func (e *FreehandEngine) Move(x, y float64) {
	if !e.active {
		return
	}
	e.cmd.Execute(e.sample(x, y))
}

func (e *FreehandEngine) sample(x, y float64) string {
	h := krpano.H(TempStroke)
	st := krpano.ScreenToSphere(x, y, h.PointProp(e.n, "ath"), h.PointProp(e.n, "atv"))
	e.n++
	return st
}

// Finalize copies the temporary stroke into a new hotspot called name,
// removes the temporary one and asks the viewer to post the copied points
// as TagFreehandPoints. It reports false when nothing was drawn.
func (e *FreehandEngine) Finalize(name string) bool {
	if !e.active || e.n < 1 {
		e.Discard()
		return false
	}
	tmp, h := krpano.H(TempStroke), krpano.H(name)
	col := e.color
	var sc krpano.Script
	sc.Add(h.Add()).Add(lineStyle(h, col, false, 0, krpano.ShapeZ)...)
	for i := 0; i < e.n; i++ {
		sc.Add(krpano.Copy(h.PointProp(i, "ath"), tmp.PointProp(i, "ath")),
			krpano.Copy(h.PointProp(i, "atv"), tmp.PointProp(i, "atv")))
	}
	sc.Add(h.Set("userdata.point_count", e.n), tmp.Remove())
	e.cmd.Execute(sc.String())
	e.n, e.active, e.selected = 0, false, false
	e.cmd.QueryPointsDelayed(string(h), TagFreehandPoints, 0)
	return true
}

// Color is the color of the stroke in progress.
func (e *FreehandEngine) Color() krpano.Color { return e.color }

// Discard drops the temporary stroke. It reports whether there was one.
func (e *FreehandEngine) Discard() bool {
	was := e.active
	e.cmd.Execute(krpano.H(TempStroke).Remove())
	e.n, e.active, e.selected = 0, false, false
	return was
}

// MoveTemp shifts the temporary stroke by the sphere distance between two
// screen positions.
func (e *FreehandEngine) MoveTemp(ctx context.Context, from, to vec.Vec2) error {
	if !e.active {
		return ErrNoStroke
	}
	da, dv, err := delta(ctx, e.proj, from, to)
	if err != nil {
		return err
	}
	e.cmd.Execute(shiftScript(krpano.H(TempStroke), e.n, da, dv))
	return nil
}

// SetSelected toggles the highlight of the temporary stroke.
func (e *FreehandEngine) SetSelected(on bool) {
	if !e.active {
		return
	}
	e.selected = on
	e.cmd.Execute(highlight(krpano.H(TempStroke), e.color, on))
}

// MoveStroke shifts a finalized stroke by the sphere distance between two
// screen positions. pts are its current points; the shifted ones are
// returned.
func (e *FreehandEngine) MoveStroke(ctx context.Context, name string, pts []geom.SpherePoint, from, to vec.Vec2) ([]geom.SpherePoint, error) {
	da, dv, err := delta(ctx, e.proj, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]geom.SpherePoint, len(pts))
	for i, p := range pts {
		out[i] = geom.SpherePoint{Ath: p.Ath + da, Atv: p.Atv + dv}
	}
	e.cmd.Execute(shiftScript(krpano.H(name), len(pts), da, dv))
	return out, nil
}

// ScaleStroke scales a finalized stroke about its on-screen centroid so it
// grows from its visual middle whatever the view orientation.
func (e *FreehandEngine) ScaleStroke(ctx context.Context, name string, pts []geom.SpherePoint, factor float64) ([]geom.SpherePoint, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	scr, err := e.proj.ToScreen(ctx, pts...)
	if err != nil {
		return nil, err
	}
	scaled := geom.ScaleAbout(scr, geom.Centroid(scr), factor)
	out, err := e.proj.ToSphere(ctx, scaled...)
	if err != nil {
		return nil, err
	}
	e.cmd.Execute(krpano.H(name).Points(out))
	return out, nil
}

func delta(ctx context.Context, proj geom.Projector, from, to vec.Vec2) (float64, float64, error) {
	sph, err := proj.ToSphere(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}
	return sph[1].Ath - sph[0].Ath, sph[1].Atv - sph[0].Atv, nil
}

func shiftScript(h krpano.Hotspot, n int, da, dv float64) string {
	var sc krpano.Script
	for i := 0; i < n; i++ {
		sc.Add(krpano.Inc(h.PointProp(i, "ath"), da), krpano.Inc(h.PointProp(i, "atv"), dv))
	}
	return sc.String()
}

func highlight(h krpano.Hotspot, col krpano.Color, on bool) string {
	width := krpano.StrokeWidth
	if on {
		col, width = krpano.SelectedColor, krpano.SelectedStrokeWidth
	}
	return h.Set("bordercolor", col) + " " + h.Set("borderwidth", width)
}
