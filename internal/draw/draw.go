// Package draw holds the engines that turn gestures into viewer hotspots:
// tapped point polygons, freehand strokes and sized shapes, plus the
// renderer that rebuilds saved annotations.
package draw

import (
	"context"
	"log"
	"time"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
	"PanoPaint/internal/state"
)

// Tags of the messages the engines ask the viewer to post.
const (
	TagFreehandPoints = "freehand_points"
	TagStrokeUpdate   = "stroke_points_update"
	TagCircleUpdate   = "circle_update"
)

// Commander sends commands and queries to the viewer.
type Commander interface {
	Execute(cmd string)
	QueryPoints(name, tag string)
	QueryPointsDelayed(name, tag string, delay time.Duration)
	QueryProperties(name, tag string)
}

// lineStyle returns the statements that turn h into a polyline.
func lineStyle(h krpano.Hotspot, col krpano.Color, closed bool, fill float64, z int) []string {
	return []string{
		h.Set("renderer", "webgl"),
		h.Set("polyline", true),
		h.Set("closepath", closed),
		h.Set("fillcolor", col),
		h.Set("fillalpha", fill),
		h.Set("bordercolor", col),
		h.Set("borderwidth", krpano.StrokeWidth),
		h.Set("zorder", z),
		h.Set("visible", true),
	}
}

func colorOr(s string, def krpano.Color) krpano.Color {
	if s == "" {
		return def
	}
	c, err := krpano.ParseColor(s)
	if err != nil {
		return def
	}
	return c
}

// Renderer draws saved strokes and circles. It implements state.Renderer.
type Renderer struct {
	cmd  Commander
	proj geom.Projector
}

var _ state.Renderer = (*Renderer)(nil)

func NewRenderer(cmd Commander, proj geom.Projector) *Renderer {
	return &Renderer{cmd: cmd, proj: proj}
}

func (r *Renderer) DrawStroke(_ context.Context, s state.SavedStroke) {
	if len(s.Points) == 0 {
		return
	}
	h := krpano.H(s.Name)
	var sc krpano.Script
	sc.Add(h.Add()).Add(lineStyle(h, colorOr(s.Color, krpano.DefaultColor), false, 0, krpano.ShapeZ)...)
	sc.Add(h.Points(s.Points), h.Set("userdata.point_count", len(s.Points)))
	r.cmd.Execute(sc.String())
}

// DrawCircle samples the circle around its projected center and draws it
// as a closed polyline carrying its center and diameter as userdata.
func (r *Renderer) DrawCircle(ctx context.Context, c state.SavedCircle) {
	center := geom.SpherePoint{Ath: c.Ath, Atv: c.Atv}
	scr, err := r.proj.ToScreen(ctx, center)
	if err != nil {
		log.Printf("[DRAW] circle %s: %v", c.Name, err)
		return
	}
	pts, err := r.proj.ToSphere(ctx, geom.SampleCircle(scr[0], c.Diameter)...)
	if err != nil {
		log.Printf("[DRAW] circle %s: %v", c.Name, err)
		return
	}
	r.cmd.Execute(circleScript(krpano.H(c.Name), center, c.Diameter, pts))
}

func circleScript(h krpano.Hotspot, center geom.SpherePoint, diameter float64, pts []geom.SpherePoint) string {
	var sc krpano.Script
	sc.Add(h.Add()).Add(lineStyle(h, krpano.DefaultColor, true, 0, krpano.ShapeZ)...)
	sc.Add(h.Points(pts),
		h.Set("userdata.point_count", len(pts)),
		h.Set("userdata.center_ath", center.Ath),
		h.Set("userdata.center_atv", center.Atv),
		h.Set("userdata.diameter", diameter))
	return sc.String()
}

func (r *Renderer) Erase(name string) {
	r.cmd.Execute(krpano.H(name).Remove())
}

func (r *Renderer) HighlightStroke(s state.SavedStroke, on bool) {
	r.cmd.Execute(highlight(krpano.H(s.Name), colorOr(s.Color, krpano.DefaultColor), on))
}

func (r *Renderer) HighlightCircle(c state.SavedCircle, on bool) {
	col := krpano.DefaultColor
	if on {
		col = krpano.SelectedColor
	}
	h := krpano.H(c.Name)
	r.cmd.Execute(h.Set("bordercolor", col) + " " + h.Set("borderwidth", krpano.StrokeWidth))
}

// ReplaceCircle redraws c from scratch, keeping its highlight when it is
// selected.
func (r *Renderer) ReplaceCircle(ctx context.Context, c state.SavedCircle, selected bool) {
	r.Erase(c.Name)
	r.DrawCircle(ctx, c)
	if selected {
		r.HighlightCircle(c, true)
	}
}
