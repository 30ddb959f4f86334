package draw

import (
	"context"
	"fmt"
	"log"
	"math"

	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
	"PanoPaint/internal/outline"
	"PanoPaint/internal/raster"
)

const (
	// SnapRadius is how close, in pixels on both axes, a tap must land to
	// reuse an existing vertex.
	SnapRadius = 20.0
	// CloseAngle is how close, in degrees on both axes, the newest vertex
	// must be to the first one to close the polygon.
	CloseAngle = 1.0

	PolygonName = "painter_shape"
	markerSize  = 28
)

func markerName(i int) string { return fmt.Sprintf("rn_dot_%d", i) }
func segmentName(i int) string { return fmt.Sprintf("painter_pair_%d", i) }

// PointEngine builds a polygon from taps. Markers mark the vertices and
// segments join consecutive ones until the last tap lands on the first
// vertex, which replaces them with a filled polygon.
type PointEngine struct {
	cmd  Commander
	proj geom.Projector

	Color krpano.Color

	pts      []geom.SpherePoint
	polygon  bool
	closed   bool
	selected bool
	marker   string
}

func NewPointEngine(cmd Commander, proj geom.Projector) *PointEngine {
	return &PointEngine{cmd: cmd, proj: proj, Color: krpano.DefaultColor}
}

// Points returns the vertices placed so far.
func (e *PointEngine) Points() []geom.SpherePoint {
	return append([]geom.SpherePoint(nil), e.pts...)
}

func (e *PointEngine) Len() int { return len(e.pts) }
func (e *PointEngine) Closed() bool { return e.closed }
func (e *PointEngine) Polygon() bool { return e.polygon }

// Tap adds a vertex at the screen position, snapping to an existing vertex
// nearby. Taps on a closed polygon are ignored. It reports whether the
// polygon is closed afterwards.
func (e *PointEngine) Tap(ctx context.Context, x, y float64) (bool, error) {
	if e.closed {
		return true, nil
	}
	p, err := e.locate(ctx, vec.Vec2{X: x, Y: y})
	if err != nil {
		return false, err
	}

	i := len(e.pts)
	e.pts = append(e.pts, p)
	var sc krpano.Script
	if e.polygon {
		sc.Add(krpano.H(PolygonName).Remove())
		e.polygon = false
	}
	m := krpano.H(markerName(i))
	sc.Add(m.Add(), m.Set("renderer", "webgl"), m.Set("zorder", krpano.MarkerZ))
	if url := e.markerURL(); url != "" {
		sc.Add(m.Set("url", krpano.Quote(url)), m.Set("width", markerSize), m.Set("height", markerSize))
	}
	sc.Add(m.Position(p))
	if i >= 1 {
		s := krpano.H(segmentName(i - 1))
		sc.Add(s.Add()).Add(lineStyle(s, e.Color, false, 0, krpano.SegmentZ)...)
		sc.Add(s.Points(e.pts[i-1:]))
	}
	if len(e.pts) >= 3 && geom.Near(p, e.pts[0], CloseAngle) {
		e.closed = true
		sc.Add(e.polygonScript()...)
		for k := range e.pts {
			sc.Add(krpano.H(markerName(k)).Set("visible", false))
		}
	}
	e.cmd.Execute(sc.String())
	return e.closed, nil
}

func (e *PointEngine) locate(ctx context.Context, tap vec.Vec2) (geom.SpherePoint, error) {
	if len(e.pts) > 0 {
		scr, err := e.proj.ToScreen(ctx, e.pts...)
		if err != nil {
			return geom.SpherePoint{}, err
		}
		for k, s := range scr {
			if math.Abs(s.X-tap.X) <= SnapRadius && math.Abs(s.Y-tap.Y) <= SnapRadius {
				return e.pts[k], nil
			}
		}
	}
	sph, err := e.proj.ToSphere(ctx, tap)
	if err != nil {
		return geom.SpherePoint{}, err
	}
	return sph[0], nil
}

func (e *PointEngine) markerURL() string {
	if e.marker != "" {
		return e.marker
	}
	o, _ := outline.Lookup(outline.Circle)
	url, err := raster.PreviewURL(o, markerSize, e.Color.NRGBA())
	if err != nil {
		log.Printf("[POINT] marker image: %v", err)
		return ""
	}
	e.marker = url
	return url
}

// polygonScript draws the polygon through every vertex and back to the
// first one.
func (e *PointEngine) polygonScript() []string {
	e.polygon = true
	h := krpano.H(PolygonName)
	col := e.Color
	if e.selected {
		col = krpano.SelectedColor
	}
	out := append([]string{h.Add()}, lineStyle(h, col, true, 0.1, krpano.ShapeZ)...)
	ring := append(append([]geom.SpherePoint(nil), e.pts...), e.pts[0])
	return append(out, h.Points(ring), h.Set("userdata.point_count", len(ring)))
}

// Undo removes the last vertex. A polygon is rebuilt from the remaining
// vertices, or dropped below three, and every marker shows again. It
// reports false when there was nothing to undo.
func (e *PointEngine) Undo() bool {
	if len(e.pts) == 0 {
		return false
	}
	i := len(e.pts) - 1
	var sc krpano.Script
	if i >= 1 {
		sc.Add(krpano.H(segmentName(i - 1)).Remove())
	}
	sc.Add(krpano.H(markerName(i)).Remove())
	e.pts = e.pts[:i]
	e.closed = false
	if e.polygon {
		sc.Add(krpano.H(PolygonName).Remove())
		e.polygon = false
		if len(e.pts) >= 3 {
			sc.Add(e.polygonScript()...)
		}
	}
	for k := range e.pts {
		sc.Add(krpano.H(markerName(k)).Set("visible", true))
	}
	e.cmd.Execute(sc.String())
	return true
}

// Clear removes every marker, segment and the polygon.
func (e *PointEngine) Clear() {
	var sc krpano.Script
	for k := range e.pts {
		sc.Add(krpano.H(markerName(k)).Remove())
		if k >= 1 {
			sc.Add(krpano.H(segmentName(k - 1)).Remove())
		}
	}
	sc.Add(krpano.H(PolygonName).Remove())
	e.cmd.Execute(sc.String())
	e.pts = nil
	e.polygon, e.closed, e.selected = false, false, false
}

// Move shifts every vertex by the sphere distance between two screen
// positions.
func (e *PointEngine) Move(ctx context.Context, from, to vec.Vec2) error {
	if len(e.pts) == 0 {
		return nil
	}
	sph, err := e.proj.ToSphere(ctx, from, to)
	if err != nil {
		return err
	}
	da, dv := sph[1].Ath-sph[0].Ath, sph[1].Atv-sph[0].Atv
	for k := range e.pts {
		e.pts[k].Ath += da
		e.pts[k].Atv += dv
	}

	var sc krpano.Script
	for k, p := range e.pts {
		sc.Add(krpano.H(markerName(k)).Position(p))
		if k >= 1 {
			sc.Add(krpano.H(segmentName(k - 1)).Points(e.pts[k-1 : k+1]))
		}
	}
	if e.polygon {
		ring := append(append([]geom.SpherePoint(nil), e.pts...), e.pts[0])
		sc.Add(krpano.H(PolygonName).Points(ring))
	}
	e.cmd.Execute(sc.String())
	return nil
}

// SetSelected toggles the highlight of the polygon and its segments.
func (e *PointEngine) SetSelected(on bool) {
	e.selected = on
	col, width := e.Color, krpano.StrokeWidth
	if on {
		col, width = krpano.SelectedColor, krpano.SelectedStrokeWidth
	}
	var sc krpano.Script
	for k := 1; k < len(e.pts); k++ {
		h := krpano.H(segmentName(k - 1))
		sc.Add(h.Set("bordercolor", col), h.Set("borderwidth", width))
	}
	if e.polygon {
		h := krpano.H(PolygonName)
		sc.Add(h.Set("bordercolor", col), h.Set("borderwidth", width))
	}
	e.cmd.Execute(sc.String())
}
