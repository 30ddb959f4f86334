package draw

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
	"PanoPaint/internal/outline"
	"PanoPaint/internal/raster"
	"PanoPaint/internal/state"
)

// Preview sizes in pixels.
const (
	circleInitial  = 20
	circleMin      = 2
	outlineInitial = 40
	outlineMin     = 8
)

var (
	ErrNoPreview   = errors.New("draw: no shape preview")
	ErrUnknownKind = errors.New("draw: unknown shape kind")
)

// Finalized is the annotation a shape turned into: a circle for the
// circle kind, a closed stroke for every outline kind.
type Finalized struct {
	Stroke *state.SavedStroke
	Circle *state.SavedCircle
}

// ShapeEngine previews a shape as an image anchored at the touch and turns
// it into a polyline when the gesture ends.
type ShapeEngine struct {
	cmd  Commander
	proj geom.Projector

	Color krpano.Color

	active   bool
	shape    outline.Outline
	center   geom.SpherePoint
	screen   vec.Vec2
	diameter float64
}

func NewShapeEngine(cmd Commander, proj geom.Projector) *ShapeEngine {
	return &ShapeEngine{cmd: cmd, proj: proj, Color: krpano.DefaultColor}
}

func tempName(kind string) string { return kind + "_temp" }

func (e *ShapeEngine) Active() bool { return e.active }
func (e *ShapeEngine) Kind() string { return e.shape.Kind }
func (e *ShapeEngine) Diameter() float64 { return e.diameter }
func (e *ShapeEngine) Center() vec.Vec2 { return e.screen }

func (e *ShapeEngine) minDiameter() float64 {
	if e.shape.Kind == outline.Circle {
		return circleMin
	}
	return outlineMin
}

// Start shows a preview of kind centered on the screen position.
func (e *ShapeEngine) Start(ctx context.Context, kind string, x, y float64) error {
	o, ok := outline.Lookup(kind)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	if e.active {
		e.Discard()
	}
	sph, err := e.proj.ToSphere(ctx, vec.Vec2{X: x, Y: y})
	if err != nil {
		return err
	}
	e.active, e.shape, e.center = true, o, sph[0]
	e.screen = vec.Vec2{X: x, Y: y}
	e.diameter = outlineInitial
	if kind == outline.Circle {
		e.diameter = circleInitial
	}

	h := krpano.H(tempName(kind))
	var sc krpano.Script
	sc.Add(h.Remove(), h.Add(), h.Set("renderer", "webgl"), h.Position(e.center), h.Set("zorder", krpano.MarkerZ))
	sc.Add(e.sizeScript()...)
	e.cmd.Execute(sc.String())
	return nil
}

// Resize sets the preview diameter in pixels.
func (e *ShapeEngine) Resize(d float64) {
	if !e.active {
		return
	}
	e.diameter = math.Max(e.minDiameter(), math.Round(d))
	var sc krpano.Script
	e.cmd.Execute(sc.Add(e.sizeScript()...).String())
}

// ResizeTo sizes the preview so its edge passes through the screen position.
func (e *ShapeEngine) ResizeTo(x, y float64) {
	e.Resize(2 * vec.Vec2{X: x, Y: y}.Sub(e.screen).Length())
}

func (e *ShapeEngine) sizeScript() []string {
	h := krpano.H(tempName(e.shape.Kind))
	d := int(e.diameter)
	out := []string{h.Set("width", d), h.Set("height", d), h.Set("userdata.diameter", e.diameter)}
	url, err := raster.PreviewURL(e.shape, d, e.Color.NRGBA())
	if err != nil {
		log.Printf("[SHAPE] preview %s: %v", e.shape.Kind, err)
		return out
	}
	return append(out, h.Set("url", krpano.Quote(url)))
}

// Finalize replaces the preview with a polyline called name. Outline kinds
// that cannot be placed fall back to a small polygon. The preview is
// removed even when projection fails.
func (e *ShapeEngine) Finalize(ctx context.Context, name string) (Finalized, error) {
	if !e.active {
		return Finalized{}, ErrNoPreview
	}
	defer e.Discard()

	scr, err := e.proj.ToScreen(ctx, e.center)
	if err != nil {
		return Finalized{}, err
	}
	c := scr[0]
	h := krpano.H(name)

	if e.shape.Kind == outline.Circle {
		pts, err := e.proj.ToSphere(ctx, geom.SampleCircle(c, e.diameter)...)
		if err != nil {
			return Finalized{}, err
		}
		e.cmd.Execute(circleScript(h, e.center, e.diameter, pts))
		return Finalized{Circle: &state.SavedCircle{
			Name: string(h), Ath: e.center.Ath, Atv: e.center.Atv, Diameter: e.diameter,
		}}, nil
	}

	r := e.diameter / 2
	flat, err := e.shape.Place(c, r)
	if err != nil {
		log.Printf("[SHAPE] %s outline unusable, using fallback: %v", e.shape.Kind, err)
		flat = e.shape.PlaceFallback(c, r)
	}
	pts, err := e.proj.ToSphere(ctx, flat...)
	if err != nil {
		return Finalized{}, err
	}
	var sc krpano.Script
	sc.Add(h.Add()).Add(lineStyle(h, e.Color, true, 0, krpano.ShapeZ)...)
	sc.Add(h.Points(pts), h.Set("userdata.point_count", len(pts)))
	e.cmd.Execute(sc.String())
	return Finalized{Stroke: &state.SavedStroke{Name: string(h), Points: pts, Color: e.Color.String()}}, nil
}

// Discard removes the preview. It reports whether there was one.
func (e *ShapeEngine) Discard() bool {
	if !e.active {
		return false
	}
	e.cmd.Execute(krpano.H(tempName(e.shape.Kind)).Remove())
	e.active = false
	return true
}
