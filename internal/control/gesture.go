package control

import (
	"context"
	"fmt"
	"log"
	"math"

	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/bridge"
	"PanoPaint/internal/draw"
	"PanoPaint/internal/geom"
	"PanoPaint/internal/state"
)

// Gesture phases posted by the page.
const (
	PhaseTap    = "tap"
	PhaseBegin  = "begin"
	PhaseDrag   = "drag"
	PhaseEnd    = "end"
	PhaseCancel = "cancel"
)

// Scaling limits. Strokes scale by a bounded factor per drag step and
// overall; circles follow the drag distance from where the gesture began.
const (
	stepMin   = 0.7
	stepMax   = 1.3
	stepSpan  = 120.0
	scaleMin  = 0.2
	scaleMax  = 5.0
	circleMin = 10.0
	circleMax = 1000.0
)

// gesture is the state of one begin, drag, end sequence.
type gesture struct {
	active  bool
	start   vec.Vec2
	last    vec.Vec2
	target  state.Change
	snapped bool

	stroke []geom.SpherePoint
	circle state.SavedCircle
	base   float64
	dist   float64
	total  float64
}

// Tap handles a tap that did not start a drag.
func (c *Controller) Tap(ctx context.Context, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.mode {
	case DrawPoint:
		if _, err := c.points.Tap(ctx, x, y); err != nil {
			log.Printf("[CONTROL] point: %v", err)
			return
		}
		c.hist.NotePointEdit()
	case Move, Scale:
		c.selectAt(ctx, at(x, y))
	case Delete:
		if ch := c.selectAt(ctx, at(x, y)); ch.Name != "" {
			c.hist.DeleteSelected()
		}
	}
}

// Begin starts a drag at x, y. A drag already in progress ends first.
func (c *Controller) Begin(ctx context.Context, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle(ctx)

	p := at(x, y)
	c.g = gesture{active: true, start: p, last: p, total: 1}
	switch c.mode {
	case Freehand:
		c.free.Start(x, y, c.color)
	case Shape:
		if err := c.shapes.Start(ctx, c.kind, x, y); err != nil {
			log.Printf("[CONTROL] shape: %v", err)
			c.g = gesture{}
			return
		}
	case Move, Scale:
		c.g.target = c.selectAt(ctx, p)
		switch c.g.target.Kind {
		case state.KindStroke:
			s, _ := c.hist.Stroke(c.g.target.Name)
			c.g.stroke = s.Points
		case state.KindCircle:
			c.g.circle, _ = c.hist.Circle(c.g.target.Name)
			c.g.base = c.g.circle.Diameter
		}
	default:
		c.g = gesture{}
		return
	}
	c.armWatchdog()
}

// Drag continues the gesture at x, y.
func (c *Controller) Drag(ctx context.Context, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.g.active {
		return
	}
	p := at(x, y)
	c.armWatchdog()
	switch c.mode {
	case Freehand:
		c.free.Move(x, y)
	case Shape:
		c.shapes.ResizeTo(x, y)
	case Move:
		c.dragMove(ctx, p)
	case Scale:
		c.dragScale(ctx, p)
	}
	c.g.last = p
}

// End finishes the gesture.
func (c *Controller) End(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle(ctx)
}

// Cancel is treated like End so no preview is left behind.
func (c *Controller) Cancel(ctx context.Context) { c.End(ctx) }

func (c *Controller) dragMove(ctx context.Context, p vec.Vec2) {
	name := c.g.target.Name
	switch c.g.target.Kind {
	case state.KindStroke:
		c.snapshot()
		pts, err := c.free.MoveStroke(ctx, name, c.g.stroke, c.g.last, p)
		if err != nil {
			log.Printf("[CONTROL] move %s: %v", name, err)
			return
		}
		c.g.stroke = pts
	case state.KindCircle:
		sph, err := c.proj.ToSphere(ctx, c.g.last, p)
		if err != nil {
			log.Printf("[CONTROL] move %s: %v", name, err)
			return
		}
		c.snapshot()
		c.g.circle.Ath += sph[1].Ath - sph[0].Ath
		c.g.circle.Atv += sph[1].Atv - sph[0].Atv
		c.rd.ReplaceCircle(ctx, c.g.circle, true)
	default:
		var err error
		switch {
		case c.points.Len() > 0:
			err = c.points.Move(ctx, c.g.last, p)
		case c.free.Active():
			err = c.free.MoveTemp(ctx, c.g.last, p)
		}
		if err != nil {
			log.Printf("[CONTROL] move: %v", err)
		}
	}
}

func (c *Controller) dragScale(ctx context.Context, p vec.Vec2) {
	name := c.g.target.Name
	dist := p.Sub(c.g.start).Length()
	switch c.g.target.Kind {
	case state.KindStroke:
		delta := dist - c.g.dist
		if math.Abs(delta) <= 0.5 {
			return
		}
		c.g.dist = dist
		step := geom.Clamp(1+delta/stepSpan, stepMin, stepMax)
		next := geom.Clamp(c.g.total*step, scaleMin, scaleMax)
		f := next / c.g.total
		if math.Abs(f-1) <= 0.001 {
			return
		}
		c.snapshot()
		pts, err := c.free.ScaleStroke(ctx, name, c.g.stroke, f)
		if err != nil {
			log.Printf("[CONTROL] scale %s: %v", name, err)
			return
		}
		c.g.stroke, c.g.total = pts, next
	case state.KindCircle:
		ratio := math.Max(0.1, 1+(dist-50)/100)
		d := geom.Clamp(math.Round(c.g.base*ratio), circleMin, circleMax)
		if d == c.g.circle.Diameter {
			return
		}
		c.snapshot()
		c.g.circle.Diameter = d
		c.rd.ReplaceCircle(ctx, c.g.circle, true)
	}
}

// snapshot saves the target's position once, on its first change.
func (c *Controller) snapshot() {
	if c.g.snapped {
		return
	}
	c.g.snapped = true
	switch c.g.target.Kind {
	case state.KindStroke:
		c.hist.SnapshotStroke(c.g.target.Name)
	case state.KindCircle:
		c.hist.SnapshotCircle(c.g.target.Name)
	}
}

// settle ends the current gesture: freehand strokes and shapes are
// finalized, and moved annotations are read back into the history.
func (c *Controller) settle(ctx context.Context) {
	g := c.g
	c.g = gesture{}
	c.stopWatchdog()
	if !g.active {
		return
	}
	switch c.mode {
	case Freehand:
		c.finalizeFreehand()
	case Shape:
		c.finalizeShape(ctx)
	case Move, Scale:
		if !g.snapped {
			return
		}
		switch g.target.Kind {
		case state.KindStroke:
			c.ch.QueryPointsDelayed(g.target.Name, draw.TagStrokeUpdate, c.cfg.QueryDelay)
		case state.KindCircle:
			c.ch.QueryProperties(g.target.Name, draw.TagCircleUpdate)
		}
	}
}

func (c *Controller) finalizeFreehand() {
	name := c.hist.NextName("freehand")
	c.colors[name] = c.free.Color()
	if !c.free.Finalize(name) {
		delete(c.colors, name)
	}
}

func (c *Controller) finalizeShape(ctx context.Context) {
	kind := c.shapes.Kind()
	res, err := c.shapes.Finalize(ctx, c.hist.NextName(kind))
	if err != nil {
		c.warn(fmt.Sprintf("%s not saved: %v", kind, err))
		return
	}
	switch {
	case res.Circle != nil:
		c.hist.RecordCircle(*res.Circle)
		go c.confirm(res.Circle.Name, 3)
	case res.Stroke != nil:
		c.hist.RecordStroke(*res.Stroke)
		go c.confirm(res.Stroke.Name, len(res.Stroke.Points))
	}
}

func (c *Controller) onGesture(m bridge.Message) {
	ctx := context.Background()
	switch m.Phase {
	case PhaseTap:
		c.Tap(ctx, m.X, m.Y)
	case PhaseBegin:
		c.Begin(ctx, m.X, m.Y)
	case PhaseDrag:
		c.Drag(ctx, m.X, m.Y)
	case PhaseEnd:
		c.End(ctx)
	case PhaseCancel:
		c.Cancel(ctx)
	default:
		log.Printf("[CONTROL] unknown gesture phase %q", m.Phase)
	}
}
