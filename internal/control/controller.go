// Package control turns gestures and toolbar actions into calls on the
// drawing engines and the history, according to the active mode.
package control

import (
	"context"
	"log"
	"sync"
	"time"

	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/bridge"
	"PanoPaint/internal/draw"
	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
	"PanoPaint/internal/outline"
	"PanoPaint/internal/state"
)

// Channel is the part of the command channel the controller needs.
type Channel interface {
	draw.Commander
	Handle(tag string, fn bridge.Handler)
	AwaitPoints(ctx context.Context, name string, atLeast int, every time.Duration) ([]geom.SpherePoint, error)
}

type Config struct {
	// Tolerance is the hit-test radius in pixels.
	Tolerance      float64
	// Watchdog resets a gesture nobody advanced for this long.
	Watchdog       time.Duration
	// QueryDelay lets the page settle before reading back moved points.
	QueryDelay     time.Duration
	// ConfirmTimeout bounds the check that a finalized shape is visible.
	ConfirmTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Tolerance:      geom.DefaultTolerance,
		Watchdog:       30 * time.Second,
		QueryDelay:     bridge.DefaultDelay,
		ConfirmTimeout: 2 * time.Second,
	}
}

// Controller owns the engines and routes every gesture by mode. Its
// methods are safe to call from the UI and from the channel's event loop.
type Controller struct {
	mu   sync.Mutex
	cfg  Config
	ch   Channel
	proj geom.Projector
	hist *state.History
	rd   *draw.Renderer

	points *draw.PointEngine
	free   *draw.FreehandEngine
	shapes *draw.ShapeEngine

	mode  Mode
	kind  string
	color krpano.Color

	g       gesture
	colors  map[string]krpano.Color
	timer   *time.Timer
	timerID uint64

	// OnChange, when set, is called after the mode changes.
	OnChange func(Mode)
	// OnWarn, when set, receives problems worth telling the user about.
	OnWarn   func(msg string)
}

func New(ch Channel, proj geom.Projector, hist *state.History, rd *draw.Renderer, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.Watchdog <= 0 {
		cfg.Watchdog = def.Watchdog
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = def.ConfirmTimeout
	}
	c := &Controller{
		cfg:    cfg,
		ch:     ch,
		proj:   proj,
		hist:   hist,
		rd:     rd,
		points: draw.NewPointEngine(ch, proj),
		free:   draw.NewFreehandEngine(ch, proj),
		shapes: draw.NewShapeEngine(ch, proj),
		kind:   outline.Circle,
		color:  krpano.DefaultColor,
		colors: make(map[string]krpano.Color),
	}
	ch.Handle(draw.TagFreehandPoints, c.onFreehandPoints)
	ch.Handle(draw.TagStrokeUpdate, c.onStrokeUpdate)
	ch.Handle(draw.TagCircleUpdate, c.onCircleUpdate)
	ch.Handle(bridge.TypeGesture, c.onGesture)
	ch.Handle(bridge.TypeReady, c.onReady)
	return c
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// ShapeKind is the outline used in Shape mode.
func (c *Controller) ShapeKind() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kind
}

// Points is the in-progress point shape.
func (c *Controller) Points() []geom.SpherePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.points.Points()
}

// SetMode switches mode. A gesture in progress ends first, so a freehand
// stroke or shape is finalized, and the selection is cleared.
func (c *Controller) SetMode(m Mode) {
	c.mu.Lock()
	changed := c.switchMode(context.Background(), m)
	c.mu.Unlock()
	if changed {
		c.notify(m)
	}
}

// SetShape switches to Shape mode with the given outline.
func (c *Controller) SetShape(kind string) error {
	if _, ok := outline.Lookup(kind); !ok {
		return draw.ErrUnknownKind
	}
	c.mu.Lock()
	c.kind = kind
	c.switchMode(context.Background(), Shape)
	c.mu.Unlock()
	c.notify(Shape)
	return nil
}

func (c *Controller) switchMode(ctx context.Context, m Mode) bool {
	if m == c.mode {
		return false
	}
	c.settle(ctx)
	if c.mode.selects() {
		c.hist.ClearSelection()
	}
	log.Printf("[CONTROL] mode %s -> %s", c.mode, m)
	c.mode = m
	return true
}

func (c *Controller) notify(m Mode) {
	if c.OnChange != nil {
		c.OnChange(m)
	}
}

func (c *Controller) warn(msg string) {
	log.Printf("[CONTROL] %s", msg)
	if c.OnWarn != nil {
		c.OnWarn(msg)
	}
}

func (c *Controller) Color() krpano.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.color
}

// SetColor sets the color of everything drawn from now on.
func (c *Controller) SetColor(col krpano.Color) {
	c.mu.Lock()
	c.color = col
	c.points.Color = col
	c.shapes.Color = col
	c.mu.Unlock()
}

// Undo removes the newest stroke or circle. With none left it discards
// the freehand stroke or shape preview in progress, and then the last
// vertex of the point shape.
func (c *Controller) Undo() bool {
	if _, ok := c.hist.Undo(); ok {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.free.Discard():
		return true
	case c.shapes.Discard():
		return true
	}
	return c.points.Undo()
}

func (c *Controller) Redo(ctx context.Context) bool {
	_, ok := c.hist.Redo(ctx)
	return ok
}

// ClearAll erases every annotation, the point shape and any preview.
func (c *Controller) ClearAll() {
	c.mu.Lock()
	c.stopWatchdog()
	c.g = gesture{}
	c.free.Discard()
	c.shapes.Discard()
	c.points.Clear()
	c.mu.Unlock()
	c.hist.ClearAll()
}

func (c *Controller) DeleteSelected() bool {
	_, ok := c.hist.DeleteSelected()
	return ok
}

// Close stops the watchdog.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopWatchdog()
	c.mu.Unlock()
}

func (c *Controller) onFreehandPoints(m bridge.Message) {
	c.mu.Lock()
	col, ok := c.colors[m.Name]
	delete(c.colors, m.Name)
	c.mu.Unlock()
	if !ok {
		log.Printf("[CONTROL] ignoring points of unknown stroke %s", m.Name)
		return
	}
	if len(m.Points) == 0 {
		c.warn("stroke " + m.Name + " came back empty")
		return
	}
	c.hist.RecordStroke(state.SavedStroke{Name: m.Name, Points: m.Points, Color: col.String()})
}

func (c *Controller) onStrokeUpdate(m bridge.Message) {
	if !c.hist.ApplyStrokePoints(m.Name, m.Points) {
		log.Printf("[CONTROL] stale stroke update for %s", m.Name)
	}
}

func (c *Controller) onCircleUpdate(m bridge.Message) {
	rec := state.SavedCircle{Name: m.Name, Ath: m.CenterAth, Atv: m.CenterAtv, Diameter: m.Diameter}
	if m.Diameter <= 0 {
		rec.Ath, rec.Atv, rec.Diameter = m.Ath, m.Atv, m.Width
	}
	if !c.hist.ApplyCircle(rec) {
		log.Printf("[CONTROL] stale circle update for %s", m.Name)
	}
}

func (c *Controller) onReady(bridge.Message) {
	log.Printf("[CONTROL] viewer ready, redrawing annotations")
	c.hist.Hydrate(context.Background())
}

// confirm waits until a finalized shape reports its points.
func (c *Controller) confirm(name string, n int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConfirmTimeout)
	defer cancel()
	if _, err := c.ch.AwaitPoints(ctx, name, n, c.cfg.QueryDelay); err != nil {
		c.warn("shape " + name + " may not have saved correctly: " + err.Error())
	}
}

// at converts gesture coordinates.
func at(x, y float64) vec.Vec2 { return vec.Vec2{X: x, Y: y} }
