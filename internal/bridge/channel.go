// Package bridge is the command channel between the annotation core and the
// viewer page. Outbound instructions are frames; inbound messages are routed
// by type to handlers running on one event loop.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
)

// DefaultDelay is how long delayed queries wait on the page before reading.
const DefaultDelay = 20 * time.Millisecond

var (
	ErrNoSurface  = errors.New("bridge: no viewer attached")
	ErrNotVisible = errors.New("bridge: object not visible in time")
)

// Surface delivers frames to the page hosting the viewer.
type Surface interface {
	Send(f Frame) error
}

// Handler receives routed messages on the channel's event loop.
type Handler func(Message)

// Channel sends frames to the viewer and dispatches what it posts back.
type Channel struct {
	Verbose bool

	mu       sync.Mutex
	surface  Surface
	handlers map[string]Handler
	pending  map[string]chan Message
	queue    []Message
	wake     chan struct{}
}

// New returns a channel writing to s, which may be nil until a viewer
// connects.
func New(s Surface) *Channel {
	return &Channel{
		surface:  s,
		handlers: make(map[string]Handler),
		pending:  make(map[string]chan Message),
		wake:     make(chan struct{}, 1),
	}
}

// Attach replaces the surface. A nil surface turns every send into a no-op.
func (c *Channel) Attach(s Surface) {
	c.mu.Lock()
	c.surface = s
	c.mu.Unlock()
}

func (c *Channel) send(f Frame) error {
	c.mu.Lock()
	s := c.surface
	c.mu.Unlock()
	if s == nil {
		return ErrNoSurface
	}
	if c.Verbose {
		log.Printf("[BRIDGE] -> %s %s %s", f.Op, f.Name, f.Action)
	}
	return s.Send(f)
}

// Execute runs a command string in the viewer. It never fails: without a
// viewer the command is dropped.
func (c *Channel) Execute(cmd string) {
	cmd = krpano.Normalize(cmd)
	if cmd == "" {
		return
	}
	if err := c.send(Frame{Op: OpCall, Action: cmd}); err != nil && !errors.Is(err, ErrNoSurface) {
		log.Printf("[BRIDGE] execute failed: %v", err)
	}
}

// QueryPoints asks the page to post the points of name as a message of
// type tag.
func (c *Channel) QueryPoints(name, tag string) {
	c.query(Frame{Op: OpPoints, Name: krpano.SanitizeName(name), Tag: tag})
}

// QueryPointsDelayed is QueryPoints run after delay, so the viewer has
// applied earlier commands. A non-positive delay means DefaultDelay.
func (c *Channel) QueryPointsDelayed(name, tag string, delay time.Duration) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	c.query(Frame{Op: OpPoints, Name: krpano.SanitizeName(name), Tag: tag, Delay: int(delay / time.Millisecond)})
}

// QueryProperties asks the page to post position, size and stored circle
// geometry of name as a message of type tag.
func (c *Channel) QueryProperties(name, tag string) {
	c.query(Frame{Op: OpProps, Name: krpano.SanitizeName(name), Tag: tag})
}

func (c *Channel) query(f Frame) {
	if err := c.send(f); err != nil && !errors.Is(err, ErrNoSurface) {
		log.Printf("[BRIDGE] %s query for %s failed: %v", f.Op, f.Name, err)
	}
}

// request sends f with a fresh id and waits for the matching reply.
func (c *Channel) request(ctx context.Context, f Frame) (Message, error) {
	f.ID = uuid.NewString()
	reply := make(chan Message, 1)
	c.mu.Lock()
	c.pending[f.ID] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, f.ID)
		c.mu.Unlock()
	}()

	if err := c.send(f); err != nil {
		return Message{}, err
	}
	select {
	case m := <-reply:
		return m, nil
	case <-ctx.Done():
		return Message{}, fmt.Errorf("bridge: %s %s: %w", f.Op, f.Name, ctx.Err())
	}
}

// Eval runs action and returns the values of vars read right after it.
func (c *Channel) Eval(ctx context.Context, action string, vars ...string) (map[string]float64, error) {
	m, err := c.request(ctx, Frame{Op: OpEval, Action: krpano.Normalize(action), Vars: vars})
	if err != nil {
		return nil, err
	}
	for _, v := range vars {
		if _, ok := m.Values[v]; !ok {
			return nil, fmt.Errorf("bridge: eval reply is missing %s", v)
		}
	}
	return m.Values, nil
}

// Points reads the current points of name.
func (c *Channel) Points(ctx context.Context, name string) ([]geom.SpherePoint, error) {
	m, err := c.request(ctx, Frame{Op: OpPoints, Name: krpano.SanitizeName(name)})
	if err != nil {
		return nil, err
	}
	return m.Points, nil
}

// AwaitPoints polls name until it reports at least atLeast points. It gives up
// with ErrNotVisible when ctx ends first.
func (c *Channel) AwaitPoints(ctx context.Context, name string, atLeast int, every time.Duration) ([]geom.SpherePoint, error) {
	if every <= 0 {
		every = DefaultDelay
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		pts, err := c.Points(ctx, name)
		if err == nil && len(pts) >= atLeast {
			return pts, nil
		}
		if errors.Is(err, ErrNoSurface) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrNotVisible, name)
		case <-t.C:
		}
	}
}

// Handle routes messages of type tag to fn. A later call replaces the
// handler.
func (c *Channel) Handle(tag string, fn Handler) {
	c.mu.Lock()
	c.handlers[tag] = fn
	c.mu.Unlock()
}

// Deliver accepts a raw message from the page. Malformed input is dropped.
// Replies go straight to their waiting request; everything else is queued
// for the event loop.
func (c *Channel) Deliver(raw []byte) {
	m, ok := Decode(raw)
	if !ok {
		if c.Verbose {
			log.Printf("[BRIDGE] dropped malformed message: %.80s", raw)
		}
		return
	}
	c.Post(m)
}

// Post queues an already decoded message.
func (c *Channel) Post(m Message) {
	c.mu.Lock()
	if m.ID != "" {
		if w, ok := c.pending[m.ID]; ok {
			delete(c.pending, m.ID)
			c.mu.Unlock()
			w <- m
			return
		}
	}
	if m.Type == TypeReply {
		// nobody waits anymore
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, m)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Drain dispatches every queued message on the calling goroutine.
func (c *Channel) Drain() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		m := c.queue[0]
		c.queue = c.queue[1:]
		fn := c.handlers[m.Type]
		c.mu.Unlock()

		if fn == nil {
			if c.Verbose {
				log.Printf("[BRIDGE] no handler for %q", m.Type)
			}
			continue
		}
		c.dispatch(fn, m)
	}
}

func (c *Channel) dispatch(fn Handler, m Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[BRIDGE] handler for %q panicked: %v", m.Type, r)
		}
	}()
	fn(m)
}

// Run is the event loop. It returns when ctx is done.
func (c *Channel) Run(ctx context.Context) error {
	for {
		c.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}
	}
}
