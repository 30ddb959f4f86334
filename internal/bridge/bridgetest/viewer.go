// Package bridgetest provides an in-memory viewer that executes the flat
// command grammar, for tests that need a live surface.
package bridgetest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"PanoPaint/internal/bridge"
	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
)

// Screen geometry of the fake view. Sphere angles map linearly to pixels:
// ten pixels per degree around the screen center.
const (
	CenterX = 500.0
	CenterY = 400.0
	Scale   = 10.0
)

// ToSphere is the fake projection from screen to sphere.
func ToSphere(x, y float64) geom.SpherePoint {
	return geom.SpherePoint{Ath: (x - CenterX) / Scale, Atv: (y - CenterY) / Scale}
}

// ToScreen is the inverse of ToSphere.
func ToScreen(p geom.SpherePoint) (x, y float64) {
	return p.Ath*Scale + CenterX, p.Atv*Scale + CenterY
}

// Viewer keeps hotspots as flat property maps.
type Viewer struct {
	mu     sync.Mutex
	post   func(bridge.Message)
	vars   map[string]string
	spots  map[string]map[string]string
	frames []bridge.Frame

	// Err, when set, is returned by Send and nothing runs.
	Err error
}

// New returns an empty viewer. Connect must be called before queries
// produce replies.
func New() *Viewer {
	return &Viewer{
		vars:  make(map[string]string),
		spots: make(map[string]map[string]string),
	}
}

// Connect sets where posted messages go, usually a channel's Post.
func (v *Viewer) Connect(post func(bridge.Message)) {
	v.mu.Lock()
	v.post = post
	v.mu.Unlock()
}

// Send implements bridge.Surface. Delays are ignored.
func (v *Viewer) Send(f bridge.Frame) error {
	v.mu.Lock()
	if v.Err != nil {
		v.mu.Unlock()
		return v.Err
	}
	v.frames = append(v.frames, f)
	var out *bridge.Message
	switch f.Op {
	case bridge.OpCall:
		if err := v.run(f.Action); err != nil {
			v.mu.Unlock()
			return err
		}
	case bridge.OpEval:
		if err := v.run(f.Action); err != nil {
			v.mu.Unlock()
			return err
		}
		m := bridge.Message{Type: bridge.TypeReply, ID: f.ID, Values: map[string]float64{}}
		for _, name := range f.Vars {
			if s, ok := v.read(name); ok {
				if n, err := strconv.ParseFloat(s, 64); err == nil {
					m.Values[name] = n
				}
			}
		}
		out = &m
	case bridge.OpPoints:
		m := bridge.Message{Type: tagOrReply(f), ID: f.ID, Name: f.Name, Points: v.points(f.Name)}
		out = &m
	case bridge.OpProps:
		m := v.props(f)
		out = &m
	}
	post := v.post
	v.mu.Unlock()

	if out != nil && post != nil {
		post(*out)
	}
	return nil
}

func tagOrReply(f bridge.Frame) string {
	if f.Tag == "" {
		return bridge.TypeReply
	}
	return f.Tag
}

func (v *Viewer) run(script string) error {
	calls, err := krpano.Parse(script)
	if err != nil {
		return err
	}
	for _, c := range calls {
		if err := v.call(c); err != nil {
			return fmt.Errorf("%s: %w", c.Fn, err)
		}
	}
	return nil
}

func (v *Viewer) call(c krpano.Call) error {
	need := func(n int) error {
		if len(c.Args) != n {
			return fmt.Errorf("want %d arguments, got %d", n, len(c.Args))
		}
		return nil
	}
	switch c.Fn {
	case "addhotspot":
		if err := need(1); err != nil {
			return err
		}
		v.spots[krpano.Unquote(c.Args[0])] = map[string]string{}
	case "removehotspot":
		if err := need(1); err != nil {
			return err
		}
		delete(v.spots, krpano.Unquote(c.Args[0]))
	case "set":
		if err := need(2); err != nil {
			return err
		}
		v.write(c.Args[0], v.eval(c.Args[1]))
	case "copy":
		if err := need(2); err != nil {
			return err
		}
		if s, ok := v.read(c.Args[1]); ok {
			v.write(c.Args[0], s)
		}
	case "add":
		if err := need(2); err != nil {
			return err
		}
		cur, _ := v.read(c.Args[0])
		a, _ := strconv.ParseFloat(cur, 64)
		b, err := strconv.ParseFloat(v.eval(c.Args[1]), 64)
		if err != nil {
			return err
		}
		v.write(c.Args[0], krpano.Value(a+b))
	case "screentosphere":
		if err := need(4); err != nil {
			return err
		}
		x, y, err := v.pair(c.Args[0], c.Args[1])
		if err != nil {
			return err
		}
		p := ToSphere(x, y)
		v.write(c.Args[2], krpano.Value(p.Ath))
		v.write(c.Args[3], krpano.Value(p.Atv))
	case "spheretoscreen":
		if err := need(4); err != nil {
			return err
		}
		a, b, err := v.pair(c.Args[0], c.Args[1])
		if err != nil {
			return err
		}
		x, y := ToScreen(geom.SpherePoint{Ath: a, Atv: b})
		v.write(c.Args[2], krpano.Value(x))
		v.write(c.Args[3], krpano.Value(y))
	default:
		return fmt.Errorf("unknown action")
	}
	return nil
}

func (v *Viewer) eval(arg string) string {
	if strings.HasPrefix(arg, "get(") && strings.HasSuffix(arg, ")") {
		s, _ := v.read(arg[4 : len(arg)-1])
		return s
	}
	return krpano.Unquote(arg)
}

func (v *Viewer) pair(a, b string) (float64, float64, error) {
	x, err := strconv.ParseFloat(v.eval(a), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(v.eval(b), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// split resolves hotspot['name'].prop paths.
func split(path string) (spot, prop string, ok bool) {
	const pre = "hotspot['"
	if !strings.HasPrefix(path, pre) {
		return "", "", false
	}
	rest := path[len(pre):]
	end := strings.Index(rest, "'].")
	if end < 0 {
		return "", "", false
	}
	return rest[:end], rest[end+3:], true
}

func (v *Viewer) write(path, value string) {
	if spot, prop, ok := split(path); ok {
		if m, exists := v.spots[spot]; exists {
			m[prop] = value
		}
		return
	}
	v.vars[path] = value
}

func (v *Viewer) read(path string) (string, bool) {
	if spot, prop, ok := split(path); ok {
		s, ok := v.spots[spot][prop]
		return s, ok
	}
	s, ok := v.vars[path]
	return s, ok
}

func (v *Viewer) points(name string) []geom.SpherePoint {
	m, ok := v.spots[name]
	if !ok {
		return nil
	}
	n := -1
	if s, ok := m["userdata.point_count"]; ok {
		if c, err := strconv.Atoi(s); err == nil {
			n = c
		}
	}
	var pts []geom.SpherePoint
	for i := 0; n < 0 || i < n; i++ {
		a, okA := m[fmt.Sprintf("point[%d].ath", i)]
		b, okB := m[fmt.Sprintf("point[%d].atv", i)]
		if !okA || !okB {
			break
		}
		ath, _ := strconv.ParseFloat(a, 64)
		atv, _ := strconv.ParseFloat(b, 64)
		pts = append(pts, geom.SpherePoint{Ath: ath, Atv: atv})
	}
	return pts
}

func (v *Viewer) props(f bridge.Frame) bridge.Message {
	m := bridge.Message{Type: tagOrReply(f), ID: f.ID, Name: f.Name}
	spot, ok := v.spots[f.Name]
	if !ok {
		return m
	}
	num := func(k string) float64 {
		n, _ := strconv.ParseFloat(spot[k], 64)
		return n
	}
	m.Ath, m.Atv = num("ath"), num("atv")
	m.Width, m.Height = num("width"), num("height")
	m.CenterAth, m.CenterAtv = num("userdata.center_ath"), num("userdata.center_atv")
	m.Diameter = num("userdata.diameter")
	return m
}

// Has reports whether a hotspot exists.
func (v *Viewer) Has(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.spots[name]
	return ok
}

// Prop returns a raw hotspot property.
func (v *Viewer) Prop(name, prop string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.spots[name][prop]
}

// PointsOf returns the vertices of a hotspot.
func (v *Viewer) PointsOf(name string) []geom.SpherePoint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.points(name)
}

// Names lists existing hotspots in name order.
func (v *Viewer) Names() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	names := make([]string, 0, len(v.spots))
	for n := range v.spots {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Frames returns every frame received so far.
func (v *Viewer) Frames() []bridge.Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]bridge.Frame(nil), v.frames...)
}
