package draw

import (
	"context"
	"fmt"
	"math"
	"testing"

	"fyne.io/fyne/v2/test"
	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/bridge"
	"PanoPaint/internal/bridge/bridgetest"
	"PanoPaint/internal/coords"
	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
	"PanoPaint/internal/outline"
	"PanoPaint/internal/state"
)

type rig struct {
	ch     *bridge.Channel
	viewer *bridgetest.Viewer
	proj   *coords.Bridge
}

func newRig() rig {
	v := bridgetest.New()
	ch := bridge.New(v)
	v.Connect(ch.Post)
	return rig{ch: ch, viewer: v, proj: coords.New(ch)}
}

func TestPointPolygonLifecycle(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewPointEngine(r.ch, r.proj)

	taps := []vec.Vec2{{X: 500, Y: 400}, {X: 600, Y: 400}, {X: 600, Y: 500}}
	for _, p := range taps {
		if closed, err := e.Tap(ctx, p.X, p.Y); err != nil || closed {
			t.Fatalf("Tap(%v) = %v, %v", p, closed, err)
		}
	}
	for _, n := range []string{"rn_dot_0", "rn_dot_2", "painter_pair_0", "painter_pair_1"} {
		if !r.viewer.Has(n) {
			t.Errorf("missing %s", n)
		}
	}
	if r.viewer.Has(PolygonName) {
		t.Fatal("polygon before closing")
	}

	// lands within the snap radius of the first vertex
	closed, err := e.Tap(ctx, 508, 393)
	if err != nil || !closed {
		t.Fatalf("closing tap = %v, %v", closed, err)
	}
	ring := r.viewer.PointsOf(PolygonName)
	if len(ring) != 5 || ring[0] != ring[4] || ring[3] != ring[0] {
		t.Errorf("polygon points = %v", ring)
	}
	if r.viewer.Prop(PolygonName, "fillalpha") != "0.1" {
		t.Errorf("fillalpha = %q", r.viewer.Prop(PolygonName, "fillalpha"))
	}
	if r.viewer.Prop("rn_dot_1", "visible") != "false" {
		t.Error("markers still visible on a closed polygon")
	}
	if closed, _ := e.Tap(ctx, 700, 700); !closed || e.Len() != 4 {
		t.Error("tap on a closed polygon changed it")
	}

	if !e.Undo() {
		t.Fatal("Undo found nothing")
	}
	if e.Closed() || e.Len() != 3 || r.viewer.Has("rn_dot_3") || r.viewer.Has("painter_pair_2") {
		t.Errorf("after undo: closed=%v len=%d names=%v", e.Closed(), e.Len(), r.viewer.Names())
	}
	if got := r.viewer.PointsOf(PolygonName); len(got) != 4 {
		t.Errorf("rebuilt polygon has %d points", len(got))
	}
	if r.viewer.Prop("rn_dot_1", "visible") != "true" {
		t.Error("markers hidden after undo")
	}

	e.Clear()
	if names := r.viewer.Names(); len(names) != 0 {
		t.Errorf("left behind %v", names)
	}
	if e.Undo() {
		t.Error("Undo after Clear reported a change")
	}
}

func TestPointUndoBelowThreeDropsPolygon(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewPointEngine(r.ch, r.proj)
	for _, p := range []vec.Vec2{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}} {
		e.Tap(ctx, p.X, p.Y)
	}
	e.Tap(ctx, 0, 0)
	e.Undo()
	e.Undo()
	if r.viewer.Has(PolygonName) || e.Polygon() {
		t.Error("polygon kept with two vertices")
	}
}

func TestPointSnapAndMove(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewPointEngine(r.ch, r.proj)
	e.Tap(ctx, 500, 400)
	e.Tap(ctx, 600, 400)
	e.Tap(ctx, 615, 385)
	pts := e.Points()
	if pts[2] != pts[1] {
		t.Errorf("tap near a vertex not snapped: %v", pts)
	}
	e.Tap(ctx, 621, 400)
	if pts := e.Points(); pts[3] == pts[1] {
		t.Error("tap outside the snap radius was snapped")
	}

	if err := e.Move(ctx, vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 50, Y: -20}); err != nil {
		t.Fatal(err)
	}
	got := r.viewer.PointsOf("painter_pair_0")
	if len(got) != 2 || got[0] != (geom.SpherePoint{Ath: 5, Atv: -2}) {
		t.Errorf("segment after move = %v", got)
	}
	if r.viewer.Prop("rn_dot_0", "ath") != "5" {
		t.Errorf("marker ath = %q", r.viewer.Prop("rn_dot_0", "ath"))
	}
}

func TestFreehandStroke(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewFreehandEngine(r.ch, r.proj)

	var posted []bridge.Message
	r.ch.Handle(TagFreehandPoints, func(m bridge.Message) { posted = append(posted, m) })

	e.Start(500, 400, krpano.DefaultColor)
	e.Move(510, 400)
	e.Move(520, 410)
	e.Move(520, 410)
	if e.Count() != 4 {
		t.Fatalf("Count = %d; every sample is a vertex", e.Count())
	}
	if !e.Finalize("s/1") {
		t.Fatal("Finalize rejected the stroke")
	}
	if r.viewer.Has(TempStroke) || !r.viewer.Has("s_1") {
		t.Fatalf("hotspots = %v", r.viewer.Names())
	}
	if r.viewer.Prop("s_1", "userdata.point_count") != "4" {
		t.Errorf("point_count = %q", r.viewer.Prop("s_1", "userdata.point_count"))
	}
	r.ch.Drain()
	if len(posted) != 1 || posted[0].Name != "s_1" || len(posted[0].Points) != 4 {
		t.Fatalf("posted = %+v", posted)
	}
	if posted[0].Points[2] != (geom.SpherePoint{Ath: 2, Atv: 1}) {
		t.Errorf("third point = %v", posted[0].Points[2])
	}

	if e.Finalize("empty") {
		t.Error("Finalize without a stroke succeeded")
	}
	if err := e.MoveTemp(ctx, vec.Vec2{}, vec.Vec2{X: 1}); err != ErrNoStroke {
		t.Errorf("MoveTemp = %v", err)
	}
}

func TestFreehandTempMoveAndDiscard(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewFreehandEngine(r.ch, r.proj)
	e.Start(500, 400, krpano.DefaultColor)
	e.Move(500, 500)
	if err := e.MoveTemp(ctx, vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 100, Y: 0}); err != nil {
		t.Fatal(err)
	}
	if got := r.viewer.PointsOf(TempStroke); got[1] != (geom.SpherePoint{Ath: 10, Atv: 10}) {
		t.Errorf("temp points = %v", got)
	}
	e.SetSelected(true)
	if r.viewer.Prop(TempStroke, "bordercolor") != krpano.SelectedColor.String() {
		t.Error("temp stroke not highlighted")
	}
	if !e.Discard() || r.viewer.Has(TempStroke) || e.Active() {
		t.Error("Discard left the temp stroke")
	}
}

func TestStrokeMoveAndScale(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewFreehandEngine(r.ch, r.proj)
	rd := NewRenderer(r.ch, r.proj)

	s := state.SavedStroke{Name: "sq", Points: []geom.SpherePoint{
		{Ath: -2, Atv: -1}, {Ath: 2, Atv: -1}, {Ath: 2, Atv: 1}, {Ath: -2, Atv: 1},
	}}
	rd.DrawStroke(ctx, s)

	moved, err := e.MoveStroke(ctx, s.Name, s.Points, vec.Vec2{X: 500, Y: 400}, vec.Vec2{X: 530, Y: 380})
	if err != nil {
		t.Fatal(err)
	}
	if moved[0] != (geom.SpherePoint{Ath: 1, Atv: -3}) {
		t.Errorf("moved = %v", moved)
	}
	if got := r.viewer.PointsOf("sq"); got[0] != moved[0] || got[3] != moved[3] {
		t.Errorf("viewer points = %v, want %v", got, moved)
	}

	before, _ := r.proj.ToScreen(ctx, moved...)
	scaled, err := e.ScaleStroke(ctx, s.Name, moved, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	after, _ := r.proj.ToScreen(ctx, scaled...)
	if d := geom.Centroid(after).Sub(geom.Centroid(before)).Length(); d > 1e-9 {
		t.Errorf("centroid moved by %v", d)
	}
	w0, w1 := before[1].X-before[0].X, after[1].X-after[0].X
	if math.Abs(w1-1.5*w0) > 1e-9 {
		t.Errorf("width %v -> %v", w0, w1)
	}
	if got := r.viewer.PointsOf("sq"); got[2] != scaled[2] {
		t.Errorf("viewer not updated: %v", got)
	}
}

func TestCircleShape(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewShapeEngine(r.ch, r.proj)

	if err := e.Start(ctx, outline.Circle, 600, 400); err != nil {
		t.Fatal(err)
	}
	temp := tempName(outline.Circle)
	if !r.viewer.Has(temp) || r.viewer.Prop(temp, "width") != "20" {
		t.Fatalf("preview width = %q", r.viewer.Prop(temp, "width"))
	}
	e.ResizeTo(650, 400)
	if e.Diameter() != 100 {
		t.Errorf("Diameter = %v", e.Diameter())
	}
	res, err := e.Finalize(ctx, "circle_1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Circle == nil || res.Stroke != nil {
		t.Fatalf("Finalize = %+v", res)
	}
	if *res.Circle != (state.SavedCircle{Name: "circle_1", Ath: 10, Atv: 0, Diameter: 100}) {
		t.Errorf("circle = %+v", *res.Circle)
	}
	pts := r.viewer.PointsOf("circle_1")
	if len(pts) != 101 || pts[0] != pts[100] {
		t.Errorf("circle has %d points", len(pts))
	}
	if r.viewer.Has(temp) || e.Active() {
		t.Error("preview left behind")
	}
	if r.viewer.Prop("circle_1", "userdata.diameter") != "100" {
		t.Error("diameter not stored on the hotspot")
	}
}

func TestCircleSampleBounds(t *testing.T) {
	tests := []struct {
		diameter float64
		want     int
	}{
		{10, 24 + 1},
		{2000, 180 + 1},
	}
	for _, tc := range tests {
		r := newRig()
		ctx := context.Background()
		e := NewShapeEngine(r.ch, r.proj)
		e.Start(ctx, outline.Circle, 500, 400)
		e.Resize(tc.diameter)
		if _, err := e.Finalize(ctx, "c"); err != nil {
			t.Fatal(err)
		}
		if got := len(r.viewer.PointsOf("c")); got != tc.want {
			t.Errorf("diameter %v: %d points, want %d", tc.diameter, got, tc.want)
		}
	}
}

func TestOutlineShape(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewShapeEngine(r.ch, r.proj)
	e.Start(ctx, outline.Diamond, 500, 400)
	e.Resize(3)
	if e.Diameter() != outlineMin {
		t.Errorf("Diameter = %v, want the minimum", e.Diameter())
	}
	e.Resize(200)
	res, err := e.Finalize(ctx, "diamond_1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Stroke == nil || len(res.Stroke.Points) != 6 {
		t.Fatalf("Finalize = %+v", res)
	}
	// M50 10 sits 0.8 of the radius above the center
	if p := res.Stroke.Points[0]; math.Abs(p.Ath) > 1e-9 || math.Abs(p.Atv+8) > 1e-9 {
		t.Errorf("first point = %v", res.Stroke.Points[0])
	}
	if r.viewer.Prop("diamond_1", "closepath") != "true" || r.viewer.Has(tempName(outline.Diamond)) {
		t.Error("closed polyline not created cleanly")
	}
}

func TestOutlineFallback(t *testing.T) {
	if err := outline.Register(outline.Outline{Kind: "broken", Width: 10, Height: 10, D: "M0 0L1 1"}); err != nil {
		t.Fatal(err)
	}
	r := newRig()
	ctx := context.Background()
	e := NewShapeEngine(r.ch, r.proj)
	if err := e.Start(ctx, "broken", 500, 400); err != nil {
		t.Fatal(err)
	}
	res, err := e.Finalize(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Stroke == nil || len(res.Stroke.Points) != 9 {
		t.Errorf("fallback = %+v", res)
	}
	if r.viewer.Has(tempName("broken")) {
		t.Error("preview left behind")
	}
}

func TestShapeErrors(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	e := NewShapeEngine(r.ch, r.proj)
	if err := e.Start(ctx, "hexagon", 0, 0); err == nil {
		t.Error("unknown kind accepted")
	}
	if _, err := e.Finalize(ctx, "x"); err != ErrNoPreview {
		t.Errorf("Finalize = %v", err)
	}
	if e.Discard() {
		t.Error("Discard without preview")
	}
}

func TestRendererCircleAndHighlight(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	rd := NewRenderer(r.ch, r.proj)
	c := state.SavedCircle{Name: "c", Ath: -5, Atv: 5, Diameter: 60}
	rd.DrawCircle(ctx, c)
	pts := r.viewer.PointsOf("c")
	if len(pts) != 61 {
		t.Fatalf("got %d points", len(pts))
	}
	for _, p := range pts {
		if d := math.Hypot(p.Ath+5, p.Atv-5); math.Abs(d-3) > 1e-9 {
			t.Fatalf("point %v off the circle", p)
		}
	}
	rd.HighlightCircle(c, true)
	if r.viewer.Prop("c", "bordercolor") != "0x34C759" {
		t.Error("circle not highlighted")
	}
	rd.HighlightCircle(c, false)
	if r.viewer.Prop("c", "bordercolor") != "0xFF3B30" {
		t.Error("circle highlight not cleared")
	}

	s := state.SavedStroke{Name: "s", Points: pts[:3], Color: "0x0000FF"}
	rd.DrawStroke(ctx, s)
	rd.HighlightStroke(s, true)
	if r.viewer.Prop("s", "borderwidth") != "4" {
		t.Error("stroke not highlighted")
	}
	rd.HighlightStroke(s, false)
	if r.viewer.Prop("s", "bordercolor") != "0x0000FF" {
		t.Error("stroke color not restored")
	}
	rd.Erase("s")
	if r.viewer.Has("s") {
		t.Error("Erase left the stroke")
	}
}

func TestHydratedStrokesReadBack(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	store := state.NewPrefsStore(test.NewApp().Preferences())
	hist := state.NewHistory(store, NewRenderer(r.ch, r.proj))

	var want []state.SavedStroke
	for i, n := range []int{1, 2, 5, 40, 180} {
		s := state.SavedStroke{Name: fmt.Sprintf("stroke_%d", i)}
		for k := 0; k < n; k++ {
			s.Points = append(s.Points, geom.SpherePoint{
				Ath: -170 + float64(k)*1.37,
				Atv: 40 * math.Sin(float64(k)/7),
			})
		}
		hist.RecordStroke(s)
		want = append(want, s)
	}

	fresh := state.NewHistory(store, NewRenderer(r.ch, r.proj))
	fresh.Load()
	for _, s := range want {
		r.ch.Execute(krpano.H(s.Name).Remove())
		if r.viewer.Has(s.Name) {
			t.Fatalf("%s still shown before hydration", s.Name)
		}
	}
	fresh.Hydrate(ctx)

	queried := map[string][]geom.SpherePoint{}
	r.ch.Handle("stroke_check", func(m bridge.Message) { queried[m.Name] = m.Points })
	for _, s := range want {
		got, err := r.ch.Points(ctx, s.Name)
		if err != nil {
			t.Fatalf("Points(%s): %v", s.Name, err)
		}
		samePoints(t, s.Name, got, s.Points)
		r.ch.QueryPoints(s.Name, "stroke_check")
	}
	r.ch.Drain()
	for _, s := range want {
		samePoints(t, s.Name+" via query", queried[s.Name], s.Points)
	}
}

func samePoints(t *testing.T, name string, got, want []geom.SpherePoint) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: read back %d points, want %d", name, len(got), len(want))
		return
	}
	for i := range want {
		if !geom.Near(got[i], want[i], 1e-9) {
			t.Errorf("%s: point %d = %v, want %v", name, i, got[i], want[i])
			return
		}
	}
}
