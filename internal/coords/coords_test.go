package coords

import (
	"context"
	"errors"
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/bridge"
	"PanoPaint/internal/bridge/bridgetest"
	"PanoPaint/internal/geom"
)

func newBridge() (*Bridge, *bridgetest.Viewer) {
	v := bridgetest.New()
	ch := bridge.New(v)
	v.Connect(ch.Post)
	return New(ch), v
}

func TestRoundTrip(t *testing.T) {
	b, v := newBridge()
	ctx := context.Background()
	in := []vec.Vec2{{X: 500, Y: 400}, {X: 640, Y: 210}, {X: 12.5, Y: 799}}

	sph, err := b.ToSphere(ctx, in...)
	if err != nil {
		t.Fatal(err)
	}
	if sph[1] != (geom.SpherePoint{Ath: 14, Atv: -19}) {
		t.Errorf("ToSphere = %v", sph[1])
	}
	back, err := b.ToScreen(ctx, sph...)
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if back[i].Sub(in[i]).Length() > 1e-9 || math.IsNaN(back[i].X) {
			t.Errorf("point %d: %v -> %v", i, in[i], back[i])
		}
	}
	// one frame per batch
	if n := len(v.Frames()); n != 2 {
		t.Errorf("sent %d frames, want 2", n)
	}
}

func TestEmptyBatch(t *testing.T) {
	b, v := newBridge()
	if pts, err := b.ToSphere(context.Background()); pts != nil || err != nil {
		t.Errorf("ToSphere() = %v, %v", pts, err)
	}
	if len(v.Frames()) != 0 {
		t.Error("empty batch sent a frame")
	}
}

type failing struct{}

func (failing) Eval(context.Context, string, ...string) (map[string]float64, error) {
	return nil, bridge.ErrNoSurface
}

func TestErrorsPropagate(t *testing.T) {
	b := New(failing{})
	if _, err := b.ToScreen(context.Background(), geom.SpherePoint{}); !errors.Is(err, bridge.ErrNoSurface) {
		t.Errorf("err = %v", err)
	}
}
