package bridge_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PanoPaint/internal/bridge"
	"PanoPaint/internal/bridge/bridgetest"
)

func setup() (*bridge.Channel, *bridgetest.Viewer) {
	v := bridgetest.New()
	ch := bridge.New(v)
	v.Connect(ch.Post)
	return ch, v
}

func TestExecuteWithoutViewer(t *testing.T) {
	ch := bridge.New(nil)
	ch.Execute("addhotspot('a')")
	ch.QueryPoints("a", "tag")
	if _, err := ch.Points(context.Background(), "a"); !errors.Is(err, bridge.ErrNoSurface) {
		t.Errorf("err = %v, want ErrNoSurface", err)
	}
}

func TestExecuteNormalizes(t *testing.T) {
	ch, v := setup()
	ch.Execute("  addhotspot('a');\n\n  set(hotspot['a'].ath,   12)  ")
	ch.Execute("   ")
	frames := v.Frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if want := "addhotspot('a'); set(hotspot['a'].ath, 12);"; frames[0].Action != want {
		t.Errorf("action = %q, want %q", frames[0].Action, want)
	}
}

func TestQuerySanitizesAndRoutes(t *testing.T) {
	ch, v := setup()
	ch.Execute("addhotspot('s_1'); set(hotspot['s_1'].point[0].ath, 1); set(hotspot['s_1'].point[0].atv, 2);")

	var got []bridge.Message
	ch.Handle("stroke_points", func(m bridge.Message) { got = append(got, m) })

	ch.QueryPoints("s 1", "stroke_points")
	ch.QueryPointsDelayed("s 1", "stroke_points", 0)
	ch.Drain()

	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Name != "s_1" || len(got[0].Points) != 1 || got[0].Points[0].Atv != 2 {
		t.Errorf("message = %+v", got[0])
	}
	frames := v.Frames()
	if d := frames[len(frames)-1].Delay; d != int(bridge.DefaultDelay/time.Millisecond) {
		t.Errorf("delay = %d", d)
	}
}

func TestDeliverIgnoresMalformed(t *testing.T) {
	ch := bridge.New(nil)
	calls := 0
	ch.Handle("x", func(bridge.Message) { calls++ })
	for _, raw := range []string{``, `{`, `[]`, `{"name":"a"}`, `{"type":"x","points":"nope"}`} {
		ch.Deliver([]byte(raw))
	}
	ch.Deliver([]byte(`{"type":"x"}`))
	ch.Deliver([]byte(`{"type":"unknown"}`))
	ch.Drain()
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	ch := bridge.New(nil)
	ch.Handle("boom", func(bridge.Message) { panic("bad") })
	ok := false
	ch.Handle("after", func(bridge.Message) { ok = true })
	ch.Post(bridge.Message{Type: "boom"})
	ch.Post(bridge.Message{Type: "after"})
	ch.Drain()
	if !ok {
		t.Error("queue stopped after a panicking handler")
	}
}

func TestEval(t *testing.T) {
	ch, _ := setup()
	vals, err := ch.Eval(context.Background(), "screentosphere(600, 300, __a, __v);", "__a", "__v")
	if err != nil {
		t.Fatal(err)
	}
	if vals["__a"] != 10 || vals["__v"] != -10 {
		t.Errorf("values = %v", vals)
	}
	if _, err := ch.Eval(context.Background(), "set(__x, 1);", "__missing"); err == nil {
		t.Error("missing variable not reported")
	}
}

// blockingSurface never replies.
type blockingSurface struct{}

func (blockingSurface) Send(bridge.Frame) error { return nil }

func TestRequestTimeout(t *testing.T) {
	ch := bridge.New(blockingSurface{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := ch.Eval(ctx, "set(a, 1);", "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	// a late reply must not reach the handlers
	seen := false
	ch.Handle(bridge.TypeReply, func(bridge.Message) { seen = true })
	ch.Post(bridge.Message{Type: bridge.TypeReply, ID: "late"})
	ch.Drain()
	if seen {
		t.Error("stale reply dispatched")
	}
}

func TestAwaitPoints(t *testing.T) {
	ch, _ := setup()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := ch.AwaitPoints(ctx, "ghost", 3, 5*time.Millisecond); !errors.Is(err, bridge.ErrNotVisible) {
		t.Errorf("err = %v, want ErrNotVisible", err)
	}

	ch.Execute("addhotspot('tri'); set(hotspot['tri'].point[0].ath, 0); set(hotspot['tri'].point[0].atv, 0);" +
		"set(hotspot['tri'].point[1].ath, 1); set(hotspot['tri'].point[1].atv, 0);" +
		"set(hotspot['tri'].point[2].ath, 0); set(hotspot['tri'].point[2].atv, 1);")
	pts, err := ch.AwaitPoints(context.Background(), "tri", 3, time.Millisecond)
	if err != nil || len(pts) != 3 {
		t.Errorf("AwaitPoints = %v, %v", pts, err)
	}
}

func TestRunDispatchesOnOneGoroutine(t *testing.T) {
	ch := bridge.New(nil)
	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	ch.Handle("n", func(m bridge.Message) {
		mu.Lock()
		got = append(got, m.Name)
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- ch.Run(ctx) }()

	for _, n := range []string{"a", "b", "c"} {
		ch.Deliver([]byte(`{"type":"n","name":"` + n + `"}`))
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("messages not dispatched")
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("order = %v", got)
	}
}
