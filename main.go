package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"fyne.io/fyne/v2/app"

	"PanoPaint/internal/bridge"
	"PanoPaint/internal/control"
	"PanoPaint/internal/coords"
	"PanoPaint/internal/draw"
	pnet "PanoPaint/internal/net"
	"PanoPaint/internal/outline"
	"PanoPaint/internal/state"
	"PanoPaint/internal/ui"
)

const AppID = "io.panopaint.host"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Browse {
		runBrowse(cfg)
		return
	}
	runHost(cfg)
}

func runHost(cfg Config) {
	log.Println("Starting viewer host")
	for _, s := range cfg.Shapes {
		if err := loadShape(s); err != nil {
			log.Fatal(err)
		}
	}

	ch := bridge.New(nil)
	ch.Verbose = cfg.Verbose
	hub, err := pnet.NewHub(cfg.Tour, ch.Deliver)
	if err != nil {
		log.Fatal(err)
	}
	ch.Attach(hub)

	proj := coords.New(ch)
	proj.Timeout = cfg.Timeout
	rd := draw.NewRenderer(ch, proj)

	a := app.NewWithID(AppID)
	hist := state.NewHistory(state.NewPrefsStore(a.Preferences()), rd)
	hist.Load()
	ctl := control.New(ch, proj, hist, rd, control.Config{
		Tolerance:      cfg.Tolerance,
		Watchdog:       cfg.Watchdog,
		QueryDelay:     cfg.Delay,
		ConfirmTimeout: cfg.Timeout,
	})
	defer ctl.Close()

	w, panel := ui.NewWindow(a, ctl, hist, ch)
	url := pnet.ViewerURL(pnet.OutgoingIP(), cfg.Port)
	panel.Status.SetText("Open " + url + " on the viewing device")
	hub.OnConnect = func(p *pnet.Peer) {
		panel.SetStatus("Viewer connected from " + p.Addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)
	go func() {
		if err := hub.ListenAndServe(ctx, cfg.Port); err != nil {
			log.Printf("[HUB] %v", err)
			panel.SetStatus(err.Error())
		}
	}()
	if cfg.Advertise {
		srv, err := pnet.Advertise(cfg.Port, cfg.Tour)
		if err != nil {
			log.Printf("[HUB] not advertising: %v", err)
		} else {
			defer srv.Shutdown()
		}
	}

	log.Printf("Viewer page at %s", url)
	w.ShowAndRun()
}

func runBrowse(cfg Config) {
	log.Println("Looking for viewer hosts")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.BrowseFor)
	defer cancel()
	n := 0
	err := pnet.Browse(ctx, func(url string) {
		n++
		fmt.Println(url)
	})
	if err != nil {
		log.Fatalf("browse: %v", err)
	}
	if n == 0 {
		log.Printf("no hosts answered within %s", cfg.BrowseFor)
	}
}

// loadShape registers an extra outline from a kind=file.svg argument.
func loadShape(s shapeSpec) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("shape %s: %w", s.Kind, err)
	}
	defer f.Close()
	o, err := outline.Extract(s.Kind, f)
	if err != nil {
		return fmt.Errorf("shape %s: %w", s.Kind, err)
	}
	if err := outline.Register(o); err != nil {
		return err
	}
	log.Printf("registered shape %s from %s", s.Kind, s.Path)
	return nil
}
