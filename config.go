package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"PanoPaint/internal/bridge"
	"PanoPaint/internal/control"
	"PanoPaint/internal/coords"
)

// browseWindow is how long -browse listens by default.
const browseWindow = 3 * time.Second

// Config is everything the command line can set.
type Config struct {
	Port      int
	Tour      string
	Tolerance float64
	Watchdog  time.Duration
	Delay     time.Duration
	Timeout   time.Duration
	Verbose   bool
	Advertise bool
	Browse    bool
	BrowseFor time.Duration
	Shapes    []shapeSpec
}

type shapeSpec struct {
	Kind string
	Path string
}

// shapeFlags collects repeated -shape kind=file.svg arguments.
type shapeFlags []shapeSpec

func (s *shapeFlags) String() string {
	parts := make([]string, len(*s))
	for i, sp := range *s {
		parts[i] = sp.Kind + "=" + sp.Path
	}
	return strings.Join(parts, ",")
}

func (s *shapeFlags) Set(v string) error {
	kind, path, ok := strings.Cut(v, "=")
	if !ok || kind == "" || path == "" {
		return fmt.Errorf("want kind=file.svg, got %q", v)
	}
	*s = append(*s, shapeSpec{Kind: kind, Path: path})
	return nil
}

func parseConfig(args []string) (Config, error) {
	def := control.DefaultConfig()
	var (
		cfg    Config
		shapes shapeFlags
	)
	fs := flag.NewFlagSet("panopaint", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", 8888, "port serving the viewer page")
	fs.StringVar(&cfg.Tour, "tour", "", "base URL of the krpano tour (tour.js and tour.xml)")
	fs.Float64Var(&cfg.Tolerance, "tolerance", def.Tolerance, "hit-test radius in pixels")
	fs.DurationVar(&cfg.Watchdog, "watchdog", def.Watchdog, "reset a gesture nobody advanced for this long")
	fs.DurationVar(&cfg.Delay, "delay", bridge.DefaultDelay, "wait before reading back points of a new object")
	fs.DurationVar(&cfg.Timeout, "timeout", coords.DefaultTimeout, "wait for a viewer reply at most this long")
	fs.BoolVar(&cfg.Verbose, "v", false, "log every frame sent to the viewer")
	fs.BoolVar(&cfg.Advertise, "advertise", true, "announce the viewer page over mDNS")
	fs.BoolVar(&cfg.Browse, "browse", false, "list viewer hosts on the local network and exit")
	fs.DurationVar(&cfg.BrowseFor, "browse-for", browseWindow, "how long -browse listens")
	fs.Var(&shapes, "shape", "extra shape as kind=file.svg, repeatable")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Shapes = shapes

	if cfg.Browse {
		return cfg, nil
	}
	if cfg.Tour == "" {
		return Config{}, fmt.Errorf("-tour is required")
	}
	cfg.Tour = strings.TrimSuffix(cfg.Tour, "/")
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("-port %d out of range", cfg.Port)
	}
	if cfg.Tolerance <= 0 {
		return Config{}, fmt.Errorf("-tolerance must be positive")
	}
	return cfg, nil
}
