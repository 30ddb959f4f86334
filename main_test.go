package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"PanoPaint/internal/outline"
)

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]string{"-tour", "http://pano.local/tour/", "-port", "9000",
		"-watchdog", "5s", "-shape", "kite=kite.svg", "-shape", "dart=dart.svg"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Tour != "http://pano.local/tour" {
		t.Errorf("tour %q, trailing slash not trimmed", cfg.Tour)
	}
	if cfg.Port != 9000 || cfg.Watchdog != 5*time.Second {
		t.Errorf("port %d watchdog %s", cfg.Port, cfg.Watchdog)
	}
	if cfg.Tolerance != 50 {
		t.Errorf("default tolerance %v, want 50", cfg.Tolerance)
	}
	want := []shapeSpec{{"kite", "kite.svg"}, {"dart", "dart.svg"}}
	if len(cfg.Shapes) != len(want) {
		t.Fatalf("shapes %v, want %v", cfg.Shapes, want)
	}
	for i := range want {
		if cfg.Shapes[i] != want[i] {
			t.Errorf("shape %d = %v, want %v", i, cfg.Shapes[i], want[i])
		}
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no tour", nil},
		{"bad port", []string{"-tour", "http://x", "-port", "0"}},
		{"bad tolerance", []string{"-tour", "http://x", "-tolerance", "-1"}},
		{"bad shape", []string{"-tour", "http://x", "-shape", "kite"}},
		{"unknown flag", []string{"-tour", "http://x", "-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseConfig(tt.args); err == nil {
				t.Errorf("parseConfig(%v) succeeded", tt.args)
			}
		})
	}
}

func TestBrowseNeedsNoTour(t *testing.T) {
	cfg, err := parseConfig([]string{"-browse"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.Browse || cfg.BrowseFor != browseWindow {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kite.svg")
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 20"><path d="M10 0 L20 10 L10 20 L0 10 Z"/></svg>`
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := loadShape(shapeSpec{Kind: "kite", Path: path}); err != nil {
		t.Fatalf("loadShape: %v", err)
	}
	if _, ok := outline.Lookup("kite"); !ok {
		t.Error("kite not registered")
	}
	if err := loadShape(shapeSpec{Kind: "gone", Path: filepath.Join(dir, "missing.svg")}); err == nil {
		t.Error("missing file accepted")
	}
}
