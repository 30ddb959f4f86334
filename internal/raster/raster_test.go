package raster

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"PanoPaint/internal/outline"
)

var red = color.NRGBA{R: 0xFF, G: 0x3B, B: 0x30, A: 0xFF}

func TestPreviewCircleRing(t *testing.T) {
	o, _ := outline.Lookup(outline.Circle)
	img, err := Preview(o, 40, red)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Fatalf("bounds = %v", b)
	}
	if a := img.NRGBAAt(20, 20).A; a != 0 {
		t.Errorf("center alpha = %d, want transparent", a)
	}
	// the ring passes through the middle of the left edge
	if a := img.NRGBAAt(1, 20).A; a == 0 {
		t.Error("ring missing at left edge")
	}
}

func TestPreviewDiamondCorners(t *testing.T) {
	o, _ := outline.Lookup(outline.Diamond)
	img, err := Preview(o, 100, red)
	if err != nil {
		t.Fatal(err)
	}
	if a := img.NRGBAAt(0, 0).A; a != 0 {
		t.Errorf("corner alpha = %d", a)
	}
	if a := img.NRGBAAt(50, 50).A; a != 0 {
		t.Errorf("center alpha = %d", a)
	}
}

func TestPreviewBadOutline(t *testing.T) {
	if _, err := Preview(outline.Outline{Kind: "x", Width: 1, Height: 1, D: "Q1 1"}, 20, red); err == nil {
		t.Error("unparsable outline rendered")
	}
}

func TestPreviewURL(t *testing.T) {
	o, _ := outline.Lookup(outline.Star)
	url, err := PreviewURL(o, 16, red)
	if err != nil {
		t.Fatal(err)
	}
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("url = %.40s", url)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("decoded width = %d", img.Bounds().Dx())
	}
}
