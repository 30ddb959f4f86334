// Package raster draws shape previews into small bitmaps that the viewer
// shows while a shape is being sized.
package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/vec"

	"PanoPaint/internal/outline"
)

// LineWidth is the preview stroke width in pixels.
const LineWidth = 2.0

// Preview renders the outline stroked in col, scaled to fill a square of
// size pixels.
func Preview(o outline.Outline, size int, col color.Color) (*image.NRGBA, error) {
	if size < 1 {
		size = 1
	}
	unit, err := o.Unit()
	if err != nil {
		return nil, err
	}
	half := float64(size) / 2
	// keep the stroke inside the bitmap
	r := half - LineWidth/2
	if r < 0.5 {
		r = 0.5
	}
	center := vec.Vec2{X: half, Y: half}
	pts := make([]vec.Vec2, len(unit))
	for i, u := range unit {
		pts[i] = center.Add(u.Mul(r))
	}

	z := vector.NewRasterizer(size, size)
	for i := 1; i < len(pts); i++ {
		segment(z, pts[i-1], pts[i], LineWidth)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	z.Draw(dst, dst.Bounds(), image.NewUniform(col), image.Point{})
	return dst, nil
}

// segment adds the quad covering a-b at width w. Every quad has the same
// winding, so overlaps at joints saturate instead of cancelling.
func segment(z *vector.Rasterizer, a, b vec.Vec2, w float64) {
	d := b.Sub(a)
	l := d.Length()
	if l == 0 {
		return
	}
	n := vec.Vec2{X: -d.Y, Y: d.X}.Mul(w / 2 / l)
	p0, p1, p2, p3 := a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)
	z.MoveTo(float32(p0.X), float32(p0.Y))
	z.LineTo(float32(p1.X), float32(p1.Y))
	z.LineTo(float32(p2.X), float32(p2.Y))
	z.LineTo(float32(p3.X), float32(p3.Y))
	z.ClosePath()
}

// DataURL encodes img as a base64 PNG data URL.
func DataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// PreviewURL renders the outline and returns it as a data URL.
func PreviewURL(o outline.Outline, size int, col color.Color) (string, error) {
	img, err := Preview(o, size, col)
	if err != nil {
		return "", err
	}
	return DataURL(img)
}
