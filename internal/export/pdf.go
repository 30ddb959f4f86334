// Package export renders the annotations onto an equirectangular chart of
// the panorama and writes it as a PDF.
package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/jung-kurt/gofpdf"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
	"PanoPaint/internal/state"
)

// Shape is one annotation outline to draw.
type Shape struct {
	Name   string
	Points []geom.SpherePoint
	Color  krpano.Color
}

// PointSource reads the current outline of a drawn annotation.
type PointSource interface {
	Points(ctx context.Context, name string) ([]geom.SpherePoint, error)
}

// ReadTimeout bounds the circle read-back when ctx has no deadline.
const ReadTimeout = 2 * time.Second

// Collect gathers every stroke and circle in h. Circles are read back
// from the viewer since only their center and pixel size are stored; a
// circle that cannot be read is left out.
func Collect(ctx context.Context, h *state.History, src PointSource) []Shape {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ReadTimeout)
		defer cancel()
	}
	var out []Shape
	for _, s := range h.Strokes() {
		col, err := krpano.ParseColor(s.Color)
		if err != nil {
			col = krpano.DefaultColor
		}
		out = append(out, Shape{Name: s.Name, Points: s.Points, Color: col})
	}
	for _, c := range h.Circles() {
		pts, err := src.Points(ctx, c.Name)
		if err != nil || len(pts) == 0 {
			log.Printf("[EXPORT] skipping circle %s: %v", c.Name, err)
			continue
		}
		out = append(out, Shape{Name: c.Name, Points: pts, Color: krpano.DefaultColor})
	}
	return out
}

// Page layout in millimetres, A4 landscape.
const (
	margin     = 15.0
	pageWidth  = 297.0
	pageHeight = 210.0
	gridStep   = 30.0
)

type chart struct {
	x, y, w, h float64
}

func newChart() chart {
	w := pageWidth - 2*margin
	h := w / 2
	if limit := pageHeight - 2*margin - 10; h > limit {
		h = limit
		w = 2 * h
	}
	return chart{x: (pageWidth - w) / 2, y: margin + 10, w: w, h: h}
}

// wrap folds ath into [-180, 180).
func wrap(ath float64) float64 {
	a := math.Mod(ath+180, 360)
	if a < 0 {
		a += 360
	}
	return a - 180
}

// place maps a sphere point onto the chart.
func (c chart) place(p geom.SpherePoint) (float64, float64) {
	x := c.x + (wrap(p.Ath)+180)/360*c.w
	y := c.y + (geom.Clamp(p.Atv, -90, 90)+90)/180*c.h
	return x, y
}

// seam reports whether a segment crosses the ±180 meridian, which the
// chart shows at both edges instead of across the page.
func seam(a, b geom.SpherePoint) bool {
	return math.Abs(wrap(a.Ath)-wrap(b.Ath)) > 180
}

// PDF writes the shapes to w.
func PDF(w io.Writer, title string, shapes []Shape) error {
	p := gofpdf.New("L", "mm", "A4", "")
	p.SetTitle(title, true)
	p.AddPage()
	c := newChart()

	p.SetFont("Helvetica", "B", 14)
	p.Text(margin, margin+2, title)
	p.SetFont("Helvetica", "", 8)
	p.Text(margin, margin+7, fmt.Sprintf("%d annotations", len(shapes)))

	p.SetDrawColor(200, 200, 200)
	p.SetLineWidth(0.2)
	for ath := -180.0; ath <= 180; ath += gridStep {
		x, _ := c.place(geom.SpherePoint{Ath: ath})
		if ath == 180 {
			x = c.x + c.w
		}
		p.Line(x, c.y, x, c.y+c.h)
	}
	for atv := -90.0; atv <= 90; atv += gridStep {
		_, y := c.place(geom.SpherePoint{Atv: atv})
		p.Line(c.x, y, c.x+c.w, y)
	}
	p.SetDrawColor(0, 0, 0)
	p.Rect(c.x, c.y, c.w, c.h, "D")

	p.SetLineWidth(0.5)
	for _, s := range shapes {
		rgba := s.Color.NRGBA()
		p.SetDrawColor(int(rgba.R), int(rgba.G), int(rgba.B))
		for i := 1; i < len(s.Points); i++ {
			a, b := s.Points[i-1], s.Points[i]
			if seam(a, b) {
				continue
			}
			x1, y1 := c.place(a)
			x2, y2 := c.place(b)
			p.Line(x1, y1, x2, y2)
		}
	}
	return p.Output(w)
}
