package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"PanoPaint/internal/control"
	"PanoPaint/internal/krpano"
)

// Palette is the quick color row, annotation red first.
var Palette = []krpano.Color{
	krpano.DefaultColor,
	0xD3D3D3, // light gray
	0xDAA520, // mustard
	0x708090, // slate
	0x4169E1, // royal blue
	0xDC143C, // crimson
	0x000000,
	0xFFFFFF,
}

// swatch is one tappable color cell of the palette.
type swatch struct {
	widget.BaseWidget
	color krpano.Color
	pick  func(krpano.Color)
}

func newSwatch(c krpano.Color, pick func(krpano.Color)) *swatch {
	s := &swatch{color: c, pick: pick}
	s.ExtendBaseWidget(s)
	return s
}

func (s *swatch) CreateRenderer() fyne.WidgetRenderer {
	fill := canvas.NewRectangle(s.color.NRGBA())
	fill.SetMinSize(fyne.NewSize(28, 28))
	fill.StrokeColor = color.Gray{Y: 120}
	fill.StrokeWidth = 1
	fill.CornerRadius = 4
	return widget.NewSimpleRenderer(fill)
}

func (s *swatch) Tapped(*fyne.PointEvent) {
	if s.pick != nil {
		s.pick(s.color)
	}
}

// modeLabels are the choices of the mode selector, in display order.
var modeLabels = []string{
	control.Idle.String(),
	control.DrawPoint.String(),
	control.Freehand.String(),
	control.Shape.String(),
	control.Move.String(),
	control.Scale.String(),
	control.Delete.String(),
}

func newPalette(ctl *control.Controller) fyne.CanvasObject {
	box := container.NewHBox()
	for _, c := range Palette {
		box.Add(newSwatch(c, ctl.SetColor))
	}
	return box
}
