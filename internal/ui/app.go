package ui

import (
	"fyne.io/fyne/v2"

	"PanoPaint/internal/control"
	"PanoPaint/internal/export"
	"PanoPaint/internal/state"
)

// NewWindow builds the control window. The viewer itself runs in a
// browser, so the window only holds the panel.
func NewWindow(a fyne.App, ctl *control.Controller, hist *state.History, src export.PointSource) (fyne.Window, *Panel) {
	w := a.NewWindow("PanoPaint")
	w.Resize(fyne.NewSize(720, 220))
	p := NewPanel(w, ctl, hist, src)
	w.SetContent(p.Content())
	return w, p
}
