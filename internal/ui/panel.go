package ui

import (
	"context"
	"fmt"
	"io"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"PanoPaint/internal/control"
	"PanoPaint/internal/export"
	"PanoPaint/internal/outline"
	"PanoPaint/internal/state"
)

// Panel is the control window next to the viewer: mode, shape and color
// pickers, history actions and import/export.
type Panel struct {
	ctl  *control.Controller
	hist *state.History
	src  export.PointSource
	win  fyne.Window

	Title  string
	Status *widget.Label

	modes  *widget.RadioGroup
	shapes *widget.Select
}

func NewPanel(win fyne.Window, ctl *control.Controller, hist *state.History, src export.PointSource) *Panel {
	p := &Panel{
		ctl:    ctl,
		hist:   hist,
		src:    src,
		win:    win,
		Title:  "PanoPaint annotations",
		Status: widget.NewLabel("Waiting for the viewer"),
	}
	p.modes = widget.NewRadioGroup(modeLabels, func(s string) {
		m, err := control.ParseMode(s)
		if err != nil {
			return
		}
		if m == control.Shape {
			p.ctl.SetShape(p.shapes.Selected)
			return
		}
		p.ctl.SetMode(m)
	})
	p.modes.Horizontal = true
	p.modes.Required = true
	p.shapes = widget.NewSelect(outline.Kinds(), func(kind string) {
		if err := p.ctl.SetShape(kind); err != nil {
			p.SetStatus(err.Error())
			return
		}
		p.modes.SetSelected(control.Shape.String())
	})
	p.shapes.Selected = ctl.ShapeKind()
	p.modes.Selected = ctl.Mode().String()

	ctl.OnChange = func(m control.Mode) {
		fyne.Do(func() { p.modes.SetSelected(m.String()) })
	}
	ctl.OnWarn = p.SetStatus
	return p
}

// SetStatus shows text in the status line. It may be called from any
// goroutine.
func (p *Panel) SetStatus(text string) {
	fyne.Do(func() { p.Status.SetText(text) })
}

// Content lays the panel out.
func (p *Panel) Content() fyne.CanvasObject {
	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), p.undo),
		widget.NewToolbarAction(theme.ContentRedoIcon(), p.redo),
		widget.NewToolbarAction(theme.DeleteIcon(), p.deleteSelected),
		widget.NewToolbarAction(theme.ContentClearIcon(), p.confirmClear),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FolderOpenIcon(), p.openFile),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), p.saveFile),
		widget.NewToolbarAction(theme.DocumentPrintIcon(), p.savePDF),
	)
	return container.NewVBox(
		container.NewHBox(widget.NewLabel("Mode:"), p.modes),
		container.NewHBox(widget.NewLabel("Shape:"), p.shapes, widget.NewSeparator(), widget.NewLabel("Color:"), newPalette(p.ctl)),
		container.NewHBox(tb, layout.NewSpacer()),
		p.Status,
	)
}

func (p *Panel) undo() {
	if !p.ctl.Undo() {
		p.SetStatus("Nothing to undo")
	}
}

func (p *Panel) redo() {
	if !p.ctl.Redo(context.Background()) {
		p.SetStatus("Nothing to redo")
	}
}

func (p *Panel) deleteSelected() {
	if !p.ctl.DeleteSelected() {
		p.SetStatus("Select a stroke or circle first")
	}
}

func (p *Panel) confirmClear() {
	dialog.ShowConfirm("Clear all", "Remove every annotation?", func(ok bool) {
		if ok {
			p.ctl.ClearAll()
			p.SetStatus("Cleared")
		}
	}, p.win)
}

func (p *Panel) openFile() {
	dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, p.win)
			return
		}
		if r == nil {
			return
		}
		if err := p.LoadFromFile(r); err != nil {
			dialog.ShowError(err, p.win)
		}
	}, p.win)
}

func (p *Panel) saveFile() {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, p.win)
			return
		}
		if w == nil {
			return
		}
		if err := p.SaveToFile(w); err != nil {
			dialog.ShowError(err, p.win)
		}
	}, p.win)
	d.SetFileName("strokes.json")
	d.Show()
}

func (p *Panel) savePDF() {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, p.win)
			return
		}
		if w == nil {
			return
		}
		go func() {
			if err := p.ExportPDF(w); err != nil {
				fyne.Do(func() { dialog.ShowError(err, p.win) })
			}
		}()
	}, p.win)
	d.SetFileName("annotations.pdf")
	d.Show()
}

// SaveToFile writes the strokes as JSON and closes w.
func (p *Panel) SaveToFile(w io.WriteCloser) error {
	defer func() {
		if err := w.Close(); err != nil {
			log.Printf("[UI] closing export: %v", err)
		}
	}()
	data, err := p.hist.Export()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	p.SetStatus(fmt.Sprintf("Saved %d strokes", len(p.hist.Strokes())))
	return nil
}

// LoadFromFile replaces the strokes with a JSON export and closes r.
// Invalid files leave everything as it was.
func (p *Panel) LoadFromFile(r io.ReadCloser) error {
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("[UI] closing import: %v", err)
		}
	}()
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	if err := p.hist.Import(context.Background(), data); err != nil {
		p.SetStatus("Import rejected")
		return err
	}
	p.SetStatus(fmt.Sprintf("Loaded %d strokes", len(p.hist.Strokes())))
	return nil
}

// ExportPDF charts every annotation into a PDF written to w and closes w.
// Circles the viewer does not report within export.ReadTimeout are left out.
func (p *Panel) ExportPDF(w io.WriteCloser) error {
	shapes := export.Collect(context.Background(), p.hist, p.src)
	err := export.PDF(w, p.Title, shapes)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	p.SetStatus(fmt.Sprintf("Exported %d annotations", len(shapes)))
	return nil
}
