package net

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

//go:embed viewer.html
var viewerPage string

var pageTemplate = template.Must(template.New("viewer").Parse(viewerPage))

func renderPage(tourURL string) ([]byte, error) {
	if tourURL == "" {
		return nil, fmt.Errorf("viewer page: missing tour URL")
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, struct{ Tour string }{tourURL}); err != nil {
		return nil, fmt.Errorf("viewer page: %w", err)
	}
	return buf.Bytes(), nil
}
