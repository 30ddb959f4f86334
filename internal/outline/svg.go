package outline

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrNoPath = errors.New("outline: svg has no path element")

// Extract reads an SVG document and returns an outline built from its first
// <path d> element. The size comes from the viewBox, or from the width and
// height attributes when no viewBox is present.
func Extract(kind string, r io.Reader) (Outline, error) {
	dec := xml.NewDecoder(r)
	o := Outline{Kind: kind}
	var attrW, attrH float64

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Outline{}, fmt.Errorf("decode svg: %w", err)
		}
		t, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch t.Name.Local {
		case "svg":
			for _, a := range t.Attr {
				switch a.Name.Local {
				case "viewBox":
					parts := strings.Fields(strings.ReplaceAll(a.Value, ",", " "))
					if len(parts) == 4 {
						o.Width, _ = strconv.ParseFloat(parts[2], 64)
						o.Height, _ = strconv.ParseFloat(parts[3], 64)
					}
				case "width":
					attrW = parseLength(a.Value)
				case "height":
					attrH = parseLength(a.Value)
				}
			}
		case "path":
			for _, a := range t.Attr {
				if a.Name.Local == "d" && strings.TrimSpace(a.Value) != "" {
					o.D = strings.TrimSpace(a.Value)
				}
			}
		}
		if o.D != "" {
			break
		}
	}
	if o.D == "" {
		return Outline{}, ErrNoPath
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = attrW, attrH
	}
	if o.Width <= 0 || o.Height <= 0 {
		return Outline{}, fmt.Errorf("outline %q: svg has no usable size", kind)
	}
	return o, nil
}

func parseLength(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
