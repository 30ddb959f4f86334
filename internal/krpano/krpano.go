// Package krpano builds the flat action strings understood by the krpano
// viewer. Only plain statements are produced: no conditionals, loops or
// calc expressions, so every script can be read and replayed one call at a
// time.
package krpano

import (
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"PanoPaint/internal/geom"
)

// Rendering constants shared by the engines.
const (
	DefaultColor  Color = 0xFF3B30
	SelectedColor Color = 0x34C759

	StrokeWidth         = 3
	SelectedStrokeWidth = 4

	MarkerZ  = 100000
	SegmentZ = 99999
	ShapeZ   = 99998
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// SanitizeName replaces every character outside [A-Za-z0-9_-] with '_'.
func SanitizeName(s string) string {
	return unsafeName.ReplaceAllString(s, "_")
}

// Normalize collapses whitespace runs, trims the ends and makes sure the
// command ends with a semicolon. An empty command stays empty.
func Normalize(cmd string) string {
	cmd = strings.Join(strings.Fields(cmd), " ")
	if cmd == "" || strings.HasSuffix(cmd, ";") {
		return cmd
	}
	return cmd + ";"
}

// Color is a 24-bit RGB value written as 0xRRGGBB.
type Color uint32

func (c Color) String() string { return fmt.Sprintf("0x%06X", uint32(c)&0xFFFFFF) }

// NRGBA returns the opaque color value.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF}
}

// ParseColor accepts 0xRRGGBB, #RRGGBB or RRGGBB.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "#"), "0x")
	h = strings.TrimPrefix(h, "0X")
	if len(h) != 6 {
		return 0, fmt.Errorf("krpano: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("krpano: invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

// Value formats v the way the viewer expects literal arguments.
func Value(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case Color:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Quote wraps s in single quotes, dropping any quotes inside it.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "") + "'"
}

// Hotspot is a sanitized hotspot name.
type Hotspot string

// H sanitizes name into a hotspot reference.
func H(name string) Hotspot { return Hotspot(SanitizeName(name)) }

func (h Hotspot) ref() string { return "hotspot['" + string(h) + "']" }

func (h Hotspot) Add() string    { return "addhotspot('" + string(h) + "');" }
func (h Hotspot) Remove() string { return "removehotspot('" + string(h) + "');" }

// Set assigns a literal value to a hotspot property.
func (h Hotspot) Set(prop string, v any) string {
	return "set(" + h.ref() + "." + prop + ", " + Value(v) + ");"
}

// Point writes vertex i of a polyline hotspot.
func (h Hotspot) Point(i int, p geom.SpherePoint) string {
	return fmt.Sprintf("set(%s.point[%d].ath, %s); set(%s.point[%d].atv, %s);",
		h.ref(), i, Value(p.Ath), h.ref(), i, Value(p.Atv))
}

// Points writes all vertices starting at index 0.
func (h Hotspot) Points(pts []geom.SpherePoint) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = h.Point(i, p)
	}
	return strings.Join(parts, " ")
}

// Prop returns the variable path of a hotspot property, usable as the
// target of copy or screentosphere.
func (h Hotspot) Prop(prop string) string { return h.ref() + "." + prop }

// PointProp returns the variable path of one vertex coordinate.
func (h Hotspot) PointProp(i int, axis string) string {
	return fmt.Sprintf("%s.point[%d].%s", h.ref(), i, axis)
}

// Position moves a point hotspot.
func (h Hotspot) Position(p geom.SpherePoint) string {
	return h.Set("ath", p.Ath) + " " + h.Set("atv", p.Atv)
}

// Copy copies the value of one variable path to another.
func Copy(dst, src string) string { return "copy(" + dst + ", " + src + ");" }

// Inc adds v to the numeric variable at path.
func Inc(path string, v float64) string { return "add(" + path + ", " + Value(v) + ");" }

// SetVar assigns a literal to a plain variable.
func SetVar(name string, v any) string { return "set(" + name + ", " + Value(v) + ");" }

// ScreenToSphere converts a screen position into the variables va and vv.
func ScreenToSphere(x, y float64, va, vv string) string {
	return "screentosphere(" + Value(x) + ", " + Value(y) + ", " + va + ", " + vv + ");"
}

// SphereToScreen converts sphere angles into the variables vx and vy.
func SphereToScreen(p geom.SpherePoint, vx, vy string) string {
	return "spheretoscreen(" + Value(p.Ath) + ", " + Value(p.Atv) + ", " + vx + ", " + vy + ");"
}

// Script accumulates statements.
type Script struct {
	parts []string
}

// Add appends statements. Empty strings are skipped.
func (s *Script) Add(stmts ...string) *Script {
	for _, st := range stmts {
		if st != "" {
			s.parts = append(s.parts, st)
		}
	}
	return s
}

// Len reports how many statement groups have been added.
func (s *Script) Len() int { return len(s.parts) }

func (s *Script) String() string { return Normalize(strings.Join(s.parts, " ")) }
