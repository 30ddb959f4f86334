package krpano

import (
	"reflect"
	"testing"

	"PanoPaint/internal/geom"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"stroke_1700000000000_1", "stroke_1700000000000_1"},
		{"a b'c", "a_b_c"},
		{"x');removehotspot('y", "x___removehotspot__y"},
		{"Zoom-In", "Zoom-In"},
		{"điểm", "_i_m"},
	}
	for _, tc := range tests {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	for _, r := range SanitizeName("điểm 1") {
		if !(r == '_' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			t.Errorf("unsafe rune %q survived", r)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"   \n\t ", ""},
		{"addhotspot('a')", "addhotspot('a');"},
		{"  set(a,\n   1);  ", "set(a, 1);"},
		{"a();\tb();", "a(); b();"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHotspotStatements(t *testing.T) {
	h := H("my shape")
	if got := h.Add(); got != "addhotspot('my_shape');" {
		t.Errorf("Add = %q", got)
	}
	if got := h.Set("bordercolor", DefaultColor); got != "set(hotspot['my_shape'].bordercolor, 0xFF3B30);" {
		t.Errorf("Set = %q", got)
	}
	if got := h.Point(2, geom.SpherePoint{Ath: -12.5, Atv: 3}); got !=
		"set(hotspot['my_shape'].point[2].ath, -12.5); set(hotspot['my_shape'].point[2].atv, 3);" {
		t.Errorf("Point = %q", got)
	}
	if got := Copy(h.PointProp(0, "ath"), H("tmp").PointProp(0, "ath")); got !=
		"copy(hotspot['my_shape'].point[0].ath, hotspot['tmp'].point[0].ath);" {
		t.Errorf("Copy = %q", got)
	}
}

func TestColor(t *testing.T) {
	for _, s := range []string{"0xFF3B30", "#ff3b30", "FF3B30"} {
		c, err := ParseColor(s)
		if err != nil || c != DefaultColor {
			t.Errorf("ParseColor(%q) = %v, %v", s, c, err)
		}
	}
	if _, err := ParseColor("red"); err == nil {
		t.Error("ParseColor accepted a name")
	}
	if got := SelectedColor.NRGBA(); got.R != 0x34 || got.G != 0xC7 || got.B != 0x59 || got.A != 0xFF {
		t.Errorf("NRGBA = %v", got)
	}
	if got := Color(0xAB).String(); got != "0x0000AB" {
		t.Errorf("String = %q", got)
	}
}

func TestParse(t *testing.T) {
	var s Script
	s.Add(H("a").Add(), "", H("a").Set("url", Quote("data:x;y,z")), ScreenToSphere(10, 20.5, "__a", "__v"))
	calls, err := Parse(s.String())
	if err != nil {
		t.Fatal(err)
	}
	want := []Call{
		{Fn: "addhotspot", Args: []string{"'a'"}},
		{Fn: "set", Args: []string{"hotspot['a'].url", "'data:x;y,z'"}},
		{Fn: "screentosphere", Args: []string{"10", "20.5", "__a", "__v"}},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("Parse = %#v", calls)
	}
	if _, err := Parse("set(a, 1"); err == nil {
		t.Error("unterminated statement accepted")
	}
	if Unquote("'x'") != "x" || Unquote("x") != "x" {
		t.Error("Unquote")
	}
}
