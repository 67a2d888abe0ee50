package colors

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#FF5733", color.NRGBA{R: 0xff, G: 0x57, B: 0x33, A: 0xff}},
		{"#000000", color.NRGBA{A: 0xff}},
		{"#E64B35B2", color.NRGBA{R: 0xe6, G: 0x4b, B: 0x35, A: 0xb2}},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if err != nil {
			t.Fatalf("ParseHex(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "FF5733", "#FF57", "#GG5733", "#FF57331", "red"} {
		if _, err := ParseHex(bad); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("ParseHex(%q): expected ErrInvalidColor, got %v", bad, err)
		}
	}
}

func TestFromRGB(t *testing.T) {
	// 0-255 input when any channel exceeds 1.
	c, err := FromRGB(230, 159, 0)
	if err != nil {
		t.Fatalf("FromRGB failed: %v", err)
	}
	if c != (color.NRGBA{R: 230, G: 159, B: 0, A: 255}) {
		t.Errorf("Unexpected color %v", c)
	}

	// 0-1 input otherwise.
	c, err = FromRGB(1, 0.5, 0)
	if err != nil {
		t.Fatalf("FromRGB failed: %v", err)
	}
	if c != (color.NRGBA{R: 255, G: 128, B: 0, A: 255}) {
		t.Errorf("Unexpected color %v", c)
	}

	for _, bad := range [][3]float64{{-1, 0, 0}, {0, 256, 0}, {0, 0, math.NaN()}} {
		if _, err := FromRGB(bad[0], bad[1], bad[2]); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("FromRGB(%v): expected ErrInvalidColor, got %v", bad, err)
		}
	}
}

func TestHex(t *testing.T) {
	if got := Hex(color.NRGBA{R: 0xe6, G: 0x9f, A: 0xff}); got != "#e69f00" {
		t.Errorf("Hex = %q, want #e69f00", got)
	}
	if got := Hex(color.NRGBA{R: 1, G: 2, B: 3, A: 4}); got != "#01020304" {
		t.Errorf("Hex = %q, want #01020304", got)
	}
}

func TestPalette(t *testing.T) {
	p, err := NewPalette("test",
		Entry{"a", [3]int{255, 0, 0}},
		Entry{"b", "#00FF00"},
		Entry{"c", [3]float64{0, 0, 1}},
	)
	if err != nil {
		t.Fatalf("NewPalette failed: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b", "c"}, p.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
	// Hex strings are kept as given; RGB colors are formatted lowercase.
	if diff := cmp.Diff([]string{"#ff0000", "#00FF00", "#0000ff"}, p.HexColors()); diff != "" {
		t.Errorf("HexColors mismatch (-want +got):\n%s", diff)
	}

	if c, ok := p.Color("b"); !ok || c.G != 0xff {
		t.Errorf("Color(b) = %v, %v", c, ok)
	}
	if _, ok := p.Color("missing"); ok {
		t.Error("Expected missing color lookup to fail")
	}

	// Replacing keeps the original position.
	if err := p.AddRGB("a", 0, 0, 0); err != nil {
		t.Fatalf("AddRGB failed: %v", err)
	}
	if p.Len() != 3 || p.Names()[0] != "a" {
		t.Errorf("Unexpected names after replace: %v", p.Names())
	}
}

func TestPaletteInvalidColor(t *testing.T) {
	_, err := NewPalette("bad", Entry{"x", 42})
	if !errors.Is(err, ErrInvalidColor) {
		t.Errorf("Expected ErrInvalidColor, got %v", err)
	}
	_, err = NewPaletteFromList("bad", "#FFFFFF", []float64{1, 2})
	if !errors.Is(err, ErrInvalidColor) {
		t.Errorf("Expected ErrInvalidColor, got %v", err)
	}
}

func TestPaletteFromList(t *testing.T) {
	p, err := NewPaletteFromList("", "#112233", [3]int{1, 2, 3})
	if err != nil {
		t.Fatalf("NewPaletteFromList failed: %v", err)
	}
	if p.Name != "Custom Palette" {
		t.Errorf("Expected default name, got %q", p.Name)
	}
	if diff := cmp.Diff([]string{"color_1", "color_2"}, p.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinPalettes(t *testing.T) {
	if Colorblind.Len() != 8 {
		t.Errorf("Expected 8 colorblind colors, got %d", Colorblind.Len())
	}
	if c, _ := Colorblind.Color("Orange"); c != (color.NRGBA{R: 230, G: 159, B: 0, A: 255}) {
		t.Errorf("Unexpected orange %v", c)
	}
	if GGSci.Len() != 9 || GGSci.Reference == nil {
		t.Errorf("Unexpected ggsci palette: %d colors", GGSci.Len())
	}
}

func TestPaletteColormaps(t *testing.T) {
	p, err := NewPaletteFromList("bw", "#000000", "#FFFFFF")
	if err != nil {
		t.Fatal(err)
	}

	lin := p.Colormap(LinearMap)
	if lin.Name() != "bw" {
		t.Errorf("Expected name bw, got %q", lin.Name())
	}
	if mid := lin.At(0.5); mid.R != 128 {
		t.Errorf("Expected mid gray, got %v", mid)
	}

	listed := p.Colormap(ListedMap)
	if c := listed.At(0.49); c.R != 0 {
		t.Errorf("Expected black bin, got %v", c)
	}
	if c := listed.At(0.5); c.R != 255 {
		t.Errorf("Expected white bin, got %v", c)
	}

	seq := p.SequentialColormaps(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	if got := seq["color_1"].At(1); got != (color.NRGBA{A: 255}) {
		t.Errorf("Sequential map should end at its color, got %v", got)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		if _, err := Lookup(name); err != nil {
			t.Errorf("Lookup(%q) failed: %v", name, err)
		}
	}

	rdbu, err := Lookup("RdBu_r")
	if err != nil {
		t.Fatalf("Lookup(RdBu_r) failed: %v", err)
	}
	if rdbu.Name() != "RdBu_r" {
		t.Errorf("Expected RdBu_r, got %q", rdbu.Name())
	}
	// Reversed RdBu starts blue and ends red.
	if lo := rdbu.At(0); lo.B <= lo.R {
		t.Errorf("Expected blue low end, got %v", lo)
	}
	if hi := rdbu.At(1); hi.R <= hi.B {
		t.Errorf("Expected red high end, got %v", hi)
	}

	if _, err := Lookup("nope"); !errors.Is(err, ErrUnknownColormap) {
		t.Errorf("Expected ErrUnknownColormap, got %v", err)
	}
}

func TestColormapClampAndNaN(t *testing.T) {
	gray, _ := Lookup("gray")
	if gray.At(-1) != gray.At(0) || gray.At(2) != gray.At(1) {
		t.Error("Expected out of range values to clamp")
	}
	if gray.At(math.NaN()).A != 0 {
		t.Error("Expected NaN to be transparent")
	}
	if Reversed(Reversed(gray)) != gray {
		t.Error("Expected double reversal to return the original map")
	}
}

func TestTwoSlopeNorm(t *testing.T) {
	n, err := NewTwoSlopeNorm(-2, 0, 8)
	if err != nil {
		t.Fatalf("NewTwoSlopeNorm failed: %v", err)
	}
	cases := map[float64]float64{
		-2: 0,
		-1: 0.25,
		0:  0.5,
		4:  0.75,
		8:  1,
		20: 1,
	}
	for v, want := range cases {
		if got := n.Normalize(v); math.Abs(got-want) > 1e-12 {
			t.Errorf("Normalize(%v) = %v, want %v", v, got, want)
		}
	}

	if _, err := NewTwoSlopeNorm(1, 0, 2); err == nil {
		t.Error("Expected error when vmin > vcenter")
	}
}

func TestLinearNorm(t *testing.T) {
	n := LinearNorm{VMin: 2, VMax: 6}
	if got := n.Normalize(4); got != 0.5 {
		t.Errorf("Normalize(4) = %v, want 0.5", got)
	}
	if got := (LinearNorm{VMin: 3, VMax: 3}).Normalize(3); got != 0 {
		t.Errorf("Degenerate norm = %v, want 0", got)
	}
	if !math.IsNaN(n.Normalize(math.NaN())) {
		t.Error("Expected NaN to stay NaN")
	}
}

func TestParseNamed(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ff0000", color.NRGBA{R: 255, A: 255}},
		{"Colorblind/Vermillion", color.NRGBA{R: 213, G: 94, B: 0, A: 255}},
		{"colorblind/sky blue", color.NRGBA{R: 86, G: 180, B: 233, A: 255}},
		{"GGSci/Red", color.NRGBA{R: 0xe6, G: 0x4b, B: 0x35, A: 0xb2}},
	}
	for _, tt := range tests {
		got, err := ParseNamed(tt.in)
		if err != nil {
			t.Errorf("ParseNamed(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNamed(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"black", "Colorblind/Magenta", "Unknown/Red", "#12"} {
		if _, err := ParseNamed(bad); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("ParseNamed(%q): expected ErrInvalidColor, got %v", bad, err)
		}
	}
}

func TestLookupPalette(t *testing.T) {
	cmap, err := Lookup("Colorblind")
	if err != nil {
		t.Fatalf("Lookup(Colorblind) failed: %v", err)
	}
	if got, want := cmap.At(0), Colorblind.RGBColors()[0]; got != want {
		t.Errorf("Expected first bin %v, got %v", want, got)
	}
	if got, want := cmap.At(1), Colorblind.RGBColors()[7]; got != want {
		t.Errorf("Expected last bin %v, got %v", want, got)
	}

	rev, err := Lookup("GGSci_r")
	if err != nil {
		t.Fatalf("Lookup(GGSci_r) failed: %v", err)
	}
	if got, want := rev.At(0), GGSci.RGBColors()[8]; got != want {
		t.Errorf("Expected reversed first bin %v, got %v", want, got)
	}
}
