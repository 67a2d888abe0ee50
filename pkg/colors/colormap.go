package colors

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"
)

// ErrUnknownColormap is returned by Lookup for unregistered names.
var ErrUnknownColormap = errors.New("unknown colormap")

// Colormap maps a normalised value in [0, 1] to a color. Values outside the
// range are clamped and NaN maps to fully transparent.
type Colormap interface {
	Name() string
	At(t float64) color.NRGBA
}

// Linear interpolates between evenly spaced color stops.
type Linear struct {
	name  string
	stops []color.NRGBA
}

// NewLinear returns a colormap running through stops in order.
func NewLinear(name string, stops ...color.NRGBA) *Linear {
	s := make([]color.NRGBA, len(stops))
	copy(s, stops)
	return &Linear{name: name, stops: s}
}

func (l *Linear) Name() string { return l.name }

func (l *Linear) At(t float64) color.NRGBA {
	if math.IsNaN(t) || len(l.stops) == 0 {
		return color.NRGBA{}
	}
	if len(l.stops) == 1 {
		return l.stops[0]
	}
	t = clamp01(t)
	pos := t * float64(len(l.stops)-1)
	i := int(math.Floor(pos))
	if i >= len(l.stops)-1 {
		return l.stops[len(l.stops)-1]
	}
	return Mix(l.stops[i], l.stops[i+1], pos-float64(i))
}

// Listed picks one of a fixed set of colors without interpolation.
type Listed struct {
	name   string
	colors []color.NRGBA
}

// NewListed returns a colormap made of discrete colors.
func NewListed(name string, colors ...color.NRGBA) *Listed {
	c := make([]color.NRGBA, len(colors))
	copy(c, colors)
	return &Listed{name: name, colors: c}
}

func (l *Listed) Name() string { return l.name }

func (l *Listed) At(t float64) color.NRGBA {
	if math.IsNaN(t) || len(l.colors) == 0 {
		return color.NRGBA{}
	}
	i := int(clamp01(t) * float64(len(l.colors)))
	if i >= len(l.colors) {
		i = len(l.colors) - 1
	}
	return l.colors[i]
}

type funcMap struct {
	name string
	f    func(t float64) (r, g, b float64)
}

func (m funcMap) Name() string { return m.name }

func (m funcMap) At(t float64) color.NRGBA {
	if math.IsNaN(t) {
		return color.NRGBA{}
	}
	r, g, b := m.f(clamp01(t))
	return color.NRGBA{R: channel(r), G: channel(g), B: channel(b), A: 0xff}
}

type reversed struct {
	Colormap
}

func (r reversed) Name() string { return r.Colormap.Name() + "_r" }

func (r reversed) At(t float64) color.NRGBA {
	if math.IsNaN(t) {
		return color.NRGBA{}
	}
	return r.Colormap.At(1 - t)
}

// Reversed returns c running in the opposite direction.
func Reversed(c Colormap) Colormap {
	if r, ok := c.(reversed); ok {
		return r.Colormap
	}
	return reversed{c}
}

func clamp01(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

// ColorBrewer stops used by the named sequential and diverging maps.
var registry = map[string]Colormap{
	"gray": NewLinear("gray", color.NRGBA{A: 0xff}, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}),
	"Reds": NewLinear("Reds", mustHexes(
		"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a",
		"#ef3b2c", "#cb181d", "#a50f15", "#67000d")...),
	"Blues": NewLinear("Blues", mustHexes(
		"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6",
		"#4292c6", "#2171b5", "#08519c", "#08306b")...),
	"Greens": NewLinear("Greens", mustHexes(
		"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476",
		"#41ab5d", "#238b45", "#006d2c", "#00441b")...),
	"RdBu": NewLinear("RdBu", mustHexes(
		"#67001f", "#b2182b", "#d6604d", "#f4a582", "#fddbc7", "#f7f7f7",
		"#d1e5f0", "#92c5de", "#4393c3", "#2166ac", "#053061")...),
	"viridis": NewLinear("viridis", mustHexes(
		"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725")...),
	"rainbow": funcMap{name: "rainbow", f: func(t float64) (float64, float64, float64) {
		return math.Abs(2*t - 0.5), math.Sin(math.Pi * t), math.Cos(math.Pi * t / 2)
	}},
}

// Lookup returns a registered colormap, or the listed map of a built-in
// palette. A "_r" suffix reverses any map.
func Lookup(name string) (Colormap, error) {
	if c, ok := lookupBase(name); ok {
		return c, nil
	}
	if base, ok := strings.CutSuffix(name, "_r"); ok {
		if c, ok := lookupBase(base); ok {
			return Reversed(c), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownColormap, name)
}

func lookupBase(name string) (Colormap, bool) {
	if c, ok := registry[name]; ok {
		return c, true
	}
	if p, ok := builtinPalette(name); ok {
		return p.Colormap(ListedMap), true
	}
	return nil, false
}

// Names lists the registered colormaps in sorted order, without reversals.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
