// Package colors provides color parsing, named palettes, colormaps and
// value normalisation for rendering scalar images.
package colors

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned for a color that is neither an RGB triple nor
// a hex string.
var ErrInvalidColor = errors.New("invalid color")

// ParseHex parses "#RRGGBB" or "#RRGGBBAA".
func ParseHex(s string) (color.NRGBA, error) {
	if !strings.HasPrefix(s, "#") || (len(s) != 7 && len(s) != 9) {
		return color.NRGBA{}, fmt.Errorf("%w: %q is not #RRGGBB or #RRGGBBAA", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
	}
	if len(s) == 7 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// FromRGB builds an opaque color from three channels given either in [0, 1]
// or, if any channel exceeds 1, in [0, 255].
func FromRGB(r, g, b float64) (color.NRGBA, error) {
	rgb := [3]float64{r, g, b}
	scale := 1.0
	for _, v := range rgb {
		if math.IsNaN(v) || v < 0 || v > 255 {
			return color.NRGBA{}, fmt.Errorf("%w: channel %v outside [0, 255]", ErrInvalidColor, v)
		}
		if v > 1 {
			scale = 255
		}
	}
	return color.NRGBA{
		R: channel(rgb[0] / scale),
		G: channel(rgb[1] / scale),
		B: channel(rgb[2] / scale),
		A: 0xff,
	}, nil
}

// Parse accepts a hex string, a [3]float64, a [3]int or a three element
// []float64 / []int.
func Parse(v any) (color.NRGBA, error) {
	switch c := v.(type) {
	case string:
		return ParseHex(c)
	case [3]float64:
		return FromRGB(c[0], c[1], c[2])
	case [3]int:
		return FromRGB(float64(c[0]), float64(c[1]), float64(c[2]))
	case []float64:
		if len(c) == 3 {
			return FromRGB(c[0], c[1], c[2])
		}
	case []int:
		if len(c) == 3 {
			return FromRGB(float64(c[0]), float64(c[1]), float64(c[2]))
		}
	case color.NRGBA:
		return c, nil
	}
	return color.NRGBA{}, fmt.Errorf("%w: %v must be an RGB triple or a hex string", ErrInvalidColor, v)
}

// Hex formats c as lowercase "#rrggbb", or "#rrggbbaa" when not opaque.
func Hex(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(math.Round(v * 255))
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// Mix linearly interpolates between a and b, channel by channel.
func Mix(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
		A: lerp(a.A, b.A, t),
	}
}

func mustHex(s string) color.NRGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func mustHexes(ss ...string) []color.NRGBA {
	out := make([]color.NRGBA, len(ss))
	for i, s := range ss {
		out[i] = mustHex(s)
	}
	return out
}
