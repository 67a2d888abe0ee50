// Package streamlines places tractography streamlines on 2D slices.
package streamlines

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"bssplot/internal/models"
	"bssplot/pkg/colors"
	"bssplot/pkg/geometry"
	"bssplot/pkg/visualization"
)

var (
	// ErrNoStreamlines is returned when there are no points to work with.
	ErrNoStreamlines = errors.New("no streamline points")

	// ErrDegenerateStreamline is returned for a streamline whose first and
	// last points coincide, which has no direction.
	ErrDegenerateStreamline = errors.New("streamline has no direction")
)

// histogramBins is the number of bins used to find the busiest slice.
const histogramBins = 50

// Transform maps every point of every streamline through affine.
func Transform(streamlines []models.Streamline, affine models.Affine) []models.Streamline {
	out := make([]models.Streamline, len(streamlines))
	for i, s := range streamlines {
		t := make(models.Streamline, len(s))
		for j, p := range s {
			w := affine.Apply([3]float64{p.X, p.Y, p.Z})
			t[j] = r3.Vec{X: w[0], Y: w[1], Z: w[2]}
		}
		out[i] = t
	}
	return out
}

func component(p r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	}
	return p.Z
}

// FindOptimalSlice transforms the streamlines to mm and returns the
// position along plane's fixed axis where most points fall: the left edge of
// the fullest of 50 equal bins spanning the points.
func FindOptimalSlice(streamlines []models.Streamline, affine models.Affine, plane models.Plane) (float64, error) {
	axes, err := geometry.PlaneAxes(plane)
	if err != nil {
		return 0, err
	}

	var coords []float64
	for _, s := range Transform(streamlines, affine) {
		for _, p := range s {
			coords = append(coords, component(p, axes.Fixed))
		}
	}
	if len(coords) == 0 {
		return 0, ErrNoStreamlines
	}
	sort.Float64s(coords)

	lo, hi := coords[0], coords[len(coords)-1]
	if lo == hi {
		return lo, nil
	}
	dividers := make([]float64, histogramBins+1)
	floats.Span(dividers, lo, hi)
	edges := make([]float64, len(dividers))
	copy(edges, dividers)
	// The last bin is closed, so the maximum has to fall inside it.
	dividers[histogramBins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, coords, nil)
	return edges[floats.MaxIdx(counts)], nil
}

func direction(s models.Streamline) (r3.Vec, error) {
	if len(s) == 0 {
		return r3.Vec{}, ErrNoStreamlines
	}
	d := r3.Sub(s[len(s)-1], s[0])
	if r3.Norm(d) == 0 {
		return r3.Vec{}, ErrDegenerateStreamline
	}
	return r3.Unit(d), nil
}

// Color returns the direction color of s: the absolute x, y and z
// components of the unit vector from its first to its last point as red,
// green and blue.
func Color(s models.Streamline) (color.NRGBA, error) {
	d, err := direction(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	// Unit components can overshoot 1 by an ulp.
	unit := func(v float64) float64 { return math.Min(1, math.Abs(v)) }
	c, err := colors.FromRGB(unit(d.X), unit(d.Y), unit(d.Z))
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("streamline color: %w", err)
	}
	return c, nil
}

// ColorWithMap colors s by looking up the absolute x component of its
// direction in cmap.
func ColorWithMap(s models.Streamline, cmap colors.Colormap) (color.NRGBA, error) {
	d, err := direction(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	return cmap.At(math.Abs(d.X)), nil
}

// PlotOptions controls how streamlines are drawn on a slice.
type PlotOptions struct {
	// LineWidth in pixels; thinner lines are drawn one pixel wide.
	LineWidth float64

	// ATol is the absolute distance in mm from the slice within which a
	// point counts as on the slice.
	ATol float64

	// Colormap, when set, replaces direction colors with ColorWithMap.
	Colormap colors.Colormap
}

// DefaultPlotOptions returns hairline strokes and a 1 mm tolerance.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{LineWidth: 0.1, ATol: 1}
}

// near reports whether a is within atol of b plus a relative slack of 1e-5
// of |b|.
func near(a, b, atol float64) bool {
	return math.Abs(a-b) <= atol+1e-5*math.Abs(b)
}

// PlotOnSlice draws the part of every streamline lying within opts.ATol of
// mm along plane's fixed axis. Streamlines must already be in mm. Each one
// becomes a single polyline through its points on the slice, in its own
// direction color. It returns the number of streamlines drawn.
func PlotOnSlice(ax *visualization.Axes, streamlines []models.Streamline, mm float64, plane models.Plane, opts PlotOptions) (int, error) {
	axes, err := geometry.PlaneAxes(plane)
	if err != nil {
		return 0, err
	}
	log := ax.Logger()

	drawn, skipped := 0, 0
	for _, s := range streamlines {
		var pts []models.Point
		for _, p := range s {
			if near(component(p, axes.Fixed), mm, opts.ATol) {
				pts = append(pts, models.Point{
					X: component(p, axes.Free[0]),
					Y: component(p, axes.Free[1]),
				})
			}
		}
		if len(pts) == 0 {
			continue
		}

		var c color.NRGBA
		if opts.Colormap != nil {
			c, err = ColorWithMap(s, opts.Colormap)
		} else {
			c, err = Color(s)
		}
		if errors.Is(err, ErrDegenerateStreamline) {
			skipped++
			continue
		}
		if err != nil {
			return drawn, err
		}

		ax.Plot(visualization.LineLayer{Points: pts, Color: c, Width: opts.LineWidth, Alpha: 1})
		drawn++
	}

	ax.XLabel = axes.Labels[0]
	ax.YLabel = axes.Labels[1]
	ax.EqualAspect = true

	log.Debug("streamlines plotted",
		zap.Stringer("plane", plane),
		zap.Float64("mm", mm),
		zap.Int("total", len(streamlines)),
		zap.Int("drawn", drawn),
		zap.Int("skipped", skipped))
	return drawn, nil
}
