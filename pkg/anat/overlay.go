package anat

import (
	"fmt"
	"image/color"
	"math"

	"go.uber.org/zap"

	"bssplot/internal/models"
	"bssplot/pkg/colors"
	"bssplot/pkg/contour"
	"bssplot/pkg/geometry"
	"bssplot/pkg/visualization"
)

// AutoColormap selects the overlay colormap from the signs of the data.
const AutoColormap = "auto"

// LineStyle describes how outline polylines are stroked.
type LineStyle struct {
	Color color.NRGBA
	Width float64
	Alpha float64
}

// OverlayOptions is the flat set of parameters for one overlay call.
type OverlayOptions struct {
	Plane models.Plane

	// Alpha is the blend level of the raster overlay.
	Alpha float64

	// Threshold hides samples with |v| < Threshold. Zero disables it.
	Threshold float64

	Interpolation string

	// Outline traces the threshold boundary on top of the overlay.
	Outline      bool
	OutlineStyle LineStyle

	// DrawContours draws ContourLevels iso-lines instead of a raster.
	DrawContours  bool
	ContourLevels int
	ContourWidth  float64

	// Colormap is a registered colormap name or AutoColormap.
	Colormap string

	// PreserveView, when set, is restored after compositing. Otherwise the
	// axes zoom to the visible overlay samples.
	PreserveView *visualization.View
}

// DefaultOverlayOptions returns the customary overlay settings.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{
		Plane:         models.Sagittal,
		Alpha:         0.9,
		Threshold:     1e-6,
		Interpolation: "gaussian",
		OutlineStyle: LineStyle{
			Color: color.NRGBA{A: 0xff},
			Width: 0.5,
			Alpha: 1,
		},
		ContourLevels: 10,
		ContourWidth:  0.5,
		Colormap:      AutoColormap,
	}
}

// Scale is the color scale chosen for an overlay.
type Scale struct {
	Kind     models.ScaleKind
	Colormap colors.Colormap

	// Norm is set by SelectScale only for diverging data. AddOverlay fills
	// in a linear norm over the displayed slice otherwise.
	Norm colors.Norm
}

// SelectScale classifies the finite non-zero values of vol. Data with both
// signs gets RdBu_r centred on zero, purely negative data gets Blues and
// anything else gets Reds.
func SelectScale(vol *models.Volume) (Scale, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	neg, pos := false, false
	for _, v := range vol.Data {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		if v < 0 {
			neg = true
		} else {
			pos = true
		}
	}

	var (
		s    Scale
		name string
	)
	switch {
	case neg && pos:
		s.Kind, name = models.Diverging, "RdBu_r"
		norm, err := colors.NewTwoSlopeNorm(lo, 0, hi)
		if err != nil {
			return Scale{}, err
		}
		s.Norm = norm
	case neg:
		s.Kind, name = models.Low, "Blues"
	default:
		s.Kind, name = models.High, "Reds"
	}

	cmap, err := colors.Lookup(name)
	if err != nil {
		return Scale{}, err
	}
	s.Colormap = cmap
	return s, nil
}

// ApplyThreshold returns a copy of g with every sample below threshold in
// magnitude replaced by NaN. Samples exactly at the threshold are kept. A
// threshold of zero or less keeps everything.
func ApplyThreshold(g *models.Grid, threshold float64) *models.Grid {
	out := g.Clone()
	if threshold <= 0 {
		return out
	}
	for i, v := range out.Data {
		if math.Abs(v) < threshold {
			out.Data[i] = math.NaN()
		}
	}
	return out
}

// OverlayResult describes what AddOverlay drew.
type OverlayResult struct {
	Slice geometry.Slice
	Scale Scale

	// Grid is the thresholded slice.
	Grid *models.Grid

	// Levels and Contours are filled in contour mode; Contours[i] belongs
	// to the level it was traced at, in order.
	Levels   []float64
	Contours [][]models.Point

	// Outline holds the threshold boundary polylines in mm.
	Outline [][]models.Point

	// Bounds is the region of visible samples in mm, grown to cover every
	// contour and outline point, nil when nothing survived the threshold.
	Bounds *models.Extent
}

// AddOverlay composites the slice of overlay at mm along opts.Plane onto ax.
// The overlay is resolved with its own affine, so it may sit on a different
// grid than the background.
func AddOverlay(ax *visualization.Axes, overlay *models.Volume, mm float64, opts OverlayOptions) (*OverlayResult, error) {
	if err := overlay.Validate(); err != nil {
		return nil, err
	}
	if _, err := visualization.Interpolator(opts.Interpolation); err != nil {
		return nil, err
	}

	s, err := geometry.Resolve(overlay.Affine, overlay.Dims, opts.Plane, mm)
	if err != nil {
		return nil, err
	}

	scale, err := SelectScale(overlay)
	if err != nil {
		return nil, err
	}
	if opts.Colormap != "" && opts.Colormap != AutoColormap {
		cmap, err := colors.Lookup(opts.Colormap)
		if err != nil {
			return nil, err
		}
		scale.Colormap, scale.Norm = cmap, nil
	}

	raw, err := ExtractSlice(overlay, s)
	if err != nil {
		return nil, err
	}
	g := ApplyThreshold(raw, opts.Threshold)
	lo, hi, ok := g.MinMax()
	if scale.Norm == nil {
		scale.Norm = colors.LinearNorm{VMin: lo, VMax: hi}
	}

	res := &OverlayResult{Slice: s, Scale: scale, Grid: g}

	if opts.DrawContours {
		if ok {
			res.Levels = contourLevels(lo, hi, opts.ContourLevels)
		}
		for _, level := range res.Levels {
			c := scale.Colormap.At(scale.Norm.Normalize(level))
			for _, line := range contour.Find(g, level) {
				pts := toWorld(line, s.Extent, g.Rows, g.Cols)
				res.Contours = append(res.Contours, pts)
				ax.Plot(visualization.LineLayer{Points: pts, Color: c, Width: opts.ContourWidth, Alpha: 1})
			}
		}
	} else {
		if _, err := ax.Imshow(visualization.ImageLayer{
			Grid:          g,
			Extent:        s.Extent,
			Colormap:      scale.Colormap,
			Norm:          scale.Norm,
			Alpha:         opts.Alpha,
			Interpolation: opts.Interpolation,
		}); err != nil {
			return nil, err
		}
	}

	if opts.Outline {
		for _, line := range contour.Find(magnitude(g), opts.Threshold) {
			pts := toWorld(line, s.Extent, g.Rows, g.Cols)
			res.Outline = append(res.Outline, pts)
			ax.Plot(visualization.LineLayer{
				Points: pts,
				Color:  opts.OutlineStyle.Color,
				Width:  opts.OutlineStyle.Width,
				Alpha:  opts.OutlineStyle.Alpha,
			})
		}
	}

	res.Bounds = visibleBounds(g, s.Extent)
	if res.Bounds != nil {
		res.Bounds = coverLines(*res.Bounds, res.Contours, res.Outline)
	}
	switch {
	case opts.PreserveView != nil:
		ax.SetView(*opts.PreserveView)
	case res.Bounds != nil:
		ax.SetView(ax.View().Fit(*res.Bounds))
	}

	ax.Logger().Debug("overlay composited",
		zap.Stringer("plane", s.Plane),
		zap.Float64("mm", mm),
		zap.Int("index", s.Index),
		zap.Stringer("scale", scale.Kind),
		zap.String("colormap", scale.Colormap.Name()),
		zap.Int("contours", len(res.Contours)),
		zap.Int("outlines", len(res.Outline)))
	return res, nil
}

// contourLevels returns n levels evenly spaced strictly inside (lo, hi).
func contourLevels(lo, hi float64, n int) []float64 {
	if n <= 0 || !(lo < hi) {
		return nil
	}
	levels := make([]float64, n)
	step := (hi - lo) / float64(n+1)
	for i := range levels {
		levels[i] = lo + step*float64(i+1)
	}
	return levels
}

// magnitude returns |v| of g with NaN read as zero.
func magnitude(g *models.Grid) *models.Grid {
	out := models.NewGrid(g.Rows, g.Cols)
	for i, v := range g.Data {
		if !math.IsNaN(v) {
			out.Data[i] = math.Abs(v)
		}
	}
	return out
}

// toWorld maps contour points in sample coordinates onto the extent, with
// sample (0, 0) at (XMin, YMax) and sample (rows-1, cols-1) at (XMax, YMin).
func toWorld(line []contour.Point, e models.Extent, rows, cols int) []models.Point {
	dx, dy := 0.0, 0.0
	if cols > 1 {
		dx = (e.XMax - e.XMin) / float64(cols-1)
	}
	if rows > 1 {
		dy = (e.YMax - e.YMin) / float64(rows-1)
	}
	pts := make([]models.Point, len(line))
	for i, p := range line {
		pts[i] = models.Point{X: e.XMin + p.Col*dx, Y: e.YMax - p.Row*dy}
	}
	return pts
}

// visibleBounds returns the mm rectangle covered by the non-NaN, non-zero
// samples of g, treating the extent as the outer edges of the samples the
// same way the raster is drawn.
func visibleBounds(g *models.Grid, e models.Extent) *models.Extent {
	r0, r1, c0, c1 := g.Rows, -1, g.Cols, -1
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			v := g.At(r, c)
			if v == 0 || math.IsNaN(v) {
				continue
			}
			r0, r1 = min(r0, r), max(r1, r)
			c0, c1 = min(c0, c), max(c1, c)
		}
	}
	if r1 < 0 {
		return nil
	}
	dx := (e.XMax - e.XMin) / float64(g.Cols)
	dy := (e.YMax - e.YMin) / float64(g.Rows)
	b := models.Extent{
		XMin: e.XMin + float64(c0)*dx,
		XMax: e.XMin + float64(c1+1)*dx,
		YMin: e.YMax - float64(r1+1)*dy,
		YMax: e.YMax - float64(r0)*dy,
	}.Sorted()
	return &b
}

// coverLines grows b so that it contains every finite point of lines.
// Outline crossings lie between a visible sample and its hidden neighbour,
// which can fall outside the pixels of the visible samples.
func coverLines(b models.Extent, lines ...[][]models.Point) *models.Extent {
	for _, set := range lines {
		for _, line := range set {
			for _, p := range line {
				if math.IsNaN(p.X) || math.IsNaN(p.Y) {
					continue
				}
				b.XMin, b.XMax = math.Min(b.XMin, p.X), math.Max(b.XMax, p.X)
				b.YMin, b.YMax = math.Min(b.YMin, p.Y), math.Max(b.YMax, p.Y)
			}
		}
	}
	return &b
}

func (o OverlayOptions) String() string {
	return fmt.Sprintf("overlay(plane=%s alpha=%.2f threshold=%g cmap=%s contours=%t outline=%t)",
		o.Plane, o.Alpha, o.Threshold, o.Colormap, o.DrawContours, o.Outline)
}
