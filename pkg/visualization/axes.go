// Package visualization provides a small 2D display surface for rendering
// slices, overlays and polylines in real-world (mm) coordinates to images.
package visualization

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"go.uber.org/zap"

	"bssplot/internal/models"
	"bssplot/pkg/colors"
)

var (
	// ErrInvalidInterpolation is returned for an unknown interpolation name.
	ErrInvalidInterpolation = errors.New("invalid interpolation")

	// ErrInvalidLayer is returned for an image layer without a usable grid.
	ErrInvalidLayer = errors.New("invalid layer")

	// ErrCanvasTooSmall is returned when the requested image leaves no room
	// for the plotting area.
	ErrCanvasTooSmall = errors.New("canvas too small")

	// ErrDegenerateView is returned when a view has zero width or height.
	ErrDegenerateView = errors.New("degenerate view")
)

// View is the visible data window of an Axes. X[0] is drawn at the left
// edge and Y[0] at the bottom edge, so a descending pair flips the axis.
type View struct {
	X, Y [2]float64
}

// Bounds returns the view as an extent in drawing order.
func (v View) Bounds() models.Extent {
	return models.Extent{XMin: v.X[0], XMax: v.X[1], YMin: v.Y[0], YMax: v.Y[1]}
}

// Fit returns a view covering e while keeping the orientation of v on each
// axis.
func (v View) Fit(e models.Extent) View {
	s := e.Sorted()
	out := View{X: [2]float64{s.XMin, s.XMax}, Y: [2]float64{s.YMin, s.YMax}}
	if v.X[0] > v.X[1] {
		out.X[0], out.X[1] = out.X[1], out.X[0]
	}
	if v.Y[0] > v.Y[1] {
		out.Y[0], out.Y[1] = out.Y[1], out.Y[0]
	}
	return out
}

// ImageLayer is a grid drawn over a real-world extent. Row 0 of the grid is
// drawn at YMax and column 0 at XMin.
type ImageLayer struct {
	Grid   *models.Grid
	Extent models.Extent

	// Colormap defaults to gray.
	Colormap colors.Colormap

	// Norm defaults to a linear norm over the finite range of Grid.
	Norm colors.Norm

	// Alpha in (0, 1]; zero means opaque.
	Alpha float64

	// Interpolation is one of nearest, none, bilinear, bicubic or gaussian.
	Interpolation string
}

func (l *ImageLayer) bounds() (models.Extent, bool) {
	return l.Extent.Sorted(), true
}

// LineLayer is a polyline in real-world coordinates. A NaN point breaks the
// line.
type LineLayer struct {
	Points []models.Point
	Color  color.NRGBA

	// Width in pixels.
	Width float64

	// Alpha in (0, 1]; zero means opaque.
	Alpha float64
}

func (l *LineLayer) bounds() (models.Extent, bool) {
	e := models.Extent{
		XMin: math.Inf(1), XMax: math.Inf(-1),
		YMin: math.Inf(1), YMax: math.Inf(-1),
	}
	ok := false
	for _, p := range l.Points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		e.XMin = math.Min(e.XMin, p.X)
		e.XMax = math.Max(e.XMax, p.X)
		e.YMin = math.Min(e.YMin, p.Y)
		e.YMax = math.Max(e.YMax, p.Y)
		ok = true
	}
	return e, ok
}

type layer interface {
	bounds() (models.Extent, bool)
}

// Axes collects layers drawn in one shared real-world coordinate frame.
// Layers are painted in the order they were added.
type Axes struct {
	Title  string
	XLabel string
	YLabel string

	// EqualAspect keeps one mm the same number of pixels on both axes.
	EqualAspect bool

	layers []layer
	view   *View
	logger *zap.Logger
}

// AxesOption configures an Axes.
type AxesOption func(*Axes)

// WithLogger sets the logger used by the Axes and by the helpers drawing
// onto it.
func WithLogger(l *zap.Logger) AxesOption {
	return func(a *Axes) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAxes creates an empty display surface.
func NewAxes(opts ...AxesOption) *Axes {
	a := &Axes{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Logger returns the logger attached to the axes.
func (a *Axes) Logger() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// Imshow adds an image layer and returns it.
func (a *Axes) Imshow(l ImageLayer) (*ImageLayer, error) {
	if l.Grid == nil || l.Grid.Rows <= 0 || l.Grid.Cols <= 0 || len(l.Grid.Data) != l.Grid.Rows*l.Grid.Cols {
		return nil, fmt.Errorf("%w: image grid is empty or inconsistent", ErrInvalidLayer)
	}
	if _, err := Interpolator(l.Interpolation); err != nil {
		return nil, err
	}
	layer := l
	a.layers = append(a.layers, &layer)
	a.Logger().Debug("image layer added",
		zap.Int("rows", l.Grid.Rows),
		zap.Int("cols", l.Grid.Cols),
		zap.String("interpolation", l.Interpolation))
	return &layer, nil
}

// Plot adds a line layer and returns it.
func (a *Axes) Plot(l LineLayer) *LineLayer {
	layer := l
	a.layers = append(a.layers, &layer)
	return &layer
}

// Images returns the image layers in drawing order.
func (a *Axes) Images() []*ImageLayer {
	var out []*ImageLayer
	for _, l := range a.layers {
		if im, ok := l.(*ImageLayer); ok {
			out = append(out, im)
		}
	}
	return out
}

// Lines returns the line layers in drawing order.
func (a *Axes) Lines() []*LineLayer {
	var out []*LineLayer
	for _, l := range a.layers {
		if ln, ok := l.(*LineLayer); ok {
			out = append(out, ln)
		}
	}
	return out
}

// View returns the explicit view if one was set, otherwise the union of
// all layer bounds oriented like the first image layer.
func (a *Axes) View() View {
	if a.view != nil {
		return *a.view
	}
	return a.autoView()
}

// SetView fixes the visible window.
func (a *Axes) SetView(v View) {
	a.view = &v
}

// SetXLim fixes the horizontal range, keeping the current vertical one.
func (a *Axes) SetXLim(left, right float64) {
	v := a.View()
	v.X = [2]float64{left, right}
	a.view = &v
}

// SetYLim fixes the vertical range, keeping the current horizontal one.
func (a *Axes) SetYLim(bottom, top float64) {
	v := a.View()
	v.Y = [2]float64{bottom, top}
	a.view = &v
}

// ResetView drops any explicit view so it follows the layers again.
func (a *Axes) ResetView() {
	a.view = nil
}

func (a *Axes) autoView() View {
	union := models.Extent{
		XMin: math.Inf(1), XMax: math.Inf(-1),
		YMin: math.Inf(1), YMax: math.Inf(-1),
	}
	found := false
	var first *ImageLayer
	for _, l := range a.layers {
		b, ok := l.bounds()
		if !ok {
			continue
		}
		if im, isImage := l.(*ImageLayer); isImage && first == nil {
			first = im
		}
		union.XMin = math.Min(union.XMin, b.XMin)
		union.XMax = math.Max(union.XMax, b.XMax)
		union.YMin = math.Min(union.YMin, b.YMin)
		union.YMax = math.Max(union.YMax, b.YMax)
		found = true
	}
	if !found {
		return View{X: [2]float64{0, 1}, Y: [2]float64{0, 1}}
	}
	if union.XMin == union.XMax {
		union.XMin -= 0.5
		union.XMax += 0.5
	}
	if union.YMin == union.YMax {
		union.YMin -= 0.5
		union.YMax += 0.5
	}

	var orient View
	if first != nil {
		orient = View{
			X: [2]float64{first.Extent.XMin, first.Extent.XMax},
			Y: [2]float64{first.Extent.YMin, first.Extent.YMax},
		}
	}
	return orient.Fit(union)
}

func opacity(alpha float64) float64 {
	if alpha <= 0 || math.IsNaN(alpha) {
		return 1
	}
	return math.Min(alpha, 1)
}
