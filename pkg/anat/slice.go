// Package anat draws anatomical background slices and statistical overlays
// onto an Axes in real-world millimeter coordinates.
package anat

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"bssplot/internal/models"
	"bssplot/pkg/colors"
	"bssplot/pkg/geometry"
	"bssplot/pkg/visualization"
)

// ErrEmptyVolume is returned when a volume carries no intensity to weigh.
var ErrEmptyVolume = errors.New("volume has no non-zero intensity")

// SliceOptions controls how a background slice is drawn.
type SliceOptions struct {
	Plane models.Plane
	Title string

	// ZeroToNaN makes zero voxels transparent.
	ZeroToNaN bool

	// Interpolation is the resampling filter used for display.
	Interpolation string
}

// DefaultSliceOptions returns the options used when the caller has no
// preference: a sagittal slice with transparent zeros, smoothed for display.
func DefaultSliceOptions() SliceOptions {
	return SliceOptions{
		Plane:         models.Sagittal,
		ZeroToNaN:     true,
		Interpolation: "gaussian",
	}
}

// ExtractSlice copies the voxels of s out of vol. Columns follow the first
// free axis and rows follow the second free axis from its last voxel down to
// its first, so row 0 is the top of the displayed image.
func ExtractSlice(vol *models.Volume, s geometry.Slice) (*models.Grid, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	fixed, fx, fy := s.Axes.Fixed, s.Axes.Free[0], s.Axes.Free[1]
	if s.Cols != vol.Dims[fx] || s.Rows != vol.Dims[fy] {
		return nil, fmt.Errorf("%w: slice is %dx%d, volume dimensions are %v",
			models.ErrInvalidVolume, s.Rows, s.Cols, vol.Dims)
	}
	if s.Index < 0 || s.Index >= vol.Dims[fixed] {
		return nil, fmt.Errorf("%w: voxel %d, axis %d has %d voxels",
			geometry.ErrSliceOutOfRange, s.Index, fixed, vol.Dims[fixed])
	}

	g := models.NewGrid(s.Rows, s.Cols)
	var ijk [3]int
	ijk[fixed] = s.Index
	for r := 0; r < s.Rows; r++ {
		ijk[fy] = s.Rows - 1 - r
		for c := 0; c < s.Cols; c++ {
			ijk[fx] = c
			g.Set(r, c, vol.At(ijk[0], ijk[1], ijk[2]))
		}
	}
	return g, nil
}

// PlotSlice draws the background slice of vol at mm along opts.Plane onto
// ax in gray, labels the axes with the plane's world axes and locks the
// aspect ratio.
func PlotSlice(ax *visualization.Axes, vol *models.Volume, mm float64, opts SliceOptions) (*geometry.Slice, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	s, err := geometry.Resolve(vol.Affine, vol.Dims, opts.Plane, mm)
	if err != nil {
		return nil, err
	}
	g, err := ExtractSlice(vol, s)
	if err != nil {
		return nil, err
	}
	if opts.ZeroToNaN {
		for i, v := range g.Data {
			if v == 0 {
				g.Data[i] = math.NaN()
			}
		}
	}

	gray, err := colors.Lookup("gray")
	if err != nil {
		return nil, err
	}
	if _, err := ax.Imshow(visualization.ImageLayer{
		Grid:          g,
		Extent:        s.Extent,
		Colormap:      gray,
		Interpolation: opts.Interpolation,
	}); err != nil {
		return nil, err
	}

	if opts.Title != "" {
		ax.Title = opts.Title
	}
	ax.XLabel = s.Axes.Labels[0]
	ax.YLabel = s.Axes.Labels[1]
	ax.EqualAspect = true

	ax.Logger().Debug("background slice plotted",
		zap.Stringer("plane", s.Plane),
		zap.Float64("mm", mm),
		zap.Int("index", s.Index),
		zap.Float64s("extent", []float64{s.Extent.XMin, s.Extent.XMax, s.Extent.YMin, s.Extent.YMax}))
	return &s, nil
}

// CutCoords returns the intensity-weighted center of mass of vol in mm.
// Non-finite voxels are ignored.
func CutCoords(vol *models.Volume) ([3]float64, error) {
	if err := vol.Validate(); err != nil {
		return [3]float64{}, err
	}

	n := vol.Len()
	is := make([]float64, 0, n)
	js := make([]float64, 0, n)
	ks := make([]float64, 0, n)
	weights := make([]float64, 0, n)
	total := 0.0
	for k := 0; k < vol.Dims[2]; k++ {
		for j := 0; j < vol.Dims[1]; j++ {
			for i := 0; i < vol.Dims[0]; i++ {
				w := vol.At(i, j, k)
				if w == 0 || math.IsNaN(w) || math.IsInf(w, 0) {
					continue
				}
				is = append(is, float64(i))
				js = append(js, float64(j))
				ks = append(ks, float64(k))
				weights = append(weights, w)
				total += w
			}
		}
	}
	if total == 0 {
		return [3]float64{}, ErrEmptyVolume
	}

	com := [3]float64{
		stat.Mean(is, weights),
		stat.Mean(js, weights),
		stat.Mean(ks, weights),
	}
	return vol.Affine.Apply(com), nil
}

// ComSlice returns the center of mass of vol along the fixed axis of plane,
// a natural slice position when the caller has none.
func ComSlice(vol *models.Volume, plane models.Plane) (float64, error) {
	axes, err := geometry.PlaneAxes(plane)
	if err != nil {
		return 0, err
	}
	com, err := CutCoords(vol)
	if err != nil {
		return 0, err
	}
	return com[axes.Fixed], nil
}
