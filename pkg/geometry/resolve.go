// Package geometry converts millimeter slice positions into voxel indices
// and display extents for the three anatomical planes.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"bssplot/internal/models"
)

// ErrSliceOutOfRange is returned when a slice position resolves to a voxel
// index outside the volume. The position is never clamped.
var ErrSliceOutOfRange = errors.New("slice position outside volume")

// ErrZeroSpacing is returned when the affine has a zero diagonal entry on
// the plane's fixed axis.
var ErrZeroSpacing = errors.New("affine has zero spacing on fixed axis")

// AxisMap describes how a plane selects axes from a volume.
type AxisMap struct {
	// Fixed is the voxel axis held constant by the plane.
	Fixed int

	// Free are the two voxel axes spanning the slice: Free[0] runs along
	// the display x axis and Free[1] along the display y axis.
	Free [2]int

	// Labels are the display axis labels for Free[0] and Free[1].
	Labels [2]string
}

var planeTable = [...]AxisMap{
	models.Sagittal:   {Fixed: 0, Free: [2]int{1, 2}, Labels: [2]string{"Y (mm)", "Z (mm)"}},
	models.Coronal:    {Fixed: 1, Free: [2]int{0, 2}, Labels: [2]string{"X (mm)", "Z (mm)"}},
	models.Horizontal: {Fixed: 2, Free: [2]int{0, 1}, Labels: [2]string{"X (mm)", "Y (mm)"}},
}

// PlaneAxes returns the axis permutation for p.
func PlaneAxes(p models.Plane) (AxisMap, error) {
	if !p.Valid() {
		return AxisMap{}, fmt.Errorf("%w: %v", models.ErrInvalidPlane, p)
	}
	return planeTable[p], nil
}

// RoundHalfEven rounds x to the nearest integer, ties going to the even
// neighbour (0.5 -> 0, 1.5 -> 2, -0.5 -> 0).
func RoundHalfEven(x float64) int {
	return int(math.RoundToEven(x))
}

// VoxelIndex converts a position in mm along the plane's fixed axis into a
// voxel index using only the diagonal and translation of that axis:
//
//	index = RoundHalfEven((mm - affine[a][3]) / affine[a][a])
//
// Rotations and shears are ignored. The result is not range checked.
func VoxelIndex(affine models.Affine, plane models.Plane, mm float64) (int, error) {
	axes, err := PlaneAxes(plane)
	if err != nil {
		return 0, err
	}
	spacing := affine.Spacing(axes.Fixed)
	if spacing == 0 {
		return 0, fmt.Errorf("%w: axis %d", ErrZeroSpacing, axes.Fixed)
	}
	return RoundHalfEven((mm - affine.Origin(axes.Fixed)) / spacing), nil
}

// FreeAxisCoords maps voxel coordinates 0..n-1 along axis (other axes at 0)
// through the affine and returns the world coordinate on that same axis.
func FreeAxisCoords(affine models.Affine, axis, n int) []float64 {
	if n <= 0 {
		return nil
	}
	voxels := make([]float64, n)
	if n > 1 {
		floats.Span(voxels, 0, float64(n-1))
	}
	world := make([]float64, n)
	for i, v := range voxels {
		var p [3]float64
		p[axis] = v
		world[i] = affine.Apply(p)[axis]
	}
	return world
}

// Slice is a resolved cross-section of a volume.
type Slice struct {
	Plane models.Plane
	Axes  AxisMap

	// Index is the voxel index along Axes.Fixed.
	Index int

	// Rows and Cols are the 2D shape: Cols voxels along Axes.Free[0] and
	// Rows voxels along Axes.Free[1].
	Rows, Cols int

	// Extent holds the raw endpoints of the free axes in mm.
	Extent models.Extent
}

// Resolve converts mm along plane into a voxel index for a volume with
// dims and affine, and computes the real-world extent of the slice.
//
// The index must fall inside the volume; otherwise ErrSliceOutOfRange is
// returned. Callers picking positions by hand are expected to stay within
// the volume's field of view.
func Resolve(affine models.Affine, dims [3]int, plane models.Plane, mm float64) (Slice, error) {
	axes, err := PlaneAxes(plane)
	if err != nil {
		return Slice{}, err
	}
	index, err := VoxelIndex(affine, plane, mm)
	if err != nil {
		return Slice{}, err
	}
	if n := dims[axes.Fixed]; index < 0 || index >= n {
		return Slice{}, fmt.Errorf("%w: %s position %.3f mm is voxel %d, axis %d has %d voxels",
			ErrSliceOutOfRange, plane, mm, index, axes.Fixed, n)
	}

	cols, rows := dims[axes.Free[0]], dims[axes.Free[1]]
	if cols <= 0 || rows <= 0 {
		return Slice{}, fmt.Errorf("%w: empty free axis in dimensions %v", models.ErrInvalidVolume, dims)
	}
	xs := FreeAxisCoords(affine, axes.Free[0], cols)
	ys := FreeAxisCoords(affine, axes.Free[1], rows)

	return Slice{
		Plane: plane,
		Axes:  axes,
		Index: index,
		Rows:  rows,
		Cols:  cols,
		Extent: models.Extent{
			XMin: xs[0],
			XMax: xs[len(xs)-1],
			YMin: ys[0],
			YMax: ys[len(ys)-1],
		},
	}, nil
}
