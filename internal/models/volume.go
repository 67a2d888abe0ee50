package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVolume is returned when a volume's dimensions and data disagree.
var ErrInvalidVolume = errors.New("invalid volume")

// Volume represents a 3D scalar image paired with the affine transform that
// maps voxel indices (i, j, k) to real-world millimeter coordinates.
type Volume struct {
	// Data is the voxel data as a 1D array with i varying fastest,
	// then j, then k.
	Data []float64

	// Dims holds the number of voxels along i, j and k.
	Dims [3]int

	// Affine maps (i, j, k, 1) to (x, y, z, 1) in mm.
	Affine Affine
}

// NewVolume allocates a zero-filled volume with the given dimensions.
func NewVolume(dims [3]int, affine Affine) *Volume {
	n := 1
	for _, d := range dims {
		if d > 0 {
			n *= d
		} else {
			n = 0
		}
	}
	return &Volume{
		Data:   make([]float64, n),
		Dims:   dims,
		Affine: affine,
	}
}

// Index returns the position of voxel (i, j, k) in Data.
func (v *Volume) Index(i, j, k int) int {
	return k*v.Dims[0]*v.Dims[1] + j*v.Dims[0] + i
}

// At returns the value of voxel (i, j, k).
// Indices outside the volume panic, like slice indexing does.
func (v *Volume) At(i, j, k int) float64 {
	return v.Data[v.Index(i, j, k)]
}

// Set stores val at voxel (i, j, k).
func (v *Volume) Set(i, j, k int, val float64) {
	v.Data[v.Index(i, j, k)] = val
}

// Len returns the number of voxels.
func (v *Volume) Len() int {
	return v.Dims[0] * v.Dims[1] * v.Dims[2]
}

// Validate checks that the dimensions are positive, that the data length
// matches them, and that the affine can be inverted.
func (v *Volume) Validate() error {
	for axis, d := range v.Dims {
		if d <= 0 {
			return fmt.Errorf("%w: axis %d has %d voxels", ErrInvalidVolume, axis, d)
		}
	}
	if len(v.Data) != v.Len() {
		return fmt.Errorf("%w: %d values for dimensions %v", ErrInvalidVolume, len(v.Data), v.Dims)
	}
	if _, err := v.Affine.Inverse(); err != nil {
		return err
	}
	return nil
}

// Grid is a 2D image of real values stored row-major. NaN marks a
// transparent (missing) sample.
type Grid struct {
	Rows, Cols int
	Data       []float64
}

// NewGrid allocates a rows x cols grid filled with zeros.
func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Dims returns the grid's rows and columns.
func (g *Grid) Dims() (rows, cols int) { return g.Rows, g.Cols }

// At returns the sample at row r, column c.
func (g *Grid) At(r, c int) float64 { return g.Data[r*g.Cols+c] }

// Set stores val at row r, column c.
func (g *Grid) Set(r, c int, val float64) { g.Data[r*g.Cols+c] = val }

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)
	return &Grid{Rows: g.Rows, Cols: g.Cols, Data: data}
}

// MinMax returns the smallest and largest finite samples. ok is false when
// every sample is NaN.
func (g *Grid) MinMax() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// Extent is the real-world rectangle covered by a 2D slice, in mm.
// The endpoints are kept in voxel order, so XMin may exceed XMax when the
// affine flips an axis.
type Extent struct {
	XMin, XMax, YMin, YMax float64
}

// Sorted returns the extent with each axis in ascending order.
func (e Extent) Sorted() Extent {
	if e.XMin > e.XMax {
		e.XMin, e.XMax = e.XMax, e.XMin
	}
	if e.YMin > e.YMax {
		e.YMin, e.YMax = e.YMax, e.YMin
	}
	return e
}

// Contains reports whether p lies inside the extent, borders included.
func (e Extent) Contains(p Point) bool {
	s := e.Sorted()
	return p.X >= s.XMin && p.X <= s.XMax && p.Y >= s.YMin && p.Y <= s.YMax
}

// Point is a 2D position in real-world display coordinates.
type Point struct {
	X, Y float64
}

// ScaleKind classifies an overlay by the signs of its values.
type ScaleKind int

const (
	// Diverging is used when both negative and positive values are present.
	Diverging ScaleKind = iota
	// Low is used when every non-zero value is negative.
	Low
	// High is used when no value is negative.
	High
)

func (k ScaleKind) String() string {
	switch k {
	case Diverging:
		return "diverging"
	case Low:
		return "low"
	case High:
		return "high"
	}
	return fmt.Sprintf("ScaleKind(%d)", int(k))
}
