package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularAffine is returned when an affine transform cannot be inverted.
var ErrSingularAffine = errors.New("affine is not invertible")

// Affine is a 4x4 homogeneous transform from voxel indices to mm.
// The zero value behaves as the identity.
type Affine struct {
	m *mat.Dense
}

// NewAffine builds an affine from 16 values in row-major order.
func NewAffine(values [16]float64) Affine {
	data := make([]float64, 16)
	copy(data, values[:])
	return Affine{m: mat.NewDense(4, 4, data)}
}

// IdentityAffine returns the identity transform.
func IdentityAffine() Affine {
	return DiagonalAffine(1, 1, 1, 0, 0, 0)
}

// DiagonalAffine returns an affine with per-axis spacing sx, sy, sz and
// origin (ox, oy, oz).
func DiagonalAffine(sx, sy, sz, ox, oy, oz float64) Affine {
	return NewAffine([16]float64{
		sx, 0, 0, ox,
		0, sy, 0, oy,
		0, 0, sz, oz,
		0, 0, 0, 1,
	})
}

func (a Affine) dense() *mat.Dense {
	if a.m == nil {
		return IdentityAffine().m
	}
	return a.m
}

// At returns the element at row r, column c.
func (a Affine) At(r, c int) float64 {
	return a.dense().At(r, c)
}

// Spacing returns the diagonal entry for axis, the signed voxel size.
func (a Affine) Spacing(axis int) float64 {
	return a.At(axis, axis)
}

// Origin returns the translation component for axis.
func (a Affine) Origin(axis int) float64 {
	return a.At(axis, 3)
}

// Matrix exposes the transform as a gonum matrix.
func (a Affine) Matrix() mat.Matrix {
	return a.dense()
}

// Array returns the 16 values in row-major order.
func (a Affine) Array() [16]float64 {
	var out [16]float64
	m := a.dense()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m.At(r, c)
		}
	}
	return out
}

// Apply maps the point p through the transform.
func (a Affine) Apply(p [3]float64) [3]float64 {
	in := mat.NewVecDense(4, []float64{p[0], p[1], p[2], 1})
	var out mat.VecDense
	out.MulVec(a.dense(), in)
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// Inverse returns the transform mapping mm back to voxel indices.
func (a Affine) Inverse() (Affine, error) {
	var inv mat.Dense
	if err := inv.Inverse(a.dense()); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return Affine{}, fmt.Errorf("%w: %v", ErrSingularAffine, err)
		}
	}
	return Affine{m: &inv}, nil
}

func (a Affine) String() string {
	return fmt.Sprintf("%v", mat.Formatted(a.dense(), mat.Squeeze()))
}
