package models

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidPlane is returned for any plane other than sagittal, coronal
// or horizontal.
var ErrInvalidPlane = errors.New("invalid plane")

// Plane is one of the three orthogonal anatomical cross-sections.
type Plane int

const (
	// Sagittal fixes x and shows the y/z plane.
	Sagittal Plane = iota
	// Coronal fixes y and shows the x/z plane.
	Coronal
	// Horizontal fixes z and shows the x/y plane.
	Horizontal
)

// ParsePlane converts a plane name to a Plane. "axial" is accepted as a
// synonym for horizontal.
func ParsePlane(s string) (Plane, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sagittal":
		return Sagittal, nil
	case "coronal":
		return Coronal, nil
	case "horizontal", "axial":
		return Horizontal, nil
	}
	return 0, fmt.Errorf("%w: %q (must be sagittal, coronal or horizontal)", ErrInvalidPlane, s)
}

// Valid reports whether p is one of the three known planes.
func (p Plane) Valid() bool {
	return p >= Sagittal && p <= Horizontal
}

func (p Plane) String() string {
	switch p {
	case Sagittal:
		return "sagittal"
	case Coronal:
		return "coronal"
	case Horizontal:
		return "horizontal"
	}
	return fmt.Sprintf("Plane(%d)", int(p))
}

// Streamline is an ordered sequence of 3D points tracing a fiber path.
type Streamline []r3.Vec
