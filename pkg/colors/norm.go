package colors

import (
	"fmt"
	"math"
)

// Norm maps data values to [0, 1] ahead of a Colormap lookup.
type Norm interface {
	Normalize(v float64) float64
}

// LinearNorm maps VMin to 0 and VMax to 1. Values outside the range are
// left for the colormap to clamp.
type LinearNorm struct {
	VMin, VMax float64
}

func (n LinearNorm) Normalize(v float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	if n.VMax == n.VMin {
		return 0
	}
	return (v - n.VMin) / (n.VMax - n.VMin)
}

// TwoSlopeNorm maps VMin to 0, VCenter to 0.5 and VMax to 1 with a separate
// linear slope on each side of the center.
type TwoSlopeNorm struct {
	VMin, VCenter, VMax float64
}

// NewTwoSlopeNorm validates that vmin < vcenter < vmax.
func NewTwoSlopeNorm(vmin, vcenter, vmax float64) (TwoSlopeNorm, error) {
	if !(vmin < vcenter && vcenter < vmax) {
		return TwoSlopeNorm{}, fmt.Errorf("two-slope norm needs vmin < vcenter < vmax, got %v, %v, %v", vmin, vcenter, vmax)
	}
	return TwoSlopeNorm{VMin: vmin, VCenter: vcenter, VMax: vmax}, nil
}

func (n TwoSlopeNorm) Normalize(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case v <= n.VMin:
		return 0
	case v >= n.VMax:
		return 1
	case v < n.VCenter:
		return 0.5 * (v - n.VMin) / (n.VCenter - n.VMin)
	}
	return 0.5 + 0.5*(v-n.VCenter)/(n.VMax-n.VCenter)
}
