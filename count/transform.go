package rainflow

import (
	"fmt"
	"math"
	"sort"

	Rt "github.com/maroda/rainflow/types"
)

// HaighTransform maps an amplitude at some mean stress to the
// equivalent amplitude at the reference mean-stress ratio
// R = -1. Two parameterizations exist: the piecewise FKM-style
// relation driven by a mean stress sensitivity M, and a
// user-supplied Haigh curve sampled as (Sm, Sa) points.
// A nil *HaighTransform is the identity everywhere it is used.
type HaighTransform struct {
	M         float64
	Symmetric bool
	Curve     []Rt.HaighPoint

	lut *TransformLUT
}

// NewHaighTransform builds the parametric relation. Symmetric
// treats tensile and compressive means alike.
func NewHaighTransform(m float64, symmetric bool) (*HaighTransform, error) {
	if m < 0 || m >= 1 || math.IsNaN(m) {
		return nil, fmt.Errorf("%w: mean stress sensitivity %v, want 0 <= M < 1", ErrInvalidArgument, m)
	}
	return &HaighTransform{M: m, Symmetric: symmetric}, nil
}

// NewHaighTransformCurve builds the user-supplied relation.
// Points must cover Sm = 0 between their extremes and carry
// positive amplitudes.
func NewHaighTransformCurve(points []Rt.HaighPoint) (*HaighTransform, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: haigh curve needs >= 2 points, got %d", ErrInvalidArgument, len(points))
	}
	curve := make([]Rt.HaighPoint, len(points))
	copy(curve, points)
	sort.Slice(curve, func(i, j int) bool { return curve[i].Sm < curve[j].Sm })
	for _, p := range curve {
		if p.Sa <= 0 {
			return nil, fmt.Errorf("%w: haigh curve amplitude %v at Sm %v, want > 0", ErrInvalidArgument, p.Sa, p.Sm)
		}
	}
	if curve[0].Sm > 0 || curve[len(curve)-1].Sm < 0 {
		return nil, fmt.Errorf("%w: haigh curve must span Sm = 0", ErrInvalidArgument)
	}
	return &HaighTransform{Curve: curve}, nil
}

// Transform returns the R = -1 equivalent amplitude for a
// cycle with amplitude sa at mean sm.
func (t *HaighTransform) Transform(sa, sm float64) (float64, error) {
	if t == nil {
		return 0, ErrTransform
	}
	if sa <= 0 {
		return sa, nil
	}
	if t.lut != nil {
		return t.lut.Lookup(sa, sm), nil
	}
	return t.transformDirect(sa, sm)
}

func (t *HaighTransform) transformDirect(sa, sm float64) (float64, error) {
	if len(t.Curve) > 0 {
		return t.transformCurve(sa, sm)
	}

	m := t.M
	s := sm
	if t.Symmetric {
		s = math.Abs(sm)
	}

	// Piecewise relation by mean stress ratio region, continuous
	// at the seams.
	switch {
	case s >= -sa && s <= sa: // R <= 0
		return sa + m*s, nil
	case s > sa && s < 3*sa: // 0 < R < 0.5
		m3 := m / 3
		return (1 + m) * (sa + m3*s) / (1 + m3), nil
	case s >= 3*sa: // R >= 0.5
		return 3 * (1 + m) * (1 + m) / (3 + m) * sa, nil
	default: // R > 1, fully compressive
		return sa * (1 - m), nil
	}
}

// transformCurve scales the amplitude by the curve's allowed
// amplitude at Sm = 0 over the allowed amplitude at sm.
func (t *HaighTransform) transformCurve(sa, sm float64) (float64, error) {
	if t.Symmetric {
		sm = math.Abs(sm)
	}
	at := t.curveAt(sm)
	ref := t.curveAt(0)
	if at <= 0 {
		return 0, fmt.Errorf("%w: haigh curve amplitude is zero at Sm %v", ErrTransform, sm)
	}
	return sa * ref / at, nil
}

// curveAt linearly interpolates the curve, clamped at both ends.
func (t *HaighTransform) curveAt(sm float64) float64 {
	c := t.Curve
	if sm <= c[0].Sm {
		return c[0].Sa
	}
	if sm >= c[len(c)-1].Sm {
		return c[len(c)-1].Sa
	}
	i := sort.Search(len(c), func(i int) bool { return c[i].Sm >= sm })
	lo, hi := c[i-1], c[i]
	frac := (sm - lo.Sm) / (hi.Sm - lo.Sm)
	return lo.Sa + frac*(hi.Sa-lo.Sa)
}
