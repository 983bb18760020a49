package rainflow

import (
	"fmt"
	"math"
)

// ClassMapper discretizes raw load values into class indexes.
// Boundaries are half-open: class i covers
// [Offset + i*Width, Offset + (i+1)*Width).
type ClassMapper struct {
	Count  int
	Width  float64
	Offset float64
}

// NewClassMapper validates the class parameters up front so
// nothing downstream has to re-check them.
func NewClassMapper(count int, width, offset float64) (*ClassMapper, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: class count %d, want >= 1", ErrInvalidArgument, count)
	}
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return nil, fmt.Errorf("%w: class width %v, want > 0", ErrInvalidArgument, width)
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return nil, fmt.Errorf("%w: class offset %v", ErrInvalidArgument, offset)
	}
	return &ClassMapper{Count: count, Width: width, Offset: offset}, nil
}

// ClassOf maps a value to its class index, clamped to
// [0, Count-1]. Total and side-effect free.
func (cm *ClassMapper) ClassOf(v float64) int {
	i := int(math.Floor((v - cm.Offset) / cm.Width))
	if i < 0 {
		return 0
	}
	if i >= cm.Count {
		return cm.Count - 1
	}
	return i
}

// ClassMean is the representative value of a class, used for
// residue export and damage amplitudes.
func (cm *ClassMapper) ClassMean(i int) float64 {
	return cm.Offset + (float64(i)+0.5)*cm.Width
}

// ClassUpper is the exclusive upper boundary of a class.
func (cm *ClassMapper) ClassUpper(i int) float64 {
	return cm.Offset + float64(i+1)*cm.Width
}
