package rainflow

import (
	"fmt"

	Rt "github.com/maroda/rainflow/types"
)

// ResidueBuffer holds the turning points not yet resolved
// into a closed cycle, in stream order. It grows with
// amortized reallocation unless a static capacity was set,
// in which case overflow is a capacity error instead of a
// silent truncation.
type ResidueBuffer struct {
	pts      []Rt.ValueTuple
	capacity int // 0 means dynamic
}

func NewResidueBuffer(capacity int) *ResidueBuffer {
	rb := &ResidueBuffer{capacity: capacity}
	if capacity > 0 {
		rb.pts = make([]Rt.ValueTuple, 0, capacity)
	}
	return rb
}

func (rb *ResidueBuffer) Push(t Rt.ValueTuple) error {
	if rb.capacity > 0 && len(rb.pts) >= rb.capacity {
		return fmt.Errorf("%w: residue buffer full at %d points", ErrCapacityExceeded, rb.capacity)
	}
	rb.pts = append(rb.pts, t)
	return nil
}

func (rb *ResidueBuffer) Len() int { return len(rb.pts) }

func (rb *ResidueBuffer) At(i int) Rt.ValueTuple { return rb.pts[i] }

// RemovePair drops the two points at i and i+1, the closed
// inner excursion, leaving the outer points adjacent.
func (rb *ResidueBuffer) RemovePair(i int) {
	rb.pts = append(rb.pts[:i], rb.pts[i+2:]...)
}

func (rb *ResidueBuffer) Clear() {
	rb.pts = rb.pts[:0]
}

// Points is a defensive copy for snapshots.
func (rb *ResidueBuffer) Points() []Rt.ValueTuple {
	out := make([]Rt.ValueTuple, len(rb.pts))
	copy(out, rb.pts)
	return out
}

// Values is the residue as raw values, handy in tests.
func (rb *ResidueBuffer) Values() []float64 {
	out := make([]float64, len(rb.pts))
	for i, p := range rb.pts {
		out[i] = p.Value
	}
	return out
}
