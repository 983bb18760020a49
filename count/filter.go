package rainflow

import (
	"math"

	Rt "github.com/maroda/rainflow/types"
)

// TurningPointFilter consumes raw samples one at a time and
// emits the local extrema that survive the hysteresis band.
// At most one unresolved candidate (the interim point) is
// carried across Feed calls, which is what makes chunked
// feeding give the same turning points as one big feed.
//
// Plateaus (runs of equal values) are absorbed into the
// current candidate, which keeps its earliest stream position.
//
// With Margin set, the very first fed sample is committed as
// a turning point immediately, and the very last sample is
// committed at finalize with the boundary stream position.
type TurningPointFilter struct {
	Hysteresis float64
	Margin     bool

	started   bool
	direction int // -1 falling, 0 no slope yet, +1 rising
	candidate Rt.ValueTuple
	lastValue float64
	lastPos   uint64
}

// NewTurningPointFilter validates the hysteresis threshold.
func NewTurningPointFilter(hysteresis float64, margin bool) (*TurningPointFilter, error) {
	if hysteresis < 0 || math.IsNaN(hysteresis) {
		return nil, errInvalidHysteresis(hysteresis)
	}
	return &TurningPointFilter{Hysteresis: hysteresis, Margin: margin}, nil
}

// HasInterim reports whether the most recent sample is still
// held back as an unresolved candidate.
func (f *TurningPointFilter) HasInterim() bool {
	return f.started && f.candidate.Pos == f.lastPos
}

// Feed pushes one raw sample at stream position pos through
// the filter. Accepted turning points are handed to emit in
// stream order.
func (f *TurningPointFilter) Feed(v float64, pos uint64, cm *ClassMapper, emit func(Rt.ValueTuple) error) error {
	f.lastValue = v
	f.lastPos = pos

	if !f.started {
		f.started = true
		f.candidate = tuple(v, pos, cm)
		if f.Margin {
			return emit(f.candidate)
		}
		return nil
	}

	delta := v - f.candidate.Value
	if delta == 0 {
		// plateau, absorbed into the candidate
		return nil
	}

	if f.direction == 0 {
		if math.Abs(delta) >= f.Hysteresis {
			// slope established: the candidate is the first extremum
			f.direction = sign(delta)
			first := f.candidate
			f.candidate = tuple(v, pos, cm)
			if f.Margin {
				// already emitted when fed
				return nil
			}
			return emit(first)
		}
		return nil
	}

	if sign(delta) == f.direction {
		// extremum grows in the running direction
		f.candidate = tuple(v, pos, cm)
		return nil
	}

	// direction reversal: only a move past the hysteresis band
	// turns the candidate into a committed turning point
	if math.Abs(delta) >= f.Hysteresis {
		done := f.candidate
		f.direction = -f.direction
		f.candidate = tuple(v, pos, cm)
		return emit(done)
	}
	return nil
}

// Finalize force-resolves the interim candidate at stream end.
// Without margin enforcement the trailing extremum is emitted
// with its own position; with it, the boundary sample wins the
// position (and is emitted on its own when it differs in value).
func (f *TurningPointFilter) Finalize(cm *ClassMapper, emit func(Rt.ValueTuple) error) error {
	if !f.started {
		return nil
	}

	if f.direction == 0 {
		// the stream never left the hysteresis band
		if f.Margin && f.lastPos != f.candidate.Pos {
			return emit(tuple(f.lastValue, f.lastPos, cm))
		}
		return nil
	}

	if !f.Margin {
		return emit(f.candidate)
	}

	switch {
	case f.lastPos == f.candidate.Pos:
		return emit(f.candidate)
	case f.lastValue == f.candidate.Value:
		// trailing plateau merges into the boundary position
		return emit(tuple(f.candidate.Value, f.lastPos, cm))
	default:
		if err := emit(f.candidate); err != nil {
			return err
		}
		return emit(tuple(f.lastValue, f.lastPos, cm))
	}
}

func tuple(v float64, pos uint64, cm *ClassMapper) Rt.ValueTuple {
	return Rt.ValueTuple{Value: v, Class: cm.ClassOf(v), Pos: pos, StorePos: -1}
}

func sign(v float64) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}
