package rainflow

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Counting increments are fixed point so half cycles stay
// exact: a full closed cycle adds 2, a half cycle adds 1.
const (
	FullCycleIncrement uint64 = 2
	HalfCycleIncrement uint64 = 1
)

// Matrix is the rainflow matrix: closed-cycle increments by
// (from class, to class). The diagonal stays zero, a cycle
// closing onto its own class has zero range and is dropped.
type Matrix struct {
	N      int
	Counts []uint64
}

func NewMatrix(n int) *Matrix {
	return &Matrix{N: n, Counts: make([]uint64, n*n)}
}

func (m *Matrix) index(from, to int) (int, error) {
	if from < 0 || from >= m.N || to < 0 || to >= m.N {
		return 0, fmt.Errorf("%w: matrix entry (%d,%d) outside %dx%d", ErrInvalidArgument, from, to, m.N, m.N)
	}
	return from*m.N + to, nil
}

// At returns the increment count at (from, to).
func (m *Matrix) At(from, to int) uint64 {
	i, err := m.index(from, to)
	if err != nil {
		return 0
	}
	return m.Counts[i]
}

// Add accumulates inc increments at (from, to). Same-class
// entries are silently dropped to hold the diagonal invariant.
func (m *Matrix) Add(from, to int, inc uint64) {
	if from == to {
		return
	}
	if i, err := m.index(from, to); err == nil {
		m.Counts[i] += inc
	}
}

// Set overwrites (or, with addOnly, accumulates into) a single
// entry. This is the interop path for externally computed
// matrices, so diagonal writes are rejected rather than dropped.
func (m *Matrix) Set(from, to int, count uint64, addOnly bool) error {
	i, err := m.index(from, to)
	if err != nil {
		return err
	}
	if from == to && count > 0 {
		return fmt.Errorf("%w: diagonal entry (%d,%d) must stay zero", ErrInvalidArgument, from, to)
	}
	if addOnly {
		m.Counts[i] += count
	} else {
		m.Counts[i] = count
	}
	return nil
}

// Sum is the total increment mass in the matrix.
func (m *Matrix) Sum() uint64 {
	var s uint64
	for _, c := range m.Counts {
		s += c
	}
	return s
}

// FullCycles is the matrix mass expressed in whole cycles.
func (m *Matrix) FullCycles() float64 {
	return float64(m.Sum()) / float64(FullCycleIncrement)
}

// Clone is a deep copy for snapshots.
func (m *Matrix) Clone() *Matrix {
	c := NewMatrix(m.N)
	copy(c.Counts, m.Counts)
	return c
}

// RangePair is the histogram of cycle increments by class
// distance |to-from|. Index 0 is unused, zero-range cycles
// are never counted.
type RangePair struct {
	Counts []uint64
}

func NewRangePair(n int) *RangePair {
	return &RangePair{Counts: make([]uint64, n)}
}

func (rp *RangePair) Add(from, to int, inc uint64) {
	d := to - from
	if d < 0 {
		d = -d
	}
	if d > 0 && d < len(rp.Counts) {
		rp.Counts[d] += inc
	}
}

func (rp *RangePair) Sum() uint64 {
	var s uint64
	for _, c := range rp.Counts {
		s += c
	}
	return s
}

// LevelCrossing counts crossings of class boundaries. Slot i
// is the boundary between classes i-1 and i; slot 0 is unused.
// A full cycle crosses every boundary between its two classes
// exactly once upward and once downward.
type LevelCrossing struct {
	Up   []uint64
	Down []uint64
}

func NewLevelCrossing(n int) *LevelCrossing {
	return &LevelCrossing{Up: make([]uint64, n), Down: make([]uint64, n)}
}

func (lc *LevelCrossing) Add(from, to int, inc uint64, countUp, countDown bool) {
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}
	for l := lo + 1; l <= hi; l++ {
		if countUp {
			lc.Up[l] += inc
		}
		if countDown {
			lc.Down[l] += inc
		}
	}
}

// MatrixFromRangePair is not reconstructible (direction is
// lost), but the reverse derivations hold and are what the
// read-only views hand out.

// RangePairFromMatrix rebuilds the range-pair histogram from a
// matrix, used to cross-check the incremental accumulators.
func RangePairFromMatrix(m *Matrix) *RangePair {
	rp := NewRangePair(m.N)
	for from := 0; from < m.N; from++ {
		for to := 0; to < m.N; to++ {
			if c := m.At(from, to); c > 0 {
				rp.Add(from, to, c)
			}
		}
	}
	return rp
}

// LevelCrossingFromMatrix rebuilds the level-crossing counts
// from a matrix with both directions enabled.
func LevelCrossingFromMatrix(m *Matrix) *LevelCrossing {
	lc := NewLevelCrossing(m.N)
	for from := 0; from < m.N; from++ {
		for to := 0; to < m.N; to++ {
			if c := m.At(from, to); c > 0 {
				lc.Add(from, to, c, true, true)
			}
		}
	}
	return lc
}

// amplitudeSpread is a helper for ramp damage spreading: the
// normalized cumulative weights across n interior slots.
func amplitudeSpread(weights []float64) []float64 {
	total := floats.Sum(weights)
	if total == 0 {
		return weights
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w / total
	}
	return out
}
