package rainflow

import (
	"fmt"
	"math"
)

/*

	Precomputed lookup tables. Both tables are derived
	deterministically from the Woehler / transform parameters
	at build time and dropped whenever those change, so a
	stale table can never answer for fresh parameters.

*/

// BuildLUT precomputes damage-per-full-cycle for every class
// pair. Lookups then cost an index instead of two pow calls.
func (d *DamageModel) BuildLUT() error {
	if d.cm == nil {
		return fmt.Errorf("%w: damage table needs class parameters", ErrLookupTable)
	}
	n := d.cm.Count
	lut := make([]float64, n*n)
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			lut[from*n+to] = d.perCycleDirect(from, to)
		}
	}
	d.lut = lut
	return nil
}

// HasLUT reports whether the damage table is active.
func (d *DamageModel) HasLUT() bool { return d.lut != nil }

// DropLUT invalidates the damage table.
func (d *DamageModel) DropLUT() { d.lut = nil }

// TransformLUT is the discretized (Sa, Sm) grid of amplitude
// transform outputs. Lookup snaps to the nearest grid node.
type TransformLUT struct {
	SaMin, SaStep float64
	SmMin, SmStep float64
	SaBins        int
	SmBins        int
	Vals          []float64
}

// BuildLUT precomputes the transform over the given grid and
// routes subsequent Transform calls through it.
func (t *HaighTransform) BuildLUT(saMin, saMax float64, saBins int, smMin, smMax float64, smBins int) error {
	if t == nil {
		return ErrTransform
	}
	if saBins < 2 || smBins < 2 || saMax <= saMin || smMax <= smMin {
		return fmt.Errorf("%w: transform grid %dx%d over Sa [%v,%v] Sm [%v,%v]",
			ErrLookupTable, saBins, smBins, saMin, saMax, smMin, smMax)
	}
	lut := &TransformLUT{
		SaMin: saMin, SaStep: (saMax - saMin) / float64(saBins-1), SaBins: saBins,
		SmMin: smMin, SmStep: (smMax - smMin) / float64(smBins-1), SmBins: smBins,
		Vals: make([]float64, saBins*smBins),
	}
	for i := 0; i < saBins; i++ {
		sa := saMin + float64(i)*lut.SaStep
		for j := 0; j < smBins; j++ {
			sm := smMin + float64(j)*lut.SmStep
			out, err := t.transformDirect(sa, sm)
			if err != nil {
				return err
			}
			lut.Vals[i*smBins+j] = out
		}
	}
	t.lut = lut
	return nil
}

// HasLUT reports whether the grid table is active.
func (t *HaighTransform) HasLUT() bool { return t != nil && t.lut != nil }

// DropLUT invalidates the grid table.
func (t *HaighTransform) DropLUT() {
	if t != nil {
		t.lut = nil
	}
}

// Lookup snaps (sa, sm) to the nearest node, clamped to the
// grid edges.
func (l *TransformLUT) Lookup(sa, sm float64) float64 {
	i := clampIndex(math.Round((sa-l.SaMin)/l.SaStep), l.SaBins)
	j := clampIndex(math.Round((sm-l.SmMin)/l.SmStep), l.SmBins)
	return l.Vals[i*l.SmBins+j]
}

func clampIndex(f float64, n int) int {
	i := int(f)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
