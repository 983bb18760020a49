package rainflow

import (
	"fmt"
	"math"
	"sort"

	Rt "github.com/maroda/rainflow/types"
)

// DamageModel evaluates per-cycle damage fractions from a
// two-slope Woehler curve with a selectable Miner variant.
// An optional Haigh transform is applied to the amplitude
// before the curve lookup; an optional precomputed table
// (see lut.go) skips the repeated power evaluations.
type DamageModel struct {
	Curve     Rt.WoehlerCurve
	cm        *ClassMapper
	transform *HaighTransform
	lut       []float64 // damage per full cycle by from*N+to, nil = direct
}

// NewDamageModel validates the Woehler parameters. K2 == 0
// picks the Haibach default 2*K1-1 for the shallow branch.
func NewDamageModel(curve Rt.WoehlerCurve, cm *ClassMapper) (*DamageModel, error) {
	if curve.SD <= 0 || curve.ND <= 0 {
		return nil, fmt.Errorf("%w: woehler SD %v ND %v, want > 0", ErrInvalidArgument, curve.SD, curve.ND)
	}
	if math.Abs(curve.K1) < 1 {
		return nil, fmt.Errorf("%w: woehler slope k1 %v, want |k1| >= 1", ErrInvalidArgument, curve.K1)
	}
	if curve.K2 == 0 {
		curve.K2 = 2*math.Abs(curve.K1) - 1
	}
	if math.Abs(curve.K2) < 1 {
		return nil, fmt.Errorf("%w: woehler slope k2 %v, want |k2| >= 1", ErrInvalidArgument, curve.K2)
	}
	if curve.Omission < 0 {
		return nil, fmt.Errorf("%w: omission %v, want >= 0", ErrInvalidArgument, curve.Omission)
	}
	return &DamageModel{Curve: curve, cm: cm}, nil
}

// SetTransform attaches (or clears) the Haigh transform and
// invalidates any damage table built against the old one.
func (d *DamageModel) SetTransform(t *HaighTransform) {
	d.transform = t
	d.lut = nil
}

// CyclesToFailure evaluates N(a) on the two-slope curve.
// Returns +Inf where the selected Miner rule assigns no damage.
func (d *DamageModel) CyclesToFailure(a float64) float64 {
	c := d.Curve
	if a <= 0 || a <= c.Omission {
		return math.Inf(1)
	}
	k1 := math.Abs(c.K1)
	k2 := math.Abs(c.K2)

	switch c.Rule {
	case Rt.MinerElementary:
		return c.ND * math.Pow(a/c.SD, -k1)
	case Rt.MinerOriginal:
		if a <= c.SD {
			return math.Inf(1)
		}
		return c.ND * math.Pow(a/c.SD, -k1)
	default: // Modified and Consequent share the static curve
		if a > c.SD {
			return c.ND * math.Pow(a/c.SD, -k1)
		}
		return c.ND * math.Pow(a/c.SD, -k2)
	}
}

// classAmplitudeMean derives amplitude and mean from the class
// means of a cycle's endpoints.
func (d *DamageModel) classAmplitudeMean(from, to int) (sa, sm float64) {
	vf := d.cm.ClassMean(from)
	vt := d.cm.ClassMean(to)
	sa = math.Abs(vt-vf) / 2
	sm = (vt + vf) / 2
	return sa, sm
}

// transformedAmplitude runs the optional Haigh transform;
// a nil transform is the identity.
func (d *DamageModel) transformedAmplitude(sa, sm float64) float64 {
	if d.transform == nil {
		return sa
	}
	out, err := d.transform.Transform(sa, sm)
	if err != nil {
		return sa
	}
	return out
}

// PerCycle is the damage fraction of one full cycle between
// two classes, via the table when one is built.
func (d *DamageModel) PerCycle(from, to int) float64 {
	if d.lut != nil {
		return d.lut[from*d.cm.Count+to]
	}
	return d.perCycleDirect(from, to)
}

func (d *DamageModel) perCycleDirect(from, to int) float64 {
	if from == to {
		return 0
	}
	sa, sm := d.classAmplitudeMean(from, to)
	n := d.CyclesToFailure(d.transformedAmplitude(sa, sm))
	if math.IsInf(n, 1) {
		return 0
	}
	return 1 / n
}

// FromMatrix sums Miner damage over a submatrix window, both
// bounds inclusive, increments weighted to whole cycles.
func (d *DamageModel) FromMatrix(m *Matrix, fromLo, fromHi, toLo, toHi int) (float64, error) {
	if fromLo < 0 || toLo < 0 || fromHi >= m.N || toHi >= m.N || fromLo > fromHi || toLo > toHi {
		return 0, fmt.Errorf("%w: submatrix bounds [%d,%d]x[%d,%d]", ErrInvalidArgument, fromLo, fromHi, toLo, toHi)
	}
	if d.Curve.Rule == Rt.MinerConsequent {
		return d.consequentFromMatrix(m, fromLo, fromHi, toLo, toHi), nil
	}
	var total float64
	for from := fromLo; from <= fromHi; from++ {
		for to := toLo; to <= toHi; to++ {
			if c := m.At(from, to); c > 0 {
				total += float64(c) / float64(FullCycleIncrement) * d.PerCycle(from, to)
			}
		}
	}
	return total, nil
}

// FromRangePair sums damage over a range-pair histogram. The
// mean is lost in range-pair accounting, so amplitudes are
// evaluated mean-free.
func (d *DamageModel) FromRangePair(rp *RangePair) float64 {
	var total float64
	for dist, c := range rp.Counts {
		if c == 0 {
			continue
		}
		sa := d.transformedAmplitude(float64(dist)*d.cm.Width/2, 0)
		n := d.CyclesToFailure(sa)
		if math.IsInf(n, 1) {
			continue
		}
		total += float64(c) / float64(FullCycleIncrement) / n
	}
	return total
}

// consequentFromMatrix re-evaluates the whole matrix with the
// fatigue limit decaying as damage accumulates (Miner
// consequent). Amplitudes are visited largest first so the
// strong cycles erode the limit the weak ones are held to.
func (d *DamageModel) consequentFromMatrix(m *Matrix, fromLo, fromHi, toLo, toHi int) float64 {
	type group struct {
		a      float64
		cycles float64
	}
	var groups []group
	for from := fromLo; from <= fromHi; from++ {
		for to := toLo; to <= toHi; to++ {
			c := m.At(from, to)
			if c == 0 || from == to {
				continue
			}
			sa, sm := d.classAmplitudeMean(from, to)
			groups = append(groups, group{
				a:      d.transformedAmplitude(sa, sm),
				cycles: float64(c) / float64(FullCycleIncrement),
			})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].a > groups[j].a })

	c := d.Curve
	k1 := math.Abs(c.K1)
	k2 := math.Abs(c.K2)
	var damage float64
	for _, g := range groups {
		if g.a <= 0 || g.a <= c.Omission {
			continue
		}
		sdEff := c.SD
		if k1 > 1 && damage > 0 && damage < 1 {
			sdEff = c.SD * math.Pow(1-damage, 1/(k1-1))
		}
		var n float64
		if g.a > sdEff {
			n = c.ND * math.Pow(g.a/c.SD, -k1)
		} else {
			n = c.ND * math.Pow(g.a/c.SD, -k2)
		}
		if n > 0 && !math.IsInf(n, 1) {
			damage += g.cycles / n
		}
	}
	return damage
}
