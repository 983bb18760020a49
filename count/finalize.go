package rainflow

import (
	"fmt"
	"sort"

	Rt "github.com/maroda/rainflow/types"
)

/*

	Stream finalization. The interim turning point is forced
	out of the filter first (which may cascade more closures),
	the residue as-left is snapshotted so it stays retrievable,
	and then the chosen residue policy decides what the
	leftover points are worth:

	  NONE            keep as is, count nothing
	  DISCARD         drop the residue, count nothing
	  HALFCYCLES      every adjacent pair counts one half cycle
	  FULLCYCLES      every adjacent pair counts one full cycle
	  CLORMANN_SEEGER rising pairs full, falling pairs half
	  REPEATED        close what a repetition of the history would
	  RP_DIN45667     pair up-slopes with down-slopes by range

*/

// Finalize ends accumulation, applies the residue policy and
// moves the session to FINISHED. Feeding afterwards fails.
func (s *Session) Finalize(policy Rt.ResiduePolicy) error {
	switch s.state {
	case Rt.StateReady, Rt.StateAccumulating, Rt.StateAccumulatingInterim:
	default:
		return fmt.Errorf("%w: cannot finalize in state %d", ErrStateViolation, s.state)
	}
	s.state = Rt.StateFinalizing

	if err := s.filter.Finalize(s.cm, s.acceptTP); err != nil {
		return s.fail(err)
	}

	s.finalResidue = s.liveResidue()

	if err := s.applyResiduePolicy(policy); err != nil {
		return s.fail(err)
	}

	s.state = Rt.StateFinished
	return nil
}

func (s *Session) applyResiduePolicy(policy Rt.ResiduePolicy) error {
	res := s.finalResidue

	switch policy {
	case Rt.ResidueNone:
		return nil
	case Rt.ResidueDiscard:
		s.residue.Clear()
		if s.hcm != nil {
			s.hcm.stack = s.hcm.stack[:0]
			s.hcm.ir = 1
		}
		return nil
	case Rt.ResidueHalfcycles:
		s.countAdjacent(res, func(_, _ Rt.ValueTuple) uint64 { return HalfCycleIncrement })
		return nil
	case Rt.ResidueFullcycles:
		s.countAdjacent(res, func(_, _ Rt.ValueTuple) uint64 { return FullCycleIncrement })
		return nil
	case Rt.ResidueClormannSeeger:
		s.countAdjacent(res, func(from, to Rt.ValueTuple) uint64 {
			if to.Class > from.Class {
				return FullCycleIncrement
			}
			return HalfCycleIncrement
		})
		return nil
	case Rt.ResidueRepeated:
		s.closeRepeated(res)
		return nil
	case Rt.ResidueRPDIN45667:
		s.closeRangePaired(res)
		return nil
	}
	return fmt.Errorf("%w: residue policy %d", ErrInvalidArgument, policy)
}

// countAdjacent books every adjacent residue pair with the
// increment the weight function assigns it.
func (s *Session) countAdjacent(res []Rt.ValueTuple, weight func(from, to Rt.ValueTuple) uint64) {
	for i := 0; i+1 < len(res); i++ {
		s.closeCycle(res[i], res[i+1], weight(res[i], res[i+1]))
	}
}

// closeRepeated counts the cycles that a second pass of the
// same history would close. The residue is irreducible on its
// own, so concatenating it with itself and re-running the
// four-point rule closes exactly the across-the-seam cycles.
// The seam itself is re-extracted to extrema first: the join
// can produce equal or monotone neighbors that are not
// turning points of the repeated history.
func (s *Session) closeRepeated(res []Rt.ValueTuple) {
	if len(res) < 2 {
		return
	}
	work := make([]Rt.ValueTuple, 0, 2*len(res))
	work = append(work, res...)
	work = append(work, res...)
	work = extremaOnly(work)

	pts := make([]Rt.ValueTuple, 0, len(work))
	for _, t := range work {
		pts = append(pts, t)
		for len(pts) >= 4 {
			n := len(pts)
			if !nested(pts[n-3].Class, pts[n-2].Class, pts[n-4].Class, pts[n-1].Class) {
				break
			}
			s.closeCycle(pts[n-3], pts[n-2], FullCycleIncrement)
			pts = append(pts[:n-3], pts[n-1])
		}
	}
}

// extremaOnly drops points that are no longer local extrema
// of the sequence: class plateaus keep their first point,
// monotone runs keep their last.
func extremaOnly(pts []Rt.ValueTuple) []Rt.ValueTuple {
	out := make([]Rt.ValueTuple, 0, len(pts))
	for _, p := range pts {
		n := len(out)
		if n > 0 && p.Class == out[n-1].Class {
			continue
		}
		if n >= 2 {
			prev := out[n-1].Class - out[n-2].Class
			next := p.Class - out[n-1].Class
			if (prev > 0) == (next > 0) {
				out[n-1] = p
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// closeRangePaired matches up-slopes against down-slopes of
// the residue by descending range, the DIN 45667 range-pair
// rule. A matched pair counts one full cycle booked at the
// up-slope's endpoints; leftovers count half cycles each.
func (s *Session) closeRangePaired(res []Rt.ValueTuple) {
	type slope struct {
		from, to Rt.ValueTuple
		rng      int
	}
	var ups, downs []slope
	for i := 0; i+1 < len(res); i++ {
		sl := slope{from: res[i], to: res[i+1], rng: absInt(res[i+1].Class - res[i].Class)}
		if sl.rng == 0 {
			continue
		}
		if res[i+1].Class > res[i].Class {
			ups = append(ups, sl)
		} else {
			downs = append(downs, sl)
		}
	}
	sort.SliceStable(ups, func(i, j int) bool { return ups[i].rng > ups[j].rng })
	sort.SliceStable(downs, func(i, j int) bool { return downs[i].rng > downs[j].rng })

	n := len(ups)
	if len(downs) < n {
		n = len(downs)
	}
	for i := 0; i < n; i++ {
		s.closeCycle(ups[i].from, ups[i].to, FullCycleIncrement)
	}
	for i := n; i < len(ups); i++ {
		s.closeCycle(ups[i].from, ups[i].to, HalfCycleIncrement)
	}
	for i := n; i < len(downs); i++ {
		s.closeCycle(downs[i].from, downs[i].to, HalfCycleIncrement)
	}
}
