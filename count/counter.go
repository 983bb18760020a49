package rainflow

import (
	"log/slog"
	"time"

	Rt "github.com/maroda/rainflow/types"
)

// CycleSink receives every counted cycle. Output plugins and
// live displays hang off this; it is resolved once at init.
type CycleSink interface {
	OnCycle(Rt.CycleEvent)
}

// nested is the closure test shared by both strategies: the
// inner excursion (b,c) closes iff it fits inside the outer
// excursion (a,d). Classes, not raw values, decide - which is
// why a hysteresis near the class width keeps the two in step.
func nested(b, c, a, d int) bool {
	loIn, hiIn := b, c
	if loIn > hiIn {
		loIn, hiIn = hiIn, loIn
	}
	loOut, hiOut := a, d
	if loOut > hiOut {
		loOut, hiOut = hiOut, loOut
	}
	return loIn >= loOut && hiIn <= hiOut
}

// processFourPoint appends one turning point to the residue
// and closes every cycle the new point makes closable. The
// re-test after each removal is what lets closures cascade.
func (s *Session) processFourPoint(t Rt.ValueTuple) error {
	if err := s.residue.Push(t); err != nil {
		return err
	}
	for s.residue.Len() >= 4 {
		n := s.residue.Len()
		a := s.residue.At(n - 4)
		b := s.residue.At(n - 3)
		c := s.residue.At(n - 2)
		d := s.residue.At(n - 1)
		if !nested(b.Class, c.Class, a.Class, d.Class) {
			break
		}
		s.closeCycle(b, c, FullCycleIncrement)
		s.residue.RemovePair(n - 3)
	}
	return nil
}

// closeCycle books one counted excursion into every enabled
// accumulator. Same-class pairs carry zero range: they are
// removed by the caller but never counted, keeping the matrix
// diagonal at zero.
func (s *Session) closeCycle(from, to Rt.ValueTuple, inc uint64) {
	if from.Class == to.Class {
		return
	}

	if s.Flags&Rt.CountMatrix != 0 {
		s.matrix.Add(from.Class, to.Class, inc)
	}
	if s.Flags&Rt.CountRangePair != 0 {
		s.rangePair.Add(from.Class, to.Class, inc)
	}
	up := s.Flags&Rt.CountLevelCrossUp != 0
	down := s.Flags&Rt.CountLevelCrossDown != 0
	if up || down {
		s.levelCross.Add(from.Class, to.Class, inc, up, down)
	}

	var dmg float64
	if s.Flags&Rt.CountDamage != 0 && s.damage != nil {
		dmg = s.damage.PerCycle(from.Class, to.Class) * float64(inc) / float64(FullCycleIncrement)
		s.runningDamage += dmg

		if dmg > 0 {
			if s.store != nil {
				// apportion equally to the two closing points
				if from.StorePos >= 0 {
					_ = s.store.AddDamage(from.StorePos, dmg/2)
				}
				if to.StorePos >= 0 {
					_ = s.store.AddDamage(to.StorePos, dmg/2)
				}
			}
			if s.history != nil && s.Flags&Rt.SpreadDamage != 0 {
				s.history.Spread(dmg, from.Pos, to.Pos, from.Value, to.Value)
			}
		}

		if s.Flags&Rt.LiveMinerConsequent != 0 {
			n := s.cm.Count
			s.liveDamage = s.damage.consequentFromMatrix(s.matrix, 0, n-1, 0, n-1)
		}
	}

	s.cyclesClosed++
	if s.sink != nil {
		s.sink.OnCycle(Rt.CycleEvent{
			FromClass: from.Class,
			ToClass:   to.Class,
			FromVal:   from.Value,
			ToVal:     to.Value,
			PosFrom:   from.Pos,
			PosTo:     to.Pos,
			Increment: inc,
			Damage:    dmg,
			Timestamp: time.Now().UnixNano(),
		})
	}

	slog.Debug("Cycle closed",
		slog.Int("from", from.Class),
		slog.Int("to", to.Class),
		slog.Uint64("increment", inc))
}
