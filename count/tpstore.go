package rainflow

import (
	"fmt"
	"log/slog"

	Rt "github.com/maroda/rainflow/types"
)

// TurningPointStore is the append-only record of every
// emitted turning point, annotated with apportioned damage
// as cycles close. With the store and the residue a caller
// can reconstruct the load history losslessly.
type TurningPointStore struct {
	Points []Rt.ValueTuple
	Damage []float64

	// PrunedDamage collects the damage of compacted points so
	// nothing is lost when the store shrinks.
	PrunedDamage float64

	// AutoPruneAt triggers a compaction past this many points,
	// 0 disables.
	AutoPruneAt int
}

func NewTurningPointStore(autoPruneAt int) *TurningPointStore {
	return &TurningPointStore{AutoPruneAt: autoPruneAt}
}

// Append records a turning point and returns its store index.
func (s *TurningPointStore) Append(t Rt.ValueTuple) int {
	s.Points = append(s.Points, t)
	s.Damage = append(s.Damage, 0)
	return len(s.Points) - 1
}

// AddDamage apportions damage to a stored point.
func (s *TurningPointStore) AddDamage(idx int, d float64) error {
	if idx < 0 || idx >= len(s.Points) {
		return fmt.Errorf("%w: turning point store index %d of %d", ErrInvalidArgument, idx, len(s.Points))
	}
	s.Damage[idx] += d
	return nil
}

func (s *TurningPointStore) Len() int { return len(s.Points) }

// Prune compacts resolved entries. With preserveResidue set,
// points still referenced by the residue survive and keep
// their annotations; dropping such a point is a logic error
// the caller never gets to make. With preservePositions set,
// survivors keep their original stream positions; otherwise
// they are renumbered densely from 1.
//
// The returned map translates old store indexes to new ones
// so the caller can rewrite residue references.
func (s *TurningPointStore) Prune(preserveResidue, preservePositions bool, residue []Rt.ValueTuple) map[int]int {
	keep := make(map[int]bool, len(residue))
	if preserveResidue {
		for _, r := range residue {
			if r.StorePos >= 0 {
				keep[r.StorePos] = true
			}
		}
	}

	remap := make(map[int]int, len(keep))
	var pts []Rt.ValueTuple
	var dmg []float64
	for i, p := range s.Points {
		if !keep[i] {
			s.PrunedDamage += s.Damage[i]
			continue
		}
		remap[i] = len(pts)
		if !preservePositions {
			p.Pos = uint64(len(pts) + 1)
		}
		p.StorePos = len(pts)
		pts = append(pts, p)
		dmg = append(dmg, s.Damage[i])
	}

	slog.Debug("Turning point store pruned",
		slog.Int("before", len(s.Points)),
		slog.Int("after", len(pts)))

	s.Points = pts
	s.Damage = dmg
	return remap
}
