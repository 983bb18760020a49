package rainflow

import (
	"testing"

	Rt "github.com/maroda/rainflow/types"
)

func TestTurningPointStore(t *testing.T) {
	flags := Rt.CountMatrix | Rt.CountDamage | Rt.StoreTurningPoints
	s := newTestSession(t, flags)
	if err := s.ConfigureWoehler(testCurve(Rt.MinerElementary)); err != nil {
		t.Fatalf("ConfigureWoehler failed: %v", err)
	}
	feedAndFinalize(t, s, astmSeries, Rt.ResidueNone)

	tps := s.TurningPoints()
	if len(tps) != len(astmSeries) {
		t.Fatalf("stored %d turning points, want %d", len(tps), len(astmSeries))
	}
	for i, tp := range tps {
		if tp.Value != astmSeries[i] {
			t.Errorf("turning point %d = %v, want %v", i, tp.Value, astmSeries[i])
		}
		if tp.Pos != uint64(i+1) {
			t.Errorf("turning point %d pos = %d, want %d", i, tp.Pos, i+1)
		}
	}

	t.Run("Closed-cycle damage is apportioned to the points", func(t *testing.T) {
		var apportioned float64
		for _, d := range s.TurningPointDamage() {
			apportioned += d
		}
		if !closeEnough(apportioned, s.Damage(), 1e-12) {
			t.Errorf("apportioned damage %v, running damage %v", apportioned, s.Damage())
		}
	})
}

func TestTurningPointPrune(t *testing.T) {
	flags := Rt.CountMatrix | Rt.CountDamage | Rt.StoreTurningPoints
	s := newTestSession(t, flags)
	if err := s.ConfigureWoehler(testCurve(Rt.MinerElementary)); err != nil {
		t.Fatalf("ConfigureWoehler failed: %v", err)
	}
	if err := s.Feed(astmSeries); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	before := s.Damage()
	if err := s.PruneTurningPoints(true, true); err != nil {
		t.Fatalf("PruneTurningPoints failed: %v", err)
	}

	// only the residue survives, counting continues undisturbed
	if got, want := len(s.TurningPoints()), len(s.Residue()); got > want+1 {
		t.Errorf("store holds %d points after prune, residue is %d", got, want)
	}
	if err := s.Finalize(Rt.ResidueNone); err != nil {
		t.Fatalf("Finalize after prune failed: %v", err)
	}
	if got := s.Damage(); got != before {
		t.Errorf("damage changed across prune: %v, want %v", got, before)
	}

	// the pristine run and the pruned run agree on the matrix
	ref := newTestSession(t, flags)
	if err := ref.ConfigureWoehler(testCurve(Rt.MinerElementary)); err != nil {
		t.Fatalf("ConfigureWoehler failed: %v", err)
	}
	feedAndFinalize(t, ref, astmSeries, Rt.ResidueNone)
	if got, want := s.MatrixSnapshot().Sum(), ref.MatrixSnapshot().Sum(); got != want {
		t.Errorf("matrix sum after prune = %d, want %d", got, want)
	}
}

func TestPruneConservesDamage(t *testing.T) {
	store := NewTurningPointStore(0)
	for i := 1; i <= 4; i++ {
		store.Append(Rt.ValueTuple{Value: float64(i), Pos: uint64(i), StorePos: -1})
	}
	_ = store.AddDamage(0, 0.25)
	_ = store.AddDamage(2, 0.5)

	residue := []Rt.ValueTuple{{StorePos: 2}}
	remap := store.Prune(true, false, residue)

	if store.Len() != 1 {
		t.Fatalf("store length after prune = %d, want 1", store.Len())
	}
	if got, ok := remap[2]; !ok || got != 0 {
		t.Errorf("remap[2] = %d (%v), want 0", got, ok)
	}
	// the survivor keeps its annotation, the rest moves to the sump
	if got := store.Damage[0]; got != 0.5 {
		t.Errorf("surviving damage = %v, want 0.5", got)
	}
	if got := store.PrunedDamage; got != 0.25 {
		t.Errorf("pruned damage = %v, want 0.25", got)
	}
	// renumbered densely from 1
	if got := store.Points[0].Pos; got != 1 {
		t.Errorf("renumbered pos = %d, want 1", got)
	}
}

func TestAutoPrune(t *testing.T) {
	flags := Rt.CountMatrix | Rt.StoreTurningPoints | Rt.AutoPruneTP
	s := newTestSession(t, flags)
	if err := s.SetAutoPruneThreshold(8); err != nil {
		t.Fatalf("SetAutoPruneThreshold failed: %v", err)
	}

	// repeat the series so the store crosses the threshold
	for i := 0; i < 4; i++ {
		if err := s.Feed(astmSeries); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}
	if got := len(s.TurningPoints()); got > 8+1 {
		t.Errorf("store grew to %d points past threshold 8", got)
	}
	if err := s.Finalize(Rt.ResidueNone); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
}

func TestAutoPrunePreservesResidueRefs(t *testing.T) {
	flags := Rt.CountMatrix | Rt.StoreTurningPoints | Rt.AutoPruneTP
	s, err := NewSession(10, 1, 0.5, 1, flags)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := s.SetAutoPruneThreshold(4); err != nil {
		t.Fatalf("SetAutoPruneThreshold failed: %v", err)
	}

	// a widening alternation never closes, so every point stays
	// in the residue while the store compacts repeatedly
	if err := s.Feed([]float64{5, 6, 4, 7, 3, 8, 2, 9, 1, 10}); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	checkRefs := func(t *testing.T) {
		t.Helper()
		tps := s.TurningPoints()
		for i, p := range s.Residue() {
			if p.StorePos < 0 || p.StorePos >= len(tps) {
				t.Fatalf("residue[%d] value %v: StorePos %d outside store of %d",
					i, p.Value, p.StorePos, len(tps))
			}
			if got := tps[p.StorePos].Value; got != p.Value {
				t.Errorf("residue[%d] value %v: store[%d] holds %v",
					i, p.Value, p.StorePos, got)
			}
		}
	}
	checkRefs(t)

	// the interim point joins the residue through the same path
	if err := s.Finalize(Rt.ResidueNone); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	checkRefs(t)
	if got, want := len(s.Residue()), 10; got != want {
		t.Errorf("residue length = %d, want %d", got, want)
	}
}

func TestDamageHistorySpread(t *testing.T) {
	policies := []Rt.SpreadPolicy{
		Rt.SpreadEndpointFrom,
		Rt.SpreadEndpointTo,
		Rt.SpreadSplitEven,
		Rt.SpreadRampLinear,
		Rt.SpreadRampAmplitude,
	}
	for _, p := range policies {
		h := NewDamageHistory(p)
		h.Extend(10)
		h.Spread(1.0, 3, 8, 2, 6)
		if !closeEnough(h.Total(), 1.0, 1e-12) {
			t.Errorf("policy %d: total = %v, want 1.0", p, h.Total())
		}
	}

	t.Run("Endpoint policies land on the endpoints", func(t *testing.T) {
		h := NewDamageHistory(Rt.SpreadEndpointFrom)
		h.Spread(1.0, 3, 8, 2, 6)
		if h.Trace[2] != 1.0 {
			t.Errorf("trace[2] = %v, want 1.0", h.Trace[2])
		}
	})

	t.Run("Ramp distributes over interior samples only", func(t *testing.T) {
		h := NewDamageHistory(Rt.SpreadRampLinear)
		h.Spread(1.0, 3, 8, 2, 6)
		if h.Trace[2] != 0 || h.Trace[7] != 0 {
			t.Errorf("ramp leaked to endpoints: %v", h.Trace)
		}
		// later interior samples carry more
		if !(h.Trace[6] > h.Trace[3]) {
			t.Errorf("ramp not increasing: %v", h.Trace)
		}
	})

	t.Run("Adjacent pair falls back to even split", func(t *testing.T) {
		h := NewDamageHistory(Rt.SpreadRampLinear)
		h.Spread(1.0, 3, 4, 2, 6)
		if h.Trace[2] != 0.5 || h.Trace[3] != 0.5 {
			t.Errorf("fallback split = %v", h.Trace)
		}
	})
}

func TestSessionDamageHistory(t *testing.T) {
	flags := Rt.CountMatrix | Rt.CountDamage | Rt.SpreadDamage
	s := newTestSession(t, flags)
	if err := s.ConfigureWoehler(testCurve(Rt.MinerElementary)); err != nil {
		t.Fatalf("ConfigureWoehler failed: %v", err)
	}
	if err := s.SetSpreadPolicy(Rt.SpreadSplitEven); err != nil {
		t.Fatalf("SetSpreadPolicy failed: %v", err)
	}
	feedAndFinalize(t, s, astmSeries, Rt.ResidueNone)

	trace := s.DamageHistorySnapshot()
	if len(trace) != len(astmSeries) {
		t.Fatalf("trace length = %d, want %d", len(trace), len(astmSeries))
	}
	var total float64
	for _, d := range trace {
		total += d
	}
	if !closeEnough(total, s.Damage(), 1e-12) {
		t.Errorf("trace total %v, running damage %v", total, s.Damage())
	}
}
