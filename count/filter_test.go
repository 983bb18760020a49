package rainflow

import (
	"reflect"
	"testing"

	Rt "github.com/maroda/rainflow/types"
)

// collectTPs runs a series through a fresh filter and returns
// every emitted turning point, finalize included.
func collectTPs(t *testing.T, series []float64, hysteresis float64, margin bool) []Rt.ValueTuple {
	t.Helper()
	cm, err := NewClassMapper(10, 1, 0)
	if err != nil {
		t.Fatalf("NewClassMapper failed: %v", err)
	}
	f, err := NewTurningPointFilter(hysteresis, margin)
	if err != nil {
		t.Fatalf("NewTurningPointFilter failed: %v", err)
	}

	var got []Rt.ValueTuple
	emit := func(tp Rt.ValueTuple) error {
		got = append(got, tp)
		return nil
	}
	for i, v := range series {
		if err := f.Feed(v, uint64(i+1), cm, emit); err != nil {
			t.Fatalf("Feed(%v) failed: %v", v, err)
		}
	}
	if err := f.Finalize(cm, emit); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	return got
}

func tpValues(tps []Rt.ValueTuple) []float64 {
	out := make([]float64, len(tps))
	for i, tp := range tps {
		out[i] = tp.Value
	}
	return out
}

func TestFilterSuppressesSmallReversals(t *testing.T) {
	// the 1.6 dip is inside the hysteresis band and must vanish
	got := tpValues(collectTPs(t, []float64{0, 2, 1.6, 3, 2, 5}, 1, false))
	want := []float64{0, 3, 2, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("turning points = %v, want %v", got, want)
	}
}

func TestFilterPlateauKeepsEarliestPosition(t *testing.T) {
	got := collectTPs(t, []float64{1, 1, 5, 5, 2}, 1, false)
	want := []struct {
		v   float64
		pos uint64
	}{{1, 1}, {5, 3}, {2, 5}}

	if len(got) != len(want) {
		t.Fatalf("got %d turning points, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Value != w.v || got[i].Pos != w.pos {
			t.Errorf("turning point %d = (%v, pos %d), want (%v, pos %d)", i, got[i].Value, got[i].Pos, w.v, w.pos)
		}
	}
}

func TestFilterChunkingInvariance(t *testing.T) {
	series := []float64{2, 5, 3, 6, 2, 4, 1, 6, 1, 4, 1, 5, 3, 6, 3, 6, 1, 5, 2}

	whole := collectTPs(t, series, 1, false)

	// same series one sample at a time through a shared filter
	cm, _ := NewClassMapper(10, 1, 0)
	f, _ := NewTurningPointFilter(1, false)
	var chunked []Rt.ValueTuple
	emit := func(tp Rt.ValueTuple) error {
		chunked = append(chunked, tp)
		return nil
	}
	for i, v := range series {
		if err := f.Feed(v, uint64(i+1), cm, emit); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}
	if err := f.Finalize(cm, emit); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if !reflect.DeepEqual(whole, chunked) {
		t.Errorf("chunked feed diverged:\n got %v\nwant %v", chunked, whole)
	}
}

func TestFilterMargin(t *testing.T) {
	t.Run("First sample is committed immediately", func(t *testing.T) {
		cm, _ := NewClassMapper(10, 1, 0)
		f, _ := NewTurningPointFilter(1, true)
		var got []Rt.ValueTuple
		err := f.Feed(1, 1, cm, func(tp Rt.ValueTuple) error {
			got = append(got, tp)
			return nil
		})
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		if len(got) != 1 || got[0].Pos != 1 {
			t.Errorf("first sample not committed, got %v", got)
		}
	})

	t.Run("Boundary sample wins the trailing position", func(t *testing.T) {
		// trailing plateau: without margin the turning point keeps
		// pos 3, with margin the stream boundary pos 4 wins
		plain := collectTPs(t, []float64{0, 3, 2, 2}, 1, false)
		margin := collectTPs(t, []float64{0, 3, 2, 2}, 1, true)

		if last := plain[len(plain)-1]; last.Pos != 3 {
			t.Errorf("without margin trailing pos = %d, want 3", last.Pos)
		}
		if last := margin[len(margin)-1]; last.Pos != 4 {
			t.Errorf("with margin trailing pos = %d, want 4", last.Pos)
		}
	})

	t.Run("Distinct trailing value emits both points", func(t *testing.T) {
		// the last sample 2.5 never escapes the band around 2,
		// margin still forces it out as its own point
		got := tpValues(collectTPs(t, []float64{0, 3, 2, 2.5}, 1, true))
		want := []float64{0, 3, 2, 2.5}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("turning points = %v, want %v", got, want)
		}
	})
}

func TestFilterInterim(t *testing.T) {
	cm, _ := NewClassMapper(10, 1, 0)
	f, _ := NewTurningPointFilter(1, false)
	emit := func(Rt.ValueTuple) error { return nil }

	_ = f.Feed(1, 1, cm, emit)
	_ = f.Feed(3, 2, cm, emit)
	if !f.HasInterim() {
		t.Error("expected interim after a fresh extremum candidate")
	}

	// a plateau sample is absorbed, the candidate is now resolved
	_ = f.Feed(3, 3, cm, emit)
	if f.HasInterim() {
		t.Error("expected no interim after a plateau sample")
	}
}

func TestFilterRejectsBadHysteresis(t *testing.T) {
	if _, err := NewTurningPointFilter(-1, false); err == nil {
		t.Error("expected error for negative hysteresis")
	}
}
