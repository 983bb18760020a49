package rainflow

import (
	"reflect"
	"testing"

	Rt "github.com/maroda/rainflow/types"
)

// astmSeries is the classic turning-point sequence used to
// validate rainflow counters: with classes one unit wide it
// closes seven full cycles and leaves a five-point residue.
var astmSeries = []float64{2, 5, 3, 6, 2, 4, 1, 6, 1, 4, 1, 5, 3, 6, 3, 6, 1, 5, 2}

// newTestSession builds the 6-class unit-width session the
// counting vectors are written against.
func newTestSession(t *testing.T, flags Rt.Flags) *Session {
	t.Helper()
	s, err := NewSession(6, 1, 0.5, 1, flags)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func feedAndFinalize(t *testing.T, s *Session, series []float64, policy Rt.ResiduePolicy) {
	t.Helper()
	if err := s.Feed(series); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if err := s.Finalize(policy); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
}

func residueValues(t *testing.T, s *Session) []float64 {
	t.Helper()
	res := s.Residue()
	out := make([]float64, len(res))
	for i, p := range res {
		out[i] = p.Value
	}
	return out
}

func TestFourPointSingleCycle(t *testing.T) {
	t.Run("Rising outer ramp", func(t *testing.T) {
		s := newTestSession(t, Rt.CountMatrix)
		feedAndFinalize(t, s, []float64{1, 3, 2, 4}, Rt.ResidueNone)

		// one full cycle 3 -> 2, classes 2 -> 1
		if got := s.MatrixSnapshot().At(2, 1); got != FullCycleIncrement {
			t.Errorf("matrix(2,1) = %d, want %d", got, FullCycleIncrement)
		}
		if got := s.MatrixSnapshot().Sum(); got != FullCycleIncrement {
			t.Errorf("matrix sum = %d, want %d", got, FullCycleIncrement)
		}
		if got, want := residueValues(t, s), []float64{1, 4}; !reflect.DeepEqual(got, want) {
			t.Errorf("residue = %v, want %v", got, want)
		}
	})

	t.Run("Falling outer ramp", func(t *testing.T) {
		s := newTestSession(t, Rt.CountMatrix)
		feedAndFinalize(t, s, []float64{4, 2, 3, 1}, Rt.ResidueNone)

		// one full cycle 2 -> 3, classes 1 -> 2
		if got := s.MatrixSnapshot().At(1, 2); got != FullCycleIncrement {
			t.Errorf("matrix(1,2) = %d, want %d", got, FullCycleIncrement)
		}
		if got, want := residueValues(t, s), []float64{4, 1}; !reflect.DeepEqual(got, want) {
			t.Errorf("residue = %v, want %v", got, want)
		}
	})
}

func TestFourPointReferenceSeries(t *testing.T) {
	s := newTestSession(t, Rt.CountMatrix)
	feedAndFinalize(t, s, astmSeries, Rt.ResidueNone)

	m := s.MatrixSnapshot()
	want := map[[2]int]uint64{
		{4, 2}: 4, // 5 -> 3, twice
		{1, 3}: 2, // 2 -> 4
		{0, 5}: 4, // 1 -> 6, twice
		{0, 3}: 2, // 1 -> 4
		{5, 2}: 2, // 6 -> 3
	}
	for from := 0; from < 6; from++ {
		for to := 0; to < 6; to++ {
			if got := m.At(from, to); got != want[[2]int{from, to}] {
				t.Errorf("matrix(%d,%d) = %d, want %d", from, to, got, want[[2]int{from, to}])
			}
		}
	}
	if got := m.FullCycles(); got != 7 {
		t.Errorf("full cycles = %v, want 7", got)
	}
	if got, want := residueValues(t, s), []float64{2, 6, 1, 5, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("residue = %v, want %v", got, want)
	}
	if got := s.CyclesClosed(); got != 7 {
		t.Errorf("CyclesClosed = %d, want 7", got)
	}
}

func TestHCMMatchesFourPoint(t *testing.T) {
	fp := newTestSession(t, Rt.CountMatrix)
	feedAndFinalize(t, fp, astmSeries, Rt.ResidueNone)

	hcm := newTestSession(t, Rt.CountMatrix)
	if err := hcm.SetMethod(Rt.MethodHCM); err != nil {
		t.Fatalf("SetMethod failed: %v", err)
	}
	feedAndFinalize(t, hcm, astmSeries, Rt.ResidueNone)

	if !reflect.DeepEqual(fp.MatrixSnapshot(), hcm.MatrixSnapshot()) {
		t.Errorf("hcm matrix diverged from four-point:\n got %v\nwant %v",
			hcm.MatrixSnapshot().Counts, fp.MatrixSnapshot().Counts)
	}

	// the hcm residue carries class means; with unit-wide classes
	// on integer samples the values coincide with the raw residue
	if got, want := residueValues(t, hcm), residueValues(t, fp); !reflect.DeepEqual(got, want) {
		t.Errorf("hcm residue = %v, want %v", got, want)
	}
}

func TestChunkedFeedMatchesSingleFeed(t *testing.T) {
	whole := newTestSession(t, Rt.CountDefault)
	feedAndFinalize(t, whole, astmSeries, Rt.ResidueHalfcycles)

	chunked := newTestSession(t, Rt.CountDefault)
	for _, v := range astmSeries {
		if err := chunked.Feed([]float64{v}); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}
	if err := chunked.Finalize(Rt.ResidueHalfcycles); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if !reflect.DeepEqual(whole.MatrixSnapshot(), chunked.MatrixSnapshot()) {
		t.Error("chunked matrix diverged from single-feed matrix")
	}
	if !reflect.DeepEqual(residueValues(t, whole), residueValues(t, chunked)) {
		t.Errorf("chunked residue = %v, want %v", residueValues(t, chunked), residueValues(t, whole))
	}
}

func TestHistogramsAgreeWithMatrix(t *testing.T) {
	flags := Rt.CountMatrix | Rt.CountRangePair | Rt.CountLevelCrossUp | Rt.CountLevelCrossDown
	s := newTestSession(t, flags)
	feedAndFinalize(t, s, astmSeries, Rt.ResidueNone)

	m := s.MatrixSnapshot()

	if got, want := s.RangePairSnapshot().Counts, RangePairFromMatrix(m).Counts; !reflect.DeepEqual(got, want) {
		t.Errorf("range-pair histogram = %v, derived from matrix %v", got, want)
	}

	lc := s.LevelCrossingSnapshot()
	derived := LevelCrossingFromMatrix(m)
	if !reflect.DeepEqual(lc.Up, derived.Up) {
		t.Errorf("upward crossings = %v, derived %v", lc.Up, derived.Up)
	}
	if !reflect.DeepEqual(lc.Down, derived.Down) {
		t.Errorf("downward crossings = %v, derived %v", lc.Down, derived.Down)
	}
}

func TestCycleSinkSeesEveryClosure(t *testing.T) {
	s := newTestSession(t, Rt.CountMatrix)
	var events []Rt.CycleEvent
	if err := s.SetSink(cycleSinkFunc(func(e Rt.CycleEvent) { events = append(events, e) })); err != nil {
		t.Fatalf("SetSink failed: %v", err)
	}
	feedAndFinalize(t, s, astmSeries, Rt.ResidueNone)

	if len(events) != 7 {
		t.Fatalf("sink saw %d events, want 7", len(events))
	}
	for _, e := range events {
		if e.Increment != FullCycleIncrement {
			t.Errorf("event increment = %d, want %d", e.Increment, FullCycleIncrement)
		}
		if e.PosFrom == 0 || e.PosTo <= e.PosFrom {
			t.Errorf("event positions (%d, %d) out of order", e.PosFrom, e.PosTo)
		}
	}
}

type cycleSinkFunc func(Rt.CycleEvent)

func (f cycleSinkFunc) OnCycle(e Rt.CycleEvent) { f(e) }
