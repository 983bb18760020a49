package rainflow

import (
	"fmt"
	"log/slog"

	Rt "github.com/maroda/rainflow/types"
)

const defaultAutoPrune = 4096

// Session is one independent counting context. It exclusively
// owns every buffer below for its lifetime and is not safe for
// concurrent use - counting is an order-dependent sequential
// reduction, so callers wrap it in their own locking when they
// share it (the display View does exactly that).
type Session struct {
	ID     string
	Flags  Rt.Flags
	Method Rt.CountMethod

	state Rt.SessionState
	err   error

	cm     *ClassMapper
	filter *TurningPointFilter

	residue *ResidueBuffer
	hcm     *hcmStack

	matrix     *Matrix
	rangePair  *RangePair
	levelCross *LevelCrossing

	damage        *DamageModel
	runningDamage float64
	liveDamage    float64

	store   *TurningPointStore
	history *DamageHistory
	sink    CycleSink

	pos          uint64
	cyclesClosed uint64
	globalMin    float64
	globalMax    float64
	haveExtrema  bool

	finalResidue []Rt.ValueTuple
}

// NewSession allocates a context in the READY state: matrices
// zeroed, buffers empty, optional features switched by flags.
func NewSession(classCount int, classWidth, classOffset, hysteresis float64, flags Rt.Flags) (*Session, error) {
	cm, err := NewClassMapper(classCount, classWidth, classOffset)
	if err != nil {
		return nil, err
	}
	filter, err := NewTurningPointFilter(hysteresis, flags&Rt.EnforceMargin != 0)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Flags:      flags,
		state:      Rt.StateReady,
		cm:         cm,
		filter:     filter,
		residue:    NewResidueBuffer(0),
		matrix:     NewMatrix(classCount),
		rangePair:  NewRangePair(classCount),
		levelCross: NewLevelCrossing(classCount),
	}
	if flags&Rt.StaticResidue != 0 {
		// a nesting-free residue never alternates wider than
		// this, so overflow means corrupted input ordering
		s.residue = NewResidueBuffer(2*classCount + 1)
	}
	if flags&Rt.StoreTurningPoints != 0 {
		auto := 0
		if flags&Rt.AutoPruneTP != 0 {
			auto = defaultAutoPrune
		}
		s.store = NewTurningPointStore(auto)
	}
	if flags&Rt.SpreadDamage != 0 {
		s.history = NewDamageHistory(Rt.SpreadSplitEven)
	}

	slog.Debug("Counting session ready",
		slog.Int("classes", classCount),
		slog.Float64("width", classWidth),
		slog.Float64("hysteresis", hysteresis))
	return s, nil
}

func (s *Session) State() Rt.SessionState { return s.state }

// Err returns the latched error after the session entered the
// ERROR state, nil otherwise.
func (s *Session) Err() error { return s.err }

// fail latches the ERROR state: every later operation fails
// fast until Close.
func (s *Session) fail(err error) error {
	s.state = Rt.StateError
	s.err = err
	slog.Error("Counting session failed", slog.Any("Error", err))
	return err
}

func (s *Session) ready() error {
	if s.state != Rt.StateReady {
		return fmt.Errorf("%w: wanted READY, in %d", ErrStateViolation, s.state)
	}
	return nil
}

func (s *Session) accumulating() error {
	switch s.state {
	case Rt.StateReady, Rt.StateAccumulating, Rt.StateAccumulatingInterim:
		return nil
	}
	return fmt.Errorf("%w: cannot feed in state %d", ErrStateViolation, s.state)
}

// SetMethod picks the closure strategy. READY only: switching
// strategies mid-stream would orphan half the working set.
func (s *Session) SetMethod(m Rt.CountMethod) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.Method = m
	if m == Rt.MethodHCM {
		s.hcm = newHCMStack(s.cm.Count)
	}
	return nil
}

// SetSink injects the cycle observer, resolved once at init.
func (s *Session) SetSink(sink CycleSink) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.sink = sink
	return nil
}

// SetSpreadPolicy picks how cycle damage lands in the history.
func (s *Session) SetSpreadPolicy(p Rt.SpreadPolicy) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.history == nil {
		return fmt.Errorf("%w: damage spreading not enabled", ErrStateViolation)
	}
	s.history.Policy = p
	return nil
}

// SetResidueCapacity switches the residue to a fixed buffer
// that fails with a capacity error instead of growing.
func (s *Session) SetResidueCapacity(n int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if n < 4 {
		return fmt.Errorf("%w: residue capacity %d, want >= 4", ErrInvalidArgument, n)
	}
	s.residue = NewResidueBuffer(n)
	return nil
}

// SetAutoPruneThreshold tunes when the turning point store
// compacts itself.
func (s *Session) SetAutoPruneThreshold(n int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.store == nil {
		return fmt.Errorf("%w: turning point storage not enabled", ErrStateViolation)
	}
	s.store.AutoPruneAt = n
	return nil
}

// ConfigureWoehler installs (or replaces) the damage model.
// Any damage table built against old parameters is dropped.
func (s *Session) ConfigureWoehler(curve Rt.WoehlerCurve) error {
	if s.state == Rt.StateError || s.state == Rt.StateFinished || s.state == Rt.StateFinalizing {
		return fmt.Errorf("%w: cannot configure woehler in state %d", ErrStateViolation, s.state)
	}
	dm, err := NewDamageModel(curve, s.cm)
	if err != nil {
		return err
	}
	if s.damage != nil {
		dm.transform = s.damage.transform
	}
	s.damage = dm
	return nil
}

// BuildDamageLUT precomputes the per-class-pair damage table.
func (s *Session) BuildDamageLUT() error {
	if s.damage == nil {
		return fmt.Errorf("%w: no woehler parameters configured", ErrLookupTable)
	}
	return s.damage.BuildLUT()
}

// InitAmplitudeTransform attaches the Haigh transform and
// invalidates the damage table, which baked in the old one.
func (s *Session) InitAmplitudeTransform(t *HaighTransform) error {
	if s.state == Rt.StateError || s.state == Rt.StateFinished {
		return fmt.Errorf("%w: cannot init transform in state %d", ErrStateViolation, s.state)
	}
	if t == nil {
		return fmt.Errorf("%w: nil transform", ErrInvalidArgument)
	}
	if s.damage != nil {
		s.damage.SetTransform(t)
	} else {
		// hold it until woehler parameters arrive
		dm := &DamageModel{cm: s.cm}
		dm.transform = t
		s.damage = dm
	}
	return nil
}

// TransformAmplitude runs a single (Sa, Sm) pair through the
// configured transform.
func (s *Session) TransformAmplitude(sa, sm float64) (float64, error) {
	if s.damage == nil || s.damage.transform == nil {
		return 0, ErrTransform
	}
	return s.damage.transform.Transform(sa, sm)
}

// Feed pushes a chunk of raw samples through the pipeline.
// Order-sensitive, may be called repeatedly; one interim
// sample carries across calls so chunking never changes the
// result.
func (s *Session) Feed(samples []float64) error {
	return s.FeedScaled(samples, 1)
}

// FeedScaled feeds samples multiplied by factor.
func (s *Session) FeedScaled(samples []float64, factor float64) error {
	if err := s.accumulating(); err != nil {
		return err
	}
	for _, v := range samples {
		if err := s.feedOne(v * factor); err != nil {
			return s.fail(err)
		}
	}
	s.settleState()
	return nil
}

// FeedPairs feeds pre-tupled input. Values are re-classified
// against this session's class parameters; the tuple classes
// are advisory and a mismatch is an invalid argument. Class 0
// is the zero value and means unclassified, it is never
// cross-checked.
func (s *Session) FeedPairs(pairs []Rt.ValueTuple) error {
	if err := s.accumulating(); err != nil {
		return err
	}
	for _, p := range pairs {
		if p.Class != 0 && p.Class != s.cm.ClassOf(p.Value) {
			return s.fail(fmt.Errorf("%w: tuple class %d for value %v, mapper says %d",
				ErrInvalidArgument, p.Class, p.Value, s.cm.ClassOf(p.Value)))
		}
		if err := s.feedOne(p.Value); err != nil {
			return s.fail(err)
		}
	}
	s.settleState()
	return nil
}

func (s *Session) feedOne(v float64) error {
	s.pos++
	if !s.haveExtrema {
		s.globalMin, s.globalMax = v, v
		s.haveExtrema = true
	} else {
		if v < s.globalMin {
			s.globalMin = v
		}
		if v > s.globalMax {
			s.globalMax = v
		}
	}
	if s.history != nil {
		s.history.Extend(s.pos)
	}
	return s.filter.Feed(v, s.pos, s.cm, s.acceptTP)
}

func (s *Session) settleState() {
	if s.filter.HasInterim() {
		s.state = Rt.StateAccumulatingInterim
	} else {
		s.state = Rt.StateAccumulating
	}
}

// acceptTP is the seam between the filter and the counter:
// every turning point lands here exactly once, in order. The
// auto-prune check runs after the strategy so the point just
// pushed is already in the residue the prune preserves and
// gets remapped with the rest.
func (s *Session) acceptTP(t Rt.ValueTuple) error {
	if s.store != nil {
		t.StorePos = s.store.Append(t)
	}
	var err error
	if s.Method == Rt.MethodHCM {
		err = s.processHCM(t)
	} else {
		err = s.processFourPoint(t)
	}
	if err != nil {
		return err
	}
	if s.store != nil && s.store.AutoPruneAt > 0 && s.store.Len() > s.store.AutoPruneAt {
		s.pruneStore(true, true)
	}
	return nil
}

// pruneStore compacts the turning point store and rewrites
// the residue references to the surviving indexes.
func (s *Session) pruneStore(preserveResidue, preservePositions bool) {
	if s.store == nil {
		return
	}
	remap := s.store.Prune(preserveResidue, preservePositions, s.liveResidue())
	if s.Method == Rt.MethodHCM && s.hcm != nil {
		for i := range s.hcm.stack {
			s.hcm.stack[i].StorePos = remapIndex(remap, s.hcm.stack[i].StorePos)
		}
		return
	}
	for i := range s.residue.pts {
		s.residue.pts[i].StorePos = remapIndex(remap, s.residue.pts[i].StorePos)
	}
}

// PruneTurningPoints is the on-demand compaction entry point.
func (s *Session) PruneTurningPoints(preserveResidue, preservePositions bool) error {
	if s.store == nil {
		return fmt.Errorf("%w: turning point storage not enabled", ErrStateViolation)
	}
	if s.state == Rt.StateError {
		return s.err
	}
	s.pruneStore(preserveResidue, preservePositions)
	return nil
}

func remapIndex(remap map[int]int, idx int) int {
	if idx < 0 {
		return idx
	}
	if n, ok := remap[idx]; ok {
		return n
	}
	return -1
}

// liveResidue is the strategy's current working set.
func (s *Session) liveResidue() []Rt.ValueTuple {
	if s.Method == Rt.MethodHCM && s.hcm != nil {
		return s.hcm.residuePoints()
	}
	return s.residue.Points()
}

// Residue is the read-only residue view. While accumulating
// it tracks the live working set; after finalize it is the
// snapshot taken before the residue policy ran, so callers
// can always retrieve what was left - even after DISCARD.
func (s *Session) Residue() []Rt.ValueTuple {
	if s.state == Rt.StateFinished {
		out := make([]Rt.ValueTuple, len(s.finalResidue))
		copy(out, s.finalResidue)
		return out
	}
	return s.liveResidue()
}

// TurningPoints is a snapshot of the store, nil when storage
// is off.
func (s *Session) TurningPoints() []Rt.ValueTuple {
	if s.store == nil {
		return nil
	}
	out := make([]Rt.ValueTuple, len(s.store.Points))
	copy(out, s.store.Points)
	return out
}

// TurningPointDamage is the parallel apportioned-damage view.
func (s *Session) TurningPointDamage() []float64 {
	if s.store == nil {
		return nil
	}
	out := make([]float64, len(s.store.Damage))
	copy(out, s.store.Damage)
	return out
}

// MatrixSnapshot is a deep copy of the rainflow matrix.
func (s *Session) MatrixSnapshot() *Matrix { return s.matrix.Clone() }

// RangePairSnapshot copies the range-pair histogram.
func (s *Session) RangePairSnapshot() *RangePair {
	out := NewRangePair(s.cm.Count)
	copy(out.Counts, s.rangePair.Counts)
	return out
}

// LevelCrossingSnapshot copies the level-crossing histogram.
func (s *Session) LevelCrossingSnapshot() *LevelCrossing {
	out := NewLevelCrossing(s.cm.Count)
	copy(out.Up, s.levelCross.Up)
	copy(out.Down, s.levelCross.Down)
	return out
}

// DamageHistorySnapshot copies the per-sample damage trace.
func (s *Session) DamageHistorySnapshot() []float64 {
	if s.history == nil {
		return nil
	}
	out := make([]float64, len(s.history.Trace))
	copy(out, s.history.Trace)
	return out
}

// Damage is the running Miner sum over everything counted.
func (s *Session) Damage() float64 { return s.runningDamage }

// LiveDamage is the Miner-consequent live indicator, only
// maintained under the LiveMinerConsequent flag.
func (s *Session) LiveDamage() float64 { return s.liveDamage }

func (s *Session) CyclesClosed() uint64 { return s.cyclesClosed }

func (s *Session) SamplesFed() uint64 { return s.pos }

func (s *Session) ClassParams() (count int, width, offset float64) {
	return s.cm.Count, s.cm.Width, s.cm.Offset
}

// GlobalExtrema is the min and max of every raw sample fed.
func (s *Session) GlobalExtrema() (min, max float64, ok bool) {
	return s.globalMin, s.globalMax, s.haveExtrema
}

// GetMatrixEntry reads one matrix cell.
func (s *Session) GetMatrixEntry(from, to int) (uint64, error) {
	if _, err := s.matrix.index(from, to); err != nil {
		return 0, err
	}
	return s.matrix.At(from, to), nil
}

// SetMatrixEntry writes one matrix cell, for merging in
// externally computed matrices. addOnly accumulates instead
// of overwriting.
func (s *Session) SetMatrixEntry(from, to int, count uint64, addOnly bool) error {
	if s.state == Rt.StateError {
		return s.err
	}
	return s.matrix.Set(from, to, count, addOnly)
}

// DamageFromMatrix evaluates Miner damage over a submatrix
// window, both bounds inclusive.
func (s *Session) DamageFromMatrix(fromLo, fromHi, toLo, toHi int) (float64, error) {
	if s.damage == nil || s.damage.Curve.ND == 0 {
		return 0, fmt.Errorf("%w: no woehler parameters configured", ErrStateViolation)
	}
	return s.damage.FromMatrix(s.matrix, fromLo, fromHi, toLo, toHi)
}

// DamageFromRangePair evaluates mean-free damage over the
// range-pair histogram.
func (s *Session) DamageFromRangePair() (float64, error) {
	if s.damage == nil || s.damage.Curve.ND == 0 {
		return 0, fmt.Errorf("%w: no woehler parameters configured", ErrStateViolation)
	}
	return s.damage.FromRangePair(s.rangePair), nil
}

// Close releases every owned buffer. Idempotent, and the only
// way out of the ERROR state.
func (s *Session) Close() {
	s.residue = NewResidueBuffer(0)
	s.hcm = nil
	s.store = nil
	s.history = nil
	s.finalResidue = nil
	s.state = Rt.StateUninitialized
	s.err = nil
}
