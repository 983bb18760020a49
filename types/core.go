package types

/*

	These are the "immutable" core types of Rainflow,
	provided for cross-package use (e.g. Plugins) and testing.

	There are no functions defined here.
	Struct constructors are housed in their own packages.
	Methods taking these types should create local aliases,
	for example: type CycleEvents []Rt.CycleEvent

*/

// ValueTuple is a classified sample that survived the
// turning-point filter. Pos is the 1-based position in the
// raw sample stream. StorePos points into the turning-point
// store when storage is active, -1 otherwise.
type ValueTuple struct {
	Value    float64
	Class    int
	Pos      uint64
	StorePos int
}

// Flags select which accumulators and optional features a
// counting session carries. They are runtime capabilities,
// not build switches.
type Flags uint32

const (
	CountMatrix Flags = 1 << iota
	CountDamage
	SpreadDamage
	CountRangePair
	CountLevelCrossUp
	CountLevelCrossDown
	LiveMinerConsequent
	EnforceMargin
	AutoPruneTP
	StoreTurningPoints
	StaticResidue

	// CountDefault is what a plain counting session wants.
	CountDefault = CountMatrix | CountDamage | CountRangePair | CountLevelCrossUp
)

// CountMethod selects the closure strategy.
type CountMethod int

const (
	MethodFourPoint CountMethod = iota // four-point nesting rule
	MethodHCM                          // Clormann/Seeger three-point stack
)

// ResiduePolicy is applied once at finalize to whatever is
// still open in the residue buffer.
type ResiduePolicy int

const (
	ResidueNone           ResiduePolicy = iota // leave uncounted
	ResidueDiscard                             // leave uncounted, empty the buffer
	ResidueHalfcycles                          // ASTM: adjacent pairs count half
	ResidueFullcycles                          // adjacent pairs count full
	ResidueClormannSeeger                      // direction-weighted half/full
	ResidueRepeated                            // residue re-run against itself
	ResidueRPDIN45667                          // DIN 45667 range-pair fold
)

// MinerRule selects how the Woehler curve is evaluated
// near and below the fatigue limit SD.
type MinerRule int

const (
	MinerElementary MinerRule = iota // k1 extended below SD
	MinerOriginal                    // no damage below SD
	MinerModified                    // reduced slope k2 below SD
	MinerConsequent                  // fatigue limit decays with damage
)

// SpreadPolicy says where apportioned damage lands in the
// damage history when a cycle closes.
type SpreadPolicy int

const (
	SpreadEndpointFrom  SpreadPolicy = iota // all to the first closing point
	SpreadEndpointTo                        // all to the second closing point
	SpreadSplitEven                         // half to each endpoint
	SpreadRampLinear                        // linear ramp between the endpoints
	SpreadRampAmplitude                     // ramp weighted by amplitude growth
)

// WoehlerCurve is the two-slope stress-life parameterization.
// A single-slope curve is the K2 == K1 special case.
// Omission is an amplitude below which damage is zero.
type WoehlerCurve struct {
	SD       float64 // fatigue limit amplitude
	ND       float64 // cycles to failure at SD
	K1       float64 // slope above SD
	K2       float64 // slope below SD
	Omission float64
	Rule     MinerRule
}

// HaighPoint is one sampled point of a user-supplied Haigh
// relation: the allowed amplitude Sa at mean stress Sm for
// constant life.
type HaighPoint struct {
	Sm float64
	Sa float64
}

// CycleEvent is the record of one closed (or half) cycle,
// emitted to observers and output plugins. Increment is in
// fixed-point counting units (full cycle = 2, half = 1).
type CycleEvent struct {
	FromClass int
	ToClass   int
	FromVal   float64
	ToVal     float64
	PosFrom   uint64 // stream position of the first closing point
	PosTo     uint64 // stream position of the second closing point
	Increment uint64
	Damage    float64
	Timestamp int64 // Unix nanosecond timestamp
}

// SessionState is the counting context lifecycle.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateReady
	StateAccumulating
	StateAccumulatingInterim // one trailing sample held back
	StateFinalizing
	StateFinished
	StateError
)
