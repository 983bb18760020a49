package rainflow

import (
	Rt "github.com/maroda/rainflow/types"
)

// DamageHistory is the optional per-sample damage trace. One
// slot per fed sample; slot i-1 belongs to stream position i.
// Cycle damage is spread into it per the configured policy
// when the cycle closes.
type DamageHistory struct {
	Policy Rt.SpreadPolicy
	Trace  []float64
}

func NewDamageHistory(policy Rt.SpreadPolicy) *DamageHistory {
	return &DamageHistory{Policy: policy}
}

// Extend grows the trace to cover stream position pos.
func (h *DamageHistory) Extend(pos uint64) {
	for uint64(len(h.Trace)) < pos {
		h.Trace = append(h.Trace, 0)
	}
}

// Spread apportions dmg for a cycle that closed between the
// samples at posFrom and posTo. Ramp policies distribute
// across the samples strictly between the closing pair; when
// no interior samples exist they fall back to an even split.
func (h *DamageHistory) Spread(dmg float64, posFrom, posTo uint64, ampFrom, ampTo float64) {
	if dmg == 0 || posFrom == 0 || posTo == 0 {
		return
	}
	h.Extend(posTo)
	from := int(posFrom) - 1
	to := int(posTo) - 1

	switch h.Policy {
	case Rt.SpreadEndpointFrom:
		h.Trace[from] += dmg
	case Rt.SpreadEndpointTo:
		h.Trace[to] += dmg
	case Rt.SpreadSplitEven:
		h.Trace[from] += dmg / 2
		h.Trace[to] += dmg / 2
	case Rt.SpreadRampLinear, Rt.SpreadRampAmplitude:
		n := to - from - 1
		if n <= 0 {
			h.Trace[from] += dmg / 2
			h.Trace[to] += dmg / 2
			return
		}
		weights := make([]float64, n)
		for i := range weights {
			frac := float64(i+1) / float64(n+1)
			if h.Policy == Rt.SpreadRampLinear {
				weights[i] = frac
			} else {
				// weight follows the amplitude built up so far
				weights[i] = ampFrom + frac*(ampTo-ampFrom)
				if weights[i] < 0 {
					weights[i] = -weights[i]
				}
			}
		}
		for i, w := range amplitudeSpread(weights) {
			h.Trace[from+1+i] += dmg * w
		}
	}
}

// Total is the accumulated damage in the trace.
func (h *DamageHistory) Total() float64 {
	var t float64
	for _, d := range h.Trace {
		t += d
	}
	return t
}
