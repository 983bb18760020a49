package rainflow

import (
	"fmt"

	Rt "github.com/maroda/rainflow/types"
)

/*

	HCM, the Clormann/Seeger three-point method. Instead of
	re-testing the last four residue points it keeps a stack
	of unresolved turning points, quantized to class means,
	plus a residue pointer IR below which nothing can ever
	close again. The closure rule is the same nesting test as
	the four-point method, so both strategies agree on every
	counted cycle; what differs - and is deliberately exposed,
	not hidden - is the residue representation: the HCM
	residue holds class-mean values off this stack while the
	four-point residue holds raw sample values.

	With classified input the stack is bounded: alternating
	extrema over classCount classes can pile up at most
	2*classCount+1 unresolved points before something must
	either close or lock into the residue.

*/

type hcmStack struct {
	stack []Rt.ValueTuple
	ir    int // entries below this index are permanent residue
	cap   int
}

func newHCMStack(classCount int) *hcmStack {
	return &hcmStack{ir: 1, cap: 2*classCount + 1}
}

// processHCM pushes one turning point through the stack
// machine, counting every cycle the arrival closes.
func (s *Session) processHCM(t Rt.ValueTuple) error {
	h := s.hcm

	// quantize to the class mean; the stack never holds raw values
	q := t
	q.Value = s.cm.ClassMean(t.Class)

	for len(h.stack) >= 3 {
		n := len(h.stack)
		if n-2 < h.ir {
			// the top pair reaches into locked residue
			break
		}
		a := h.stack[n-3]
		b := h.stack[n-2]
		c := h.stack[n-1]

		// amplitude test first: the cheap reject
		y := absInt(c.Class - b.Class)
		x := absInt(q.Class - c.Class)
		if x < y {
			break
		}

		if nested(b.Class, c.Class, a.Class, q.Class) {
			s.closeCycle(b, c, FullCycleIncrement)
			h.stack = h.stack[:n-2]
			continue
		}

		// amplitude reached but the excursion is not enclosed:
		// with alternating extrema this pair can never close,
		// everything up through b belongs to the residue now
		h.ir = n - 1
		break
	}

	if len(h.stack) >= h.cap {
		return fmt.Errorf("%w: hcm stack full at %d points", ErrCapacityExceeded, h.cap)
	}
	h.stack = append(h.stack, q)
	return nil
}

// residuePoints exposes the HCM stack as the strategy's
// residue view.
func (h *hcmStack) residuePoints() []Rt.ValueTuple {
	out := make([]Rt.ValueTuple, len(h.stack))
	copy(out, h.stack)
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
