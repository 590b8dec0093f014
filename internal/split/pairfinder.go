package split

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// CarryPair identifies one candidate double-precision add/subtract: a
// low-half op, the carry/borrow it feeds, and the two-level high-half
// computation (hiA+hiB first, then + the zero-extended carry) that
// consumes it. A carry flag is only ever computed to feed exactly this
// shape, so finding one is much stronger evidence of a real split pair
// than two coincidentally adjacent adds would be.
type CarryPair struct {
	LoOp     *ir.PcodeOp
	Carry    *ir.PcodeOp
	InnerHi  *ir.PcodeOp
	OuterHi  *ir.PcodeOp
}

// FindCarryPairs scans f for INT_CARRY/INT_SCARRY/INT_SBORROW ops and
// tries to correlate each with the low-half add/subtract it was computed
// from and the high-half computation it feeds.
func FindCarryPairs(f *ir.Funcdata) []CarryPair {
	var pairs []CarryPair
	for _, op := range f.LiveOps() {
		switch op.Opcode() {
		case pcode.INT_CARRY, pcode.INT_SCARRY, pcode.INT_SBORROW:
		default:
			continue
		}
		if op.NumInputs() != 2 {
			continue
		}
		loOp := sameOperandAdd(op)
		if loOp == nil {
			continue
		}
		outer, inner := findCarryConsumer(op)
		if outer == nil || inner == nil {
			continue
		}
		pairs = append(pairs, CarryPair{LoOp: loOp, Carry: op, InnerHi: inner, OuterHi: outer})
	}
	return pairs
}

// sameOperandAdd finds an INT_ADD/INT_SUB among carryOp's first input's
// descendants that shares both of carryOp's operands — the low-half op
// the carry was computed from.
func sameOperandAdd(carryOp *ir.PcodeOp) *ir.PcodeOp {
	a, b := carryOp.Input(0), carryOp.Input(1)
	for _, use := range a.Descendants() {
		if use == carryOp || use.NumInputs() != 2 {
			continue
		}
		if use.Opcode() != pcode.INT_ADD && use.Opcode() != pcode.INT_SUB {
			continue
		}
		if (use.Input(0) == a && use.Input(1) == b) || (use.Input(0) == b && use.Input(1) == a) {
			return use
		}
	}
	return nil
}

// findCarryConsumer walks from carryOp's output, optionally through one
// INT_ZEXT widening it, to the INT_ADD/INT_SUB that adds it to an inner
// high-half sum, returning both the outer (carry-consuming) and inner
// (raw hiA+hiB) ops.
func findCarryConsumer(carryOp *ir.PcodeOp) (outer, inner *ir.PcodeOp) {
	carryOut := carryOp.Output()
	if carryOut == nil {
		return nil, nil
	}
	for _, use := range carryOut.Descendants() {
		if use.Opcode() == pcode.INT_ZEXT {
			ext := use.Output()
			if ext == nil {
				continue
			}
			for _, use2 := range ext.Descendants() {
				if o, i, ok := matchOuterAdd(use2, ext); ok {
					return o, i
				}
			}
			continue
		}
		if o, i, ok := matchOuterAdd(use, carryOut); ok {
			return o, i
		}
	}
	return nil, nil
}

func matchOuterAdd(op *ir.PcodeOp, carryInput *ir.Varnode) (*ir.PcodeOp, *ir.PcodeOp, bool) {
	if (op.Opcode() != pcode.INT_ADD && op.Opcode() != pcode.INT_SUB) || op.NumInputs() != 2 {
		return nil, nil, false
	}
	var other *ir.Varnode
	switch {
	case op.Input(0) == carryInput:
		other = op.Input(1)
	case op.Input(1) == carryInput:
		other = op.Input(0)
	default:
		return nil, nil, false
	}
	inner := other.Def()
	if inner == nil || inner.NumInputs() != 2 {
		return nil, nil, false
	}
	if inner.Opcode() != pcode.INT_ADD && inner.Opcode() != pcode.INT_SUB {
		return nil, nil, false
	}
	return op, inner, true
}

// AdjacentPair is a pair of same-opcode ops whose outputs occupy
// contiguous storage — the correlation the Logical, Phi and CopyForce
// forms use to suspect a split pair (a carry op is not involved in those
// shapes, so adjacency is the best available signal).
type AdjacentPair struct {
	LoOp, HiOp *ir.PcodeOp
}

// FindAdjacentOutputs finds every pair of live opcode-matching ops whose
// outputs are byte-adjacent in the same address space, lo immediately
// followed by hi.
func FindAdjacentOutputs(f *ir.Funcdata, opcode pcode.Opcode) []AdjacentPair {
	var candidates []*ir.PcodeOp
	for _, op := range f.LiveOps() {
		if op.Opcode() == opcode && op.Output() != nil {
			candidates = append(candidates, op)
		}
	}
	var pairs []AdjacentPair
	for _, lo := range candidates {
		for _, hi := range candidates {
			if lo == hi {
				continue
			}
			lv, hv := lo.Output(), hi.Output()
			if lv.Address().Space == nil || lv.Address().Space != hv.Address().Space {
				continue
			}
			if hv.Address().Offset == lv.Address().Offset+uint64(lv.Size()) {
				pairs = append(pairs, AdjacentPair{LoOp: lo, HiOp: hi})
			}
		}
	}
	return pairs
}
