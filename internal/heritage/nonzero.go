package heritage

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// NonZeroMask computes, for every varnode, a conservative upper bound on
// which bits might ever be set (§4.5): a descending-chain forward
// dataflow seeded at the all-ones mask (size-bounded) for every
// non-constant varnode and the exact value for constants, tightened by a
// work-list fixed point until no op's output estimate can shrink further.
func NonZeroMask(f *ir.Funcdata) {
	for _, v := range f.AllVarnodes() {
		if v.IsConstant() {
			val, _ := v.ConstantValue()
			v.SetNonZeroMask(val)
		} else {
			v.SetNonZeroMask(fullMask(v.Size()))
		}
	}

	var worklist []*ir.PcodeOp
	queued := make(map[*ir.PcodeOp]bool)
	push := func(op *ir.PcodeOp) {
		if op == nil || op.IsDead() || queued[op] {
			return
		}
		queued[op] = true
		worklist = append(worklist, op)
	}
	for _, op := range f.LiveOps() {
		push(op)
	}

	for len(worklist) > 0 {
		op := worklist[0]
		worklist = worklist[1:]
		queued[op] = false

		out := op.Output()
		if out == nil || out.IsConstant() {
			continue
		}
		newMask := computeNonZero(op) & out.NonZeroMask()
		if newMask != out.NonZeroMask() {
			out.SetNonZeroMask(newMask)
			for _, d := range out.Descendants() {
				push(d)
			}
		}
	}
}

func computeNonZero(op *ir.PcodeOp) uint64 {
	ins := op.Inputs()
	switch op.Opcode() {
	case pcode.COPY, pcode.CAST:
		if len(ins) == 1 {
			return ins[0].NonZeroMask()
		}
	case pcode.INT_AND:
		if len(ins) == 2 {
			return ins[0].NonZeroMask() & ins[1].NonZeroMask()
		}
	case pcode.INT_OR, pcode.INT_XOR:
		if len(ins) == 2 {
			return ins[0].NonZeroMask() | ins[1].NonZeroMask()
		}
	case pcode.INT_ZEXT:
		if len(ins) == 1 {
			return ins[0].NonZeroMask() & fullMask(ins[0].Size())
		}
	case pcode.INT_LEFT:
		if len(ins) == 2 {
			if shift, ok := constVal(ins[1]); ok {
				return shiftedLeft(ins[0].NonZeroMask(), int(shift))
			}
		}
	case pcode.INT_RIGHT:
		if len(ins) == 2 {
			if shift, ok := constVal(ins[1]); ok {
				return shiftedRight(ins[0].NonZeroMask(), int(shift))
			}
		}
	case pcode.SUBPIECE:
		if len(ins) == 2 {
			if shift, ok := constVal(ins[1]); ok {
				return shiftedRight(ins[0].NonZeroMask(), int(shift)*8)
			}
		}
	case pcode.PIECE:
		if len(ins) == 2 {
			loSize := ins[1].Size()
			return shiftedLeft(ins[0].NonZeroMask(), loSize*8) | ins[1].NonZeroMask()
		}
	case pcode.MULTIEQUAL:
		var acc uint64
		for _, in := range ins {
			if in != nil {
				acc |= in.NonZeroMask()
			}
		}
		return acc
	case pcode.INT_EQUAL, pcode.INT_NOTEQUAL, pcode.INT_LESS, pcode.INT_LESSEQUAL,
		pcode.INT_SLESS, pcode.INT_SLESSEQUAL, pcode.BOOL_AND, pcode.BOOL_OR,
		pcode.BOOL_XOR, pcode.BOOL_NEGATE:
		return 1
	}
	if out := op.Output(); out != nil {
		return fullMask(out.Size())
	}
	return ^uint64(0)
}
