package heritage

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// fullMask returns a mask with every bit of a sizeBytes-wide value set,
// saturating at 64 bits (the engine's mask width; wider values are
// tracked exactly by Testable Property 8's 128-bit arithmetic, but
// consume-mask liveness itself only needs "fully used or not").
func fullMask(sizeBytes int) uint64 {
	bits := sizeBytes * 8
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

// isRoot reports whether op must be kept regardless of whether its output
// is consumed: it performs an externally visible action.
func isRoot(op *ir.PcodeOp) bool {
	switch op.Opcode() {
	case pcode.STORE, pcode.CALL, pcode.CALLIND, pcode.CALLOTHER,
		pcode.BRANCH, pcode.CBRANCH, pcode.BRANCHIND, pcode.RETURN:
		return true
	}
	return false
}

// requiredInputMasks computes, given that op's output must supply
// outConsume, the consume mask each of op's inputs needs from this op
// alone. Ops whose bit-level data flow isn't tracked precisely fall back
// to requiring their input's full mask, which is always a safe
// over-approximation (§4.5).
func requiredInputMasks(op *ir.PcodeOp, outConsume uint64) []uint64 {
	n := op.NumInputs()
	masks := make([]uint64, n)

	switch op.Opcode() {
	case pcode.COPY, pcode.CAST, pcode.INDIRECT, pcode.MULTIEQUAL:
		for i := range masks {
			masks[i] = outConsume
		}
	case pcode.INT_ZEXT, pcode.INT_SEXT:
		if n > 0 {
			masks[0] = outConsume & fullMask(op.Input(0).Size())
		}
	case pcode.SUBPIECE:
		if n == 2 {
			shiftBytes, ok := constVal(op.Input(1))
			if ok {
				masks[0] = shiftedLeft(outConsume, int(shiftBytes)*8)
			} else {
				masks[0] = fullMask(op.Input(0).Size())
			}
			masks[1] = fullMask(op.Input(1).Size())
		}
	case pcode.PIECE:
		if n == 2 {
			loSize := op.Input(1).Size()
			masks[1] = outConsume & fullMask(loSize)
			masks[0] = shiftedRight(outConsume, loSize*8) & fullMask(op.Input(0).Size())
		}
	case pcode.INT_AND, pcode.INT_OR, pcode.INT_XOR:
		for i := range masks {
			masks[i] = outConsume
		}
	case pcode.INT_LEFT:
		if n == 2 {
			if sa, ok := constVal(op.Input(1)); ok {
				masks[0] = shiftedRight(outConsume, int(sa))
			} else {
				masks[0] = fullMask(op.Input(0).Size())
			}
			masks[1] = fullMask(op.Input(1).Size())
		}
	case pcode.INT_RIGHT:
		if n == 2 {
			if sa, ok := constVal(op.Input(1)); ok {
				masks[0] = shiftedLeft(outConsume, int(sa))
			} else {
				masks[0] = fullMask(op.Input(0).Size())
			}
			masks[1] = fullMask(op.Input(1).Size())
		}
	case pcode.INT_SRIGHT:
		if n == 2 {
			if sa, ok := constVal(op.Input(1)); ok {
				inSize := op.Input(0).Size()
				signBit := uint64(1) << uint(inSize*8-1)
				switch {
				case sa == 0:
					masks[0] = outConsume
				case int(sa) >= inSize*8:
					// every output bit is a copy of the sign bit.
					if outConsume != 0 {
						masks[0] = signBit
					}
				default:
					in0 := shiftedLeft(outConsume, int(sa))
					// bits the shift fills in from the sign all carry the
					// input's top bit, so consuming any of them consumes it too.
					if shiftedRight(outConsume, inSize*8-int(sa)) != 0 {
						in0 |= signBit
					}
					masks[0] = in0
				}
			} else {
				masks[0] = fullMask(op.Input(0).Size())
			}
			masks[1] = fullMask(op.Input(1).Size())
		}
	default:
		for i, in := range op.Inputs() {
			if in != nil {
				masks[i] = fullMask(in.Size())
			} else {
				masks[i] = outConsume
			}
		}
	}
	return masks
}

func constVal(v *ir.Varnode) (uint64, bool) {
	if v == nil {
		return 0, false
	}
	return v.ConstantValue()
}

func shiftedLeft(mask uint64, bits int) uint64 {
	if bits <= 0 {
		return mask
	}
	if bits >= 64 {
		return 0
	}
	return mask << uint(bits)
}

func shiftedRight(mask uint64, bits int) uint64 {
	if bits <= 0 {
		return mask
	}
	if bits >= 64 {
		return 0
	}
	return mask >> uint(bits)
}

// DeadCode runs ActionDeadCode over f: a backward work-list fixed point
// computing each varnode's consume mask (Testable Property: monotone,
// never cleared), followed by removal of every non-root op whose output
// is never consumed. An INDIRECT is kept despite an unconsumed output if
// it still feeds a live INDIRECT further down its descendant chain (§9's
// stricter triple-INDIRECT rule), since removing it would silently drop
// the side-effect placeholder the later INDIRECT still depends on.
//
// It returns the number of ops removed.
func DeadCode(f *ir.Funcdata) int {
	var worklist []*ir.PcodeOp
	seen := make(map[*ir.PcodeOp]bool)

	queue := func(op *ir.PcodeOp) {
		if op == nil || op.IsDead() {
			return
		}
		worklist = append(worklist, op)
	}

	for _, op := range f.LiveOps() {
		if isRoot(op) {
			for _, in := range op.Inputs() {
				if in != nil {
					in.MarkConsumed(fullMask(in.Size()))
				}
			}
			seen[op] = true
			queue(op)
		}
	}

	for len(worklist) > 0 {
		op := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		outConsume := uint64(0)
		if out := op.Output(); out != nil {
			outConsume = out.ConsumeMask()
		} else if isRoot(op) {
			outConsume = ^uint64(0)
		}

		masks := requiredInputMasks(op, outConsume)
		for i, in := range op.Inputs() {
			if in == nil {
				continue
			}
			before := in.ConsumeMask()
			in.MarkConsumed(masks[i])
			if in.ConsumeMask() != before || !seen[in.Def()] {
				if def := in.Def(); def != nil && !def.IsDead() {
					seen[def] = true
					queue(def)
				}
			}
		}
	}

	dead := make(map[*ir.PcodeOp]bool)
	for _, op := range f.LiveOps() {
		if isRoot(op) {
			continue
		}
		out := op.Output()
		if out == nil {
			continue
		}
		if out.ConsumeMask() == 0 {
			dead[op] = true
		}
	}

	// §9 Q2: retract an INDIRECT from the dead set while it still feeds a
	// live INDIRECT descendant.
	changed := true
	for changed {
		changed = false
		for op := range dead {
			if op.Opcode() != pcode.INDIRECT {
				continue
			}
			for _, d := range op.Output().Descendants() {
				if d.Opcode() == pcode.INDIRECT && !dead[d] {
					delete(dead, op)
					changed = true
					break
				}
			}
		}
	}

	for op := range dead {
		f.OpDestroy(op)
	}
	return f.Sweep()
}
