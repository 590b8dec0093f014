package proto

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// StackPointerFlow solves the linear system stack_sp(i) - stack_sp(j) =
// constant over the varnodes that represent the stack pointer at each
// program point (§4.9 ActionStackPtrFlow), by forward propagation from an
// entry varnode seeded at offset 0. Call sites whose callee prototype
// does not yet fix ExtraPop get a guessed adjustment of one word, refined
// later if evidence pins the real extrapop down.
type StackPointerFlow struct {
	wordSize int
	offsets  map[*ir.Varnode]int64
}

// NewStackPointerFlow creates a solver for a target whose stack pointer
// adjusts by wordSize bytes per unannotated call (the guess used until a
// callee's real ExtraPop is known).
func NewStackPointerFlow(wordSize int) *StackPointerFlow {
	return &StackPointerFlow{wordSize: wordSize, offsets: make(map[*ir.Varnode]int64)}
}

// Seed fixes entry's offset, normally the function's incoming stack
// pointer varnode at offset 0.
func (s *StackPointerFlow) Seed(entry *ir.Varnode, offset int64) {
	s.offsets[entry] = offset
}

// OffsetOf returns the resolved offset for vn, if any.
func (s *StackPointerFlow) OffsetOf(vn *ir.Varnode) (int64, bool) {
	off, ok := s.offsets[vn]
	return off, ok
}

// Propagate extends the offset map across every live op in f until a
// fixed point: INT_ADD/INT_SUB by a known constant shift a known stack
// offset by that constant, COPY passes an offset through unchanged, and a
// CALL/CALLIND whose output is a new stack-pointer varnode advances by
// -ExtraPop(callOp) if known or by -wordSize as a standing guess
// otherwise. extraPop supplies the per-call-op adjustment known so far;
// a missing entry means "unknown, use the guess".
func (s *StackPointerFlow) Propagate(f *ir.Funcdata, extraPop map[*ir.PcodeOp]int) {
	changed := true
	for changed {
		changed = false
		for _, op := range f.LiveOps() {
			if s.step(op, extraPop) {
				changed = true
			}
		}
	}
}

func (s *StackPointerFlow) step(op *ir.PcodeOp, extraPop map[*ir.PcodeOp]int) bool {
	out := op.Output()
	if out == nil {
		return false
	}
	if _, already := s.offsets[out]; already {
		return false
	}

	switch op.Opcode() {
	case pcode.COPY:
		if off, ok := s.offsets[op.Input(0)]; ok {
			s.offsets[out] = off
			return true
		}
	case pcode.INT_ADD, pcode.INT_SUB:
		base, delta, ok := s.addSubOperands(op)
		if !ok {
			return false
		}
		off, ok := s.offsets[base]
		if !ok {
			return false
		}
		if op.Opcode() == pcode.INT_SUB {
			delta = -delta
		}
		s.offsets[out] = off + delta
		return true
	case pcode.CALL, pcode.CALLIND:
		if op.NumInputs() == 0 {
			return false
		}
		in := op.Input(0)
		off, ok := s.offsets[in]
		if !ok {
			return false
		}
		pop, known := extraPop[op]
		if !known {
			pop = s.wordSize
		}
		s.offsets[out] = off - int64(pop)
		return true
	}
	return false
}

// addSubOperands returns the varnode operand and the constant operand of
// a two-input INT_ADD/INT_SUB, in that order, regardless of which slot
// the constant is in.
func (s *StackPointerFlow) addSubOperands(op *ir.PcodeOp) (*ir.Varnode, int64, bool) {
	if op.NumInputs() != 2 {
		return nil, 0, false
	}
	a, b := op.Input(0), op.Input(1)
	if c, ok := a.ConstantValue(); ok {
		return b, int64(c), true
	}
	if c, ok := b.ConstantValue(); ok {
		return a, int64(c), true
	}
	return nil, 0, false
}
