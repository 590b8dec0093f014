package catalog

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// subpieceOffset reads the byte-offset operand of a SUBPIECE op (encoded as
// its second input, a constant).
func subpieceOffset(op *ir.PcodeOp) (int, bool) {
	v, ok := constOf(op.Input(1))
	if !ok {
		return 0, false
	}
	return int(v), true
}

// RuleHumptyDumpty matches `PIECE(SUBPIECE(w, loSize), SUBPIECE(w, 0))` —
// the high and low SUBPIECEs of the same whole reassembled by PIECE — and
// collapses it to `COPY w` (scenario B).
type RuleHumptyDumpty struct{}

func (RuleHumptyDumpty) Name() string           { return "HumptyDumpty" }
func (RuleHumptyDumpty) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.PIECE} }
func (RuleHumptyDumpty) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	hi, lo := op.Input(0), op.Input(1)
	if hi == nil || lo == nil || hi.Def() == nil || lo.Def() == nil {
		return false, nil
	}
	hiDef, loDef := hi.Def(), lo.Def()
	if hiDef.Opcode() != pcode.SUBPIECE || loDef.Opcode() != pcode.SUBPIECE {
		return false, nil
	}
	w := hiDef.Input(0)
	if w == nil || loDef.Input(0) != w {
		return false, nil
	}
	hiOff, ok1 := subpieceOffset(hiDef)
	loOff, ok2 := subpieceOffset(loDef)
	if !ok1 || !ok2 || loOff != 0 || hiOff != lo.Size() {
		return false, nil
	}
	if hi.Size()+lo.Size() != w.Size() {
		return false, nil
	}
	f.OpSetAllInput(op, []*ir.Varnode{w})
	f.OpSetOpcode(op, pcode.COPY)
	return true, nil
}

// RuleDumptyHump matches `SUBPIECE(PIECE(hi, lo), c)` and bypasses the
// intermediate PIECE: a SUBPIECE taking exactly lo or exactly hi becomes a
// COPY of that half, and one starting past hi's first byte becomes a
// SUBPIECE of hi. Any other SUBPIECE (part of lo, or part of hi starting
// at its first byte) is left unchanged.
type RuleDumptyHump struct{}

func (RuleDumptyHump) Name() string           { return "DumptyHump" }
func (RuleDumptyHump) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.SUBPIECE} }
func (RuleDumptyHump) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	whole := op.Input(0)
	if whole == nil || whole.Def() == nil || whole.Def().Opcode() != pcode.PIECE {
		return false, nil
	}
	off, ok := subpieceOffset(op)
	if !ok {
		return false, nil
	}
	out := op.Output()
	if out == nil {
		return false, nil
	}
	hi, lo := whole.Def().Input(0), whole.Def().Input(1)
	switch {
	case off == 0 && out.Size() == lo.Size():
		f.OpSetAllInput(op, []*ir.Varnode{lo})
		f.OpSetOpcode(op, pcode.COPY)
		return true, nil
	case off == lo.Size() && out.Size() == hi.Size():
		f.OpSetAllInput(op, []*ir.Varnode{hi})
		f.OpSetOpcode(op, pcode.COPY)
		return true, nil
	case off > lo.Size():
		f.OpSetInput(op, 0, hi)
		f.OpSetInput(op, 1, f.NewConstant(op.Input(1).Size(), uint64(off-lo.Size())))
		return true, nil
	}
	return false, nil
}

// RuleShiftSub matches `SUBPIECE(INT_LEFT(w, c), k)` where c is a whole
// number of bytes, and folds the shift into the SUBPIECE's byte offset —
// the catalogue's ShiftSub form.
type RuleShiftSub struct{}

func (RuleShiftSub) Name() string           { return "ShiftSub" }
func (RuleShiftSub) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.SUBPIECE} }
func (RuleShiftSub) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	t := op.Input(0)
	if t == nil || t.Def() == nil || t.Def().Opcode() != pcode.INT_LEFT {
		return false, nil
	}
	shiftBits, ok := constOf(t.Def().Input(1))
	if !ok || shiftBits%8 != 0 {
		return false, nil
	}
	shiftBytes := int(shiftBits / 8)
	k, ok := subpieceOffset(op)
	if !ok || k < shiftBytes {
		return false, nil
	}
	w := t.Def().Input(0)
	out := op.Output()
	if out == nil || k-shiftBytes+out.Size() > w.Size() {
		return false, nil
	}
	f.OpSetInput(op, 0, w)
	f.OpSetInput(op, 1, f.NewConstant(op.Input(1).Size(), uint64(k-shiftBytes)))
	return true, nil
}
