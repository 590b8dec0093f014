package catalog

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// RuleAndAllOnes collapses `x & ~0` to `x`.
type RuleAndAllOnes struct{}

func (RuleAndAllOnes) Name() string           { return "AndAllOnes" }
func (RuleAndAllOnes) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.INT_AND} }
func (RuleAndAllOnes) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	return foldIdentity(f, op, func(cv uint64, size int) bool { return cv == maskTo(size, ^uint64(0)) })
}

// RuleOrZero collapses `x | 0` to `x`.
type RuleOrZero struct{}

func (RuleOrZero) Name() string           { return "OrZero" }
func (RuleOrZero) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.INT_OR} }
func (RuleOrZero) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	return foldIdentity(f, op, func(cv uint64, size int) bool { return cv == 0 })
}

// foldIdentity is shared by any binary rule of the form "op x, c collapses
// to x when c satisfies isIdentity", regardless of which input slot c sits
// in.
func foldIdentity(f *ir.Funcdata, op *ir.PcodeOp, isIdentity func(cv uint64, size int) bool) (bool, error) {
	a, b := op.Input(0), op.Input(1)
	var x, c *ir.Varnode
	switch {
	case b != nil && b.IsConstant():
		x, c = a, b
	case a != nil && a.IsConstant():
		x, c = b, a
	default:
		return false, nil
	}
	cv, _ := c.ConstantValue()
	if !isIdentity(cv, c.Size()) {
		return false, nil
	}
	out := op.Output()
	if out == nil {
		return false, nil
	}
	f.TotalReplace(out, x)
	f.OpDestroy(op)
	return true, nil
}

// RuleXorSelf collapses `x ^ x` to the constant 0.
type RuleXorSelf struct{}

func (RuleXorSelf) Name() string           { return "XorSelf" }
func (RuleXorSelf) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.INT_XOR} }
func (RuleXorSelf) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	a, b := op.Input(0), op.Input(1)
	if a == nil || b == nil || a != b {
		return false, nil
	}
	out := op.Output()
	if out == nil {
		return false, nil
	}
	f.TotalReplaceConstant(out, 0)
	f.OpDestroy(op)
	return true, nil
}

// RuleShiftShift collapses `(x << c1) << c2` into `x << (c1+c2)`, folding a
// chain of two same-direction constant shifts into one.
type RuleShiftShift struct{}

func (RuleShiftShift) Name() string           { return "ShiftShift" }
func (RuleShiftShift) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.INT_LEFT, pcode.INT_RIGHT} }
func (RuleShiftShift) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	outerShift, ok := constOf(op.Input(1))
	if !ok {
		return false, nil
	}
	inner := op.Input(0)
	if inner == nil || inner.Def() == nil || inner.Def().Opcode() != op.Opcode() {
		return false, nil
	}
	if inner.NumDescendants() != 1 {
		return false, nil
	}
	innerShift, ok := constOf(inner.Def().Input(1))
	if !ok {
		return false, nil
	}
	out := op.Output()
	if out == nil {
		return false, nil
	}
	total := outerShift + innerShift
	size := out.Size()
	if total >= uint64(size*8) {
		f.TotalReplaceConstant(out, 0)
		f.OpDestroy(op)
		f.OpDestroy(inner.Def())
		return true, nil
	}
	f.OpSetInput(op, 0, inner.Def().Input(0))
	f.OpSetInput(op, 1, f.NewConstant(op.Input(1).Size(), total))
	f.OpDestroy(inner.Def())
	return true, nil
}
