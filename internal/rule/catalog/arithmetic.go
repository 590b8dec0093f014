package catalog

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// RuleCollapseConst folds any binary op pcode.EvalBinary knows how to
// collapse, whose two inputs are both constants, into a single constant,
// per scenario A. It declines (rather than folds) on ErrNotCollapsible —
// div-by-zero, an oversized shift amount — leaving the op for whatever
// later analysis handles an undefined result.
type RuleCollapseConst struct{}

func (RuleCollapseConst) Name() string { return "CollapseConst" }

func (RuleCollapseConst) Opcodes() []pcode.Opcode {
	return []pcode.Opcode{
		pcode.INT_ADD, pcode.INT_SUB, pcode.INT_MULT,
		pcode.INT_AND, pcode.INT_OR, pcode.INT_XOR,
		pcode.INT_DIV, pcode.INT_REM, pcode.INT_SDIV, pcode.INT_SREM,
		pcode.INT_LEFT, pcode.INT_RIGHT, pcode.INT_SRIGHT,
	}
}

func (RuleCollapseConst) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	a, aok := constOf(op.Input(0))
	b, bok := constOf(op.Input(1))
	if !aok || !bok {
		return false, nil
	}
	out := op.Output()
	if out == nil {
		return false, nil
	}
	r, err := pcode.EvalBinary(op.Opcode(), uint256.NewInt(a), uint256.NewInt(b), op.Input(0).Size(), out.Size())
	if errors.Is(err, pcode.ErrNotCollapsible) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	f.TotalReplaceConstant(out, r.Uint64())
	f.OpDestroy(op)
	return true, nil
}

// RuleCollapseConstUnary folds any unary op pcode.EvalUnary knows how to
// collapse whose single input is constant, the unary counterpart to
// RuleCollapseConst.
type RuleCollapseConstUnary struct{}

func (RuleCollapseConstUnary) Name() string { return "CollapseConstUnary" }

func (RuleCollapseConstUnary) Opcodes() []pcode.Opcode {
	return []pcode.Opcode{
		pcode.INT_NEGATE, pcode.INT_2COMP, pcode.BOOL_NEGATE,
		pcode.INT_ZEXT, pcode.INT_SEXT, pcode.POPCOUNT, pcode.LZCOUNT,
	}
}

func (RuleCollapseConstUnary) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	a, aok := constOf(op.Input(0))
	if !aok {
		return false, nil
	}
	out := op.Output()
	if out == nil {
		return false, nil
	}
	r, err := pcode.EvalUnary(op.Opcode(), uint256.NewInt(a), op.Input(0).Size(), out.Size())
	if errors.Is(err, pcode.ErrNotCollapsible) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	f.TotalReplaceConstant(out, r.Uint64())
	f.OpDestroy(op)
	return true, nil
}

// RuleCopyPropagateConstant replaces a COPY of a constant with that
// constant directly at every reader, the baseline normalisation that lets
// RuleCollapseConst and friends ever see two literal constant operands
// side by side (scenario A starts from two COPYs of literals, not a bare
// INT_ADD of constants).
type RuleCopyPropagateConstant struct{}

func (RuleCopyPropagateConstant) Name() string           { return "CopyPropagateConstant" }
func (RuleCopyPropagateConstant) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.COPY} }
func (RuleCopyPropagateConstant) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	in := op.Input(0)
	cv, ok := constOf(in)
	if !ok {
		return false, nil
	}
	out := op.Output()
	if out == nil {
		return false, nil
	}
	f.TotalReplaceConstant(out, cv)
	f.OpDestroy(op)
	return true, nil
}

// RuleDoubleToAdd rewrites `2 * x` into `x + x`, trading a multiply for an
// add the way the catalogue's arithmetic-normalisation category prescribes.
type RuleDoubleToAdd struct{}

func (RuleDoubleToAdd) Name() string               { return "DoubleToAdd" }
func (RuleDoubleToAdd) Opcodes() []pcode.Opcode     { return []pcode.Opcode{pcode.INT_MULT} }
func (RuleDoubleToAdd) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	x, c := op.Input(0), op.Input(1)
	cv, ok := constOf(c)
	if !ok {
		x, c = op.Input(1), op.Input(0)
		cv, ok = constOf(c)
	}
	if !ok || cv != 2 || x.IsConstant() {
		return false, nil
	}
	f.OpSetOpcode(op, pcode.INT_ADD)
	f.OpSetInput(op, 0, x)
	f.OpSetInput(op, 1, x)
	return true, nil
}

// RuleSubToAddNegate rewrites `a - c` (constant c) into `a + (-c)` when c is
// a negative-looking constant (high bit set for its width), matching the
// catalogue's preference for a single canonical add form downstream rules
// can all key off of.
type RuleSubToAddNegate struct{}

func (RuleSubToAddNegate) Name() string           { return "SubToAddNegate" }
func (RuleSubToAddNegate) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.INT_SUB} }
func (RuleSubToAddNegate) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	b := op.Input(1)
	cv, ok := constOf(b)
	if !ok {
		return false, nil
	}
	signBit := uint64(1) << uint(b.Size()*8-1)
	if cv&signBit == 0 {
		return false, nil
	}
	neg := maskTo(b.Size(), ^cv+1)
	out := op.Output()
	newConst := f.NewConstant(b.Size(), neg)
	newOp := f.NewOp(2, op.SeqNum().Addr)
	f.OpSetOpcode(newOp, pcode.INT_ADD)
	f.OpInsertBefore(newOp, op)
	f.OpSetInput(newOp, 0, op.Input(0))
	f.OpSetInput(newOp, 1, newConst)
	f.NewUniqueOut(out.Size(), newOp)
	f.TotalReplace(out, newOp.Output())
	f.OpDestroy(op)
	return true, nil
}
