package catalog

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// RuleLessEqualToLess rewrites `a <= c` (c constant, unsigned) to `a < c+1`
// when c+1 does not overflow the operand width — the catalogue's
// `less_one`-style compare canonicalisation, picking whichever strict/loose
// form lets later constant folding see a plain INT_LESS.
type RuleLessEqualToLess struct{}

func (RuleLessEqualToLess) Name() string { return "LessEqualToLess" }
func (RuleLessEqualToLess) Opcodes() []pcode.Opcode {
	return []pcode.Opcode{pcode.INT_LESSEQUAL}
}
func (RuleLessEqualToLess) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	b := op.Input(1)
	cv, ok := constOf(b)
	if !ok {
		return false, nil
	}
	maxVal := maskTo(b.Size(), ^uint64(0))
	if cv >= maxVal {
		return false, nil
	}
	f.OpSetOpcode(op, pcode.INT_LESS)
	f.OpSetInput(op, 1, f.NewConstant(b.Size(), cv+1))
	return true, nil
}

// RuleNotEqualCanon canonicalises `notequal(x, 0)` by marking the op as a
// calculated-bool (it already computes a 0/1 result with no further cast
// needed), matching the spec's equal/notequal canonicalisation step.
type RuleNotEqualCanon struct{}

func (RuleNotEqualCanon) Name() string           { return "NotEqualCanon" }
func (RuleNotEqualCanon) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.INT_NOTEQUAL} }
func (RuleNotEqualCanon) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	if op.Flags().Has(ir.OCalculatedBool) {
		return false, nil
	}
	zero, ok := constOf(op.Input(1))
	if !ok || zero != 0 {
		zero, ok = constOf(op.Input(0))
		if !ok || zero != 0 {
			return false, nil
		}
	}
	f.OpMarkCalculatedBool(op)
	return true, nil
}
