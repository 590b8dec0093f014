package catalog

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// RuleSwitchGuard recognises the jump-table-guard idiom feeding a
// BRANCHIND: the indirect target is computed from `base + index*scale`
// with both base and scale constant, which is the load-table-entry
// address pattern a real switch-recovery pass keys off of. Full case-label
// and bound recovery belongs to a BlockStructurer (§6); this rule's job is
// only to flag the op as special-print once the pattern is recognised so
// the emitter renders it as a computed jump rather than a raw BRANCHIND,
// leaving edge/label assignment to the structurer.
type RuleSwitchGuard struct{}

func (RuleSwitchGuard) Name() string           { return "SwitchGuard" }
func (RuleSwitchGuard) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.BRANCHIND} }
func (RuleSwitchGuard) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	if op.Flags().Has(ir.OSpecialPrint) {
		return false, nil
	}
	addrVn := op.Input(0)
	if addrVn == nil || addrVn.Def() == nil || addrVn.Def().Opcode() != pcode.INT_ADD {
		return false, nil
	}
	addOp := addrVn.Def()
	base, scaled := addOp.Input(0), addOp.Input(1)
	if !base.IsConstant() {
		base, scaled = addOp.Input(1), addOp.Input(0)
	}
	if !base.IsConstant() || scaled == nil || scaled.Def() == nil || scaled.Def().Opcode() != pcode.INT_MULT {
		return false, nil
	}
	mulOp := scaled.Def()
	_, aIsConst := constOf(mulOp.Input(0))
	_, bIsConst := constOf(mulOp.Input(1))
	if aIsConst == bIsConst { // need exactly one constant scale operand
		return false, nil
	}
	f.OpMarkSpecialPrint(op)
	return true, nil
}
