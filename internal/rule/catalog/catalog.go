// Package catalog implements a representative slice of the peephole rule
// catalogue (§4.7): concrete rule.Rule values grouped by category, one file
// per category in the same spirit as lang/compiler's one-concern-per-file
// layout, dispatched through the opcode-indexed rule.ActionPool exactly the
// way lang/machine's interpreter loop dispatches on opcode.
package catalog

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/rule"
)

// maskTo returns v truncated to the low sizeBytes*8 bits, the same masking
// discipline used throughout internal/heritage's consume/non-zero mask
// arithmetic.
func maskTo(sizeBytes int, v uint64) uint64 {
	bits := sizeBytes * 8
	if bits >= 64 {
		return v
	}
	return v & (uint64(1)<<uint(bits) - 1)
}

func constOf(vn *ir.Varnode) (uint64, bool) {
	if vn == nil {
		return 0, false
	}
	return vn.ConstantValue()
}

// RegisterAll installs every rule in this package into pool, in the fixed
// order below. The order only matters for which rule gets first refusal on
// an op within a single sweep; ApplyOp's rule-neutrality contract (§8
// Testable Property 2) means a later rule is never starved of a real match
// by an earlier one that declined.
func RegisterAll(pool *rule.ActionPool) {
	for _, r := range []rule.Rule{
		// arithmetic normalisation
		RuleCopyPropagateConstant{},
		RuleCollapseConst{},
		RuleCollapseConstUnary{},
		RuleDoubleToAdd{},
		RuleSubToAddNegate{},
		// bitwise identities
		RuleAndAllOnes{},
		RuleOrZero{},
		RuleXorSelf{},
		RuleShiftShift{},
		// compare normalisation
		RuleLessEqualToLess{},
		RuleNotEqualCanon{},
		// piece/subpiece algebra
		RuleHumptyDumpty{},
		RuleDumptyHump{},
		RuleShiftSub{},
		// ptr-arith lowering
		RulePtrArith{},
		RulePtrArithUndo{},
		// call-indirection folding
		NewRuleCallIndirectResolve(),
		// switch recovery
		RuleSwitchGuard{},
		// sub-variable analysis
		RuleSubVariableNarrow{},
		// double-precision recomposition
		RuleDoublePrecisionAdd{},
	} {
		pool.Register(r)
	}
}
