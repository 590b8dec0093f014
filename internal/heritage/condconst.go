package heritage

import (
	"github.com/tsgates/pcodec/internal/cfg"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// ConditionalConst implements ActionConditionalConst: when a CBRANCH's
// condition is an equality test against a constant, every use of the
// tested varnode in a block dominated by the branch target exclusively
// reached by the "equal" edge is replaced by that constant.
//
// Per §9's open question about partially-heritaged address spaces, this
// refuses to touch a varnode whose space has not completed at least one
// heritage pass (f.HasHeritaged) — the hard precondition the spec's note
// recommends.
func ConditionalConst(f *ir.Funcdata, dom *cfg.DomTree) int {
	count := 0
	for _, b := range dom.Blocks() {
		for _, op := range b.Ops() {
			if op.IsDead() || op.Opcode() != pcode.CBRANCH {
				continue
			}
			target, constVal, truthBlock, ok := equalityWitness(op, dom)
			if !ok {
				continue
			}
			if target.Address().Space == nil || !f.HasHeritaged(target.Address().Space.Index()) {
				continue
			}

			replacement := f.NewConstant(target.Size(), constVal)
			for _, d := range target.Descendants() {
				if d.Block() == nil || !dom.Dominates(truthBlock, d.Block()) {
					continue
				}
				for i := 0; i < d.NumInputs(); i++ {
					if d.Input(i) == target {
						f.OpSetInput(d, i, replacement)
						count++
					}
				}
			}
		}
	}
	return count
}

// equalityWitness extracts (target, constant, block) from a CBRANCH whose
// condition is a direct equality test against a constant, where block is
// the unique branch target exclusively reached when the equality holds.
func equalityWitness(op *ir.PcodeOp, dom *cfg.DomTree) (*ir.Varnode, uint64, *ir.Block, bool) {
	if op.NumInputs() == 0 {
		return nil, 0, nil, false
	}
	cond := op.Input(0)
	def := cond.Def()
	if def == nil || def.NumInputs() != 2 {
		return nil, 0, nil, false
	}
	if def.Opcode() != pcode.INT_EQUAL && def.Opcode() != pcode.INT_NOTEQUAL {
		return nil, 0, nil, false
	}

	a, b := def.Input(0), def.Input(1)
	var variable, constant *ir.Varnode
	switch {
	case a.IsConstant() && !b.IsConstant():
		constant, variable = a, b
	case b.IsConstant() && !a.IsConstant():
		constant, variable = b, a
	default:
		return nil, 0, nil, false
	}

	trueB, falseB := edgeTargets(op.Block())
	if trueB == nil || falseB == nil {
		return nil, 0, nil, false
	}
	truthBlock := trueB
	if def.Opcode() == pcode.INT_NOTEQUAL {
		truthBlock = falseB
	}
	if len(truthBlock.In()) != 1 {
		// Not exclusively reached on this edge: some other path also
		// leads here, so the equality cannot be assumed to hold.
		return nil, 0, nil, false
	}

	val, _ := constant.ConstantValue()
	return variable, val, truthBlock, true
}

func edgeTargets(b *ir.Block) (trueB, falseB *ir.Block) {
	for _, e := range b.Out() {
		switch e.Kind {
		case ir.EdgeTrue:
			trueB = e.To
		case ir.EdgeFalse:
			falseB = e.To
		}
	}
	return
}
