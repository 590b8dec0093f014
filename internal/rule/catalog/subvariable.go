package catalog

import (
	"math/bits"

	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// bytesNeeded returns the fewest low-order bytes that cover every set bit
// of mask.
func bytesNeeded(mask uint64) int {
	if mask == 0 {
		return 0
	}
	return (bits.Len64(mask) + 7) / 8
}

// RuleSubVariableNarrow proves, from a COPY's output consume mask (as
// computed by internal/heritage's non-zero/consume passes), that only the
// low k bytes of a wider result are ever read, and narrows the computation
// to k bytes — the catalogue's sub-variable analysis. The original,
// wider-output varnode identity is preserved (so no descendant is
// rewired): the COPY is narrowed in place and a ZEXT widens its result
// back out under the same varnode, leaving later dead-code and
// zero-extension-removal rules to simplify further.
type RuleSubVariableNarrow struct{}

func (RuleSubVariableNarrow) Name() string           { return "SubVariableNarrow" }
func (RuleSubVariableNarrow) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.COPY} }
func (RuleSubVariableNarrow) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	out := op.Output()
	if out == nil || out.IsInput() || out.Flags().Has(ir.VPersistent) || out.Flags().Has(ir.VAddrTied) {
		return false, nil
	}
	mask := out.ConsumeMask()
	k := bytesNeeded(mask)
	if k == 0 || k >= out.Size() {
		return false, nil
	}
	in := op.Input(0)
	if in == nil || in.Size() != out.Size() {
		return false, nil
	}

	narrowIn := f.NewUnique(k)
	subOp := f.NewOp(2, op.SeqNum().Addr)
	f.OpSetOpcode(subOp, pcode.SUBPIECE)
	f.OpInsertBefore(subOp, op)
	f.OpSetInput(subOp, 0, in)
	f.OpSetInput(subOp, 1, f.NewConstant(4, 0))
	f.OpSetOutput(subOp, narrowIn)

	narrowOut := f.NewUnique(k)
	f.OpSetInput(op, 0, narrowIn)
	f.OpSetOutput(op, narrowOut)

	zextOp := f.NewOp(1, op.SeqNum().Addr)
	f.OpSetOpcode(zextOp, pcode.INT_ZEXT)
	f.OpInsertAfter(zextOp, op)
	f.OpSetInput(zextOp, 0, narrowOut)
	f.OpSetOutput(zextOp, out)
	return true, nil
}
