package catalog

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

func sameUnorderedPair(a, b, x, y *ir.Varnode) bool {
	return (a == x && b == y) || (a == y && b == x)
}

// RuleDoublePrecisionAdd recognises the split-precision addition idiom
// (scenario E): a low-half add plus carry, zero-extended and folded into a
// high-half add, over two pairs of lo/hi varnodes already known (by
// Pairs) to be the lower and upper halves of the same logical whole. It
// replaces the five-op idiom with a single INT_ADD on synthesised wholes,
// rebuilding the original lo/hi result varnodes as SUBPIECEs of the new
// whole so descendants of either half are undisturbed.
//
// Pairs is populated by whatever discovers the lo/hi relationship — in the
// full pipeline that is internal/split's SplitVarnode harness (§4.10);
// here it is supplied directly so the rewrite itself is testable in
// isolation.
type RuleDoublePrecisionAdd struct {
	Pairs map[*ir.Varnode]*ir.Varnode // lo -> hi
}

func (RuleDoublePrecisionAdd) Name() string           { return "DoublePrecisionAdd" }
func (RuleDoublePrecisionAdd) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.INT_CARRY} }

func (r RuleDoublePrecisionAdd) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	if r.Pairs == nil {
		return false, nil
	}
	lo1, lo2 := op.Input(0), op.Input(1)
	hi1, ok1 := r.Pairs[lo1]
	hi2, ok2 := r.Pairs[lo2]
	if !ok1 || !ok2 {
		return false, nil
	}
	if !hi1.Flags().Has(ir.VPrecisionHi) || !hi2.Flags().Has(ir.VPrecisionHi) ||
		!lo1.Flags().Has(ir.VPrecisionLo) || !lo2.Flags().Has(ir.VPrecisionLo) {
		return false, nil
	}

	cVn := op.Output()
	if cVn == nil || cVn.NumDescendants() != 1 {
		return false, nil
	}
	zextOp := cVn.Descendants()[0]
	if zextOp.Opcode() != pcode.INT_ZEXT {
		return false, nil
	}
	tmp := zextOp.Output()
	if tmp == nil || tmp.NumDescendants() != 1 {
		return false, nil
	}
	hiSumOp := tmp.Descendants()[0]
	if hiSumOp.Opcode() != pcode.INT_ADD {
		return false, nil
	}
	var hiAddOut *ir.Varnode
	switch tmp {
	case hiSumOp.Input(0):
		hiAddOut = hiSumOp.Input(1)
	case hiSumOp.Input(1):
		hiAddOut = hiSumOp.Input(0)
	default:
		return false, nil
	}
	if hiAddOut == nil || hiAddOut.Def() == nil || hiAddOut.Def().Opcode() != pcode.INT_ADD {
		return false, nil
	}
	hiDef := hiAddOut.Def()
	if !sameUnorderedPair(hiDef.Input(0), hiDef.Input(1), hi1, hi2) {
		return false, nil
	}

	var loOp *ir.PcodeOp
	for _, d := range lo1.Descendants() {
		if d != op && d.Opcode() == pcode.INT_ADD && sameUnorderedPair(d.Input(0), d.Input(1), lo1, lo2) {
			loOp = d
			break
		}
	}
	if loOp == nil {
		return false, nil
	}
	loOut := loOp.Output()
	hiFinalOut := hiSumOp.Output()
	if loOut == nil || hiFinalOut == nil {
		return false, nil
	}

	wholeSize := hi1.Size() + lo1.Size()
	offConstSize := 4

	w1 := f.NewUnique(wholeSize)
	pieceOp1 := f.NewOp(2, op.SeqNum().Addr)
	f.OpSetOpcode(pieceOp1, pcode.PIECE)
	f.OpInsertBefore(pieceOp1, op)
	f.OpSetInput(pieceOp1, 0, hi1)
	f.OpSetInput(pieceOp1, 1, lo1)
	f.OpSetOutput(pieceOp1, w1)

	w2 := f.NewUnique(wholeSize)
	pieceOp2 := f.NewOp(2, op.SeqNum().Addr)
	f.OpSetOpcode(pieceOp2, pcode.PIECE)
	f.OpInsertBefore(pieceOp2, op)
	f.OpSetInput(pieceOp2, 0, hi2)
	f.OpSetInput(pieceOp2, 1, lo2)
	f.OpSetOutput(pieceOp2, w2)

	addOp := f.NewOp(2, op.SeqNum().Addr)
	f.OpSetOpcode(addOp, pcode.INT_ADD)
	f.OpInsertBefore(addOp, op)
	f.OpSetInput(addOp, 0, w1)
	f.OpSetInput(addOp, 1, w2)
	w := f.NewUnique(wholeSize)
	f.OpSetOutput(addOp, w)

	f.OpDestroy(loOp)
	f.OpDestroy(hiSumOp)

	subLo := f.NewOp(2, op.SeqNum().Addr)
	f.OpSetOpcode(subLo, pcode.SUBPIECE)
	f.OpInsertAfter(subLo, addOp)
	f.OpSetInput(subLo, 0, w)
	f.OpSetInput(subLo, 1, f.NewConstant(offConstSize, 0))
	f.OpSetOutput(subLo, loOut)

	subHi := f.NewOp(2, op.SeqNum().Addr)
	f.OpSetOpcode(subHi, pcode.SUBPIECE)
	f.OpInsertAfter(subHi, subLo)
	f.OpSetInput(subHi, 0, w)
	f.OpSetInput(subHi, 1, f.NewConstant(offConstSize, uint64(lo1.Size())))
	f.OpSetOutput(subHi, hiFinalOut)

	f.OpDestroy(zextOp)
	f.OpDestroy(hiDef)
	f.OpDestroy(op)

	return true, nil
}
