package split

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// ApplyAddSub rewrites one correlated carry pair into a single add or
// subtract on the materialised 2x-width wholes, with the original lo/hi
// outputs rebuilt as SUBPIECEs of the result; it returns false (without
// mutating) if the pair doesn't actually check out, e.g. lo and hi
// disagree on add-vs-subtract.
func ApplyAddSub(f *ir.Funcdata, p CarryPair) bool {
	if p.LoOp.Opcode() != p.InnerHi.Opcode() {
		return false
	}
	loOut, hiOut := p.LoOp.Output(), p.OuterHi.Output()
	if loOut == nil || hiOut == nil {
		return false
	}
	loA, loB := p.LoOp.Input(0), p.LoOp.Input(1)
	hiA, hiB := p.InnerHi.Input(0), p.InnerHi.Input(1)

	m := newMatcher(f)
	wholeA := m.wholeOf(NewPair(loA, hiA))
	wholeB := m.wholeOf(NewPair(loB, hiB))
	if !m.ok() || wholeA == nil || wholeB == nil {
		return false
	}

	wideOp := f.NewOp(2, p.OuterHi.SeqNum().Addr)
	f.OpSetOpcode(wideOp, p.LoOp.Opcode())
	f.OpInsertAfter(wideOp, p.OuterHi)
	f.OpSetInput(wideOp, 0, wholeA)
	f.OpSetInput(wideOp, 1, wholeB)
	wideOut := f.NewUniqueOut(loOut.Size()+hiOut.Size(), wideOp)

	newLo, newHi := m.split(wideOut, loOut.Size(), hiOut.Size())
	f.TotalReplace(loOut, newLo)
	f.TotalReplace(hiOut, newHi)

	f.OpDestroy(p.LoOp)
	f.OpDestroy(p.Carry)
	f.OpDestroy(p.InnerHi)
	f.OpDestroy(p.OuterHi)
	return true
}

// ApplyLogical rewrites an adjacent same-opcode bitwise pair (AND/OR/XOR
// on lo halves, the same op on the corresponding hi halves) into a single
// wide bitwise op, split back into lo/hi SUBPIECEs of the result.
func ApplyLogical(f *ir.Funcdata, pair AdjacentPair) bool {
	switch pair.LoOp.Opcode() {
	case pcode.INT_AND, pcode.INT_OR, pcode.INT_XOR:
	default:
		return false
	}
	if pair.LoOp.Opcode() != pair.HiOp.Opcode() || pair.LoOp.NumInputs() != 2 || pair.HiOp.NumInputs() != 2 {
		return false
	}
	loOut, hiOut := pair.LoOp.Output(), pair.HiOp.Output()
	loA, loB := pair.LoOp.Input(0), pair.LoOp.Input(1)
	hiA, hiB := pair.HiOp.Input(0), pair.HiOp.Input(1)

	m := newMatcher(f)
	wholeA := m.wholeOf(NewPair(loA, hiA))
	wholeB := m.wholeOf(NewPair(loB, hiB))
	if !m.ok() || wholeA == nil || wholeB == nil {
		return false
	}

	wideOp := f.NewOp(2, pair.HiOp.SeqNum().Addr)
	f.OpSetOpcode(wideOp, pair.LoOp.Opcode())
	f.OpInsertAfter(wideOp, pair.HiOp)
	f.OpSetInput(wideOp, 0, wholeA)
	f.OpSetInput(wideOp, 1, wholeB)
	wideOut := f.NewUniqueOut(loOut.Size()+hiOut.Size(), wideOp)

	newLo, newHi := m.split(wideOut, loOut.Size(), hiOut.Size())
	f.TotalReplace(loOut, newLo)
	f.TotalReplace(hiOut, newHi)

	f.OpDestroy(pair.LoOp)
	f.OpDestroy(pair.HiOp)
	return true
}

// ApplyEqual rewrites BOOL_AND(INT_EQUAL(loA,loB), INT_EQUAL(hiA,hiB))
// into one INT_EQUAL on the materialised wholes, and its De Morgan dual
// BOOL_OR(INT_NOTEQUAL(...), INT_NOTEQUAL(...)) into one INT_NOTEQUAL.
func ApplyEqual(f *ir.Funcdata, combineOp *ir.PcodeOp) bool {
	var compare pcode.Opcode
	switch combineOp.Opcode() {
	case pcode.BOOL_AND:
		compare = pcode.INT_EQUAL
	case pcode.BOOL_OR:
		compare = pcode.INT_NOTEQUAL
	default:
		return false
	}
	if combineOp.NumInputs() != 2 {
		return false
	}
	loCmp, hiCmp := combineOp.Input(0).Def(), combineOp.Input(1).Def()
	if loCmp == nil || hiCmp == nil || loCmp.Opcode() != compare || hiCmp.Opcode() != compare {
		return false
	}
	if loCmp.NumInputs() != 2 || hiCmp.NumInputs() != 2 {
		return false
	}
	loA, loB := loCmp.Input(0), loCmp.Input(1)
	hiA, hiB := hiCmp.Input(0), hiCmp.Input(1)

	m := newMatcher(f)
	wholeA := m.wholeOf(NewPair(loA, hiA))
	wholeB := m.wholeOf(NewPair(loB, hiB))
	if !m.ok() || wholeA == nil || wholeB == nil {
		return false
	}

	newOp := f.NewOp(2, combineOp.SeqNum().Addr)
	f.OpSetOpcode(newOp, compare)
	f.OpInsertAfter(newOp, combineOp)
	f.OpSetInput(newOp, 0, wholeA)
	f.OpSetInput(newOp, 1, wholeB)
	newOut := f.NewUniqueOut(1, newOp)

	if out := combineOp.Output(); out != nil {
		f.TotalReplace(out, newOut)
	}
	f.OpDestroy(loCmp)
	f.OpDestroy(hiCmp)
	f.OpDestroy(combineOp)
	return true
}

// ApplyLessThreeWay rewrites the classic three-way-compare shape —
// BOOL_OR(hiLess, BOOL_AND(hiEqual, loLess)) — into one comparison of the
// same kind as hiLess on the materialised wholes: a value is less than
// another either because its high half already is, or because the high
// halves tie and the low half decides.
func ApplyLessThreeWay(f *ir.Funcdata, orOp *ir.PcodeOp) bool {
	if orOp.Opcode() != pcode.BOOL_OR || orOp.NumInputs() != 2 {
		return false
	}
	hiLess := orOp.Input(0).Def()
	tie := orOp.Input(1).Def()
	if hiLess == nil || tie == nil || tie.Opcode() != pcode.BOOL_AND || tie.NumInputs() != 2 {
		return false
	}
	switch hiLess.Opcode() {
	case pcode.INT_LESS, pcode.INT_LESSEQUAL, pcode.INT_SLESS, pcode.INT_SLESSEQUAL:
	default:
		return false
	}
	if hiLess.NumInputs() != 2 {
		return false
	}
	hiEq := tie.Input(0).Def()
	loLess := tie.Input(1).Def()
	if hiEq == nil || loLess == nil || hiEq.Opcode() != pcode.INT_EQUAL || loLess.Opcode() != pcode.INT_LESS {
		return false
	}
	if hiEq.NumInputs() != 2 || loLess.NumInputs() != 2 {
		return false
	}
	hiA, hiB := hiLess.Input(0), hiLess.Input(1)
	if hiEq.Input(0) != hiA || hiEq.Input(1) != hiB {
		return false
	}
	loA, loB := loLess.Input(0), loLess.Input(1)

	m := newMatcher(f)
	wholeA := m.wholeOf(NewPair(loA, hiA))
	wholeB := m.wholeOf(NewPair(loB, hiB))
	if !m.ok() || wholeA == nil || wholeB == nil {
		return false
	}

	newOp := f.NewOp(2, orOp.SeqNum().Addr)
	f.OpSetOpcode(newOp, hiLess.Opcode())
	f.OpInsertAfter(newOp, orOp)
	f.OpSetInput(newOp, 0, wholeA)
	f.OpSetInput(newOp, 1, wholeB)
	newOut := f.NewUniqueOut(1, newOp)

	if out := orOp.Output(); out != nil {
		f.TotalReplace(out, newOut)
	}
	f.OpDestroy(loLess)
	f.OpDestroy(hiEq)
	f.OpDestroy(tie)
	f.OpDestroy(hiLess)
	f.OpDestroy(orOp)
	return true
}

// ApplyPhi rewrites a pair of MULTIEQUAL ops with matching branch counts,
// one merging lo halves and the other the corresponding hi halves, into
// one MULTIEQUAL over the materialised per-branch wholes.
func ApplyPhi(f *ir.Funcdata, pair AdjacentPair) bool {
	if pair.LoOp.Opcode() != pcode.MULTIEQUAL || pair.HiOp.Opcode() != pcode.MULTIEQUAL {
		return false
	}
	n := pair.LoOp.NumInputs()
	if n == 0 || n != pair.HiOp.NumInputs() {
		return false
	}
	loOut, hiOut := pair.LoOp.Output(), pair.HiOp.Output()

	m := newMatcher(f)
	wholes := make([]*ir.Varnode, n)
	for i := 0; i < n; i++ {
		w := m.wholeOf(NewPair(pair.LoOp.Input(i), pair.HiOp.Input(i)))
		if !m.ok() || w == nil {
			return false
		}
		wholes[i] = w
	}

	wideOp := f.NewOp(n, pair.HiOp.SeqNum().Addr)
	f.OpSetOpcode(wideOp, pcode.MULTIEQUAL)
	f.OpInsertAfter(wideOp, pair.HiOp)
	f.OpSetAllInput(wideOp, wholes)
	wideOut := f.NewUniqueOut(loOut.Size()+hiOut.Size(), wideOp)

	newLo, newHi := m.split(wideOut, loOut.Size(), hiOut.Size())
	f.TotalReplace(loOut, newLo)
	f.TotalReplace(hiOut, newHi)

	f.OpDestroy(pair.LoOp)
	f.OpDestroy(pair.HiOp)
	return true
}

// ApplyCopyForce rewrites a pair of adjacent COPYs, one copying a lo
// source and the other the corresponding hi source, into a single wide
// COPY of the materialised source whole.
func ApplyCopyForce(f *ir.Funcdata, pair AdjacentPair) bool {
	if pair.LoOp.Opcode() != pcode.COPY || pair.HiOp.Opcode() != pcode.COPY {
		return false
	}
	if pair.LoOp.NumInputs() != 1 || pair.HiOp.NumInputs() != 1 {
		return false
	}
	loOut, hiOut := pair.LoOp.Output(), pair.HiOp.Output()

	m := newMatcher(f)
	wholeSrc := m.wholeOf(NewPair(pair.LoOp.Input(0), pair.HiOp.Input(0)))
	if !m.ok() || wholeSrc == nil {
		return false
	}

	wideOp := f.NewOp(1, pair.HiOp.SeqNum().Addr)
	f.OpSetOpcode(wideOp, pcode.COPY)
	f.OpInsertAfter(wideOp, pair.HiOp)
	f.OpSetInput(wideOp, 0, wholeSrc)
	wideOut := f.NewUniqueOut(loOut.Size()+hiOut.Size(), wideOp)

	newLo, newHi := m.split(wideOut, loOut.Size(), hiOut.Size())
	f.TotalReplace(loOut, newLo)
	f.TotalReplace(hiOut, newHi)

	f.OpDestroy(pair.LoOp)
	f.OpDestroy(pair.HiOp)
	return true
}
