package split_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
	"github.com/tsgates/pcodec/internal/split"
)

func newSpaces() (*sla.Manager, *sla.Space) {
	m := sla.NewManager()
	ram := m.AddSpace("ram", 1, 8, false, sla.SpaceProcessor)
	m.AddSpace("unique", 1, 8, false, sla.SpaceUnique)
	m.AddSpace("const", 1, 8, false, sla.SpaceConstant)
	return m, ram
}

// buildCarryChain wires up lo = INT_ADD lo1, lo2; c = INT_CARRY lo1, lo2;
// tmp = INT_ZEXT c; hi = INT_ADD hi1, hi2; hiOut = INT_ADD hi, tmp --
// the double-precision add shape §4.10 names explicitly.
func buildCarryChain(t *testing.T) (*ir.Funcdata, *ir.Varnode, *ir.Varnode) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	lo1 := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x10})
	lo2 := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x20})
	hi1 := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x14})
	hi2 := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x24})
	f.SetInputVarnode(lo1)
	f.SetInputVarnode(lo2)
	f.SetInputVarnode(hi1)
	f.SetInputVarnode(hi2)

	loOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(loOp, pcode.INT_ADD)
	f.OpInsertEnd(loOp, b)
	f.OpSetInput(loOp, 0, lo1)
	f.OpSetInput(loOp, 1, lo2)
	loOut := f.NewUniqueOut(4, loOp)

	carryOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(carryOp, pcode.INT_CARRY)
	f.OpInsertEnd(carryOp, b)
	f.OpSetInput(carryOp, 0, lo1)
	f.OpSetInput(carryOp, 1, lo2)
	carryOut := f.NewUniqueOut(1, carryOp)

	zextOp := f.NewOp(1, sla.Address{})
	f.OpSetOpcode(zextOp, pcode.INT_ZEXT)
	f.OpInsertEnd(zextOp, b)
	f.OpSetInput(zextOp, 0, carryOut)
	tmp := f.NewUniqueOut(4, zextOp)

	innerOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(innerOp, pcode.INT_ADD)
	f.OpInsertEnd(innerOp, b)
	f.OpSetInput(innerOp, 0, hi1)
	f.OpSetInput(innerOp, 1, hi2)
	innerOut := f.NewUniqueOut(4, innerOp)

	outerOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(outerOp, pcode.INT_ADD)
	f.OpInsertEnd(outerOp, b)
	f.OpSetInput(outerOp, 0, innerOut)
	f.OpSetInput(outerOp, 1, tmp)
	hiOut := f.NewUniqueOut(4, outerOp)

	return f, loOut, hiOut
}

func TestFindCarryPairsDiscoversDoublePrecisionAdd(t *testing.T) {
	f, _, _ := buildCarryChain(t)
	pairs := split.FindCarryPairs(f)
	require.Len(t, pairs, 1)
	require.Equal(t, pcode.INT_ADD, pairs[0].LoOp.Opcode())
	require.Equal(t, pcode.INT_CARRY, pairs[0].Carry.Opcode())
}

func TestApplyAddSubCollapsesCarryChainToWideAdd(t *testing.T) {
	f, loOut, hiOut := buildCarryChain(t)

	// Give loOut/hiOut real consumers so we can observe, after the
	// rewrite retargets them, what they now point at -- loOut/hiOut
	// themselves are destroyed along with the old half-width ops.
	useLo := f.NewOp(1, sla.Address{})
	f.OpSetOpcode(useLo, pcode.COPY)
	f.OpInsertEnd(useLo, f.Blocks()[0])
	f.OpSetInput(useLo, 0, loOut)

	useHi := f.NewOp(1, sla.Address{})
	f.OpSetOpcode(useHi, pcode.COPY)
	f.OpInsertEnd(useHi, f.Blocks()[0])
	f.OpSetInput(useHi, 0, hiOut)

	pairs := split.FindCarryPairs(f)
	require.Len(t, pairs, 1)

	changed := split.ApplyAddSub(f, pairs[0])
	require.True(t, changed)

	newLo, newHi := useLo.Input(0), useHi.Input(0)
	require.Equal(t, pcode.SUBPIECE, newLo.Def().Opcode())
	require.Equal(t, pcode.SUBPIECE, newHi.Def().Opcode())

	wide := newLo.Def().Input(0)
	require.Same(t, wide, newHi.Def().Input(0))
	require.Equal(t, pcode.INT_ADD, wide.Def().Opcode())
	require.Equal(t, 8, wide.Size())
}

func TestApplyLogicalCollapsesAdjacentAndPair(t *testing.T) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	loA := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x10})
	loB := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x20})
	hiA := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x14})
	hiB := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x24})
	f.SetInputVarnode(loA)
	f.SetInputVarnode(loB)
	f.SetInputVarnode(hiA)
	f.SetInputVarnode(hiB)

	loOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(loOp, pcode.INT_AND)
	f.OpInsertEnd(loOp, b)
	f.OpSetInput(loOp, 0, loA)
	f.OpSetInput(loOp, 1, loB)
	loOut := f.NewVarnodeOut(4, sla.Address{Space: ram, Offset: 0x30}, loOp)

	hiOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(hiOp, pcode.INT_AND)
	f.OpInsertEnd(hiOp, b)
	f.OpSetInput(hiOp, 0, hiA)
	f.OpSetInput(hiOp, 1, hiB)
	f.NewVarnodeOut(4, sla.Address{Space: ram, Offset: 0x34}, hiOp)

	useLo := f.NewOp(1, sla.Address{})
	f.OpSetOpcode(useLo, pcode.COPY)
	f.OpInsertEnd(useLo, b)
	f.OpSetInput(useLo, 0, loOut)

	pairs := split.FindAdjacentOutputs(f, pcode.INT_AND)
	require.Len(t, pairs, 1)
	require.Same(t, loOp, pairs[0].LoOp)

	changed := split.ApplyLogical(f, pairs[0])
	require.True(t, changed)

	newLo := useLo.Input(0)
	require.Equal(t, pcode.SUBPIECE, newLo.Def().Opcode())
	wide := newLo.Def().Input(0)
	require.Equal(t, pcode.INT_AND, wide.Def().Opcode())
	require.Equal(t, 8, wide.Size())
}

func TestApplyEqualCollapsesBoolAndOfHalfCompares(t *testing.T) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	loA := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x10})
	loB := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x20})
	hiA := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x14})
	hiB := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x24})
	f.SetInputVarnode(loA)
	f.SetInputVarnode(loB)
	f.SetInputVarnode(hiA)
	f.SetInputVarnode(hiB)

	loCmp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(loCmp, pcode.INT_EQUAL)
	f.OpInsertEnd(loCmp, b)
	f.OpSetInput(loCmp, 0, loA)
	f.OpSetInput(loCmp, 1, loB)
	loCmpOut := f.NewUniqueOut(1, loCmp)

	hiCmp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(hiCmp, pcode.INT_EQUAL)
	f.OpInsertEnd(hiCmp, b)
	f.OpSetInput(hiCmp, 0, hiA)
	f.OpSetInput(hiCmp, 1, hiB)
	hiCmpOut := f.NewUniqueOut(1, hiCmp)

	andOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(andOp, pcode.BOOL_AND)
	f.OpInsertEnd(andOp, b)
	f.OpSetInput(andOp, 0, loCmpOut)
	f.OpSetInput(andOp, 1, hiCmpOut)
	f.NewUniqueOut(1, andOp)

	changed := split.ApplyEqual(f, andOp)
	require.True(t, changed)

	var wideEqual *ir.PcodeOp
	for _, op := range f.LiveOps() {
		if op.Opcode() == pcode.INT_EQUAL {
			wideEqual = op
		}
	}
	require.NotNil(t, wideEqual)
	require.Equal(t, 8, wideEqual.Input(0).Size())
}
