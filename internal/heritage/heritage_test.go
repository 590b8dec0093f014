package heritage_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsgates/pcodec/internal/cfg"
	"github.com/tsgates/pcodec/internal/heritage"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

func newHeritageSpaces() (*sla.Manager, *sla.Space) {
	m := sla.NewManager()
	ram := m.AddSpace("ram", 1, 8, false, sla.SpaceProcessor)
	m.AddSpace("unique", 1, 8, false, sla.SpaceUnique)
	m.AddSpace("const", 1, 8, false, sla.SpaceConstant)
	return m, ram
}

// buildDiamond builds: 0 -> {1,2} -> 3, where block1 writes x=1, block2
// writes x=2, and block3 reads x into a COPY.
func buildDiamond(t *testing.T) (*ir.Funcdata, *sla.Space, *ir.Block) {
	t.Helper()
	spaces, ram := newHeritageSpaces()
	f := ir.NewFuncdata("diamond", spaces)

	xAddr := sla.Address{Space: ram, Offset: 0x100}

	b0 := f.NewBlock()
	b1 := f.NewBlock()
	b2 := f.NewBlock()
	b3 := f.NewBlock()
	f.AddEdge(b0, b1, ir.EdgeTrue)
	f.AddEdge(b0, b2, ir.EdgeFalse)
	f.AddEdge(b1, b3, ir.EdgeFallThrough)
	f.AddEdge(b2, b3, ir.EdgeFallThrough)

	branchOp := f.NewOp(1, xAddr)
	f.OpSetOpcode(branchOp, pcode.CBRANCH)
	f.OpInsertEnd(branchOp, b0)
	cond := f.NewConstant(1, 1)
	f.OpSetInput(branchOp, 0, cond)

	op1 := f.NewOp(1, xAddr)
	f.OpSetOpcode(op1, pcode.COPY)
	f.OpInsertEnd(op1, b1)
	c1 := f.NewConstant(4, 1)
	f.OpSetInput(op1, 0, c1)
	f.NewVarnodeOut(4, xAddr, op1)

	op2 := f.NewOp(1, xAddr)
	f.OpSetOpcode(op2, pcode.COPY)
	f.OpInsertEnd(op2, b2)
	c2 := f.NewConstant(4, 2)
	f.OpSetInput(op2, 0, c2)
	f.NewVarnodeOut(4, xAddr, op2)

	readOp := f.NewOp(1, xAddr)
	f.OpSetOpcode(readOp, pcode.COPY)
	f.OpInsertEnd(readOp, b3)
	xUse := f.NewVarnode(4, xAddr)
	f.OpSetInput(readOp, 0, xUse)
	f.NewUniqueOut(4, readOp)

	return f, ram, b3
}

func TestHeritageInsertsPhiAtJoin(t *testing.T) {
	f, ram, b3 := buildDiamond(t)
	dom := cfg.Build(f.Blocks()[0], f.Blocks())

	inserted := heritage.New(f, dom).Space(ram)
	require.Equal(t, 1, inserted)

	phi := b3.First()
	require.Equal(t, pcode.MULTIEQUAL, phi.Opcode())
	require.Equal(t, 2, phi.NumInputs())

	readOp := b3.Ops()[1]
	require.Equal(t, phi.Output(), readOp.Input(0), "join-point read must be rewritten to the phi's output")
	require.True(t, f.HasHeritaged(ram.Index()))
}

func TestDeadCodeRemovesUnreadDefinitions(t *testing.T) {
	spaces, ram := newHeritageSpaces()
	f := ir.NewFuncdata("deadtest", spaces)
	b := f.NewBlock()

	retOp := f.NewOp(0, sla.Address{Space: ram, Offset: 0})
	f.OpSetOpcode(retOp, pcode.RETURN)
	f.OpInsertEnd(retOp, b)

	deadOp := f.NewOp(2, sla.Address{Space: ram, Offset: 0x10})
	f.OpSetOpcode(deadOp, pcode.INT_ADD)
	f.OpInsertBegin(deadOp, b)
	in0 := f.NewConstant(4, 1)
	in1 := f.NewConstant(4, 2)
	f.OpSetInput(deadOp, 0, in0)
	f.OpSetInput(deadOp, 1, in1)
	f.NewUniqueOut(4, deadOp)

	removed := heritage.DeadCode(f)
	require.Equal(t, 1, removed)

	ops := b.Ops()
	require.Len(t, ops, 1)
	require.Equal(t, pcode.RETURN, ops[0].Opcode())
}

func TestDeadCodeKeepsLiveChain(t *testing.T) {
	spaces, ram := newHeritageSpaces()
	f := ir.NewFuncdata("livetest", spaces)
	b := f.NewBlock()

	addOp := f.NewOp(2, sla.Address{Space: ram, Offset: 0x10})
	f.OpSetOpcode(addOp, pcode.INT_ADD)
	f.OpInsertEnd(addOp, b)
	in0 := f.NewConstant(4, 1)
	in1 := f.NewConstant(4, 2)
	f.OpSetInput(addOp, 0, in0)
	f.OpSetInput(addOp, 1, in1)
	sum := f.NewUniqueOut(4, addOp)

	storeOp := f.NewOp(3, sla.Address{Space: ram, Offset: 0x14})
	f.OpSetOpcode(storeOp, pcode.STORE)
	f.OpInsertEnd(storeOp, b)
	spaceConst := f.NewConstant(8, 0)
	addrConst := f.NewConstant(8, 0x2000)
	f.OpSetInput(storeOp, 0, spaceConst)
	f.OpSetInput(storeOp, 1, addrConst)
	f.OpSetInput(storeOp, 2, sum)

	removed := heritage.DeadCode(f)
	require.Equal(t, 0, removed)
	require.Len(t, b.Ops(), 2)
}

func TestNonZeroMaskNarrowsThroughAnd(t *testing.T) {
	spaces, ram := newHeritageSpaces()
	f := ir.NewFuncdata("nz", spaces)
	b := f.NewBlock()

	op := f.NewOp(2, sla.Address{Space: ram, Offset: 0x20})
	f.OpSetOpcode(op, pcode.INT_AND)
	f.OpInsertEnd(op, b)
	in0 := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x100})
	mask := f.NewConstant(4, 0xff)
	f.OpSetInput(op, 0, in0)
	f.OpSetInput(op, 1, mask)
	out := f.NewUniqueOut(4, op)

	heritage.NonZeroMask(f)
	require.Equal(t, uint64(0xff), out.NonZeroMask())
}

func TestConditionalConstReplacesDominatedUse(t *testing.T) {
	spaces, ram := newHeritageSpaces()
	f := ir.NewFuncdata("cc", spaces)
	xAddr := sla.Address{Space: ram, Offset: 0x100}

	b0 := f.NewBlock()
	b1 := f.NewBlock()
	b2 := f.NewBlock()
	f.AddEdge(b0, b1, ir.EdgeTrue)
	f.AddEdge(b0, b2, ir.EdgeFalse)

	x := f.NewVarnode(4, xAddr)

	cmpOp := f.NewOp(2, xAddr)
	f.OpSetOpcode(cmpOp, pcode.INT_EQUAL)
	f.OpInsertEnd(cmpOp, b0)
	five := f.NewConstant(4, 5)
	f.OpSetInput(cmpOp, 0, x)
	f.OpSetInput(cmpOp, 1, five)
	cmpOut := f.NewUniqueOut(1, cmpOp)

	branchOp := f.NewOp(1, xAddr)
	f.OpSetOpcode(branchOp, pcode.CBRANCH)
	f.OpInsertEnd(branchOp, b0)
	f.OpSetInput(branchOp, 0, cmpOut)

	useOp := f.NewOp(1, xAddr)
	f.OpSetOpcode(useOp, pcode.COPY)
	f.OpInsertEnd(useOp, b1)
	f.OpSetInput(useOp, 0, x)
	f.NewUniqueOut(4, useOp)

	dom := cfg.Build(b0, f.Blocks())
	f.AdvanceHeritagePass(ram.Index())

	count := heritage.ConditionalConst(f, dom)
	require.Equal(t, 1, count)
	require.True(t, useOp.Input(0).IsConstant())
	val, ok := useOp.Input(0).ConstantValue()
	require.True(t, ok)
	require.Equal(t, uint64(5), val)
}
