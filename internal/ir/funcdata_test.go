package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

func newTestFuncdata(t *testing.T) (*ir.Funcdata, *sla.Manager, *sla.Space) {
	t.Helper()
	m := sla.NewManager()
	ram := m.AddSpace("ram", 1, 8, false, sla.SpaceProcessor)
	m.AddSpace("unique", 1, 8, false, sla.SpaceUnique)
	m.AddSpace("const", 1, 8, false, sla.SpaceConstant)
	f := ir.NewFuncdata("test", m)
	return f, m, ram
}

func TestOpSetInputOutputBidirectional(t *testing.T) {
	f, _, ram := newTestFuncdata(t)

	b := f.NewBlock()
	op := f.NewOp(2, sla.Address{Space: ram, Offset: 0x1000})
	f.OpSetOpcode(op, pcode.INT_ADD)
	f.OpInsertEnd(op, b)

	in0 := f.NewConstant(4, 1)
	in1 := f.NewConstant(4, 2)
	f.OpSetInput(op, 0, in0)
	f.OpSetInput(op, 1, in1)

	require.Equal(t, in0, op.Input(0))
	require.Equal(t, in1, op.Input(1))
	require.Contains(t, in0.Descendants(), op)
	require.Contains(t, in1.Descendants(), op)

	out := f.NewUniqueOut(4, op)
	require.Equal(t, op, out.Def())
	require.True(t, out.IsWritten())
}

func TestOpDestroyClearsLinksAndQueuesForSweep(t *testing.T) {
	f, _, ram := newTestFuncdata(t)
	b := f.NewBlock()
	op := f.NewOp(1, sla.Address{Space: ram, Offset: 0x1000})
	f.OpSetOpcode(op, pcode.COPY)
	f.OpInsertEnd(op, b)

	in := f.NewConstant(4, 7)
	f.OpSetInput(op, 0, in)
	out := f.NewUniqueOut(4, op)

	f.OpDestroy(op)

	require.True(t, op.IsDead())
	require.Empty(t, in.Descendants())
	require.False(t, out.IsWritten())
	require.Nil(t, out.Def())
	require.Empty(t, b.Ops())

	n := f.Sweep()
	require.Equal(t, 1, n)
	require.NotContains(t, f.AllOps(), op)
}

func TestTotalReplaceRewritesAllDescendants(t *testing.T) {
	f, _, ram := newTestFuncdata(t)
	b := f.NewBlock()

	old := f.NewConstant(4, 5)
	replacement := f.NewConstant(4, 6)

	op1 := f.NewOp(1, sla.Address{Space: ram, Offset: 0x10})
	f.OpSetOpcode(op1, pcode.COPY)
	f.OpInsertEnd(op1, b)
	f.OpSetInput(op1, 0, old)

	op2 := f.NewOp(2, sla.Address{Space: ram, Offset: 0x14})
	f.OpSetOpcode(op2, pcode.INT_ADD)
	f.OpInsertEnd(op2, b)
	f.OpSetInput(op2, 0, old)
	f.OpSetInput(op2, 1, old)

	f.TotalReplace(old, replacement)

	require.Equal(t, replacement, op1.Input(0))
	require.Equal(t, replacement, op2.Input(0))
	require.Equal(t, replacement, op2.Input(1))
	require.Empty(t, old.Descendants())
	require.Len(t, replacement.Descendants(), 2)
}

func TestBlockInsertionOrderAndSeqNum(t *testing.T) {
	f, _, ram := newTestFuncdata(t)
	b := f.NewBlock()

	addr := sla.Address{Space: ram, Offset: 0x2000}
	op1 := f.NewOp(0, addr)
	f.OpSetOpcode(op1, pcode.COPY)
	f.OpInsertEnd(op1, b)

	op2 := f.NewOp(0, addr)
	f.OpSetOpcode(op2, pcode.COPY)
	f.OpInsertEnd(op2, b)

	op0 := f.NewOp(0, addr)
	f.OpSetOpcode(op0, pcode.COPY)
	f.OpInsertBegin(op0, b)

	ops := b.Ops()
	require.Equal(t, []*ir.PcodeOp{op0, op1, op2}, ops)
	require.True(t, op1.SeqNum().Less(op2.SeqNum()))
}

func TestSpliceBlockBasicPreservesEdgeKind(t *testing.T) {
	f, _, _ := newTestFuncdata(t)
	b1 := f.NewBlock()
	b2 := f.NewBlock()
	f.AddEdge(b1, b2, ir.EdgeTrue)

	nb := f.SpliceBlockBasic(b1)

	out1 := b1.Out()
	require.Len(t, out1, 1)
	require.Equal(t, nb, out1[0].To)
	require.Equal(t, ir.EdgeTrue, out1[0].Kind)

	out2 := nb.Out()
	require.Len(t, out2, 1)
	require.Equal(t, b2, out2[0].To)
	require.Equal(t, ir.EdgeFallThrough, out2[0].Kind)
	require.Contains(t, b2.In(), nb)
}

func TestSetInputVarnodeMovesOutOfFreeList(t *testing.T) {
	f, _, ram := newTestFuncdata(t)
	v := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x8})
	f.SetInputVarnode(v)

	require.True(t, v.IsInput())
	require.Contains(t, f.Inputs(), v)
}

func TestBeginLocSizeAddrExactMatch(t *testing.T) {
	f, _, ram := newTestFuncdata(t)
	addr := sla.Address{Space: ram, Offset: 0x30}
	v := f.NewVarnode(4, addr)

	found, ok := f.BeginLocSizeAddr(4, addr)
	require.True(t, ok)
	require.Equal(t, v, found)

	_, ok = f.BeginLocSizeAddr(8, addr)
	require.False(t, ok)
}

func TestOpFlipConditionTogglesFlag(t *testing.T) {
	f, _, ram := newTestFuncdata(t)
	b := f.NewBlock()
	op := f.NewOp(2, sla.Address{Space: ram, Offset: 0x40})
	f.OpSetOpcode(op, pcode.CBRANCH)
	f.OpInsertEnd(op, b)

	require.False(t, op.Flags().Has(ir.OBooleanFlip))
	f.OpFlipCondition(op)
	require.True(t, op.Flags().Has(ir.OBooleanFlip))
	f.OpFlipCondition(op)
	require.False(t, op.Flags().Has(ir.OBooleanFlip))
}
