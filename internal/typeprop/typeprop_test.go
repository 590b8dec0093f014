package typeprop_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsgates/pcodec/internal/datatype"
	"github.com/tsgates/pcodec/internal/diag"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
	"github.com/tsgates/pcodec/internal/typeprop"
)

func newSpaces() (*sla.Manager, *sla.Space) {
	m := sla.NewManager()
	ram := m.AddSpace("ram", 1, 8, false, sla.SpaceProcessor)
	m.AddSpace("unique", 1, 8, false, sla.SpaceUnique)
	m.AddSpace("const", 1, 8, false, sla.SpaceConstant)
	return m, ram
}

func TestComputeLocalGivesSignedIntForSLESS(t *testing.T) {
	spaces, _ := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	x := f.NewUnique(4)
	op := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(op, pcode.INT_SLESS)
	f.OpInsertEnd(op, b)
	f.OpSetInput(op, 0, x)
	f.OpSetInput(op, 1, f.NewConstant(4, 9))
	f.NewUniqueOut(1, op)

	typeprop.ComputeLocal(f)

	xt, ok := x.LocalType().(datatype.Datatype)
	require.True(t, ok)
	require.Equal(t, datatype.KindInt, xt.Kind())
}

func TestComputeLocalGivesBoolForCompareOutput(t *testing.T) {
	spaces, _ := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	x := f.NewUnique(4)
	op := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(op, pcode.INT_EQUAL)
	f.OpInsertEnd(op, b)
	f.OpSetInput(op, 0, x)
	f.OpSetInput(op, 1, f.NewConstant(4, 0))
	out := f.NewUniqueOut(1, op)

	typeprop.ComputeLocal(f)

	ot, ok := out.LocalType().(datatype.Datatype)
	require.True(t, ok)
	require.Equal(t, datatype.KindBool, ot.Kind())
}

func TestPropagateWalksPointerThroughPtradd(t *testing.T) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()
	_ = ram

	inner := datatype.NewStruct("point", []datatype.Field{
		{Name: "x", Offset: 0, Type: datatype.NewInt(4)},
		{Name: "y", Offset: 4, Type: datatype.NewInt(4)},
	}, 8)

	p := f.NewUnique(8)
	p.SetLocalType(datatype.NewPointer(inner, 8))

	op := f.NewOp(3, sla.Address{})
	f.OpSetOpcode(op, pcode.PTRADD)
	f.OpInsertEnd(op, b)
	f.OpSetInput(op, 0, p)
	f.OpSetInput(op, 1, f.NewConstant(4, 1)) // index 1
	f.OpSetInput(op, 2, f.NewConstant(4, 4)) // element size 4 -> offset 4
	q := f.NewUniqueOut(8, op)
	q.SetLocalType(datatype.NewUnknown(8))

	var el diag.ErrorList
	typeprop.Propagate(f, 4, &el)

	qt, ok := q.LocalType().(*datatype.Pointer)
	require.True(t, ok)
	require.Equal(t, datatype.KindInt, qt.Elem.Kind())
	require.True(t, el.Empty())
}

func TestPropagateRecordsRecoveryExceededOnNonConvergence(t *testing.T) {
	spaces, _ := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	// A chain of 6 COPYs v0 -> v1 -> ... -> v6, typed Unknown except for
	// v6 which starts out Struct. Propagate only walks one hop per sweep
	// (each varnode is visited once per iteration, in creation order, so a
	// backward push from v(i) to v(i-1) can't cascade further in the same
	// sweep), so a budget far short of the chain length must fail to reach
	// v0 and report RecoveryExceeded.
	vars := make([]*ir.Varnode, 7)
	vars[0] = f.NewUnique(4)
	vars[0].SetLocalType(datatype.NewUnknown(4))
	for i := 1; i < len(vars); i++ {
		op := f.NewOp(1, sla.Address{})
		f.OpSetOpcode(op, pcode.COPY)
		f.OpInsertEnd(op, b)
		f.OpSetInput(op, 0, vars[i-1])
		vars[i] = f.NewUniqueOut(4, op)
		vars[i].SetLocalType(datatype.NewUnknown(4))
	}
	vars[6].SetLocalType(datatype.NewStruct("s", nil, 4))

	var el diag.ErrorList
	typeprop.Propagate(f, 2, &el)
	require.False(t, el.Empty())
	require.Equal(t, diag.RecoveryExceeded, el.Items()[0].Kind)

	typ, ok := vars[0].LocalType().(datatype.Datatype)
	require.True(t, ok)
	require.NotEqual(t, datatype.KindStruct, typ.Kind(), "two sweeps must not have reached the far end of a six-hop chain")
}

func TestResolveUnionsPicksNarrowerAlternativeForSubpieceAccess(t *testing.T) {
	spaces, _ := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	u := datatype.NewUnion("u", []datatype.Field{
		{Name: "asInt", Offset: 0, Type: datatype.NewInt(4)},
		{Name: "asShort", Offset: 0, Type: datatype.NewInt(2)},
	}, 4)
	w := f.NewUnique(4)
	w.SetLocalType(u)

	subOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(subOp, pcode.SUBPIECE)
	f.OpInsertEnd(subOp, b)
	f.OpSetInput(subOp, 0, w)
	f.OpSetInput(subOp, 1, f.NewConstant(4, 0))
	f.NewUniqueOut(2, subOp)

	resolved := typeprop.ResolveUnions(f)
	field, ok := resolved[typeprop.AccessKey{Op: subOp, Slot: 0}]
	require.True(t, ok)
	require.Equal(t, "asShort", field.Name)
}
