package cast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsgates/pcodec/internal/cast"
	"github.com/tsgates/pcodec/internal/cfg"
	"github.com/tsgates/pcodec/internal/datatype"
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

func TestActionSetCastsInsertsCastWhenSignednessRequirementMismatches(t *testing.T) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	a := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x10})
	c := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x20})
	f.SetInputVarnode(a)
	f.SetInputVarnode(c)
	a.SetLocalType(datatype.NewUnknown(4))
	c.SetLocalType(datatype.NewUnknown(4))

	op := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(op, pcode.INT_SDIV)
	f.OpInsertEnd(op, b)
	f.OpSetInput(op, 0, a)
	f.OpSetInput(op, 1, c)
	f.NewUniqueOut(4, op)

	dom := cfg.Build(b, f.Blocks())

	inserted := cast.ActionSetCasts(f, dom, nil, 8)
	require.Equal(t, 2, inserted)

	in0, in1 := op.Input(0), op.Input(1)
	require.Equal(t, pcode.CAST, in0.Def().Opcode())
	require.Equal(t, pcode.CAST, in1.Def().Opcode())
	require.Equal(t, datatype.KindInt, in0.LocalType().(datatype.Datatype).Kind())
	require.Equal(t, datatype.KindInt, in1.LocalType().(datatype.Datatype).Kind())
}

func TestActionSetCastsIsIdempotent(t *testing.T) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	a := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x10})
	c := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x20})
	f.SetInputVarnode(a)
	f.SetInputVarnode(c)
	a.SetLocalType(datatype.NewUnknown(4))
	c.SetLocalType(datatype.NewUnknown(4))

	op := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(op, pcode.INT_SDIV)
	f.OpInsertEnd(op, b)
	f.OpSetInput(op, 0, a)
	f.OpSetInput(op, 1, c)
	f.NewUniqueOut(4, op)

	dom := cfg.Build(b, f.Blocks())
	first := cast.ActionSetCasts(f, dom, nil, 8)
	require.Equal(t, 2, first)

	dom2 := cfg.Build(b, f.Blocks())
	second := cast.ActionSetCasts(f, dom2, nil, 8)
	require.Equal(t, 0, second)
}

func TestActionSetCastsSkipsOpcodesWithNoIntrinsicRequirement(t *testing.T) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	a := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x10})
	c := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x20})
	f.SetInputVarnode(a)
	f.SetInputVarnode(c)

	op := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(op, pcode.INT_ADD)
	f.OpInsertEnd(op, b)
	f.OpSetInput(op, 0, a)
	f.OpSetInput(op, 1, c)
	f.NewUniqueOut(4, op)

	dom := cfg.Build(b, f.Blocks())
	inserted := cast.ActionSetCasts(f, dom, nil, 8)
	require.Equal(t, 0, inserted)
	require.Same(t, a, op.Input(0))
	require.Same(t, c, op.Input(1))
}

func TestActionSetCastsInsertsPtrsubForResolvedUnionAccess(t *testing.T) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	u := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x10})
	f.SetInputVarnode(u)
	field := datatype.Field{Name: "asFloat", Offset: 0, Type: datatype.NewFloat(4)}
	u.SetLocalType(datatype.NewUnion("U", []datatype.Field{
		{Name: "asInt", Offset: 0, Type: datatype.NewInt(4)},
		field,
	}, 4))

	reader := f.NewOp(1, sla.Address{})
	f.OpSetOpcode(reader, pcode.COPY)
	f.OpInsertEnd(reader, b)
	f.OpSetInput(reader, 0, u)
	f.NewUniqueOut(4, reader)

	resolved := cast.ResolvedUnions{
		{Op: reader, Slot: 0}: field,
	}

	dom := cfg.Build(b, f.Blocks())
	inserted := cast.ActionSetCasts(f, dom, resolved, 8)
	require.Equal(t, 1, inserted)

	newIn := reader.Input(0)
	require.Equal(t, pcode.PTRSUB, newIn.Def().Opcode())
	require.True(t, newIn.Def().Flags().Has(ir.OSpecialPrint))
	require.Equal(t, datatype.KindFloat, newIn.LocalType().(datatype.Datatype).Kind())
}

func TestActionSetCastsFollowsDominatorOrderAcrossBlocks(t *testing.T) {
	spaces, ram := newSpaces()
	f := ir.NewFuncdata("f", spaces)
	entry := f.NewBlock()
	succ := f.NewBlock()
	f.AddEdge(entry, succ, ir.EdgeFallThrough)

	a := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x10})
	c := f.NewVarnode(4, sla.Address{Space: ram, Offset: 0x20})
	f.SetInputVarnode(a)
	f.SetInputVarnode(c)

	op := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(op, pcode.INT_SLESS)
	f.OpInsertEnd(op, succ)
	f.OpSetInput(op, 0, a)
	f.OpSetInput(op, 1, c)
	f.NewUniqueOut(1, op)

	dom := cfg.Build(entry, f.Blocks())
	inserted := cast.ActionSetCasts(f, dom, nil, 8)
	require.Equal(t, 2, inserted)
	require.Equal(t, pcode.CAST, op.Input(0).Def().Opcode())
}

// confirms ResolvedUnions really is the same map type typeprop.ResolveUnions
// produces, with no adapter needed between the two packages.
func TestResolvedUnionsTypeMatchesTypepropAccessKey(t *testing.T) {
	var _ cast.ResolvedUnions = typeprop.ResolveUnions(ir.NewFuncdata("f", sla.NewManager()))
}
