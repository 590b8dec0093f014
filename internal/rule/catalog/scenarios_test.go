package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsgates/pcodec/internal/heritage"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/rule"
	"github.com/tsgates/pcodec/internal/rule/catalog"
	"github.com/tsgates/pcodec/internal/sla"
)

// TestScenarioA_SingleAddCollapse reproduces §8 scenario A: two COPYs of
// literals feeding an INT_ADD collapse to a single constant varnode, with
// both COPYs swept away.
func TestScenarioA_SingleAddCollapse(t *testing.T) {
	spaces, ram := newCatalogSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	copy0 := f.NewOp(1, sla.Address{Space: ram, Offset: 0})
	f.OpSetOpcode(copy0, pcode.COPY)
	f.OpInsertEnd(copy0, b)
	f.OpSetInput(copy0, 0, f.NewConstant(4, 5))
	t0 := f.NewUniqueOut(4, copy0)

	copy1 := f.NewOp(1, sla.Address{Space: ram, Offset: 4})
	f.OpSetOpcode(copy1, pcode.COPY)
	f.OpInsertEnd(copy1, b)
	f.OpSetInput(copy1, 0, f.NewConstant(4, 7))
	t1 := f.NewUniqueOut(4, copy1)

	addOp := f.NewOp(2, sla.Address{Space: ram, Offset: 8})
	f.OpSetOpcode(addOp, pcode.INT_ADD)
	f.OpInsertEnd(addOp, b)
	f.OpSetInput(addOp, 0, t0)
	f.OpSetInput(addOp, 1, t1)
	f.NewUniqueOut(4, addOp)

	pool := rule.NewActionPool(nil)
	catalog.RegisterAll(pool)

	_, err := pool.Run(f)
	require.NoError(t, err)

	require.Empty(t, f.LiveOps(), "both COPYs and the folded INT_ADD should all be dead")

	foundTwelve := false
	for _, vn := range f.AllVarnodes() {
		if val, ok := vn.ConstantValue(); ok && val == 0xC {
			foundTwelve = true
			break
		}
	}
	require.True(t, foundTwelve, "the collapsed sum should exist as a constant-defining varnode")
}

// TestScenarioB_HumptyDumpty reproduces §8 scenario B.
func TestScenarioB_HumptyDumpty(t *testing.T) {
	spaces, _ := newCatalogSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()
	w := f.NewUnique(8)

	subHi := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(subHi, pcode.SUBPIECE)
	f.OpInsertEnd(subHi, b)
	f.OpSetInput(subHi, 0, w)
	f.OpSetInput(subHi, 1, f.NewConstant(4, 4))
	h := f.NewUniqueOut(4, subHi)

	subLo := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(subLo, pcode.SUBPIECE)
	f.OpInsertEnd(subLo, b)
	f.OpSetInput(subLo, 0, w)
	f.OpSetInput(subLo, 1, f.NewConstant(4, 0))
	l := f.NewUniqueOut(4, subLo)

	pieceOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(pieceOp, pcode.PIECE)
	f.OpInsertEnd(pieceOp, b)
	f.OpSetInput(pieceOp, 0, h)
	f.OpSetInput(pieceOp, 1, l)
	f.NewUniqueOut(8, pieceOp)

	changed, err := catalog.RuleHumptyDumpty{}.ApplyOp(f, pieceOp)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, pcode.COPY, pieceOp.Opcode())
	require.Equal(t, 1, pieceOp.NumInputs())
	require.Equal(t, w, pieceOp.Input(0))
}

// pointerType is a minimal stand-in for internal/datatype's pointer type,
// satisfying catalog.PointerType structurally.
type pointerType struct{ elemSize int }

func (p pointerType) ElementSize() int { return p.elemSize }

// TestScenarioC_PtrArithRecognition reproduces §8 scenario C.
func TestScenarioC_PtrArithRecognition(t *testing.T) {
	spaces, _ := newCatalogSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	p := f.NewUnique(8)
	p.SetLocalType(pointerType{elemSize: 16})

	op := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(op, pcode.INT_ADD)
	f.OpInsertEnd(op, b)
	f.OpSetInput(op, 0, p)
	f.OpSetInput(op, 1, f.NewConstant(8, 32))
	q := f.NewUniqueOut(8, op)

	changed, err := catalog.RulePtrArith{}.ApplyOp(f, op)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, pcode.PTRADD, op.Opcode())
	idx, ok := op.Input(1).ConstantValue()
	require.True(t, ok)
	require.Equal(t, uint64(2), idx)
	elemSize, ok := op.Input(2).ConstantValue()
	require.True(t, ok)
	require.Equal(t, uint64(16), elemSize)
	pt, ok := q.LocalType().(catalog.PointerType)
	require.True(t, ok)
	require.Equal(t, 16, pt.ElementSize())
}

// TestScenarioD_IndirectCallResolution reproduces §8 scenario D.
func TestScenarioD_IndirectCallResolution(t *testing.T) {
	spaces, ram := newCatalogSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	funcAddr := sla.Address{Space: ram, Offset: 0x4000}
	funcMain := f.NewVarnode(8, funcAddr)
	funcMain.SetFlag(ir.VPersistent)

	copyOp := f.NewOp(1, sla.Address{})
	f.OpSetOpcode(copyOp, pcode.COPY)
	f.OpInsertEnd(copyOp, b)
	f.OpSetInput(copyOp, 0, funcMain)
	fp := f.NewUniqueOut(8, copyOp)

	callOp := f.NewOp(3, sla.Address{})
	f.OpSetOpcode(callOp, pcode.CALLIND)
	f.OpInsertEnd(callOp, b)
	f.OpSetInput(callOp, 0, fp)
	f.OpSetInput(callOp, 1, f.NewUnique(4))
	f.OpSetInput(callOp, 2, f.NewUnique(4))
	f.NewUniqueOut(4, callOp)

	r := catalog.NewRuleCallIndirectResolve()
	r.Resolver.(*catalog.FunctionRegistry).Bind(funcAddr, "func_main")

	changed, err := r.ApplyOp(f, callOp)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, pcode.CALL, callOp.Opcode())
	require.Equal(t, funcMain, callOp.Input(0))
}

// TestScenarioE_DoublePrecisionAddition reproduces §8 scenario E.
func TestScenarioE_DoublePrecisionAddition(t *testing.T) {
	spaces, _ := newCatalogSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()

	lo1, lo2 := f.NewUnique(4), f.NewUnique(4)
	hi1, hi2 := f.NewUnique(4), f.NewUnique(4)
	lo1.SetFlag(ir.VPrecisionLo)
	lo2.SetFlag(ir.VPrecisionLo)
	hi1.SetFlag(ir.VPrecisionHi)
	hi2.SetFlag(ir.VPrecisionHi)

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
	c := f.NewUniqueOut(1, carryOp)

	zextOp := f.NewOp(1, sla.Address{})
	f.OpSetOpcode(zextOp, pcode.INT_ZEXT)
	f.OpInsertEnd(zextOp, b)
	f.OpSetInput(zextOp, 0, c)
	tmp := f.NewUniqueOut(4, zextOp)

	hiAddOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(hiAddOp, pcode.INT_ADD)
	f.OpInsertEnd(hiAddOp, b)
	f.OpSetInput(hiAddOp, 0, hi1)
	f.OpSetInput(hiAddOp, 1, hi2)
	hiSum := f.NewUniqueOut(4, hiAddOp)

	hiFinalOp := f.NewOp(2, sla.Address{})
	f.OpSetOpcode(hiFinalOp, pcode.INT_ADD)
	f.OpInsertEnd(hiFinalOp, b)
	f.OpSetInput(hiFinalOp, 0, hiSum)
	f.OpSetInput(hiFinalOp, 1, tmp)
	hiOut := f.NewUniqueOut(4, hiFinalOp)

	r := catalog.RuleDoublePrecisionAdd{Pairs: map[*ir.Varnode]*ir.Varnode{
		lo1: hi1,
		lo2: hi2,
	}}

	changed, err := r.ApplyOp(f, carryOp)
	require.NoError(t, err)
	require.True(t, changed)

	require.NotNil(t, loOut.Def())
	require.Equal(t, pcode.SUBPIECE, loOut.Def().Opcode())
	require.NotNil(t, hiOut.Def())
	require.Equal(t, pcode.SUBPIECE, hiOut.Def().Opcode())
	require.Equal(t, loOut.Def().Input(0), hiOut.Def().Input(0), "lo/hi must be rebuilt from the same whole")
	whole := loOut.Def().Input(0)
	require.NotNil(t, whole.Def())
	require.Equal(t, pcode.INT_ADD, whole.Def().Opcode())
	require.Equal(t, 8, whole.Size())
}

// TestScenarioF_DeadCodeAfterLivePath reproduces §8 scenario F: this is
// internal/heritage's ActionDeadCode, exercised here to document it as
// part of the same six-scenario contract the rest of this file covers.
func TestScenarioF_DeadCodeAfterLivePath(t *testing.T) {
	spaces, ram := newCatalogSpaces()
	f := ir.NewFuncdata("f", spaces)
	b := f.NewBlock()
	x := f.NewUnique(4)

	aOp := f.NewOp(2, sla.Address{Space: ram, Offset: 0})
	f.OpSetOpcode(aOp, pcode.INT_ADD)
	f.OpInsertEnd(aOp, b)
	f.OpSetInput(aOp, 0, x)
	f.OpSetInput(aOp, 1, f.NewConstant(4, 1))
	a := f.NewUniqueOut(4, aOp)

	bOp := f.NewOp(2, sla.Address{Space: ram, Offset: 4})
	f.OpSetOpcode(bOp, pcode.INT_ADD)
	f.OpInsertEnd(bOp, b)
	f.OpSetInput(bOp, 0, a)
	f.OpSetInput(bOp, 1, f.NewConstant(4, 1))
	f.NewUniqueOut(4, bOp)

	retOp := f.NewOp(1, sla.Address{Space: ram, Offset: 8})
	f.OpSetOpcode(retOp, pcode.RETURN)
	f.OpInsertEnd(retOp, b)
	f.OpSetInput(retOp, 0, f.NewConstant(4, 0))

	heritage.DeadCode(f)

	require.True(t, aOp.IsDead())
	require.True(t, bOp.IsDead())
	require.False(t, retOp.IsDead())
	require.Empty(t, x.Descendants())
}
