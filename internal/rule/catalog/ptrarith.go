package catalog

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// PointerType is the narrow shape RulePtrArith needs from a varnode's local
// type (internal/ir.Varnode.LocalType is an opaque interface{} so that ir
// need not import internal/datatype; any concrete pointer type from that
// package satisfies this structurally). ElementSize is the byte size of
// the pointed-to element, e.g. 16 for `struct S*` with sizeof(S)==16.
type PointerType interface {
	ElementSize() int
}

// RulePtrArith rewrites `INT_ADD p, c` into `PTRADD p, index, elemSize`
// when p's local type is a pointer and c is an exact multiple of the
// pointed-to element size (scenario C).
type RulePtrArith struct{}

func (RulePtrArith) Name() string           { return "PtrArith" }
func (RulePtrArith) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.INT_ADD} }
func (RulePtrArith) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	p, c := op.Input(0), op.Input(1)
	pt, ok := p.LocalType().(PointerType)
	if !ok {
		p, c = op.Input(1), op.Input(0)
		pt, ok = p.LocalType().(PointerType)
	}
	if !ok {
		return false, nil
	}
	cv, ok := constOf(c)
	if !ok {
		return false, nil
	}
	elemSize := pt.ElementSize()
	if elemSize <= 0 || cv%uint64(elemSize) != 0 {
		return false, nil
	}
	index := cv / uint64(elemSize)

	out := op.Output()
	f.OpSetAllInput(op, []*ir.Varnode{
		p,
		f.NewConstant(c.Size(), index),
		f.NewConstant(c.Size(), uint64(elemSize)),
	})
	f.OpSetOpcode(op, pcode.PTRADD)
	if out != nil {
		out.SetLocalType(pt)
	}
	return true, nil
}

// RulePtrArithUndo reverses RulePtrArith when the pointer's local type has
// since been dropped (union resolution or a later cast proved the
// structured form no longer applies): PTRADD folds back to a plain
// INT_ADD with the byte offset made explicit.
type RulePtrArithUndo struct{}

func (RulePtrArithUndo) Name() string           { return "PtrArithUndo" }
func (RulePtrArithUndo) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.PTRADD} }
func (RulePtrArithUndo) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	p := op.Input(0)
	if _, ok := p.LocalType().(PointerType); ok {
		return false, nil
	}
	index, ok := constOf(op.Input(1))
	if !ok {
		return false, nil
	}
	elemSize, ok := constOf(op.Input(2))
	if !ok {
		return false, nil
	}
	off := index * elemSize
	f.OpSetAllInput(op, []*ir.Varnode{p, f.NewConstant(op.Input(1).Size(), off)})
	f.OpSetOpcode(op, pcode.INT_ADD)
	return true, nil
}
