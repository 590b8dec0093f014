// Package typeprop implements the two-phase type-inference engine of
// §4.8: local typing (one type per varnode, purely from its defining op
// and readers) followed by sweep-based propagation across op edges.
// Results are written back through ir.Varnode/ir.HighVariable's opaque
// LocalType/Datatype accessors, the same opaque-interface wiring
// internal/rule/catalog already exercises through Varnode.LocalType for
// PointerType.
package typeprop

import (
	"github.com/tsgates/pcodec/internal/datatype"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// GetOutputLocal derives op's output type purely from its opcode and
// operand sizes (§4.2's getOutputLocal), independent of anything a reader
// might separately want.
func GetOutputLocal(op *ir.PcodeOp) datatype.Datatype {
	out := op.Output()
	if out == nil {
		return datatype.Void{}
	}
	size := out.Size()

	switch op.Opcode() {
	case pcode.PTRADD, pcode.PTRSUB:
		if pt, ok := op.Input(0).LocalType().(*datatype.Pointer); ok {
			return pt
		}
		return datatype.NewPointer(datatype.NewUnknown(1), size)
	case pcode.INT_SEXT:
		return datatype.NewInt(size)
	case pcode.INT_ZEXT:
		return datatype.NewUint(size)
	case pcode.INT_2COMP, pcode.INT_NEGATE:
		return datatype.NewInt(size)
	}

	switch {
	case op.Opcode().IsBoolOutput():
		return datatype.Bool{}
	case op.Opcode().IsFloatingPoint():
		return datatype.NewFloat(size)
	default:
		return datatype.NewUnknown(size)
	}
}

// GetInputLocal derives the type op requires of its slot'th input, again
// purely from opcode and operand size (§4.2's getInputLocal).
func GetInputLocal(op *ir.PcodeOp, slot int) datatype.Datatype {
	in := op.Input(slot)
	if in == nil {
		return datatype.Void{}
	}
	size := in.Size()

	switch op.Opcode() {
	case pcode.INT_SDIV, pcode.INT_SREM, pcode.INT_SLESS, pcode.INT_SLESSEQUAL,
		pcode.INT_SCARRY, pcode.INT_SBORROW:
		return datatype.NewInt(size)
	case pcode.INT_SRIGHT:
		if slot == 0 {
			return datatype.NewInt(size)
		}
		return datatype.NewUnknown(size)
	case pcode.PTRADD:
		if slot == 0 {
			return datatype.NewPointer(datatype.NewUnknown(1), size)
		}
		return datatype.NewUnknown(size)
	}
	if op.Opcode().IsFloatingPoint() {
		return datatype.NewFloat(size)
	}
	return datatype.NewUnknown(size)
}

// LocalType computes the local type of v: the lattice meet (§4.8 phase 1)
// of the type its defining op assigns and the types each reader demands
// at its slot. Type-locked varnodes are frozen and report whatever local
// type is already attached rather than recomputing it.
func LocalType(v *ir.Varnode) datatype.Datatype {
	if v.Flags().Has(ir.VTypelock) {
		if t, ok := v.LocalType().(datatype.Datatype); ok {
			return t
		}
	}

	var candidates []datatype.Datatype
	if def := v.Def(); def != nil {
		candidates = append(candidates, GetOutputLocal(def))
	} else {
		candidates = append(candidates, datatype.NewUnknown(v.Size()))
	}
	for _, reader := range v.Descendants() {
		for slot := 0; slot < reader.NumInputs(); slot++ {
			if reader.Input(slot) == v {
				candidates = append(candidates, GetInputLocal(reader, slot))
			}
		}
	}
	return datatype.Meet(candidates)
}

// ComputeLocal runs phase 1 over every varnode in f, writing the result
// back through SetLocalType.
func ComputeLocal(f *ir.Funcdata) {
	for _, v := range f.AllVarnodes() {
		v.SetLocalType(LocalType(v))
	}
}
