package typeprop

import (
	"github.com/tsgates/pcodec/internal/datatype"
	"github.com/tsgates/pcodec/internal/diag"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

// defaultIterationBudget bounds phase 2's number of sweeps; exceeding it
// is not an invariant violation, just a signal to stop refining and keep
// whatever types have been found so far (§4.8, §7 "Recovery exceeded").
const defaultIterationBudget = 8

// StopsPropagation reports whether v blocks type propagation across any
// edge touching it (§4.8 phase 2: "a varnode that has stops-up-propagation
// set... terminates propagation on that edge"). A type-locked varnode and
// one already bound to a symbol both carry a type decided by something
// outside the lattice, so propagation must not override either.
func StopsPropagation(v *ir.Varnode) bool {
	if v.Flags().Has(ir.VTypelock) {
		return true
	}
	if h := v.High(); h != nil && h.Symbol() != nil {
		return true
	}
	return false
}

// Propagate runs phase 2: repeated sweeps over op edges (both directions)
// that push each varnode's currently-held local type across every
// adjacent edge, keeping the projected result only when it is strictly
// more specific than what the destination already holds. Each sweep
// visits every varnode once, in creation order; it is not a depth-first
// traversal, so a type pushed onto an earlier-created varnode moves on
// only in the next sweep. Sweeps repeat to a fixed point or until budget
// sweeps (0 selects the default) have run; on exhaustion it records
// diag.RecoveryExceeded on el and returns with the best-effort types
// already written back.
func Propagate(f *ir.Funcdata, budget int, el *diag.ErrorList) {
	if budget <= 0 {
		budget = defaultIterationBudget
	}
	for iter := 0; iter < budget; iter++ {
		changed := false
		for _, v := range f.AllVarnodes() {
			if propagateFrom(v) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
	if el != nil {
		el.Add(diag.RecoveryExceeded, sla.Address{}, "type propagation did not converge within %d iterations", budget)
	}
}

// propagateFrom projects v's current local type across every edge
// touching v: forward into each reader's output, and backward into each
// input of v's own defining op. It reports whether any destination's
// type was refined.
func propagateFrom(v *ir.Varnode) bool {
	srcType, ok := v.LocalType().(datatype.Datatype)
	if !ok || srcType == nil || StopsPropagation(v) {
		return false
	}
	changed := false

	for _, reader := range v.Descendants() {
		out := reader.Output()
		if out == nil || StopsPropagation(out) {
			continue
		}
		if proj, ok := propagateAcross(reader, v, srcType, out); ok && refine(out, proj) {
			changed = true
		}
	}

	if def := v.Def(); def != nil {
		for slot := 0; slot < def.NumInputs(); slot++ {
			in := def.Input(slot)
			if in == nil || StopsPropagation(in) {
				continue
			}
			if proj, ok := propagateAcross(def, v, srcType, in); ok && refine(in, proj) {
				changed = true
			}
		}
	}
	return changed
}

func refine(dst *ir.Varnode, proj datatype.Datatype) bool {
	cur, _ := dst.LocalType().(datatype.Datatype)
	if !datatype.MoreSpecific(proj, cur) {
		return false
	}
	dst.SetLocalType(proj)
	return true
}

// propagateAcross implements propagateType(src, op, invn, outvn, inslot,
// outslot) for the opcode families the catalogue cares about: it
// computes the type op would push from src onto dst, given that src
// already holds srcType. ok is false when the opcode defines no
// propagation for this edge.
func propagateAcross(op *ir.PcodeOp, src *ir.Varnode, srcType datatype.Datatype, dst *ir.Varnode) (datatype.Datatype, bool) {
	switch op.Opcode() {
	case pcode.COPY:
		return srcType, true
	case pcode.PTRADD, pcode.PTRSUB, pcode.INT_ADD, pcode.INT_SUB:
		return propagatePointerOffset(op, src, srcType, dst)
	}
	return nil, false
}

// propagatePointerOffset implements the pointer-at-offset walk of §4.8
// phase 2: a pointer flowing into an add/sub whose other operand is a
// constant offset produces a pointer to whichever field of the pointee
// composite sits at that offset (a relative pointer if the field doesn't
// start at the base). Spacebase pointers (the stack pointer before
// stack-relative recovery) propagate unchanged through the same opcodes,
// modelling "propagate into known aliases".
func propagatePointerOffset(op *ir.PcodeOp, src *ir.Varnode, srcType datatype.Datatype, dst *ir.Varnode) (datatype.Datatype, bool) {
	if src != op.Input(0) || dst != op.Output() {
		return nil, false
	}

	if _, ok := srcType.(datatype.Spacebase); ok {
		return srcType, true
	}

	ptr, ok := srcType.(*datatype.Pointer)
	if !ok {
		return nil, false
	}
	offset, isConst := constOffset(op)
	if !isConst {
		return ptr, true
	}
	if st, ok := ptr.Elem.(*datatype.Struct); ok {
		if field, found := st.FieldAt(offset); found {
			if fieldOffset := offset - field.Offset; fieldOffset == 0 {
				return datatype.NewPointer(field.Type, dst.Size()), true
			}
			return datatype.NewPointerRel(field.Type, dst.Size(), ptr.Elem, offset), true
		}
	}
	if offset == 0 {
		return ptr, true
	}
	return datatype.NewPointerRel(ptr.Elem, dst.Size(), ptr.Elem, offset), true
}

func constOffset(op *ir.PcodeOp) (int64, bool) {
	if op.Opcode() == pcode.PTRADD {
		idx, ok := op.Input(1).ConstantValue()
		if !ok {
			return 0, false
		}
		elemSize, ok2 := op.Input(2).ConstantValue()
		if !ok2 {
			return 0, false
		}
		return int64(idx) * int64(elemSize), true
	}
	c, ok := op.Input(1).ConstantValue()
	if !ok {
		return 0, false
	}
	if op.Opcode() == pcode.INT_SUB {
		return -int64(c), true
	}
	return int64(c), true
}
