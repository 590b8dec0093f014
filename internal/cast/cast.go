// Package cast implements ActionSetCasts (§4.11): the pass that runs once
// SSA form and type propagation have stabilised and makes every implicit
// conversion in the p-code explicit. It walks each op's input slots in
// dominator order and compares the type the opcode intrinsically requires
// there (typeprop.GetInputLocal) against the type the feeding varnode
// actually carries; a mismatch gets a CAST op, or — when the target is a
// pointer-to-struct reachable at the same address — a PTRSUB at offset 0
// instead, the same "reinterpret this storage as a different type at the
// same address" move typeprop's own pointer-offset walk already performs
// during propagation.
package cast

import (
	"github.com/tsgates/pcodec/internal/cfg"
	"github.com/tsgates/pcodec/internal/datatype"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/typeprop"
)

// ResolvedUnions is the access-site resolution map typeprop.ResolveUnions
// computes during §4.8: the field each union-typed varnode's specific
// reader or definer was resolved to.
type ResolvedUnions = map[typeprop.AccessKey]datatype.Field

// ActionSetCasts walks every op of f in dom's dominator order and, for
// each input slot, inserts whatever conversion reconciles the opcode's
// intrinsic requirement with the varnode actually feeding it. It returns
// the number of casts (including PTRSUBs inserted in a cast's place)
// added. Running it a second time over the same function is a no-op: the
// newly inserted op's output already carries the required type, so the
// second pass's comparison finds nothing left to reconcile.
func ActionSetCasts(f *ir.Funcdata, dom *cfg.DomTree, resolved ResolvedUnions, ptrSize int) int {
	inserted := 0
	for _, b := range dom.DominatorOrder() {
		for _, op := range b.Ops() {
			if op.Opcode() == pcode.CAST || op.Opcode() == pcode.PTRSUB {
				continue
			}
			for slot := 0; slot < op.NumInputs(); slot++ {
				if insertInputCast(f, op, slot, resolved, ptrSize) {
					inserted++
				}
			}
		}
	}
	return inserted
}

// insertInputCast handles one input slot: union resolution takes priority
// over the plain intrinsic-type check when the slot's varnode was
// specifically resolved by §4.8, since the resolved field is a more
// precise requirement than GetInputLocal's opcode-generic one.
func insertInputCast(f *ir.Funcdata, op *ir.PcodeOp, slot int, resolved ResolvedUnions, ptrSize int) bool {
	in := op.Input(slot)
	if in == nil {
		return false
	}
	if field, ok := resolved[typeprop.AccessKey{Op: op, Slot: slot}]; ok {
		return insertUnionResolution(f, op, slot, in, field, ptrSize)
	}

	required := typeprop.GetInputLocal(op, slot)
	actual, _ := in.LocalType().(datatype.Datatype)
	if !needsCast(actual, required) {
		return false
	}

	replacement := castTo(f, op, in, required, ptrSize)
	f.OpSetInput(op, slot, replacement)
	return true
}

// needsCast reports whether actual must be converted to satisfy required.
// required.Kind() == KindUnknown means the opcode has no intrinsic
// expectation at this slot (the common case for arithmetic/logic ops,
// whose GetInputLocal falls through to NewUnknown) — nothing to reconcile
// there regardless of what actual is.
func needsCast(actual, required datatype.Datatype) bool {
	if required == nil || required.Kind() == datatype.KindUnknown {
		return false
	}
	if actual == nil {
		return true
	}
	return actual.Kind() != required.Kind()
}

// castTo builds the replacement varnode for in at the site of at,
// inserted immediately before it, and stamps the new output with
// required so a later ActionSetCasts pass sees it already satisfied.
func castTo(f *ir.Funcdata, at *ir.PcodeOp, in *ir.Varnode, required datatype.Datatype, ptrSize int) *ir.Varnode {
	if pt, ok := required.(*datatype.Pointer); ok {
		if _, isStruct := pt.Elem.(*datatype.Struct); isStruct {
			if _, alreadyPtr := in.LocalType().(*datatype.Pointer); alreadyPtr {
				return ptrsubZero(f, at, in, pt, ptrSize)
			}
		}
	}
	return rawCast(f, at, in, required)
}

func rawCast(f *ir.Funcdata, at *ir.PcodeOp, in *ir.Varnode, required datatype.Datatype) *ir.Varnode {
	op := f.NewOp(1, at.SeqNum().Addr)
	f.OpSetOpcode(op, pcode.CAST)
	f.OpInsertBefore(op, at)
	f.OpSetInput(op, 0, in)
	out := f.NewUniqueOut(required.Size(), op)
	out.SetLocalType(required)
	return out
}

// ptrsubZero reinterprets in as required via a PTRSUB of constant 0: the
// preferred form over a raw CAST when the target is a pointer-to-struct,
// since PTRSUB-at-offset-0 is how the rest of the pipeline already
// notates "same address, richer type" (the same shape typeprop's
// pointer-offset propagation and rule/catalog's RulePtrArith both use).
func ptrsubZero(f *ir.Funcdata, at *ir.PcodeOp, in *ir.Varnode, required *datatype.Pointer, ptrSize int) *ir.Varnode {
	op := f.NewOp(2, at.SeqNum().Addr)
	f.OpSetOpcode(op, pcode.PTRSUB)
	f.OpInsertBefore(op, at)
	f.OpSetInput(op, 0, in)
	f.OpSetInput(op, 1, f.NewConstant(ptrSize, 0))
	out := f.NewUniqueOut(required.Size(), op)
	out.SetLocalType(required)
	return out
}

// insertUnionResolution materialises a resolved union access as a PTRSUB
// at the member's offset, marked special-print so the emitter prints the
// chosen field name instead of a bare offset — the same tagging
// rule/catalog's switch-recovery pass already uses to mark a rewritten op
// for non-default printing.
func insertUnionResolution(f *ir.Funcdata, op *ir.PcodeOp, slot int, in *ir.Varnode, field datatype.Field, ptrSize int) bool {
	actual, ok := in.LocalType().(datatype.Datatype)
	if ok && datatype.Equal(actual, field.Type) {
		return false
	}

	newOp := f.NewOp(2, op.SeqNum().Addr)
	f.OpSetOpcode(newOp, pcode.PTRSUB)
	f.OpInsertBefore(newOp, op)
	f.OpSetInput(newOp, 0, in)
	f.OpSetInput(newOp, 1, f.NewConstant(ptrSize, uint64(field.Offset)))
	f.OpMarkSpecialPrint(newOp)

	out := f.NewUniqueOut(field.Type.Size(), newOp)
	out.SetLocalType(field.Type)
	f.OpSetInput(op, slot, out)
	return true
}
