package datatype

import "fmt"

// Pointer is a pointer to a homogeneous element type. ElementSize is what
// rule/catalog's RulePtrArith/RulePtrArithUndo consult (through the
// narrow catalog.PointerType interface) to decide whether an INT_ADD is
// really pointer-plus-scaled-index arithmetic in disguise.
type Pointer struct {
	Elem    Datatype
	ptrSize int
}

// NewPointer builds a Pointer of the given storage size (the size of the
// pointer value itself, e.g. 8 on a 64-bit target) to elem.
func NewPointer(elem Datatype, ptrSize int) *Pointer {
	return &Pointer{Elem: elem, ptrSize: ptrSize}
}

func (p *Pointer) String() string {
	if p.Elem == nil {
		return "ptr"
	}
	return fmt.Sprintf("ptr<%s>", p.Elem)
}

func (*Pointer) Kind() Kind  { return KindPtr }
func (p *Pointer) Size() int { return p.ptrSize }

// ElementSize implements catalog.PointerType: the stride PTRADD scales
// its index input by. An unresolved element (Elem == nil, or itself
// unknown-sized) reports 1, the conservative byte-addressed stride.
func (p *Pointer) ElementSize() int {
	if p.Elem == nil || p.Elem.Size() <= 0 {
		return 1
	}
	return p.Elem.Size()
}

func (p *Pointer) Equal(other Datatype) bool {
	op, ok := other.(*Pointer)
	if !ok || op.ptrSize != p.ptrSize {
		return false
	}
	return Equal(p.Elem, op.Elem)
}

// PointerRel is a pointer known to sit at a fixed non-zero offset inside
// a parent composite type (§3 "ptrrel") — the type propagation phase
// produces this when it walks a struct/array field chain and the
// resulting field offset isn't the composite's first byte.
type PointerRel struct {
	*Pointer
	Parent Datatype
	Offset int64
}

func NewPointerRel(elem Datatype, ptrSize int, parent Datatype, offset int64) *PointerRel {
	return &PointerRel{Pointer: NewPointer(elem, ptrSize), Parent: parent, Offset: offset}
}

func (p *PointerRel) String() string {
	return fmt.Sprintf("ptrrel<%s+%d>", p.Parent, p.Offset)
}

func (*PointerRel) Kind() Kind { return KindPtrRel }

func (p *PointerRel) Equal(other Datatype) bool {
	op, ok := other.(*PointerRel)
	if !ok || op.Offset != p.Offset {
		return false
	}
	return Equal(p.Parent, op.Parent) && p.Pointer.Equal(op.Pointer)
}
