// Package ir implements the function-level IR container (§4.3): the arena
// that owns every varnode, p-code op and basic block of one function, plus
// the mutation API that keeps their bidirectional links consistent.
package ir

import (
	"fmt"

	"github.com/tsgates/pcodec/internal/sla"
)

// VFlag is a bit in a Varnode's flag set (§3).
type VFlag uint32

const (
	VInput VFlag = 1 << iota
	VWritten
	VConstant
	VPersistent
	VAddrTied
	VImplicit
	VSpacebase
	VUnaffected
	VMark
	VPrecisionHi
	VPrecisionLo
	VTypelock
	VNamelock
	VReadOnly
	VVolatile
	VAutoLiveHold
	VDirectWrite
	VConsumeVacuous
	VConsumeList
	VWriteMask
)

func (f VFlag) Has(bit VFlag) bool { return f&bit != 0 }

// Varnode is a single static storage coordinate in a function.
type Varnode struct {
	id    int
	addr  sla.Address
	size  int
	flags VFlag

	def         *PcodeOp // nil unless VWritten
	descendants []*PcodeOp

	consumeMask uint64
	nonZeroMask uint64

	high *HighVariable

	// localType is opaque to this package; internal/typeprop sets and reads
	// it through a narrow accessor so that ir has no dependency on the type
	// lattice package (avoiding an import cycle).
	localType interface{}
}

func (v *Varnode) ID() int             { return v.id }
func (v *Varnode) Address() sla.Address { return v.addr }
func (v *Varnode) Size() int           { return v.size }
func (v *Varnode) Flags() VFlag        { return v.flags }
func (v *Varnode) IsInput() bool       { return v.flags.Has(VInput) }
func (v *Varnode) IsWritten() bool     { return v.flags.Has(VWritten) }
func (v *Varnode) IsConstant() bool    { return v.flags.Has(VConstant) }
func (v *Varnode) Def() *PcodeOp       { return v.def }

// Descendants returns a snapshot of the ops reading this varnode. Per the
// design notes (§9), callers that intend to mutate the graph while
// iterating must work from this snapshot rather than re-querying live
// state, since the slice returned here is a copy.
func (v *Varnode) Descendants() []*PcodeOp {
	out := make([]*PcodeOp, len(v.descendants))
	copy(out, v.descendants)
	return out
}

func (v *Varnode) NumDescendants() int { return len(v.descendants) }

func (v *Varnode) ConsumeMask() uint64 { return v.consumeMask }
func (v *Varnode) NonZeroMask() uint64 { return v.nonZeroMask }

// MarkConsumed ORs bits into the consume mask. Per invariant 7, the mask is
// monotone: once a bit is recorded consumed it is never cleared.
func (v *Varnode) MarkConsumed(bits uint64) { v.consumeMask |= bits }

func (v *Varnode) SetNonZeroMask(bits uint64) { v.nonZeroMask = bits }

func (v *Varnode) High() *HighVariable   { return v.high }
func (v *Varnode) SetHigh(h *HighVariable) { v.high = h }

func (v *Varnode) LocalType() interface{}      { return v.localType }
func (v *Varnode) SetLocalType(t interface{})  { v.localType = t }

func (v *Varnode) SetFlag(f VFlag)   { v.flags |= f }
func (v *Varnode) ClearFlag(f VFlag) { v.flags &^= f }

// ConstantValue returns the constant value encoded in the address offset
// for a varnode in the constant space, and whether v is such a varnode.
func (v *Varnode) ConstantValue() (uint64, bool) {
	if !v.flags.Has(VConstant) {
		return 0, false
	}
	return v.addr.Offset, true
}

func (v *Varnode) String() string {
	return fmt.Sprintf("%s:%d", v.addr, v.size)
}

func (v *Varnode) addDescendant(op *PcodeOp) {
	v.descendants = append(v.descendants, op)
}

// removeDescendant removes one occurrence of op from the descendant list.
// It is a linear scan: descendant lists are expected to stay small (the
// fan-out of a single SSA value), matching the teacher's preference for
// simple slice-based collections over premature indexing.
func (v *Varnode) removeDescendant(op *PcodeOp) {
	for i, d := range v.descendants {
		if d == op {
			v.descendants = append(v.descendants[:i], v.descendants[i+1:]...)
			return
		}
	}
}
