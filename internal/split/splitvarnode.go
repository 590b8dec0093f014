// Package split implements double-precision (split-varnode) recomposition
// (§4.10): recognising that a sequence of operations on pairs of
// half-width varnodes really encodes one operation on a logical whole,
// and rewriting the pair back into that whole plus SUBPIECEs.
//
// The package is a family of small form matchers (Add/Sub, Logical,
// Equal, LessThreeWay, Phi, CopyForce) sharing one harness — the same
// shape lang/compiler/asm.go uses for its own family of small parsers
// sharing one asm struct and a sticky-error convention, generalised here
// to a sticky-failure matcher and a feasibility/rewrite harness instead
// of a parse error.
package split

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tsgates/pcodec/internal/ir"
)

// SplitVarnode is a transient view of a pair of half-width varnodes
// believed to jointly hold one logical value: if both halves are
// constant the pair collapses to ConstVal; if Hi is nil the logical value
// is simply the zero-extension of Lo.
type SplitVarnode struct {
	Lo, Hi    *ir.Varnode
	WholeSize int
	ConstVal  *uint256.Int
}

// NewPair builds a SplitVarnode from a genuine (lo, hi) half-width pair.
func NewPair(lo, hi *ir.Varnode) *SplitVarnode {
	sv := &SplitVarnode{Lo: lo, Hi: hi, WholeSize: lo.Size() + hi.Size()}
	sv.ConstVal, _ = sv.combinedConstant()
	return sv
}

// NewZeroExtend builds a SplitVarnode whose logical value is just lo,
// zero-extended to wholeSize.
func NewZeroExtend(lo *ir.Varnode, wholeSize int) *SplitVarnode {
	sv := &SplitVarnode{Lo: lo, WholeSize: wholeSize}
	sv.ConstVal, _ = sv.combinedConstant()
	return sv
}

func (sv *SplitVarnode) IsZeroExtendOnly() bool { return sv.Hi == nil }
func (sv *SplitVarnode) IsConstant() bool       { return sv.ConstVal != nil }

func (sv *SplitVarnode) String() string {
	if sv.Hi == nil {
		return fmt.Sprintf("zext(%s)", sv.Lo)
	}
	return fmt.Sprintf("pair(%s,%s)", sv.Hi, sv.Lo)
}

// combinedConstant implements the "if both lo and hi are constant, the
// pair is represented purely as constval" invariant; 128-bit-safe via
// uint256 so a 64-bit whole built from two 32/64-bit halves never
// silently truncates (Testable Property 8).
func (sv *SplitVarnode) combinedConstant() (*uint256.Int, bool) {
	loVal, ok := sv.Lo.ConstantValue()
	if !ok {
		return nil, false
	}
	lo := uint256.NewInt(loVal)
	if sv.Hi == nil {
		return lo, true
	}
	hiVal, ok := sv.Hi.ConstantValue()
	if !ok {
		return nil, false
	}
	hi := uint256.NewInt(hiVal)
	hi.Lsh(hi, uint(sv.Lo.Size()*8))
	result := new(uint256.Int)
	result.Or(hi, lo)
	return result, true
}
