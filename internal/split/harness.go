package split

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

// matcher is the sticky-failure harness every form matcher shares: a
// synthesis step that can fail (no dominating insertion point found)
// sets failed once, and ok() lets the caller bail out without an error
// check after every intermediate step — the same shape asm's sticky
// a.err field gives lang/compiler's assembly parser.
type matcher struct {
	f      *ir.Funcdata
	failed bool
}

func newMatcher(f *ir.Funcdata) *matcher { return &matcher{f: f} }

func (m *matcher) fail()   { m.failed = true }
func (m *matcher) ok() bool { return !m.failed }

// findExistingPiece implements the first feasibility branch: an existing
// PIECE(hi, lo) among lo's descendants (or, for a zero-extend-only pair,
// a PIECE of a zero constant and lo) already is sv's logical whole.
func findExistingPiece(sv *SplitVarnode) *ir.Varnode {
	for _, use := range sv.Lo.Descendants() {
		if use.Opcode() != pcode.PIECE || use.NumInputs() != 2 {
			continue
		}
		if sv.Hi != nil {
			if use.Input(0) == sv.Hi && use.Input(1) == sv.Lo {
				return use.Output()
			}
			continue
		}
		if use.Input(1) == sv.Lo {
			if c, ok := use.Input(0).ConstantValue(); ok && c == 0 {
				return use.Output()
			}
		}
	}
	return nil
}

// insertionAnchor implements the "earliest point dominating both halves"
// feasibility check, simplified to a single-block query rather than a
// full dominance query: if both halves
// have defining ops, they must share a block, and the anchor is
// whichever comes later; if only one does, it is the anchor; if neither
// does (both are plain function inputs), the anchor is the start of the
// function's entry block.
func (m *matcher) insertionAnchor(a, b *ir.Varnode) (after *ir.PcodeOp, block *ir.Block, ok bool) {
	da, db := a.Def(), b.Def()
	switch {
	case da != nil && db != nil:
		if da.Block() != db.Block() {
			return nil, nil, false
		}
		if da.SeqNum().Less(db.SeqNum()) {
			return db, nil, true
		}
		return da, nil, true
	case da != nil:
		return da, nil, true
	case db != nil:
		return db, nil, true
	default:
		blocks := m.f.Blocks()
		if len(blocks) == 0 {
			return nil, nil, false
		}
		return nil, blocks[0], true
	}
}

func (m *matcher) insertAt(op *ir.PcodeOp, after *ir.PcodeOp, block *ir.Block) {
	if after != nil {
		m.f.OpInsertAfter(op, after)
		return
	}
	m.f.OpInsertBegin(op, block)
}

// synthesizeWhole implements the second feasibility branch: synthesise a
// PIECE (or, for a zero-extend-only pair, an INT_ZEXT) combining sv's
// halves, inserted at the anchor point for both.
func (m *matcher) synthesizeWhole(sv *SplitVarnode) *ir.Varnode {
	if sv.Hi == nil {
		after, block, ok := m.insertionAnchor(sv.Lo, sv.Lo)
		if !ok {
			m.fail()
			return nil
		}
		addr := anchorAddr(after, block)
		op := m.f.NewOp(1, addr)
		m.f.OpSetOpcode(op, pcode.INT_ZEXT)
		m.insertAt(op, after, block)
		m.f.OpSetInput(op, 0, sv.Lo)
		return m.f.NewUniqueOut(sv.WholeSize, op)
	}
	after, block, ok := m.insertionAnchor(sv.Lo, sv.Hi)
	if !ok {
		m.fail()
		return nil
	}
	addr := anchorAddr(after, block)
	op := m.f.NewOp(2, addr)
	m.f.OpSetOpcode(op, pcode.PIECE)
	m.insertAt(op, after, block)
	m.f.OpSetInput(op, 0, sv.Hi)
	m.f.OpSetInput(op, 1, sv.Lo)
	return m.f.NewUniqueOut(sv.WholeSize, op)
}

func anchorAddr(after *ir.PcodeOp, block *ir.Block) sla.Address {
	if after != nil {
		return after.SeqNum().Addr
	}
	return sla.Address{}
}

// wholeOf returns sv's logical whole, finding an existing PIECE first and
// synthesising one only if none exists.
func (m *matcher) wholeOf(sv *SplitVarnode) *ir.Varnode {
	if w := findExistingPiece(sv); w != nil {
		return w
	}
	return m.synthesizeWhole(sv)
}

// split rebuilds lo/hi as SUBPIECEs of whole, inserted right after
// whole's defining op.
func (m *matcher) split(whole *ir.Varnode, loSize, hiSize int) (lo, hi *ir.Varnode) {
	def := whole.Def()

	loOp := m.f.NewOp(2, def.SeqNum().Addr)
	m.f.OpSetOpcode(loOp, pcode.SUBPIECE)
	m.f.OpInsertAfter(loOp, def)
	m.f.OpSetInput(loOp, 0, whole)
	m.f.OpSetInput(loOp, 1, m.f.NewConstant(4, 0))
	lo = m.f.NewUniqueOut(loSize, loOp)

	hiOp := m.f.NewOp(2, def.SeqNum().Addr)
	m.f.OpSetOpcode(hiOp, pcode.SUBPIECE)
	m.f.OpInsertAfter(hiOp, loOp)
	m.f.OpSetInput(hiOp, 0, whole)
	m.f.OpSetInput(hiOp, 1, m.f.NewConstant(4, uint64(loSize)))
	hi = m.f.NewUniqueOut(hiSize, hiOp)
	return lo, hi
}
