package ir

import (
	"sort"

	"github.com/dolthub/swiss"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

// locKey is the exact-match lookup key for the location-sorted varnode
// index: a varnode is uniquely identified by where it lives and how big it
// is, since two distinct varnodes never share both.
type locKey struct {
	space  *sla.Space
	offset uint64
	size   int
}

// Funcdata owns every varnode, op and block of one function: the single
// arena described in §9's design notes, with all cross-links stored as
// pointers into this arena rather than as separate owned copies.
type Funcdata struct {
	name   string
	spaces *sla.Manager

	varnodes []*Varnode
	ops      []*PcodeOp
	blocks   []*Block

	locIndex *swiss.Map[locKey, *Varnode]

	inputs  []*Varnode
	frees   []*Varnode // no def, not input (e.g. floating constants)
	deadOps []*PcodeOp

	nextVarnodeID int
	nextOpID      int
	nextBlockID   int
	opOrderSeq    int

	heritagePass int
	// heritagedOnce records, per address space index, whether heritage has
	// run at least once for that space — the hard precondition the spec's
	// open question about ActionConditionalConst asks implementers to
	// enforce.
	heritagedOnce map[int]bool
}

// NewFuncdata creates an empty function container over the given address
// space manager.
func NewFuncdata(name string, spaces *sla.Manager) *Funcdata {
	return &Funcdata{
		name:          name,
		spaces:        spaces,
		locIndex:      swiss.NewMap[locKey, *Varnode](uint32(64)),
		heritagedOnce: make(map[int]bool),
	}
}

func (f *Funcdata) Name() string          { return f.name }
func (f *Funcdata) Spaces() *sla.Manager  { return f.spaces }
func (f *Funcdata) HeritagePass() int     { return f.heritagePass }
func (f *Funcdata) AdvanceHeritagePass(spaceIndex int) {
	f.heritagePass++
	f.heritagedOnce[spaceIndex] = true
}
func (f *Funcdata) HasHeritaged(spaceIndex int) bool { return f.heritagedOnce[spaceIndex] }

// ---- varnode creation ----

func (f *Funcdata) newVarnodeRaw(size int, addr sla.Address) *Varnode {
	v := &Varnode{id: f.nextVarnodeID, addr: addr, size: size}
	f.nextVarnodeID++
	f.varnodes = append(f.varnodes, v)
	if addr.Space != nil {
		f.locIndex.Put(locKey{addr.Space, addr.Offset, size}, v)
	}
	return v
}

// NewVarnode creates a free varnode (no def, not input) at addr.
func (f *Funcdata) NewVarnode(size int, addr sla.Address) *Varnode {
	v := f.newVarnodeRaw(size, addr)
	f.frees = append(f.frees, v)
	return v
}

// NewConstant creates a varnode in the constant space encoding val.
func (f *Funcdata) NewConstant(size int, val uint64) *Varnode {
	v := f.newVarnodeRaw(size, sla.Address{Space: f.spaces.ConstantSpace(), Offset: val})
	v.SetFlag(VConstant)
	return v
}

// NewUnique creates a free varnode in the unique (temporary) space.
func (f *Funcdata) NewUnique(size int) *Varnode {
	addr := sla.Address{Space: f.spaces.UniqueSpace(), Offset: f.nextUniqueOffset(size)}
	return f.NewVarnode(size, addr)
}

func (f *Funcdata) nextUniqueOffset(size int) uint64 {
	// Each unique gets a fresh, non-overlapping slot; the unique space has
	// no addressing meaning beyond identity.
	off := uint64(f.nextVarnodeID) * 16
	return off
}

// NewUniqueOut creates a unique-space varnode and binds it as op's output.
func (f *Funcdata) NewUniqueOut(size int, op *PcodeOp) *Varnode {
	v := f.NewUnique(size)
	f.OpSetOutput(op, v)
	return v
}

// NewVarnodeOut creates a varnode at addr and binds it as op's output.
func (f *Funcdata) NewVarnodeOut(size int, addr sla.Address, op *PcodeOp) *Varnode {
	v := f.newVarnodeRaw(size, addr)
	f.OpSetOutput(op, v)
	return v
}

// SetInputVarnode marks v as a function input: no defining op, space is an
// input space (§3 invariant 4). v must not already be written.
func (f *Funcdata) SetInputVarnode(v *Varnode) {
	if v.IsWritten() {
		panic("ir: cannot mark a written varnode as input")
	}
	if !v.IsInput() {
		v.SetFlag(VInput)
		f.removeFree(v)
		f.inputs = append(f.inputs, v)
	}
}

func (f *Funcdata) removeFree(v *Varnode) {
	for i, x := range f.frees {
		if x == v {
			f.frees = append(f.frees[:i], f.frees[i+1:]...)
			return
		}
	}
}

// Inputs returns the varnodes marked as function inputs.
func (f *Funcdata) Inputs() []*Varnode { return append([]*Varnode(nil), f.inputs...) }

// ---- varnode replacement ----

// TotalReplace rewires every descendant (and block membership of the
// output role) of old to instead reference replacement, preserving
// invariant 2 (bidirectional descendant integrity).
func (f *Funcdata) TotalReplace(old, replacement *Varnode) {
	for _, op := range old.Descendants() {
		for slot, in := range op.inputs {
			if in == old {
				op.inputs[slot] = replacement
				replacement.addDescendant(op)
			}
		}
	}
	old.descendants = nil
}

// TotalReplaceConstant replaces every descendant's reference to vn with a
// freshly minted constant varnode of value c and vn's size.
func (f *Funcdata) TotalReplaceConstant(vn *Varnode, c uint64) {
	replacement := f.NewConstant(vn.Size(), c)
	f.TotalReplace(vn, replacement)
}

// ---- op creation & mutation ----

// NewOp creates a detached op (not yet inserted into any block) with
// numInputs empty input slots, stamped at addr.
func (f *Funcdata) NewOp(numInputs int, addr sla.Address) *PcodeOp {
	op := &PcodeOp{
		id:     f.nextOpID,
		seq:    SeqNum{Addr: addr, Order: f.nextOpOrder()},
		inputs: make([]*Varnode, numInputs),
	}
	f.nextOpID++
	f.ops = append(f.ops, op)
	return op
}

func (f *Funcdata) nextOpOrder() int {
	f.opOrderSeq++
	return f.opOrderSeq
}

func (f *Funcdata) OpSetOpcode(op *PcodeOp, opc pcode.Opcode) {
	op.opcode = opc
	if opc.IsMarker() {
		op.SetFlag(OMarker)
	}
	if opc.IsBoolOutput() {
		op.SetFlag(OBoolOutput)
	}
}

// OpSetInput binds a varnode to one input slot, updating its descendant
// list. Any varnode previously in that slot has the op removed from its
// descendant list.
func (f *Funcdata) OpSetInput(op *PcodeOp, slot int, vn *Varnode) {
	if old := op.inputs[slot]; old != nil {
		old.removeDescendant(op)
	}
	op.inputs[slot] = vn
	if vn != nil {
		vn.addDescendant(op)
	}
}

// OpSetAllInput replaces every input slot at once.
func (f *Funcdata) OpSetAllInput(op *PcodeOp, vns []*Varnode) {
	for _, old := range op.inputs {
		if old != nil {
			old.removeDescendant(op)
		}
	}
	op.inputs = append([]*Varnode(nil), vns...)
	for _, vn := range op.inputs {
		if vn != nil {
			vn.addDescendant(op)
		}
	}
}

// OpSetOutput binds vn as op's output, marking vn written and recording op
// as vn's unique definition (§3 invariant 1).
func (f *Funcdata) OpSetOutput(op *PcodeOp, vn *Varnode) {
	if op.output != nil {
		op.output.def = nil
		op.output.ClearFlag(VWritten)
	}
	op.output = vn
	if vn != nil {
		if vn.def != nil && vn.def != op {
			panic("ir: varnode already has a defining op")
		}
		vn.def = op
		vn.SetFlag(VWritten)
		f.removeFree(vn)
	}
}

// OpRemoveInput deletes input slot i, shifting later slots down.
func (f *Funcdata) OpRemoveInput(op *PcodeOp, i int) {
	if vn := op.inputs[i]; vn != nil {
		vn.removeDescendant(op)
	}
	op.inputs = append(op.inputs[:i], op.inputs[i+1:]...)
}

// OpInsertInput inserts vn at slot i, shifting later slots up.
func (f *Funcdata) OpInsertInput(op *PcodeOp, i int, vn *Varnode) {
	op.inputs = append(op.inputs, nil)
	copy(op.inputs[i+1:], op.inputs[i:])
	op.inputs[i] = vn
	if vn != nil {
		vn.addDescendant(op)
	}
}

// ---- block / op placement ----

func (f *Funcdata) NewBlock() *Block {
	b := &Block{id: f.nextBlockID, index: len(f.blocks)}
	f.nextBlockID++
	f.blocks = append(f.blocks, b)
	return b
}

func (f *Funcdata) Blocks() []*Block { return append([]*Block(nil), f.blocks...) }

func (f *Funcdata) AddEdge(from, to *Block, kind EdgeKind) {
	from.addOutEdge(Edge{To: to, Kind: kind})
}

// RemoveBranch removes the idx'th outgoing edge of block, along with the
// corresponding in-edge bookkeeping on the target.
func (f *Funcdata) RemoveBranch(block *Block, idx int) {
	if idx < 0 || idx >= len(block.out) {
		return
	}
	block.removeOutEdge(block.out[idx].To)
}

func (f *Funcdata) OpInsertBegin(op *PcodeOp, b *Block) { b.insertOpAt(0, op) }
func (f *Funcdata) OpInsertEnd(op *PcodeOp, b *Block)   { b.insertOpAt(len(b.ops), op) }

func (f *Funcdata) OpInsertBefore(op, before *PcodeOp) {
	before.block.insertOpAt(before.indexWithinBlock, op)
}

func (f *Funcdata) OpInsertAfter(op, after *PcodeOp) {
	after.block.insertOpAt(after.indexWithinBlock+1, op)
}

// OpUninsert removes op from its block's op list without destroying it
// (its inputs/output links remain intact); used when an op is about to be
// moved elsewhere.
func (f *Funcdata) OpUninsert(op *PcodeOp) {
	if op.block != nil {
		op.block.removeOp(op)
		op.block = nil
	}
}

// OpDestroy disconnects op from its inputs/output and queues it on the dead
// list for batch purge at the next Sweep.
func (f *Funcdata) OpDestroy(op *PcodeOp) {
	if op.IsDead() {
		return
	}
	op.SetFlag(ODead)
	for i, vn := range op.inputs {
		if vn != nil {
			vn.removeDescendant(op)
		}
		op.inputs[i] = nil
	}
	if op.output != nil {
		op.output.def = nil
		op.output.ClearFlag(VWritten)
		f.frees = append(f.frees, op.output)
		op.output = nil
	}
	f.OpUninsert(op)
	f.deadOps = append(f.deadOps, op)
}

// Sweep purges every op queued by OpDestroy from the op arena. It is safe
// to call between passes; it never touches live ops.
func (f *Funcdata) Sweep() int {
	if len(f.deadOps) == 0 {
		return 0
	}
	dead := make(map[*PcodeOp]bool, len(f.deadOps))
	for _, op := range f.deadOps {
		dead[op] = true
	}
	kept := f.ops[:0]
	for _, op := range f.ops {
		if !dead[op] {
			kept = append(kept, op)
		}
	}
	f.ops = kept
	n := len(f.deadOps)
	f.deadOps = nil
	return n
}

// ---- specialised mutation helpers ----

// MarkIndirectCreation marks vn as created by an INDIRECT marker rather
// than a genuine computation (used by heritage when modelling call/store
// side effects).
func (f *Funcdata) MarkIndirectCreation(vn *Varnode) {
	vn.SetFlag(VImplicit)
}

// OpFlipCondition flips a CBRANCH's sense by toggling its boolean-flip
// flag; the op's condition input is left untouched, matching the teacher's
// preference for a cheap flag flip over rebuilding the op.
func (f *Funcdata) OpFlipCondition(op *PcodeOp) {
	if op.flags.Has(OBooleanFlip) {
		op.ClearFlag(OBooleanFlip)
	} else {
		op.SetFlag(OBooleanFlip)
	}
}

func (f *Funcdata) OpMarkSpecialPrint(op *PcodeOp)    { op.SetFlag(OSpecialPrint) }
func (f *Funcdata) OpMarkCalculatedBool(op *PcodeOp)  { op.SetFlag(OCalculatedBool) }

// SpliceBlockBasic inserts a new block directly after b on its unique
// fall-through edge, for passes that need a landing pad (e.g. to host an
// inserted COPY). b must have exactly one outgoing edge.
func (f *Funcdata) SpliceBlockBasic(b *Block) *Block {
	if len(b.out) != 1 {
		panic("ir: SpliceBlockBasic requires exactly one outgoing edge")
	}
	old := b.out[0]
	nb := f.NewBlock()
	b.removeOutEdge(old.To)
	f.AddEdge(b, nb, old.Kind)
	f.AddEdge(nb, old.To, EdgeFallThrough)
	return nb
}

// ---- location-sorted / definition-sorted queries ----

// BeginLocSizeAddr returns the varnode exactly matching (addr,size), if
// any — an O(1) exact-match query against the location index.
func (f *Funcdata) BeginLocSizeAddr(size int, addr sla.Address) (*Varnode, bool) {
	v, ok := f.locIndex.Get(locKey{addr.Space, addr.Offset, size})
	return v, ok
}

// BeginLocSpace returns every varnode in the given space, in address order.
func (f *Funcdata) BeginLocSpace(space *sla.Space) []*Varnode {
	var out []*Varnode
	for _, v := range f.varnodes {
		if v.addr.Space == space {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].addr.Offset < out[j].addr.Offset })
	return out
}

// AllVarnodes returns every varnode in this function, in creation order.
func (f *Funcdata) AllVarnodes() []*Varnode { return append([]*Varnode(nil), f.varnodes...) }

// AllOps returns every live-or-dead op in creation order; most callers want
// LiveOps instead.
func (f *Funcdata) AllOps() []*PcodeOp { return append([]*PcodeOp(nil), f.ops...) }

// LiveOps returns every non-dead op across all blocks, in block order then
// in each block's op-list order (the order ops were inserted at, not
// their sequence numbers).
func (f *Funcdata) LiveOps() []*PcodeOp {
	var out []*PcodeOp
	for _, b := range f.blocks {
		for _, op := range b.ops {
			if !op.IsDead() {
				out = append(out, op)
			}
		}
	}
	return out
}
