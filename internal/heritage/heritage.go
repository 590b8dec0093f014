// Package heritage turns raw, address-addressed p-code into SSA form: it
// places MULTIEQUAL (phi) nodes at merge points and rewrites every read of
// a storage location to reference its reaching definition (§4.5). It also
// hosts the dead-code sweep, non-zero mask analysis and conditional
// constant propagation that operate over the resulting SSA graph.
package heritage

import (
	"github.com/tsgates/pcodec/internal/cfg"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

// key identifies one storage location being heritaged: a fixed address
// and size within a single address space.
type key struct {
	offset uint64
	size   int
}

// Heritage drives SSA construction for one function over one dominator
// tree, space by space.
type Heritage struct {
	f   *ir.Funcdata
	dom *cfg.DomTree
}

func New(f *ir.Funcdata, dom *cfg.DomTree) *Heritage {
	return &Heritage{f: f, dom: dom}
}

// Space performs heritage over every distinct location addressed within
// space, and records that space as heritaged at least once (the
// precondition ActionConditionalConst checks before touching it). It
// returns the number of MULTIEQUAL ops inserted.
func (h *Heritage) Space(space *sla.Space) int {
	keys := h.collectKeys(space)
	inserted := 0
	for k := range keys {
		inserted += h.heritageOne(space, k)
	}
	h.f.AdvanceHeritagePass(space.Index())
	return inserted
}

func (h *Heritage) collectKeys(space *sla.Space) map[key]bool {
	keys := make(map[key]bool)
	for _, b := range h.dom.Blocks() {
		for _, op := range b.Ops() {
			if op.IsDead() {
				continue
			}
			if out := op.Output(); out != nil && matchesSpace(out, space) {
				keys[key{out.Address().Offset, out.Size()}] = true
			}
		}
	}
	return keys
}

func matchesSpace(v *ir.Varnode, space *sla.Space) bool {
	return !v.IsConstant() && v.Address().Space == space
}

func matchesKey(v *ir.Varnode, space *sla.Space, k key) bool {
	return matchesSpace(v, space) && v.Address().Offset == k.offset && v.Size() == k.size
}

// heritageOne runs phi placement and renaming for a single (space,key)
// location, returning the number of MULTIEQUAL ops created.
func (h *Heritage) heritageOne(space *sla.Space, k key) int {
	defBlocks := h.defBlocks(space, k)
	if len(defBlocks) == 0 {
		return 0
	}

	df := h.dom.DominanceFrontiers()
	placed := make(map[*ir.Block]*ir.PcodeOp)
	worklist := make([]*ir.Block, 0, len(defBlocks))
	for b := range defBlocks {
		worklist = append(worklist, b)
	}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for frontier := range df[b] {
			if _, ok := placed[frontier]; ok {
				continue
			}
			numPreds := len(frontier.In())
			op := h.f.NewOp(numPreds, firstOpAddr(frontier))
			h.f.OpSetOpcode(op, pcode.MULTIEQUAL)
			h.f.OpInsertBegin(op, frontier)
			h.f.NewVarnodeOut(k.size, synthAddress(space, k.offset), op)
			placed[frontier] = op
			worklist = append(worklist, frontier)
		}
	}

	var stack []*ir.Varnode
	h.rename(h.dom.Blocks()[0], space, k, placed, &stack)
	return len(placed)
}

// synthAddress builds the address a newly placed MULTIEQUAL's output
// lives at: the same (space,offset) every other version of this location
// uses, since SSA versions share an address and are disambiguated by
// identity, not by address (§3).
func synthAddress(space *sla.Space, offset uint64) sla.Address {
	return sla.Address{Space: space, Offset: offset}
}

// firstOpAddr is a defensive accessor used only for the synthetic seq
// number stamped on inserted MULTIEQUAL ops; the exact address chosen
// does not affect correctness since MULTIEQUAL ops are always the first
// op in their block (§4.2).
func firstOpAddr(b *ir.Block) sla.Address {
	if op := b.First(); op != nil {
		return op.SeqNum().Addr
	}
	return sla.Address{}
}

func (h *Heritage) defBlocks(space *sla.Space, k key) map[*ir.Block]bool {
	out := make(map[*ir.Block]bool)
	for _, b := range h.dom.Blocks() {
		for _, op := range b.Ops() {
			if op.IsDead() {
				continue
			}
			if out2 := op.Output(); out2 != nil && matchesKey(out2, space, k) {
				out[b] = true
				break
			}
		}
	}
	return out
}

// rename performs the dominator-tree preorder SSA renaming walk: it keeps a
// stack of the current definition of k, rewrites each read in b to the top
// of that stack, fills the successor MULTIEQUAL slots, then recurses into
// b's dominator-tree children.
func (h *Heritage) rename(b *ir.Block, space *sla.Space, k key, placed map[*ir.Block]*ir.PcodeOp, stack *[]*ir.Varnode) {
	pushed := 0
	phi := placed[b]
	if phi != nil {
		*stack = append(*stack, phi.Output())
		pushed++
	}

	for _, op := range b.Ops() {
		if op.IsDead() || op == phi {
			continue
		}
		if len(*stack) > 0 {
			top := (*stack)[len(*stack)-1]
			for i := 0; i < op.NumInputs(); i++ {
				if in := op.Input(i); in != nil && matchesKey(in, space, k) && in != top {
					h.f.OpSetInput(op, i, top)
				}
			}
		}
		if out := op.Output(); out != nil && matchesKey(out, space, k) {
			*stack = append(*stack, out)
			pushed++
		}
	}

	if len(*stack) > 0 {
		top := (*stack)[len(*stack)-1]
		for _, e := range b.Out() {
			if succPhi, ok := placed[e.To]; ok {
				idx := predIndex(e.To, b)
				if idx >= 0 {
					h.f.OpSetInput(succPhi, idx, top)
				}
			}
		}
	}

	for _, c := range h.dom.Children(b) {
		h.rename(c, space, k, placed, stack)
	}

	*stack = (*stack)[:len(*stack)-pushed]
}

func predIndex(b, pred *ir.Block) int {
	for i, p := range b.In() {
		if p == pred {
			return i
		}
	}
	return -1
}
