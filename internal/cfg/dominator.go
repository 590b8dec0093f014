// Package cfg computes dominance and natural-loop structure over a
// function's block graph, and exposes the block-structurer contract that
// turns a dominator-annotated graph into nested source-level control
// structures (§4.4).
package cfg

import (
	"golang.org/x/exp/slices"

	"github.com/tsgates/pcodec/internal/ir"
)

// DomTree is the dominator tree of one function's block graph, computed
// with the iterative Cooper-Harvey-Kennedy algorithm over a
// reverse-postorder numbering.
type DomTree struct {
	blocks  []*ir.Block
	rpo     map[*ir.Block]int // block -> reverse-postorder index
	idom    []*ir.Block       // indexed by rpo index
	entry   *ir.Block
}

// Build computes the dominator tree of f's block graph, rooted at entry.
// Unreachable blocks (no path from entry) are omitted.
func Build(entry *ir.Block, blocks []*ir.Block) *DomTree {
	order := postorder(entry)
	slices.Reverse(order)

	rpo := make(map[*ir.Block]int, len(order))
	for i, b := range order {
		rpo[b] = i
	}

	idom := make([]*ir.Block, len(order))
	idom[0] = order[0] // entry dominates itself

	changed := true
	for changed {
		changed = false
		for i := 1; i < len(order); i++ {
			b := order[i]
			var newIdom *ir.Block
			for _, p := range b.In() {
				pi, ok := rpo[p]
				if !ok || idom[pi] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, rpo, newIdom, p)
			}
			if newIdom != idom[i] {
				idom[i] = newIdom
				changed = true
			}
		}
	}

	return &DomTree{blocks: order, rpo: rpo, idom: idom, entry: entry}
}

func intersect(idom []*ir.Block, rpo map[*ir.Block]int, a, b *ir.Block) *ir.Block {
	for a != b {
		for rpo[a] > rpo[b] {
			a = idom[rpo[a]]
		}
		for rpo[b] > rpo[a] {
			b = idom[rpo[b]]
		}
	}
	return a
}

func postorder(entry *ir.Block) []*ir.Block {
	var order []*ir.Block
	visited := make(map[*ir.Block]bool)
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, e := range b.Out() {
			visit(e.To)
		}
		order = append(order, b)
	}
	visit(entry)
	return order
}

// IDom returns the immediate dominator of b, or nil for the entry block or
// an unreachable block.
func (t *DomTree) IDom(b *ir.Block) *ir.Block {
	i, ok := t.rpo[b]
	if !ok || i == 0 {
		return nil
	}
	return t.idom[i]
}

// Dominates reports whether a dominates b (a block dominates itself).
func (t *DomTree) Dominates(a, b *ir.Block) bool {
	ai, ok := t.rpo[a]
	if !ok {
		return false
	}
	bi, ok := t.rpo[b]
	if !ok {
		return false
	}
	for {
		if bi == ai {
			return true
		}
		if bi == 0 {
			return false
		}
		bi = t.rpo[t.idom[bi]]
	}
}

// Reachable reports whether b was reached from the entry block.
func (t *DomTree) Reachable(b *ir.Block) bool {
	_, ok := t.rpo[b]
	return ok
}

// Blocks returns every reachable block in reverse-postorder (index 0 is
// always the entry block).
func (t *DomTree) Blocks() []*ir.Block {
	return append([]*ir.Block(nil), t.blocks...)
}

// Children returns the dominator-tree children of b: the blocks whose
// immediate dominator is b.
func (t *DomTree) Children(b *ir.Block) []*ir.Block {
	var out []*ir.Block
	for _, c := range t.blocks {
		if c != b && t.IDom(c) == b {
			out = append(out, c)
		}
	}
	return out
}

// DominatorOrder returns every reachable block in an order where each
// block appears after its immediate dominator — the order ActionSetCasts
// and ActionConditionalConst require (§4.11, §4.5).
func (t *DomTree) DominatorOrder() []*ir.Block {
	out := make([]*ir.Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

// DominanceFrontiers computes the standard Cytron et al. dominance
// frontier of every reachable block: the set of blocks where this block's
// dominance "runs out", i.e. where phi/MULTIEQUAL nodes must be placed
// when this block defines a value (§4.5).
func (t *DomTree) DominanceFrontiers() map[*ir.Block]map[*ir.Block]bool {
	df := make(map[*ir.Block]map[*ir.Block]bool, len(t.blocks))
	for _, b := range t.blocks {
		df[b] = make(map[*ir.Block]bool)
	}
	for _, b := range t.blocks {
		preds := b.In()
		if len(preds) < 2 {
			continue
		}
		idomB := t.IDom(b)
		for _, p := range preds {
			if !t.Reachable(p) {
				continue
			}
			runner := p
			for runner != idomB {
				df[runner][b] = true
				next := t.IDom(runner)
				if next == nil {
					break
				}
				runner = next
			}
		}
	}
	return df
}
