// Package rule implements the opcode-dispatched peephole rule engine
// (§4.6): a Rule matches one or more opcodes and rewrites a single op in
// place; an ActionPool sweeps a function to a fixed point by repeatedly
// trying every rule registered for each live op's opcode.
package rule

import (
	"fmt"

	"github.com/dolthub/swiss"
	"go.uber.org/zap"

	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// Rule is one peephole rewrite. ApplyOp is tried once per matching op per
// sweep; it returns true if it changed the function (requiring another
// sweep to reach a fixed point), and an error only for invariant
// violations that should abort the pass.
type Rule interface {
	Name() string
	Opcodes() []pcode.Opcode
	ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error)
}

// MaxSweeps bounds ActionPool.Run: the spec requires rule-pool
// termination within 50 sweeps (Testable Property: rule-pool
// termination).
const MaxSweeps = 50

// ErrSweepBudgetExceeded is returned when a sweep-to-fixed-point pass
// fails to settle within MaxSweeps sweeps.
var ErrSweepBudgetExceeded = fmt.Errorf("rule: sweep budget of %d exceeded without reaching a fixed point", MaxSweeps)

// ActionPool dispatches rules by opcode, using a swiss.Map in the same
// style as internal/ir's location index: a dense, generic hash table over
// a closed, small-integer key space.
type ActionPool struct {
	byOpcode *swiss.Map[pcode.Opcode, []Rule]
	log      *zap.Logger
}

// NewActionPool creates an empty pool. log may be nil, in which case a
// no-op logger is used.
func NewActionPool(log *zap.Logger) *ActionPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActionPool{byOpcode: swiss.NewMap[pcode.Opcode, []Rule](uint32(pcode.Count)), log: log}
}

// Register adds r to every opcode it matches.
func (p *ActionPool) Register(r Rule) {
	for _, op := range r.Opcodes() {
		rules, _ := p.byOpcode.Get(op)
		rules = append(rules, r)
		p.byOpcode.Put(op, rules)
	}
}

// RulesFor returns the rules registered for op, in registration order.
func (p *ActionPool) RulesFor(op pcode.Opcode) []Rule {
	rules, _ := p.byOpcode.Get(op)
	return rules
}

// Run sweeps every live op of f, applying matching rules, until a sweep
// makes no change (a fixed point) or MaxSweeps is reached. It returns the
// total number of successful rewrites applied across all sweeps.
func (p *ActionPool) Run(f *ir.Funcdata) (int, error) {
	total := 0
	for sweep := 0; sweep < MaxSweeps; sweep++ {
		changedThisSweep := 0
		for _, op := range f.LiveOps() {
			if op.IsDead() {
				continue
			}
			for _, r := range p.RulesFor(op.Opcode()) {
				changed, err := r.ApplyOp(f, op)
				if err != nil {
					return total, fmt.Errorf("rule %s on op %s: %w", r.Name(), op, err)
				}
				if changed {
					changedThisSweep++
					total++
					p.log.Debug("rule applied", zap.String("rule", r.Name()), zap.Int("sweep", sweep))
					break // op may now be dead or transformed; re-fetch next sweep
				}
			}
		}
		f.Sweep()
		p.log.Debug("sweep complete", zap.Int("sweep", sweep), zap.Int("changed", changedThisSweep))
		if changedThisSweep == 0 {
			return total, nil
		}
	}
	return total, ErrSweepBudgetExceeded
}
