// Package pipeline assembles every analysis/rewrite package the engine
// built (internal/heritage, internal/typeprop, internal/rule, internal/split,
// internal/cast, internal/sched) into the universal action tree
// internal/action.Database names: one named Group per preset, sequencing
// leaf Actions the same way internal/rule/catalog.RegisterAll sequences
// leaf Rules into an ActionPool, and consulting internal/config for the
// tunables that would otherwise be hardcoded constants.
package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tsgates/pcodec/internal/action"
	"github.com/tsgates/pcodec/internal/cast"
	"github.com/tsgates/pcodec/internal/cfg"
	"github.com/tsgates/pcodec/internal/config"
	"github.com/tsgates/pcodec/internal/diag"
	"github.com/tsgates/pcodec/internal/heritage"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/rule"
	"github.com/tsgates/pcodec/internal/rule/catalog"
	"github.com/tsgates/pcodec/internal/sched"
	"github.com/tsgates/pcodec/internal/sla"
	"github.com/tsgates/pcodec/internal/split"
	"github.com/tsgates/pcodec/internal/typeprop"
)

// FullDecompile names the only preset this pipeline wires up so far: the
// complete heritage -> rule pool -> split recomposition -> type
// propagation -> cast insertion -> post-loop schedule chain.
const FullDecompile = "full-decompile"

// Pipeline drives one function through the whole engine. A Pipeline is
// safe to reuse across many functions sharing the same address-space
// Manager; Diagnostics accumulates across every Run call, matching
// internal/diag.ErrorList's own accumulate-and-continue discipline.
type Pipeline struct {
	cfg  *config.Config
	log  *zap.Logger
	pool *rule.ActionPool
	db   *action.Database

	Diagnostics *diag.ErrorList
}

// New builds a Pipeline. cfg and log may be nil, in which case a default
// Config and a no-op logger are used respectively.
func New(cfg *config.Config, log *zap.Logger) *Pipeline {
	if cfg == nil {
		cfg = &config.Config{MaxInstructions: 100000, ActionPassLimit: rule.MaxSweeps, ActionGroup: FullDecompile}
	}
	if log == nil {
		log = zap.NewNop()
	}

	pool := rule.NewActionPool(log)
	catalog.RegisterAll(pool)

	p := &Pipeline{cfg: cfg, log: log, pool: pool, Diagnostics: &diag.ErrorList{}}
	p.db = action.NewDatabase()
	p.db.Register(p.buildFullDecompile())
	return p
}

// Database exposes the underlying action tree, e.g. for a CLI's "actions"
// subcommand to list registered groups.
func (p *Pipeline) Database() *action.Database { return p.db }

// Pool exposes the underlying rule pool, e.g. for a CLI's "rules"
// subcommand to list registered rules.
func (p *Pipeline) Pool() *rule.ActionPool { return p.pool }

// Run drives f through the named action group (cfg.ActionGroup if group
// is empty), then through the post-loop dependency schedule that
// internal/rule/internal/action cannot express: cast insertion depends
// on the type propagation and union resolution the main loop already
// settled, so it is scheduled as a separate wavefront-ordered pass rather
// than another entry in the group.
func (p *Pipeline) Run(f *ir.Funcdata, group string) error {
	if group == "" {
		group = p.cfg.ActionGroup
	}
	g, ok := p.db.Get(group)
	if !ok {
		return fmt.Errorf("pipeline: unknown action group %q", group)
	}
	if limit := p.cfg.MaxInstructions; limit > 0 {
		if n := len(f.AllOps()); n > limit {
			p.Diagnostics.Add(diag.LowLevel, sla.Address{}, "function %s has %d p-code ops, over MaxInstructions %d", f.Name(), n, limit)
			return fmt.Errorf("pipeline: function %q: %d p-code ops exceed MaxInstructions %d", f.Name(), n, limit)
		}
	}

	start := time.Now()
	changed, err := g.Apply(f)
	if err != nil {
		return fmt.Errorf("pipeline: action group %q: %w", group, err)
	}
	p.log.Debug("action group converged",
		zap.String("func", f.Name()), zap.String("group", group),
		zap.Bool("changed", changed), zap.Duration("elapsed", time.Since(start)))

	return p.runPostLoop(f)
}

// buildFullDecompile wires the "full-decompile" Group: heritage once,
// then the rule pool and split-form recomposition repeated to a fixed
// point (mirroring rule.ActionPool.Run's own sweep-to-fixed-point shape,
// but at the coarser action-tree granularity §4.6 separates from the
// opcode-dispatched rule level), then type propagation once heritage and
// rewriting have settled.
func (p *Pipeline) buildFullDecompile() *action.Group {
	g := action.NewGroup(FullDecompile)
	g.Add(action.ActionFunc{FuncName: "heritage", Fn: p.runHeritage}, action.RuleOncePerFunc)
	g.Add(action.ActionFunc{FuncName: "rule-pool", Fn: p.runRulePool}, action.RuleRepeatApply|action.RuleRestartGroup)
	g.Add(action.ActionFunc{FuncName: "split-forms", Fn: p.runSplitForms}, action.RuleRepeatApply|action.RuleRestartGroup)
	g.Add(action.ActionFunc{FuncName: "type-propagation", Fn: p.runTypeProp}, action.RuleOncePerFunc)
	return g
}

// domOf builds a fresh dominator tree from f's current block graph; every
// action that needs one recomputes it rather than caching, since the rule
// pool and split forms mutate ops (never blocks) and a stale tree over a
// mutated op set is cheaper to rebuild than to invalidate correctly. It
// returns nil for a function with no blocks (e.g. an external
// declaration with no body), which every caller below treats as "nothing
// to do" rather than dereferencing.
func domOf(f *ir.Funcdata) *cfg.DomTree {
	blocks := f.Blocks()
	if len(blocks) == 0 {
		return nil
	}
	return cfg.Build(blocks[0], blocks)
}

// heritagedSpaces collects every non-unique, non-constant address space
// referenced by f's varnodes: the spaces internal/heritage.Heritage.Space
// must run over before the function is in single-assignment form.
func heritagedSpaces(f *ir.Funcdata) []*sla.Space {
	mgr := f.Spaces()
	seen := make(map[*sla.Space]bool)
	var out []*sla.Space
	for _, v := range f.AllVarnodes() {
		sp := v.Address().Space
		if sp == nil || sp == mgr.UniqueSpace() || sp == mgr.ConstantSpace() || seen[sp] {
			continue
		}
		seen[sp] = true
		out = append(out, sp)
	}
	return out
}

func (p *Pipeline) runHeritage(f *ir.Funcdata) (bool, error) {
	dom := domOf(f)
	if dom == nil {
		return false, nil
	}
	changed := false
	for _, sp := range heritagedSpaces(f) {
		if f.HasHeritaged(sp.Index()) {
			continue
		}
		if heritage.New(f, dom).Space(sp) > 0 {
			changed = true
		}
	}
	heritage.NonZeroMask(f)
	if heritage.ConditionalConst(f, dom) > 0 {
		changed = true
	}
	return changed, nil
}

func (p *Pipeline) runRulePool(f *ir.Funcdata) (bool, error) {
	n, err := p.pool.Run(f)
	return n > 0, err
}

var logicalForms = []pcode.Opcode{pcode.INT_AND, pcode.INT_OR, pcode.INT_XOR}

func (p *Pipeline) runSplitForms(f *ir.Funcdata) (bool, error) {
	changed := false
	for _, pair := range split.FindCarryPairs(f) {
		if split.ApplyAddSub(f, pair) {
			changed = true
		}
	}
	for _, opc := range logicalForms {
		for _, pair := range split.FindAdjacentOutputs(f, opc) {
			if split.ApplyLogical(f, pair) {
				changed = true
			}
		}
	}
	for _, pair := range split.FindAdjacentOutputs(f, pcode.MULTIEQUAL) {
		if split.ApplyPhi(f, pair) {
			changed = true
		}
	}
	for _, pair := range split.FindAdjacentOutputs(f, pcode.COPY) {
		if split.ApplyCopyForce(f, pair) {
			changed = true
		}
	}
	for _, op := range f.LiveOps() {
		switch op.Opcode() {
		case pcode.BOOL_AND, pcode.BOOL_OR:
			if split.ApplyEqual(f, op) {
				changed = true
			}
		}
	}
	for _, op := range f.LiveOps() {
		if op.Opcode() == pcode.BOOL_OR && split.ApplyLessThreeWay(f, op) {
			changed = true
		}
	}
	return changed, nil
}

func (p *Pipeline) typePropBudget() int {
	if p.cfg.TypePropBudget > 0 {
		return p.cfg.TypePropBudget
	}
	return 0 // internal/typeprop.Propagate applies its own package default for a zero budget
}

func (p *Pipeline) runTypeProp(f *ir.Funcdata) (bool, error) {
	typeprop.ComputeLocal(f)
	typeprop.Propagate(f, p.typePropBudget(), p.Diagnostics)
	return true, nil
}

// pointerOffsetSize picks the constant-operand width cast.ActionSetCasts
// uses for a synthesised PTRSUB/PTRADD offset: the address size of the
// first processor-kind space in use, or 8 for a function with none (a
// pure-register leaf whose casts never need a pointer offset anyway).
func pointerOffsetSize(f *ir.Funcdata) int {
	for _, sp := range heritagedSpaces(f) {
		if sp.Type() == sla.SpaceProcessor {
			return sp.AddrSize()
		}
	}
	return 8
}

// runPostLoop builds and runs the §4.12 post-loop dependency schedule:
// cast insertion over the resolved-union map the main loop's type
// propagation already computed. WavefrontScheduling selects between
// internal/sched's wavefront execution and its flattened-sequence
// fallback; with only one task registered today the two are equivalent,
// but the switch is wired so a second post-loop task (e.g. a future
// comment-emission pass) only has to be added to the Task list below.
func (p *Pipeline) runPostLoop(f *ir.Funcdata) error {
	blocks := f.Blocks()
	if len(blocks) == 0 {
		return nil
	}
	dom := domOf(f)
	resolved := typeprop.ResolveUnions(f)
	ptrSize := pointerOffsetSize(f)

	tasks := []sched.Task{
		{
			Action: action.ActionFunc{FuncName: "cast-insertion", Fn: func(f *ir.Funcdata) (bool, error) {
				n := cast.ActionSetCasts(f, dom, resolved, ptrSize)
				return n > 0, nil
			}},
			Reads:  []sched.Region{sched.RegionTypes, sched.RegionSSA},
			Writes: []sched.Region{sched.RegionCasts, sched.RegionPcodeOps},
		},
	}

	start := time.Now()
	s := sched.Build(tasks)
	var err error
	if p.cfg.WavefrontScheduling {
		err = s.Run(f)
	} else {
		for _, t := range s.Sequential() {
			if _, applyErr := t.Action.Apply(f); applyErr != nil {
				err = fmt.Errorf("pipeline: post-loop task %q: %w", t.Action.Name(), applyErr)
				break
			}
		}
	}
	p.log.Debug("post-loop schedule complete",
		zap.String("func", f.Name()), zap.Bool("wavefront", p.cfg.WavefrontScheduling),
		zap.Duration("elapsed", time.Since(start)))
	return err
}
