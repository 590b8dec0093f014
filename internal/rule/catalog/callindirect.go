package catalog

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

// FunctionResolver answers whether addr names a known function, analogous
// to the spec's "persistent varnode, external reference, or constant
// address aligned to funcptr_align" lookup. internal/proto's Registry
// does not implement this interface (it caches prototypes by address and
// has no ResolveFunction); catalog ships a minimal in-memory
// implementation so the rule is independently testable.
type FunctionResolver interface {
	ResolveFunction(addr sla.Address) (name string, ok bool)
}

// FunctionRegistry is a small FunctionResolver backed by a plain map,
// sufficient for the core engine's own tests; a host wiring a real
// prototype database would supply its own FunctionResolver instead.
type FunctionRegistry struct {
	byAddr map[sla.Address]string
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{byAddr: make(map[sla.Address]string)}
}

func (r *FunctionRegistry) Bind(addr sla.Address, name string) { r.byAddr[addr] = name }

func (r *FunctionRegistry) ResolveFunction(addr sla.Address) (string, bool) {
	name, ok := r.byAddr[addr]
	return name, ok
}

// RuleCallIndirectResolve rewrites CALLIND to CALL when the callee operand
// traces back (through a chain of plain COPYs) to a persistent varnode
// whose address the resolver recognises as a known function (scenario D).
// Binding the resolved prototype onto the call-specs is internal/proto's
// job; this rule only performs the opcode-level fold.
type RuleCallIndirectResolve struct {
	Resolver FunctionResolver
}

func NewRuleCallIndirectResolve() *RuleCallIndirectResolve {
	return &RuleCallIndirectResolve{Resolver: NewFunctionRegistry()}
}

func (r *RuleCallIndirectResolve) Name() string           { return "CallIndirectResolve" }
func (r *RuleCallIndirectResolve) Opcodes() []pcode.Opcode { return []pcode.Opcode{pcode.CALLIND} }
func (r *RuleCallIndirectResolve) ApplyOp(f *ir.Funcdata, op *ir.PcodeOp) (bool, error) {
	fp := op.Input(0)
	for fp != nil && fp.Def() != nil && fp.Def().Opcode() == pcode.COPY {
		fp = fp.Def().Input(0)
	}
	if fp == nil || !fp.Flags().Has(ir.VPersistent) {
		return false, nil
	}
	if _, ok := r.Resolver.ResolveFunction(fp.Address()); !ok {
		return false, nil
	}
	f.OpSetInput(op, 0, fp)
	f.OpSetOpcode(op, pcode.CALL)
	return true, nil
}
