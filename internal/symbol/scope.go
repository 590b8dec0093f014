package symbol

import "github.com/tsgates/pcodec/internal/sla"

// addrRange binds a symbol to a fake storage address, the way the local
// scope's stack frame gives every local variable a synthetic offset-from-
// frame-base address (§3 "the local scope owns fake address ranges for
// the stack frame").
type addrRange struct {
	addr sla.Address
	size int
	sym  *Symbol
}

// Scope is one node of the symbol scope chain: a name table plus, for
// local (function) scopes, a set of fake address ranges. Lookup by name
// walks up through parent the same way lang/resolver's block.parent chain
// does for lexical scopes; Scope generalises that shape to global/
// function symbol scopes instead of lexical ones.
type Scope struct {
	name     string
	parent   *Scope
	children []*Scope
	symbols  map[string]*Symbol
	ranges   []addrRange
}

// NewScope creates a scope named name, chained under parent (nil for the
// root/global scope).
func NewScope(name string, parent *Scope) *Scope {
	s := &Scope{name: name, parent: parent, symbols: make(map[string]*Symbol)}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

func (s *Scope) Name() string    { return s.name }
func (s *Scope) Parent() *Scope  { return s.parent }
func (s *Scope) Children() []*Scope {
	return append([]*Scope(nil), s.children...)
}

// Add binds sym into this scope under its own name. It refuses to
// overwrite an existing name-locked entry (§3's Namelock flag), returning
// false in that case; otherwise it installs sym, replacing any unlocked
// entry of the same name, and returns true.
func (s *Scope) Add(sym *Symbol) bool {
	if existing, ok := s.symbols[sym.name]; ok && existing.Flags().Has(Namelock) {
		return false
	}
	sym.scope = s
	s.symbols[sym.name] = sym
	return true
}

// Find looks up name in this scope, then its ancestors in turn, mirroring
// lang/resolver's "for env := r.env; env != nil; env = env.parent" lookup
// loop over block.bindings.
func (s *Scope) Find(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// Local reports whether name resolves in this scope without climbing to
// an ancestor.
func (s *Scope) Local(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// BindAddress gives sym a fake storage address within this scope's
// address ranges, e.g. a stack-frame offset for a recovered local
// variable. Ranges are kept in insertion order; FindAddress does a linear
// scan, which is adequate for the handful of locals a typical stack frame
// holds.
func (s *Scope) BindAddress(sym *Symbol, addr sla.Address, size int) {
	s.ranges = append(s.ranges, addrRange{addr: addr, size: size, sym: sym})
}

// FindAddress returns the symbol whose bound range contains addr (within
// this scope only, no ancestor climb — fake addresses are not shared
// across function scopes) along with addr's byte offset into that range.
func (s *Scope) FindAddress(addr sla.Address, size int) (*Symbol, int64, bool) {
	for _, r := range s.ranges {
		if sla.Contains(r.addr, r.size, addr, size) {
			return r.sym, int64(addr.Offset - r.addr.Offset), true
		}
	}
	return nil, 0, false
}
