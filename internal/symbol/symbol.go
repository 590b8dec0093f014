// Package symbol implements the Symbol/Scope/Database hierarchy of §3 and
// §4.9: named, typed, optionally locked bindings organised into a global
// scope plus one local scope per function, the local scope additionally
// owning fake address ranges for its stack frame. The scope-chain shape
// (parent pointer, per-scope name map, ancestor walk on lookup) is
// grounded on lang/resolver's block/Binding model, generalised from
// lexical closures to global/function symbol scopes.
package symbol

import "github.com/tsgates/pcodec/internal/datatype"

// Flag is a lock bit on a Symbol (§3: "lock flags (type-locked,
// name-locked, size-type-locked)").
type Flag uint8

const (
	Typelock Flag = 1 << iota
	Namelock
	SizeTypelock
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Category is the closed set of symbol roles §3 names.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryParam
	CategoryEquate
	CategoryFakeInput
	CategoryReturn
)

func (c Category) String() string {
	switch c {
	case CategoryParam:
		return "param"
	case CategoryEquate:
		return "equate"
	case CategoryFakeInput:
		return "fake-input"
	case CategoryReturn:
		return "return"
	default:
		return "none"
	}
}

// Symbol carries a name, a type, lock flags and a role, and belongs to
// exactly one Scope once added to it.
type Symbol struct {
	name     string
	dtype    datatype.Datatype
	flags    Flag
	category Category
	scope    *Scope
}

// NewSymbol builds a detached symbol; it is not visible to any lookup
// until added to a Scope via Scope.Add.
func NewSymbol(name string, dtype datatype.Datatype, category Category) *Symbol {
	return &Symbol{name: name, dtype: dtype, category: category}
}

func (s *Symbol) Name() string                { return s.name }
func (s *Symbol) Datatype() datatype.Datatype { return s.dtype }
func (s *Symbol) Flags() Flag                 { return s.flags }
func (s *Symbol) SetFlag(f Flag)              { s.flags |= f }
func (s *Symbol) Category() Category          { return s.category }
func (s *Symbol) Scope() *Scope               { return s.scope }

// SetDatatype updates the symbol's type unless it is type-locked, in
// which case the call is silently ignored — mirroring the way a
// type-locked varnode is frozen during type propagation
// (typeprop.LocalType checks the equivalent ir.VTypelock bit).
func (s *Symbol) SetDatatype(t datatype.Datatype) {
	if s.flags.Has(Typelock) {
		return
	}
	s.dtype = t
}
