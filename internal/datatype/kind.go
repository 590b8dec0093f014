// Package datatype implements the temporary data-type lattice (§3, §4.8):
// a closed set of kinds plus the concrete types built on them, and a
// specificity order used to compute the lattice meet of competing
// candidate types for the same varnode. The shape follows lang/types'
// closed Value-kind hierarchy, generalized from a runtime value kind set
// to a static type lattice: where lang/types has one concrete Go type per
// runtime kind (Int, Bool, Array, ...), datatype has one concrete Go type
// per lattice kind.
package datatype

// Kind is the closed set of lattice kinds (§3 "Datatype lattice").
type Kind uint8

const (
	KindUnknown Kind = iota
	KindVoid
	KindInt
	KindUint
	KindBool
	KindFloat
	KindPtr
	KindPtrRel
	KindArray
	KindStruct
	KindUnion
	KindCode
	KindEnum
	KindPartialStruct
	KindPartialUnion
	KindSpacebase
	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:       "unknown",
	KindVoid:          "void",
	KindInt:           "int",
	KindUint:          "uint",
	KindBool:          "bool",
	KindFloat:         "float",
	KindPtr:           "ptr",
	KindPtrRel:        "ptrrel",
	KindArray:         "array",
	KindStruct:        "struct",
	KindUnion:         "union",
	KindCode:          "code",
	KindEnum:          "enum",
	KindPartialStruct: "partialstruct",
	KindPartialUnion:  "partialunion",
	KindSpacebase:     "spacebase",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// Datatype is the interface every lattice member implements: the printed
// kind, its size in bytes, and a display string for diagnostics. Concrete
// types are value types the way lang/types' Value implementations are,
// except datatype values are compared by structural equality (Equal), not
// interpreted by the machine.
type Datatype interface {
	String() string
	Kind() Kind
	Size() int
}

// Equaler is implemented by datatypes whose equality is more than pointer
// identity (composites compare structurally).
type Equaler interface {
	Equal(other Datatype) bool
}

// Equal reports whether a and b denote the same type, using a's Equal
// method when it implements Equaler and falling back to interface
// equality (safe for the value-type leaves: Int, Uint, Bool, ...).
func Equal(a, b Datatype) bool {
	if a == nil || b == nil {
		return a == b
	}
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}
	return a == b
}
