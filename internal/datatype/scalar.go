package datatype

import "fmt"

// Int is a signed integer type of a given width, the lattice counterpart
// to lang/types.Int (there a single runtime kind; here one per byte
// width, since the lattice must distinguish int1/int2/int4/int8).
type Int struct{ size int }

func NewInt(size int) Int { return Int{size: size} }

func (i Int) String() string { return fmt.Sprintf("int%d", i.size) }
func (Int) Kind() Kind       { return KindInt }
func (i Int) Size() int      { return i.size }

// Uint is an unsigned integer type of a given width.
type Uint struct{ size int }

func NewUint(size int) Uint { return Uint{size: size} }

func (u Uint) String() string { return fmt.Sprintf("uint%d", u.size) }
func (Uint) Kind() Kind       { return KindUint }
func (u Uint) Size() int      { return u.size }

// Bool is the boolean type; always one byte, per p-code's bool-output
// convention (§4.2).
type Bool struct{}

func (Bool) String() string { return "bool" }
func (Bool) Kind() Kind     { return KindBool }
func (Bool) Size() int      { return 1 }

// Float is an IEEE-754 floating point type of a given width, keyed by
// size exactly as the translator's format table is (§3: "floating-point
// ops delegate to a format object obtained from the translator").
type Float struct{ size int }

func NewFloat(size int) Float { return Float{size: size} }

func (f Float) String() string { return fmt.Sprintf("float%d", f.size) }
func (Float) Kind() Kind       { return KindFloat }
func (f Float) Size() int      { return f.size }

// Void is the type of an op with no output, or a function's absent
// return value.
type Void struct{}

func (Void) String() string { return "void" }
func (Void) Kind() Kind     { return KindVoid }
func (Void) Size() int      { return 0 }

// Unknown is an unresolved type of a known size: the bottom of the
// lattice above any size-specific candidate, used when local typing has
// not yet narrowed a varnode to anything more specific than its width.
type Unknown struct{ size int }

func NewUnknown(size int) Unknown { return Unknown{size: size} }

func (u Unknown) String() string { return fmt.Sprintf("unknown%d", u.size) }
func (Unknown) Kind() Kind       { return KindUnknown }
func (u Unknown) Size() int      { return u.size }

// Code is the type of a function entry point (a CALL/CALLIND target),
// the lattice's counterpart to scheme's "function" runtime kind
// (lang/types.Function) but carrying no closure state: only a prototype
// reference, attached by internal/proto once recovered.
type Code struct {
	Proto interface{} // opaque *proto.FuncProto, set once recovered
}

func (Code) String() string { return "code" }
func (Code) Kind() Kind     { return KindCode }
func (Code) Size() int      { return 1 }

// Spacebase is the type of a varnode that addresses an address space
// itself (the stack pointer's resting type before stack-relative
// pointers are recovered, §4.9's ActionStackPtrFlow).
type Spacebase struct{ size int }

func NewSpacebase(size int) Spacebase { return Spacebase{size: size} }

func (Spacebase) String() string { return "spacebase" }
func (Spacebase) Kind() Kind     { return KindSpacebase }
func (s Spacebase) Size() int    { return s.size }
