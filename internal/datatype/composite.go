package datatype

import "fmt"

// Array is a fixed-length homogeneous sequence, grounded on lang/types.Array
// the way Pointer is grounded on the runtime value side: a count plus an
// element type instead of a backing Go slice.
type Array struct {
	Elem  Datatype
	Count int
}

func NewArray(elem Datatype, count int) *Array { return &Array{Elem: elem, Count: count} }

func (a *Array) String() string { return fmt.Sprintf("%s[%d]", a.Elem, a.Count) }
func (*Array) Kind() Kind       { return KindArray }
func (a *Array) Size() int      { return a.Elem.Size() * a.Count }

func (a *Array) Equal(other Datatype) bool {
	oa, ok := other.(*Array)
	return ok && oa.Count == a.Count && Equal(a.Elem, oa.Elem)
}

// Field is one named, offset member of a Struct or alternative of a Union.
type Field struct {
	Name   string
	Offset int64
	Type   Datatype
}

// Struct is a named sequence of fields at fixed offsets.
type Struct struct {
	Name   string
	Fields []Field
	size   int
}

func NewStruct(name string, fields []Field, size int) *Struct {
	return &Struct{Name: name, Fields: fields, size: size}
}

func (s *Struct) String() string { return "struct " + s.Name }
func (*Struct) Kind() Kind       { return KindStruct }
func (s *Struct) Size() int      { return s.size }

func (s *Struct) Equal(other Datatype) bool {
	os, ok := other.(*Struct)
	return ok && os.Name == s.Name && os.size == s.size
}

// FieldAt returns the field occupying byte offset off, if any — the
// composite-type-walking step type propagation uses to turn a raw
// pointer-plus-constant-offset into a field-typed relative pointer
// (§4.8 phase 2).
func (s *Struct) FieldAt(off int64) (Field, bool) {
	for _, f := range s.Fields {
		if f.Offset == off {
			return f, true
		}
		if off > f.Offset && off < f.Offset+int64(f.Type.Size()) {
			// offset falls inside a nested composite; the caller recurses.
			return f, true
		}
	}
	return Field{}, false
}

// Union is a set of alternative interpretations of the same storage.
// findResolve (§3, §4.8) picks one alternative for a specific read/write
// site; Resolve here implements that choice by matching the requested
// access size against each alternative, preferring an exact size match.
type Union struct {
	Name string
	Alts []Field
	size int
}

func NewUnion(name string, alts []Field, size int) *Union {
	return &Union{Name: name, Alts: alts, size: size}
}

func (u *Union) String() string { return "union " + u.Name }
func (*Union) Kind() Kind       { return KindUnion }
func (u *Union) Size() int      { return u.size }

func (u *Union) Equal(other Datatype) bool {
	ou, ok := other.(*Union)
	return ok && ou.Name == u.Name && ou.size == u.size
}

// Resolve implements findResolve(op, slot): given the byte size of a
// specific read or write of this union, return the alternative that best
// matches, preferring an exact size match and falling back to the first
// alternative no smaller than size.
func (u *Union) Resolve(size int) (Field, bool) {
	var fallback Field
	haveFallback := false
	for _, alt := range u.Alts {
		if alt.Type.Size() == size {
			return alt, true
		}
		if alt.Type.Size() >= size && !haveFallback {
			fallback, haveFallback = alt, true
		}
	}
	return fallback, haveFallback
}

// PartialStruct is an in-progress struct type: a composite whose layout
// has been committed to (a size and some known fields) but which is still
// accepting new fields as type propagation discovers more accesses.
// Distinguishing this from Struct lets the lattice meet treat a partial
// struct as strictly less specific than the finished one.
type PartialStruct struct {
	*Struct
}

func NewPartialStruct(name string, size int) *PartialStruct {
	return &PartialStruct{Struct: NewStruct(name, nil, size)}
}

func (p *PartialStruct) Kind() Kind { return KindPartialStruct }

// AddField commits a newly discovered field to the in-progress layout, in
// offset order, unless a field already occupies that offset.
func (p *PartialStruct) AddField(f Field) {
	for _, existing := range p.Fields {
		if existing.Offset == f.Offset {
			return
		}
	}
	p.Fields = append(p.Fields, f)
}

// PartialUnion is the union analogue of PartialStruct: a union whose
// alternative set is still being discovered.
type PartialUnion struct {
	*Union
}

func NewPartialUnion(name string, size int) *PartialUnion {
	return &PartialUnion{Union: NewUnion(name, nil, size)}
}

func (p *PartialUnion) Kind() Kind { return KindPartialUnion }

func (p *PartialUnion) AddAlt(f Field) {
	for _, existing := range p.Alts {
		if existing.Offset == f.Offset && Equal(existing.Type, f.Type) {
			return
		}
	}
	p.Alts = append(p.Alts, f)
}

// Enum is an integral type restricted to a named set of values.
type Enum struct {
	Name       string
	Underlying Datatype
	Values     map[int64]string
}

func NewEnum(name string, underlying Datatype, values map[int64]string) *Enum {
	return &Enum{Name: name, Underlying: underlying, Values: values}
}

func (e *Enum) String() string { return "enum " + e.Name }
func (*Enum) Kind() Kind       { return KindEnum }
func (e *Enum) Size() int      { return e.Underlying.Size() }

func (e *Enum) Equal(other Datatype) bool {
	oe, ok := other.(*Enum)
	return ok && oe.Name == e.Name
}

// NameOf returns the symbolic name bound to v, if any.
func (e *Enum) NameOf(v int64) (string, bool) {
	name, ok := e.Values[v]
	return name, ok
}
