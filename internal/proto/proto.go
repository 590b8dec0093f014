// Package proto implements §4.9's prototype and parameter recovery layer:
// FuncProto (a recovered calling convention), FuncCallSpecs (the active
// trial set a call site accumulates evidence into), the stack-pointer
// flow equations a convention's storage offsets are resolved against, and
// a small LRU-backed registry so one function's recovered prototype can
// be reused when another call site targets the same entry address.
//
// The parameter/freevar bookkeeping shape is grounded on the teacher's
// lang/compiler.Funcode (Locals, Cells, Freevars, NumParams,
// NumKwonlyParams, HasVarargs/HasKwargs): a fixed leading parameter list
// plus flags, generalised from a closure's compiled frame layout to a
// recovered native calling convention.
package proto

import (
	"fmt"

	"github.com/tsgates/pcodec/internal/datatype"
	"github.com/tsgates/pcodec/internal/sla"
)

// Storage names one parameter or return-value location: an address plus
// the number of bytes the convention reserves there.
type Storage struct {
	Addr sla.Address
	Size int
}

func (s Storage) String() string { return fmt.Sprintf("%s:%d", s.Addr, s.Size) }

// Overlaps reports whether s and o name intersecting storage.
func (s Storage) Overlaps(o Storage) bool {
	return sla.Overlap(s.Addr, s.Size, o.Addr, o.Size)
}

// Parameter is one named, typed, located formal parameter or the return
// value slot of a FuncProto.
type Parameter struct {
	Name    string
	Type    datatype.Datatype
	Storage Storage
}

// Flag is a lock/shape bit on a FuncProto, mirroring Funcode's
// HasVarargs/HasKwargs boolean fields generalised into a bitmask
// alongside the lock flags §3 names for prototypes.
type Flag uint8

const (
	FlagInputLock Flag = 1 << iota
	FlagOutputLock
	FlagVarargs
	FlagExtraPopUnknown
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// FuncProto is a recovered (or user-supplied) function prototype: an
// ordered input parameter list — leading parameters first, exactly the
// convention Funcode.Locals[:NumParams] uses for its fixed arguments —
// plus an output slot, the calling-model name it was resolved against,
// and the stack-cleanup adjustment (ExtraPop) that model needs.
type FuncProto struct {
	Name     string
	Model    string
	Params   []Parameter
	Output   Parameter
	ExtraPop int
	Flags    Flag
}

// NewFuncProto builds an unlocked prototype under the named calling
// model.
func NewFuncProto(name, model string) *FuncProto {
	return &FuncProto{Name: name, Model: model}
}

func (p *FuncProto) HasVarargs() bool     { return p.Flags.Has(FlagVarargs) }
func (p *FuncProto) InputLocked() bool    { return p.Flags.Has(FlagInputLock) }
func (p *FuncProto) OutputLocked() bool   { return p.Flags.Has(FlagOutputLock) }
func (p *FuncProto) ExtraPopKnown() bool  { return !p.Flags.Has(FlagExtraPopUnknown) }

// NumParams mirrors Funcode.NumParams: the count of fixed leading
// parameters, excluding anything a varargs tail would add.
func (p *FuncProto) NumParams() int { return len(p.Params) }

// SetParams replaces the parameter list, refusing the write if the input
// side is locked.
func (p *FuncProto) SetParams(params []Parameter) bool {
	if p.InputLocked() {
		return false
	}
	p.Params = params
	return true
}

// SetOutput replaces the return-value slot, refusing the write if the
// output side is locked.
func (p *FuncProto) SetOutput(out Parameter) bool {
	if p.OutputLocked() {
		return false
	}
	p.Output = out
	return true
}
