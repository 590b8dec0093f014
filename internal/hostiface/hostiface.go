// Package hostiface names the external collaborators of §6 as Go
// interfaces only: everything the core decompilation engine consults or
// is consulted by, but never implements itself. A host embedding this
// engine supplies concrete types for each; the engine's own packages
// (internal/ir, internal/proto, internal/cfg, internal/diag) define the
// data shapes these contracts trade in, so that a host implementation
// speaks the same vocabulary the core does rather than a translation
// layer's own.
package hostiface

import (
	"github.com/tsgates/pcodec/internal/cfg"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/proto"
	"github.com/tsgates/pcodec/internal/sla"
)

// Loader is the image-byte and symbol-table collaborator: load/loadFill
// plus symbol enumeration, read-only region list, architecture
// identification and VMA adjustment, exactly as enumerated in §6.
type Loader interface {
	// Load returns size bytes starting at addr, or an error (including a
	// well-defined "data unavailable" sentinel on a miss) if they cannot
	// all be supplied.
	Load(addr sla.Address, size int) ([]byte, error)
	// LoadFill fills buf from addr, returning the number of bytes
	// actually available (which may be less than len(buf), unlike Load).
	LoadFill(buf []byte, addr sla.Address) (int, error)
	Symbols() SymbolIterator
	ReadOnlyRegions() []proto.Storage
	Architecture() string
	AdjustVMA(delta int64)
}

// SymbolIterator is the open/next/close symbol-enumeration shape §6
// names explicitly, rather than a single slice-returning call — so a
// host backed by a large symbol table need not materialise it all at
// once.
type SymbolIterator interface {
	Open() error
	Next() (name string, addr sla.Address, ok bool)
	Close() error
}

// FloatFormat describes one IEEE-754-family encoding a Translator
// supports, keyed by operand size.
type FloatFormat struct {
	Size        int
	Exponent    int
	Significand int
}

// Translator is the disassembly collaborator: raw bytes in, p-code ops
// appended directly to the caller's function container out, plus the
// ambient facts (float formats, endianness, alignment, join-address
// construction) the rest of the pipeline needs but cannot derive from
// the p-code alone.
type Translator interface {
	// Disassemble decodes one instruction's worth of bytes at addr,
	// appending its p-code ops to the end of block, and returns the
	// number of bytes consumed.
	Disassemble(f *ir.Funcdata, block *ir.Block, addr sla.Address, bytes []byte) (consumed int, err error)
	RegisterName(addr sla.Address, size int) string
	FloatFormat(size int) (FloatFormat, bool)
	BigEndian() bool
	Alignment() int
	// ConstructJoinAddress builds the synthetic address representing a
	// value split across multiple storage pieces (most-significant
	// piece first), the address space internal/split's recomposition
	// forms ultimately feed a materialised whole's storage from.
	ConstructJoinAddress(pieces []proto.Storage) sla.Address
}

// ContextDB is keyed by (address range, property id) -> integer,
// consulted for tracked-register values and constant-base seeding
// (§6); internal/proto.StackPointerFlow's ExtraPop guess is exactly the
// kind of value a host would otherwise source from here when it is
// known rather than inferred.
type ContextDB interface {
	Get(rng proto.Storage, property string) (int64, bool)
	Set(rng proto.Storage, property string, value int64)
}

// PrototypeModel is the calling-convention collaborator: given a
// prototype-pieces description (parameter list plus return type), it
// assigns concrete storage, mirroring internal/proto's own
// FuncProto/ParamTrial vocabulary so a host's calling-convention
// database and the core's active-trial evidence system speak about the
// same Storage values.
type PrototypeModel interface {
	Name() string
	AssignStorage(params []proto.Parameter, output proto.Parameter) (*proto.FuncProto, error)
	DeriveInputMap(trial *proto.ParamTrial) (proto.Storage, bool)
	DeriveOutputMap(ret proto.Parameter) (proto.Storage, bool)
	// AssumedInputExtension/AssumedOutputExtension report the opcode (if
	// any) this model's ABI implicitly applies when a value narrower
	// than the slot's natural width is passed or returned, and the width
	// it is extended to.
	AssumedInputExtension(size int) (op pcode.Opcode, extendedSize int, ok bool)
	AssumedOutputExtension(size int) (op pcode.Opcode, extendedSize int, ok bool)
	PossibleInputParam(storage proto.Storage) bool
	UnjustifiedInputParam(storage proto.Storage) bool
}

// InjectPayload is one named body-replacement or entry-point injection,
// applied at a specific call site or function entry by expanding into
// further p-code ops inserted there.
type InjectPayload interface {
	Apply(f *ir.Funcdata, site *ir.PcodeOp) error
}

// InjectKind classifies what an InjectLibrary entry replaces (§6:
// CALLFIXUP, CALLOTHERFIXUP, inject-upon-entry).
type InjectKind int

const (
	InjectCallFixup InjectKind = iota
	InjectCallOtherFixup
	InjectEntry
)

// InjectLibrary resolves a named payload for CALLFIXUP/CALLOTHERFIXUP
// replacement or function-entry injection.
type InjectLibrary interface {
	Lookup(kind InjectKind, name string) (InjectPayload, bool)
}

// CommentKind classifies one CommentDB entry.
type CommentKind int

const (
	CommentWarning CommentKind = iota
	CommentWarningHeader
	CommentUser
	CommentAuto
)

// Comment is one entry of a CommentDB.
type Comment struct {
	Kind CommentKind
	Addr sla.Address
	Text string
}

// CommentDB is the diagnostics-and-annotations collaborator: the engine
// only ever writes warnings and headers through it and iterates typed
// comments back; it never owns comment storage itself.
type CommentDB interface {
	Warning(text string, addr sla.Address)
	WarningHeader(text string)
	Comments(kind CommentKind) []Comment
}

// BlockStructurer is internal/cfg's own collaborator interface (§6),
// re-exported here so every external contract the engine depends on is
// discoverable from one package without internal/cfg needing to import
// internal/hostiface (which would invert the dependency: cfg is a core
// package, hostiface is the boundary around it).
type BlockStructurer = cfg.BlockStructurer

// Emitter consumes the finished HighVariable-typed SSA-plus-structure
// tree, with cast markers already in place (internal/cast has already
// run): §6 specifies op-level emission hooks as the only coupling point,
// so Emit is handed the structured tree and the function container it
// overlays rather than anything engine-internal.
type Emitter interface {
	Emit(f *ir.Funcdata, structure *cfg.StructuredBlock) (string, error)
}
