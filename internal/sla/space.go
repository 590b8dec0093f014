// Package sla implements address spaces and varnode-identity primitives:
// the typed storage coordinates that every other package in the engine
// builds on.
package sla

import "fmt"

// SpaceType classifies the kind of storage an AddrSpace models.
type SpaceType uint8

const (
	SpaceConstant SpaceType = iota
	SpaceProcessor          // "ram": real machine memory
	SpaceRegister
	SpaceUnique // temporaries invented by the translator
	SpaceInternal
	SpaceFSpec    // encodes a function prototype as a pseudo-address
	SpaceIOP      // encodes a PcodeOp as a pseudo-address (for INDIRECT)
	SpaceJoin     // concatenation of discontiguous storage
	SpaceOther
)

func (t SpaceType) String() string {
	switch t {
	case SpaceConstant:
		return "constant"
	case SpaceProcessor:
		return "ram"
	case SpaceRegister:
		return "register"
	case SpaceUnique:
		return "unique"
	case SpaceInternal:
		return "internal"
	case SpaceFSpec:
		return "fspec"
	case SpaceIOP:
		return "iop"
	case SpaceJoin:
		return "join"
	default:
		return "other"
	}
}

// Space is a named region of storage, process-wide and immutable once
// installed in a Manager. Spaces are compared and ordered by Index.
type Space struct {
	name       string
	index      int
	wordSize   int // bytes per addressable unit
	addrSize   int // bytes in an address/offset
	bigEndian  bool
	kind       SpaceType
	delay      int // number of passes before dead-code removal is trusted
	deadDelay  int
	contains   *Space // non-nil for an overlay space
}

func newSpace(name string, index, wordSize, addrSize int, bigEndian bool, kind SpaceType) *Space {
	return &Space{
		name:      name,
		index:     index,
		wordSize:  wordSize,
		addrSize:  addrSize,
		bigEndian: bigEndian,
		kind:      kind,
	}
}

func (s *Space) Name() string       { return s.name }
func (s *Space) Index() int         { return s.index }
func (s *Space) WordSize() int      { return s.wordSize }
func (s *Space) AddrSize() int      { return s.addrSize }
func (s *Space) BigEndian() bool    { return s.bigEndian }
func (s *Space) Type() SpaceType    { return s.kind }
func (s *Space) Delay() int         { return s.delay }
func (s *Space) DeadCodeDelay() int { return s.deadDelay }

// overlays reports whether s is other, or shadows other through a chain of
// one or more overlay links. Overlap and Contains use it so that an
// overlay space and the space it shadows count as the same storage.
func (s *Space) overlays(other *Space) bool {
	for cur := s; cur != nil; cur = cur.contains {
		if cur == other {
			return true
		}
	}
	return false
}

// Manager owns the process-wide, immutable-after-setup set of address
// spaces for one architecture. It is shared read-mostly across every
// function decompilation.
type Manager struct {
	spaces        []*Space
	byName        map[string]*Space
	constant      *Space
	unique        *Space
	join          *Space
	joinCacheImpl *joinCacheT
}

// NewManager creates an empty space manager. Use AddSpace to populate it
// during setup; after setup the Manager is treated as read-only.
func NewManager() *Manager {
	return &Manager{byName: make(map[string]*Space)}
}

// AddSpace installs a new space and returns it. Index is assigned in
// insertion order.
func (m *Manager) AddSpace(name string, wordSize, addrSize int, bigEndian bool, kind SpaceType) *Space {
	sp := newSpace(name, len(m.spaces), wordSize, addrSize, bigEndian, kind)
	m.spaces = append(m.spaces, sp)
	m.byName[name] = sp
	switch kind {
	case SpaceConstant:
		m.constant = sp
	case SpaceUnique:
		m.unique = sp
	case SpaceJoin:
		m.join = sp
	}
	return sp
}

// AddOverlay installs an overlay space that shadows an existing space; the
// new space inherits size/endianness from the space it overlays.
func (m *Manager) AddOverlay(name string, contains *Space) *Space {
	sp := m.AddSpace(name, contains.wordSize, contains.addrSize, contains.bigEndian, contains.kind)
	sp.contains = contains
	return sp
}

func (m *Manager) GetSpace(index int) *Space {
	if index < 0 || index >= len(m.spaces) {
		return nil
	}
	return m.spaces[index]
}

func (m *Manager) GetSpaceByName(name string) *Space {
	return m.byName[name]
}

func (m *Manager) ConstantSpace() *Space { return m.constant }
func (m *Manager) UniqueSpace() *Space   { return m.unique }
func (m *Manager) JoinSpace() *Space     { return m.join }

// AddressToByte converts an address space offset (in addressable units of
// wordSize bytes) to a byte offset.
func AddressToByte(off uint64, wordSize int) uint64 {
	return off * uint64(wordSize)
}

// ByteToAddress is the inverse of AddressToByte.
func ByteToAddress(byteOff uint64, wordSize int) uint64 {
	if wordSize <= 1 {
		return byteOff
	}
	return byteOff / uint64(wordSize)
}

func (m *Manager) String() string {
	return fmt.Sprintf("spaces(%d)", len(m.spaces))
}
