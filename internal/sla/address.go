package sla

import "fmt"

// Address is a (space, offset) pair: a single static storage coordinate.
// Addresses are totally ordered: first by space index, then by offset.
type Address struct {
	Space  *Space
	Offset uint64
}

// Compare implements the total order over addresses: by space index, then
// by offset. It returns -1, 0 or 1.
func (a Address) Compare(b Address) int {
	ai, bi := spaceIndex(a.Space), spaceIndex(b.Space)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	case a.Offset < b.Offset:
		return -1
	case a.Offset > b.Offset:
		return 1
	default:
		return 0
	}
}

func spaceIndex(s *Space) int {
	if s == nil {
		return -1
	}
	return s.index
}

func (a Address) IsInvalid() bool { return a.Space == nil }

func (a Address) String() string {
	if a.Space == nil {
		return "<invalid>"
	}
	return fmt.Sprintf("%s:0x%x", a.Space.Name(), a.Offset)
}

// Overlap reports whether the span [a,a+szA) intersects [b,b+szB), climbing
// the overlay chain so that an overlay space is recognized as intersecting
// a query expressed against the space it shadows.
func Overlap(a Address, szA int, b Address, szB int) bool {
	if !sameUnderlyingSpace(a.Space, b.Space) {
		return false
	}
	aEnd := a.Offset + uint64(szA)
	bEnd := b.Offset + uint64(szB)
	return a.Offset < bEnd && b.Offset < aEnd
}

// Contains reports whether the span [outer,outer+szOuter) fully covers
// [inner,inner+szInner).
func Contains(outer Address, szOuter int, inner Address, szInner int) bool {
	if !sameUnderlyingSpace(outer.Space, inner.Space) {
		return false
	}
	return outer.Offset <= inner.Offset && inner.Offset+uint64(szInner) <= outer.Offset+uint64(szOuter)
}

func sameUnderlyingSpace(a, b *Space) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	return a.overlays(b) || b.overlays(a)
}

// ConstructJoinAddress synthesises an address in the JOIN space that
// represents the logical concatenation of a high-order range [hi,hi+hiSize)
// and a low-order range [lo,lo+loSize). The Manager caches the mapping so
// that the same pair of ranges always yields the same join address.
func (m *Manager) ConstructJoinAddress(hi Address, hiSize int, lo Address, loSize int) Address {
	if m.join == nil {
		panic("sla: no join space installed")
	}
	key := joinKey{hi: hi, hiSize: hiSize, lo: lo, loSize: loSize}
	off, ok := m.joinCache().get(key)
	if !ok {
		off = m.nextJoinOffset()
		m.joinCache().put(key, off)
	}
	return Address{Space: m.join, Offset: off}
}
