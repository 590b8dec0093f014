package sla

import "github.com/dolthub/swiss"

// joinKey identifies a pair of storage ranges being fused into one logical
// value; it is the cache key for join-address synthesis.
type joinKey struct {
	hi     Address
	hiSize int
	lo     Address
	loSize int
}

// joinCacheT wraps a swiss.Map so that Manager doesn't need to expose the
// underlying hash-map choice to callers.
type joinCacheT struct {
	m      *swiss.Map[joinKey, uint64]
	nextID uint64
}

func (m *Manager) joinCache() *joinCacheT {
	if m.joinCacheImpl == nil {
		m.joinCacheImpl = &joinCacheT{m: swiss.NewMap[joinKey, uint64](uint32(8))}
	}
	return m.joinCacheImpl
}

func (c *joinCacheT) get(k joinKey) (uint64, bool) {
	return c.m.Get(k)
}

func (c *joinCacheT) put(k joinKey, off uint64) {
	c.m.Put(k, off)
}

func (m *Manager) nextJoinOffset() uint64 {
	c := m.joinCache()
	id := c.nextID
	c.nextID++
	return id
}
