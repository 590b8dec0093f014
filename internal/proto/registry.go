package proto

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tsgates/pcodec/internal/sla"
)

// Registry caches recovered prototypes by their function's entry address,
// so resolving an indirect call whose target has already been analysed
// elsewhere in the same run can reuse that prototype instead of
// re-deriving it from scratch.
type Registry struct {
	cache *lru.Cache[sla.Address, *FuncProto]
}

// NewRegistry builds a registry holding at most size prototypes, evicting
// least-recently-used entries once full.
func NewRegistry(size int) (*Registry, error) {
	c, err := lru.New[sla.Address, *FuncProto](size)
	if err != nil {
		return nil, err
	}
	return &Registry{cache: c}, nil
}

// Bind records proto as the recovered prototype for the function entered
// at addr.
func (r *Registry) Bind(addr sla.Address, proto *FuncProto) {
	r.cache.Add(addr, proto)
}

// Lookup returns the prototype bound to addr, if any.
func (r *Registry) Lookup(addr sla.Address) (*FuncProto, bool) {
	return r.cache.Get(addr)
}

// Len reports how many prototypes are currently cached.
func (r *Registry) Len() int { return r.cache.Len() }
