package ir

// HighVariable is the merge-group of varnode instances the emitter
// presents as a single source-level variable (§3).
type HighVariable struct {
	members []*Varnode
	symbol  interface{} // opaque Symbol pointer, set by internal/symbol
	symbolOffset int64
	unmergeable  bool
	dtype        interface{} // opaque Datatype, set by internal/typeprop
}

func NewHighVariable() *HighVariable { return &HighVariable{} }

func (h *HighVariable) Members() []*Varnode { return append([]*Varnode(nil), h.members...) }

func (h *HighVariable) Add(v *Varnode) {
	if v.high == h {
		return
	}
	h.members = append(h.members, v)
	v.high = h
}

func (h *HighVariable) Size() int {
	if len(h.members) == 0 {
		return 0
	}
	return h.members[0].Size()
}

func (h *HighVariable) Unmergeable() bool    { return h.unmergeable }
func (h *HighVariable) MarkUnmergeable()     { h.unmergeable = true }
func (h *HighVariable) Symbol() interface{}  { return h.symbol }
func (h *HighVariable) SetSymbol(s interface{}, offset int64) {
	h.symbol = s
	h.symbolOffset = offset
}
func (h *HighVariable) SymbolOffset() int64 { return h.symbolOffset }
func (h *HighVariable) Datatype() interface{}     { return h.dtype }
func (h *HighVariable) SetDatatype(t interface{}) { h.dtype = t }

// Merge unifies two HighVariables that have been found to refer to the
// same logical value (§3 invariant 8): all members of other move into h.
// Mismatched member sizes are an invariant violation the caller must have
// already ruled out.
func (h *HighVariable) Merge(other *HighVariable) {
	if h == other {
		return
	}
	for _, v := range other.members {
		v.high = h
		h.members = append(h.members, v)
	}
	other.members = nil
}
