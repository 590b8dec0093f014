package typeprop

import (
	"github.com/tsgates/pcodec/internal/datatype"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
)

// AccessKey names one read or write site of a union-typed varnode: either
// an op's input slot, or (Slot == OutputSlot) the op that defines it.
// internal/cast's union-resolution step (§4.11) looks up the same key to
// find the field chosen here instead of re-deriving it.
type AccessKey struct {
	Op   *ir.PcodeOp
	Slot int
}

// OutputSlot marks an AccessKey naming the defining op of a union-typed
// varnode, as opposed to one of its readers' input slots.
const OutputSlot = -1

// ResolveUnions implements findResolve(op, slot) (§3, §4.8, §4.11) for
// every union-typed varnode reachable in f: for each such varnode, and
// for each op that reads or defines it, it asks the union which
// alternative best matches the access width at that specific site and
// records the choice. A SUBPIECE reader narrows the union to the width of
// its own output, the same "access width" SUBPIECE already carries for
// rule/catalog's piece-algebra rules; any other reader or the defining op
// itself is assumed to access the union at its full declared width.
func ResolveUnions(f *ir.Funcdata) map[AccessKey]datatype.Field {
	resolved := make(map[AccessKey]datatype.Field)
	for _, v := range f.AllVarnodes() {
		u, ok := v.LocalType().(*datatype.Union)
		if !ok {
			continue
		}
		if def := v.Def(); def != nil {
			if field, ok := u.Resolve(v.Size()); ok {
				resolved[AccessKey{Op: def, Slot: OutputSlot}] = field
			}
		}
		for _, reader := range v.Descendants() {
			for slot := 0; slot < reader.NumInputs(); slot++ {
				if reader.Input(slot) != v {
					continue
				}
				if field, ok := u.Resolve(accessWidth(reader, v)); ok {
					resolved[AccessKey{Op: reader, Slot: slot}] = field
				}
			}
		}
	}
	return resolved
}

// accessWidth returns the width reader actually reads v at: its own
// output width when it narrows v with a SUBPIECE, v's full width
// otherwise.
func accessWidth(reader *ir.PcodeOp, v *ir.Varnode) int {
	if reader.Opcode() == pcode.SUBPIECE && reader.Output() != nil {
		return reader.Output().Size()
	}
	return v.Size()
}
