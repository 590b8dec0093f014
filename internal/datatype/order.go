package datatype

import "golang.org/x/exp/slices"

// rank assigns a specificity tier to each kind; higher tiers dominate the
// lattice meet (§4.8 phase 1: "choosing the most specific compatible
// candidate"). Unknown and Void sit at the bottom; composites with a
// committed layout outrank their "partial" counterparts, which in turn
// outrank the bare scalars they're built from.
var rank = [kindCount]int{
	KindUnknown:       0,
	KindVoid:          0,
	KindSpacebase:     1,
	KindBool:          2,
	KindInt:           2,
	KindUint:          2,
	KindFloat:         2,
	KindEnum:          3,
	KindPartialStruct: 3,
	KindPartialUnion:  3,
	KindPtr:           4,
	KindArray:         4,
	KindCode:          4,
	KindPtrRel:        5,
	KindStruct:        6,
	KindUnion:         6,
}

// Specificity returns d's rank in the lattice's partial order: higher
// values are more specific.
func Specificity(d Datatype) int {
	if d == nil {
		return -1
	}
	return rank[d.Kind()]
}

// TypeOrder orders a and b by specificity, most specific first (negative
// when a is more specific than b), the comparison golang.org/x/exp/slices
// sorts candidate types by before the lattice meet picks the head.
func TypeOrder(a, b Datatype) int {
	sa, sb := Specificity(a), Specificity(b)
	switch {
	case sa > sb:
		return -1
	case sa < sb:
		return 1
	default:
		return 0
	}
}

// Meet returns the most specific of candidates, resolving ties by keeping
// the first candidate encountered (stable sort), per §4.8 phase 1's
// "choosing the most specific compatible candidate" rule. Returns nil for
// an empty candidate set.
func Meet(candidates []Datatype) Datatype {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]Datatype(nil), candidates...)
	slices.SortStableFunc(sorted, TypeOrder)
	return sorted[0]
}

// MoreSpecific reports whether candidate is strictly more specific than
// current, the test §4.8 phase 2 uses to decide whether a type pushed
// across a propagation edge should replace the destination's current
// type.
func MoreSpecific(candidate, current Datatype) bool {
	return TypeOrder(candidate, current) < 0
}
