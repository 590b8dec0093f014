// Package sched implements the post-loop dependency scheduler (§4.12): a
// DAG built from each post-loop action's declared read-set/write-set over
// named IR regions, reduced to topologically ordered wavefronts. Running
// every wavefront as a flattened sequence is always a valid schedule; the
// wavefronts only matter to a caller that wants to run same-wavefront
// actions concurrently.
package sched

import "github.com/tsgates/pcodec/internal/action"

// Region names one disjoint slice of function state a post-loop action
// may read or write (§4.12's closed list).
type Region string

const (
	RegionPcodeOps      Region = "pcode_ops"
	RegionVarnodes      Region = "varnodes"
	RegionSSA           Region = "ssa"
	RegionBlockGraph    Region = "block_graph"
	RegionTypes         Region = "types"
	RegionSymbols       Region = "symbols"
	RegionComments      Region = "comments"
	RegionHighVariables Region = "high_variables"
	RegionMergeState    Region = "merge_state"
	RegionCasts         Region = "casts"
)

// Task pairs a post-loop action.Action with the regions it declares
// touching, so the scheduler never has to inspect the action's body to
// know what it may conflict with.
type Task struct {
	Action action.Action
	Reads  []Region
	Writes []Region
}

func (t Task) readsRegion(r Region) bool  { return containsRegion(t.Reads, r) }
func (t Task) writesRegion(r Region) bool { return containsRegion(t.Writes, r) }

func containsRegion(set []Region, r Region) bool {
	for _, s := range set {
		if s == r {
			return true
		}
	}
	return false
}

// hazard reports whether b must run after a: a RAW hazard (a writes what
// b reads), a WAW hazard (both write the same region), or a WAR hazard (a
// reads what b writes).
func hazard(a, b Task) bool {
	for _, r := range a.Writes {
		if b.readsRegion(r) || b.writesRegion(r) {
			return true
		}
	}
	for _, r := range a.Reads {
		if b.writesRegion(r) {
			return true
		}
	}
	return false
}
