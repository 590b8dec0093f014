package proto

import (
	"sort"

	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

// TrialState is a candidate parameter storage location's evidence level,
// refined across successive passes over a call site's uses (§4.9
// ParamTrial/ParamActive).
type TrialState uint8

const (
	// TrialInactive candidates are still in play but unused so far.
	TrialInactive TrialState = iota
	// TrialActive candidates have at least one use that looks like a
	// real argument read.
	TrialActive
	// TrialUsed candidates have been folded into the call's actual
	// input list.
	TrialUsed
	// TrialFullyChecked candidates have had every input consumer
	// examined; MarkActive leaves them unchanged, and AssignFormals still
	// moves a committed one to TrialUsed.
	TrialFullyChecked
)

// ParamTrial is one candidate parameter-storage location at a specific
// call site, with the evidence level accumulated for it so far.
type ParamTrial struct {
	Storage Storage
	State   TrialState
}

// BuildTrials seeds one inactive trial per candidate storage location a
// calling model offers, in the model's preference order.
func BuildTrials(candidates []Storage) []*ParamTrial {
	trials := make([]*ParamTrial, len(candidates))
	for i, c := range candidates {
		trials[i] = &ParamTrial{Storage: c}
	}
	return trials
}

// FuncCallSpecs is the per-call-site record ActionActiveParam /
// ActionReturnRecovery accumulate trial evidence into as they walk a
// CALL/CALLIND op's surrounding INDIRECT and LOAD chain.
type FuncCallSpecs struct {
	CallOp *ir.PcodeOp
	Proto  *FuncProto
	Trials []*ParamTrial
}

// NewFuncCallSpecs seeds a call site's trial set from candidates.
func NewFuncCallSpecs(callOp *ir.PcodeOp, candidates []Storage) *FuncCallSpecs {
	return &FuncCallSpecs{CallOp: callOp, Trials: BuildTrials(candidates)}
}

// MarkActive marks any trial whose storage contains [addr,addr+size) as
// reached by a real use.
func (cs *FuncCallSpecs) MarkActive(s Storage) {
	for _, t := range cs.Trials {
		if t.State == TrialFullyChecked {
			continue
		}
		if sla.Contains(t.Storage.Addr, t.Storage.Size, s.Addr, s.Size) {
			t.State = TrialActive
		}
	}
}

// FullyCheck marks every active trial as having had its evidence fully
// examined. Inactive and used trials keep their state; a fully checked
// trial is no longer changed by MarkActive, though AssignFormals still
// marks it used when it commits it.
func (cs *FuncCallSpecs) FullyCheck() {
	for _, t := range cs.Trials {
		if t.State == TrialActive {
			t.State = TrialFullyChecked
		}
	}
}

// ActiveTrials returns the trials that accumulated real-use evidence,
// ordered by storage address — the order AssignFormals commits them to
// the call's formal input list in.
func (cs *FuncCallSpecs) ActiveTrials() []*ParamTrial {
	var active []*ParamTrial
	for _, t := range cs.Trials {
		if t.State == TrialActive || t.State == TrialUsed || t.State == TrialFullyChecked {
			active = append(active, t)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].Storage.Addr.Compare(active[j].Storage.Addr) < 0
	})
	return active
}

// AssignFormals rewrites the call op's input list (beyond the callee
// target at slot 0) to exactly the varnodes that satisfy the active
// trials, looking each one up by its recovered storage address via
// f.BeginLocSizeAddr, and marks every trial it committed as used.
func (cs *FuncCallSpecs) AssignFormals(f *ir.Funcdata) {
	inputs := []*ir.Varnode{cs.CallOp.Input(0)}
	for _, t := range cs.ActiveTrials() {
		vn, ok := f.BeginLocSizeAddr(t.Storage.Size, t.Storage.Addr)
		if !ok {
			continue
		}
		inputs = append(inputs, vn)
		t.State = TrialUsed
	}
	f.OpSetAllInput(cs.CallOp, inputs)
}

// SplitDoubleParam detects a PIECE feeding the call's input at slot and,
// if the PIECE's two halves line up with a pair of adjacent single-width
// trials, replaces that pair with one merged double-width trial (§4.9
// "double-parameter detection": a wide argument passed as two halves
// combined right before the call).
func (cs *FuncCallSpecs) SplitDoubleParam(slot int) bool {
	if slot < 0 || slot >= cs.CallOp.NumInputs() {
		return false
	}
	arg := cs.CallOp.Input(slot)
	def := arg.Def()
	if def == nil || def.Opcode() != pcode.PIECE {
		return false
	}
	hi, lo := def.Input(0), def.Input(1)
	hiStorage := Storage{Addr: hi.Address(), Size: hi.Size()}
	loStorage := Storage{Addr: lo.Address(), Size: lo.Size()}

	var hiTrial, loTrial *ParamTrial
	for _, t := range cs.Trials {
		if t.Storage == hiStorage {
			hiTrial = t
		}
		if t.Storage == loStorage {
			loTrial = t
		}
	}
	if hiTrial == nil || loTrial == nil {
		return false
	}

	merged := Storage{Addr: loStorage.Addr, Size: hiStorage.Size + loStorage.Size}
	cs.Trials = append(cs.Trials, &ParamTrial{Storage: merged, State: TrialActive})
	cs.removeTrial(hiTrial)
	cs.removeTrial(loTrial)
	return true
}

func (cs *FuncCallSpecs) removeTrial(target *ParamTrial) {
	out := cs.Trials[:0]
	for _, t := range cs.Trials {
		if t != target {
			out = append(out, t)
		}
	}
	cs.Trials = out
}

// PackReturnPair implements the reverse of SplitDoubleParam for return
// values: when every use of a call's two declared half-width outputs
// (lo, hi) joins them back together with the same PIECE shape, the two
// halves are really one wide return value and should be reported as such
// instead of two separate outputs.
func PackReturnPair(lo, hi *ir.Varnode) (Storage, bool) {
	if len(lo.Descendants()) == 0 {
		return Storage{}, false
	}
	for _, use := range lo.Descendants() {
		if use.Opcode() != pcode.PIECE || use.NumInputs() != 2 {
			return Storage{}, false
		}
		if use.Input(0) != hi || use.Input(1) != lo {
			return Storage{}, false
		}
	}
	return Storage{Addr: lo.Address(), Size: lo.Size() + hi.Size()}, true
}

// AncestorRealistic walks backward from vn through COPY and MULTIEQUAL
// (phi) chains, up to maxHops, looking for a definition by some other
// real operation — evidence that vn is a plausible return value rather
// than a storage location nothing ever actually wrote to. It returns
// false if it runs out of hops or bottoms out at an input varnode with no
// defining op at all.
func AncestorRealistic(vn *ir.Varnode, maxHops int) bool {
	cur := vn
	for hops := 0; hops < maxHops; hops++ {
		def := cur.Def()
		if def == nil {
			return false
		}
		switch def.Opcode() {
		case pcode.MULTIEQUAL, pcode.COPY:
			if def.NumInputs() == 0 {
				return false
			}
			cur = def.Input(0)
		default:
			return true
		}
	}
	return false
}
