package ir

import (
	"fmt"

	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

// OFlag is a bit in a PcodeOp's flag set (§3).
type OFlag uint32

const (
	ODead OFlag = 1 << iota
	OMarker
	OAssignment
	OBoolOutput
	OBooleanFlip
	ONoCollapse
	OIndirectSource
	OHaltType
	OReturnCopy
	OStoreUnmapped
	OSpecialPrint
	OCalculatedBool
)

func (f OFlag) Has(bit OFlag) bool { return f&bit != 0 }

// SeqNum is the (address, within-address order) pair that totally orders
// every op within the function (§3 invariant 3).
type SeqNum struct {
	Addr  sla.Address
	Order int
}

func (s SeqNum) Less(o SeqNum) bool {
	if c := s.Addr.Compare(o.Addr); c != 0 {
		return c < 0
	}
	return s.Order < o.Order
}

// PcodeOp is one operation node.
type PcodeOp struct {
	id     int
	opcode pcode.Opcode
	seq    SeqNum
	flags  OFlag

	block  *Block
	inputs []*Varnode
	output *Varnode

	// indexWithinBlock is maintained by Block to support O(1) removal and
	// insertion-order iteration; it is not part of the public contract.
	indexWithinBlock int
}

func (o *PcodeOp) ID() int              { return o.id }
func (o *PcodeOp) Opcode() pcode.Opcode  { return o.opcode }
func (o *PcodeOp) SeqNum() SeqNum        { return o.seq }
func (o *PcodeOp) Block() *Block         { return o.block }
func (o *PcodeOp) Output() *Varnode      { return o.output }
func (o *PcodeOp) Flags() OFlag          { return o.flags }
func (o *PcodeOp) IsDead() bool          { return o.flags.Has(ODead) }

func (o *PcodeOp) SetFlag(f OFlag)   { o.flags |= f }
func (o *PcodeOp) ClearFlag(f OFlag) { o.flags &^= f }

func (o *PcodeOp) NumInputs() int { return len(o.inputs) }

func (o *PcodeOp) Input(slot int) *Varnode {
	if slot < 0 || slot >= len(o.inputs) {
		return nil
	}
	return o.inputs[slot]
}

// Inputs returns a snapshot of the op's input slots.
func (o *PcodeOp) Inputs() []*Varnode {
	out := make([]*Varnode, len(o.inputs))
	copy(out, o.inputs)
	return out
}

func (o *PcodeOp) IsMarker() bool {
	return o.opcode.IsMarker()
}

func (o *PcodeOp) String() string {
	out := "-"
	if o.output != nil {
		out = o.output.String()
	}
	return fmt.Sprintf("%s = %s(%d inputs)", out, o.opcode, len(o.inputs))
}
