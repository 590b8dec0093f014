package ir

import (
	"fmt"
	"strings"
)

// Dump renders a human-readable trace of a function's current IR state,
// including liveness and SSA merge-group annotations the round-trippable
// Dasm format deliberately omits. Intended for CLI inspection and test
// failure output, not for re-parsing.
func Dump(f *Funcdata) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s  (pass %d)\n", f.Name(), f.heritagePass)

	for i, b := range f.blocks {
		fmt.Fprintf(&sb, "block %d (id=%d):\n", i, b.id)
		for _, e := range b.out {
			fmt.Fprintf(&sb, "  -> block %d [%s]\n", e.To.index, edgeKindName(e.Kind))
		}
		for _, op := range b.ops {
			dumpOp(&sb, op)
		}
	}
	return sb.String()
}

func dumpOp(sb *strings.Builder, op *PcodeOp) {
	status := ""
	if op.IsDead() {
		status = " (dead)"
	}
	fmt.Fprintf(sb, "  [%s] ", op.seq.Addr)
	if op.output != nil {
		fmt.Fprintf(sb, "%s", dumpVarnode(op.output))
		if op.output.high != nil {
			fmt.Fprintf(sb, "(hi#%p)", op.output.high)
		}
		sb.WriteString(" = ")
	}
	sb.WriteString(op.opcode.String())
	for _, in := range op.inputs {
		sb.WriteString(" ")
		sb.WriteString(dumpVarnode(in))
	}
	sb.WriteString(status)
	sb.WriteString("\n")
}

func dumpVarnode(v *Varnode) string {
	if v == nil {
		return "<nil>"
	}
	mask := ""
	if v.consumeMask != 0 {
		mask = fmt.Sprintf(" cm=%#x", v.consumeMask)
	}
	return fmt.Sprintf("%s%s", varnodeLiteral(v), mask)
}
