// Package pcode defines the p-code opcode set and its per-opcode behaviour
// tables: the closed, statically-dispatched alternative to open
// subclassing that §9 of the spec calls for.
package pcode

import "fmt"

// Opcode is the closed set of p-code operation kinds (~75 entries per
// spec.md §4.2).
type Opcode uint8

const ( //nolint:revive
	COPY Opcode = iota
	LOAD
	STORE
	SUBPIECE
	PIECE

	BRANCH
	CBRANCH
	BRANCHIND
	CALL
	CALLIND
	CALLOTHER
	RETURN

	INT_ADD
	INT_SUB
	INT_MULT
	INT_DIV
	INT_SDIV
	INT_REM
	INT_SREM
	INT_AND
	INT_OR
	INT_XOR
	INT_NEGATE
	INT_2COMP
	INT_LEFT
	INT_RIGHT
	INT_SRIGHT
	INT_EQUAL
	INT_NOTEQUAL
	INT_LESS
	INT_LESSEQUAL
	INT_SLESS
	INT_SLESSEQUAL
	INT_CARRY
	INT_SCARRY
	INT_SBORROW
	INT_ZEXT
	INT_SEXT

	BOOL_AND
	BOOL_OR
	BOOL_XOR
	BOOL_NEGATE

	FLOAT_ADD
	FLOAT_SUB
	FLOAT_MULT
	FLOAT_DIV
	FLOAT_NEG
	FLOAT_ABS
	FLOAT_SQRT
	FLOAT_EQUAL
	FLOAT_NOTEQUAL
	FLOAT_LESS
	FLOAT_LESSEQUAL
	FLOAT_NAN
	FLOAT_INT2FLOAT
	FLOAT_FLOAT2FLOAT
	FLOAT_TRUNC
	FLOAT_CEIL
	FLOAT_FLOOR
	FLOAT_ROUND

	PTRADD
	PTRSUB

	MULTIEQUAL // aka PHI
	INDIRECT
	CAST

	SEGMENTOP
	CPOOLREF
	NEW
	INSERT
	EXTRACT
	POPCOUNT
	LZCOUNT

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	COPY:     "COPY",
	LOAD:     "LOAD",
	STORE:    "STORE",
	SUBPIECE: "SUBPIECE",
	PIECE:    "PIECE",

	BRANCH:    "BRANCH",
	CBRANCH:   "CBRANCH",
	BRANCHIND: "BRANCHIND",
	CALL:      "CALL",
	CALLIND:   "CALLIND",
	CALLOTHER: "CALLOTHER",
	RETURN:    "RETURN",

	INT_ADD:        "INT_ADD",
	INT_SUB:        "INT_SUB",
	INT_MULT:       "INT_MULT",
	INT_DIV:        "INT_DIV",
	INT_SDIV:       "INT_SDIV",
	INT_REM:        "INT_REM",
	INT_SREM:       "INT_SREM",
	INT_AND:        "INT_AND",
	INT_OR:         "INT_OR",
	INT_XOR:        "INT_XOR",
	INT_NEGATE:     "INT_NEGATE",
	INT_2COMP:      "INT_2COMP",
	INT_LEFT:       "INT_LEFT",
	INT_RIGHT:      "INT_RIGHT",
	INT_SRIGHT:     "INT_SRIGHT",
	INT_EQUAL:      "INT_EQUAL",
	INT_NOTEQUAL:   "INT_NOTEQUAL",
	INT_LESS:       "INT_LESS",
	INT_LESSEQUAL:  "INT_LESSEQUAL",
	INT_SLESS:      "INT_SLESS",
	INT_SLESSEQUAL: "INT_SLESSEQUAL",
	INT_CARRY:      "INT_CARRY",
	INT_SCARRY:     "INT_SCARRY",
	INT_SBORROW:    "INT_SBORROW",
	INT_ZEXT:       "INT_ZEXT",
	INT_SEXT:       "INT_SEXT",

	BOOL_AND:    "BOOL_AND",
	BOOL_OR:     "BOOL_OR",
	BOOL_XOR:    "BOOL_XOR",
	BOOL_NEGATE: "BOOL_NEGATE",

	FLOAT_ADD:         "FLOAT_ADD",
	FLOAT_SUB:         "FLOAT_SUB",
	FLOAT_MULT:        "FLOAT_MULT",
	FLOAT_DIV:         "FLOAT_DIV",
	FLOAT_NEG:         "FLOAT_NEG",
	FLOAT_ABS:         "FLOAT_ABS",
	FLOAT_SQRT:        "FLOAT_SQRT",
	FLOAT_EQUAL:       "FLOAT_EQUAL",
	FLOAT_NOTEQUAL:    "FLOAT_NOTEQUAL",
	FLOAT_LESS:        "FLOAT_LESS",
	FLOAT_LESSEQUAL:   "FLOAT_LESSEQUAL",
	FLOAT_NAN:         "FLOAT_NAN",
	FLOAT_INT2FLOAT:   "FLOAT_INT2FLOAT",
	FLOAT_FLOAT2FLOAT: "FLOAT_FLOAT2FLOAT",
	FLOAT_TRUNC:       "FLOAT_TRUNC",
	FLOAT_CEIL:        "FLOAT_CEIL",
	FLOAT_FLOOR:       "FLOAT_FLOOR",
	FLOAT_ROUND:       "FLOAT_ROUND",

	PTRADD: "PTRADD",
	PTRSUB: "PTRSUB",

	MULTIEQUAL: "MULTIEQUAL",
	INDIRECT:   "INDIRECT",
	CAST:       "CAST",

	SEGMENTOP: "SEGMENTOP",
	CPOOLREF:  "CPOOLREF",
	NEW:       "NEW",
	INSERT:    "INSERT",
	EXTRACT:   "EXTRACT",
	POPCOUNT:  "POPCOUNT",
	LZCOUNT:   "LZCOUNT",
}

var reverseLookup = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// Lookup returns the Opcode named by s, and whether it was found.
func Lookup(s string) (Opcode, bool) {
	op, ok := reverseLookup[s]
	return op, ok
}

func (op Opcode) String() string {
	if op < opcodeCount && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// Count is the number of defined opcodes, useful for sizing dispatch
// tables indexed by Opcode.
const Count = int(opcodeCount)
