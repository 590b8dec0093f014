package ir

// This file implements a human-readable/writable textual form of one
// function's raw (pre-heritage) p-code, in the spirit of the teacher's
// assembler/disassembler for compiled bytecode programs. It exists to
// support tests and CLI inspection without requiring a real Loader and
// Translator.
//
// The format looks like this (indentation is arbitrary, section order is
// not):
//
//	function: main
//	block 0:
//		out:
//			1 fallthrough
//		code:
//			ram:0x1000:4 = INT_ADD ram:0x1004:4 #0x1:4
//	block 1:
//		code:
//			RETURN

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/sla"
)

var asmSections = map[string]bool{
	"function:": true,
	"block":     true,
	"out:":      true,
	"code:":     true,
}

// Asm parses one function's raw p-code from its textual form. spaces must
// already have every address space the text refers to installed.
func Asm(b []byte, spaces *sla.Manager) (*Funcdata, error) {
	a := &asmParser{s: bufio.NewScanner(bytes.NewReader(b)), spaces: spaces, vars: make(map[locKey]*Varnode)}

	fields := a.next()
	if a.err != nil {
		return nil, a.err
	}
	if len(fields) < 2 || !strings.EqualFold(fields[0], "function:") {
		return nil, fmt.Errorf("ir/asm: expected function: section")
	}
	a.f = NewFuncdata(fields[1], spaces)
	a.blocksByIndex = nil

	fields = a.next()
	for a.err == nil && len(fields) > 0 && strings.EqualFold(fields[0], "block") {
		fields = a.block(fields)
	}
	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("ir/asm: unexpected section: %s", fields[0])
	}
	if a.err == nil {
		a.resolveEdges()
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.f, nil
}

type pendingEdge struct {
	from *Block
	to   int
	kind EdgeKind
}

type asmParser struct {
	s       *bufio.Scanner
	rawLine string
	err     error

	spaces        *sla.Manager
	f             *Funcdata
	blocksByIndex []*Block
	vars          map[locKey]*Varnode
	pending       []pendingEdge
}

func (a *asmParser) block(fields []string) []string {
	// fields: ["block", "<n>:"] or ["block", "<n>"]
	if len(fields) < 2 {
		a.err = fmt.Errorf("ir/asm: malformed block header: %s", strings.Join(fields, " "))
		return nil
	}
	idxStr := strings.TrimSuffix(fields[1], ":")
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		a.err = fmt.Errorf("ir/asm: invalid block index %q: %w", fields[1], err)
		return nil
	}
	for len(a.blocksByIndex) <= idx {
		a.blocksByIndex = append(a.blocksByIndex, a.f.NewBlock())
	}
	b := a.blocksByIndex[idx]

	fields = a.next()
	fields = a.outEdges(b, fields)
	fields = a.code(b, fields)
	return fields
}

func (a *asmParser) outEdges(b *Block, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "out:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		if len(fields) < 2 {
			a.err = fmt.Errorf("ir/asm: invalid edge: %s", strings.Join(fields, " "))
			return fields
		}
		target, err := strconv.Atoi(fields[0])
		if err != nil {
			a.err = fmt.Errorf("ir/asm: invalid edge target %q: %w", fields[0], err)
			return fields
		}
		kind, ok := edgeKindNames[strings.ToLower(fields[1])]
		if !ok {
			a.err = fmt.Errorf("ir/asm: invalid edge kind %q", fields[1])
			return fields
		}
		a.pending = append(a.pending, pendingEdge{from: b, to: target, kind: kind})
	}
	return fields
}

var edgeKindNames = map[string]EdgeKind{
	"fallthrough": EdgeFallThrough,
	"true":        EdgeTrue,
	"false":       EdgeFalse,
	"switch":      EdgeSwitch,
}

func (a *asmParser) code(b *Block, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !asmSections[fields[0]]; fields = a.next() {
		a.instruction(b, fields)
		if a.err != nil {
			return fields
		}
	}
	return fields
}

// instruction parses one code line: either "OUT = OPCODE in0 in1 ..." or
// "OPCODE in0 in1 ...".
func (a *asmParser) instruction(b *Block, fields []string) {
	var outTok string
	if len(fields) >= 2 && fields[1] == "=" {
		outTok = fields[0]
		fields = fields[2:]
	}
	if len(fields) == 0 {
		a.err = fmt.Errorf("ir/asm: empty instruction")
		return
	}
	opc, ok := pcode.Lookup(strings.ToUpper(fields[0]))
	if !ok {
		a.err = fmt.Errorf("ir/asm: unknown opcode %q", fields[0])
		return
	}
	inputToks := fields[1:]

	addr := sla.Address{Space: a.spaces.UniqueSpace(), Offset: uint64(len(b.ops))}
	op := a.f.NewOp(len(inputToks), addr)
	a.f.OpSetOpcode(op, opc)
	for i, tok := range inputToks {
		vn, err := a.resolveVarnode(tok)
		if err != nil {
			a.err = err
			return
		}
		a.f.OpSetInput(op, i, vn)
	}
	a.f.OpInsertEnd(op, b)

	if outTok != "" {
		space, offset, size, err := parseVarnodeLiteral(outTok, a.spaces)
		if err != nil {
			a.err = err
			return
		}
		outAddr := sla.Address{Space: space, Offset: offset}
		vn := a.f.NewVarnodeOut(size, outAddr, op)
		a.vars[locKey{space, offset, size}] = vn
	}
}

// resolveVarnode looks up an existing varnode at the literal's address,
// creating a free one on first reference (the raw-p-code convention: a
// varnode read before any write in this text is an implicit function
// input or memory load target).
func (a *asmParser) resolveVarnode(tok string) (*Varnode, error) {
	if strings.HasPrefix(tok, "#") {
		val, size, err := parseConstantLiteral(tok)
		if err != nil {
			return nil, err
		}
		return a.f.NewConstant(size, val), nil
	}
	space, offset, size, err := parseVarnodeLiteral(tok, a.spaces)
	if err != nil {
		return nil, err
	}
	key := locKey{space, offset, size}
	if vn, ok := a.vars[key]; ok {
		return vn, nil
	}
	vn := a.f.NewVarnode(size, sla.Address{Space: space, Offset: offset})
	a.vars[key] = vn
	return vn, nil
}

// parseVarnodeLiteral parses "space:hexoffset:size".
func parseVarnodeLiteral(tok string, spaces *sla.Manager) (*sla.Space, uint64, int, error) {
	parts := strings.Split(tok, ":")
	if len(parts) != 3 {
		return nil, 0, 0, fmt.Errorf("ir/asm: malformed varnode literal %q", tok)
	}
	space := spaces.GetSpaceByName(parts[0])
	if space == nil {
		return nil, 0, 0, fmt.Errorf("ir/asm: unknown address space %q", parts[0])
	}
	offset, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("ir/asm: invalid offset in %q: %w", tok, err)
	}
	size, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("ir/asm: invalid size in %q: %w", tok, err)
	}
	return space, offset, size, nil
}

// parseConstantLiteral parses "#hexvalue:size".
func parseConstantLiteral(tok string) (uint64, int, error) {
	parts := strings.Split(strings.TrimPrefix(tok, "#"), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("ir/asm: malformed constant literal %q", tok)
	}
	val, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("ir/asm: invalid constant value in %q: %w", tok, err)
	}
	size, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("ir/asm: invalid constant size in %q: %w", tok, err)
	}
	return val, size, nil
}

func (a *asmParser) resolveEdges() {
	for _, pe := range a.pending {
		if pe.to < 0 || pe.to >= len(a.blocksByIndex) {
			a.err = fmt.Errorf("ir/asm: edge target %d out of range", pe.to)
			return
		}
		a.f.AddEdge(pe.from, a.blocksByIndex[pe.to], pe.kind)
	}
}

func (a *asmParser) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			for i, fld := range fields {
				// "#value:size" is a constant literal, not a trailing comment.
				if strings.HasPrefix(fld, "#") && i > 0 && !strings.Contains(fld, ":") {
					fields = fields[:i]
					break
				}
			}
			a.rawLine = line
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// Dasm renders a function's p-code back to the textual form Asm accepts.
func Dasm(f *Funcdata) []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "function: %s\n", f.Name())

	blockIndex := make(map[*Block]int, len(f.blocks))
	for i, b := range f.blocks {
		blockIndex[b] = i
	}

	for i, b := range f.blocks {
		fmt.Fprintf(buf, "block %d:\n", i)
		if len(b.out) > 0 {
			buf.WriteString("\tout:\n")
			for _, e := range b.out {
				fmt.Fprintf(buf, "\t\t%d %s\n", blockIndex[e.To], edgeKindName(e.Kind))
			}
		}
		if len(b.ops) > 0 {
			buf.WriteString("\tcode:\n")
			for _, op := range b.ops {
				if op.IsDead() {
					continue
				}
				buf.WriteString("\t\t")
				if op.output != nil {
					fmt.Fprintf(buf, "%s = ", varnodeLiteral(op.output))
				}
				buf.WriteString(op.opcode.String())
				for _, in := range op.inputs {
					buf.WriteString(" ")
					buf.WriteString(varnodeLiteral(in))
				}
				buf.WriteString("\n")
			}
		}
	}
	return buf.Bytes()
}

func varnodeLiteral(v *Varnode) string {
	if v == nil {
		return "<nil>"
	}
	if v.IsConstant() {
		val, _ := v.ConstantValue()
		return fmt.Sprintf("#0x%x:%d", val, v.size)
	}
	return fmt.Sprintf("%s:0x%x:%d", v.addr.Space.Name(), v.addr.Offset, v.size)
}

func edgeKindName(k EdgeKind) string {
	switch k {
	case EdgeTrue:
		return "true"
	case EdgeFalse:
		return "false"
	case EdgeSwitch:
		return "switch"
	default:
		return "fallthrough"
	}
}
