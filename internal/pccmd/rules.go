package pccmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/mna/mainer"

	"github.com/tsgates/pcodec/internal/pcode"
	"github.com/tsgates/pcodec/internal/pipeline"
)

// Rules lists every peephole rule registered in the catalogue, deduped by
// name: internal/rule.ActionPool only exposes rules per opcode (it is
// dispatched that way, not enumerated), so this walks the whole opcode
// space to recover the full registered set.
func (c *Cmd) Rules(ctx context.Context, stdio mainer.Stdio, args []string) error {
	p := pipeline.New(nil, nil)
	pool := p.Pool()

	seen := make(map[string]bool)
	var names []string
	for op := pcode.Opcode(0); int(op) < pcode.Count; op++ {
		for _, r := range pool.RulesFor(op) {
			if !seen[r.Name()] {
				seen[r.Name()] = true
				names = append(names, r.Name())
			}
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(stdio.Stdout, name)
	}
	return nil
}
