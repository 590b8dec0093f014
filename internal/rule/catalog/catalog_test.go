package catalog_test

import (
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/sla"
)

func newCatalogSpaces() (*sla.Manager, *sla.Space) {
	m := sla.NewManager()
	ram := m.AddSpace("ram", 1, 8, false, sla.SpaceProcessor)
	m.AddSpace("unique", 1, 8, false, sla.SpaceUnique)
	m.AddSpace("const", 1, 8, false, sla.SpaceConstant)
	return m, ram
}

// newBinOp builds a single detached op of opc with the two given inputs,
// inserted at the end of b, with a fresh unique output of outSize bytes.
func newBinOp(f *ir.Funcdata, b *ir.Block, addr sla.Address, a, c *ir.Varnode, outSize int) *ir.PcodeOp {
	op := f.NewOp(2, addr)
	f.OpInsertEnd(op, b)
	f.OpSetInput(op, 0, a)
	f.OpSetInput(op, 1, c)
	f.NewUniqueOut(outSize, op)
	return op
}
