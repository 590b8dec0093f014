package pccmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"go.uber.org/zap"

	"github.com/tsgates/pcodec/internal/config"
	"github.com/tsgates/pcodec/internal/ir"
	"github.com/tsgates/pcodec/internal/pipeline"
	"github.com/tsgates/pcodec/internal/sla"
)

// DefaultSpaces builds the address-space set every .pcode fixture this
// tool reads is written against: a byte-addressed "ram" for memory
// locations, a "register" space, and the "unique"/"const" spaces
// internal/ir.Asm always requires: the ram/unique/const setup
// internal/split and internal/heritage's own tests build by hand, plus
// the register space.
func DefaultSpaces() *sla.Manager {
	m := sla.NewManager()
	m.AddSpace("ram", 1, 8, false, sla.SpaceProcessor)
	m.AddSpace("register", 1, 4, false, sla.SpaceRegister)
	m.AddSpace("unique", 1, 8, false, sla.SpaceUnique)
	m.AddSpace("const", 1, 8, false, sla.SpaceConstant)
	return m
}

func (c *Cmd) Decompile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DecompileFiles(ctx, stdio, c.Group, c.Wavefront, args...)
}

// DecompileFiles runs the full engine over each of files in turn, printing
// the resulting p-code to stdio.Stdout. It keeps going after a
// per-file error (reading the next file's diagnostics is more useful than
// aborting the whole batch), returning the first error encountered.
func DecompileFiles(ctx context.Context, stdio mainer.Stdio, group string, wavefront bool, files ...string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "pcodec: loading config: %s\n", err)
		return err
	}
	if wavefront {
		cfg.WavefrontScheduling = true
	}

	log, logErr := zap.NewDevelopment()
	if logErr != nil {
		log = zap.NewNop()
	}
	defer log.Sync() //nolint:errcheck

	p := pipeline.New(cfg, log)

	var firstErr error
	for _, path := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := decompileOne(p, stdio, group, path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if !p.Diagnostics.Empty() {
		for _, d := range p.Diagnostics.Items() {
			fmt.Fprintf(stdio.Stderr, "pcodec: %s\n", d)
		}
	}
	return firstErr
}

func decompileOne(p *pipeline.Pipeline, stdio mainer.Stdio, group, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "pcodec: %s: %s\n", path, err)
		return err
	}

	f, err := ir.Asm(data, DefaultSpaces())
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "pcodec: %s: %s\n", path, err)
		return err
	}

	if err := p.Run(f, group); err != nil {
		fmt.Fprintf(stdio.Stderr, "pcodec: %s: %s\n", path, err)
		return err
	}

	fmt.Fprintf(stdio.Stdout, "; %s\n", path)
	stdio.Stdout.Write(ir.Dasm(f))
	return nil
}
