package pccmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/tsgates/pcodec/internal/pipeline"
)

func (c *Cmd) Actions(ctx context.Context, stdio mainer.Stdio, args []string) error {
	p := pipeline.New(nil, nil)
	for _, name := range p.Database().Names() {
		fmt.Fprintln(stdio.Stdout, name)
	}
	return nil
}
