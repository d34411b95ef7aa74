package cli

import (
	"context"
	"io"

	"github.com/aretw0/flowchain"
)

// RunCommand runs command name with the wire map read from in and writes its outputs to out.
func RunCommand(ctx context.Context, engine *flowchain.Engine, name, userID string, in io.Reader, out io.Writer) error {
	inputs, err := ReadMap(in)
	if err != nil {
		return err
	}
	outputs, err := engine.Run(ctx, name, userID, inputs)
	if err != nil {
		return err
	}
	return WriteValue(out, outputs)
}
