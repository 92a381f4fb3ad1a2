// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// diagParams holds the parameters for the "hessian diag" command.
type diagParams struct {
	limitFlags
	HexInput bool `json:"hex_input" flag:"hex,x" desc:"treat input as hex-encoded Hessian"`
}

func diagCommand() *cli.Command {
	var params diagParams

	return &cli.Command{
		Name:    "diag",
		Summary: "Annotate each value in a Hessian stream",
		Description: `Read a Hessian stream and print one line per top-level value: the byte
offset where it starts, its leading tag byte, what that tag introduces,
the value's type, and the value itself as compact JSON.

Class definitions and type names that precede a value are part of it,
so a line can start at a 'C' (class definition) byte.

On a decoding error, the lines for the values before it are printed
and the error names the offset of the offending byte.`,
		Usage: "hessian diag [-x] [--max-depth N] [--max-value-bytes SIZE] [file]",
		Examples: []cli.Example{
			{
				Description: "Inspect a captured call",
				Command:     "hessian diag call.hessian",
			},
			{
				Description: "Encode JSON and inspect the Hessian structure",
				Command:     "echo '{\"count\":42}' | hessian encode | hessian diag",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			data, remainingArgs, err := readInput(args, params.HexInput)
			if err != nil {
				return err
			}
			if err := noExtraArgs("diag", remainingArgs); err != nil {
				return err
			}
			return diagHessian(data, os.Stdout, params.decoderOptions()...)
		},
	}
}

// diagHessian writes one annotated line per value in data to w.
func diagHessian(data []byte, w io.Writer, options ...hessian.DecoderOption) error {
	if len(data) == 0 {
		return cli.Validation("empty input: expected Hessian data")
	}

	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(table, "OFFSET\tTAG\tNAME\tKIND\tVALUE\n")

	decoder := hessian.NewDecoder(bytes.NewReader(data), options...)
	var decodeErr error
	for {
		offset := decoder.Offset()
		value, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			decodeErr = cli.Validation("decode Hessian value at byte %d: %w", offset, err)
			break
		}
		tag := data[offset]
		fmt.Fprintf(table, "%d\t0x%02x\t%s\t%s\t%s\n",
			offset, tag, hessian.TagName(tag), value.Kind(), summarize(value))
	}

	if err := table.Flush(); err != nil {
		return cli.Internal("write output: %w", err)
	}
	return decodeErr
}

// summarize renders v as compact JSON, or names why it cannot be.
func summarize(v hessian.Value) string {
	converted, err := jsonValue(v)
	if err != nil {
		return fmt.Sprintf("(%v)", err)
	}
	output, err := json.Marshal(converted)
	if err != nil {
		return fmt.Sprintf("(%v)", err)
	}
	return string(output)
}
