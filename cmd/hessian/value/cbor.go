// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/codec"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// cborParams holds the parameters for the "hessian cbor" command.
type cborParams struct {
	limitFlags
	Reverse   bool `json:"reverse"    flag:"reverse,r" desc:"convert CBOR to Hessian instead"`
	Diagnose  bool `json:"diagnose"   flag:"diag,d"    desc:"print CBOR diagnostic notation instead of binary CBOR"`
	HexInput  bool `json:"hex_input"  flag:"hex,x"     desc:"treat input as hex text"`
	HexOutput bool `json:"hex_output" flag:"hex-output" desc:"write hex text instead of binary"`
}

func cborCommand() *cli.Command {
	var params cborParams

	return &cli.Command{
		Name:    "cbor",
		Summary: "Convert between Hessian and CBOR",
		Description: `Convert one Hessian value to CBOR with Core Deterministic Encoding
(RFC 8949 §4.2), or with -r one CBOR data item to Hessian.

Hessian to CBOR: dates become tag 1 epoch times, binaries become byte
strings, and objects become maps carrying the class name under
"$class". Type names on typed lists and maps are dropped. A value that
refers to itself cannot be converted.

CBOR to Hessian: integers take the narrowest of int and long, tag 0 and
tag 1 times become dates, and byte strings become binaries. Other tags
are rejected.

With --diag, the CBOR side is printed in diagnostic notation, which
shows the CBOR types exactly.`,
		Usage: "hessian cbor [-r] [-d] [-x] [--hex-output] [--max-depth N] [--max-value-bytes SIZE] [file]",
		Examples: []cli.Example{
			{
				Description: "Show a Hessian reply as CBOR diagnostic notation",
				Command:     "hessian cbor --diag reply.hessian",
			},
			{
				Description: "Convert a CBOR document to Hessian",
				Command:     "hessian cbor -r document.cbor > document.hessian",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			data, remainingArgs, err := readInput(args, params.HexInput)
			if err != nil {
				return err
			}
			if err := noExtraArgs("cbor", remainingArgs); err != nil {
				return err
			}
			if params.Reverse {
				return cborToHessian(data, os.Stdout, params.HexOutput)
			}
			return hessianToCBOR(data, os.Stdout, params.Diagnose, params.HexOutput, params.decoderOptions()...)
		},
	}
}

// hessianToCBOR converts the Hessian value in data to CBOR.
func hessianToCBOR(data []byte, w io.Writer, diagnose, hexOutput bool, options ...hessian.DecoderOption) error {
	if len(data) == 0 {
		return cli.Validation("empty input: expected Hessian data")
	}
	value, err := hessian.Unmarshal(data, options...)
	if err != nil {
		return cli.Validation("decode Hessian: %w", err)
	}
	encoded, err := codec.ToCBOR(value)
	if err != nil {
		return cli.Validation("convert to CBOR: %w", err)
	}

	if diagnose {
		notation, err := codec.Diagnose(encoded)
		if err != nil {
			return cli.Internal("diagnose CBOR: %w", err)
		}
		if _, err := fmt.Fprintln(w, notation); err != nil {
			return cli.Internal("write output: %w", err)
		}
		return nil
	}
	return writeOutput(w, encoded, hexOutput)
}

// cborToHessian converts the CBOR data item in data to Hessian.
func cborToHessian(data []byte, w io.Writer, hexOutput bool) error {
	if len(data) == 0 {
		return cli.Validation("empty input: expected CBOR data")
	}
	value, err := codec.FromCBOR(data)
	if err != nil {
		return cli.Validation("convert from CBOR: %w", err)
	}
	encoded, err := hessian.Marshal(value)
	if err != nil {
		return cli.Internal("encode Hessian: %w", err)
	}
	return writeOutput(w, encoded, hexOutput)
}
