// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// validateParams holds the parameters for the "hessian validate" command.
type validateParams struct {
	limitFlags
	Sequence bool `json:"sequence"  flag:"sequence,s" desc:"validate each value in a sequence independently"`
	HexInput bool `json:"hex_input" flag:"hex,x"      desc:"treat input as hex-encoded Hessian"`
}

func validateCommand() *cli.Command {
	var params validateParams

	return &cli.Command{
		Name:    "validate",
		Summary: "Check whether Hessian uses the canonical encoding",
		Description: `Read Hessian data and verify it is exactly what this encoder writes
for the same value. Exits 0 with "valid" if it is, exits 1 with the
offset of the first differing byte if not.

Validation works by decoding the input, re-encoding it, and comparing
the bytes. This catches integers in a wider form than needed, strings
chunked at a different size, and lists written in the variable-length
form without being marked so. Malformed input is an error (exit 2).

Two streams for the same value are byte-identical only when both are
canonical, which is what "hessian digest" relies on.`,
		Usage: "hessian validate [-s] [-x] [--max-depth N] [--max-value-bytes SIZE] [file]",
		Examples: []cli.Example{
			{
				Description: "Validate the output of an encoder",
				Command:     "echo '{\"count\":42}' | hessian encode | hessian validate",
			},
			{
				Description: "Validate hex-encoded Hessian",
				Command:     "echo '49 00 00 00 01' | hessian validate --hex",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			data, remainingArgs, err := readInput(args, params.HexInput)
			if err != nil {
				return err
			}
			if err := noExtraArgs("validate", remainingArgs); err != nil {
				return err
			}
			return validateHessian(data, os.Stdout, params.Sequence, params.decoderOptions()...)
		},
	}
}

// validateHessian checks whether data is canonical by decoding and
// re-encoding, then comparing bytes. A mismatch is reported on w and
// returned as an *cli.ExitError.
func validateHessian(data []byte, w io.Writer, sequence bool, options ...hessian.DecoderOption) error {
	if len(data) == 0 {
		return cli.Validation("empty input: expected Hessian data")
	}

	values, err := decodeValues(data, sequence, options...)
	if err != nil {
		return err
	}

	var reencoded bytes.Buffer
	for index, value := range values {
		encoded, err := hessian.Marshal(value)
		if err != nil {
			return cli.Internal("re-encode value %d: %w", index, err)
		}
		reencoded.Write(encoded)
	}

	if bytes.Equal(data, reencoded.Bytes()) {
		fmt.Fprintln(w, "valid")
		return nil
	}

	fmt.Fprintln(w, describeMismatch(data, reencoded.Bytes()))
	return &cli.ExitError{Code: 1}
}

func describeMismatch(original, reencoded []byte) string {
	offset := 0
	minLength := min(len(original), len(reencoded))
	for offset < minLength {
		if original[offset] != reencoded[offset] {
			break
		}
		offset++
	}

	return fmt.Sprintf("not canonical: first difference at byte %d (original %d bytes, re-encoded %d bytes)",
		offset, len(original), len(reencoded))
}
