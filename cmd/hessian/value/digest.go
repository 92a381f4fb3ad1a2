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
	"github.com/bureau-foundation/hessian/lib/binhash"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// digestParams holds the parameters for the "hessian digest" command.
type digestParams struct {
	limitFlags
	Sequence bool `json:"sequence"  flag:"sequence,s" desc:"print one digest per value in a sequence"`
	HexInput bool `json:"hex_input" flag:"hex,x"      desc:"treat input as hex-encoded Hessian"`
}

func digestCommand() *cli.Command {
	var params digestParams

	return &cli.Command{
		Name:    "digest",
		Summary: "Print the BLAKE3 digest of a Hessian value",
		Description: `Decode Hessian data and print the BLAKE3-256 digest of the value's
canonical encoding as 64 hex characters.

The digest identifies the value, not the bytes: a stream with a
needlessly wide integer or a different string chunking has the same
digest as its canonical form. Use "hessian validate" to check the bytes
themselves.

With -s, prints one digest per value in a sequence.`,
		Usage: "hessian digest [-s] [-x] [--max-depth N] [--max-value-bytes SIZE] [file]",
		Examples: []cli.Example{
			{
				Description: "Digest a stored reply",
				Command:     "hessian digest reply.hessian",
			},
			{
				Description: "Digest a JSON document's Hessian form",
				Command:     "hessian encode config.json | hessian digest",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			data, remainingArgs, err := readInput(args, params.HexInput)
			if err != nil {
				return err
			}
			if err := noExtraArgs("digest", remainingArgs); err != nil {
				return err
			}
			return digestHessian(data, os.Stdout, params.Sequence, params.decoderOptions()...)
		},
	}
}

// digestHessian writes the digest of each value in data to w, one per
// line.
func digestHessian(data []byte, w io.Writer, sequence bool, options ...hessian.DecoderOption) error {
	if len(data) == 0 {
		return cli.Validation("empty input: expected Hessian data")
	}

	values, err := decodeValues(data, sequence, options...)
	if err != nil {
		return err
	}

	for index, value := range values {
		digest, err := binhash.Value(value)
		if err != nil {
			return cli.Internal("digest value %d: %w", index, err)
		}
		if _, err := fmt.Fprintln(w, binhash.FormatDigest(digest)); err != nil {
			return cli.Internal("write output: %w", err)
		}
	}
	return nil
}
