// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// encodeParams holds the parameters for the "hessian encode" command.
type encodeParams struct {
	HexOutput bool `json:"hex_output" flag:"hex,x" desc:"write hex text instead of binary"`
}

func encodeCommand() *cli.Command {
	var params encodeParams

	return &cli.Command{
		Name:    "encode",
		Summary: "Convert JSON to Hessian",
		Description: `Read JSON from stdin (or a file argument) and write the equivalent
Hessian to stdout. Comments and trailing commas (JSONC) are accepted.

Numbers take the smallest variant that holds them exactly: int when
the value fits in 32 bits, long when it fits in 64, double otherwise.
JSON objects become untyped maps with their keys sorted, so the output
does not depend on the key order of the input.

Several JSON values in a row are encoded as a sequence of independent
Hessian values, readable with "hessian decode -s".

The output is binary. Use --hex, or pipe to "hessian diag", to inspect.`,
		Usage:  "hessian encode [-x] [file]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Encode a call argument",
				Command:     "echo '{\"name\":\"widget\",\"count\":42}' | hessian encode > argument.hessian",
			},
			{
				Description: "Show the encoding as hex",
				Command:     "echo '[1, 2.5, \"three\"]' | hessian encode --hex",
			},
			{
				Description: "Round-trip: encode then decode",
				Command:     "echo '{\"count\":42}' | hessian encode | hessian decode",
			},
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			data, remainingArgs, err := readInput(args, false)
			if err != nil {
				return err
			}
			if err := noExtraArgs("encode", remainingArgs); err != nil {
				return err
			}
			return encodeJSON(data, os.Stdout, params.HexOutput)
		},
	}
}

// encodeJSON encodes each JSON value in data as Hessian and writes the
// result to w.
func encodeJSON(data []byte, w io.Writer, hexOutput bool) error {
	stripped := jsonc.ToJSON(data)
	if len(bytes.TrimSpace(stripped)) == 0 {
		return cli.Validation("empty input: expected JSON data")
	}

	decoder := json.NewDecoder(bytes.NewReader(stripped))
	decoder.UseNumber()

	var output bytes.Buffer
	for index := 0; ; index++ {
		var native any
		if err := decoder.Decode(&native); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return cli.Validation("decode JSON value %d: %w", index, err)
		}

		value, err := hessian.FromGo(native)
		if err != nil {
			return cli.Validation("convert JSON value %d: %w", index, err)
		}
		encoded, err := hessian.Marshal(value)
		if err != nil {
			return cli.Internal("encode Hessian: %w", err)
		}
		output.Write(encoded)
	}

	return writeOutput(w, output.Bytes(), hexOutput)
}

// ParseJSON converts one JSON (or JSONC) document to a Value with the
// same number narrowing as "hessian encode". The call command parses
// its arguments with it.
func ParseJSON(text string) (hessian.Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(text))))
	decoder.UseNumber()

	var native any
	if err := decoder.Decode(&native); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, errors.New("unexpected data after the JSON value")
	}
	return hessian.FromGo(native)
}
