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
	"math"
	"os"
	"strconv"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// decodeParams holds the parameters for the "hessian decode" command.
type decodeParams struct {
	limitFlags
	Compact  bool `json:"compact"   flag:"compact,c"  desc:"compact output (no indentation)"`
	Sequence bool `json:"sequence"  flag:"sequence,s" desc:"read a sequence of values and output a JSON array"`
	HexInput bool `json:"hex_input" flag:"hex,x"      desc:"treat input as hex-encoded Hessian"`
}

func decodeCommand() *cli.Command {
	var params decodeParams

	return &cli.Command{
		Name:    "decode",
		Summary: "Convert Hessian to JSON",
		Description: `Read one Hessian value from stdin (or a file argument) and write the
equivalent JSON to stdout.

By default, output is pretty-printed with 2-space indentation. Use -c
for compact single-line output.

Hessian carries more types than JSON: dates become RFC 3339 strings,
binaries become base64 strings, objects become JSON objects with the
class name under "$class", and non-string map keys are stringified. Use
"hessian diag" to see the wire types.

With -s, reads a sequence of values (each an independent pass, as
written by repeated encodes) and outputs them as a JSON array.`,
		Usage: "hessian decode [-c] [-s] [-x] [--max-depth N] [--max-value-bytes SIZE] [file]",
		Examples: []cli.Example{
			{
				Description: "Decode a reply body to pretty JSON",
				Command:     "hessian decode reply.hessian",
			},
			{
				Description: "Decode hex-encoded Hessian",
				Command:     "echo '4802005291' | hessian decode --hex",
			},
			{
				Description: "Decode a sequence of values to a JSON array",
				Command:     "hessian decode -s < values.hessian",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			data, remainingArgs, err := readInput(args, params.HexInput)
			if err != nil {
				return err
			}
			if err := noExtraArgs("decode", remainingArgs); err != nil {
				return err
			}
			return decodeHessian(data, os.Stdout, params.Compact, params.Sequence, params.decoderOptions()...)
		},
	}
}

// decodeHessian decodes data and writes JSON to w.
func decodeHessian(data []byte, w io.Writer, compact, sequence bool, options ...hessian.DecoderOption) error {
	if len(data) == 0 {
		return cli.Validation("empty input: expected Hessian data")
	}

	if sequence {
		values, err := decodeSequence(data, options...)
		if err != nil {
			return err
		}
		items := make([]any, len(values))
		for index, item := range values {
			converted, err := jsonValue(item)
			if err != nil {
				return cli.Validation("sequence item %d: %w", index, err)
			}
			items[index] = converted
		}
		return writeJSON(w, items, compact)
	}

	value, err := hessian.Unmarshal(data, options...)
	if err != nil {
		return cli.Validation("decode Hessian: %w", err)
	}
	return WriteJSON(w, value, compact)
}

// decodeValues decodes data as one value, or as a sequence when
// sequence is set.
func decodeValues(data []byte, sequence bool, options ...hessian.DecoderOption) ([]hessian.Value, error) {
	if sequence {
		return decodeSequence(data, options...)
	}
	value, err := hessian.Unmarshal(data, options...)
	if err != nil {
		return nil, cli.Validation("decode Hessian: %w", err)
	}
	return []hessian.Value{value}, nil
}

// decodeSequence decodes consecutive independent values until the
// input is exhausted.
func decodeSequence(data []byte, options ...hessian.DecoderOption) ([]hessian.Value, error) {
	decoder := hessian.NewDecoder(bytes.NewReader(data), options...)
	var values []hessian.Value
	for {
		value, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, cli.Validation("decode Hessian sequence item %d: %w", len(values), err)
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, cli.Validation("empty input: expected Hessian data")
	}
	return values, nil
}

// jsonValue converts v to types encoding/json can write.
func jsonValue(v hessian.Value) (any, error) {
	native, err := hessian.ToGo(v)
	if err != nil {
		return nil, fmt.Errorf("convert to JSON: %w", err)
	}
	return normalizeValue(native), nil
}

// normalizeValue recursively converts ToGo output to JSON-compatible
// types. Maps with non-string keys become map[string]any with
// fmt.Sprint'd keys; non-finite doubles, which JSON cannot spell,
// become their strconv text.
func normalizeValue(v any) any {
	switch value := v.(type) {
	case map[any]any:
		result := make(map[string]any, len(value))
		for key, element := range value {
			result[fmt.Sprint(key)] = normalizeValue(element)
		}
		return result

	case map[string]any:
		for key, element := range value {
			value[key] = normalizeValue(element)
		}
		return value

	case []any:
		for index, element := range value {
			value[index] = normalizeValue(element)
		}
		return value

	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return strconv.FormatFloat(value, 'g', -1, 64)
		}
		return value

	default:
		return v
	}
}

// writeJSON encodes value as JSON and writes it to w with a trailing
// newline. When compact is false, output is pretty-printed with 2-space
// indentation.
func writeJSON(w io.Writer, value any, compact bool) error {
	var output []byte
	var err error
	if compact {
		output, err = json.Marshal(value)
	} else {
		output, err = json.MarshalIndent(value, "", "  ")
	}
	if err != nil {
		return cli.Internal("encode JSON: %w", err)
	}

	if _, err := fmt.Fprintln(w, string(output)); err != nil {
		return cli.Internal("write output: %w", err)
	}
	return nil
}

// WriteJSON writes v to w as JSON in the form "hessian decode" uses.
// The call command prints replies with it.
func WriteJSON(w io.Writer, v hessian.Value, compact bool) error {
	converted, err := jsonValue(v)
	if err != nil {
		return cli.Validation("%w", err)
	}
	return writeJSON(w, converted, compact)
}
