// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
)

// readInput resolves input data from either a file (the last element
// of args, if it names a regular file on disk) or stdin.
//
// When hexMode is true, the raw bytes are treated as hex text:
// whitespace is stripped and the hex is decoded to binary.
//
// Returns the input bytes and the args with any consumed file path
// removed. The caller is responsible for validating that the returned
// args are acceptable.
func readInput(args []string, hexMode bool) ([]byte, []string, error) {
	return readInputFrom(os.Stdin, args, hexMode)
}

func readInputFrom(stdin io.Reader, args []string, hexMode bool) ([]byte, []string, error) {
	var data []byte
	remainingArgs := args

	if length := len(args); length > 0 {
		candidate := args[length-1]
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			data, err = os.ReadFile(candidate)
			if err != nil {
				return nil, nil, cli.Internal("read %s: %w", candidate, err)
			}
			remainingArgs = args[:length-1]
		}
	}

	if data == nil {
		var err error
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, nil, cli.Internal("read stdin: %w", err)
		}
	}

	if hexMode {
		decoded, err := decodeHexInput(data)
		if err != nil {
			return nil, nil, err
		}
		data = decoded
	}

	return data, remainingArgs, nil
}

// decodeHexInput strips whitespace from hex-encoded input and decodes
// it to binary bytes. Whitespace between hex digit pairs is allowed
// (e.g., "48 02 00 52 91" or "4802005291").
func decodeHexInput(data []byte) ([]byte, error) {
	cleaned := bytes.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, data)

	if len(cleaned) == 0 {
		return nil, cli.Validation("empty input after stripping whitespace from hex")
	}

	decoded := make([]byte, hex.DecodedLen(len(cleaned)))
	count, err := hex.Decode(decoded, cleaned)
	if err != nil {
		return nil, cli.Validation("decode hex: %w", err)
	}
	return decoded[:count], nil
}

// noExtraArgs rejects positional arguments left after the optional
// file path.
func noExtraArgs(command string, remainingArgs []string) error {
	if len(remainingArgs) > 0 {
		return cli.Validation("%s takes no positional arguments besides an optional file path, got %q",
			command, remainingArgs[0])
	}
	return nil
}

// writeOutput writes binary output, or its hex form followed by a
// newline when hexOutput is set.
func writeOutput(w io.Writer, data []byte, hexOutput bool) error {
	var err error
	if hexOutput {
		_, err = fmt.Fprintln(w, hex.EncodeToString(data))
	} else {
		_, err = w.Write(data)
	}
	if err != nil {
		return cli.Internal("write output: %w", err)
	}
	return nil
}
