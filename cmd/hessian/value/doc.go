// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package value implements the hessian CLI commands that work on
// Hessian streams read from a file or stdin: decode, encode, diag,
// validate, digest, and cbor.
//
// Every command takes an optional trailing file path. When the last
// positional argument names a regular file, input is read from it;
// otherwise input comes from stdin. With --hex, input is hex text
// (whitespace ignored) rather than raw bytes.
//
// JSON output follows [hessian.ToGo]: ints and longs are JSON numbers,
// dates are RFC 3339 strings, binaries are base64 strings, objects are
// JSON objects carrying their class name under "$class", and map keys
// that are not strings are printed with fmt.Sprint.
package value
