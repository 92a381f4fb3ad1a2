// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Error kinds. Every error returned by this package is a [*Error]
// whose Kind is one of these, so callers match with errors.Is.
var (
	// ErrUnexpectedTag: a byte outside every dispatch range valid at
	// that position in the stream.
	ErrUnexpectedTag = errors.New("unexpected tag")

	// ErrTruncatedStream: the source ended before a value's declared
	// length was satisfied.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrRefIndexOutOfRange: a reference to a composite that has not
	// been registered in this pass.
	ErrRefIndexOutOfRange = errors.New("reference index out of range")

	// ErrTypeIndexOutOfRange: an object or typed container refers to a
	// class definition or type name never registered in this pass.
	ErrTypeIndexOutOfRange = errors.New("type index out of range")

	// ErrFieldArityMismatch: an object supplies a different number of
	// field values than its class definition declares.
	ErrFieldArityMismatch = errors.New("field arity mismatch")

	// ErrChunkLengthOverflow: a declared chunk length, or the
	// reassembled length of a string or binary, exceeds the configured
	// maximum.
	ErrChunkLengthOverflow = errors.New("chunk length overflow")

	// ErrIOFailure: the sink or source failed for a reason other than
	// end of input. The underlying error is available via errors.As.
	ErrIOFailure = errors.New("i/o failure")

	// ErrDepthExceeded: composites nested deeper than the decoder's
	// configured limit.
	ErrDepthExceeded = errors.New("nesting depth exceeded")

	// ErrMalformed: structurally invalid input that is not covered by a
	// more specific kind (negative lengths, invalid UTF-8, trailing
	// bytes after a value).
	ErrMalformed = errors.New("malformed stream")

	// ErrInvalidValue: the caller asked the encoder to write something
	// it cannot represent (object without a class, invalid UTF-8,
	// unbalanced container calls, unsupported Go type).
	ErrInvalidValue = errors.New("invalid value")
)

// Error describes a codec failure with enough context for the caller
// to decide whether to drop a connection or ask for a resend.
type Error struct {
	// Kind is the sentinel error classifying the failure.
	Kind error

	// Offset is the stream offset of the byte that triggered the
	// failure. It is -1 for encode-side errors.
	Offset int64

	// Tag is the offending tag byte when HasTag is set.
	Tag    byte
	HasTag bool

	// Expected and Actual carry counts for arity, length, and index
	// failures. Both are zero when not meaningful.
	Expected int
	Actual   int

	// Detail is a short human-readable description of the position
	// ("reading string chunk", "object field 2 of example.Point").
	Detail string

	// Cause is the underlying I/O error, if any.
	Cause error
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString("hessian: ")
	builder.WriteString(e.Kind.Error())
	if e.HasTag {
		builder.WriteString(" ")
		builder.WriteString(formatTag(e.Tag))
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&builder, " at offset %d", e.Offset)
	}
	if e.Detail != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Detail)
	}
	if e.Expected != 0 || e.Actual != 0 {
		fmt.Fprintf(&builder, " (expected %d, got %d)", e.Expected, e.Actual)
	}
	if e.Cause != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Cause.Error())
	}
	return builder.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is
// and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// invalidValue builds an encode-side error.
func invalidValue(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: -1, Detail: fmt.Sprintf(format, args...)}
}

// ioError classifies an error returned by the source. End of input in
// the middle of a value is truncation; anything else is an I/O failure.
func ioError(err error, offset int64, detail string) *Error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: ErrTruncatedStream, Offset: offset, Detail: detail}
	}
	return &Error{Kind: ErrIOFailure, Offset: offset, Detail: detail, Cause: err}
}
