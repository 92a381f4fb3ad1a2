// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hessian implements the Hessian 2.0 binary value encoding.
//
// Hessian is self-describing: a decoder reconstructs values without an
// external schema. Repeated structure is still transmitted compactly
// through three per-pass tables that the encoder and decoder build in
// lockstep:
//
//   - the reference table assigns every composite ([*List], [*Map],
//     [*Object]) the next integer the moment its start boundary is
//     written or read, before its children. A composite seen again is
//     written as a reference ('Q' + index), which is how shared values
//     and cycles cross the wire.
//   - the class registry assigns every distinct [ClassDef] (name plus
//     ordered field names) an integer. The first object of a class
//     emits a 'C' definition record; later objects carry only the index.
//   - the type table does the same for list and map type names.
//
// Indices are never transmitted out of band. Both sides visit values in
// the same depth-first order, so the Nth composite encoded is the Nth
// composite decoded.
//
// # Passes
//
// A pass is the lifetime of one set of tables. [Encoder.Encode] and
// [Decoder.Decode] are each exactly one pass: tables are cleared before
// and after the value. The low-level streaming methods
// ([Encoder.WriteInt32], [Encoder.WriteListStart], [Decoder.ReadValue],
// ...) continue the current pass until [Encoder.Reset] or
// [Decoder.Reset] is called. A connection carrying many independent
// values resets between them; lib/envelope does so per call.
//
// # Canonical encoding
//
// The encoder always chooses the narrowest tier that represents a
// number. For 32-bit integers:
//
//	[-16, 47]           0x90+v                     1 byte
//	[-2048, 2047]       0xc8+(v>>8), v&0xff        2 bytes
//	[-262144, 262143]   0xd4+(v>>16), v>>8, v      3 bytes
//	otherwise           'I' b3 b2 b1 b0            5 bytes
//
// Longs, doubles, and dates follow the Hessian 2.0 byte codes listed in
// tags.go. The tag table is a frozen contract: both peers must agree on
// it byte for byte.
//
// # Errors
//
// Every failure is a [*Error] whose Kind is one of the sentinel errors
// ([ErrUnexpectedTag], [ErrTruncatedStream], [ErrRefIndexOutOfRange],
// [ErrTypeIndexOutOfRange], [ErrFieldArityMismatch],
// [ErrChunkLengthOverflow], ...) and can be matched with errors.Is. An
// encoder never writes a malformed value to its sink, and a decoder
// never returns a partially filled value.
package hessian
