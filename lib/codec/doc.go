// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec transcodes between Hessian values and CBOR.
//
// Both formats are self-describing binary encodings of the same kinds
// of trees, so a Hessian value can be inspected with CBOR tooling and
// CBOR produced elsewhere can be fed to a Hessian service:
//
//	data, err := codec.ToCBOR(value)
//	value, err = codec.FromCBOR(data)
//
// The CBOR side uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer and float encodings, no
// indefinite-length items. Equal Hessian values always produce
// identical CBOR bytes.
//
// The mapping is lossy in places CBOR has no counterpart:
//
//   - Objects become maps with the class name under hessian.ClassKey,
//     and FromCBOR leaves such maps as maps.
//   - List and map type names are dropped.
//   - Int64 values that fit 32 bits come back as Int32.
//   - Shared composites are written once per occurrence. Cyclic graphs
//     are rejected with [ErrCycle].
//
// Dates travel as tag 1 epoch times with millisecond precision.
package codec
