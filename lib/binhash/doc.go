// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 digests of Hessian values and files.
//
// A value's digest is taken over its canonical encoding, the bytes
// [hessian.Marshal] produces. The encoder always picks the shortest
// numeric tier, the same chunk boundaries, and the same table indices
// for a given value graph, so the digest identifies the value rather
// than one particular serialization of it. Streams produced by other
// encoders may decode to an equal value and still hash differently;
// `hessian validate` reports such streams.
//
// The API surface:
//
//   - [Value] -- digest of a value's canonical encoding
//   - [Bytes], [HashReader], [HashFile] -- digests of raw bytes
//   - [FormatDigest], [ParseDigest] -- the hex form used in CLI output
package binhash
