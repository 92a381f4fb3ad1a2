// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope frames remote calls in Hessian 2 call, reply, and
// fault envelopes.
//
// Every envelope starts with the four bytes 'H' 0x02 0x00 followed by a
// kind byte:
//
//	'H' 02 00 'C' method argc arg...   call
//	'H' 02 00 'R' value                reply
//	'H' 02 00 'F' map                  fault
//
// The method is a string, argc an int, and the fault map carries the
// string keys "code", "message", and optionally "detail".
//
// One envelope is one pass of the underlying codec: the reference
// table, class registry, and type table are reset before and after
// each envelope, so arguments of one call may share composites but
// nothing leaks into the next call on the same connection.
package envelope
