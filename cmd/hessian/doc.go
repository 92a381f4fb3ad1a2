// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Hessian is the command-line tool for Hessian 2.0 data. It converts
// between Hessian and JSON (decode, encode) or CBOR (cbor), annotates
// and checks streams (diag, validate), prints value digests (digest),
// and calls methods on Hessian services (call).
//
// Exit codes: 0 on success, 1 for internal errors and failed
// validation, 2 for bad input, 3 when a file, config, or method does
// not exist, 4 when a service cannot be reached.
package main
