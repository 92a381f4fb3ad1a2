// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service serves and calls Hessian remote methods.
//
// A [Server] holds a table of named methods. It accepts calls two ways:
//
//   - Serve listens on a stream socket (Unix or TCP). Each connection
//     carries a sequence of call envelopes, each answered in order by a
//     reply or fault envelope, until the client closes its side.
//   - ServeHTTP answers one call envelope per POST request, the
//     original Hessian transport. [HTTPServer] manages a TCP listener
//     for it.
//
// Every envelope is one codec pass (see lib/envelope), so a long-lived
// connection never accumulates reference or class tables.
//
// [Client] calls a socket server over pooled persistent connections;
// [HTTPClient] calls an HTTP endpoint. Both implement [Caller].
//
// Failures are reported to the caller as faults with a code:
// NoSuchMethodException for an unregistered method,
// ProtocolException for an envelope that could not be decoded (the
// connection is closed afterwards), and ServiceException for an
// error returned by the method. A method may return an
// *envelope.Fault to choose its own code.
package service
