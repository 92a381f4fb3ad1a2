// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package grpccodec carries Hessian values over gRPC.
//
// Importing the package registers [Codec] under the name "hessian".
// Clients select it per call with grpc.CallContentSubtype("hessian")
// or grpc.ForceCodec; servers pick it from the request content type.
//
// [Register] exposes the methods of a [service.Server] as unary gRPC
// methods, and [Client] calls them with the same Call signature as
// the socket and HTTP clients. Faults cross the boundary in the
// call's trailer, so an *envelope.Fault raised on the server comes
// back as one on the client.
package grpccodec
