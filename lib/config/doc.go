// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the hessian
// binaries.
//
// Configuration is loaded from a single file specified by either the
// HESSIAN_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search.
//
// The file has three sections:
//
//   - codec: chunk size for writing, and the decoder limits (chunk
//     length, reassembled value size, nesting depth, list length)
//   - service: listen network and address, optional HTTP address,
//     timeouts, and the request size limit
//   - client: connection pool sizes, timeouts, and the response size
//     limit
//
// Environment-specific sections (development, staging, production)
// override base values when [Config].Environment matches; zero fields
// in an override are ignored. Production bounds reassembled strings and
// binaries to the request size unless it has its own section.
//
// Addresses may use ${VAR} and ${VAR:-default}. No other environment
// variables override config values.
//
// [CodecConfig.EncoderOptions], [CodecConfig.DecoderOptions],
// [Config.ServerOptions], and [Config.ClientOptions] translate the file
// into options for lib/hessian and lib/service.
package config
