// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package call implements "hessian call", which sends one call envelope
// to a Hessian service and prints the reply as JSON.
//
// The service is reached over a unix or TCP socket (--address) through
// a pooled [service.Client], or over HTTP (--url) through a
// [service.HTTPClient]. Client limits and codec bounds come from the
// config file named by --config or HESSIAN_CONFIG; without either, the
// built-in development defaults apply.
package call
