// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the hessian
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/hessian/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without them the commit comes from the VCS stamp the go command
// embeds, and is "unknown" in test binaries, which carry none.
//
// [ComputeSelfHash] returns the BLAKE3 digest of the running binary,
// printed by "hessian version --full" and logged by the echo service at
// startup so operators can tell which build answered.
package version
