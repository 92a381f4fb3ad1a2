// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the hessian binaries.
//
// [Fatal] reports an error from run() to stderr and exits. It is for
// failures that happen before the structured logger exists or after it
// is no longer useful; everything else goes through slog.
package process
