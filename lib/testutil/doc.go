// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the hessian packages.
//
// [SocketDir] creates a short temporary directory in /tmp for Unix
// domain sockets. Socket paths are limited to 108 bytes (sun_path in
// sockaddr_un) and t.TempDir() can exceed that under build systems that
// nest TEST_TMPDIR deeply.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests waiting on servers and goroutines do not carry their
// own time.After calls.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
