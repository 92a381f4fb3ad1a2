// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"time"
)

// TB is the part of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test with what, a short description of the wait.
//
//	err := testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve to return")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, what string) T {
	t.Helper()
	value, ok, received := wait(ch, timeout)
	switch {
	case !received:
		t.Fatalf("timed out after %v: %s", timeout, what)
	case !ok:
		t.Fatalf("channel closed without a value: %s", what)
	}
	return value
}

// RequireClosed waits for ch to be closed, or to deliver a value,
// within timeout. A server's Ready channel signals this way.
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	if _, _, received := wait(ch, timeout); !received {
		t.Fatalf("timed out after %v waiting for close: %s", timeout, what)
	}
}

// wait reports the value and open state of one receive from ch, and
// whether it happened before timeout.
func wait[T any](ch <-chan T, timeout time.Duration) (value T, ok, received bool) {
	timer := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer timer.Stop()
	select {
	case value, ok = <-ch:
		return value, ok, true
	case <-timer.C:
		return value, false, false
	}
}
