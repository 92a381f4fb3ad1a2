// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Method handlers that report uptime or wait for a duration take a
// Clock instead of calling time.Now or time.After. Real() is the
// standard library behavior; Fake() stands still until the test calls
// Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go handler(c)
//	c.WaitForTimers(1)         // handler is blocked in After
//	c.Advance(5 * time.Second) // release it deterministically
package clock
