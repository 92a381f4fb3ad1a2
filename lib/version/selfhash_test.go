// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"

	"github.com/bureau-foundation/hessian/lib/binhash"
)

func TestComputeSelfHash(t *testing.T) {
	hash, binaryPath, err := ComputeSelfHash()
	if err != nil {
		t.Fatalf("ComputeSelfHash: %v", err)
	}
	if _, err := binhash.ParseDigest(hash); err != nil {
		t.Errorf("hash %q is not a digest: %v", hash, err)
	}
	if binaryPath == "" {
		t.Error("binaryPath should not be empty")
	}

	// Deterministic: hashing the same running binary twice.
	hash2, binaryPath2, err := ComputeSelfHash()
	if err != nil {
		t.Fatalf("ComputeSelfHash (second): %v", err)
	}
	if hash != hash2 {
		t.Error("ComputeSelfHash hash should be deterministic")
	}
	if binaryPath != binaryPath2 {
		t.Error("ComputeSelfHash path should be deterministic")
	}
}

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, Version+" (") {
		t.Errorf("Info() = %q, want prefix %q", info, Version+" (")
	}
	if !strings.Contains(Full(), "Go: ") {
		t.Errorf("Full() = %q, want a Go version line", Full())
	}
	if Short() != Version || Commit() != GitCommit {
		t.Error("Short and Commit should return the build variables")
	}
}
