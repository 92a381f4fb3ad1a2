// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/hessian/lib/binhash"
)

// ComputeSelfHash returns the BLAKE3 hex digest and absolute filesystem
// path of the currently running binary. Uses os.Executable() to resolve
// the binary path, which on Linux reads /proc/self/exe and so names
// the original binary even if it has been replaced on disk since the
// process started.
func ComputeSelfHash() (hash string, binaryPath string, err error) {
	executable, err := os.Executable()
	if err != nil {
		return "", "", fmt.Errorf("resolving own executable path: %w", err)
	}
	digest, err := binhash.HashFile(executable)
	if err != nil {
		return "", "", fmt.Errorf("hashing own binary at %s: %w", executable, err)
	}
	return binhash.FormatDigest(digest), executable, nil
}
