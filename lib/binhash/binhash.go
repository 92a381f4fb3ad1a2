// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/hessian/lib/hessian"
)

// Size is the length in bytes of every digest this package produces.
const Size = 32

// Value computes the BLAKE3 digest of the canonical Hessian encoding
// of v. Two values that are Equal and share composites the same way
// produce the same digest, since the encoder's output depends only on
// the value graph.
func Value(v hessian.Value) ([Size]byte, error) {
	encoded, err := hessian.Marshal(v)
	if err != nil {
		return [Size]byte{}, fmt.Errorf("encoding value for hashing: %w", err)
	}
	return blake3.Sum256(encoded), nil
}

// Bytes computes the BLAKE3 digest of data, which must already be a
// canonical encoding for the result to match Value.
func Bytes(data []byte) [Size]byte {
	return blake3.Sum256(data)
}

// HashFile computes the BLAKE3 digest of the file at path. The file is
// streamed through the hasher (via io.Copy) so memory use does not
// grow with the file size.
func HashFile(path string) ([Size]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return [Size]byte{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	digest, err := HashReader(file)
	if err != nil {
		return [Size]byte{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, nil
}

// HashReader computes the BLAKE3 digest of everything r yields.
func HashReader(r io.Reader) ([Size]byte, error) {
	hasher := blake3.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return [Size]byte{}, err
	}

	var digest [Size]byte
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// FormatDigest returns the lowercase hex form of a digest. This is the
// form the CLI prints and ParseDigest accepts.
func FormatDigest(digest [Size]byte) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a hex-encoded digest string into a 32-byte array.
// Returns an error if the string is not a valid 64-character hex
// encoding of 32 bytes.
func ParseDigest(hexString string) ([Size]byte, error) {
	var digest [Size]byte
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing hash digest: %w", err)
	}
	if len(decoded) != Size {
		return digest, fmt.Errorf("hash digest is %d bytes, want %d", len(decoded), Size)
	}
	copy(digest[:], decoded)
	return digest, nil
}
