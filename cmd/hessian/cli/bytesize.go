// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
)

// ByteSize is a flag value holding a size in bytes. It accepts plain
// byte counts and humanized sizes in SI or IEC units ("4096", "64KiB",
// "1.5 MB").
type ByteSize int64

var _ pflag.Value = (*ByteSize)(nil)

// Set parses text as a size.
func (b *ByteSize) Set(text string) error {
	size, err := humanize.ParseBytes(text)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", text, err)
	}
	if size > math.MaxInt64 {
		return fmt.Errorf("size %q is too large", text)
	}
	*b = ByteSize(size)
	return nil
}

// String formats the size with IEC units, as help output shows it.
func (b *ByteSize) String() string {
	return humanize.IBytes(uint64(*b))
}

// Type names the value in help output.
func (b *ByteSize) Type() string {
	return "size"
}

// Int returns the size as an int, saturating on platforms where int is
// narrower than the size.
func (b ByteSize) Int() int {
	if int64(b) > math.MaxInt {
		return math.MaxInt
	}
	return int(b)
}
