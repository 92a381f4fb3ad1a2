// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// limitFlags bounds what the reading commands decode, for input from
// peers that are not trusted to declare sane sizes.
type limitFlags struct {
	MaxDepth      int          `json:"max_depth"       flag:"max-depth"       default:"1000" desc:"reject values nested deeper than this"`
	MaxValueBytes cli.ByteSize `json:"max_value_bytes" flag:"max-value-bytes" default:"0"    desc:"reject strings and binaries larger than this once reassembled, e.g. 64KiB (0 for no limit)"`
}

// decoderOptions converts the flags to decoder options. Zero leaves
// the decoder's default in place.
func (f limitFlags) decoderOptions() []hessian.DecoderOption {
	var options []hessian.DecoderOption
	if f.MaxDepth > 0 {
		options = append(options, hessian.WithMaxDepth(f.MaxDepth))
	}
	if f.MaxValueBytes > 0 {
		options = append(options, hessian.WithMaxValueBytes(f.MaxValueBytes.Int()))
	}
	return options
}
