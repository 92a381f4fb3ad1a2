// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import "github.com/bureau-foundation/hessian/cmd/hessian/cli"

// Commands returns the stream commands, in the order they appear in
// the root help listing.
func Commands() []*cli.Command {
	return []*cli.Command{
		decodeCommand(),
		encodeCommand(),
		diagCommand(),
		validateCommand(),
		digestCommand(),
		cborCommand(),
	}
}
