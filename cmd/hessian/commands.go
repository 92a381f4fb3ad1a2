// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	callcmd "github.com/bureau-foundation/hessian/cmd/hessian/call"
	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	valuecmd "github.com/bureau-foundation/hessian/cmd/hessian/value"
	"github.com/bureau-foundation/hessian/lib/version"
)

// rootCommand builds the complete hessian command tree.
func rootCommand() *cli.Command {
	subcommands := valuecmd.Commands()
	subcommands = append(subcommands,
		callcmd.Command(),
		versionCommand(),
	)

	return &cli.Command{
		Name: "hessian",
		Description: `hessian: tools for Hessian 2.0 data and services.

Convert Hessian streams to and from JSON and CBOR, check that a stream
uses the canonical encoding, and call methods on Hessian services over
a socket or HTTP.`,
		Subcommands: subcommands,
		Examples: []cli.Example{
			{
				Description: "Decode a captured reply",
				Command:     "hessian decode reply.hessian",
			},
			{
				Description: "Encode JSON, then look at what was written",
				Command:     "echo '{\"count\":42}' | hessian encode | hessian diag",
			},
			{
				Description: "Call the echo service",
				Command:     "hessian call --address /tmp/hessian-echo.sock echo '\"hello\"'",
			},
		},
	}
}

// versionParams holds the parameters for the "hessian version" command.
type versionParams struct {
	Full bool `json:"full" flag:"full" desc:"also print the path and BLAKE3 digest of this binary"`
}

func versionCommand() *cli.Command {
	var params versionParams

	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("version takes no arguments, got %q", args[0])
			}
			return writeVersion(os.Stdout, params.Full)
		},
	}
}

func writeVersion(w io.Writer, full bool) error {
	fmt.Fprintf(w, "hessian %s\n", version.Full())
	if !full {
		return nil
	}
	hash, binaryPath, err := version.ComputeSelfHash()
	if err != nil {
		return cli.Internal("%w", err)
	}
	fmt.Fprintf(w, "  Binary: %s\n  BLAKE3: %s\n", binaryPath, hash)
	return nil
}
