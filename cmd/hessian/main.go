// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Categorized errors pick the exit code; everything else,
		// including commands that printed their own result and only
		// carry an exit code, goes through process.Fatal.
		var toolErr *cli.ToolError
		if errors.As(err, &toolErr) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(toolErr.Category.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rootCommand().Execute(ctx, os.Args[1:])
}
