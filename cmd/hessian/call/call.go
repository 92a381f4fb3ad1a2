// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package call

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/cmd/hessian/value"
	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/hessian"
	"github.com/bureau-foundation/hessian/lib/service"
)

// callParams holds the parameters for the "hessian call" command.
type callParams struct {
	ConnectionFlags

	Timeout time.Duration `json:"timeout" flag:"timeout,t" default:"30s" desc:"give up on the call after this long"`
	Compact bool          `json:"compact" flag:"compact,c" desc:"compact output (no indentation)"`
}

// Command returns the "call" command.
func Command() *cli.Command {
	var params callParams

	return &cli.Command{
		Name:    "call",
		Summary: "Call a method on a Hessian service",
		Description: `Send one call to a Hessian service and print the reply as JSON.

Each argument after the method name is one JSON (or JSONC) value. Numbers
take the narrowest Hessian variant that holds them: int, then long, then
double. Quote string arguments for the shell as well as for JSON.

The service is reached over a socket with --address (a unix socket path
by default, host:port with --network tcp) or over HTTP with --url. With
neither, the address comes from the config file.

A fault from the service is printed as an error: unknown methods exit 3,
protocol faults exit 2, other faults exit 1. A service that cannot be
reached exits 4.`,
		Usage:  "hessian call [flags] <method> [json-argument...]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Echo two arguments over a unix socket",
				Command:     "hessian call --address /run/hessian/echo.sock echo '\"hello\"' '{\"count\":42}'",
			},
			{
				Description: "List methods over HTTP",
				Command:     "hessian call --url http://localhost:8080/hessian describe",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return cli.Validation("method name required\n\nUsage: hessian call [flags] <method> [json-argument...]")
			}

			caller, target, release, err := params.Dial()
			if err != nil {
				return err
			}
			defer release()

			if params.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, params.Timeout)
				defer cancel()
			}

			logger.Debug("calling service", "method", args[0], "target", target)
			return callService(ctx, caller, target, args[0], args[1:], os.Stdout, params.Compact)
		},
	}
}

// callService parses rawArguments as JSON, sends the call, and writes
// the reply to w.
func callService(ctx context.Context, caller service.Caller, target, method string, rawArguments []string, w io.Writer, compact bool) error {
	arguments := make([]hessian.Value, len(rawArguments))
	for index, raw := range rawArguments {
		argument, err := value.ParseJSON(raw)
		if err != nil {
			return cli.Validation("argument %d (%q): %w", index+1, raw, err)
		}
		arguments[index] = argument
	}

	result, err := caller.Call(ctx, method, arguments...)
	if err != nil {
		return classifyCallError(err, target)
	}
	return value.WriteJSON(w, result, compact)
}

// classifyCallError maps a call failure to a ToolError category.
func classifyCallError(err error, target string) error {
	var fault *envelope.Fault
	if errors.As(err, &fault) {
		switch fault.Code {
		case envelope.CodeNoSuchMethod:
			return cli.NotFound("%w", err).WithHint("Call \"describe\" to list the methods the service offers.")
		case envelope.CodeProtocol:
			return cli.Validation("%w", err)
		}
		return cli.Internal("%w", err)
	}

	switch {
	case errors.Is(err, unix.ECONNREFUSED), errors.Is(err, unix.ENOENT):
		return cli.Transient("%w", err).
			WithHint("Is a service listening on " + target + "? Start one with hessian-echo-service.")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, hessian.ErrIOFailure):
		return cli.Transient("%w", err)
	}
	return cli.Internal("%w", err)
}
