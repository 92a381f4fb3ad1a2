// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the hessian CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory (or a
// tagged parameter struct bound by [BindFlags]), and a Run function.
// Commands are assembled into a tree in cmd/hessian/main.go and
// dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Commands report failures as [ToolError] values whose category selects
// the exit status, or as [ExitError] when they have already written
// their own output.
package cli
