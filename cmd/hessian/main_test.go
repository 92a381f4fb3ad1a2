// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
)

// TestCommandTree walks the full production command tree and checks
// that every leaf can run, documents itself, and that no two siblings
// share a name.
func TestCommandTree(t *testing.T) {
	root := rootCommand()
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")

		seen := make(map[string]bool)
		for _, sub := range command.Subcommands {
			if seen[sub.Name] {
				t.Errorf("%s: duplicate subcommand %q", name, sub.Name)
			}
			seen[sub.Name] = true
		}

		if len(command.Subcommands) > 0 {
			return
		}
		if command.Run == nil {
			t.Errorf("%s: leaf command has no Run", name)
		}
		if command.Summary == "" {
			t.Errorf("%s: leaf command has no Summary", name)
		}
		if command.Params != nil {
			// Panics on a malformed tag.
			cli.FlagsFromParams(command.Name, command.Params())
		}
	})
}

func TestRootListsCommands(t *testing.T) {
	root := rootCommand()
	var help bytes.Buffer
	root.PrintHelp(&help)
	for _, name := range []string{"decode", "encode", "diag", "validate", "digest", "cbor", "call", "version"} {
		if !strings.Contains(help.String(), "  "+name) {
			t.Errorf("root help does not list %q:\n%s", name, help.String())
		}
	}
}

func TestWriteVersion(t *testing.T) {
	var output bytes.Buffer
	if err := writeVersion(&output, false); err != nil {
		t.Fatalf("writeVersion: %v", err)
	}
	if !strings.HasPrefix(output.String(), "hessian ") {
		t.Errorf("output = %q, want a hessian version line", output.String())
	}

	output.Reset()
	if err := writeVersion(&output, true); err != nil {
		t.Fatalf("writeVersion full: %v", err)
	}
	if !strings.Contains(output.String(), "BLAKE3: ") {
		t.Errorf("full output = %q, want the binary digest", output.String())
	}
}

// walkCommands recursively visits every command in the tree,
// calling visit for each node with the accumulated command path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}
