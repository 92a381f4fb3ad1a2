// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"decode", "deocde", 2},
		{"digest", "digst", 1},
		{"validate", "valdiate", 2},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			got := levenshtein(test.a, test.b)
			if got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if reverse := levenshtein(test.b, test.a); reverse != got {
				t.Errorf("levenshtein(%q, %q) = %d, but reverse = %d", test.a, test.b, got, reverse)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "decode"},
		{Name: "encode"},
		{Name: "diag"},
		{Name: "validate"},
		{Name: "digest"},
		{Name: "call"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"deocde", "decode"},     // transposition
		{"encod", "encode"},      // missing letter
		{"validatte", "validate"}, // extra letter
		{"cal", "call"},          // missing letter
		{"zzzzzzzzz", ""},        // nothing close
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got := suggestCommand(test.input, commands)
			if got != test.want {
				t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSuggestFlag(t *testing.T) {
	makeFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("address", "", "")
		flagSet.String("network", "", "")
		flagSet.Bool("compact", false, "")
		flagSet.Bool("hex", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "close typo with double dash",
			args: []string{"--adress"},
			want: "--address",
		},
		{
			name: "close typo with single dash",
			args: []string{"-netwrk"},
			want: "--network",
		},
		{
			name: "compact typo",
			args: []string{"--compcat"},
			want: "--compact",
		},
		{
			name: "nothing close",
			args: []string{"--zzzzzzzzz"},
			want: "",
		},
		{
			name: "no flags",
			args: []string{"positional"},
			want: "",
		},
		{
			name: "flag with equals",
			args: []string{"--adress=/tmp/echo.sock"},
			want: "--address",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := suggestFlag(test.args, makeFlagSet())
			if got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
