// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

func TestDiagHessian(t *testing.T) {
	point := hessian.NewClassDef("example.Point", "x", "y")

	var input []byte
	input = append(input, marshal(t, hessian.Int32(1))...)     // offset 0
	input = append(input, marshal(t, hessian.String("hi"))...) // offset 1
	objectOffset := len(input)
	input = append(input, marshal(t, hessian.NewObject(point, hessian.Int32(3), hessian.Int32(4)))...)

	var output bytes.Buffer
	if err := diagHessian(input, &output); err != nil {
		t.Fatalf("diagHessian: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(output.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header plus 3:\n%s", len(lines), output.String())
	}

	expectations := [][]string{
		{"OFFSET", "TAG", "NAME", "KIND", "VALUE"},
		{"0", "0x91", "int (direct)", "int", "1"},
		{"1", "0x02", "string (compact)", "string", `"hi"`},
		{strconv.Itoa(objectOffset), "0x43", "class definition", "object", `{"$class":"example.Point","x":3,"y":4}`},
	}
	for index, want := range expectations {
		for _, part := range want {
			if !strings.Contains(lines[index], part) {
				t.Errorf("line %d = %q, missing %q", index, lines[index], part)
			}
		}
	}
}

func TestDiagHessian_ErrorAfterValues(t *testing.T) {
	input := append(marshal(t, hessian.Int32(1)), 0x45)

	var output bytes.Buffer
	err := diagHessian(input, &output)
	requireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), "byte 1") {
		t.Errorf("error = %q, want the offset of the bad value", err)
	}
	if !strings.Contains(output.String(), "0x91") {
		t.Errorf("output = %q, want the line for the value before the error", output.String())
	}
}

func TestDiagHessian_Empty(t *testing.T) {
	requireCategory(t, diagHessian(nil, &bytes.Buffer{}), cli.CategoryValidation)
}

func TestSummarizeCycle(t *testing.T) {
	cyclic := hessian.NewList()
	cyclic.Elements = append(cyclic.Elements, cyclic)
	if got := summarize(cyclic); !strings.HasPrefix(got, "(") {
		t.Errorf("summarize(cyclic) = %q, want a parenthesized reason", got)
	}
}
