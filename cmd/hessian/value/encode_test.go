// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

func TestEncodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  hessian.Value
	}{
		{
			name:  "object keys are sorted",
			input: `{"name": "widget", "count": 42}`,
			want:  mustFromGo(t, map[string]any{"count": 42, "name": "widget"}),
		},
		{
			name:  "number narrowing",
			input: `[1, 2147483648, 2.5, -2147483648]`,
			want:  hessian.NewList(hessian.Int32(1), hessian.Int64(2147483648), hessian.Float64(2.5), hessian.Int32(-2147483648)),
		},
		{
			name:  "comments and trailing commas",
			input: "// a call argument\n{\"enabled\": true, /* inline */ \"tags\": [\"a\",],}",
			want:  mustFromGo(t, map[string]any{"enabled": true, "tags": []any{"a"}}),
		},
		{
			name:  "scalars",
			input: `null`,
			want:  hessian.Null{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var output bytes.Buffer
			if err := encodeJSON([]byte(test.input), &output, false); err != nil {
				t.Fatalf("encodeJSON: %v", err)
			}
			want := marshal(t, test.want)
			if !bytes.Equal(output.Bytes(), want) {
				t.Errorf("output = %x, want %x", output.Bytes(), want)
			}
		})
	}
}

func TestEncodeJSON_Sequence(t *testing.T) {
	var output bytes.Buffer
	if err := encodeJSON([]byte("1\n\"two\"\n[3]\n"), &output, false); err != nil {
		t.Fatalf("encodeJSON: %v", err)
	}

	values, err := decodeSequence(output.Bytes())
	if err != nil {
		t.Fatalf("decodeSequence: %v", err)
	}
	want := []hessian.Value{hessian.Int32(1), hessian.String("two"), hessian.NewList(hessian.Int32(3))}
	if len(values) != len(want) {
		t.Fatalf("decoded %d values, want %d", len(values), len(want))
	}
	for index := range want {
		if !hessian.Equal(values[index], want[index]) {
			t.Errorf("value %d = %#v, want %#v", index, values[index], want[index])
		}
	}
}

func TestEncodeJSON_HexOutput(t *testing.T) {
	var output bytes.Buffer
	if err := encodeJSON([]byte("1"), &output, true); err != nil {
		t.Fatalf("encodeJSON: %v", err)
	}
	if want := hex.EncodeToString([]byte{0x91}) + "\n"; output.String() != want {
		t.Errorf("output = %q, want %q", output.String(), want)
	}
}

func TestEncodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"only a comment", "// nothing here\n"},
		{"invalid JSON", `{"unterminated": `},
		{"bad second value", `1 }`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var output bytes.Buffer
			err := encodeJSON([]byte(test.input), &output, false)
			requireCategory(t, err, cli.CategoryValidation)
			if output.Len() != 0 {
				t.Errorf("output on error = %x, want none", output.Bytes())
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	input := `{"items":[{"id":1,"price":9.75}],"owner":"ops","total":3000000000}`

	var encoded bytes.Buffer
	if err := encodeJSON([]byte(input), &encoded, false); err != nil {
		t.Fatalf("encodeJSON: %v", err)
	}
	var decoded bytes.Buffer
	if err := decodeHessian(encoded.Bytes(), &decoded, true, false); err != nil {
		t.Fatalf("decodeHessian: %v", err)
	}
	if decoded.String() != input+"\n" {
		t.Errorf("round trip = %q, want %q", decoded.String(), input+"\n")
	}
}

func TestParseJSON(t *testing.T) {
	value, err := ParseJSON(`{"limit": 10} // trailing comment`)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if !hessian.Equal(value, mustFromGo(t, map[string]any{"limit": 10})) {
		t.Errorf("value = %#v", value)
	}

	if _, err := ParseJSON(`1 2`); err == nil {
		t.Error("ParseJSON accepted two values")
	}
	if _, err := ParseJSON(`{`); err == nil {
		t.Error("ParseJSON accepted truncated JSON")
	}
}
