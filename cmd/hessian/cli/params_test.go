// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Address   string        `flag:"address" desc:"service address"`
		Compact   bool          `flag:"compact,c" desc:"compact output"`
		ChunkSize int           `flag:"chunk-size" desc:"chunk size"`
		MaxBytes  ByteSize      `flag:"max-bytes" desc:"response limit"`
		Timeout   time.Duration `flag:"timeout" desc:"call timeout"`
		Untagged  string        // no flag tag, skipped
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	err := flagSet.Parse([]string{
		"--address", "/run/echo.sock",
		"-c",
		"--chunk-size", "1024",
		"--max-bytes", "1TiB",
		"--timeout", "30s",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Address != "/run/echo.sock" {
		t.Errorf("Address = %q", p.Address)
	}
	if !p.Compact {
		t.Error("Compact = false, want true")
	}
	if p.ChunkSize != 1024 {
		t.Errorf("ChunkSize = %d, want 1024", p.ChunkSize)
	}
	if p.MaxBytes != 1<<40 {
		t.Errorf("MaxBytes = %d, want %d", p.MaxBytes, int64(1)<<40)
	}
	if p.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", p.Timeout)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field was bound")
	}
	if got := flagSet.Lookup("max-bytes").Value.Type(); got != "size" {
		t.Errorf("max-bytes type = %q, want size", got)
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Network string        `flag:"network" default:"unix"`
		Hex     bool          `flag:"hex" default:"true"`
		Depth   int           `flag:"depth" default:"1000"`
		Timeout time.Duration `flag:"timeout" default:"45s"`
		Limit   ByteSize      `flag:"limit" default:"1MiB"`
	}

	var p params
	flagSet := FlagsFromParams("test", &p)
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Network != "unix" || !p.Hex || p.Depth != 1000 || p.Timeout != 45*time.Second || p.Limit != 1<<20 {
		t.Errorf("defaults not applied: %+v", p)
	}

	if err := flagSet.Parse([]string{"--network", "tcp", "--hex=false"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Network != "tcp" || p.Hex {
		t.Errorf("command line did not override defaults: %+v", p)
	}
}

// connectionFlags binds its own flags, like the call command's
// connection group.
type connectionFlags struct {
	Address string
	Network string
}

func (c *connectionFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Address, "address", "", "service address")
	flagSet.StringVar(&c.Network, "network", "unix", "unix or tcp")
}

func TestBindFlags_FlagBinder(t *testing.T) {
	type named struct {
		Connection connectionFlags
		Compact    bool `flag:"compact"`
	}
	type embedded struct {
		connectionFlags
		Compact bool `flag:"compact"`
	}

	var first named
	flagSet := FlagsFromParams("named", &first)
	if err := flagSet.Parse([]string{"--address", "/tmp/a.sock", "--compact"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if first.Connection.Address != "/tmp/a.sock" || first.Connection.Network != "unix" || !first.Compact {
		t.Errorf("named binder: %+v", first)
	}

	// An unexported embedded binder is walked for tagged fields
	// instead; it has none.
	var second embedded
	flagSet = FlagsFromParams("embedded", &second)
	if flagSet.Lookup("compact") == nil {
		t.Error("own flag missing next to an embedded struct")
	}
	if flagSet.Lookup("address") != nil {
		t.Error("unexported embedded binder registered its flags")
	}
}

func TestBindFlags_EmbeddedStructRecursion(t *testing.T) {
	type inner struct {
		Compact bool `flag:"compact,c"`
		Slurp   bool `flag:"slurp,s"`
	}
	type params struct {
		inner
		Hex bool `flag:"hex"`
	}

	var p params
	flagSet := FlagsFromParams("test", &p)
	if err := flagSet.Parse([]string{"-cs", "--hex", "input.hessian"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.Compact || !p.Slurp || !p.Hex {
		t.Errorf("params = %+v, want all set", p)
	}
	if remaining := flagSet.Args(); len(remaining) != 1 || remaining[0] != "input.hessian" {
		t.Errorf("remaining args = %v, want [input.hessian]", remaining)
	}
}

func TestBindFlags_Errors(t *testing.T) {
	var notStruct int
	if err := BindFlags(&notStruct, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a pointer to an int")
	}

	type params struct {
		Name string `flag:"name"`
	}
	if err := BindFlags(params{}, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a struct value")
	}

	type badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault{}, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted an unparseable default")
	}

	type badSizeDefault struct {
		Limit ByteSize `flag:"limit" default:"lots"`
	}
	if err := BindFlags(&badSizeDefault{}, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted an unparseable size default")
	}

	type unsupported struct {
		Ratio float64 `flag:"ratio"`
	}
	if err := BindFlags(&unsupported{}, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a float64 field")
	}

	type unexported struct {
		name string `flag:"name"`
	}
	if err := BindFlags(&unexported{}, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a tag on an unexported field")
	}
}

func TestFlagsFromParams_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for nil input, got none")
		}
	}()
	FlagsFromParams("test", nil)
}
