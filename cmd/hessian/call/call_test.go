// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package call

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/hessian/cmd/hessian/cli"
	"github.com/bureau-foundation/hessian/lib/config"
	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/hessian"
	"github.com/bureau-foundation/hessian/lib/service"
	"github.com/bureau-foundation/hessian/lib/testutil"
)

// startService serves echo and a faulting method on a fresh unix
// socket until the test ends.
func startService(t *testing.T) *service.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := service.NewServer("unix", testutil.SocketPath(t, "call.sock"), logger)
	server.Handle("echo", func(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
		return hessian.NewList(arguments...), nil
	})
	server.Handle("fail", func(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
		return nil, &envelope.Fault{Code: "QuotaExceeded", Message: "try later"}
	})

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve to return")
	})

	select {
	case <-server.Ready():
	case err := <-serveDone:
		t.Fatalf("Serve returned before binding: %v", err)
	case <-t.Context().Done():
		t.Fatal("server did not become ready before test deadline")
	}
	return server
}

func requireCategory(t *testing.T, err error, category cli.ErrorCategory) *cli.ToolError {
	t.Helper()
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v (%T), want a *cli.ToolError", err, err)
	}
	if toolErr.Category != category {
		t.Fatalf("error category = %q, want %q (error: %v)", toolErr.Category, category, err)
	}
	return toolErr
}

func dial(t *testing.T, flags ConnectionFlags) (service.Caller, string) {
	t.Helper()
	caller, target, release, err := flags.Dial()
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(release)
	return caller, target
}

func TestCallServiceSocket(t *testing.T) {
	server := startService(t)
	caller, target := dial(t, ConnectionFlags{Address: server.Addr().String(), Network: "unix"})

	var output bytes.Buffer
	err := callService(t.Context(), caller, target, "echo", []string{`"hello"`, `{"count": 42}`, `3000000000`}, &output, true)
	if err != nil {
		t.Fatalf("callService: %v", err)
	}
	if want := "[\"hello\",{\"count\":42},3000000000]\n"; output.String() != want {
		t.Errorf("output = %q, want %q", output.String(), want)
	}
}

func TestCallServiceHTTP(t *testing.T) {
	server := startService(t)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	caller, target := dial(t, ConnectionFlags{URL: httpServer.URL})
	if target != httpServer.URL {
		t.Errorf("target = %q, want the URL", target)
	}

	var output bytes.Buffer
	if err := callService(t.Context(), caller, target, "echo", []string{"[1, 2]"}, &output, true); err != nil {
		t.Fatalf("callService: %v", err)
	}
	if output.String() != "[[1,2]]\n" {
		t.Errorf("output = %q", output.String())
	}
}

func TestCallServiceFaults(t *testing.T) {
	server := startService(t)
	caller, target := dial(t, ConnectionFlags{Address: server.Addr().String()})

	err := callService(t.Context(), caller, target, "missing", nil, io.Discard, true)
	toolErr := requireCategory(t, err, cli.CategoryNotFound)
	if !strings.Contains(toolErr.Error(), "describe") {
		t.Errorf("error = %q, want a hint to call describe", toolErr.Error())
	}
	var fault *envelope.Fault
	if !errors.As(err, &fault) || fault.Code != envelope.CodeNoSuchMethod {
		t.Errorf("error chain does not carry the NoSuchMethod fault: %v", err)
	}

	err = callService(t.Context(), caller, target, "fail", nil, io.Discard, true)
	requireCategory(t, err, cli.CategoryInternal)
	if !strings.Contains(err.Error(), "QuotaExceeded") {
		t.Errorf("error = %q, want the fault code", err)
	}
}

func TestCallServiceBadArgument(t *testing.T) {
	var output bytes.Buffer
	err := callService(t.Context(), nil, "unused", "echo", []string{`{"open": `}, &output, true)
	toolErr := requireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(toolErr.Error(), "argument 1") {
		t.Errorf("error = %q, want the argument position", toolErr.Error())
	}
}

func TestCallServiceUnreachable(t *testing.T) {
	caller, target := dial(t, ConnectionFlags{Address: testutil.SocketPath(t, "nobody.sock")})

	err := callService(t.Context(), caller, target, "echo", nil, io.Discard, true)
	toolErr := requireCategory(t, err, cli.CategoryTransient)
	if !strings.Contains(toolErr.Error(), "hessian-echo-service") {
		t.Errorf("error = %q, want a hint naming the echo service", toolErr.Error())
	}
}

func TestDialValidation(t *testing.T) {
	tests := []struct {
		name  string
		flags ConnectionFlags
	}{
		{"address and url", ConnectionFlags{Address: "/tmp/x.sock", URL: "http://localhost/"}},
		{"bad network", ConnectionFlags{Address: "/tmp/x.sock", Network: "udp"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv(config.EnvironmentVariable, "")
			_, _, _, err := test.flags.Dial()
			requireCategory(t, err, cli.CategoryValidation)
		})
	}
}

func TestDialConfigFile(t *testing.T) {
	server := startService(t)
	configPath := filepath.Join(t.TempDir(), "hessian.yaml")
	configData := "environment: development\n" +
		"service:\n" +
		"  network: unix\n" +
		"  address: " + server.Addr().String() + "\n"
	if err := os.WriteFile(configPath, []byte(configData), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	caller, target := dial(t, ConnectionFlags{ConfigPath: configPath})
	if target != "unix:"+server.Addr().String() {
		t.Errorf("target = %q, want the configured address", target)
	}

	var output bytes.Buffer
	if err := callService(t.Context(), caller, target, "echo", []string{"true"}, &output, true); err != nil {
		t.Fatalf("callService: %v", err)
	}
	if output.String() != "[true]\n" {
		t.Errorf("output = %q", output.String())
	}
}

func TestDialConfigFromEnvironment(t *testing.T) {
	server := startService(t)
	configPath := filepath.Join(t.TempDir(), "hessian.yaml")
	configData := "service:\n  address: " + server.Addr().String() + "\n"
	if err := os.WriteFile(configPath, []byte(configData), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv(config.EnvironmentVariable, configPath)

	_, target := dial(t, ConnectionFlags{})
	if target != "unix:"+server.Addr().String() {
		t.Errorf("target = %q, want the address from $%s", target, config.EnvironmentVariable)
	}
}

func TestDialMissingConfig(t *testing.T) {
	_, _, _, err := (&ConnectionFlags{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")}).Dial()
	requireCategory(t, err, cli.CategoryNotFound)
}

func TestCommandFlags(t *testing.T) {
	command := Command()
	flagSet := cli.FlagsFromParams(command.Name, command.Params())
	for _, name := range []string{"address", "network", "url", "config", "timeout", "compact"} {
		if flagSet.Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
	if timeout := flagSet.Lookup("timeout"); timeout != nil && timeout.DefValue != "30s" {
		t.Errorf("--timeout default = %q, want 30s", timeout.DefValue)
	}
}

func TestCommandRequiresMethod(t *testing.T) {
	command := Command()
	command.Output = io.Discard
	err := command.Execute(t.Context(), nil)
	requireCategory(t, err, cli.CategoryValidation)
}
