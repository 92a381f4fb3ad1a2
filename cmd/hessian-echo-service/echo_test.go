// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bureau-foundation/hessian/lib/clock"
	"github.com/bureau-foundation/hessian/lib/config"
	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/grpccodec"
	"github.com/bureau-foundation/hessian/lib/hessian"
	"github.com/bureau-foundation/hessian/lib/service"
	"github.com/bureau-foundation/hessian/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEcho(t *testing.T) (*echoService, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	echo := &echoService{
		server:     service.NewServer("unix", testutil.SocketPath(t, "echo.sock"), discardLogger()),
		clock:      fake,
		startedAt:  fake.Now(),
		binaryHash: "abc123",
	}
	echo.register()
	return echo, fake
}

func requireFaultCode(t *testing.T, fault *envelope.Fault, code string) {
	t.Helper()
	if fault == nil {
		t.Fatalf("no fault, want %s", code)
	}
	if fault.Code != code {
		t.Fatalf("fault code = %q, want %q (message %q)", fault.Code, code, fault.Message)
	}
}

func TestEcho(t *testing.T) {
	echo, _ := newEcho(t)
	shared := hessian.NewList(hessian.String("x"))

	result, fault := echo.server.Dispatch(t.Context(), "echo", []hessian.Value{hessian.Int32(1), shared, shared})
	if fault != nil {
		t.Fatalf("echo fault: %v", fault)
	}
	want := hessian.NewList(hessian.Int32(1), shared, shared)
	if !hessian.Equal(result, want) {
		t.Errorf("echo = %#v, want %#v", result, want)
	}
}

func TestStatus(t *testing.T) {
	echo, fake := newEcho(t)
	fake.Advance(90 * time.Second)

	result, fault := echo.server.Dispatch(t.Context(), "status", nil)
	if fault != nil {
		t.Fatalf("status fault: %v", fault)
	}
	status, ok := result.(*hessian.Map)
	if !ok {
		t.Fatalf("status = %T, want *hessian.Map", result)
	}

	uptime, _ := status.Get(hessian.String("uptime_seconds"))
	if uptime != hessian.Float64(90) {
		t.Errorf("uptime_seconds = %#v, want 90", uptime)
	}
	startedAt, _ := status.Get(hessian.String("started_at"))
	if startedAt != hessian.DateOf(epoch) {
		t.Errorf("started_at = %#v, want %v", startedAt, epoch)
	}
	hash, _ := status.Get(hessian.String("binary_hash"))
	if hash != hessian.String("abc123") {
		t.Errorf("binary_hash = %#v", hash)
	}
	if _, ok := status.Get(hessian.String("version")); !ok {
		t.Error("status has no version")
	}

	_, fault = echo.server.Dispatch(t.Context(), "status", []hessian.Value{hessian.Null{}})
	requireFaultCode(t, fault, envelope.CodeService)
}

func TestDescribe(t *testing.T) {
	echo, _ := newEcho(t)

	result, fault := echo.server.Dispatch(t.Context(), "describe", nil)
	if fault != nil {
		t.Fatalf("describe fault: %v", fault)
	}
	want := hessian.NewList(hessian.String("describe"), hessian.String("echo"), hessian.String("sleep"), hessian.String("status"))
	if !hessian.Equal(result, want) {
		t.Errorf("describe = %#v, want %#v", result, want)
	}
}

func TestSleep(t *testing.T) {
	echo, fake := newEcho(t)

	type reply struct {
		result hessian.Value
		fault  *envelope.Fault
	}
	done := make(chan reply, 1)
	go func() {
		result, fault := echo.server.Dispatch(t.Context(), "sleep", []hessian.Value{hessian.Int32(500)})
		done <- reply{result, fault}
	}()

	fake.WaitForTimers(1)
	select {
	case <-done:
		t.Fatal("sleep returned before the clock advanced")
	default:
	}

	fake.Advance(500 * time.Millisecond)
	got := testutil.RequireReceive(t, done, 5*time.Second, "waiting for sleep to return")
	if got.fault != nil {
		t.Fatalf("sleep fault: %v", got.fault)
	}
	if got.result != (hessian.Null{}) {
		t.Errorf("sleep = %#v, want null", got.result)
	}
}

func TestSleepCancelled(t *testing.T) {
	echo, fake := newEcho(t)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan *envelope.Fault, 1)
	go func() {
		_, fault := echo.server.Dispatch(ctx, "sleep", []hessian.Value{hessian.Int64(10_000)})
		done <- fault
	}()

	fake.WaitForTimers(1)
	cancel()

	fault := testutil.RequireReceive(t, done, 5*time.Second, "waiting for cancelled sleep")
	requireFaultCode(t, fault, envelope.CodeService)
}

func TestSleepRejectsArguments(t *testing.T) {
	echo, _ := newEcho(t)

	tests := []struct {
		name      string
		arguments []hessian.Value
	}{
		{"none", nil},
		{"two", []hessian.Value{hessian.Int32(1), hessian.Int32(2)}},
		{"string", []hessian.Value{hessian.String("100")}},
		{"null", []hessian.Value{hessian.Null{}}},
		{"negative", []hessian.Value{hessian.Int32(-1)}},
		{"too long", []hessian.Value{hessian.Int64(int64(2 * time.Minute / time.Millisecond))}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, fault := echo.server.Dispatch(t.Context(), "sleep", test.arguments)
			requireFaultCode(t, fault, envelope.CodeService)
		})
	}
}

func TestEchoOverSocket(t *testing.T) {
	echo, _ := newEcho(t)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- echo.server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve to return")
	})
	testutil.RequireClosed(t, echo.server.Ready(), 5*time.Second, "server ready")

	client, err := service.NewClient("unix", echo.server.Addr().String())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	result, err := client.Call(t.Context(), "echo", hessian.String("over the socket"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !hessian.Equal(result, hessian.NewList(hessian.String("over the socket"))) {
		t.Errorf("result = %#v", result)
	}
}

func TestServeGRPC(t *testing.T) {
	echo, _ := newEcho(t)

	listener := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- serveGRPC(ctx, listener, echo.server, discardLogger()) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	client := grpccodec.NewClient(conn, grpcServiceName)
	result, err := client.Call(t.Context(), "describe")
	if err != nil {
		t.Fatalf("Call describe: %v", err)
	}
	if list, ok := result.(*hessian.List); !ok || len(list.Elements) != 4 {
		t.Errorf("describe over gRPC = %#v, want four methods", result)
	}

	cancel()
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for gRPC server to stop"); err != nil {
		t.Errorf("serveGRPC = %v, want nil after cancellation", err)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig defaults: %v", err)
	}
	if cfg.Service.Network != "unix" {
		t.Errorf("default network = %q, want unix", cfg.Service.Network)
	}

	path := filepath.Join(t.TempDir(), "hessian.yaml")
	if err := os.WriteFile(path, []byte("service:\n  network: tcp\n  address: 127.0.0.1:7070\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv(config.EnvironmentVariable, path)
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig from environment: %v", err)
	}
	if cfg.Service.Network != "tcp" || cfg.Service.Address != "127.0.0.1:7070" {
		t.Errorf("service = %+v, want the file's tcp address", cfg.Service)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadConfig accepted a missing file")
	}
}

func TestOverride(t *testing.T) {
	value := "from config"
	override(&value, "")
	if value != "from config" {
		t.Errorf("empty override changed the value to %q", value)
	}
	override(&value, "from flag")
	if value != "from flag" {
		t.Errorf("override = %q, want from flag", value)
	}
}
