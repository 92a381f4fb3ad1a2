// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/hessian"
	"github.com/bureau-foundation/hessian/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func echo(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
	return hessian.NewList(arguments...), nil
}

// startServer runs server until the test ends and waits for it to bind.
func startServer(t *testing.T, server *Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve to return"); err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})

	select {
	case <-server.Ready():
	case err := <-serveDone:
		t.Fatalf("Serve returned before binding: %v", err)
	case <-t.Context().Done():
		t.Fatal("server did not become ready before test deadline")
	}
}

// newUnixServer creates a server on a fresh socket with the echo method
// registered.
func newUnixServer(t *testing.T, options ...ServerOption) *Server {
	t.Helper()
	server := NewServer("unix", testutil.SocketPath(t, "hessian.sock"), testLogger(), options...)
	server.Handle("echo", echo)
	return server
}

func newTestClient(t *testing.T, server *Server, options ...ClientOption) *Client {
	t.Helper()
	client, err := NewClient(server.Addr().Network(), server.Addr().String(), options...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

// dialRaw opens a connection for tests that write bytes by hand.
func dialRaw(t *testing.T, server *Server) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout(server.Addr().Network(), server.Addr().String(), 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func requireFault(t *testing.T, err error, code string) *envelope.Fault {
	t.Helper()
	var fault *envelope.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("error = %v, want *envelope.Fault", err)
	}
	if fault.Code != code {
		t.Fatalf("fault code = %q (message %q), want %q", fault.Code, fault.Message, code)
	}
	return fault
}

func TestServerCall(t *testing.T) {
	server := newUnixServer(t)
	startServer(t, server)
	client := newTestClient(t, server)

	result, err := client.Call(t.Context(), "echo", hessian.String("hello"), hessian.Int32(42))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	want := hessian.NewList(hessian.String("hello"), hessian.Int32(42))
	if !hessian.Equal(result, want) {
		t.Errorf("result = %#v, want %#v", result, want)
	}
}

func TestServerTCP(t *testing.T) {
	server := NewServer("tcp", "127.0.0.1:0", testLogger())
	server.Handle("echo", echo)
	startServer(t, server)
	client := newTestClient(t, server)

	result, err := client.Call(t.Context(), "echo", hessian.Bool(true))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !hessian.Equal(result, hessian.NewList(hessian.Bool(true))) {
		t.Errorf("result = %#v", result)
	}
}

func TestServerPipelinedCalls(t *testing.T) {
	server := newUnixServer(t)
	startServer(t, server)
	conn := dialRaw(t, server)

	// Both calls go out before either reply is read.
	encoder := hessian.NewEncoder(conn)
	for index := range 3 {
		if err := envelope.WriteCall(encoder, "echo", hessian.Int32(index)); err != nil {
			t.Fatalf("WriteCall %d: %v", index, err)
		}
	}

	decoder := hessian.NewDecoder(conn)
	for index := range 3 {
		result, err := envelope.ReadResponse(decoder)
		if err != nil {
			t.Fatalf("ReadResponse %d: %v", index, err)
		}
		if !hessian.Equal(result, hessian.NewList(hessian.Int32(index))) {
			t.Errorf("reply %d = %#v", index, result)
		}
	}
}

func TestServerUnknownMethod(t *testing.T) {
	server := newUnixServer(t)
	startServer(t, server)
	client := newTestClient(t, server)

	_, err := client.Call(t.Context(), "frobnicate")
	fault := requireFault(t, err, envelope.CodeNoSuchMethod)
	if !strings.Contains(fault.Message, "frobnicate") {
		t.Errorf("fault message %q does not name the method", fault.Message)
	}

	// A fault leaves the connection usable.
	if _, err := client.Call(t.Context(), "echo"); err != nil {
		t.Errorf("Call after fault: %v", err)
	}
}

func TestServerHandlerError(t *testing.T) {
	server := newUnixServer(t)
	server.Handle("fail", func(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
		return nil, fmt.Errorf("disk full")
	})
	server.Handle("reject", func(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
		return nil, &envelope.Fault{Code: "QuotaExceeded", Message: "too many", Detail: hessian.Int32(100)}
	})
	startServer(t, server)
	client := newTestClient(t, server)

	_, err := client.Call(t.Context(), "fail")
	fault := requireFault(t, err, envelope.CodeService)
	if fault.Message != "disk full" {
		t.Errorf("fault message = %q, want %q", fault.Message, "disk full")
	}

	_, err = client.Call(t.Context(), "reject")
	fault = requireFault(t, err, "QuotaExceeded")
	if !hessian.Equal(fault.Detail, hessian.Int32(100)) {
		t.Errorf("fault detail = %#v", fault.Detail)
	}
}

func TestServerNilResult(t *testing.T) {
	server := newUnixServer(t)
	server.Handle("nothing", func(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
		return nil, nil
	})
	startServer(t, server)
	client := newTestClient(t, server)

	result, err := client.Call(t.Context(), "nothing")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !hessian.Equal(result, hessian.Null{}) {
		t.Errorf("result = %#v, want Null", result)
	}
}

func TestServerUnencodableReply(t *testing.T) {
	server := newUnixServer(t)
	server.Handle("broken", func(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
		return hessian.NewObject(hessian.NewClassDef("Point", "x", "y"), hessian.Int32(1)), nil
	})
	startServer(t, server)
	client := newTestClient(t, server)

	_, err := client.Call(t.Context(), "broken")
	fault := requireFault(t, err, envelope.CodeService)
	if !strings.HasPrefix(fault.Message, "encoding reply") {
		t.Errorf("fault message = %q", fault.Message)
	}
}

func TestServerProtocolError(t *testing.T) {
	server := newUnixServer(t)
	startServer(t, server)
	conn := dialRaw(t, server)

	if _, err := conn.Write([]byte{'X', 0x02, 0x00, 'C'}); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}

	decoder := hessian.NewDecoder(conn)
	_, err := envelope.ReadResponse(decoder)
	requireFault(t, err, envelope.CodeProtocol)

	// The server cannot find the next envelope boundary, so it closes.
	if _, err := envelope.ReadResponse(decoder); err != io.EOF {
		t.Errorf("read after protocol fault = %v, want io.EOF", err)
	}
}

func TestServerRequestTooLarge(t *testing.T) {
	server := newUnixServer(t, WithMaxRequestBytes(64))
	startServer(t, server)
	client := newTestClient(t, server)

	_, err := client.Call(t.Context(), "echo", hessian.String(strings.Repeat("x", 200)))
	requireFault(t, err, envelope.CodeProtocol)

	// The limit is per call: a small call on a new connection succeeds.
	if _, err := client.Call(t.Context(), "echo", hessian.String("x")); err != nil {
		t.Errorf("small Call: %v", err)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	server := newUnixServer(t)
	started := make(chan struct{})
	release := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
		close(started)
		<-release
		return hessian.String("done"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "server ready")
	client := newTestClient(t, server)

	type outcome struct {
		result hessian.Value
		err    error
	}
	callDone := make(chan outcome, 1)
	go func() {
		result, err := client.Call(context.Background(), "slow")
		callDone <- outcome{result, err}
	}()

	testutil.RequireClosed(t, started, 5*time.Second, "handler started")
	cancel()
	close(release)

	// The in-flight call completes before the server stops.
	call := testutil.RequireReceive(t, callDone, 5*time.Second, "waiting for slow call")
	if call.err != nil {
		t.Fatalf("in-flight call failed: %v", call.err)
	}
	if !hessian.Equal(call.result, hessian.String("done")) {
		t.Errorf("result = %#v", call.result)
	}

	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve"); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
	if _, err := os.Stat(server.Addr().String()); !os.IsNotExist(err) {
		t.Errorf("socket file still present after shutdown: %v", err)
	}
}

func TestServerRemovesStaleSocket(t *testing.T) {
	server := newUnixServer(t)
	if err := os.WriteFile(server.address, []byte("stale"), 0o600); err != nil {
		t.Fatalf("creating stale file: %v", err)
	}
	startServer(t, server)
	client := newTestClient(t, server)

	if _, err := client.Call(t.Context(), "echo"); err != nil {
		t.Errorf("Call: %v", err)
	}
}

func TestServerDuplicateHandlerPanics(t *testing.T) {
	server := newUnixServer(t)
	defer func() {
		if recover() == nil {
			t.Error("registering echo twice did not panic")
		}
	}()
	server.Handle("echo", echo)
}

func TestServerMethods(t *testing.T) {
	server := newUnixServer(t)
	server.Handle("status", echo)
	server.Handle("describe", echo)
	methods := server.Methods()
	if len(methods) != 3 || methods[0] != "describe" || methods[1] != "echo" || methods[2] != "status" {
		t.Fatalf("Methods() = %v, want [describe echo status]", methods)
	}
}
