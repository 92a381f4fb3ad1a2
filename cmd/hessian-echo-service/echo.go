// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/bureau-foundation/hessian/lib/clock"
	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/hessian"
	"github.com/bureau-foundation/hessian/lib/service"
	"github.com/bureau-foundation/hessian/lib/version"
)

// maxSleep bounds the sleep method so a caller cannot pin a handler
// goroutine indefinitely.
const maxSleep = time.Minute

// echoService implements the methods the echo service exposes.
type echoService struct {
	server     *service.Server
	clock      clock.Clock
	startedAt  time.Time
	binaryHash string
}

// register installs every method on server.
func (e *echoService) register() {
	e.server.Handle("echo", e.echo)
	e.server.Handle("status", e.status)
	e.server.Handle("describe", e.describe)
	e.server.Handle("sleep", e.sleep)
}

// echo replies with its arguments as a list, unchanged. Shared and
// cyclic arguments keep their shape.
func (e *echoService) echo(_ context.Context, arguments []hessian.Value) (hessian.Value, error) {
	return hessian.NewList(arguments...), nil
}

// status reports liveness: uptime, start time, and build.
func (e *echoService) status(_ context.Context, arguments []hessian.Value) (hessian.Value, error) {
	if len(arguments) != 0 {
		return nil, envelope.Faultf(envelope.CodeService, "status takes no arguments, got %d", len(arguments))
	}
	status := &hessian.Map{}
	status.Put(hessian.String("uptime_seconds"), hessian.Float64(e.clock.Now().Sub(e.startedAt).Seconds()))
	status.Put(hessian.String("started_at"), hessian.DateOf(e.startedAt))
	status.Put(hessian.String("version"), hessian.String(version.Info()))
	if e.binaryHash != "" {
		status.Put(hessian.String("binary_hash"), hessian.String(e.binaryHash))
	}
	return status, nil
}

// describe lists the registered method names in sorted order.
func (e *echoService) describe(_ context.Context, _ []hessian.Value) (hessian.Value, error) {
	methods := e.server.Methods()
	list := &hessian.List{Elements: make([]hessian.Value, len(methods))}
	for index, method := range methods {
		list.Elements[index] = hessian.String(method)
	}
	return list, nil
}

// sleep waits for the given number of milliseconds, or until the call
// is abandoned, and replies with null.
func (e *echoService) sleep(ctx context.Context, arguments []hessian.Value) (hessian.Value, error) {
	if len(arguments) != 1 {
		return nil, envelope.Faultf(envelope.CodeService, "sleep takes one argument (milliseconds), got %d", len(arguments))
	}
	var milliseconds int64
	switch argument := arguments[0].(type) {
	case hessian.Int32:
		milliseconds = int64(argument)
	case hessian.Int64:
		milliseconds = int64(argument)
	case nil:
		return nil, envelope.Faultf(envelope.CodeService, "sleep argument must be an int or long, got null")
	default:
		return nil, envelope.Faultf(envelope.CodeService, "sleep argument must be an int or long, got %s", argument.Kind())
	}
	duration := time.Duration(milliseconds) * time.Millisecond
	if milliseconds < 0 || duration > maxSleep {
		return nil, envelope.Faultf(envelope.CodeService, "sleep duration %dms outside [0, %s]", milliseconds, maxSleep)
	}

	select {
	case <-e.clock.After(duration):
		return hessian.Null{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
