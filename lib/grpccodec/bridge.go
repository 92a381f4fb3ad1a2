// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package grpccodec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/hessian"
	"github.com/bureau-foundation/hessian/lib/service"
)

// Trailer keys carrying a fault across gRPC. The detail is the
// canonical Hessian encoding of Fault.Detail; gRPC base64-encodes
// "-bin" keys on the wire.
const (
	FaultCodeKey   = "hessian-fault-code"
	FaultDetailKey = "hessian-fault-detail-bin"
)

// Register exposes every method registered on server as a unary gRPC
// method of serviceName. Requests are a list of the call's arguments;
// responses are the method's result. Methods added to server after
// Register are not exposed.
func Register(registrar grpc.ServiceRegistrar, serviceName string, server *service.Server) {
	registrar.RegisterService(ServiceDesc(serviceName, server), server)
}

// ServiceDesc builds the gRPC service description Register uses.
func ServiceDesc(serviceName string, server *service.Server) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
	}
	for _, method := range server.Methods() {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: method,
			Handler:    methodHandler(serviceName, method, server),
		})
	}
	return desc
}

func methodHandler(serviceName, method string, server *service.Server) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, decode func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		var request hessian.Value
		if err := decode(&request); err != nil {
			return nil, err
		}
		invoke := func(ctx context.Context, request any) (any, error) {
			return dispatch(ctx, server, method, request)
		}
		if interceptor == nil {
			return invoke(ctx, request)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, request, info, invoke)
	}
}

func dispatch(ctx context.Context, server *service.Server, method string, request any) (any, error) {
	arguments, ok := request.(*hessian.List)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "request for %s must be an argument list, got %T", method, request)
	}

	result, fault := server.Dispatch(ctx, method, arguments.Elements)
	if fault != nil {
		return nil, faultStatus(ctx, fault)
	}
	if result == nil {
		return hessian.Null{}, nil
	}
	return result, nil
}

// faultStatus records fault in the call's trailer and returns the
// status error ending the call.
func faultStatus(ctx context.Context, fault *envelope.Fault) error {
	trailer := metadata.Pairs(FaultCodeKey, fault.Code)
	if fault.Detail != nil {
		if detail, err := hessian.Marshal(fault.Detail); err == nil {
			trailer.Append(FaultDetailKey, string(detail))
		}
	}
	// Only fails outside a gRPC handler.
	_ = grpc.SetTrailer(ctx, trailer)

	code := codes.Unknown
	switch fault.Code {
	case envelope.CodeNoSuchMethod:
		code = codes.Unimplemented
	case envelope.CodeProtocol:
		code = codes.InvalidArgument
	}
	return status.Error(code, fault.Message)
}

// Client calls methods exposed by Register. It implements
// service.Caller, so code written against the socket or HTTP client
// works over gRPC unchanged.
type Client struct {
	conn        grpc.ClientConnInterface
	serviceName string
	options     []grpc.CallOption
}

var _ service.Caller = (*Client)(nil)

// NewClient returns a client for serviceName on conn. The options are
// added to every call.
func NewClient(conn grpc.ClientConnInterface, serviceName string, options ...grpc.CallOption) *Client {
	return &Client{conn: conn, serviceName: serviceName, options: options}
}

// Call invokes method with arguments. A fault raised by the method is
// returned as an *envelope.Fault; a method the server does not expose
// is a NoSuchMethodException fault. Transport failures are returned
// as gRPC status errors.
func (c *Client) Call(ctx context.Context, method string, arguments ...hessian.Value) (hessian.Value, error) {
	var trailer metadata.MD
	options := append([]grpc.CallOption{grpc.CallContentSubtype(Name), grpc.Trailer(&trailer)}, c.options...)

	var reply hessian.Value
	err := c.conn.Invoke(ctx, "/"+c.serviceName+"/"+method, hessian.NewList(arguments...), &reply, options...)
	if err == nil {
		return reply, nil
	}
	if fault := faultFromStatus(err, trailer); fault != nil {
		return nil, fault
	}
	return nil, fmt.Errorf("calling %q on %s: %w", method, c.serviceName, err)
}

func faultFromStatus(err error, trailer metadata.MD) *envelope.Fault {
	callStatus, ok := status.FromError(err)
	if !ok {
		return nil
	}
	if codeValues := trailer.Get(FaultCodeKey); len(codeValues) > 0 {
		fault := &envelope.Fault{Code: codeValues[0], Message: callStatus.Message()}
		if detailValues := trailer.Get(FaultDetailKey); len(detailValues) > 0 {
			if detail, err := hessian.Unmarshal([]byte(detailValues[0])); err == nil {
				fault.Detail = detail
			}
		}
		return fault
	}
	if callStatus.Code() == codes.Unimplemented {
		return &envelope.Fault{Code: envelope.CodeNoSuchMethod, Message: callStatus.Message()}
	}
	return nil
}
