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
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// MethodFunc handles one call. The arguments belong to the handler;
// they are not reused after it returns. Return a value for the reply
// (nil replies with null) or an error for a fault. An error that is an
// *envelope.Fault is sent as is; any other error becomes a
// ServiceException carrying err.Error().
type MethodFunc func(ctx context.Context, arguments []hessian.Value) (hessian.Value, error)

// Default limits, overridden by ServerOptions (see lib/config).
const (
	// DefaultReadTimeout bounds how long a connection may sit idle
	// between calls, and how long one call may take to arrive.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout bounds writing one response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMaxRequestBytes bounds one call envelope.
	DefaultMaxRequestBytes = 1024 * 1024
)

// Server dispatches Hessian calls to registered methods.
//
// Register methods with Handle before calling Serve or passing the
// server to an HTTP listener.
type Server struct {
	network string
	address string
	logger  *slog.Logger

	handlers map[string]MethodFunc

	readTimeout     time.Duration
	writeTimeout    time.Duration
	maxRequestBytes int64
	encoderOptions  []hessian.EncoderOption
	decoderOptions  []hessian.DecoderOption

	// ready is closed once the listener is bound; addr is valid after.
	ready chan struct{}
	addr  net.Addr
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithTimeouts sets the per-call read and per-response write timeouts.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// WithMaxRequestBytes bounds the size of one call envelope.
func WithMaxRequestBytes(n int64) ServerOption {
	return func(s *Server) { s.maxRequestBytes = n }
}

// WithServerCodec sets the options for the encoder and decoder of every
// connection.
func WithServerCodec(encoderOptions []hessian.EncoderOption, decoderOptions []hessian.DecoderOption) ServerOption {
	return func(s *Server) {
		s.encoderOptions = encoderOptions
		s.decoderOptions = decoderOptions
	}
}

// NewServer creates a server that will listen on address. network is
// "unix" or "tcp".
func NewServer(network, address string, logger *slog.Logger, options ...ServerOption) *Server {
	s := &Server{
		network:         network,
		address:         address,
		logger:          logger,
		handlers:        make(map[string]MethodFunc),
		readTimeout:     DefaultReadTimeout,
		writeTimeout:    DefaultWriteTimeout,
		maxRequestBytes: DefaultMaxRequestBytes,
		ready:           make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Handle registers a method. Panics if the method is already
// registered or if called after serving has started.
func (s *Server) Handle(method string, handler MethodFunc) {
	if _, exists := s.handlers[method]; exists {
		panic(fmt.Sprintf("service.Server: duplicate handler for method %q", method))
	}
	s.handlers[method] = handler
}

// Methods returns the registered method names, sorted.
func (s *Server) Methods() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Ready returns a channel that is closed once Serve has bound its
// listener.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address. Only valid after Ready is
// closed; useful when a TCP address asks for port 0.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Serve accepts connections and answers calls until ctx is cancelled,
// then stops accepting, interrupts idle connections, and waits for
// in-flight calls to finish.
//
// For the "unix" network a stale socket file at the address is removed
// before listening, and the socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if s.network == "unix" {
		if err := os.Remove(s.address); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stale socket %s: %w", s.address, err)
		}
	}

	listener, err := net.Listen(s.network, s.address)
	if err != nil {
		return fmt.Errorf("listening on %s %s: %w", s.network, s.address, err)
	}
	defer func() {
		listener.Close()
		if s.network == "unix" {
			os.Remove(s.address)
		}
	}()
	s.addr = listener.Addr()
	close(s.ready)

	// Unblock Accept when the context is cancelled.
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	s.logger.Info("hessian server listening", "network", s.network, "address", s.addr.String())

	var connections errgroup.Group
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		connections.Go(func() error {
			s.handleConnection(ctx, conn)
			return nil
		})
	}

	connections.Wait()
	s.logger.Info("hessian server stopped", "address", s.addr.String())
	return nil
}

// handleConnection answers calls on conn until the client closes it,
// a call cannot be decoded, or ctx is cancelled.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Cancellation interrupts a read blocked waiting for the next call.
	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	remote := conn.RemoteAddr().String()
	limit := &io.LimitedReader{R: conn}
	decoder := hessian.NewDecoder(limit, s.decoderOptions...)
	encoder := hessian.NewEncoder(conn, s.encoderOptions...)

	for {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		if ctx.Err() != nil {
			return
		}
		// The budget is per call. Bytes the decoder buffered ahead
		// from a pipelined call count against the earlier one.
		limit.N = s.maxRequestBytes

		call, err := envelope.ReadCall(decoder)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				// Client closed between calls.
			case ctx.Err() != nil:
			case errors.Is(err, os.ErrDeadlineExceeded):
				s.logger.Debug("connection idle, closing", "remote", remote)
			default:
				s.logger.Debug("invalid call", "remote", remote, "error", err)
				conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
				s.writeFault(encoder, envelope.Faultf(envelope.CodeProtocol, "invalid call: %v", err))
			}
			return
		}

		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := s.respond(ctx, encoder, call); err != nil {
			s.logger.Debug("writing response failed", "remote", remote, "method", call.Method, "error", err)
			return
		}
	}
}

// respond runs the method for call and writes its reply or fault. The
// returned error is a sink failure; the connection is unusable after
// it.
func (s *Server) respond(ctx context.Context, encoder *hessian.Encoder, call *envelope.Call) error {
	result, fault := s.Dispatch(ctx, call.Method, call.Arguments)
	if fault != nil {
		return s.writeFault(encoder, fault)
	}

	err := envelope.WriteReply(encoder, result)
	if err == nil || errors.Is(err, hessian.ErrIOFailure) {
		return err
	}
	// The handler returned a value the encoder rejects. Nothing was
	// written, so the caller still gets a well-formed answer.
	s.logger.Error("method returned an unencodable value", "method", call.Method, "error", err)
	return s.writeFault(encoder, envelope.Faultf(envelope.CodeService, "encoding reply: %v", err))
}

// Dispatch runs the handler registered for method and converts its
// error to a fault. Transports other than the socket and HTTP ones
// (see lib/grpccodec) call it directly.
func (s *Server) Dispatch(ctx context.Context, method string, arguments []hessian.Value) (hessian.Value, *envelope.Fault) {
	handler, exists := s.handlers[method]
	if !exists {
		return nil, envelope.Faultf(envelope.CodeNoSuchMethod, "unknown method %q", method)
	}

	result, err := handler(ctx, arguments)
	if err != nil {
		s.logger.Debug("method failed", "method", method, "error", err)
		var fault *envelope.Fault
		if errors.As(err, &fault) {
			return nil, fault
		}
		return nil, &envelope.Fault{Code: envelope.CodeService, Message: err.Error()}
	}
	return result, nil
}

func (s *Server) writeFault(encoder *hessian.Encoder, fault *envelope.Fault) error {
	err := envelope.WriteFault(encoder, fault)
	if err != nil {
		s.logger.Debug("failed to write fault", "code", fault.Code, "error", err)
	}
	return err
}
