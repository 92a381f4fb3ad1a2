// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// ContentType is the media type of Hessian request and response bodies.
const ContentType = "application/x-hessian"

// ServeHTTP answers one call envelope carried in a POST body. Replies
// and faults are both sent with status 200; the envelope kind tells
// them apart. Methods other than POST get 405.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "hessian endpoint accepts POST only", http.StatusMethodNotAllowed)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxRequestBytes)
	var response bytes.Buffer
	encoder := hessian.NewEncoder(&response, s.encoderOptions...)

	call, err := envelope.ReadCall(hessian.NewDecoder(body, s.decoderOptions...))
	if errors.Is(err, io.EOF) {
		err = errors.New("empty request body")
	}
	if err != nil {
		s.logger.Debug("invalid call", "remote", r.RemoteAddr, "error", err)
		err = s.writeFault(encoder, envelope.Faultf(envelope.CodeProtocol, "invalid call: %v", err))
	} else {
		err = s.respond(r.Context(), encoder, call)
	}
	if err != nil {
		http.Error(w, "encoding response failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(response.Bytes()); err != nil {
		s.logger.Debug("writing http response failed", "remote", r.RemoteAddr, "error", err)
	}
}

// HTTPServer serves a handler (normally a *Server) on a TCP listener,
// with graceful shutdown.
type HTTPServer struct {
	address string
	handler http.Handler
	logger  *slog.Logger

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	ready chan struct{}
	addr  net.Addr
}

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address (":8080", "127.0.0.1:0").
	// Required.
	Address string

	// Handler answers requests. Required.
	Handler http.Handler

	// ReadTimeout and WriteTimeout bound one request and one response.
	// Zero selects DefaultReadTimeout and DefaultWriteTimeout.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ShutdownTimeout bounds the wait for in-flight requests after the
	// context is cancelled. Defaults to 10 seconds.
	ShutdownTimeout time.Duration

	// Logger is required.
	Logger *slog.Logger
}

// NewHTTPServer creates a server for config. Call Serve to start it.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	if config.Address == "" {
		panic("service.HTTPServer: Address is required")
	}
	if config.Handler == nil {
		panic("service.HTTPServer: Handler is required")
	}
	if config.Logger == nil {
		panic("service.HTTPServer: Logger is required")
	}

	server := &HTTPServer{
		address:         config.Address,
		handler:         config.Handler,
		logger:          config.Logger,
		readTimeout:     cmp(config.ReadTimeout, DefaultReadTimeout),
		writeTimeout:    cmp(config.WriteTimeout, DefaultWriteTimeout),
		shutdownTimeout: cmp(config.ShutdownTimeout, 10*time.Second),
		ready:           make(chan struct{}),
	}
	return server
}

// cmp returns value, or fallback when value is zero.
func cmp(value, fallback time.Duration) time.Duration {
	if value == 0 {
		return fallback
	}
	return value
}

// Ready returns a channel that is closed once the listener is bound.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Only valid after Ready is closed.
func (s *HTTPServer) Addr() net.Addr {
	return s.addr
}

// Serve accepts requests until ctx is cancelled, then stops accepting
// and waits up to the shutdown timeout for active requests.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       2 * s.readTimeout,
	}

	s.logger.Info("hessian http server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		return err
	}

	shutdownContext, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownContext); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("hessian http server stopped")
	return nil
}

// HTTPClient calls a Hessian HTTP endpoint, one POST per call.
type HTTPClient struct {
	url              string
	client           *http.Client
	maxResponseBytes int64
	encoderOptions   []hessian.EncoderOption
	decoderOptions   []hessian.DecoderOption
}

// NewHTTPClient returns a client for url. A nil client uses
// http.DefaultClient.
func NewHTTPClient(url string, client *http.Client, options ...ClientOption) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	// ClientOptions that concern the HTTP transport are ignored; the
	// response limit and codec options apply.
	settings := &Client{maxResponseBytes: DefaultMaxResponseBytes}
	for _, option := range options {
		option(settings)
	}
	return &HTTPClient{
		url:              url,
		client:           client,
		maxResponseBytes: settings.maxResponseBytes,
		encoderOptions:   settings.encoderOptions,
		decoderOptions:   settings.decoderOptions,
	}
}

// Call posts one call envelope and reads the response envelope. A
// remote fault is returned as an *envelope.Fault error.
func (c *HTTPClient) Call(ctx context.Context, method string, arguments ...hessian.Value) (hessian.Value, error) {
	var body bytes.Buffer
	if err := envelope.WriteCall(hessian.NewEncoder(&body, c.encoderOptions...), method, arguments...); err != nil {
		return nil, fmt.Errorf("calling %q on %s: %w", method, c.url, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("calling %q: building request: %w", method, err)
	}
	request.Header.Set("Content-Type", ContentType)

	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("calling %q on %s: %w", method, c.url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calling %q on %s: HTTP %s", method, c.url, response.Status)
	}

	decoder := hessian.NewDecoder(io.LimitReader(response.Body, c.maxResponseBytes), c.decoderOptions...)
	result, err := envelope.ReadResponse(decoder)
	if err != nil {
		var fault *envelope.Fault
		if errors.As(err, &fault) {
			return nil, err
		}
		return nil, fmt.Errorf("calling %q on %s: reading response: %w", method, c.url, err)
	}
	return result, nil
}
