// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/silenceper/pool"

	"github.com/bureau-foundation/hessian/lib/envelope"
	"github.com/bureau-foundation/hessian/lib/hessian"
)

// Caller sends calls to a Hessian service.
type Caller interface {
	Call(ctx context.Context, method string, arguments ...hessian.Value) (hessian.Value, error)
}

// Default client settings, overridden by ClientOptions (see lib/config).
const (
	// DefaultDialTimeout covers only the connect phase.
	DefaultDialTimeout = 5 * time.Second

	// DefaultResponseTimeout is how long a call may wait for its
	// response when ctx has no earlier deadline. Matched to the
	// server's read timeout plus write timeout.
	DefaultResponseTimeout = 45 * time.Second

	// DefaultMaxResponseBytes matches the server's request limit.
	DefaultMaxResponseBytes = DefaultMaxRequestBytes

	DefaultMaxConnections     = 16
	DefaultMaxIdleConnections = 4
	DefaultIdleTimeout        = time.Minute
)

// Client calls a socket Server over persistent connections kept in a
// pool. A connection is returned to the pool after a reply or a fault;
// one that saw an I/O or decoding error, or whose call was cancelled,
// is closed instead, since its stream position is unknown.
//
// Client is safe for concurrent use. Calls beyond the connection limit
// wait for a connection to be returned.
type Client struct {
	network string
	address string

	initialConnections int
	maxConnections     int
	maxIdleConnections int
	idleTimeout        time.Duration
	dialTimeout        time.Duration
	responseTimeout    time.Duration
	maxResponseBytes   int64
	encoderOptions     []hessian.EncoderOption
	decoderOptions     []hessian.DecoderOption

	pool pool.Pool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPool sets the pool sizes: connections opened eagerly by
// NewClient, the maximum open at once, and the maximum kept idle.
func WithPool(initial, max, idle int) ClientOption {
	return func(c *Client) {
		c.initialConnections = initial
		c.maxConnections = max
		c.maxIdleConnections = idle
	}
}

// WithIdleTimeout closes pooled connections idle for longer than d.
func WithIdleTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.idleTimeout = d }
}

// WithDialTimeout bounds connecting to the server.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// WithResponseTimeout bounds one call when ctx has no earlier deadline.
func WithResponseTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.responseTimeout = d }
}

// WithMaxResponseBytes bounds the size of one response envelope.
func WithMaxResponseBytes(n int64) ClientOption {
	return func(c *Client) { c.maxResponseBytes = n }
}

// WithClientCodec sets the options for the encoder and decoder of every
// connection.
func WithClientCodec(encoderOptions []hessian.EncoderOption, decoderOptions []hessian.DecoderOption) ClientOption {
	return func(c *Client) {
		c.encoderOptions = encoderOptions
		c.decoderOptions = decoderOptions
	}
}

// NewClient creates a client for the server at address. network is
// "unix" or "tcp". Connections are opened on demand unless WithPool
// asks for initial ones, in which case the server must be reachable.
func NewClient(network, address string, options ...ClientOption) (*Client, error) {
	c := &Client{
		network:            network,
		address:            address,
		maxConnections:     DefaultMaxConnections,
		maxIdleConnections: DefaultMaxIdleConnections,
		idleTimeout:        DefaultIdleTimeout,
		dialTimeout:        DefaultDialTimeout,
		responseTimeout:    DefaultResponseTimeout,
		maxResponseBytes:   DefaultMaxResponseBytes,
	}
	for _, option := range options {
		option(c)
	}

	connections, err := pool.NewChannelPool(&pool.Config{
		InitialCap:  c.initialConnections,
		MaxCap:      c.maxConnections,
		MaxIdle:     c.maxIdleConnections,
		Factory:     c.dial,
		Close:       func(v interface{}) error { return v.(*clientConn).conn.Close() },
		IdleTimeout: c.idleTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating connection pool for %s %s: %w", network, address, err)
	}
	c.pool = connections
	return c, nil
}

// clientConn is one pooled connection with the codec state bound to
// its stream.
type clientConn struct {
	conn    net.Conn
	limit   *io.LimitedReader
	encoder *hessian.Encoder
	decoder *hessian.Decoder
}

func (c *Client) dial() (interface{}, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.Dial(c.network, c.address)
	if err != nil {
		return nil, err
	}
	limit := &io.LimitedReader{R: conn}
	return &clientConn{
		conn:    conn,
		limit:   limit,
		encoder: hessian.NewEncoder(conn, c.encoderOptions...),
		decoder: hessian.NewDecoder(limit, c.decoderOptions...),
	}, nil
}

// Call sends one call and waits for its response. A remote fault is
// returned as an *envelope.Fault error. Arguments the encoder rejects
// are reported before anything is sent.
func (c *Client) Call(ctx context.Context, method string, arguments ...hessian.Value) (hessian.Value, error) {
	value, err := c.pool.Get()
	if err != nil {
		return nil, fmt.Errorf("calling %q on %s: connecting: %w", method, c.address, err)
	}
	connection := value.(*clientConn)

	result, reusable, err := c.exchange(ctx, connection, method, arguments)
	if reusable {
		c.pool.Put(connection)
	} else {
		c.pool.Close(connection)
	}

	var fault *envelope.Fault
	if err != nil && !errors.As(err, &fault) {
		return nil, fmt.Errorf("calling %q on %s: %w", method, c.address, err)
	}
	return result, err
}

// exchange writes one call and reads its response. reusable reports
// whether the connection is positioned at an envelope boundary with no
// deadline armed.
func (c *Client) exchange(ctx context.Context, connection *clientConn, method string, arguments []hessian.Value) (result hessian.Value, reusable bool, err error) {
	deadline := time.Now().Add(c.responseTimeout)
	if contextDeadline, ok := ctx.Deadline(); ok && contextDeadline.Before(deadline) {
		deadline = contextDeadline
	}
	connection.conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() { connection.conn.SetDeadline(time.Now()) })
	defer func() {
		if !stop() {
			// Cancellation armed a past deadline on the connection.
			reusable = false
			if err != nil {
				err = ctx.Err()
			}
			return
		}
		if reusable {
			connection.conn.SetDeadline(time.Time{})
		}
	}()

	if err := envelope.WriteCall(connection.encoder, method, arguments...); err != nil {
		// Validation failures leave nothing on the wire.
		return nil, !errors.Is(err, hessian.ErrIOFailure), err
	}

	connection.limit.N = c.maxResponseBytes
	result, err = envelope.ReadResponse(connection.decoder)
	if err != nil {
		var fault *envelope.Fault
		if errors.As(err, &fault) {
			// The server closes the connection after a protocol fault.
			return nil, fault.Code != envelope.CodeProtocol, err
		}
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, false, fmt.Errorf("reading response: %w", err)
	}
	return result, true, nil
}

// Close closes every pooled connection. Calls in flight finish, but
// their connections are closed rather than pooled.
func (c *Client) Close() {
	c.pool.Release()
}
