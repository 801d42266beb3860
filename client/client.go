// Copyright 2020 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package client implements the composed-awaitable HTTP client (C5)
// and the WebSocket dialer, the client-side counterpart to the
// server package's Reader/Writer and connection lifecycle.
package client

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/latticehq/lattice/tlsconn"
	"github.com/latticehq/lattice/wire"
)

// Client issues HTTP requests against a single URL at a time, one
// connection per call (no connection pooling — spec.md §4.5 describes
// a one-shot request/response awaitable, not a transport with keep-
// alive reuse).
type Client struct {
	RingBufferSize int
	MaxHeaderSize  int
	TLSConfig      *tlsconn.Config
	DialTimeout    time.Duration
}

// NewClient returns a Client with the defaults server.DefaultOptions
// uses for its own ring/header sizing, so client and server agree on
// reasonable framing limits out of the box.
func NewClient() *Client {
	return &Client{
		RingBufferSize: 8 * 1024,
		MaxHeaderSize:  8 * 1024,
		DialTimeout:    10 * time.Second,
	}
}

// Get issues a GET request to rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*wire.Response, error) {
	return c.Do(ctx, wire.MethodGET, rawURL, nil, nil)
}

// Post issues a POST request with body and the given Content-Type.
func (c *Client) Post(ctx context.Context, rawURL, contentType string, body []byte) (*wire.Response, error) {
	headers := map[string]string{}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	return c.Do(ctx, wire.MethodPOST, rawURL, headers, body)
}

// Do drives one request/response exchange to completion: dial, build
// the request, then step the composed-awaitable state machine
// (stateSending -> stateReceiving -> stateDone) until it finishes, a
// context deadline fires, or an I/O error occurs. On context
// cancellation the exchange is abandoned and its connection closed
// rather than left to complete in the background, per spec.md
// §4.5/§9's "Timeout resets the coordinator to invalid" rule.
func (c *Client) Do(ctx context.Context, method wire.Method, rawURL string, headers map[string]string, body []byte) (*wire.Response, error) {
	u, err := Parse(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx, u)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	head := newRequestHead(method, u, headers, len(body))
	reqBytes := encodeRequest(head, body)

	ex := newExchange(conn, reqBytes, c.ringSize(), c.headerSize())

	done := make(chan struct{})
	go func() {
		for !ex.advance() {
		}
		close(done)
	}()

	select {
	case <-done:
		if ex.err != nil {
			return nil, ex.err
		}
		return ex.resp, nil
	case <-ctx.Done():
		_ = conn.Close()
		<-done
		return nil, ctx.Err()
	}
}

func (c *Client) ringSize() int {
	if c.RingBufferSize > 0 {
		return c.RingBufferSize
	}
	return 8 * 1024
}

func (c *Client) headerSize() int {
	if c.MaxHeaderSize > 0 {
		return c.MaxHeaderSize
	}
	return 8 * 1024
}

func (c *Client) dial(ctx context.Context, u *URL) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", u.Authority())
	if err != nil {
		return nil, err
	}
	if !u.Secure() {
		return conn, nil
	}

	var tlsCfg *tls.Config
	if c.TLSConfig != nil {
		tlsCfg, err = tlsconn.BuildClientTLSConfig(*c.TLSConfig)
		if err != nil {
			conn.Close()
			return nil, err
		}
	} else {
		tlsCfg = &tls.Config{ServerName: u.Host}
	}

	tc := tlsconn.NewClientConn(conn, tlsCfg, c.DialTimeout)
	for {
		complete, _, _, herr := tc.Handshake()
		if herr != nil {
			tc.Close()
			return nil, herr
		}
		if complete {
			break
		}
	}
	return tc, nil
}
