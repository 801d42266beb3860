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

package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/latticehq/lattice/ringbuf"
	"github.com/latticehq/lattice/wire"
	"github.com/latticehq/lattice/wsproto"
)

// WSDialer holds the handful of knobs a WebSocket dial needs, mirroring
// Client's dial-time configuration.
type WSDialer struct {
	DialTimeout time.Duration
	Subprotocols []string
}

// WSConn is a client-owned WebSocket connection: outgoing frames are
// masked (RFC 6455 §5.3, client-to-server frames MUST be masked),
// incoming frames are decoded with a client decoder that rejects a
// masked server frame as a protocol violation, the mirror image of
// server.WSConn's roles.
type WSConn struct {
	conn  net.Conn
	ring  *ringbuf.Buffer
	dec   *wsproto.Decoder
	reasm *wsproto.Reassembler
	hb    *wsproto.Heartbeat

	Subprotocol string
}

// Dial performs the HTTP upgrade handshake against rawURL and returns
// a connected WSConn. cfg.MaxMessageSize bounds reassembled messages,
// per spec.md §4.8/§6.
func (d *WSDialer) Dial(ctx context.Context, rawURL string, cfg wsproto.Config) (*WSConn, error) {
	u, err := Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if !u.WebSocket() {
		return nil, fmt.Errorf("client: %q is not a ws/wss URL", rawURL)
	}

	timeout := d.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", u.Authority())
	if err != nil {
		return nil, err
	}

	key, err := wsproto.GenerateClientKey()
	if err != nil {
		conn.Close()
		return nil, err
	}

	head := newRequestHead(wire.MethodGET, u, map[string]string{
		"Connection":            "Upgrade",
		"Upgrade":               "websocket",
		"Sec-WebSocket-Version": "13",
		"Sec-WebSocket-Key":     key,
	}, 0)
	head.Headers.Del("Content-Length")

	if _, err := conn.Write(encodeRequest(head, nil)); err != nil {
		conn.Close()
		return nil, err
	}

	resp, err := readUpgradeResponse(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.Head.Status != 101 {
		conn.Close()
		return nil, fmt.Errorf("client: websocket upgrade rejected: status %d", resp.Head.Status)
	}
	if resp.Head.Headers.Get("Sec-WebSocket-Accept") != wsproto.AcceptKey(key) {
		conn.Close()
		return nil, fmt.Errorf("client: Sec-WebSocket-Accept mismatch")
	}

	ws := &WSConn{
		conn:        conn,
		ring:        ringbuf.New(8 * 1024),
		dec:         wsproto.NewClientDecoder(),
		reasm:       wsproto.NewReassembler(cfg.MaxMessageSize),
		hb:          wsproto.NewHeartbeat(30*time.Second, 10*time.Second),
		Subprotocol: resp.Head.Headers.Get("Sec-WebSocket-Protocol"),
	}
	return ws, nil
}

// readUpgradeResponse parses the status line and headers off conn; the
// upgrade response carries no body, so the parser alone is sufficient.
func readUpgradeResponse(conn net.Conn) (*wire.Response, error) {
	ring := ringbuf.New(8 * 1024)
	parser := wire.NewResponseParser(8 * 1024)
	for !parser.Done() {
		first, second := ring.WritableRegions()
		var n int
		var err error
		if len(first) > 0 {
			n, err = conn.Read(first)
		} else if len(second) > 0 {
			n, err = conn.Read(second)
		} else {
			return nil, wire.NewError(wire.KindHeaderTooLarge, "upgrade response exceeds ring capacity")
		}
		if n > 0 {
			ring.Produce(n)
		}
		if err != nil && n == 0 {
			return nil, err
		}
		rf, rs := ring.ReadableRegions()
		consumed, perr := parser.Feed(rf, rs)
		if consumed > 0 {
			ring.Consume(consumed)
		}
		if perr != nil {
			return nil, perr
		}
	}
	return &wire.Response{Head: wire.ResponseHead{
		Version: parser.Version(),
		Status:  parser.Status(),
		Reason:  parser.Reason(),
		Headers: parser.Headers(),
	}}, nil
}

// WriteMessage sends one complete text or binary message as a single
// masked frame.
func (ws *WSConn) WriteMessage(opcode wsproto.OpCode, payload []byte) error {
	key, err := wsproto.GenerateMaskKey()
	if err != nil {
		return err
	}
	frame := wsproto.EncodeFrame(true, opcode, true, key, payload)
	_, err = ws.conn.Write(frame)
	return err
}

// ReadMessage blocks until one complete message has been reassembled,
// transparently answering pings and recording pongs against the
// heartbeat tracker.
func (ws *WSConn) ReadMessage(deadline time.Duration) (*wsproto.Message, error) {
	for {
		frame, err := ws.nextFrame(deadline)
		if err != nil {
			return nil, err
		}
		if frame.Opcode.IsControl() {
			if done, cerr := ws.handleControlFrame(frame); done || cerr != nil {
				return nil, cerr
			}
			continue
		}
		msg, werr := ws.reasm.Feed(frame)
		if werr != nil {
			_ = ws.Close(werr.CloseCode(), werr.Message)
			return nil, werr
		}
		if msg != nil {
			return msg, nil
		}
	}
}

func (ws *WSConn) nextFrame(deadline time.Duration) (*wsproto.Frame, error) {
	for {
		if deadline > 0 {
			_ = ws.conn.SetReadDeadline(time.Now().Add(deadline))
		}
		first, second := ws.ring.ReadableRegions()
		if len(first) > 0 || len(second) > 0 {
			consumed, frame, err := ws.dec.Decode(first, second)
			if consumed > 0 {
				ws.ring.Consume(consumed)
			}
			if err != nil {
				return nil, err
			}
			if frame != nil {
				return frame, nil
			}
		}
		wfirst, wsecond := ws.ring.WritableRegions()
		var n int
		var rerr error
		if len(wfirst) > 0 {
			n, rerr = ws.conn.Read(wfirst)
		} else if len(wsecond) > 0 {
			n, rerr = ws.conn.Read(wsecond)
		} else {
			return nil, wsproto.NewError(wsproto.KindProtocolError, "frame exceeds ring buffer capacity")
		}
		if n > 0 {
			ws.ring.Produce(n)
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}

func (ws *WSConn) handleControlFrame(frame *wsproto.Frame) (done bool, err error) {
	switch frame.Opcode {
	case wsproto.OpPing:
		return false, ws.WriteMessage(wsproto.OpPong, frame.Payload)
	case wsproto.OpPong:
		ws.hb.OnPong(time.Now())
		return false, nil
	case wsproto.OpClose:
		status, reason := wsproto.DecodeCloseBody(frame.Payload)
		_ = ws.Close(status, reason)
		return true, nil
	}
	return false, nil
}

// Close sends a masked close frame with status and reason, then shuts
// the socket down.
func (ws *WSConn) Close(status int, reason string) error {
	key, err := wsproto.GenerateMaskKey()
	if err != nil {
		key = [4]byte{}
	}
	body := wsproto.EncodeCloseBody(status, reason)
	frame := wsproto.EncodeFrame(true, wsproto.OpClose, true, key, body)
	_, _ = ws.conn.Write(frame)
	return ws.conn.Close()
}
