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

package server

import (
	"net"
	"time"

	"github.com/latticehq/lattice/ringbuf"
	"github.com/latticehq/lattice/wire"
	"github.com/latticehq/lattice/wsproto"
)

// WSHandler is the Handler value a router entry carries for a
// WebSocket-upgradeable route. It receives the live connection after
// the HTTP upgrade response has gone out.
type WSHandler func(ws *WSConn)

// WSConn is one upgraded WebSocket connection. It owns the socket for
// the rest of its life: once upgrade completes, the request/response
// loop in serveConn never regains control of conn, matching the
// teacher's model of a client goroutine that owns its net.Conn start to
// finish (see server/websocket.go's original wsRead/wsHandleControlFrame
// pairing, now expressed through wsproto's Decoder/Reassembler/Heartbeat
// instead of the teacher's inline byte-counting state machine).
type WSConn struct {
	conn   net.Conn
	id     string
	log    Logger
	cfg    wsproto.Config
	ring   *ringbuf.Buffer
	dec    *wsproto.Decoder
	reasm  *wsproto.Reassembler
	hb     *wsproto.Heartbeat
	closed bool
}

// newWSConn wraps an already-upgraded conn.
func newWSConn(conn net.Conn, id string, log Logger, cfg wsproto.Config, ringSize int) *WSConn {
	return &WSConn{
		conn:  conn,
		id:    id,
		log:   log,
		cfg:   cfg,
		ring:  ringbuf.New(ringSize),
		dec:   wsproto.NewServerDecoder(),
		reasm: wsproto.NewReassembler(cfg.MaxMessageSize),
		hb:    wsproto.NewHeartbeat(30*time.Second, 10*time.Second),
	}
}

// ID returns the connection's nuid-assigned identifier, for logging.
func (ws *WSConn) ID() string { return ws.id }

// WriteMessage sends one complete text or binary message as a single
// unfragmented, unmasked frame (server-to-client frames are never
// masked per RFC 6455).
func (ws *WSConn) WriteMessage(opcode wsproto.OpCode, payload []byte) error {
	frame := wsproto.EncodeFrame(true, opcode, false, [4]byte{}, payload)
	_, err := ws.conn.Write(frame)
	return err
}

// Close sends a close frame with status and reason, then shuts the
// socket down.
func (ws *WSConn) Close(status int, reason string) error {
	if ws.closed {
		return nil
	}
	ws.closed = true
	body := wsproto.EncodeCloseBody(status, reason)
	frame := wsproto.EncodeFrame(true, wsproto.OpClose, false, [4]byte{}, body)
	_, _ = ws.conn.Write(frame)
	return ws.conn.Close()
}

// ReadMessage blocks until one complete text/binary message has been
// reassembled, a control frame has been handled transparently (ping
// answered with pong, pong recorded against the heartbeat, close
// frame echoed and the connection torn down), or an error/close occurs.
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
		pong := wsproto.EncodeFrame(true, wsproto.OpPong, false, [4]byte{}, frame.Payload)
		_, werr := ws.conn.Write(pong)
		return false, werr
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

// SendPing emits a ping frame and records it against the heartbeat
// tracker, for callers running their own idle-timer loop.
func (ws *WSConn) SendPing() error {
	ws.hb.MarkPingSent(time.Now())
	frame := wsproto.EncodeFrame(true, wsproto.OpPing, false, [4]byte{}, nil)
	_, err := ws.conn.Write(frame)
	return err
}

// upgradeAndServe performs the HTTP-to-WebSocket handshake over writer
// and, on success, runs handler with exclusive ownership of conn. It
// never returns control to the HTTP request loop: the WS handler is
// responsible for the connection's remaining lifetime.
func (s *Server) upgradeAndServe(id string, head *wire.RequestHead, writer *Writer, conn net.Conn, handler WSHandler) {
	cfg := wsproto.DefaultConfig()
	result, uerr := wsproto.Upgrade(head, cfg)
	if uerr != nil {
		resp := simpleResponse(400, false)
		_ = writer.WriteHead(resp, time.Now().Add(5*time.Second))
		s.log.Debugf("conn %s: websocket upgrade rejected: %v", id, uerr)
		return
	}
	respHead := wsproto.BuildUpgradeResponse(result)
	if err := writer.WriteHead(respHead, time.Now().Add(5*time.Second)); err != nil {
		s.log.Debugf("conn %s: websocket upgrade response failed: %v", id, err)
		return
	}
	ws := newWSConn(conn, id, s.log, cfg, s.opts.RingBufferSize)
	handler(ws)
}
