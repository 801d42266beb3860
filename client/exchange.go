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
	"net"
	"strconv"

	"github.com/latticehq/lattice/ringbuf"
	"github.com/latticehq/lattice/wire"
)

// exchangeState is the composed awaitable's explicit state enum
// (spec.md §4.5/§9): Go has no stackful coroutines to suspend, so the
// request/response pairing is driven by repeatedly calling advance()
// from the connection's own goroutine rather than yielding across an
// I/O boundary.
type exchangeState int

const (
	stateInvalid exchangeState = iota
	stateSending
	stateReceiving
	stateDone
)

// exchange drives one request/response pair over conn to completion.
// While sending and while the response head is still being parsed,
// advance performs one I/O operation per call (one partial Write, or
// one Read-and-Feed) and reports whether the exchange has finished; the
// step that completes the head also reads the whole body before
// returning.
type exchange struct {
	conn  net.Conn
	state exchangeState

	out    []byte // remaining bytes of the request still to write
	ring   *ringbuf.Buffer
	parser *wire.Parser

	resp *wire.Response
	err  error
}

func newExchange(conn net.Conn, reqBytes []byte, ringSize, maxHeaderSize int) *exchange {
	return &exchange{
		conn:   conn,
		state:  stateSending,
		out:    reqBytes,
		ring:   ringbuf.New(ringSize),
		parser: wire.NewResponseParser(maxHeaderSize),
	}
}

// advance performs one step of the exchange. done is true once the
// exchange has finished: in stateDone on success, or back in
// stateInvalid with e.err set on failure.
func (e *exchange) advance() (done bool) {
	switch e.state {
	case stateSending:
		return e.advanceSending()
	case stateReceiving:
		return e.advanceReceiving()
	default:
		return true
	}
}

func (e *exchange) advanceSending() bool {
	n, err := e.conn.Write(e.out)
	if err != nil {
		e.fail(err)
		return true
	}
	e.out = e.out[n:]
	if len(e.out) == 0 {
		e.state = stateReceiving
	}
	return false
}

func (e *exchange) advanceReceiving() bool {
	if !e.parser.Done() {
		if e.ring.Writable() == 0 {
			e.fail(wire.NewError(wire.KindHeaderTooLarge, "response head exceeds ring capacity"))
			return true
		}
		first, second := e.ring.WritableRegions()
		var n int
		var err error
		if len(first) > 0 {
			n, err = e.conn.Read(first)
		} else {
			n, err = e.conn.Read(second)
		}
		if n > 0 {
			e.ring.Produce(n)
		}
		if err != nil && n == 0 {
			e.fail(err)
			return true
		}
		rf, rs := e.ring.ReadableRegions()
		consumed, perr := e.parser.Feed(rf, rs)
		if consumed > 0 {
			e.ring.Consume(consumed)
		}
		if perr != nil {
			e.fail(perr)
			return true
		}
		if !e.parser.Done() {
			return false
		}
	}

	e.resp = &wire.Response{
		Head: wire.ResponseHead{
			Version: e.parser.Version(),
			Status:  e.parser.Status(),
			Reason:  e.parser.Reason(),
			Headers: e.parser.Headers(),
		},
	}
	body, bodyErr := e.readBody()
	if bodyErr != nil {
		e.fail(bodyErr)
		return true
	}
	e.resp.Body = body
	e.state = stateDone
	return true
}

// readBody reads the remainder of the response body, honoring
// Content-Length or chunked Transfer-Encoding; it runs to completion
// rather than incrementally, since Client.Do already holds exclusive
// use of the connection at this point.
func (e *exchange) readBody() (wire.Body, error) {
	h := e.parser.Headers()
	if h.ContainsToken("Transfer-Encoding", "chunked") {
		return e.readChunkedBody()
	}
	cl := h.Get("Content-Length")
	if cl == "" {
		return wire.Body{Length: 0}, nil
	}
	n, err := parseContentLength(cl)
	if err != nil {
		return wire.Body{}, err
	}
	buf := make([]byte, 0, n)
	rf, rs := e.ring.ReadableRegions()
	buf = drainRing(buf, e.ring, rf, rs, n)
	for len(buf) < n {
		tmp := make([]byte, n-len(buf))
		rn, err := e.conn.Read(tmp)
		if rn > 0 {
			buf = append(buf, tmp[:rn]...)
		}
		if err != nil && len(buf) < n {
			return wire.Body{}, err
		}
	}
	return wire.Body{Bytes: buf, Length: int64(len(buf))}, nil
}

func (e *exchange) readChunkedBody() (wire.Body, error) {
	dec := wire.NewChunkDecoder()
	var out []byte
	readMore := func() error {
		buf := make([]byte, 4096)
		n, err := e.conn.Read(buf)
		if n > 0 {
			e.ring.Write(buf[:n])
		}
		if err != nil && n == 0 {
			return err
		}
		return nil
	}
	for !dec.Done() {
		rf, rs := e.ring.ReadableRegions()
		if len(rf) == 0 && len(rs) == 0 {
			if err := readMore(); err != nil {
				return wire.Body{}, err
			}
			continue
		}
		consumed, _, err := dec.Decode(rf, rs, &out)
		if consumed > 0 {
			e.ring.Consume(consumed)
		}
		if err != nil {
			return wire.Body{}, err
		}
	}
	return wire.Body{Bytes: out, Length: int64(len(out)), Chunked: true}, nil
}

func (e *exchange) fail(err error) {
	e.err = err
	e.state = stateInvalid
}

func drainRing(dst []byte, ring *ringbuf.Buffer, first, second []byte, want int) []byte {
	take := func(b []byte) {
		n := len(b)
		if len(dst)+n > want {
			n = want - len(dst)
		}
		dst = append(dst, b[:n]...)
		ring.Consume(n)
	}
	if len(dst) < want && len(first) > 0 {
		take(first)
	}
	if len(dst) < want && len(second) > 0 {
		take(second)
	}
	return dst
}

func parseContentLength(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, wire.NewError(wire.KindBadRequest, "invalid Content-Length")
	}
	return n, nil
}
