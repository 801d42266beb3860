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
	"io"
	"net"
	"os"
	"time"

	"github.com/latticehq/lattice/ringbuf"
	"github.com/latticehq/lattice/wire"
)

// Reader drives one ring buffer and one incremental request parser
// against a net.Conn. Each call to GetRequest performs at most one
// conn.Read into the buffer's writable region (spec.md §4.4's
// "retry-until-complete is the caller's job, not the Reader's"
// contract) so callers control backpressure and deadlines.
type Reader struct {
	conn   net.Conn
	ring   *ringbuf.Buffer
	parser *wire.Parser
}

// NewReader returns a Reader over conn with a ring buffer of the given
// capacity and a request parser bounded by maxHeaderSize.
func NewReader(conn net.Conn, ringSize, maxHeaderSize int) *Reader {
	return &Reader{
		conn:   conn,
		ring:   ringbuf.New(ringSize),
		parser: wire.NewRequestParser(maxHeaderSize),
	}
}

// GetRequest attempts to complete the in-progress request head. It
// performs one read when the ring buffer has room and no parse is
// already pending completion, feeds whatever is readable to the
// parser, and consumes exactly what the parser accepted. complete is
// true once the parser reaches the blank line ending the headers.
func (r *Reader) GetRequest(deadline time.Time) (complete bool, err error) {
	if r.parser.Done() {
		return true, nil
	}

	if r.ring.Writable() > 0 {
		if !deadline.IsZero() {
			_ = r.conn.SetReadDeadline(deadline)
		}
		first, second := r.ring.WritableRegions()
		n, rerr := r.readInto(first, second)
		if n > 0 {
			r.ring.Produce(n)
		}
		if rerr != nil && n == 0 {
			return false, classifyReadErr(rerr)
		}
	} else if r.ring.Readable() == r.ring.Cap() {
		return false, wire.NewError(wire.KindHeaderTooLarge, "ring buffer full before head completed")
	}

	first, second := r.ring.ReadableRegions()
	consumed, perr := r.parser.Feed(first, second)
	if consumed > 0 {
		r.ring.Consume(consumed)
	}
	if perr != nil {
		return false, perr
	}
	return r.parser.Done(), nil
}

// readInto performs a single conn.Read, splitting the destination
// across first/second the way a dual-slice writable region requires.
func (r *Reader) readInto(first, second []byte) (int, error) {
	if len(first) > 0 {
		return r.conn.Read(first)
	}
	return r.conn.Read(second)
}

func classifyReadErr(err error) error {
	if err == io.EOF {
		return wire.NewError(wire.KindConnectionClose, "peer closed connection")
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return wire.NewError(wire.KindTimeout, "read deadline exceeded")
	}
	if err == os.ErrDeadlineExceeded {
		return wire.NewError(wire.KindTimeout, "read deadline exceeded")
	}
	return wire.Wrap(wire.KindRecvError, err)
}

// Parser exposes the underlying parser for callers that need the
// completed RequestHead fields once GetRequest reports complete=true.
func (r *Reader) Parser() *wire.Parser { return r.parser }

// Reset prepares the Reader for the next request on a keep-alive
// connection: a fresh parser, same ring buffer (any unconsumed bytes,
// i.e. pipelined request data, remain readable).
func (r *Reader) Reset() {
	r.parser = wire.NewRequestParser(r.parser.MaxHeaderSize())
}

// Ring exposes the underlying ring buffer, e.g. for body reads that
// continue past the head using the same backing buffer.
func (r *Reader) Ring() *ringbuf.Buffer { return r.ring }
