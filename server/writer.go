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
	"strconv"
	"strings"
	"time"

	"github.com/latticehq/lattice/wire"
)

// Writer wraps a net.Conn with the retry-until-complete contract
// spec.md §4.4 asks of response emission: Write loops internally over
// partial writes (the ordinary behavior of a blocking socket write
// that OS backpressure can still shorten) so callers issue one logical
// call per response.
type Writer struct {
	conn net.Conn
}

// NewWriter wraps conn.
func NewWriter(conn net.Conn) *Writer { return &Writer{conn: conn} }

// Write sends p in full, retrying partial writes, honoring deadline
// (zero value disables it).
func (w *Writer) Write(p []byte, deadline time.Time) error {
	if !deadline.IsZero() {
		_ = w.conn.SetWriteDeadline(deadline)
	}
	for len(p) > 0 {
		n, err := w.conn.Write(p)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return wire.NewError(wire.KindTimeout, "write deadline exceeded")
			}
			return wire.Wrap(wire.KindSendError, err)
		}
		p = p[n:]
	}
	return nil
}

// WriteHead serializes head (status line + headers + blank line) and
// writes it, grounded on original_source/galay-http's
// Http1_1ResponseBuilder (see SPEC_FULL.md §11).
func (w *Writer) WriteHead(head *wire.ResponseHead, deadline time.Time) error {
	var sb strings.Builder
	sb.WriteString(head.Version.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(head.Status))
	sb.WriteByte(' ')
	reason := head.Reason
	if reason == "" {
		reason = wire.ReasonPhrase(head.Status)
	}
	sb.WriteString(reason)
	sb.WriteString("\r\n")
	head.Headers.WriteTo(&sb)
	sb.WriteString("\r\n")
	return w.Write([]byte(sb.String()), deadline)
}
