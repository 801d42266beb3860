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

package wire

import "testing"

func parseRequestOneShot(t *testing.T, raw []byte) *Parser {
	t.Helper()
	p := NewRequestParser(8192)
	consumed, err := p.Feed(raw, nil)
	require_NoError(t, err)
	require_True2(t, p.Done())
	require_True2(t, consumed <= len(raw))
	return p
}

func TestRequestLineAndHeaders(t *testing.T) {
	raw := []byte("GET /api/users?active=true HTTP/1.1\r\nHost: example.com\r\nX-Trace: a\r\nX-Trace: b\r\n\r\n")
	p := parseRequestOneShot(t, raw)
	require_True2(t, p.Method() == MethodGET)
	require_True2(t, p.Target() == "/api/users?active=true")
	require_True2(t, p.Version() == HTTP11)
	require_True2(t, p.Headers().Get("host") == "example.com")
	require_True2(t, len(p.Headers().Values("X-Trace")) == 2)
}

func TestFragmentationInvarianceByteAtATime(t *testing.T) {
	raw := []byte("POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello")
	headPart := raw[:len(raw)-5] // everything through the blank line
	oneShot := NewRequestParser(8192)
	oneShot.Feed(headPart, nil)
	require_True2(t, oneShot.Done())

	fragmented := NewRequestParser(8192)
	total := 0
	for total < len(headPart) && !fragmented.Done() {
		n, err := fragmented.Feed(headPart[total:total+1], nil)
		require_NoError(t, err)
		total += n
	}
	require_True2(t, fragmented.Done())
	require_True2(t, fragmented.Target() == oneShot.Target())
	require_True2(t, fragmented.Headers().Get("Content-Length") == oneShot.Headers().Get("Content-Length"))
}

func TestRingWrapInvariance(t *testing.T) {
	raw := []byte("GET /a/b/c HTTP/1.1\r\nHost: h\r\n\r\n")
	contig := NewRequestParser(8192)
	cConsumed, err := contig.Feed(raw, nil)
	require_NoError(t, err)

	split := NewRequestParser(8192)
	mid := 10
	sConsumed, err := split.Feed(raw[:mid], raw[mid:])
	require_NoError(t, err)

	require_True2(t, contig.Done() && split.Done())
	require_True2(t, cConsumed == sConsumed)
	require_True2(t, contig.Target() == split.Target())
}

func TestVersionNotSupported(t *testing.T) {
	p := NewRequestParser(8192)
	_, err := p.Feed([]byte("GET / HTTP/2.0\r\n"), nil)
	e, ok := AsError(err)
	require_True2(t, ok)
	require_True2(t, e.Kind == KindVersionNotSupported)
}

func TestBadRequestBareLF(t *testing.T) {
	p := NewRequestParser(8192)
	_, err := p.Feed([]byte("GET / HTTP/1.1\r\nHost: x\nY: z\r\n\r\n"), nil)
	e, ok := AsError(err)
	require_True2(t, ok)
	require_True2(t, e.Kind == KindBadRequest)
}

func TestHeaderTooLarge(t *testing.T) {
	p := NewRequestParser(16)
	_, err := p.Feed([]byte("GET /this/path/is/long HTTP/1.1\r\n"), nil)
	e, ok := AsError(err)
	require_True2(t, ok)
	require_True2(t, e.Kind == KindHeaderTooLarge)
}

func TestStatusLineParsing(t *testing.T) {
	raw := []byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")
	p := NewResponseParser(8192)
	_, err := p.Feed(raw, nil)
	require_NoError(t, err)
	require_True2(t, p.Done())
	require_True2(t, p.Status() == 404)
	require_True2(t, p.Reason() == "Not Found")
}

func TestStatusLineMissingReasonTolerated(t *testing.T) {
	raw := []byte("HTTP/1.1 204 \r\n\r\n")
	p := NewResponseParser(8192)
	_, err := p.Feed(raw, nil)
	require_NoError(t, err)
	require_True2(t, p.Done())
	require_True2(t, p.Status() == 204)
}

func TestPercentDecodingAndPlusInQuery(t *testing.T) {
	raw := []byte("GET /a%20b?x=foo+bar HTTP/1.1\r\n\r\n")
	p := NewRequestParser(8192)
	p.Feed(raw, nil)
	require_True2(t, p.Target() == "/a b?x=foo bar")
}

func TestLoneLonePercentPassesThrough(t *testing.T) {
	raw := []byte("GET /100%off HTTP/1.1\r\n\r\n")
	p := NewRequestParser(8192)
	p.Feed(raw, nil)
	require_True2(t, p.Target() == "/100%off")
}
