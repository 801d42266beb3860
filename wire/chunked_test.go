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

import (
	"bytes"
	"testing"
)

func require_NoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("require no error, but got: %v", err)
	}
}

func require_True2(t *testing.T, b bool) {
	t.Helper()
	if !b {
		t.Fatalf("require true, but got false")
	}
}

func TestChunkedRoundtripSingleBlock(t *testing.T) {
	body := []byte("the quick brown fox jumps over the lazy dog")
	wire := EncodeChunk(body, true)

	dec := NewChunkDecoder()
	var out []byte
	consumed, last, err := dec.Decode(wire, nil, &out)
	require_NoError(t, err)
	require_True2(t, last)
	require_True2(t, consumed == len(wire))
	require_True2(t, bytes.Equal(out, body))
}

func TestChunkedRoundtripMultipleBlocksByteAtATime(t *testing.T) {
	body := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	blocks := [][]byte{body[0:5], body[5:20], body[20:]}
	var wire []byte
	for i, b := range blocks {
		isLast := i == len(blocks)-1
		wire = append(wire, EncodeChunk(b, isLast)...)
	}

	dec := NewChunkDecoder()
	var out []byte
	total := 0
	for total < len(wire) && !dec.Done() {
		n, _, err := dec.Decode(wire[total:total+1], nil, &out)
		require_NoError(t, err)
		total += n
	}
	require_True2(t, dec.Done())
	require_True2(t, bytes.Equal(out, body))
}

func TestChunkedInvalidHex(t *testing.T) {
	dec := NewChunkDecoder()
	var out []byte
	_, _, err := dec.Decode([]byte("zz\r\nhello\r\n0\r\n\r\n"), nil, &out)
	if err == nil {
		t.Fatal("expected error for non-hex chunk size")
	}
	e, ok := AsError(err)
	require_True2(t, ok)
	require_True2(t, e.Kind == KindInvalidChunkFormat)
}

func TestChunkedTrailersDiscarded(t *testing.T) {
	wire := []byte("5\r\nhello\r\n0\r\nX-Trailer: ignored\r\n\r\n")
	dec := NewChunkDecoder()
	var out []byte
	_, last, err := dec.Decode(wire, nil, &out)
	require_NoError(t, err)
	require_True2(t, last)
	require_True2(t, bytes.Equal(out, []byte("hello")))
}

func TestChunkedWrapBoundary(t *testing.T) {
	wire := EncodeChunk([]byte("split-me-across-the-ring"), true)
	// simulate the ring buffer handing back two slices at an arbitrary
	// wrap point
	mid := len(wire) / 3
	dec := NewChunkDecoder()
	var out []byte
	_, last, err := dec.Decode(wire[:mid], wire[mid:], &out)
	require_NoError(t, err)
	require_True2(t, last)
	require_True2(t, bytes.Equal(out, []byte("split-me-across-the-ring")))
}
