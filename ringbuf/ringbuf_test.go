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

package ringbuf

import (
	"bytes"
	"testing"
)

func require_True(t *testing.T, b bool) {
	t.Helper()
	if !b {
		t.Errorf("require true, but got false")
	}
}

func require_Equal(t *testing.T, a, b int) {
	t.Helper()
	if a != b {
		t.Errorf("require %d == %d", a, b)
	}
}

func TestProduceConsumeBasic(t *testing.T) {
	b := New(8)
	require_Equal(t, b.Writable(), 8)
	n := b.Write([]byte("hello"))
	require_Equal(t, n, 5)
	require_Equal(t, b.Readable(), 5)
	first, second := b.ReadableRegions()
	require_True(t, second == nil)
	require_True(t, bytes.Equal(first, []byte("hello")))
	b.Consume(5)
	require_Equal(t, b.Readable(), 0)
}

func TestWrapAround(t *testing.T) {
	b := New(8)
	b.Write([]byte("abcdefgh"))
	b.Consume(6) // r=6, n=2
	b.Write([]byte("XXXX"))
	// w wrapped to 0 after the first full write, so "XXXX" lands in [0:4);
	// readable is "gh" at [6:8) then "XXXX" at [0:4), split across the wrap boundary.
	first, second := b.ReadableRegions()
	combined := append(append([]byte{}, first...), second...)
	require_True(t, bytes.Equal(combined, []byte("ghXXXX")))
}

func TestIdempotentConsume(t *testing.T) {
	b := New(16)
	total := b.Write([]byte("0123456789"))
	b.Consume(4)
	require_Equal(t, b.Readable(), total-4)
}

func TestProducePanicsOverCapacity(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on over-produce")
		}
	}()
	b := New(4)
	b.Produce(5)
}

func TestConsumeZeroIsNoop(t *testing.T) {
	b := New(4)
	b.Write([]byte("ab"))
	b.Consume(0)
	require_Equal(t, b.Readable(), 2)
}
