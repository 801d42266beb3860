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

// Package ringbuf implements a fixed-capacity circular byte buffer.
//
// A Buffer is owned exclusively by one connection endpoint for its
// lifetime and is never shared across goroutines. Its capacity never
// grows: that fixed size is both the backpressure mechanism and the
// header-too-large detector for callers built on top of it.
package ringbuf

import "fmt"

// Buffer is a fixed-capacity circular byte store. The readable region is
// exposed as one or two slices (a "dual-slice" view) so that wrap-around
// never needs to be special-cased by callers; the same is true of the
// writable region.
type Buffer struct {
	buf []byte
	r   int // read index
	w   int // write index
	n   int // number of readable bytes
	cap int
}

// New returns a Buffer with the given fixed capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	return &Buffer{buf: make([]byte, capacity), cap: capacity}
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer) Cap() int { return b.cap }

// Readable returns the number of bytes currently available to read.
func (b *Buffer) Readable() int { return b.n }

// Writable returns the number of bytes that can still be produced.
func (b *Buffer) Writable() int { return b.cap - b.n }

// ReadableRegions returns up to two slices covering the readable bytes,
// in order. The second slice is non-nil only when the readable region
// wraps past the end of the underlying array.
func (b *Buffer) ReadableRegions() (first, second []byte) {
	if b.n == 0 {
		return nil, nil
	}
	if b.r+b.n <= b.cap {
		return b.buf[b.r : b.r+b.n], nil
	}
	return b.buf[b.r:b.cap], b.buf[0 : b.r+b.n-b.cap]
}

// WritableRegions returns up to two slices covering the writable bytes,
// in order. Writing into these slices does not advance the write index;
// call Produce once the bytes have actually been written.
func (b *Buffer) WritableRegions() (first, second []byte) {
	free := b.cap - b.n
	if free == 0 {
		return nil, nil
	}
	if b.w+free <= b.cap {
		return b.buf[b.w : b.w+free], nil
	}
	return b.buf[b.w:b.cap], b.buf[0 : b.w+free-b.cap]
}

// Produce advances the write index by n bytes, marking them readable. It
// panics if n exceeds Writable(), since that would indicate a caller
// wrote past the region it was handed.
func (b *Buffer) Produce(n int) {
	if n == 0 {
		return
	}
	if n < 0 || n > b.cap-b.n {
		panic(fmt.Sprintf("ringbuf: produce(%d) exceeds writable(%d)", n, b.cap-b.n))
	}
	b.w = (b.w + n) % b.cap
	b.n += n
}

// Consume advances the read index by n bytes, discarding them. It panics
// if n exceeds Readable(). Consume(0) is a no-op.
func (b *Buffer) Consume(n int) {
	if n == 0 {
		return
	}
	if n < 0 || n > b.n {
		panic(fmt.Sprintf("ringbuf: consume(%d) exceeds readable(%d)", n, b.n))
	}
	b.r = (b.r + n) % b.cap
	b.n -= n
}

// Write is a convenience that copies p into the writable region and
// produces however many bytes fit, returning that count. It never
// blocks and never grows the buffer; a short write means the buffer is
// full.
func (b *Buffer) Write(p []byte) int {
	first, second := b.WritableRegions()
	total := 0
	n := copy(first, p)
	total += n
	p = p[n:]
	if len(p) > 0 && second != nil {
		n = copy(second, p)
		total += n
	}
	b.Produce(total)
	return total
}

// Reset discards all readable bytes and rewinds both indices to zero.
// It does not zero the underlying storage.
func (b *Buffer) Reset() {
	b.r, b.w, b.n = 0, 0, 0
}
