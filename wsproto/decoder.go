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

package wsproto

import "encoding/binary"

type decodePhase int

const (
	dpHeaderByte0 decodePhase = iota
	dpHeaderByte1
	dpExtLen16
	dpExtLen64
	dpMaskKey
	dpPayload
	dpFrameDone
)

// Decoder incrementally decodes WebSocket frames byte-by-byte from a
// dual-slice view the way wire.Parser decodes HTTP headers from
// RingBuffer's wrap-safe readable regions, so it shares the same
// fragmentation- and wrap-invariance guarantees.
type Decoder struct {
	ph          decodePhase
	expectMask  bool // true when decoding frames the peer must mask (server side)
	fin         bool
	opcode      OpCode
	masked      bool
	maskKey     [4]byte
	maskKeyN    int
	lenByte     byte
	extLenBytes []byte
	payloadLen  int64
	payload     []byte
	payloadPos  int64
}

// NewServerDecoder returns a Decoder for frames arriving at a server,
// which RFC 6455 §5.1 requires to be masked.
func NewServerDecoder() *Decoder { return &Decoder{expectMask: true} }

// NewClientDecoder returns a Decoder for frames arriving at a client,
// which must NOT be masked.
func NewClientDecoder() *Decoder { return &Decoder{expectMask: false} }

func (d *Decoder) reset() {
	*d = Decoder{expectMask: d.expectMask}
}

// Decode feeds first then second into the decoder. It returns a
// non-nil Frame as soon as one is fully decoded, consuming
// only the bytes that frame needed; callers loop, re-feeding the
// remainder, to drain several frames out of one read.
func (d *Decoder) Decode(first, second []byte) (consumed int, frame *Frame, err *Error) {
	for _, buf := range [2][]byte{first, second} {
		for _, b := range buf {
			done, e := d.step(b)
			if e != nil {
				return consumed, nil, e
			}
			consumed++
			if done {
				f := &Frame{
					Fin:     d.fin,
					Opcode:  d.opcode,
					Masked:  d.masked,
					MaskKey: d.maskKey,
					Payload: d.payload,
				}
				d.reset()
				return consumed, f, nil
			}
		}
	}
	return consumed, nil, nil
}

func (d *Decoder) step(b byte) (done bool, err *Error) {
	switch d.ph {
	case dpHeaderByte0:
		d.fin = b&finalBit != 0
		if b&(rsv1Bit|rsv2Bit|rsv3Bit) != 0 {
			return false, NewError(KindProtocolError, "reserved bit set with no extension negotiated")
		}
		d.opcode = OpCode(b & 0x0F)
		switch d.opcode {
		case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		default:
			return false, NewError(KindProtocolError, "unknown opcode")
		}
		d.ph = dpHeaderByte1
		return false, nil

	case dpHeaderByte1:
		d.masked = b&maskBit != 0
		if d.expectMask && !d.masked {
			return false, NewError(KindProtocolError, "client frame missing mask bit")
		}
		if !d.expectMask && d.masked {
			return false, NewError(KindProtocolError, "server frame must not be masked")
		}
		d.lenByte = b & 0x7F
		if d.opcode.IsControl() {
			if d.lenByte > MaxControlPayloadSize {
				return false, NewError(KindProtocolError, "control frame payload too large")
			}
			if !d.fin {
				return false, NewError(KindProtocolError, "fragmented control frame")
			}
		}
		switch d.lenByte {
		case 126:
			d.extLenBytes = d.extLenBytes[:0]
			d.ph = dpExtLen16
			return false, nil
		case 127:
			d.extLenBytes = d.extLenBytes[:0]
			d.ph = dpExtLen64
			return false, nil
		default:
			d.payloadLen = int64(d.lenByte)
			return d.afterLength(), nil
		}

	case dpExtLen16:
		d.extLenBytes = append(d.extLenBytes, b)
		if len(d.extLenBytes) == 2 {
			d.payloadLen = int64(binary.BigEndian.Uint16(d.extLenBytes))
			return d.afterLength(), nil
		}
		return false, nil

	case dpExtLen64:
		d.extLenBytes = append(d.extLenBytes, b)
		if len(d.extLenBytes) == 8 {
			d.payloadLen = int64(binary.BigEndian.Uint64(d.extLenBytes))
			return d.afterLength(), nil
		}
		return false, nil

	case dpMaskKey:
		d.maskKey[d.maskKeyN] = b
		d.maskKeyN++
		if d.maskKeyN == 4 {
			return d.startPayload(), nil
		}
		return false, nil

	case dpPayload:
		d.payload[d.payloadPos] = b
		d.payloadPos++
		if d.payloadPos == d.payloadLen {
			if d.masked {
				maskBytes(d.payload, d.maskKey, 0)
			}
			return true, nil
		}
		return false, nil
	}
	return false, NewError(KindProtocolError, "unreachable decoder phase")
}

// afterLength advances past the (now fully known) payload length,
// reporting true if that makes the frame immediately complete (a
// zero-length, unmasked payload with no further bytes needed).
func (d *Decoder) afterLength() bool {
	if d.masked {
		d.maskKeyN = 0
		d.ph = dpMaskKey
		return false
	}
	return d.startPayload()
}

func (d *Decoder) startPayload() bool {
	d.payload = make([]byte, d.payloadLen)
	d.payloadPos = 0
	if d.payloadLen == 0 {
		d.ph = dpFrameDone
		return true
	}
	d.ph = dpPayload
	return false
}
