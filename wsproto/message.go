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

import "unicode/utf8"

// Message is one fully reassembled application-level WebSocket
// message (Text or Binary), built from one or more frames joined by
// continuation frames per RFC 6455 §5.4.
type Message struct {
	Opcode OpCode // OpText or OpBinary
	Data   []byte
}

// Reassembler accumulates Text/Binary frames (and their Continuation
// frames) into complete Messages, enforcing MaxMessageSize and
// UTF-8 validity for Text messages, mirroring the teacher's wsReadInfo
// fragmentation bookkeeping (r.ff/r.fc) without the compression path.
type Reassembler struct {
	maxSize int64
	active  bool
	opcode  OpCode
	buf     []byte
}

// NewReassembler returns a Reassembler enforcing maxSize bytes per
// reassembled message (0 disables the limit).
func NewReassembler(maxSize int64) *Reassembler {
	return &Reassembler{maxSize: maxSize}
}

// Feed processes one data frame (Text, Binary or Continuation) already
// decoded and unmasked by Decoder. It returns a complete Message when
// frame.Fin closes out the sequence, or nil while more continuation
// frames are expected.
func (r *Reassembler) Feed(frame *Frame) (*Message, *Error) {
	switch frame.Opcode {
	case OpText, OpBinary:
		if r.active {
			return nil, NewError(KindProtocolError, "new message started before previous one finished")
		}
		r.active = true
		r.opcode = frame.Opcode
		r.buf = append(r.buf[:0], frame.Payload...)
	case OpContinuation:
		if !r.active {
			return nil, NewError(KindProtocolError, "continuation frame with no active message")
		}
		r.buf = append(r.buf, frame.Payload...)
	default:
		return nil, NewError(KindProtocolError, "not a data frame")
	}

	if r.maxSize > 0 && int64(len(r.buf)) > r.maxSize {
		r.active = false
		return nil, NewError(KindMessageTooLarge, "reassembled message exceeds configured limit")
	}

	if !frame.Fin {
		return nil, nil
	}

	msg := &Message{Opcode: r.opcode, Data: r.buf}
	r.active = false
	r.buf = nil

	if msg.Opcode == OpText && !utf8.Valid(msg.Data) {
		return nil, NewError(KindInvalidUtf8, "text message is not valid UTF-8")
	}
	return msg, nil
}
