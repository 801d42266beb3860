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

import "fmt"

// ErrKind classifies the WebSocket-specific failures spec.md §7 calls
// out separately from the HTTP kinds in wire.ErrKind, since each maps
// to a close code rather than (or in addition to) an HTTP status.
type ErrKind int

const (
	_ ErrKind = iota
	KindInvalidUtf8
	KindProtocolError
	KindMessageTooLarge
	KindUpgradeFailed
)

func (k ErrKind) String() string {
	switch k {
	case KindInvalidUtf8:
		return "InvalidUtf8"
	case KindProtocolError:
		return "WsProtocolError"
	case KindMessageTooLarge:
		return "WsMessageTooLarge"
	case KindUpgradeFailed:
		return "WsUpgradeFailed"
	default:
		return "Unknown"
	}
}

// CloseCode returns the close code a peer sends for this failure, or 0
// when the kind has no close-frame representation (WsUpgradeFailed
// never reaches frame level; it fails the HTTP handshake with a 400).
func (k ErrKind) CloseCode() int {
	switch k {
	case KindInvalidUtf8:
		return CloseInvalidPayload
	case KindProtocolError:
		return CloseProtocolError
	case KindMessageTooLarge:
		return CloseMessageTooBig
	default:
		return 0
	}
}

// Error is the typed error value the frame decoder, reassembler and
// upgrade validator return.
type Error struct {
	Kind    ErrKind
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// NewError constructs an *Error of the given kind.
func NewError(kind ErrKind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// AsError reports whether err is a *Error and returns it.
func AsError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
