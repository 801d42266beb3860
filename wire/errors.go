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

import "fmt"

// ErrKind classifies a parse or I/O failure into one of the typed kinds
// spec.md §7 requires callers to distinguish, rather than leaving them
// to pattern-match on error strings.
type ErrKind int

const (
	_ ErrKind = iota
	KindIncomplete
	KindConnectionClose
	KindRecvError
	KindSendError
	KindTimeout
	KindHeaderTooLarge
	KindBadRequest
	KindVersionNotSupported
	KindURITooLong
	KindPayloadTooLarge
	KindMethodNotAllowed
	KindNotFound
	KindInvalidChunkFormat
	KindInvalidChunkLength
	KindBodyLengthMismatch
	KindInternalError
)

func (k ErrKind) String() string {
	switch k {
	case KindIncomplete:
		return "Incomplete"
	case KindConnectionClose:
		return "ConnectionClose"
	case KindRecvError:
		return "RecvError"
	case KindSendError:
		return "SendError"
	case KindTimeout:
		return "Timeout"
	case KindHeaderTooLarge:
		return "HeaderTooLarge"
	case KindBadRequest:
		return "BadRequest"
	case KindVersionNotSupported:
		return "VersionNotSupported"
	case KindURITooLong:
		return "UriTooLong"
	case KindPayloadTooLarge:
		return "PayloadTooLarge"
	case KindMethodNotAllowed:
		return "MethodNotAllowed"
	case KindNotFound:
		return "NotFound"
	case KindInvalidChunkFormat:
		return "InvalidChunkFormat"
	case KindInvalidChunkLength:
		return "InvalidChunkLength"
	case KindBodyLengthMismatch:
		return "BodyLengthMismatch"
	case KindInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// StatusCode implements the deterministic error-kind-to-HTTP-status
// mapping from spec.md §7. Kinds with no natural status (Incomplete,
// ConnectionClose, Timeout, RecvError, SendError) return 0: callers
// handle those without emitting a response.
func (k ErrKind) StatusCode() int {
	switch k {
	case KindHeaderTooLarge:
		return 431
	case KindBadRequest, KindInvalidChunkFormat, KindInvalidChunkLength, KindBodyLengthMismatch:
		return 400
	case KindVersionNotSupported:
		return 505
	case KindURITooLong:
		return 414
	case KindPayloadTooLarge:
		return 413
	case KindMethodNotAllowed:
		return 405
	case KindNotFound:
		return 404
	case KindInternalError:
		return 500
	default:
		return 0
	}
}

// Error is the typed error value returned by the parser, Reader and
// Writer. It wraps an optional underlying cause (e.g. the net.Error
// from a failed read) without losing the error kind.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs an *Error of the given kind with a message.
func NewError(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind ErrKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// AsError reports whether err is a *Error and returns it.
func AsError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
