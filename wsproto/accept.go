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

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
)

// guid is the magic string RFC 6455 §1.3 defines for accept-key
// derivation, identical to the teacher's wsGUID.
var guid = []byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11")

// AcceptKey derives Sec-WebSocket-Accept from the client's
// Sec-WebSocket-Key: base64(sha1(key || guid)), per RFC 6455 §4.2.2
// and spec.md §4.8. Ported directly from the teacher's wsAcceptKey.
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write(guid)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// GenerateClientKey returns a fresh, random base64-encoded
// Sec-WebSocket-Key for the client dialer, RFC 6455 §4.1.
func GenerateClientKey() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// GenerateMaskKey returns a fresh random masking key for a client
// outgoing frame, RFC 6455 §5.3.
func GenerateMaskKey() ([4]byte, error) {
	var key [4]byte
	_, err := rand.Read(key[:])
	return key, err
}
