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

// Close-code registry, RFC 6455 §7.4.1, the subset spec.md §6 names.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseProtocolError   = 1002
	CloseUnsupportedData = 1003
	CloseNoStatus        = 1005
	CloseAbnormal        = 1006
	CloseInvalidPayload  = 1007
	ClosePolicyViolation = 1008
	CloseMessageTooBig   = 1009
	CloseInternalError   = 1011
)

// EncodeCloseBody renders a close-frame payload: a 2-byte big-endian
// status code followed by an optional UTF-8 reason, truncated to fit
// within MaxControlPayloadSize the way the teacher's
// wsCreateCloseMessage does.
func EncodeCloseBody(status int, reason string) []byte {
	if len(reason) > MaxControlPayloadSize-2 {
		reason = reason[:MaxControlPayloadSize-5] + "..."
	}
	buf := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(buf[:2], uint16(status))
	copy(buf[2:], reason)
	return buf
}

// DecodeCloseBody parses a close-frame payload into its status code and
// reason. An empty or 1-byte payload yields CloseNoStatus per RFC 6455
// §7.1.5 (no status code was actually sent on the wire).
func DecodeCloseBody(payload []byte) (status int, reason string) {
	if len(payload) < 2 {
		return CloseNoStatus, ""
	}
	status = int(binary.BigEndian.Uint16(payload[:2]))
	reason = string(payload[2:])
	return status, reason
}
