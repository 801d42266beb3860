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

import "github.com/minio/highwayhash"

// checksumKey is fixed rather than per-connection: this checksum is an
// opt-in message-integrity sanity check (Config.Checksum), not a MAC,
// so a shared key is sufficient and keeps verification stateless.
var checksumKey = make([]byte, 32)

// Checksum computes the optional HighwayHash-256 integrity digest for
// a reassembled message (RFC 6455 has no such requirement). No
// connection code in this module calls it or consults Config.Checksum;
// it is available to callers directly.
func Checksum(data []byte) []byte {
	h, err := highwayhash.New(checksumKey)
	if err != nil {
		// Only possible if checksumKey's length is wrong, which it
		// never is: it is fixed at compile time above.
		panic(err)
	}
	h.Write(data)
	return h.Sum(nil)
}

// VerifyChecksum reports whether sum matches the digest Checksum(data)
// would produce.
func VerifyChecksum(data, sum []byte) bool {
	got := Checksum(data)
	if len(got) != len(sum) {
		return false
	}
	for i := range got {
		if got[i] != sum[i] {
			return false
		}
	}
	return true
}
