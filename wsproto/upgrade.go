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
	"strings"
	"time"

	"github.com/latticehq/lattice/wire"
)

// Config configures one mount point's WebSocket upgrade behavior.
type Config struct {
	Subprotocols     []string
	MaxMessageSize   int64
	HandshakeTimeout time.Duration
	Checksum         bool // see SPEC_FULL.md §4: optional highwayhash integrity check
}

// DefaultConfig returns sane defaults: no subprotocols negotiated, a
// 16 MiB reassembled-message ceiling, no checksum.
func DefaultConfig() Config {
	return Config{MaxMessageSize: 16 * 1024 * 1024, HandshakeTimeout: 5 * time.Second}
}

// UpgradeResult is what a successful Upgrade call needs to emit the
// 101 response.
type UpgradeResult struct {
	AcceptKey   string
	Subprotocol string // "" if none negotiated
}

// Upgrade validates an incoming request against RFC 6455 §4.2.1 and
// spec.md §4.8: method GET, Connection contains "Upgrade"
// (case-insensitive, comma-list), Upgrade equals "websocket",
// Sec-WebSocket-Version equals "13", Sec-WebSocket-Key present and
// non-empty. On success it derives the accept key and, if cfg offers
// subprotocols, echoes the first client-offered subprotocol (in the
// client's order) that cfg also lists.
func Upgrade(req *wire.RequestHead, cfg Config) (*UpgradeResult, *Error) {
	if req.Method != wire.MethodGET {
		return nil, NewError(KindUpgradeFailed, "method must be GET")
	}
	if !req.Headers.ContainsToken("Connection", "Upgrade") {
		return nil, NewError(KindUpgradeFailed, "missing Connection: Upgrade")
	}
	if !req.Headers.ContainsToken("Upgrade", "websocket") {
		return nil, NewError(KindUpgradeFailed, "missing Upgrade: websocket")
	}
	if req.Headers.Get("Sec-WebSocket-Version") != "13" {
		return nil, NewError(KindUpgradeFailed, "unsupported Sec-WebSocket-Version")
	}
	key := req.Headers.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, NewError(KindUpgradeFailed, "missing Sec-WebSocket-Key")
	}

	result := &UpgradeResult{AcceptKey: AcceptKey(key)}
	if len(cfg.Subprotocols) > 0 {
		offered := req.Headers.Values("Sec-WebSocket-Protocol")
		result.Subprotocol = negotiateSubprotocol(offered, cfg.Subprotocols)
	}
	return result, nil
}

func negotiateSubprotocol(offeredHeaderValues []string, supported []string) string {
	for _, line := range offeredHeaderValues {
		for _, tok := range strings.Split(line, ",") {
			tok = strings.TrimSpace(tok)
			for _, s := range supported {
				if tok == s {
					return s
				}
			}
		}
	}
	return ""
}

// BuildUpgradeResponse fills a 101 response head per RFC 6455 §4.2.2.
func BuildUpgradeResponse(result *UpgradeResult) *wire.ResponseHead {
	h := wire.NewHeader()
	h.Set("Upgrade", "websocket")
	h.Set("Connection", "Upgrade")
	h.Set("Sec-WebSocket-Accept", result.AcceptKey)
	if result.Subprotocol != "" {
		h.Set("Sec-WebSocket-Protocol", result.Subprotocol)
	}
	return &wire.ResponseHead{
		Version: wire.HTTP11,
		Status:  101,
		Reason:  wire.ReasonPhrase(101),
		Headers: h,
	}
}
