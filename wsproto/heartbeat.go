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

import "time"

// Heartbeat tracks Ping/Pong liveness for one connection: when to send
// the next Ping, and whether the peer's Pong arrived before the
// deadline. It holds no I/O itself; the connection goroutine calls
// Due/MarkPingSent/OnPong/Expired and does the actual writes/reads.
type Heartbeat struct {
	interval   time.Duration
	timeout    time.Duration
	lastPongAt time.Time
	pending    bool
}

// NewHeartbeat returns a Heartbeat that expects a Pong within timeout
// of each Ping sent every interval.
func NewHeartbeat(interval, timeout time.Duration) *Heartbeat {
	return &Heartbeat{interval: interval, timeout: timeout}
}

// Due reports whether it is time to send the next Ping.
func (h *Heartbeat) Due(now time.Time) bool {
	return !h.pending && now.Sub(h.lastPongAt) >= h.interval
}

// MarkPingSent records that a Ping frame was just written.
func (h *Heartbeat) MarkPingSent(now time.Time) {
	h.pending = true
	h.lastPongAt = now // re-armed on send; OnPong pulls it forward again
}

// OnPong records receipt of the peer's Pong.
func (h *Heartbeat) OnPong(now time.Time) {
	h.pending = false
	h.lastPongAt = now
}

// Expired reports whether a sent Ping has gone unanswered past timeout.
func (h *Heartbeat) Expired(now time.Time) bool {
	return h.pending && now.Sub(h.lastPongAt) >= h.timeout
}
