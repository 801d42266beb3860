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

import "strings"

// Header is a case-insensitive, list-valued, order-preserving HTTP header
// map. Lookups canonicalize the name; a name added under any casing is
// found under any other. Multiple Add calls for the same name accumulate
// values rather than overwriting, resolving spec Open Question #1 in
// favor of a list representation: nothing the caller set is ever
// silently discarded. Emission order follows first-insertion order of
// each distinct name, which is deterministic without being meaningful.
type Header struct {
	values map[string][]string
	order  []string // canonical names, in first-insertion order
	orig   map[string]string // canonical -> the casing first seen, for emission
}

// NewHeader returns an empty Header ready to use.
func NewHeader() *Header {
	return &Header{
		values: make(map[string][]string),
		orig:   make(map[string]string),
	}
}

func canon(name string) string { return strings.ToLower(name) }

// Set replaces all existing values for name with the single value v.
func (h *Header) Set(name, v string) {
	c := canon(name)
	if _, ok := h.values[c]; !ok {
		h.order = append(h.order, c)
		h.orig[c] = name
	}
	h.values[c] = []string{v}
}

// Add appends v to the list of values for name, preserving whatever was
// already set.
func (h *Header) Add(name, v string) {
	c := canon(name)
	if _, ok := h.values[c]; !ok {
		h.order = append(h.order, c)
		h.orig[c] = name
	}
	h.values[c] = append(h.values[c], v)
}

// Get returns the first value for name, or "" if absent.
func (h *Header) Get(name string) string {
	vs := h.values[canon(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value set for name, in insertion order. The
// returned slice must not be mutated by the caller.
func (h *Header) Values(name string) []string {
	return h.values[canon(name)]
}

// Has reports whether name has at least one value.
func (h *Header) Has(name string) bool {
	return len(h.values[canon(name)]) > 0
}

// Del removes all values for name.
func (h *Header) Del(name string) {
	c := canon(name)
	if _, ok := h.values[c]; !ok {
		return
	}
	delete(h.values, c)
	delete(h.orig, c)
	for i, n := range h.order {
		if n == c {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// ContainsToken reports whether name's comma-separated value list
// contains token, case-insensitively, ignoring surrounding whitespace.
// This is the predicate the WebSocket upgrade checks (Connection:
// Upgrade, Upgrade: websocket) rely on.
func (h *Header) ContainsToken(name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

// WriteTo serializes the header block (without the trailing blank line)
// into sb, one "Name: value\r\n" line per value, in emission order.
func (h *Header) WriteTo(sb *strings.Builder) {
	for _, c := range h.order {
		name := h.orig[c]
		for _, v := range h.values[c] {
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\r\n")
		}
	}
}

// Len reports the number of distinct header names set.
func (h *Header) Len() int { return len(h.order) }
