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

package client

import (
	"fmt"
	"net"
	"strings"
)

// URL is the parsed subset of a URL this client's four supported
// schemes need: no query/fragment handling beyond what Path carries
// verbatim, since routing and query parsing are the server's job.
type URL struct {
	Scheme string // "http", "https", "ws", "wss"
	Host   string
	Port   string
	Path   string // includes any query string, unparsed
}

// Secure reports whether the connection must be established over TLS.
func (u *URL) Secure() bool { return u.Scheme == "https" || u.Scheme == "wss" }

// WebSocket reports whether Scheme names a WebSocket endpoint.
func (u *URL) WebSocket() bool { return u.Scheme == "ws" || u.Scheme == "wss" }

// Authority returns "host:port" suitable for net.Dial.
func (u *URL) Authority() string { return net.JoinHostPort(u.Host, u.Port) }

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// Parse parses raw into a URL, recognizing exactly the four schemes
// this module's client dials: http, https, ws, wss. Anything else is
// rejected rather than silently misrouted.
func Parse(raw string) (*URL, error) {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return nil, fmt.Errorf("client: missing scheme in %q", raw)
	}
	scheme := strings.ToLower(raw[:idx])
	port, ok := defaultPorts[scheme]
	if !ok {
		return nil, fmt.Errorf("client: unsupported scheme %q", scheme)
	}
	rest := raw[idx+3:]

	path := "/"
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		path = rest[slash:]
		rest = rest[:slash]
	}
	if rest == "" {
		return nil, fmt.Errorf("client: missing host in %q", raw)
	}

	host := rest
	if h, p, err := net.SplitHostPort(rest); err == nil {
		host, port = h, p
	}

	return &URL{Scheme: scheme, Host: host, Port: port, Path: path}, nil
}
