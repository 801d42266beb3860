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
	"strconv"
	"strings"

	"github.com/latticehq/lattice/wire"
)

// encodeRequest serializes head's request line and headers followed by
// body, grounded on original_source/galay-http's Http1_1RequestBuilder
// (see SPEC_FULL.md §11) — the client-side mirror of server.Writer's
// WriteHead.
func encodeRequest(head *wire.RequestHead, body []byte) []byte {
	var sb strings.Builder
	sb.WriteString(head.Method.String())
	sb.WriteByte(' ')
	sb.WriteString(head.Target)
	sb.WriteByte(' ')
	sb.WriteString(head.Version.String())
	sb.WriteString("\r\n")
	head.Headers.WriteTo(&sb)
	sb.WriteString("\r\n")
	out := make([]byte, 0, sb.Len()+len(body))
	out = append(out, sb.String()...)
	out = append(out, body...)
	return out
}

func newRequestHead(method wire.Method, u *URL, extraHeaders map[string]string, bodyLen int) *wire.RequestHead {
	h := wire.NewHeader()
	h.Set("Host", u.Host)
	h.Set("Connection", "close")
	if bodyLen > 0 {
		h.Set("Content-Length", strconv.Itoa(bodyLen))
	}
	for k, v := range extraHeaders {
		h.Set(k, v)
	}
	return &wire.RequestHead{
		Method:  method,
		Target:  u.Path,
		Version: wire.HTTP11,
		Headers: h,
	}
}
