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

package client_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/latticehq/lattice/client"
)

func TestParseRecognizesAllFourSchemes(t *testing.T) {
	cases := []struct {
		raw        string
		wantHost   string
		wantPort   string
		wantPath   string
		wantSecure bool
		wantWS     bool
	}{
		{"http://example.com/a/b", "example.com", "80", "/a/b", false, false},
		{"https://example.com/a/b", "example.com", "443", "/a/b", true, false},
		{"ws://example.com/chat", "example.com", "80", "/chat", false, true},
		{"wss://example.com:9443/chat", "example.com", "9443", "/chat", true, true},
		{"http://example.com", "example.com", "80", "/", false, false},
	}

	for _, tc := range cases {
		u, err := client.Parse(tc.raw)
		if !assert.NoError(t, err, tc.raw) {
			continue
		}
		assert.Equal(t, tc.wantHost, u.Host, tc.raw)
		assert.Equal(t, tc.wantPort, u.Port, tc.raw)
		assert.Equal(t, tc.wantPath, u.Path, tc.raw)
		assert.Equal(t, tc.wantSecure, u.Secure(), tc.raw)
		assert.Equal(t, tc.wantWS, u.WebSocket(), tc.raw)
	}
}

func TestParseRejectsUnsupportedSchemeAndMissingHost(t *testing.T) {
	_, err := client.Parse("ftp://example.com/x")
	assert.Error(t, err)

	_, err = client.Parse("http:///x")
	assert.Error(t, err)

	_, err = client.Parse("no-scheme-here")
	assert.Error(t, err)
}
