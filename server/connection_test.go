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

package server

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/latticehq/lattice/router"
	"github.com/latticehq/lattice/staticfile"
)

func testServerOn(t *testing.T, dir string) (*Server, net.Listener) {
	t.Helper()
	r := router.New()
	require_NoError(t, Mount(r, "/files", dir, staticfile.DefaultConfig()))

	opts := DefaultOptions()
	opts.Port = 0
	s := NewServer(opts, r)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require_NoError(t, err)
	s.listener = l
	go func() {
		_ = s.acceptLoop()
	}()
	return s, l
}

func TestServeConnReturnsFileOverHTTP(t *testing.T) {
	dir := t.TempDir()
	require_NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world"), 0o644))

	_, l := testServerOn(t, dir)
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	require_NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /files/hello.txt HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require_NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	require_NoError(t, err)
	require_True(t, status[:12] == "HTTP/1.1 200")
}

func TestServeConnReturns404ForUnknownPath(t *testing.T) {
	dir := t.TempDir()
	_, l := testServerOn(t, dir)
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	require_NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /files/missing.txt HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require_NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	require_NoError(t, err)
	require_True(t, status[:12] == "HTTP/1.1 404")
}

func TestSimpleResponseSetsConnectionHeader(t *testing.T) {
	resp := simpleResponse(405, true)
	require_Equal(t, resp.Headers.Get("Connection"), "keep-alive")
	resp2 := simpleResponse(500, false)
	require_Equal(t, resp2.Headers.Get("Connection"), "close")
}
