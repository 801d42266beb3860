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
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice/client"
	"github.com/latticehq/lattice/router"
	"github.com/latticehq/lattice/server"
	"github.com/latticehq/lattice/staticfile"
)

func startTestServer(t *testing.T, dir string) net.Listener {
	t.Helper()
	r := router.New()
	require_NoError(t, server.Mount(r, "/files", dir, staticfile.DefaultConfig()))

	opts := server.DefaultOptions()
	opts.Port = 0
	s := server.NewServer(opts, r)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require_NoError(t, err)

	go func() {
		_ = s.Serve(l)
	}()
	return l
}

func TestClientGetRoundTripsStaticFileBody(t *testing.T) {
	dir := t.TempDir()
	want := []byte("the quick brown fox jumps over the lazy dog")
	require_NoError(t, os.WriteFile(filepath.Join(dir, "fox.txt"), want, 0o644))

	l := startTestServer(t, dir)
	defer l.Close()

	c := client.NewClient()
	url := fmt.Sprintf("http://%s/files/fox.txt", l.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Get(ctx, url)
	require_NoError(t, err)
	require.Equal(t, 200, resp.Head.Status)
	require.Equal(t, want, resp.Body.Bytes)
}

func TestClientGetReturns404ForMissingFile(t *testing.T) {
	dir := t.TempDir()
	l := startTestServer(t, dir)
	defer l.Close()

	c := client.NewClient()
	url := fmt.Sprintf("http://%s/files/nope.txt", l.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Get(ctx, url)
	require_NoError(t, err)
	require_True(t, resp.Head.Status == 404)
}

func TestClientDoRespectsContextTimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require_NoError(t, err)
	defer l.Close()

	// Accept the connection but never write a response, forcing the
	// exchange to block in stateReceiving until the context expires.
	go func() {
		conn, aerr := l.Accept()
		if aerr == nil {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		}
	}()

	c := client.NewClient()
	url := fmt.Sprintf("http://%s/", l.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = c.Get(ctx, url)
	require_True(t, err == ctx.Err())
}
