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
	"net"
	"testing"
	"time"

	"github.com/latticehq/lattice/wire"
	"github.com/latticehq/lattice/wsproto"
)

func TestUpgradeAndServeRoundTripsTextMessage(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	h := wire.NewHeader()
	h.Set("Connection", "Upgrade")
	h.Set("Upgrade", "websocket")
	h.Set("Sec-WebSocket-Version", "13")
	h.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	head := &wire.RequestHead{Method: wire.MethodGET, Headers: h}

	opts := DefaultOptions()
	s := NewServer(opts, nil)

	done := make(chan struct{})
	go func() {
		writer := NewWriter(serverConn)
		s.upgradeAndServe("conn1", head, writer, serverConn, func(ws *WSConn) {
			msg, err := ws.ReadMessage(5 * time.Second)
			require_NoError(t, err)
			require_Equal(t, string(msg.Data), "hi")
			require_NoError(t, ws.WriteMessage(wsproto.OpText, []byte("ok")))
			close(done)
		})
	}()

	br := make([]byte, 4096)
	_ = clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := clientConn.Read(br)
	require_NoError(t, err)
	require_True(t, n > 0)

	var maskKey [4]byte
	frame := wsproto.EncodeFrame(true, wsproto.OpText, true, maskKey, []byte("hi"))
	_, err = clientConn.Write(frame)
	require_NoError(t, err)

	_ = clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	dec := wsproto.NewClientDecoder()
	buf := make([]byte, 64)
	for {
		n, err := clientConn.Read(buf)
		require_NoError(t, err)
		_, f, derr := dec.Decode(buf[:n], nil)
		require_True(t, derr == nil)
		if f != nil {
			require_Equal(t, string(f.Payload), "ok")
			break
		}
	}

	<-done
}
