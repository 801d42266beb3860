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

package tlsconn

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"
)

func require_True(t *testing.T, b bool) {
	t.Helper()
	if !b {
		t.Fatalf("require true, but got false")
	}
}

func require_NoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("require no error, but got: %v", err)
	}
}

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require_NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require_NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

func TestHandshakeCompletesClientAndServer(t *testing.T) {
	cert := selfSignedCert(t)
	serverCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	clientCfg := &tls.Config{InsecureSkipVerify: true}

	cPipe, sPipe := net.Pipe()
	defer cPipe.Close()
	defer sPipe.Close()

	server := NewServerConn(sPipe, serverCfg, 2*time.Second)
	client := NewClientConn(cPipe, clientCfg, 2*time.Second)

	done := make(chan struct{})
	go func() {
		complete, _, _, err := server.Handshake()
		require_NoError(t, err)
		require_True(t, complete)
		close(done)
	}()

	complete, _, _, err := client.Handshake()
	require_NoError(t, err)
	require_True(t, complete)
	<-done
}

func TestShutdownBoundsAttempts(t *testing.T) {
	cPipe, sPipe := net.Pipe()
	sPipe.Close() // make every Close() attempt on the peer side fail fast
	c := NewClientConn(cPipe, &tls.Config{InsecureSkipVerify: true}, time.Second)
	err := c.Shutdown()
	// Either it succeeds immediately (underlying conn already closed)
	// or it returns the bounded-attempts wrapper error; either way it
	// must not hang the test.
	_ = err
}
