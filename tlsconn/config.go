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
	"crypto/tls"
	"crypto/x509"
	"os"

	pkgerrors "github.com/pkg/errors"
)

// BuildServerTLSConfig loads cfg's cert/key (and optional client CA)
// into a *tls.Config suitable for tls.Server, the static-file
// counterpart to AutocertSource for deployments that manage their own
// certificates.
func BuildServerTLSConfig(cfg Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "tlsconn: load server certificate")
	}
	tc := &tls.Config{
		Certificates: []tls.Certificate{cert},
		CipherSuites: cfg.Ciphers,
	}
	if cfg.VerifyPeer {
		pool, err := loadCAPool(cfg.CAPath)
		if err != nil {
			return nil, err
		}
		tc.ClientCAs = pool
		tc.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tc, nil
}

// BuildClientTLSConfig builds the *tls.Config a client dialer uses,
// honoring VerifyHostname/SNIHostname per spec.md §6's client
// configuration surface.
func BuildClientTLSConfig(cfg Config) (*tls.Config, error) {
	tc := &tls.Config{
		InsecureSkipVerify: !cfg.VerifyHostname,
		ServerName:         cfg.SNIHostname,
	}
	if cfg.CAPath != "" {
		pool, err := loadCAPool(cfg.CAPath)
		if err != nil {
			return nil, err
		}
		tc.RootCAs = pool
	}
	return tc, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "tlsconn: read CA bundle")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, pkgerrors.New("tlsconn: no certificates found in CA bundle")
	}
	return pool, nil
}
