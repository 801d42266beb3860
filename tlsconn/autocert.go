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

	"golang.org/x/crypto/acme/autocert"
)

// AutocertSource is an alternative to static CertPath/KeyPath: it
// fetches and renews certificates from an ACME CA (e.g. Let's
// Encrypt) for the given hostnames, caching them under CacheDir.
type AutocertSource struct {
	Hostnames []string
	CacheDir  string
	Email     string
}

// TLSConfig builds a *tls.Config whose GetCertificate callback is
// backed by the autocert manager, for use in place of a static
// certificate file pair.
func (a *AutocertSource) TLSConfig() *tls.Config {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(a.Hostnames...),
		Cache:      autocert.DirCache(a.CacheDir),
		Email:      a.Email,
	}
	return m.TLSConfig()
}
