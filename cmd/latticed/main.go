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

// Command latticed is the standalone server binary: it loads an
// Options file, builds a router mounting one static-file tree, and
// runs the HTTP/1.1+WebSocket engine until signaled to stop.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/latticehq/lattice/router"
	"github.com/latticehq/lattice/server"
	"github.com/latticehq/lattice/tlsconn"
)

func main() {
	var (
		configFile string
		addr       string
		tlsCert    string
		tlsKey     string
	)

	flag.StringVar(&configFile, "config", "", "path to a YAML options file")
	flag.StringVar(&configFile, "c", "", "shorthand for -config")
	flag.StringVar(&addr, "addr", "", "listen address host:port, overrides the config file")
	flag.StringVar(&tlsCert, "tls-cert", "", "TLS certificate file, overrides the config file")
	flag.StringVar(&tlsKey, "tls-key", "", "TLS private key file, overrides the config file")
	flag.Parse()

	opts := server.DefaultOptions()
	if configFile != "" {
		loaded, err := server.LoadOptionsFile(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "latticed: %v\n", err)
			os.Exit(1)
		}
		opts = loaded
	}

	if addr != "" {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "latticed: invalid -addr %q: %v\n", addr, err)
			os.Exit(1)
		}
		opts.Host = host
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err != nil {
			fmt.Fprintf(os.Stderr, "latticed: invalid -addr port %q: %v\n", port, err)
			os.Exit(1)
		}
		opts.Port = uint16(p)
	}

	if tlsCert != "" || tlsKey != "" {
		if opts.TLS == nil {
			opts.TLS = &tlsconn.Config{}
		}
		if tlsCert != "" {
			opts.TLS.CertPath = tlsCert
		}
		if tlsKey != "" {
			opts.TLS.KeyPath = tlsKey
		}
	}

	r := router.New()
	var mountErr error
	if opts.Preload {
		mountErr = server.MountPreload(r, opts.MountPrefix, opts.Root, opts.StaticCfg)
	} else {
		mountErr = server.Mount(r, opts.MountPrefix, opts.Root, opts.StaticCfg)
	}
	if mountErr != nil {
		fmt.Fprintf(os.Stderr, "latticed: mounting %s at %s: %v\n", opts.Root, opts.MountPrefix, mountErr)
		os.Exit(1)
	}

	srv := server.NewServer(opts, r)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		srv.Shutdown()
	}()

	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "latticed: %v\n", err)
		os.Exit(1)
	}
}
