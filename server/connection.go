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
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/nats-io/nuid"
	"golang.org/x/time/rate"

	"github.com/latticehq/lattice/router"
	"github.com/latticehq/lattice/tlsconn"
	"github.com/latticehq/lattice/wire"
)

// Server owns the listener, the route table, and the set of live
// connections. One goroutine serves one connection start to finish; no
// per-connection state is shared across goroutines, mirroring the
// teacher's per-client goroutine model (see SPEC_FULL.md §6-9).
type Server struct {
	opts   *Options
	router *router.Router
	log    Logger

	listener net.Listener
	limiter  *rate.Limiter

	quit chan struct{}
}

// NewServer builds a Server from opts and a fully-populated router. The
// router is expected to be built (via router.New, Mount, MountPreload,
// and Add) before the server starts accepting connections, matching the
// "build once, read forever" discipline router.Router documents.
func NewServer(opts *Options, r *router.Router) *Server {
	if opts == nil {
		opts = DefaultOptions()
	}
	s := &Server{
		opts:   opts,
		router: r,
		log:    NewLogger(nil, opts.Debug, opts.Trace),
		quit:   make(chan struct{}),
	}
	if opts.MaxAcceptRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.MaxAcceptRate), 1)
	}
	return s
}

// ListenAndServe binds the configured address and runs the accept loop
// until Shutdown is called or the listener errors.
func (s *Server) ListenAndServe() error {
	hp := net.JoinHostPort(s.opts.Host, strconv.Itoa(int(s.opts.Port)))

	var l net.Listener
	var err error
	if s.opts.TLS != nil {
		cfg, cerr := tlsconn.BuildServerTLSConfig(*s.opts.TLS)
		if cerr != nil {
			return cerr
		}
		l, err = tls.Listen("tcp", hp, cfg)
	} else {
		l, err = net.Listen("tcp", hp)
	}
	if err != nil {
		s.log.Errorf("unable to listen on %s: %v", hp, err)
		return err
	}
	return s.Serve(l)
}

// Serve runs the accept loop over an already-bound listener, letting a
// caller control binding itself (tests dialing 127.0.0.1:0 to avoid
// port collisions, or a supervisor handing off a pre-opened socket).
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	s.log.Noticef("listening for connections on %s", l.Addr())
	return s.acceptLoop()
}

// Shutdown stops the accept loop and closes the listener. In-flight
// connections are left to finish their current request and observe the
// closed quit channel on their next keep-alive iteration.
func (s *Server) Shutdown() {
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
			}
			s.log.Errorf("accept error: %v", err)
			return err
		}
		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Warnf("connection from %s rejected: accept rate exceeded", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}
		id := nuid.Next()
		go s.serveConn(id, conn)
	}
}

// serveConn drives one connection's request/response loop until the
// peer closes it, a timeout fires, or the request asks to not keep the
// connection alive.
func (s *Server) serveConn(id string, conn net.Conn) {
	defer conn.Close()

	reader := NewReader(conn, s.opts.RingBufferSize, s.opts.MaxHeaderSize)
	writer := NewWriter(conn)

	for {
		headDeadline := time.Now().Add(60 * time.Second)
		complete, err := s.readFullHead(reader, headDeadline)
		if err != nil {
			if werr, ok := err.(*wire.Error); !ok || werr.Kind != wire.KindConnectionClose {
				s.log.Debugf("conn %s: %v", id, err)
			}
			return
		}
		if !complete {
			return
		}

		head := s.buildRequestHead(reader.Parser())
		keepAlive := s.dispatch(id, head, writer, conn)
		if !keepAlive {
			return
		}
		reader.Reset()

		select {
		case <-s.quit:
			return
		default:
		}
	}
}

func (s *Server) readFullHead(reader *Reader, deadline time.Time) (bool, error) {
	for {
		complete, err := reader.GetRequest(deadline)
		if err != nil {
			return false, err
		}
		if complete {
			return true, nil
		}
	}
}

func (s *Server) buildRequestHead(p *wire.Parser) *wire.RequestHead {
	return &wire.RequestHead{
		Method:    p.Method(),
		RawMethod: p.RawMethod(),
		Target:    p.Target(),
		RawTarget: p.RawTarget(),
		Version:   p.Version(),
		Headers:   p.Headers(),
	}
}

// dispatch routes head to the matching handler and writes a response.
// It reports whether the connection should stay open for another
// request.
func (s *Server) dispatch(id string, head *wire.RequestHead, writer *Writer, conn net.Conn) bool {
	deadline := time.Now().Add(30 * time.Second)
	keepAlive := !head.Headers.ContainsToken("Connection", "close")

	match, ok := s.router.Lookup(head.Method.String(), head.Target)
	if !ok {
		status := 404
		if s.router.OtherMethodsRegistered(head.Method.String(), head.Target) {
			status = 405
		}
		_ = writer.WriteHead(simpleResponse(status, keepAlive), deadline)
		return keepAlive
	}
	head.RouteParams = match.Params

	if wsh, isWS := match.Handler.(WSHandler); isWS {
		s.upgradeAndServe(id, head, writer, conn, wsh)
		return false
	}

	fh, isFile := match.Handler.(FileHandler)
	if !isFile {
		_ = writer.WriteHead(simpleResponse(500, false), deadline)
		return false
	}

	plan, err := fh(head)
	if err != nil {
		_ = writer.WriteHead(simpleResponse(500, false), deadline)
		return false
	}
	defer plan.Close()

	if keepAlive {
		plan.Headers.Set("Connection", "keep-alive")
	} else {
		plan.Headers.Set("Connection", "close")
	}

	resp := &wire.ResponseHead{
		Version: wire.HTTP11,
		Status:  plan.Status,
		Headers: plan.Headers,
	}
	if err := writer.WriteHead(resp, deadline); err != nil {
		return false
	}
	if head.Method.String() == "HEAD" || plan.File == nil {
		return keepAlive
	}
	if err := plan.WriteBody(conn, int64(s.opts.StaticCfg.ChunkSize), s.opts.StaticCfg.ZeroCopyBlock); err != nil {
		return false
	}
	return keepAlive
}

func simpleResponse(status int, keepAlive bool) *wire.ResponseHead {
	h := wire.NewHeader()
	h.Set("Content-Length", "0")
	if keepAlive {
		h.Set("Connection", "keep-alive")
	} else {
		h.Set("Connection", "close")
	}
	return &wire.ResponseHead{Version: wire.HTTP11, Status: status, Headers: h}
}

// ServeTLSConfig exposes the *tls.Config built from opts.TLS, mainly
// for tests that want to dial this server directly.
func (s *Server) ServeTLSConfig() (*tls.Config, error) {
	if s.opts.TLS == nil {
		return nil, nil
	}
	return tlsconn.BuildServerTLSConfig(*s.opts.TLS)
}
