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

// Package router implements the mixed exact-map / trie router: exact
// paths resolve in O(1), parameterized and wildcard paths resolve by
// walking a per-method trie in a fixed priority order. Once built, a
// Router is read-only and safe for concurrent lookups without locking,
// the same "build once, read forever" discipline the teacher applies to
// its subject interest trees.
package router

import (
	"fmt"
	"strings"
)

// Handler is whatever a matched route invokes. It is left as an opaque
// value (rather than a concrete func type) so callers in server/client
// can wrap it with their own connection/request types without this
// package importing them back.
type Handler interface{}

// Match is the result of a successful lookup.
type Match struct {
	Handler Handler
	Params  map[string]string
}

type node struct {
	children  map[string]*node // literal children, keyed by segment text
	param     *node            // at most one parameter child
	paramName string
	wildcard  *node // at most one "*" child
	greedy    *node // at most one "**" child (always a leaf)
	handler   Handler
	isEnd     bool
}

func newNode() *node { return &node{children: make(map[string]*node)} }

// Router is a per-method collection of exact routes and fuzzy tries.
type Router struct {
	exact map[string]map[string]Handler // method -> path -> handler
	trie  map[string]*node              // method -> trie root
}

// New returns an empty Router.
func New() *Router {
	return &Router{
		exact: make(map[string]map[string]Handler),
		trie:  make(map[string]*node),
	}
}

// IsFuzzy reports whether pattern contains a parameter or wildcard
// segment and therefore belongs in the trie rather than the exact map.
func IsFuzzy(pattern string) bool {
	return strings.ContainsAny(pattern, ":*")
}

// Add registers handler for pattern under each of methods. Pattern
// classification (exact vs. fuzzy) and, for fuzzy patterns, full
// structural validation happen here so that a malformed route is
// rejected at registration time rather than at first request.
func (r *Router) Add(methods []string, pattern string, handler Handler) error {
	for _, m := range methods {
		if err := r.addOne(m, pattern, handler); err != nil {
			return fmt.Errorf("router: add %s %s: %w", m, pattern, err)
		}
	}
	return nil
}

func (r *Router) addOne(method, pattern string, handler Handler) error {
	if !IsFuzzy(pattern) {
		m, ok := r.exact[method]
		if !ok {
			m = make(map[string]Handler)
			r.exact[method] = m
		}
		m[pattern] = handler
		return nil
	}
	segs := splitPath(pattern)
	if err := validateSegments(segs); err != nil {
		return err
	}
	root, ok := r.trie[method]
	if !ok {
		root = newNode()
		r.trie[method] = root
	}
	return insert(root, segs, handler)
}

func validateSegments(segs []string) error {
	seenParams := map[string]bool{}
	for i, s := range segs {
		switch {
		case s == "**":
			if i != len(segs)-1 {
				return fmt.Errorf("** must be the last segment")
			}
		case s == "*":
			// fine as a standalone segment anywhere
		case strings.HasPrefix(s, ":"):
			name := s[1:]
			if !isValidIdent(name) {
				return fmt.Errorf("invalid parameter name %q", name)
			}
			if seenParams[name] {
				return fmt.Errorf("duplicate parameter name %q", name)
			}
			seenParams[name] = true
		case strings.Contains(s, "*"):
			return fmt.Errorf("wildcard must occupy its own segment: %q", s)
		}
	}
	return nil
}

func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		isDigit := c >= '0' && c <= '9'
		if i == 0 && !isAlpha {
			return false
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

func insert(n *node, segs []string, handler Handler) error {
	if len(segs) == 0 {
		n.handler = handler
		n.isEnd = true
		return nil
	}
	seg := segs[0]
	switch {
	case seg == "**":
		if n.greedy == nil {
			n.greedy = newNode()
		}
		n.greedy.handler = handler
		n.greedy.isEnd = true
		return nil
	case seg == "*":
		if n.wildcard == nil {
			n.wildcard = newNode()
		}
		return insert(n.wildcard, segs[1:], handler)
	case strings.HasPrefix(seg, ":"):
		name := seg[1:]
		if n.param == nil {
			n.param = newNode()
			n.paramName = name
		} else if n.paramName != name {
			return fmt.Errorf("conflicting parameter name at this position: %q vs %q", n.paramName, name)
		}
		return insert(n.param, segs[1:], handler)
	default:
		child, ok := n.children[seg]
		if !ok {
			child = newNode()
			n.children[seg] = child
		}
		return insert(child, segs[1:], handler)
	}
}

// splitPath tokenizes a path on '/', dropping empty segments (leading,
// trailing, or doubled slashes all collapse), without allocating a
// throwaway []string per call via strings.Split.
func splitPath(path string) []string {
	var segs []string
	start := -1
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '/' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			segs = append(segs, path[start:i])
			start = -1
		}
	}
	return segs
}

// Lookup resolves method and path against the exact map first, then the
// fuzzy trie in literal -> param -> wildcard -> greedy-wildcard priority
// order at each level, backtracking and unbinding parameters as it goes.
// It reports ok=false when no route matches path under this method;
// callers then use OtherMethodsRegistered to distinguish 404 from 405
// (MethodNotAllowed).
func (r *Router) Lookup(method, path string) (Match, bool) {
	if m, ok := r.exact[method]; ok {
		if h, ok := m[path]; ok {
			return Match{Handler: h}, true
		}
	}
	root, ok := r.trie[method]
	if !ok {
		return Match{}, false
	}
	segs := splitPath(path)
	params := map[string]string{}
	h := search(root, segs, params)
	if h == nil {
		return Match{}, false
	}
	return Match{Handler: h, Params: params}, true
}

func search(n *node, segs []string, params map[string]string) Handler {
	if len(segs) == 0 {
		if n.isEnd {
			return n.handler
		}
		// A "**" mounted exactly at this point still matches zero
		// remaining segments (e.g. "/files/**" matching "/files").
		if n.greedy != nil {
			return n.greedy.handler
		}
		return nil
	}
	seg := segs[0]
	if child, ok := n.children[seg]; ok {
		if h := search(child, segs[1:], params); h != nil {
			return h
		}
	}
	if n.param != nil {
		params[n.paramName] = seg
		if h := search(n.param, segs[1:], params); h != nil {
			return h
		}
		delete(params, n.paramName) // unbind on backtrack
	}
	if n.wildcard != nil {
		if h := search(n.wildcard, segs[1:], params); h != nil {
			return h
		}
	}
	if n.greedy != nil {
		return n.greedy.handler
	}
	return nil
}

// OtherMethodsRegistered reports whether any method other than method
// has a route (exact or fuzzy) matching path, which a caller uses to
// choose between emitting 404 and 405 per spec.
func (r *Router) OtherMethodsRegistered(method, path string) bool {
	for m := range r.exact {
		if m == method {
			continue
		}
		if _, ok := r.Lookup(m, path); ok {
			return true
		}
	}
	for m := range r.trie {
		if m == method {
			continue
		}
		if _, ok := r.Lookup(m, path); ok {
			return true
		}
	}
	return false
}
