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
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/latticehq/lattice/router"
	"github.com/latticehq/lattice/staticfile"
	"github.com/latticehq/lattice/wire"
)

// FileHandler serves one resolved staticfile.Plan; it's the Handler
// value router entries carry for file-backed routes.
type FileHandler func(req *wire.RequestHead) (*staticfile.Plan, error)

// Mount registers a greedy-wildcard route at prefix that serves files
// out of directory through a fresh Engine per request, per spec.md
// §4.6's mount() helper.
func Mount(r *router.Router, prefix, directory string, cfg staticfile.Config) error {
	engine := staticfile.NewEngine(directory, cfg)
	trimmed := strings.TrimSuffix(prefix, "/")
	pattern := trimmed + "/**"
	handler := FileHandler(func(req *wire.RequestHead) (*staticfile.Plan, error) {
		rel := strings.TrimPrefix(req.Target, trimmed)
		return engine.Handle(rel, req.Headers)
	})
	return r.Add([]string{"GET", "HEAD"}, pattern, handler)
}

// MountPreload walks directory at registration time and registers one
// exact route per regular file found, per spec.md §4.6's
// mount_preload() helper. Each route's handler runs engine.Handle per
// request, so files are re-opened on every request whatever
// cfg.EnableCache says; nothing is cached in memory. Each route is
// assigned a google/uuid key at registration, which is not used
// further.
func MountPreload(r *router.Router, prefix, directory string, cfg staticfile.Config) error {
	engine := staticfile.NewEngine(directory, cfg)
	trimmed := strings.TrimSuffix(prefix, "/")

	return filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(directory, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		routePath := trimmed + "/" + rel
		cacheKey := uuid.NewString()
		requestRel := "/" + rel

		handler := FileHandler(func(req *wire.RequestHead) (*staticfile.Plan, error) {
			_ = cacheKey // held by the closure only; not logged or looked up
			return engine.Handle(requestRel, req.Headers)
		})
		return r.Add([]string{"GET", "HEAD"}, routePath, handler)
	})
}
