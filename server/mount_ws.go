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

import "github.com/latticehq/lattice/router"

// MountWS registers a WebSocket-upgradeable route at pattern. handler
// runs with exclusive ownership of the connection once the upgrade
// handshake completes.
func MountWS(r *router.Router, pattern string, handler WSHandler) error {
	return r.Add([]string{"GET"}, pattern, handler)
}
