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

package staticfile

import (
	"errors"
	"path/filepath"
	"strings"
)

// DefaultDenyList carries PathSecurity.h's default blacklist verbatim
// (see SPEC_FULL.md §11): version-control, secret and backup files
// must never be served regardless of mount configuration.
var DefaultDenyList = []string{".git", ".env", ".ssh", "*.key", "*.pem", "*~", "*.bak"}

var (
	// ErrPathEscapesBase is returned when the resolved path would land
	// outside the mount's canonical base directory.
	ErrPathEscapesBase = errors.New("staticfile: path escapes mount base")
	// ErrDenied is returned when a path component matches the deny list.
	ErrDenied = errors.New("staticfile: path denied by deny list")
	// ErrDotfile is returned when BlockHiddenFiles is set and a
	// component starts with '.'.
	ErrDotfile = errors.New("staticfile: dotfile blocked")
)

// ResolvePath joins base and requestPath, then verifies the canonical
// result stays within base (the path-traversal guard spec.md §4.7
// step 1 requires) and runs the deny-list / dotfile checks against
// each path component before the filesystem is ever touched.
func ResolvePath(base, requestPath string, denyList []string, blockHidden bool) (string, error) {
	joined := filepath.Join(base, requestPath)

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	if absJoined != absBase && !strings.HasPrefix(absJoined, absBase+string(filepath.Separator)) {
		return "", ErrPathEscapesBase
	}

	rel, err := filepath.Rel(absBase, absJoined)
	if err != nil {
		return "", ErrPathEscapesBase
	}
	for _, comp := range strings.Split(rel, string(filepath.Separator)) {
		if comp == "" || comp == "." {
			continue
		}
		if blockHidden && strings.HasPrefix(comp, ".") {
			return "", ErrDotfile
		}
		if matchesDenyList(comp, denyList) {
			return "", ErrDenied
		}
	}
	return absJoined, nil
}

func matchesDenyList(component string, denyList []string) bool {
	for _, pattern := range denyList {
		if ok, _ := filepath.Match(pattern, component); ok {
			return true
		}
		if component == pattern {
			return true
		}
	}
	return false
}

// ResolveSymlink checks that a resolved symlink target still falls
// within base, per spec.md §4.7's "reject symlinks whose target falls
// outside the base" requirement.
func ResolveSymlink(base, target string) error {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if absTarget != absBase && !strings.HasPrefix(absTarget, absBase+string(filepath.Separator)) {
		return ErrPathEscapesBase
	}
	return nil
}
