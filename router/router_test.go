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

package router

import "testing"

func require_True(t *testing.T, b bool) {
	t.Helper()
	if !b {
		t.Fatalf("require true, but got false")
	}
}

func TestPriorityExactBeatsParamBeatsWildcard(t *testing.T) {
	r := New()
	r.Add([]string{"GET"}, "/api/users", "exact")
	r.Add([]string{"GET"}, "/api/:resource", "param")
	r.Add([]string{"GET"}, "/api/*", "wildcard")

	m, ok := r.Lookup("GET", "/api/users")
	require_True(t, ok)
	require_True(t, m.Handler == "exact")
	require_True(t, len(m.Params) == 0)

	m, ok = r.Lookup("GET", "/api/posts")
	require_True(t, ok)
	require_True(t, m.Handler == "param")
	require_True(t, m.Params["resource"] == "posts")

	_, ok = r.Lookup("GET", "/api/a/b")
	require_True(t, !ok)
}

func TestGreedyWildcardMatchesRest(t *testing.T) {
	r := New()
	r.Add([]string{"GET"}, "/files/**", "files")
	m, ok := r.Lookup("GET", "/files/a/b/c.txt")
	require_True(t, ok)
	require_True(t, m.Handler == "files")

	m, ok = r.Lookup("GET", "/files")
	require_True(t, ok)
	require_True(t, m.Handler == "files")
}

func TestGreedyMustBeLastSegment(t *testing.T) {
	r := New()
	err := r.Add([]string{"GET"}, "/files/**/more", "x")
	require_True(t, err != nil)
}

func TestDuplicateParamNameRejected(t *testing.T) {
	r := New()
	err := r.Add([]string{"GET"}, "/a/:id/b/:id", "x")
	require_True(t, err != nil)
}

func TestMultipleParamsBindAndUnbind(t *testing.T) {
	r := New()
	r.Add([]string{"GET"}, "/user/:uid/post/:pid", "post")
	m, ok := r.Lookup("GET", "/user/7/post/42")
	require_True(t, ok)
	require_True(t, m.Params["uid"] == "7")
	require_True(t, m.Params["pid"] == "42")

	// a second, unrelated lookup must not see stale params from backtracking
	_, ok = r.Lookup("GET", "/user/7/post")
	require_True(t, !ok)
}

func TestMethodNotAllowedDetection(t *testing.T) {
	r := New()
	r.Add([]string{"POST"}, "/submit", "submit")
	_, ok := r.Lookup("GET", "/submit")
	require_True(t, !ok)
	require_True(t, r.OtherMethodsRegistered("GET", "/submit"))
}

func TestSplitPathCollapsesEmptySegments(t *testing.T) {
	segs := splitPath("/a//b/")
	require_True(t, len(segs) == 2)
	require_True(t, segs[0] == "a" && segs[1] == "b")
}
