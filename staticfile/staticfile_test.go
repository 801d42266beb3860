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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/latticehq/lattice/wire"
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

func TestETagMatchWeakStrong(t *testing.T) {
	require_True(t, Match(`W/"123-abc-def"`, `"123-abc-def"`))
	require_True(t, !Match(`"x"`, `"y"`))
}

func TestRangeTableSize1000(t *testing.T) {
	const size = 1000

	r, err := ParseRange("bytes=0-499", size)
	require_NoError(t, err)
	require_True(t, r.Start == 0 && r.End == 499 && r.Length() == 500)
	require_True(t, r.ContentRange(size) == "bytes 0-499/1000")

	r, err = ParseRange("bytes=500-", size)
	require_NoError(t, err)
	require_True(t, r.Start == 500 && r.End == 999 && r.Length() == 500)

	r, err = ParseRange("bytes=-500", size)
	require_NoError(t, err)
	require_True(t, r.Start == 500 && r.End == 999 && r.Length() == 500)

	_, err = ParseRange("bytes=1000-1999", size)
	require_True(t, err != nil)
	_, ok := err.(*ErrRangeUnsatisfiable)
	require_True(t, ok)
	require_True(t, UnsatisfiableContentRange(size) == "bytes */1000")

	r, err = ParseRange("bytes=900-1999", size)
	require_NoError(t, err)
	require_True(t, r.Start == 900 && r.End == 999 && r.Length() == 100)
}

func TestResolvePathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolvePath(dir, "../../etc/passwd", DefaultDenyList, false)
	require_True(t, err == ErrPathEscapesBase)
}

func TestResolvePathRejectsDenyList(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolvePath(dir, "/.git/config", DefaultDenyList, false)
	require_True(t, err == ErrDenied)

	_, err = ResolvePath(dir, "/secret.key", DefaultDenyList, false)
	require_True(t, err == ErrDenied)
}

func TestResolvePathBlocksDotfilesWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolvePath(dir, "/.hidden", nil, true)
	require_True(t, err == ErrDotfile)
}

func TestEngineServesFileWithETag(t *testing.T) {
	dir := t.TempDir()
	require_NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("hello\n"), 0o644))

	e := NewEngine(dir, DefaultConfig())
	plan, err := e.Handle("/x.txt", wire.NewHeader())
	require_NoError(t, err)
	defer plan.Close()

	require_True(t, plan.Status == 200)
	require_True(t, plan.Headers.Get("ETag") != "")

	var buf bytes.Buffer
	require_NoError(t, plan.WriteBody(&buf, 64*1024, 1024*1024))
	require_True(t, buf.String() == "hello\n")
}

func TestEngineConditionalGetReturns304(t *testing.T) {
	dir := t.TempDir()
	require_NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("hello\n"), 0o644))
	e := NewEngine(dir, DefaultConfig())

	plan, _ := e.Handle("/x.txt", wire.NewHeader())
	tag := plan.Headers.Get("ETag")
	plan.Close()

	h := wire.NewHeader()
	h.Set("If-None-Match", tag)
	plan2, err := e.Handle("/x.txt", h)
	require_NoError(t, err)
	require_True(t, plan2.Status == 304)
	require_True(t, plan2.Headers.Get("ETag") == tag)
	require_True(t, plan2.File == nil)
}

func TestEngineIfRangeMismatchIgnoresRange(t *testing.T) {
	dir := t.TempDir()
	require_NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("hello world"), 0o644))
	e := NewEngine(dir, DefaultConfig())

	h := wire.NewHeader()
	h.Set("Range", "bytes=0-4")
	h.Set("If-Range", `"stale-tag"`)
	plan, err := e.Handle("/x.txt", h)
	require_NoError(t, err)
	defer plan.Close()
	require_True(t, plan.Status == 200)
}

func TestEngineRangeOnOneMibFile(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 1024*1024)
	require_NoError(t, os.WriteFile(filepath.Join(dir, "big.bin"), data, 0o644))
	e := NewEngine(dir, DefaultConfig())

	h := wire.NewHeader()
	h.Set("Range", "bytes=0-9")
	plan, err := e.Handle("/big.bin", h)
	require_NoError(t, err)
	defer plan.Close()
	require_True(t, plan.Status == 206)
	require_True(t, plan.Headers.Get("Content-Range") == "bytes 0-9/1048576")

	var buf bytes.Buffer
	require_NoError(t, plan.WriteBody(&buf, 64*1024, 1024*1024))
	require_True(t, buf.Len() == 10)
}
