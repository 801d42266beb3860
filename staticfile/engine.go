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
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	pkgerrors "github.com/pkg/errors"

	"github.com/latticehq/lattice/wire"
)

var errUnsupportedWriter = errors.New("staticfile: zero-copy requires a syscall.Conn writer")

// Engine serves files out of a single mounted base directory per the
// pipeline in spec.md §4.7.
type Engine struct {
	Base   string
	Config Config
}

// NewEngine returns an Engine rooted at base with cfg applied.
func NewEngine(base string, cfg Config) *Engine {
	return &Engine{Base: base, Config: cfg}
}

// Plan is the outcome of running the conditional/range pipeline
// against one request: the response head to emit and, for bodies that
// carry one, the open file plus the byte range to stream.
type Plan struct {
	Status  int
	Headers *wire.Header
	File    *os.File // nil for 304/416/errors with no body
	Start   int64
	End     int64 // inclusive; valid only when File != nil
	Mode    TransferMode
}

// Close releases the plan's open file, if any.
func (p *Plan) Close() error {
	if p.File != nil {
		return p.File.Close()
	}
	return nil
}

// Handle resolves requestPath against e.Base and runs the full
// conditional/range pipeline, returning a Plan ready to be written by
// WriteBody. It never writes to the network itself.
func (e *Engine) Handle(requestPath string, reqHeaders *wire.Header) (*Plan, error) {
	full, err := ResolvePath(e.Base, requestPath, e.Config.DenyList, e.Config.BlockHiddenFiles)
	if err != nil {
		return notFoundPlan(), nil
	}

	info, err := os.Lstat(full)
	if err != nil {
		return notFoundPlan(), nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(full)
		if err != nil {
			return notFoundPlan(), nil
		}
		if err := ResolveSymlink(e.Base, target); err != nil {
			return forbiddenPlan(), nil
		}
		full = target
		info, err = os.Stat(full)
		if err != nil {
			return notFoundPlan(), nil
		}
	}
	if info.IsDir() {
		return notFoundPlan(), nil
	}

	tag := ETagForFile(info)

	if inm := reqHeaders.Get("If-None-Match"); inm != "" && MatchesAny(inm, tag.String()) {
		h := wire.NewHeader()
		h.Set("ETag", tag.String())
		return &Plan{Status: 304, Headers: h}, nil
	}

	size := info.Size()
	start, end := int64(0), size-1
	status := 200

	if rangeHeader := reqHeaders.Get("Range"); rangeHeader != "" {
		ifRange := reqHeaders.Get("If-Range")
		honorRange := ifRange == "" || Match(ifRange, tag.String())
		if honorRange {
			rg, err := ParseRange(rangeHeader, size)
			if err != nil {
				// Both malformed and out-of-bounds ranges answer 416 per
				// spec.md §4.7 step 4.
				h := wire.NewHeader()
				h.Set("Content-Range", UnsatisfiableContentRange(size))
				return &Plan{Status: 416, Headers: h}, nil
			}
			start, end = rg.Start, rg.End
			status = 206
		}
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "staticfile: open")
	}

	effectiveSize := end - start + 1
	mode := e.Config.SelectMode(effectiveSize)
	if mode == ZeroCopy && !zeroCopySupported {
		mode = Chunked
	}

	h := wire.NewHeader()
	h.Set("ETag", tag.String())
	h.Set("Accept-Ranges", "bytes")
	if ct := mime.TypeByExtension(filepath.Ext(full)); ct != "" {
		h.Set("Content-Type", ct)
	}
	if status == 206 {
		h.Set("Content-Range", Range{Start: start, End: end}.ContentRange(size))
	}
	if mode == Chunked {
		h.Set("Transfer-Encoding", "chunked")
	} else {
		h.Set("Content-Length", strconv.FormatInt(effectiveSize, 10))
	}

	return &Plan{
		Status:  status,
		Headers: h,
		File:    f,
		Start:   start,
		End:     end,
		Mode:    mode,
	}, nil
}

func notFoundPlan() *Plan {
	h := wire.NewHeader()
	return &Plan{Status: 404, Headers: h}
}

func forbiddenPlan() *Plan {
	h := wire.NewHeader()
	return &Plan{Status: 403, Headers: h}
}

// WriteBody streams p's file (if any) to w per p.Mode, using sendFile
// for ZeroCopy when w also implements syscall.Conn and falling back
// to a plain io.Copy of the same byte range otherwise, so the body
// still matches the Content-Length that Handle set.
func (p *Plan) WriteBody(w io.Writer, chunkSize int64, zeroCopyBlock int64) error {
	if p.File == nil {
		return nil
	}
	length := p.End - p.Start + 1

	switch p.Mode {
	case Buffered:
		buf := make([]byte, length)
		if _, err := p.File.ReadAt(buf, p.Start); err != nil && err != io.EOF {
			return pkgerrors.Wrap(err, "staticfile: buffered read")
		}
		_, err := w.Write(buf)
		return err

	case ZeroCopy:
		sc, ok := w.(syscall.Conn)
		if !ok {
			_, err := io.Copy(w, io.NewSectionReader(p.File, p.Start, length))
			return err
		}
		if err := sendFile(sc, p.File, p.Start, length, zeroCopyBlock); err != nil {
			return pkgerrors.Wrap(err, "staticfile: sendfile")
		}
		return nil

	default: // Chunked
		return p.writeChunked(w, chunkSize)
	}
}

func (p *Plan) writeChunked(w io.Writer, chunkSize int64) error {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	remaining := p.End - p.Start + 1
	off := p.Start
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		n := chunkSize
		if n > remaining {
			n = remaining
		}
		read, err := p.File.ReadAt(buf[:n], off)
		if err != nil && err != io.EOF {
			return pkgerrors.Wrap(err, "staticfile: chunked read")
		}
		if _, err := w.Write(wire.EncodeChunk(buf[:read], false)); err != nil {
			return err
		}
		off += int64(read)
		remaining -= int64(read)
		if read == 0 {
			break
		}
	}
	_, err := w.Write(wire.EncodeChunk(nil, true))
	return err
}
