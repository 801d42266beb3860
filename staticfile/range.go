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
	"fmt"
	"strconv"
	"strings"
)

// RangeKind classifies a parsed Range header per spec.md §3.
type RangeKind int

const (
	RangeSingle RangeKind = iota
	RangeMultiple
	RangeSuffix // "N-"
	RangePrefix // "-N"
)

// Range is one resolved byte range, already clipped to the file size.
type Range struct {
	Kind     RangeKind
	Start    int64
	End      int64 // inclusive
	Multiple bool  // true when the request named more than one range
}

// Length returns the number of payload bytes this range covers.
func (r Range) Length() int64 { return r.End - r.Start + 1 }

// ContentRange renders the Content-Range response header value for a
// satisfiable range against a file of the given total size.
func (r Range) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// UnsatisfiableContentRange renders the Content-Range value for a 416
// response: "bytes */<size>".
func UnsatisfiableContentRange(total int64) string {
	return fmt.Sprintf("bytes */%d", total)
}

// ErrRangeUnsatisfiable is returned by ParseRange when the request
// names a byte range that cannot be satisfied against size (start at
// or beyond the end of the file). Per spec.md §4.7, the caller
// responds 416 with ContentRange via UnsatisfiableContentRange.
type ErrRangeUnsatisfiable struct{ Size int64 }

func (e *ErrRangeUnsatisfiable) Error() string {
	return fmt.Sprintf("range unsatisfiable for size %d", e.Size)
}

// ErrMalformedRange is returned when the header's syntax itself is
// invalid (not merely out of bounds).
type ErrMalformedRange struct{ Raw string }

func (e *ErrMalformedRange) Error() string { return "malformed Range header: " + e.Raw }

// ParseRange parses a "Range: bytes=..." header value against a file
// of the given size. Only the first spec of a multi-range request is
// honored (see original_source/galay-http's HttpRange.h and
// SPEC_FULL.md §11); Multiple is set so callers can log the collapse.
func ParseRange(header string, size int64) (Range, error) {
	header = strings.TrimSpace(header)
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return Range{}, &ErrMalformedRange{Raw: header}
	}
	specs := strings.Split(header[len(prefix):], ",")
	if len(specs) == 0 {
		return Range{}, &ErrMalformedRange{Raw: header}
	}
	multiple := len(specs) > 1
	r, err := parseOneSpec(strings.TrimSpace(specs[0]), size)
	if err != nil {
		return Range{}, err
	}
	r.Multiple = multiple
	if multiple {
		r.Kind = RangeMultiple
	}
	return r, nil
}

func parseOneSpec(spec string, size int64) (Range, error) {
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return Range{}, &ErrMalformedRange{Raw: spec}
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	switch {
	case startStr == "" && endStr == "": // bare "-"
		return Range{}, &ErrMalformedRange{Raw: spec}

	case startStr == "": // "-N" suffix: last N bytes
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n < 0 {
			return Range{}, &ErrMalformedRange{Raw: spec}
		}
		if n == 0 {
			return Range{}, &ErrRangeUnsatisfiable{Size: size}
		}
		start := size - n
		if start < 0 {
			start = 0
		}
		if size == 0 {
			return Range{}, &ErrRangeUnsatisfiable{Size: size}
		}
		return Range{Kind: RangePrefix, Start: start, End: size - 1}, nil

	case endStr == "": // "N-" suffix-from: from N to end
		n, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || n < 0 {
			return Range{}, &ErrMalformedRange{Raw: spec}
		}
		if n >= size {
			return Range{}, &ErrRangeUnsatisfiable{Size: size}
		}
		return Range{Kind: RangeSuffix, Start: n, End: size - 1}, nil

	default: // "S-E"
		s, err1 := strconv.ParseInt(startStr, 10, 64)
		e, err2 := strconv.ParseInt(endStr, 10, 64)
		if err1 != nil || err2 != nil || s < 0 || e < s {
			return Range{}, &ErrMalformedRange{Raw: spec}
		}
		if s >= size {
			return Range{}, &ErrRangeUnsatisfiable{Size: size}
		}
		if e >= size {
			e = size - 1 // end-exceeds-size is truncated, not rejected
		}
		return Range{Kind: RangeSingle, Start: s, End: e}, nil
	}
}
