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

package wire

import "strconv"

type chunkPhase int

const (
	cpSize chunkPhase = iota
	cpSizeExt // chunk-extension bytes after ';', discarded until CR
	cpSizeCR
	cpData
	cpDataCR
	cpDataLF
	cpTrailerLine // after the zero-size chunk, trailers until blank line (discarded)
	cpTrailerCR
	cpDone
)

// ChunkDecoder incrementally decodes a chunked transfer-coding body.
// Trailer headers, when present, are scanned past and discarded per
// spec Open Question #2 (deterministically: always discarded, never
// surfaced).
type ChunkDecoder struct {
	ph                    chunkPhase
	sizeDigits            []byte
	remaining             int64
	trailerLineHasContent bool
}

// NewChunkDecoder returns a fresh decoder positioned at the start of a
// chunk size line.
func NewChunkDecoder() *ChunkDecoder { return &ChunkDecoder{} }

// Done reports whether the terminal zero-size chunk (and any trailers)
// has been fully consumed.
func (d *ChunkDecoder) Done() bool { return d.ph == cpDone }

// Decode feeds first then second (a RingBuffer dual-slice readable
// view) into the decoder, appending decoded payload bytes to out. It
// returns the number of input bytes consumed and whether the terminal
// chunk was seen on this call. Decode may consume bytes from several
// whole chunks in one call; it returns as soon as input runs out or the
// terminator is reached.
func (d *ChunkDecoder) Decode(first, second []byte, out *[]byte) (consumed int, isLast bool, err error) {
	for _, buf := range [2][]byte{first, second} {
		for _, b := range buf {
			if d.ph == cpDone {
				return consumed, true, nil
			}
			done, e := d.step(b, out)
			if e != nil {
				return consumed, false, e
			}
			consumed++
			if done {
				return consumed, true, nil
			}
		}
	}
	return consumed, false, nil
}

func hexChunkDigit(b byte) (int64, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int64(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int64(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int64(b-'A') + 10, true
	default:
		return 0, false
	}
}

// finalizeSize parses the accumulated hex digits into d.remaining. It is
// called once, whichever of ';' or '\r' ends the chunk-size token.
func (d *ChunkDecoder) finalizeSize() *Error {
	if len(d.sizeDigits) == 0 {
		return NewError(KindInvalidChunkFormat, "missing chunk size")
	}
	n, e := strconv.ParseInt(string(d.sizeDigits), 16, 63)
	if e != nil || n < 0 {
		return NewError(KindInvalidChunkLength, "bad chunk size")
	}
	d.remaining = n
	d.sizeDigits = d.sizeDigits[:0]
	return nil
}

func (d *ChunkDecoder) step(b byte, out *[]byte) (done bool, err error) {
	switch d.ph {
	case cpSize:
		if b == ';' {
			if e := d.finalizeSize(); e != nil {
				return false, e
			}
			d.ph = cpSizeExt
			return false, nil
		}
		if b == '\r' {
			if e := d.finalizeSize(); e != nil {
				return false, e
			}
			d.ph = cpSizeCR
			return false, nil
		}
		if !isDigit(b) && !(b >= 'a' && b <= 'f') && !(b >= 'A' && b <= 'F') {
			return false, NewError(KindInvalidChunkFormat, "non-hex chunk size")
		}
		d.sizeDigits = append(d.sizeDigits, b)
		return false, nil

	case cpSizeExt:
		if b == '\r' {
			d.ph = cpSizeCR
		}
		// extension bytes (name=value pairs) are discarded
		return false, nil

	case cpSizeCR:
		if b != '\n' {
			return false, NewError(KindInvalidChunkFormat, "expected LF after chunk size")
		}
		if d.remaining == 0 {
			d.ph = cpTrailerLine
			d.trailerLineHasContent = false
			return false, nil
		}
		d.ph = cpData
		return false, nil

	case cpData:
		*out = append(*out, b)
		d.remaining--
		if d.remaining == 0 {
			d.ph = cpDataCR
		}
		return false, nil

	case cpDataCR:
		if b != '\r' {
			return false, NewError(KindInvalidChunkFormat, "missing chunk trailing CR")
		}
		d.ph = cpDataLF
		return false, nil

	case cpDataLF:
		if b != '\n' {
			return false, NewError(KindInvalidChunkFormat, "missing chunk trailing LF")
		}
		d.ph = cpSize
		return false, nil

	case cpTrailerLine:
		if b == '\r' {
			d.ph = cpTrailerCR
			return false, nil
		}
		// all other bytes of a trailer line are discarded
		d.trailerLineHasContent = true
		return false, nil

	case cpTrailerCR:
		if b != '\n' {
			return false, NewError(KindInvalidChunkFormat, "expected LF ending trailer line")
		}
		// A blank line (immediate CRLF) ends trailers; a non-blank trailer
		// line returns to scanning the next trailer line.
		if !d.trailerLineHasContent {
			d.ph = cpDone
			return true, nil
		}
		d.trailerLineHasContent = false
		d.ph = cpTrailerLine
		return false, nil
	}
	return false, NewError(KindInternalError, "unreachable chunk decoder phase")
}

// EncodeChunk renders one wire-format chunk: "<hex-size>\r\n<bytes>\r\n"
// for data, or the "0\r\n\r\n" terminator when isLast is true and data is
// empty. Writers stream the result directly rather than buffering the
// whole body.
func EncodeChunk(data []byte, isLast bool) []byte {
	if isLast {
		out := make([]byte, 0, len(data)+16)
		if len(data) > 0 {
			out = append(out, []byte(strconv.FormatInt(int64(len(data)), 16))...)
			out = append(out, '\r', '\n')
			out = append(out, data...)
			out = append(out, '\r', '\n')
		}
		out = append(out, '0', '\r', '\n', '\r', '\n')
		return out
	}
	out := make([]byte, 0, len(data)+16)
	out = append(out, []byte(strconv.FormatInt(int64(len(data)), 16))...)
	out = append(out, '\r', '\n')
	out = append(out, data...)
	out = append(out, '\r', '\n')
	return out
}
