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

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package staticfile

import (
	"io"
	"os"
	"syscall"
)

// zeroCopySupported is false on hosts with no unix.Sendfile binding;
// the engine falls back to CHUNKED per spec.md §4.7 step 6.
const zeroCopySupported = false

func sendFile(outConn syscall.Conn, file *os.File, offset, count, blockSize int64) error {
	section := io.NewSectionReader(file, offset, count)
	w, ok := outConn.(io.Writer)
	if !ok {
		return errUnsupportedWriter
	}
	_, err := io.Copy(w, section)
	return err
}
