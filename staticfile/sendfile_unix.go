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

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package staticfile

import (
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// zeroCopySupported reports that golang.org/x/sys/unix.Sendfile is
// available on this build target.
const zeroCopySupported = true

// sendFile hands file (from offset, for count bytes) to outConn's
// socket in sub-ranges of blockSize, the OS file-to-socket primitive
// spec.md §4.7 step 6 (ZERO-COPY) calls for. It requires outConn to
// expose a raw file descriptor via SyscallConn; callers fall back to
// io.Copy when that isn't available.
func sendFile(outConn syscall.Conn, file *os.File, offset, count, blockSize int64) error {
	raw, err := outConn.SyscallConn()
	if err != nil {
		return err
	}

	remaining := count
	off := offset
	var sendErr error
	for remaining > 0 {
		n := blockSize
		if n > remaining {
			n = remaining
		}
		controlErr := raw.Control(func(fd uintptr) {
			var sent int
			sent, sendErr = unix.Sendfile(int(fd), int(file.Fd()), &off, int(n))
			if sendErr == nil {
				remaining -= int64(sent)
				if sent == 0 {
					sendErr = io.ErrUnexpectedEOF
				}
			}
		})
		if controlErr != nil {
			return controlErr
		}
		if sendErr != nil {
			if sendErr == unix.EAGAIN {
				continue
			}
			return sendErr
		}
	}
	return nil
}
