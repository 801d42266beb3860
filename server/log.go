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
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is the leveled logging surface every component in this
// module writes through, shaped after the teacher's own
// Noticef/Warnf/Errorf/Debugf/Tracef/Fatalf call sites seen throughout
// server/websocket.go (s.Errorf, s.Noticef, s.Warnf, s.Fatalf).
type Logger interface {
	Noticef(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Tracef(format string, v ...interface{})
	Fatalf(format string, v ...interface{})
}

// stdLogger writes timestamped lines to an io.Writer (os.Stderr by
// default) and keeps the last N lines in a ring so tests can assert on
// log output without scraping a file.
type stdLogger struct {
	mu      sync.Mutex
	out     io.Writer
	debug   bool
	trace   bool
	ring    []string
	ringCap int
	ringPos int
}

// NewLogger returns a Logger writing to w. debug/trace gate the
// corresponding verbosity levels, matching the teacher's
// Options.Debug/Options.Trace switches.
func NewLogger(w io.Writer, debug, trace bool) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &stdLogger{out: w, debug: debug, trace: trace, ringCap: 256}
}

func (l *stdLogger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("[%s] %s %s", time.Now().UTC().Format(time.RFC3339Nano), level, fmt.Sprintf(format, v...))
	fmt.Fprintln(l.out, line)
	if l.ringCap > 0 {
		if len(l.ring) < l.ringCap {
			l.ring = append(l.ring, line)
		} else {
			l.ring[l.ringPos] = line
			l.ringPos = (l.ringPos + 1) % l.ringCap
		}
	}
}

func (l *stdLogger) Noticef(format string, v ...interface{}) { l.write("NOTICE", format, v...) }
func (l *stdLogger) Warnf(format string, v ...interface{})   { l.write("WARN", format, v...) }
func (l *stdLogger) Errorf(format string, v ...interface{})  { l.write("ERROR", format, v...) }
func (l *stdLogger) Fatalf(format string, v ...interface{})  { l.write("FATAL", format, v...) }

func (l *stdLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.write("DEBUG", format, v...)
	}
}

func (l *stdLogger) Tracef(format string, v ...interface{}) {
	if l.trace {
		l.write("TRACE", format, v...)
	}
}

// RecentLines returns a snapshot of the most recently written lines,
// oldest first, for tests to assert against.
func (l *stdLogger) RecentLines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.ring))
	out = append(out, l.ring[l.ringPos:]...)
	out = append(out, l.ring[:l.ringPos]...)
	return out
}

// RecentLinesLogger is implemented by Loggers that keep an in-memory
// ring of recent output, letting tests assert on logging without
// parsing stderr.
type RecentLinesLogger interface {
	Logger
	RecentLines() []string
}

var _ RecentLinesLogger = (*stdLogger)(nil)
