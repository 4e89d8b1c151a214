// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package shell

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/roadbed/internal/logging"
)

// maxLineBytes bounds a single buffered line. Longer runs without a line
// break are split.
const maxLineBytes = 4096

// lineSplitter breaks a byte stream into lines. Both '\n' and '\r' end a line
// so carriage-return progress output does not accumulate, and "\r\n" counts
// as one break even when split across writes.
type lineSplitter struct {
	partial []byte
	afterCR bool
}

func (s *lineSplitter) split(p []byte, emit func(string)) {
	data := append(s.partial, p...)
	for {
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		if i == 0 && data[0] == '\n' && s.afterCR {
			s.afterCR = false
			data = data[1:]
			continue
		}
		emit(string(data[:i]))
		s.afterCR = data[i] == '\r'
		data = data[i+1:]
	}
	for len(data) > maxLineBytes {
		emit(string(data[:maxLineBytes]))
		s.afterCR = false
		data = data[maxLineBytes:]
	}
	s.partial = append([]byte(nil), data...)
}

// tailBuffer keeps the last n complete lines written to it plus any partial line.
type tailBuffer struct {
	n     int
	lines []string
	lineSplitter
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n, lines: make([]string, 0, n)}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.split(p, t.push)
	return len(p), nil
}

func (t *tailBuffer) push(line string) {
	if len(t.lines) == t.n {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.n-1]
	}
	t.lines = append(t.lines, line)
}

func (t *tailBuffer) String() string {
	out := strings.Join(t.lines, "\n")
	if len(t.partial) > 0 {
		if out != "" {
			out += "\n"
		}
		out += string(t.partial)
	}
	return out
}

// lineLogger emits every complete output line as a debug event.
type lineLogger struct {
	logger  zerolog.Logger
	stream  string
	secrets []string
	lineSplitter
}

func (l *lineLogger) Write(p []byte) (int, error) {
	if l.logger.GetLevel() > zerolog.DebugLevel || zerolog.GlobalLevel() > zerolog.DebugLevel {
		return len(p), nil
	}
	l.split(p, l.emit)
	return len(p), nil
}

func (l *lineLogger) emit(line string) {
	if line = strings.TrimSpace(line); line != "" {
		l.logger.Debug().Str("stream", l.stream).Msg(logging.Redact(line, l.secrets...))
	}
}
