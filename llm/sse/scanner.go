// Package sse implements the incremental streaming-response machinery
// shared by the config-driven drivers: a Server-Sent-Events line scanner,
// a field-path-driven chunk parser, an in-progress tool-call assembler,
// and an llm.Stream that pumps an HTTP response body through them.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// maxLineSize bounds a single SSE line; model chunks are small but tool
// argument payloads can be large.
const maxLineSize = 1 << 20

// Scanner reads newline-delimited SSE lines from a response body and
// yields the data payloads. Lines not matching the configured data
// prefix are ignored; a payload equal to the done marker terminates the
// stream.
type Scanner struct {
	scanner    *bufio.Scanner
	dataPrefix string
	doneMarker string
	done       bool
}

// NewScanner creates a Scanner over r. An empty dataPrefix defaults to
// "data:"; an empty doneMarker means the stream only ends at EOF.
func NewScanner(r io.Reader, dataPrefix, doneMarker string) *Scanner {
	if dataPrefix == "" {
		dataPrefix = "data:"
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{
		scanner:    s,
		dataPrefix: dataPrefix,
		doneMarker: doneMarker,
	}
}

// Next returns the next data payload. ok is false at end of stream,
// whether by done marker, EOF, or read error.
func (s *Scanner) Next() (payload []byte, ok bool) {
	if s.done {
		return nil, false
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, s.dataPrefix) {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, s.dataPrefix))
		if data == "" {
			continue
		}
		if s.doneMarker != "" && data == s.doneMarker {
			s.done = true
			return nil, false
		}
		return []byte(data), true
	}
	return nil, false
}

// SawDoneMarker reports whether the stream was terminated by the
// configured done marker rather than EOF.
func (s *Scanner) SawDoneMarker() bool {
	return s.done
}

// Err returns any read error encountered by the underlying scanner.
func (s *Scanner) Err() error {
	return s.scanner.Err()
}
