// Package jsonrepair recovers tool-call argument objects from the
// truncated or control-character-laden JSON that streaming models
// occasionally emit. Repair is tiered: sentinel stripping, control
// character escaping, then bracket balancing, with a parse attempt after
// each tier. Callers drop the single tool call when every tier fails;
// a malformed argument string is never a request-level error.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecoverable is returned when no repair tier yields parseable JSON.
var ErrUnrecoverable = errors.New("arguments not recoverable as JSON")

// Parse parses s as a JSON object, applying the repair tiers as needed.
func Parse(s string) (map[string]interface{}, error) {
	repaired, err := Repair(s)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnrecoverable, err)
	}
	return out, nil
}

// Repair returns the first candidate string that parses as JSON: the
// input itself, then the output of each tier applied cumulatively.
func Repair(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "{}", nil
	}
	if parses(s) {
		return s, nil
	}

	// Tier 1: strip non-JSON sentinel tokens and anything past the last
	// balanced closing brace.
	candidate := stripSentinels(s)
	if parses(candidate) {
		return candidate, nil
	}

	// Tier 2: escape raw control characters inside string literals.
	candidate = escapeControlChars(candidate)
	if parses(candidate) {
		return candidate, nil
	}

	// Tier 3: append the missing closing brackets/braces.
	candidate = balanceBrackets(candidate)
	if parses(candidate) {
		return candidate, nil
	}

	return "", ErrUnrecoverable
}

func parses(s string) bool {
	return json.Valid([]byte(s))
}

// stripSentinels drops any leading non-JSON tokens before the first brace
// or bracket and, when the text contains a balanced top-level value,
// trims everything after its closing brace.
func stripSentinels(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	s = s[start:]

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}

// escapeControlChars rewrites raw control characters (below code point
// 32) that appear inside string literals into their JSON escape forms.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// balanceBrackets walks the text tracking brace/bracket depth and appends
// whatever closers are missing, closing an unterminated string literal
// first.
func balanceBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	// Patch up a dangling comma or colon left by truncation.
	trimmed := strings.TrimRight(b.String(), " \t\n\r")
	switch {
	case strings.HasSuffix(trimmed, ","):
		trimmed = trimmed[:len(trimmed)-1]
	case strings.HasSuffix(trimmed, ":"):
		trimmed += "null"
	}
	b.Reset()
	b.WriteString(trimmed)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
