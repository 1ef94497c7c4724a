package adapter

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Path is a parsed dot-separated field path: a sequence of key/index
// tokens resolved step by step against parsed JSON. Numeric tokens index
// into arrays. Resolution never uses reflection; every step is a lookup
// on a tagged JSON value.
type Path struct {
	raw    string
	tokens []string
}

// ParsePath splits a dot-separated path into its tokens.
// An empty string yields the zero Path, which resolves to nothing.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path{raw: s, tokens: strings.Split(s, ".")}
}

// IsZero reports whether the path is empty (unconfigured).
func (p Path) IsZero() bool {
	return len(p.tokens) == 0
}

// String returns the original dot-separated form.
func (p Path) String() string {
	return p.raw
}

// Lookup resolves the path against a JSON value, one token at a time.
// A missing step yields a non-existent result.
func (p Path) Lookup(doc gjson.Result) gjson.Result {
	if p.IsZero() {
		return gjson.Result{}
	}
	cur := doc
	for _, tok := range p.tokens {
		if !cur.Exists() {
			return gjson.Result{}
		}
		cur = cur.Get(tok)
	}
	return cur
}

// LookupBytes resolves the path against raw JSON bytes.
func (p Path) LookupBytes(data []byte) gjson.Result {
	return p.Lookup(gjson.ParseBytes(data))
}

// StringValue resolves the path and returns its string form, or "" if the
// path is empty or missing.
func (p Path) StringValue(doc gjson.Result) string {
	res := p.Lookup(doc)
	if !res.Exists() {
		return ""
	}
	return res.String()
}

// IntValue resolves the path and returns its integer form, or 0.
func (p Path) IntValue(doc gjson.Result) int64 {
	res := p.Lookup(doc)
	if !res.Exists() {
		return 0
	}
	return res.Int()
}
