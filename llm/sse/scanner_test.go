package sse

import (
	"strings"
	"testing"
)

func TestScannerYieldsDataPayloads(t *testing.T) {
	input := "event: message\ndata: {\"a\":1}\n\ndata: {\"b\":2}\n"
	s := NewScanner(strings.NewReader(input), "data:", "[DONE]")

	payload, ok := s.Next()
	if !ok {
		t.Fatal("Expected first payload")
	}
	if string(payload) != `{"a":1}` {
		t.Errorf("Expected first payload {\"a\":1}, got %s", payload)
	}

	payload, ok = s.Next()
	if !ok {
		t.Fatal("Expected second payload")
	}
	if string(payload) != `{"b":2}` {
		t.Errorf("Expected second payload {\"b\":2}, got %s", payload)
	}

	if _, ok := s.Next(); ok {
		t.Error("Expected end of stream at EOF")
	}
	if s.SawDoneMarker() {
		t.Error("Expected no done marker at plain EOF")
	}
}

func TestScannerStopsAtDoneMarker(t *testing.T) {
	input := "data: {\"a\":1}\ndata: [DONE]\ndata: {\"b\":2}\n"
	s := NewScanner(strings.NewReader(input), "data:", "[DONE]")

	if _, ok := s.Next(); !ok {
		t.Fatal("Expected payload before done marker")
	}
	if _, ok := s.Next(); ok {
		t.Error("Expected stream to end at done marker")
	}
	if !s.SawDoneMarker() {
		t.Error("Expected SawDoneMarker to report true")
	}
	if _, ok := s.Next(); ok {
		t.Error("Expected no payloads after done marker")
	}
}

func TestScannerSkipsNonDataLines(t *testing.T) {
	input := ": comment\nid: 42\nretry: 100\ndata: {\"a\":1}\n"
	s := NewScanner(strings.NewReader(input), "data:", "")

	payload, ok := s.Next()
	if !ok {
		t.Fatal("Expected payload")
	}
	if string(payload) != `{"a":1}` {
		t.Errorf("Expected payload {\"a\":1}, got %s", payload)
	}
}

func TestScannerDefaultsDataPrefix(t *testing.T) {
	s := NewScanner(strings.NewReader("data: {\"x\":true}\n"), "", "")
	payload, ok := s.Next()
	if !ok {
		t.Fatal("Expected payload with defaulted prefix")
	}
	if string(payload) != `{"x":true}` {
		t.Errorf("Expected payload {\"x\":true}, got %s", payload)
	}
}
