package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is an opaque structured payload stored as JSON text. Numbers are
// kept as json.Number so that encode(decode(x)) is stable.
type Document map[string]any

// EncodeDocument serialises d for storage. An empty document is stored as NULL.
func EncodeDocument(d Document) (*string, error) {
	if len(d) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(d)); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	s := string(bytes.TrimRight(buf.Bytes(), "\n"))
	return &s, nil
}

// DecodeDocument parses stored metadata text. Empty text yields nil.
func DecodeDocument(s string) (Document, error) {
	if s == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var d Document
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return d, nil
}
