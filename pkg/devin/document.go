package devin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Document is an opaque JSON value produced by a session, either inline as
// structured output or as a downloaded attachment. Its shape is decided by
// whoever wrote the prompt, so it is kept untyped and inspected through
// the accessors below. Numbers are kept as json.Number.
type Document struct {
	value any
}

// NewDocument wraps an already-decoded JSON value.
func NewDocument(v any) Document {
	return Document{value: v}
}

// ParseDocument decodes exactly one JSON value from data.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Document{}, fmt.Errorf("decode document: trailing data after JSON value")
	}
	return Document{value: v}, nil
}

// RawContentDocument wraps text that is not valid JSON as
// {"raw_content": text}.
func RawContentDocument(text string) Document {
	return Document{value: map[string]any{"raw_content": text}}
}

// Value returns the underlying decoded value.
func (d Document) Value() any {
	return d.value
}

// IsEmpty reports whether the document carries nothing usable: null,
// false, zero, the empty string, or an empty object or array.
func (d Document) IsEmpty() bool {
	switch v := d.value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case float64:
		return v == 0
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

// Object returns the document as a JSON object.
func (d Document) Object() (map[string]any, bool) {
	m, ok := d.value.(map[string]any)
	return m, ok
}

// Array returns the document as a JSON array.
func (d Document) Array() ([]any, bool) {
	a, ok := d.value.([]any)
	return a, ok
}

// Str returns the document as a JSON string.
func (d Document) Str() (string, bool) {
	s, ok := d.value.(string)
	return s, ok
}

// Has reports whether the document is an object containing key.
func (d Document) Has(key string) bool {
	m, ok := d.Object()
	if !ok {
		return false
	}
	_, ok = m[key]
	return ok
}

// Lookup walks nested objects by key.
func (d Document) Lookup(keys ...string) (Document, bool) {
	cur := d.value
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return Document{}, false
		}
		cur, ok = m[k]
		if !ok {
			return Document{}, false
		}
	}
	return Document{value: cur}, true
}

// Items returns the elements of an array document, each wrapped.
func (d Document) Items() []Document {
	a, ok := d.Array()
	if !ok {
		return nil
	}
	out := make([]Document, len(a))
	for i, v := range a {
		out[i] = Document{value: v}
	}
	return out
}

// Keys returns the sorted keys of an object document.
func (d Document) Keys() []string {
	m, ok := d.Object()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of elements of an array or keys of an object, and 0
// for anything else.
func (d Document) Len() int {
	switch v := d.value.(type) {
	case map[string]any:
		return len(v)
	case []any:
		return len(v)
	}
	return 0
}

// Indent renders the document as two-space indented JSON.
func (d Document) Indent() ([]byte, error) {
	return json.MarshalIndent(d.value, "", "  ")
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}
