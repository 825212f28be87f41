package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// StructuredFields holds the domain-specific fields some ticket types keep in the description.
type StructuredFields map[string]any

// ParseStructuredDescription decodes a description holding a JSON object.
// Anything else, including malformed JSON, yields nil.
func ParseStructuredDescription(description string) StructuredFields {
	trimmed := strings.TrimSpace(description)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil
	}
	// Exactly one value: a stray closing bracket must not pass.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil
	}
	return StructuredFields(fields)
}

// EncodeStructuredDescription renders fields back into a description string.
func EncodeStructuredDescription(fields StructuredFields) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(fields)); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
