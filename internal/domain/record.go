package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Record is a decoded log record.
// Any JSON value is accepted. A record decoded from a message body keeps
// the body's bytes, compacted, so key order and number text survive.
type Record struct {
	value any
	raw   []byte
}

// NewRecord wraps an already decoded value.
func NewRecord(v any) Record {
	return Record{value: v}
}

// DecodeRecord parses a message body as a single JSON value.
// Returns ErrUnexpectedFormat if the body is empty, not UTF-8, malformed,
// or carries trailing data after the first value.
func DecodeRecord(data []byte) (Record, error) {
	if !utf8.Valid(data) {
		return Record{}, fmt.Errorf("%w: body is not valid UTF-8", ErrUnexpectedFormat)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Record{}, fmt.Errorf("%w: trailing data after JSON value", ErrUnexpectedFormat)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	return Record{value: v, raw: buf.Bytes()}, nil
}

// Encode serializes the record to its string form.
// Decoded records return their compacted body. Records built with NewRecord
// are marshaled with sorted keys and HTML characters left unescaped.
func (r Record) Encode() (string, error) {
	if r.raw != nil {
		return string(r.raw), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.value); err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	// Encoder appends a newline
	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// Value returns the decoded value.
func (r Record) Value() any {
	return r.value
}
