// Package extract reads newline-delimited JSON files into records.
package extract

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sparkify/sparkify-etl/internal/util"
)

// Record is one JSON object from an input line. Field values are kept raw and
// decoded on access so a transformer only pays for the fields it reads.
type Record map[string]json.RawMessage

var null = []byte("null")

// Has reports whether the field is present (it may still be null)
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Fields returns the record's field names in sorted order
func (r Record) Fields() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// raw returns the field value, or nil if the value is JSON null.
// A missing field is a schema error.
func (r Record) raw(field string) (json.RawMessage, error) {
	v, ok := r[field]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q (record has %s)", util.ErrSchema, field, strings.Join(r.Fields(), ", "))
	}
	if bytes.Equal(bytes.TrimSpace(v), null) {
		return nil, nil
	}
	return v, nil
}

func (r Record) required(field string) (json.RawMessage, error) {
	v, err := r.raw(field)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: field %q is null", util.ErrSchema, field)
	}
	return v, nil
}

// String returns a required string field
func (r Record) String(field string) (string, error) {
	v, err := r.required(field)
	if err != nil {
		return "", err
	}
	return decodeString(field, v)
}

// OptString returns a string field that may be null
func (r Record) OptString(field string) (*string, error) {
	v, err := r.raw(field)
	if err != nil || v == nil {
		return nil, err
	}
	s, err := decodeString(field, v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Float returns a required numeric field
func (r Record) Float(field string) (float64, error) {
	v, err := r.required(field)
	if err != nil {
		return 0, err
	}
	return decodeFloat(field, v)
}

// OptFloat returns a numeric field that may be null
func (r Record) OptFloat(field string) (*float64, error) {
	v, err := r.raw(field)
	if err != nil || v == nil {
		return nil, err
	}
	f, err := decodeFloat(field, v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Int returns a required integer field. Numeric strings such as "39" are
// accepted because log producers quote some identifiers.
func (r Record) Int(field string) (int64, error) {
	v, err := r.required(field)
	if err != nil {
		return 0, err
	}
	return decodeInt(field, v)
}

// OptInt returns an integer field that may be null
func (r Record) OptInt(field string) (*int64, error) {
	v, err := r.raw(field)
	if err != nil || v == nil {
		return nil, err
	}
	n, err := decodeInt(field, v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func decodeString(field string, v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string: %s", util.ErrSchema, field, v)
	}
	return s, nil
}

func decodeFloat(field string, v json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, fmt.Errorf("%w: field %q is not a number: %s", util.ErrSchema, field, v)
	}
	return f, nil
}

func decodeInt(field string, v json.RawMessage) (int64, error) {
	text := string(bytes.TrimSpace(v))
	if len(text) > 0 && text[0] == '"' {
		s, err := decodeString(field, v)
		if err != nil {
			return 0, err
		}
		text = s
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}

	// 1.0 style integers
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: field %q is not an integer: %s", util.ErrSchema, field, v)
	}
	return int64(f), nil
}
