package odoo

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

// timeLayout matches the time part of datetime fields; fractional seconds
// are accepted when parsing.
const timeLayout = "15:04:05"

// Record is a single row returned by search_read or read. Values are kept
// raw so that each accessor decides how tolerant to be.
type Record map[string]json.RawMessage

// ID returns the record id or 0 when missing.
func (r Record) ID() int64 {
	raw, ok := r["id"]
	if !ok {
		return 0
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0
	}
	id, err := num.Int64()
	if err != nil {
		return 0
	}
	return id
}

// Has reports whether field is present and not false/null.
func (r Record) Has(field string) bool {
	raw, ok := r[field]
	if !ok {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("false")) && !bytes.Equal(trimmed, []byte("null"))
}

// String returns a text field. The ERP encodes empty text as false, which
// maps to "". Numbers are rendered in their literal form.
func (r Record) String(field string) string {
	s, _ := r.StringOK(field)
	return s
}

// StringOK is String that additionally reports whether the stored value had
// an unexpected shape.
func (r Record) StringOK(field string) (string, bool) {
	raw, ok := r[field]
	if !ok {
		return "", true
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", true
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case 'f', 'n':
		return "", true
	case '[', '{', 't':
		return "", false
	default:
		var num json.Number
		if err := json.Unmarshal(trimmed, &num); err != nil {
			return "", false
		}
		return normaliseNumber(num), true
	}
}

// Float returns a numeric field or 0 when absent or malformed.
func (r Record) Float(field string) float64 {
	f, _ := r.FloatOK(field)
	return f
}

// FloatOK is Float that additionally reports whether the value was well formed.
func (r Record) FloatOK(field string) (float64, bool) {
	raw, ok := r[field]
	if !ok {
		return 0, true
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		return 0, true
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return 0, false
	}
	f, err := num.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// Ref decodes a many-to-one field.
func (r Record) Ref(field string) Reference {
	ref, _ := r.RefOK(field)
	return ref
}

// RefOK is Ref that additionally reports whether the value was well formed.
func (r Record) RefOK(field string) (Reference, bool) {
	raw, ok := r[field]
	if !ok {
		return Absent(), true
	}
	return parseReference(raw)
}

// Date parses a date field. Missing, false or malformed values yield
// (zero, false).
func (r Record) Date(field string) (time.Time, bool) {
	return ParseDate(r.String(field))
}

// ParseDate parses a YYYY-MM-DD value. A trailing time component separated by
// a space or 'T', as sent for datetime fields, is validated and dropped; any
// other suffix makes the value malformed.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if len(value) > len(DateLayout) {
		sep := value[len(DateLayout)]
		if sep != ' ' && sep != 'T' {
			return time.Time{}, false
		}
		if _, err := time.Parse(timeLayout, value[len(DateLayout)+1:]); err != nil {
			return time.Time{}, false
		}
		value = value[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
