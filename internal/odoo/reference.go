package odoo

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RefKind discriminates the shapes a relational value can take on the wire.
type RefKind uint8

const (
	// RefAbsent marks a missing, null or false relational value.
	RefAbsent RefKind = iota
	// RefPair marks the canonical [id, "label"] encoding.
	RefPair
	// RefBare marks a bare scalar (number or string) in place of a pair.
	RefBare
)

// Reference is a many-to-one value as returned by the ERP: either an
// (id, label) pair, a bare scalar, or nothing.
type Reference struct {
	kind  RefKind
	id    int64
	label string
}

// Pair builds a Reference holding an id and its display label.
func Pair(id int64, label string) Reference {
	return Reference{kind: RefPair, id: id, label: label}
}

// Bare builds a Reference that carries only raw text.
func Bare(text string) Reference {
	return Reference{kind: RefBare, label: text}
}

// Absent returns the empty Reference.
func Absent() Reference {
	return Reference{}
}

// Kind reports the variant held by r.
func (r Reference) Kind() RefKind { return r.kind }

// IsPair reports whether r carries an (id, label) pair.
func (r Reference) IsPair() bool { return r.kind == RefPair }

// ID returns the numeric identifier of a pair.
func (r Reference) ID() (int64, bool) {
	if r.kind != RefPair {
		return 0, false
	}
	return r.id, true
}

// Label returns the display label of a pair and "" for every other variant.
func (r Reference) Label() string {
	if r.kind != RefPair {
		return ""
	}
	return r.label
}

// DisplayName returns the pair label, the raw bare text, or fallback when
// nothing usable is present.
func (r Reference) DisplayName(fallback string) string {
	switch r.kind {
	case RefPair:
		if r.label != "" {
			return r.label
		}
	case RefBare:
		if r.label != "" {
			return r.label
		}
	}
	return fallback
}

// MarshalJSON renders the reference back to its wire shape.
func (r Reference) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case RefPair:
		return json.Marshal([]any{r.id, r.label})
	case RefBare:
		return json.Marshal(r.label)
	default:
		return []byte("false"), nil
	}
}

// UnmarshalJSON decodes the ERP representations of a relational value.
// Shapes it does not understand decode to Absent without error.
func (r *Reference) UnmarshalJSON(data []byte) error {
	*r = ParseReference(data)
	return nil
}

// ParseReference decodes a raw JSON value into a Reference.
func ParseReference(data json.RawMessage) Reference {
	ref, _ := parseReference(data)
	return ref
}

func parseReference(data json.RawMessage) (Reference, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Absent(), true
	}
	switch trimmed[0] {
	case 'n', 'f':
		return Absent(), true
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Absent(), false
		}
		if len(items) == 0 {
			return Absent(), true
		}
		if len(items) < 2 {
			return Absent(), false
		}
		var id json.Number
		if err := json.Unmarshal(items[0], &id); err != nil {
			return Absent(), false
		}
		n, err := id.Int64()
		if err != nil {
			return Absent(), false
		}
		var label string
		if err := json.Unmarshal(items[1], &label); err != nil {
			return Pair(n, ""), false
		}
		return Pair(n, label), true
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return Absent(), false
		}
		return Bare(text), true
	case 't':
		return Absent(), false
	case '{':
		return Absent(), false
	default:
		var num json.Number
		if err := json.Unmarshal(trimmed, &num); err != nil {
			return Absent(), false
		}
		return Bare(normaliseNumber(num)), true
	}
}

func normaliseNumber(num json.Number) string {
	if i, err := num.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	return strings.TrimSpace(num.String())
}
