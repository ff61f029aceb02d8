package odoo

import (
	"encoding/json"
	"fmt"
)

// Operator tokens combine the conditions that follow them in prefix order.
type Operator string

const (
	OpOr  Operator = "|"
	OpAnd Operator = "&"
	OpNot Operator = "!"
)

// Term is one element of a flat domain: either an Operator or a Condition.
type Term interface {
	term()
}

func (Operator) term() {}

// MarshalJSON renders the operator as a bare string token.
func (o Operator) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(o))
}

// Condition is a single [field, operator, value] triple.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

func (Condition) term() {}

// MarshalJSON renders the condition as a three element array.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Field, c.Operator, c.Value})
}

// String is used in logs.
func (c Condition) String() string {
	return fmt.Sprintf("(%s %s %v)", c.Field, c.Operator, c.Value)
}

// Domain is a flat prefix-notation filter. Adjacent terms without an
// explicit operator are implicitly AND-ed by the server.
type Domain []Term

// Cond is shorthand for building a Condition.
func Cond(field, operator string, value any) Condition {
	return Condition{Field: field, Operator: operator, Value: value}
}

// Or returns the disjunction of terms as n-1 "|" tokens followed by the
// operands. A single operand is returned unchanged.
func Or(terms ...Term) Domain {
	if len(terms) == 0 {
		return nil
	}
	out := make(Domain, 0, 2*len(terms)-1)
	for i := 1; i < len(terms); i++ {
		out = append(out, OpOr)
	}
	return append(out, terms...)
}

// Not negates the following term.
func Not(t Term) Domain {
	return Domain{OpNot, t}
}

// And appends the given domains. Top-level juxtaposition is an AND.
func And(parts ...Domain) Domain {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make(Domain, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// With returns a copy of d extended with terms.
func (d Domain) With(terms ...Term) Domain {
	out := make(Domain, 0, len(d)+len(terms))
	out = append(out, d...)
	return append(out, terms...)
}

// MarshalJSON keeps an empty domain as [] rather than null.
func (d Domain) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Term(d))
}
