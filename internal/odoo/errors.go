package odoo

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying remote failures.
var (
	ErrAuthentication     = errors.New("odoo: authentication rejected")
	ErrSchemaIncompatible = errors.New("odoo: schema incompatible")
	ErrUpstream           = errors.New("odoo: upstream call failed")
)

// ConfigurationError reports missing connection settings.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "odoo: missing configuration " + strings.Join(e.Missing, ", ")
}

// Fault is the structured error object of a JSON-RPC response.
type Fault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name          string `json:"name"`
		Message       string `json:"message"`
		ExceptionType string `json:"exception_type"`
	} `json:"data"`
}

func (f *Fault) Error() string {
	if f.Data.Message != "" {
		return fmt.Sprintf("%s: %s", f.Data.Name, f.Data.Message)
	}
	return f.Message
}

var schemaFaultMarkers = []string{
	"invalid field",
	"unknown field",
	"invalid domain",
	"invalid leaf",
	"does not exist on",
}

// SchemaRejection reports whether the fault names a field, path or operand
// the server model does not know.
func (f *Fault) SchemaRejection() bool {
	if f == nil {
		return false
	}
	msg := strings.ToLower(f.Data.Message + " " + f.Message)
	for _, marker := range schemaFaultMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// CallError decorates a failed remote call with its target.
type CallError struct {
	Op    string
	Model string
	Kind  error
	Err   error
}

func (e *CallError) Error() string {
	target := e.Op
	if e.Model != "" {
		target = e.Model + "." + e.Op
	}
	if e.Err == nil {
		return fmt.Sprintf("%v (%s)", e.Kind, target)
	}
	return fmt.Sprintf("%v (%s): %v", e.Kind, target, e.Err)
}

// Unwrap exposes both the classification sentinel and the cause.
func (e *CallError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// IsSchemaIncompatible reports whether err is recoverable by retrying with a
// smaller field list or a simpler filter.
func IsSchemaIncompatible(err error) bool {
	return errors.Is(err, ErrSchemaIncompatible)
}
