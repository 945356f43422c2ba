package config

import (
	"fmt"
	"strings"
)

// ValidationError describes one invalid field on one server's configuration.
type ValidationError struct {
	ServerKey string
	Field     string
	Message   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("server %q: field %q %s", e.ServerKey, e.Field, e.Message)
}

// ValidationErrors accumulates every problem found while normalizing a
// server's configuration, rather than failing on the first one.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(parts, "; "))
}

// HasErrors reports whether any validation error was recorded.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Add appends a validation error for the given server key and field.
func (e *ValidationErrors) Add(serverKey, field, message string) {
	*e = append(*e, ValidationError{ServerKey: serverKey, Field: field, Message: message})
}
