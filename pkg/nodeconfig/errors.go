// Package nodeconfig validates node configuration documents against the
// registry schemas and backs the configuration panel: schema-driven
// field editing, email template population, and recoverable header
// parsing. Validation failures are field-level and block the write;
// invalid input is never coerced.
package nodeconfig

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError pins a validation failure to a single configuration field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates the field errors of one validation pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}

	return "invalid configuration: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries field-level validation
// failures.
func IsValidationError(err error) bool {
	var target *ValidationError

	return errors.As(err, &target)
}

// FieldErrors extracts the field errors from err, or nil.
func FieldErrors(err error) []FieldError {
	var target *ValidationError
	if errors.As(err, &target) {
		return target.Fields
	}

	return nil
}

// ErrHeadersNotJSON is the recoverable parse error for webhook header
// input. The panel keeps the last valid headers value when it occurs.
var ErrHeadersNotJSON = errors.New("headers must be a JSON object of string values")

// ErrNoSelection is returned when panel operations run without an open node.
var ErrNoSelection = errors.New("no node selected")

// ErrTemplateNotFound is returned when an email template id does not resolve.
var ErrTemplateNotFound = errors.New("email template not found")
