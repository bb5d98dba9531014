package types

import (
	"errors"
	"fmt"
	"strings"
)

// ToolInvocationError reports that an external tool could not be spawned.
type ToolInvocationError struct {
	Tool string
	Err  error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("failed to run %s: %v", e.Tool, e.Err)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}

// ParseError describes a tool output line that did not match its grammar.
// It is logged and skipped, never returned to callers.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable line %q: %s", e.Line, e.Reason)
}

// StreamError reports that a capture stream failed or returned a short read.
type StreamError struct {
	Device string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("capture stream for %s ended: %v", e.Device, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// RouteProvisionError collects the module load/unload failures of one
// provisioning call. Applied changes are not rolled back.
type RouteProvisionError struct {
	// Device is the capture endpoint the call computed despite the failures.
	Device   string
	Failures []error
}

func (e *RouteProvisionError) Error() string {
	return fmt.Sprintf("route provisioning for %s incomplete: %v", e.Device, errors.Join(e.Failures...))
}

func (e *RouteProvisionError) Unwrap() []error {
	return e.Failures
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`   // JSON path to the field (e.g., "device_id")
	Message string `json:"message"` // Human-readable error message
	Value   any    `json:"value"`   // The invalid value that was provided
}

// ValidationError collects multiple field validation errors.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError creates a new empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{
		Errors: make([]FieldError, 0),
	}
}

// Add adds a field error to the collection.
func (v *ValidationError) Add(field, message string, value any) {
	v.Errors = append(v.Errors, FieldError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors reports whether any field error was added.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationError) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = fmt.Sprintf("%s %s (got %v)", e.Field, e.Message, e.Value)
	}
	return strings.Join(msgs, "; ")
}
