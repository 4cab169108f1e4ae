package lifecycle

import (
	"errors"
	"fmt"
)

// Decode and configuration failure kinds. The HTTP tier matches these with
// errors.Is to choose a status code; messages are safe to return to callers.
var (
	ErrInvalidJSON         = errors.New("invalid JSON")
	ErrUnknownLifecycle    = errors.New("unknown lifecycle phase")
	ErrPageNotFound        = errors.New("page not found")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

// SchemaError reports a field-level type or enum-value mismatch found while
// decoding an otherwise well-formed envelope.
type SchemaError struct {
	Field  string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation: %s", e.Detail)
	}
	return fmt.Sprintf("schema violation in field %q: %s", e.Field, e.Detail)
}

// NewSchemaError builds a SchemaError for the named field.
func NewSchemaError(field, format string, args ...any) *SchemaError {
	return &SchemaError{Field: field, Detail: fmt.Sprintf(format, args...)}
}

// HandlerError wraps a failure raised by user-supplied callback code. It is
// surfaced to the caller rather than masked with a default response.
type HandlerError struct {
	Phase         Phase
	CorrelationID string
	Err           error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler failed: %v", e.Phase, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
