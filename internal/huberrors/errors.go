// Package huberrors defines the error kinds that cross the service/handler boundary.
// Handlers map kinds to status codes with errors.Is; everything else is a 500.
package huberrors

import "errors"

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	// KindValidation means caller input violates a pipeline's input contract (e.g. no ingredients).
	KindValidation Kind = "validation"
	// KindUnavailable means an optional capability is switched off by configuration.
	KindUnavailable Kind = "unavailable"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrUnavailable = &Error{Kind: KindUnavailable}
)

// Error carries a kind plus the offending field (if any) and a client-safe message.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

// NewValidationError reports invalid input for field.
func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NewUnavailableError reports a disabled capability.
func NewUnavailableError(message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Field != "":
		return string(e.Kind) + " failed for field: " + e.Field
	default:
		return string(e.Kind) + " error"
	}
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return other.Kind == e.Kind
}
