// Package apperror defines the error taxonomy shared by the store and the
// HTTP layer. Handlers never pick status codes themselves; they forward an
// *Error and let the response writer map its Kind.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindNotFound: an identifier-based lookup matched no record.
	KindNotFound Kind = iota
	// KindValidation: a schema or cross-field constraint was violated on write.
	KindValidation
	// KindOperation: an unexpected storage or collaborator fault.
	KindOperation
)

type Error struct {
	Kind    Kind
	Field   string // set for validation errors where a single field is at fault
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Operation wraps an external error with context information, eg. the
// operation that failed ("tours.find").
func Operation(context string, err error) *Error {
	return &Error{Kind: KindOperation, Message: context, Err: err}
}

// KindOf reports the Kind of err, defaulting to KindOperation for errors
// that did not originate in this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindOperation
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
