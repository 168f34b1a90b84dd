// Package apperr carries the user-facing error kinds of the quiz and grade
// engine. Every kind maps to one HTTP status in middleware.ErrorResponse.
package apperr

import (
	"github.com/pkg/errors"
)

type Kind string

const (
	NotFound          Kind = "NOT_FOUND"
	Unauthorized      Kind = "UNAUTHORIZED"
	Validation        Kind = "VALIDATION_ERROR"
	AlreadySubmitted  Kind = "ALREADY_SUBMITTED"
	IncompleteAnswers Kind = "INCOMPLETE_ANSWERS"
	DeadlinePassed    Kind = "DEADLINE_PASSED"
	Configuration     Kind = "CONFIGURATION_ERROR"
	Internal          Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap tags a storage or programming failure as Internal, keeping the cause.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: Internal, Message: msg, Err: errors.Wrap(err, msg)}
}

// Invalid builds a Validation error with per-field messages.
func Invalid(msg string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: msg, Fields: fields}
}

// KindOf returns Internal for errors that were never classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
