package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for callers and transports
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindConflict         ErrorKind = "conflict"
	KindAuthorization    ErrorKind = "authorization"
	KindDeadlineExceeded ErrorKind = "deadline_exceeded"
	KindInvalidState     ErrorKind = "invalid_state"
	KindNotFound         ErrorKind = "not_found"
)

// Error is a typed engine failure.
// Reason is a stable, human-readable string that the UI layer may show as is.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return e.Reason
}

// Is matches sentinels by kind, so errors.Is(err, ErrConflict) holds for any conflict
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// Sentinels for errors.Is checks
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrAuthorization    = &Error{Kind: KindAuthorization}
	ErrDeadlineExceeded = &Error{Kind: KindDeadlineExceeded}
	ErrInvalidState     = &Error{Kind: KindInvalidState}
	ErrNotFound         = &Error{Kind: KindNotFound}
)

func newError(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

func NewConflictError(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func NewAuthorizationError(format string, args ...any) error {
	return newError(KindAuthorization, format, args...)
}

func NewDeadlineExceededError(format string, args ...any) error {
	return newError(KindDeadlineExceeded, format, args...)
}

func NewInvalidStateError(format string, args ...any) error {
	return newError(KindInvalidState, format, args...)
}

func NewNotFoundError(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

// KindOf returns the kind of a typed error, or "" for anything else
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
