package domain

import (
	"errors"
	"fmt"
)

// Error is a rejected operation.
//
// Every precondition failure in the contract and payment services is
// reported as an *Error. Callers branch on Kind; Message and Details carry
// enough context to reconstruct the failed precondition.
type Error struct {
	// Kind identifies the failure category.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// Details contains structured context (ids, expected vs actual values).
	Details map[string]string
}

// ErrorKind categorizes rejected operations.
type ErrorKind string

const (
	// KindValidation indicates a missing or malformed parameter.
	KindValidation ErrorKind = "VALIDATION"

	// KindNotFound indicates a referenced record is absent.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindConflict indicates a duplicate or an already-applied transition.
	KindConflict ErrorKind = "CONFLICT"

	// KindAuthorization indicates the caller may not perform the operation.
	KindAuthorization ErrorKind = "AUTHORIZATION"

	// KindState indicates the record is not in the required state.
	KindState ErrorKind = "STATE"

	// KindIdentityExtraction indicates the credential yields no user id.
	KindIdentityExtraction ErrorKind = "IDENTITY_EXTRACTION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// With attaches a detail and returns the same error for chaining.
func (e *Error) With(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validationf creates a KindValidation error.
func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// NotFoundf creates a KindNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// Conflictf creates a KindConflict error.
func Conflictf(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// Unauthorizedf creates a KindAuthorization error.
func Unauthorizedf(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

// Statef creates a KindState error.
func Statef(format string, args ...any) *Error {
	return newError(KindState, format, args...)
}

// IdentityExtractionf creates a KindIdentityExtraction error.
func IdentityExtractionf(format string, args ...any) *Error {
	return newError(KindIdentityExtraction, format, args...)
}

// KindOf returns the kind of a domain error, or "" if err is not one.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsValidation reports whether err is a KindValidation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a KindConflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsAuthorization reports whether err is a KindAuthorization error.
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }

// IsState reports whether err is a KindState error.
func IsState(err error) bool { return KindOf(err) == KindState }

// IsIdentityExtraction reports whether err is a KindIdentityExtraction error.
func IsIdentityExtraction(err error) bool { return KindOf(err) == KindIdentityExtraction }
