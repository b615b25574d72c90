package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/rentledger/internal/ledger"
)

// RuntimeError is a failure of the transaction machinery itself, as
// opposed to a domain rejection returned by an operation.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Function is the operation that was running.
	Function string

	// TxID identifies the transaction.
	TxID string

	// Key is the ledger key involved, when there is one.
	Key ledger.Key

	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeReadConflict means a key read by the transaction was committed
	// by another transaction first. The caller may resubmit.
	ErrCodeReadConflict RuntimeErrorCode = "MVCC_READ_CONFLICT"

	// ErrCodeDuplicateTx means the transaction id was already committed.
	ErrCodeDuplicateTx RuntimeErrorCode = "DUPLICATE_TX"

	// ErrCodeUnknownFunction means no operation is registered under the name.
	ErrCodeUnknownFunction RuntimeErrorCode = "UNKNOWN_FUNCTION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (fn=%s, tx=%s, key=%s)", e.Code, e.Message, e.Function, e.TxID, e.Key)
	}
	if e.TxID != "" {
		return fmt.Sprintf("%s: %s (fn=%s, tx=%s)", e.Code, e.Message, e.Function, e.TxID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsReadConflict returns true if err is an MVCC read conflict.
// Uses errors.As to handle wrapped errors.
func IsReadConflict(err error) bool {
	return codeOf(err) == ErrCodeReadConflict
}

// IsUnknownFunction returns true if err names an unregistered operation.
func IsUnknownFunction(err error) bool {
	return codeOf(err) == ErrCodeUnknownFunction
}

// CodeOf returns the runtime error code of err, or "" if err is not a
// RuntimeError.
func CodeOf(err error) RuntimeErrorCode {
	return codeOf(err)
}

func codeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// NewUnknownFunctionError creates a RuntimeError for an unregistered
// operation name.
func NewUnknownFunctionError(function string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeUnknownFunction,
		Message:  fmt.Sprintf("function %q is not registered", function),
		Function: function,
	}
}
