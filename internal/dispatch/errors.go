package dispatch

import (
	"errors"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
)

// ErrorCodeInternal reports a failure that is neither a domain rejection
// nor a runtime error.
const ErrorCodeInternal = "INTERNAL"

// ErrorCode returns the code reported for err: the domain kind, the
// runtime error code, or ErrorCodeInternal. A nil err has no code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return ErrorCodeInternal
}

// ErrorDetails returns the structured context carried by err, if any.
func ErrorDetails(err error) map[string]string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Details
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) && re.Key != "" {
		return map[string]string{"key": string(re.Key)}
	}
	return nil
}
