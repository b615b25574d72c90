package gateway

import (
	"net/http"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
)

// StatusFor maps err to an HTTP status.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthorization, domain.KindIdentityExtraction:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindState:
		return http.StatusUnprocessableEntity
	}
	switch engine.CodeOf(err) {
	case engine.ErrCodeReadConflict, engine.ErrCodeDuplicateTx:
		return http.StatusConflict
	case engine.ErrCodeUnknownFunction:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
