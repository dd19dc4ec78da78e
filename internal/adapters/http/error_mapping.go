package httpadapter

import (
	"net/http"

	"github.com/vportnov/briefly/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrSummaryNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTextTooShort),
		domain.IsKind(err, domain.ErrOCRFailed),
		domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrContentFiltered):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrAPIKeyMissing),
		domain.IsKind(err, domain.ErrAPIKeyInvalid):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrStorageFull):
		return http.StatusInsufficientStorage
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	}

	if app := domain.Classify(err); app != nil {
		switch app.Code {
		case domain.ErrorRateLimit:
			return http.StatusTooManyRequests
		case domain.ErrorInvalidInput:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
