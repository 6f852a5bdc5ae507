package errorhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
	"github.com/ticketbox/ticketbox-api/internal/pkg/logger"
	"github.com/ticketbox/ticketbox-api/internal/pkg/response"
)

// Status maps an error to its HTTP status and response code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperr.ErrInsufficientResource):
		return http.StatusConflict, "INSUFFICIENT_RESOURCE"
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, apperr.ErrTransactionFailed):
		return http.StatusServiceUnavailable, "TRANSACTION_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// Write logs err and sends the matching error envelope. Kinded errors keep
// their message; anything else is reported as an internal error.
func Write(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := Status(err)
	l := logger.FromContext(ctx)

	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Int("status_code", status).Str("error_code", code).Msg("Request failed")
	} else {
		l.Warn().Err(err).Int("status_code", status).Str("error_code", code).Msg("Request rejected")
	}

	if status == http.StatusInternalServerError {
		response.InternalError(w)
		return
	}
	if status == http.StatusServiceUnavailable {
		response.Error(w, status, code, "The purchase could not be completed, please retry")
		return
	}
	response.Error(w, status, code, err.Error())
}
