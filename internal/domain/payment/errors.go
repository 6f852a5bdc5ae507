package payment

import "github.com/ticketbox/ticketbox-api/internal/pkg/apperr"

var (
	ErrPaymentNotFound    = apperr.NotFound("Payment not found")
	ErrUnauthorizedAccess = apperr.Unauthorized("Unauthorized access to this payment")
	ErrDuplicateRequest   = apperr.Conflict("Duplicate payment request")
)
