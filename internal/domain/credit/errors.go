package credit

import "github.com/ticketbox/ticketbox-api/internal/pkg/apperr"

var (
	// ErrInsufficientCredits is returned when user doesn't have enough credits
	ErrInsufficientCredits = apperr.Insufficient("Insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = apperr.Validation("Invalid credit amount")

	// ErrUserNotFound is returned when user doesn't exist
	ErrUserNotFound = apperr.NotFound("User not found")

	// ErrDuplicateDebit is returned when the attempt was already debited
	ErrDuplicateDebit = apperr.Conflict("Duplicate payment request")
)
