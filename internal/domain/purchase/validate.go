package purchase

import (
	"github.com/shopspring/decimal"

	"github.com/ticketbox/ticketbox-api/internal/domain/ticket"
	"github.com/ticketbox/ticketbox-api/internal/pkg/apperr"
)

var (
	ErrInvalidAmount     = apperr.Validation("Invalid payment amount")
	ErrNoTickets         = apperr.Validation("No tickets provided")
	ErrMethodRequired    = apperr.Validation("Payment method details required")
	ErrUnsupportedMethod = apperr.Validation("Unsupported payment method")
)

// ValidatePaymentRequest rejects a non-positive amount or an empty cart.
func ValidatePaymentRequest(amount decimal.Decimal, tickets []ticket.LineItem) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(tickets) == 0 {
		return ErrNoTickets
	}
	return nil
}

func validateLineItems(items []ticket.LineItem) error {
	for _, it := range items {
		if it.TicketTypeID <= 0 {
			return apperr.Validation("Invalid ticket type ID %d", it.TicketTypeID)
		}
		if it.Quantity <= 0 {
			return apperr.Validation("Invalid quantity for ticket type %d", it.TicketTypeID)
		}
		if it.Price.IsNegative() {
			return apperr.Validation("Invalid price for ticket type %d", it.TicketTypeID)
		}
	}
	return nil
}
