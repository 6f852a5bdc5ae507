package purchase

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ticketbox/ticketbox-api/internal/domain/card"
	"github.com/ticketbox/ticketbox-api/internal/domain/ticket"
)

// LineItemRequest is one cart selection in the request body.
type LineItemRequest struct {
	TicketTypeID int64           `json:"ticketTypeId" validate:"required,gt=0"`
	Quantity     int             `json:"quantity" validate:"required,gt=0,lte=50"`
	Price        decimal.Decimal `json:"price"`
	EventID      int64           `json:"eventId" validate:"omitempty,gt=0"`
}

// CardDetailsRequest is a card entered at checkout.
type CardDetailsRequest struct {
	CardNumber     string `json:"cardNumber" validate:"required,card_number,credit_card"`
	CardholderName string `json:"cardholderName" validate:"required,max=100"`
	ExpiryMonth    int    `json:"expiryMonth" validate:"required,gte=1,lte=12"`
	ExpiryYear     int    `json:"expiryYear" validate:"required,gte=2000,lte=2100"`
	CVV            string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	IsDefault      bool   `json:"isDefault"`
}

// PaymentRequest is the body of POST /payments.
type PaymentRequest struct {
	Amount         decimal.Decimal     `json:"amount"`
	Currency       string              `json:"currency" validate:"omitempty,iso4217"`
	Tickets        []LineItemRequest   `json:"tickets" validate:"omitempty,max=20,dive"`
	PaymentMethod  string              `json:"paymentMethod" validate:"payment_method"`
	SavedCardID    *int64              `json:"savedCardId" validate:"omitempty,gt=0"`
	CardDetails    *CardDetailsRequest `json:"cardDetails" validate:"omitempty"`
	SaveCard       bool                `json:"saveCard"`
	UseCredits     bool                `json:"useCredits"`
	IdempotencyKey string              `json:"idempotencyKey" validate:"omitempty,max=128"`
}

// ToRequest maps the body onto the payment method variant. A stored card
// wins over entered card details.
func (r *PaymentRequest) ToRequest() Request {
	items := make([]ticket.LineItem, 0, len(r.Tickets))
	for _, it := range r.Tickets {
		items = append(items, ticket.LineItem{
			TicketTypeID: it.TicketTypeID,
			EventID:      it.EventID,
			Quantity:     it.Quantity,
			Price:        it.Price,
		})
	}
	if r.Tickets == nil {
		items = nil
	}

	return Request{
		Amount:         r.Amount,
		Currency:       strings.ToUpper(r.Currency),
		Tickets:        items,
		Method:         r.method(),
		IdempotencyKey: strings.TrimSpace(r.IdempotencyKey),
	}
}

func (r *PaymentRequest) method() PaymentMethod {
	if r.PaymentMethod == "credits" || r.UseCredits {
		return Credits{}
	}
	switch {
	case r.SavedCardID != nil:
		return SavedCard{CardID: *r.SavedCardID}
	case r.CardDetails != nil:
		d := r.CardDetails
		return NewCard{
			Details: card.Details{
				Number:         d.CardNumber,
				CardholderName: d.CardholderName,
				ExpiryMonth:    d.ExpiryMonth,
				ExpiryYear:     d.ExpiryYear,
				CVV:            d.CVV,
			},
			Save:        r.SaveCard,
			MakeDefault: r.SaveCard && d.IsDefault,
		}
	}
	return nil
}
