package purchase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticketbox/ticketbox-api/internal/domain/card"
	"github.com/ticketbox/ticketbox-api/internal/domain/payment"
	"github.com/ticketbox/ticketbox-api/internal/domain/ticket"
)

// Purchase is the order aggregate of one checkout.
type Purchase struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"userId"`
	PaymentID int64           `db:"payment_id" json:"paymentId"`
	OrderID   string          `db:"order_id" json:"orderId"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	Tickets   []ticket.Ticket `db:"-" json:"tickets"`
}

// PaymentMethod is the funding source of a request. The set of
// implementations is closed: SavedCard, NewCard and Credits.
type PaymentMethod interface {
	Method() payment.Method
}

// SavedCard charges a card on file.
type SavedCard struct {
	CardID int64
}

// NewCard charges a card entered at checkout, optionally keeping it on file.
type NewCard struct {
	Details     card.Details
	Save        bool
	MakeDefault bool
}

// Credits debits the internal credit balance.
type Credits struct{}

func (SavedCard) Method() payment.Method { return payment.MethodCard }
func (NewCard) Method() payment.Method   { return payment.MethodCard }
func (Credits) Method() payment.Method   { return payment.MethodCredits }

// Request is a validated checkout.
type Request struct {
	Amount         decimal.Decimal
	Currency       string
	Tickets        []ticket.LineItem
	Method         PaymentMethod
	IdempotencyKey string
}

// Result is returned by a committed purchase.
type Result struct {
	Payment        *payment.Payment `json:"payment"`
	Purchase       *Purchase        `json:"purchase"`
	CreatedTickets []ticket.Ticket  `json:"createdTickets"`
	PaymentMethod  payment.Method   `json:"paymentMethod"`
	SavedCardID    *int64           `json:"savedCardId,omitempty"`
	CurrentCredits *decimal.Decimal `json:"currentCredits,omitempty"`
}

// Details is a payment with the tickets it paid for.
type Details struct {
	Payment *payment.Payment `json:"payment"`
	OrderID string           `json:"orderId,omitempty"`
	Tickets []ticket.Ticket  `json:"tickets"`
}
