package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method is the funding source of a payment
type Method string

const (
	MethodCard    Method = "card"
	MethodCredits Method = "credits"
)

// Status represents payment status
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusRefunded  Status = "refunded"
)

// Payment is created once per purchase request; only Status changes later.
type Payment struct {
	ID             int64           `db:"id" json:"id"`
	UserID         int64           `db:"user_id" json:"userId"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Currency       string          `db:"currency" json:"currency"`
	PaymentMethod  Method          `db:"payment_method" json:"paymentMethod"`
	Status         Status          `db:"status" json:"status"`
	SavedCardID    *int64          `db:"saved_card_id" json:"savedCardId,omitempty"`
	IdempotencyKey string          `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}
