package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reason classifies a ledger entry.
type Reason string

const (
	ReasonPurchase   Reason = "purchase"
	ReasonRefund     Reason = "refund"
	ReasonAdminGrant Reason = "admin_grant"
)

// ReferenceTypePaymentAttempt ties a purchase debit to the idempotency key of
// the attempt that produced it.
const ReferenceTypePaymentAttempt = "payment_attempt"

// Meta is the optional reference attached to a ledger entry.
type Meta struct {
	ReferenceType *string
	ReferenceID   *string
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}

// LedgerEntry is a credit_transactions row. Debits carry a negative delta.
type LedgerEntry struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"userId"`
	Delta         decimal.Decimal `db:"delta" json:"delta"`
	Reason        string          `db:"reason" json:"reason"`
	ReferenceID   *string         `db:"reference_id" json:"referenceId,omitempty"`
	ReferenceType *string         `db:"reference_type" json:"referenceType,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}
