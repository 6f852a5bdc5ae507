package purchase

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ticketbox/ticketbox-api/internal/domain/card"
	"github.com/ticketbox/ticketbox-api/internal/domain/payment"
)

// CreditDebiter charges the credit balance inside a transaction.
type CreditDebiter interface {
	DebitPurchaseTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal, attemptKey string) (decimal.Decimal, error)
}

// Funding is the outcome of a charge.
type Funding struct {
	Method payment.Method
	// ChargedCardID is the card on file used for the payment, if any.
	ChargedCardID *int64
	// SavedCardID is set only when the charge stored a new card.
	SavedCardID    *int64
	CurrentCredits *decimal.Decimal
}

// MarshalZerologObject logs the funding source without card data.
func (f *Funding) MarshalZerologObject(e *zerolog.Event) {
	e.Str("method", string(f.Method))
	if f.ChargedCardID != nil {
		e.Int64("card_id", *f.ChargedCardID)
	}
	if f.CurrentCredits != nil {
		e.Str("credits_left", f.CurrentCredits.String())
	}
}

// Resolver executes exactly one funding source for a request.
type Resolver struct {
	cards   card.Repository
	credits CreditDebiter
	now     func() time.Time
}

func NewResolver(cards card.Repository, credits CreditDebiter) *Resolver {
	return &Resolver{cards: cards, credits: credits, now: time.Now}
}

// ChargeTx funds req for userID inside tx.
func (r *Resolver) ChargeTx(ctx context.Context, tx *sqlx.Tx, userID int64, req Request) (*Funding, error) {
	switch m := req.Method.(type) {
	case SavedCard:
		c, err := r.cards.FindForUserTx(ctx, tx, m.CardID, userID)
		if err != nil {
			return nil, err
		}
		return &Funding{Method: payment.MethodCard, ChargedCardID: &c.ID}, nil

	case NewCard:
		if err := m.Details.CheckExpiry(r.now()); err != nil {
			return nil, err
		}
		if !m.Save {
			return &Funding{Method: payment.MethodCard}, nil
		}
		if m.MakeDefault {
			if err := r.cards.UnsetDefaultsTx(ctx, tx, userID); err != nil {
				return nil, err
			}
		}
		saved := m.Details.ToSavedCard(userID, m.MakeDefault)
		if err := r.cards.CreateTx(ctx, tx, saved); err != nil {
			return nil, err
		}
		return &Funding{Method: payment.MethodCard, ChargedCardID: &saved.ID, SavedCardID: &saved.ID}, nil

	case Credits:
		left, err := r.credits.DebitPurchaseTx(ctx, tx, userID, req.Amount, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return &Funding{Method: payment.MethodCredits, CurrentCredits: &left}, nil

	case nil:
		return nil, ErrMethodRequired

	default:
		return nil, ErrUnsupportedMethod
	}
}
