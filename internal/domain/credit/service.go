package credit

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
)

// Service applies balance changes through the ledger.
type Service struct {
	repo Repository
	tx   database.Transactor
}

// NewService creates a new credit service
func NewService(repo Repository, tx database.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// DebitPurchaseTx charges amount for the purchase attempt identified by
// attemptKey and returns the balance left. It runs inside the caller's
// transaction; the user row stays locked until that transaction ends, so a
// second attempt with the same key sees the first entry and is rejected.
func (s *Service) DebitPurchaseTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal, attemptKey string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	balance, err := s.repo.LockBalanceTx(ctx, tx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	meta := attemptMeta(attemptKey)
	if meta.ReferenceID != nil {
		dup, err := s.repo.HasEntryTx(ctx, tx, userID, ReasonPurchase, meta)
		if err != nil {
			return decimal.Zero, err
		}
		if dup {
			return decimal.Zero, ErrDuplicateDebit
		}
	}

	if balance.LessThan(amount) {
		return decimal.Zero, ErrInsufficientCredits
	}

	return s.repo.ApplyTx(ctx, tx, userID, amount.Neg(), ReasonPurchase, meta)
}

// Add credits a user outside of a purchase, e.g. a refund or an admin grant.
func (s *Service) Add(ctx context.Context, userID int64, amount decimal.Decimal, reason Reason, meta Meta) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := s.tx.ExecuteInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := s.repo.LockBalanceTx(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		balance, err = s.repo.ApplyTx(ctx, tx, userID, amount, reason, meta)
		return err
	})
	return balance, err
}

// GetBalance returns the current credit balance for a user
func (s *Service) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.repo.GetBalance(ctx, userID)
}

// ListEntries returns paginated ledger history for a user
func (s *Service) ListEntries(ctx context.Context, userID int64, limit, offset int) ([]LedgerEntry, error) {
	return s.repo.ListEntries(ctx, userID, Pagination{Limit: limit, Offset: offset})
}

func attemptMeta(key string) Meta {
	if key == "" {
		return Meta{}
	}
	refType := ReferenceTypePaymentAttempt
	return Meta{ReferenceType: &refType, ReferenceID: &key}
}
