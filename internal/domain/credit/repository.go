package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
)

const (
	queryTimeout         = 3 * time.Second
	ledgerReferenceIndex = "credit_transactions_reference_uniq"
)

type Repository interface {
	LockBalanceTx(ctx context.Context, tx *sqlx.Tx, userID int64) (decimal.Decimal, error)
	HasEntryTx(ctx context.Context, tx *sqlx.Tx, userID int64, reason Reason, meta Meta) (bool, error)
	ApplyTx(ctx context.Context, tx *sqlx.Tx, userID int64, delta decimal.Decimal, reason Reason, meta Meta) (decimal.Decimal, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	ListEntries(ctx context.Context, userID int64, pagination Pagination) ([]LedgerEntry, error)
}

// CreditRepository provides credit ledger and balance operations.
type CreditRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// LockBalanceTx reads the balance holding a row lock until tx ends.
func (r *CreditRepository) LockBalanceTx(ctx context.Context, tx *sqlx.Tx, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `SELECT credit_balance FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("lock user balance: %w", err)
	}
	return balance, nil
}

func (r *CreditRepository) HasEntryTx(ctx context.Context, tx *sqlx.Tx, userID int64, reason Reason, meta Meta) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM credit_transactions
			WHERE user_id = $1 AND reason = $2
			  AND reference_type IS NOT DISTINCT FROM $3
			  AND reference_id IS NOT DISTINCT FROM $4
		)
	`, userID, string(reason), meta.ReferenceType, meta.ReferenceID)
	if err != nil {
		return false, fmt.Errorf("check ledger entry: %w", err)
	}
	return exists, nil
}

// ApplyTx moves the balance by delta and records the ledger entry in tx.
// The balance CHECK constraint rejects overdrafts.
func (r *CreditRepository) ApplyTx(ctx context.Context, tx *sqlx.Tx, userID int64, delta decimal.Decimal, reason Reason, meta Meta) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `
		UPDATE users
		SET credit_balance = credit_balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING credit_balance
	`, userID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("update user balance: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (user_id, delta, reason, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, delta, string(reason), meta.ReferenceType, meta.ReferenceID)
	if err != nil {
		if database.IsUniqueViolation(err, ledgerReferenceIndex) {
			return decimal.Zero, ErrDuplicateDebit
		}
		return decimal.Zero, fmt.Errorf("insert ledger entry: %w", err)
	}

	return balance, nil
}

func (r *CreditRepository) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance decimal.Decimal
	err := r.db.GetContext(ctx2, &balance, `SELECT credit_balance FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (r *CreditRepository) ListEntries(ctx context.Context, userID int64, pagination Pagination) ([]LedgerEntry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := pagination.Limit
	if limit <= 0 {
		limit = 20
	}

	entries := make([]LedgerEntry, 0)
	err := r.db.SelectContext(ctx2, &entries, `
		SELECT id, user_id, delta, reason, reference_id, reference_type, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, pagination.Offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}
