package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ticketbox/ticketbox-api/internal/pkg/database"
)

const idempotencyConstraint = "payments_user_idempotency_key"

// Repository defines payment data access
type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Payment, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates payment repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const paymentColumns = `id, user_id, amount, currency, payment_method, status, saved_card_id, idempotency_key, created_at, updated_at`

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, p *Payment) error {
	query := `
		INSERT INTO payments (user_id, amount, currency, payment_method, status, saved_card_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		p.UserID, p.Amount, p.Currency, p.PaymentMethod, p.Status, p.SavedCardID, p.IdempotencyKey,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, idempotencyConstraint) {
			return ErrDuplicateRequest
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID returns (nil, nil) when the payment does not exist.
func (r *repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

// ListByUser returns the user's payments, newest first. A limit <= 0 returns
// every payment from offset on.
func (r *repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2
	`
	args := []interface{}{userID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	payments := make([]Payment, 0)
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
