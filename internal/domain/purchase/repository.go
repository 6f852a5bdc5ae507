package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository defines purchase data access
type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, p *Purchase) error
	LinkTicketsTx(ctx context.Context, tx *sqlx.Tx, purchaseID int64, ticketIDs []int64) error
	GetByPaymentID(ctx context.Context, paymentID int64) (*Purchase, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates purchase repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, p *Purchase) error {
	query := `
		INSERT INTO purchases (user_id, payment_id, order_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := tx.QueryRowxContext(ctx, query, p.UserID, p.PaymentID, p.OrderID).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *repository) LinkTicketsTx(ctx context.Context, tx *sqlx.Tx, purchaseID int64, ticketIDs []int64) error {
	for _, id := range ticketIDs {
		_, err := tx.ExecContext(ctx, `INSERT INTO purchase_tickets (purchase_id, ticket_id) VALUES ($1, $2)`, purchaseID, id)
		if err != nil {
			return fmt.Errorf("link ticket %d to purchase: %w", id, err)
		}
	}
	return nil
}

// GetByPaymentID returns (nil, nil) when no purchase references the payment.
func (r *repository) GetByPaymentID(ctx context.Context, paymentID int64) (*Purchase, error) {
	var p Purchase
	err := r.db.GetContext(ctx, &p, `SELECT id, user_id, payment_id, order_id, created_at FROM purchases WHERE payment_id = $1`, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return &p, nil
}
