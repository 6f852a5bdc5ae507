package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNoStock is returned by DecrementTx when the conditional update matched no row.
var ErrNoStock = errors.New("ticket type stock exhausted")

type Repository interface {
	LockTicketTypeTx(ctx context.Context, tx *sqlx.Tx, id int64) (*TicketType, error)
	DecrementTx(ctx context.Context, tx *sqlx.Tx, id int64, quantity int) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, t *Ticket) error
	UpdateQRTx(ctx context.Context, tx *sqlx.Tx, id int64, qrCode string) error
	LinkPaymentTx(ctx context.Context, tx *sqlx.Tx, paymentID, ticketID int64) error
	ListByPayment(ctx context.Context, paymentID int64) ([]Ticket, error)
	GetTicketType(ctx context.Context, id int64) (*TicketType, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates ticket repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// LockTicketTypeTx returns the ticket type with its event name, locking the
// ticket type row until tx ends. A missing row yields (nil, nil).
func (r *repository) LockTicketTypeTx(ctx context.Context, tx *sqlx.Tx, id int64) (*TicketType, error) {
	var tt TicketType
	err := tx.GetContext(ctx, &tt, `
		SELECT tt.id, tt.event_id, e.name AS event_name, tt.name, tt.price, tt.available_quantity
		FROM ticket_types tt
		JOIN events e ON e.id = tt.event_id
		WHERE tt.id = $1
		FOR UPDATE OF tt
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock ticket type: %w", err)
	}
	return &tt, nil
}

func (r *repository) DecrementTx(ctx context.Context, tx *sqlx.Tx, id int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE ticket_types
		SET available_quantity = available_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND available_quantity >= $2
	`, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement availability: %w", err)
	}
	if n == 0 {
		return ErrNoStock
	}
	return nil
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, t *Ticket) error {
	query := `
		INSERT INTO tickets (event_id, user_id, ticket_type_id, price, hash, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		t.EventID, t.UserID, t.TicketTypeID, t.Price, t.Hash, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *repository) UpdateQRTx(ctx context.Context, tx *sqlx.Tx, id int64, qrCode string) error {
	_, err := tx.ExecContext(ctx, `UPDATE tickets SET qr_code = $2, updated_at = NOW() WHERE id = $1`, id, qrCode)
	if err != nil {
		return fmt.Errorf("update ticket qr: %w", err)
	}
	return nil
}

func (r *repository) LinkPaymentTx(ctx context.Context, tx *sqlx.Tx, paymentID, ticketID int64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO payment_tickets (payment_id, ticket_id) VALUES ($1, $2)`, paymentID, ticketID)
	if err != nil {
		return fmt.Errorf("link ticket to payment: %w", err)
	}
	return nil
}

func (r *repository) ListByPayment(ctx context.Context, paymentID int64) ([]Ticket, error) {
	tickets := make([]Ticket, 0)
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT t.id, t.event_id, t.user_id, t.ticket_type_id, t.price, t.qr_code, t.hash, t.status, t.created_at
		FROM tickets t
		JOIN payment_tickets pt ON pt.ticket_id = t.id
		WHERE pt.payment_id = $1
		ORDER BY t.id
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list payment tickets: %w", err)
	}
	return tickets, nil
}

func (r *repository) GetTicketType(ctx context.Context, id int64) (*TicketType, error) {
	var tt TicketType
	err := r.db.GetContext(ctx, &tt, `
		SELECT tt.id, tt.event_id, e.name AS event_name, tt.name, tt.price, tt.available_quantity
		FROM ticket_types tt
		JOIN events e ON e.id = tt.event_id
		WHERE tt.id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket type: %w", err)
	}
	return &tt, nil
}
